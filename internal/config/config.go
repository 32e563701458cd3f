// Package config loads the beamcross runtime configuration. Values are read
// once at startup and treated as immutable afterwards.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/beamcross/internal/geometry"
	"github.com/banshee-data/beamcross/internal/serialport"
)

// Display backends.
const (
	BackendTerminal = "terminal"
	BackendSnapshot = "snapshot"
	BackendBoth     = "both"
	BackendNone     = "none"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root runtime configuration. Fields omitted from the YAML file
// keep the values from Default.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Display DisplayConfig `yaml:"display"`
	Beam    BeamConfig    `yaml:"beam"`
	Dev     DevConfig     `yaml:"dev"`
}

// SerialConfig selects the sensor port and its line settings. ReadTimeout
// bounds how long a read may block, and with it how quickly acquisition
// notices shutdown.
type SerialConfig struct {
	Port                   string        `yaml:"port"`
	serialport.PortOptions `yaml:",inline"`
	ReadTimeout            time.Duration `yaml:"read_timeout"`
}

// DisplayConfig sets the pixel viewport and the surfaces frames are drawn on.
// SnapshotEvery writes one image per that many frames.
type DisplayConfig struct {
	geometry.Viewport `yaml:",inline"`
	FrameRate         int    `yaml:"frame_rate"`
	MarkerSize        int    `yaml:"marker_size"`
	Backend           string `yaml:"backend"`
	SnapshotPath      string `yaml:"snapshot_path"`
	SnapshotEvery     int    `yaml:"snapshot_every"`
}

// BeamConfig chooses how the marker span is derived. Mode is "distance" or
// "beam"; the embedded geometry parameters only matter in beam mode.
type BeamConfig struct {
	Mode                string `yaml:"mode"`
	geometry.BeamConfig `yaml:",inline"`
}

// DevConfig replaces the serial port with a simulated one replaying Fixtures.
type DevConfig struct {
	Enable   bool          `yaml:"enable"`
	Fixtures []string      `yaml:"fixtures"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyUSB0",
			PortOptions: serialport.PortOptions{BaudRate: serialport.DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"},
			ReadTimeout: 200 * time.Millisecond,
		},
		Display: DisplayConfig{
			Viewport:      geometry.Viewport{Width: 1000, Height: 600},
			FrameRate:     60,
			MarkerSize:    10,
			Backend:       BackendTerminal,
			SnapshotPath:  "beamcross.png",
			SnapshotEvery: 60,
		},
		Beam: BeamConfig{
			Mode:       geometry.SpanDistance.String(),
			BeamConfig: geometry.DefaultBeamConfig(),
		},
		Dev: DevConfig{
			Fixtures: append([]string(nil), serialport.DefaultFixture...),
			Interval: 50 * time.Millisecond,
		},
	}
}

// Load reads a YAML file on top of Default, so omitted fields keep their
// defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return Config{}, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	if !c.Dev.Enable && c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required unless dev.enable is set")
	}
	if _, err := c.Serial.PortOptions.Normalize(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive, got %s", c.Serial.ReadTimeout)
	}

	d := c.Display
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", d.Width, d.Height)
	}
	if d.FrameRate <= 0 || d.FrameRate > 1000 {
		return fmt.Errorf("display.frame_rate must be between 1 and 1000, got %d", d.FrameRate)
	}
	if d.MarkerSize <= 0 {
		return fmt.Errorf("display.marker_size must be positive, got %d", d.MarkerSize)
	}
	switch d.Backend {
	case BackendTerminal, BackendNone:
	case BackendSnapshot, BackendBoth:
		if d.SnapshotPath == "" {
			return fmt.Errorf("display.snapshot_path is required for backend %q", d.Backend)
		}
	default:
		return fmt.Errorf("unknown display.backend %q: expected terminal, snapshot, both or none", d.Backend)
	}
	if d.SnapshotEvery < 0 {
		return fmt.Errorf("display.snapshot_every must be non-negative, got %d", d.SnapshotEvery)
	}

	if _, err := geometry.ParseSpanMode(c.Beam.Mode); err != nil {
		return fmt.Errorf("beam: %w", err)
	}
	b := c.Beam.BeamConfig
	if b.AngleDeg <= 0 || b.AngleDeg >= 180 {
		return fmt.Errorf("beam.angle_deg must be between 0 and 180, got %g", b.AngleDeg)
	}
	if b.SeparationMM <= 0 {
		return fmt.Errorf("beam.separation_mm must be positive, got %g", b.SeparationMM)
	}
	if b.OffsetScale <= 0 {
		return fmt.Errorf("beam.offset_scale must be positive, got %g", b.OffsetScale)
	}

	if c.Dev.Enable && c.Dev.Interval <= 0 {
		return fmt.Errorf("dev.interval must be positive, got %s", c.Dev.Interval)
	}
	return nil
}

// Transform builds the projection described by the display and beam
// sections. It assumes the config has been validated.
func (c Config) Transform() geometry.Transform {
	mode, _ := geometry.ParseSpanMode(c.Beam.Mode)
	return geometry.Transform{
		Viewport: c.Display.Viewport,
		Beam:     c.Beam.BeamConfig,
		Mode:     mode,
	}
}
