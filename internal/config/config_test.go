package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/beamcross/internal/geometry"
	"github.com/banshee-data/beamcross/internal/serialport"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 200*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, geometry.Viewport{Width: 1000, Height: 600}, cfg.Display.Viewport)
	assert.Equal(t, 60, cfg.Display.FrameRate)
	assert.Equal(t, BackendTerminal, cfg.Display.Backend)
	assert.Equal(t, geometry.DefaultBeamConfig(), cfg.Beam.BeamConfig)
	assert.Equal(t, serialport.DefaultFixture, cfg.Dev.Fixtures)
}

func TestDefault_FixturesAreACopy(t *testing.T) {
	cfg := Default()
	cfg.Dev.Fixtures[0] = "changed"
	assert.NotEqual(t, "changed", serialport.DefaultFixture[0])
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "beamcross.yaml", `
serial:
  port: /dev/ttyACM0
  baud_rate: 115200
  read_timeout: 100ms
display:
  width: 800
  height: 480
  backend: snapshot
  snapshot_path: /tmp/frame.png
beam:
  mode: beam
  angle_deg: 30
  separation_mm: 150
  offset_scale: 2
dev:
  enable: true
  fixtures: ["100,0", "200,90"]
  interval: 10ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Serial.Port = "/dev/ttyACM0"
	want.Serial.BaudRate = 115200
	want.Serial.ReadTimeout = 100 * time.Millisecond
	want.Display.Width = 800
	want.Display.Height = 480
	want.Display.Backend = BackendSnapshot
	want.Display.SnapshotPath = "/tmp/frame.png"
	want.Beam.Mode = "beam"
	want.Beam.BeamConfig = geometry.BeamConfig{AngleDeg: 30, SeparationMM: 150, OffsetScale: 2}
	want.Dev = DevConfig{Enable: true, Fixtures: []string{"100,0", "200,90"}, Interval: 10 * time.Millisecond}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "partial.yml", "display:\n  frame_rate: 30\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Display.FrameRate = 30
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(Default(), cfg))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "config.json", `{}`, "extension"},
		{"unknown key", "c.yaml", "serial:\n  prot: /dev/ttyS0\n", "failed to parse"},
		{"bad yaml", "c.yaml", "display: [\n", "failed to parse"},
		{"bad duration", "c.yaml", "serial:\n  read_timeout: soon\n", "failed to parse"},
		{"invalid value", "c.yaml", "display:\n  width: 0\n", "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat")
}

func TestLoad_TooLarge(t *testing.T) {
	body := "# " + strings.Repeat("x", maxFileSize) + "\n"
	_, err := Load(writeConfig(t, "big.yaml", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no port", func(c *Config) { c.Serial.Port = "" }, "serial.port"},
		{"no port in dev mode", func(c *Config) { c.Serial.Port = ""; c.Dev.Enable = true }, ""},
		{"bad baud", func(c *Config) { c.Serial.BaudRate = 12345 }, "baud"},
		{"bad parity", func(c *Config) { c.Serial.Parity = "X" }, "parity"},
		{"zero read timeout", func(c *Config) { c.Serial.ReadTimeout = 0 }, "read_timeout"},
		{"zero height", func(c *Config) { c.Display.Height = 0 }, "display size"},
		{"zero frame rate", func(c *Config) { c.Display.FrameRate = 0 }, "frame_rate"},
		{"huge frame rate", func(c *Config) { c.Display.FrameRate = 5000 }, "frame_rate"},
		{"zero marker", func(c *Config) { c.Display.MarkerSize = 0 }, "marker_size"},
		{"unknown backend", func(c *Config) { c.Display.Backend = "opengl" }, "backend"},
		{"snapshot without path", func(c *Config) { c.Display.Backend = BackendSnapshot; c.Display.SnapshotPath = "" }, "snapshot_path"},
		{"both backends", func(c *Config) { c.Display.Backend = BackendBoth }, ""},
		{"no display", func(c *Config) { c.Display.Backend = BackendNone }, ""},
		{"negative snapshot every", func(c *Config) { c.Display.SnapshotEvery = -1 }, "snapshot_every"},
		{"bad mode", func(c *Config) { c.Beam.Mode = "laser" }, "beam"},
		{"zero angle", func(c *Config) { c.Beam.AngleDeg = 0 }, "angle_deg"},
		{"flat angle", func(c *Config) { c.Beam.AngleDeg = 180 }, "angle_deg"},
		{"zero separation", func(c *Config) { c.Beam.SeparationMM = 0 }, "separation_mm"},
		{"zero scale", func(c *Config) { c.Beam.OffsetScale = 0 }, "offset_scale"},
		{"dev without interval", func(c *Config) { c.Dev.Enable = true; c.Dev.Interval = 0 }, "dev.interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTransform(t *testing.T) {
	cfg := Default()
	cfg.Beam.Mode = "beam"

	tf := cfg.Transform()
	assert.Equal(t, geometry.SpanBeam, tf.Mode)
	assert.Equal(t, cfg.Display.Viewport, tf.Viewport)
	assert.Equal(t, cfg.Beam.BeamConfig, tf.Beam)
}
