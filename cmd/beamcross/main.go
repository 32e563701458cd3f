// Command beamcross reads distance and tilt telemetry from a serial sensor
// and draws two projected crosshair markers at the display frame rate.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/beamcross/internal/config"
	"github.com/banshee-data/beamcross/internal/display"
	"github.com/banshee-data/beamcross/internal/monitoring"
	"github.com/banshee-data/beamcross/internal/render"
	"github.com/banshee-data/beamcross/internal/serialport"
	"github.com/banshee-data/beamcross/internal/telemetry"
	"github.com/banshee-data/beamcross/internal/version"
)

type cliFlags struct {
	configPath   string
	port         string
	baud         int
	readTimeout  time.Duration
	width        int
	height       int
	fps          int
	beamMode     string
	offsetScale  float64
	backend      string
	snapshot     string
	dev          bool
	fixturesPath string
	logPath      string
	debug        bool
	listPorts    bool
	showVersion  bool
}

func newFlagSet(f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("beamcross", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML config file (defaults are used when empty)")
	fs.StringVar(&f.port, "port", "", "Serial port to use (ignored in dev mode)")
	fs.IntVar(&f.baud, "baud", 0, "Serial baud rate")
	fs.DurationVar(&f.readTimeout, "read-timeout", 0, "Serial read timeout")
	fs.IntVar(&f.width, "width", 0, "Viewport width in pixels")
	fs.IntVar(&f.height, "height", 0, "Viewport height in pixels")
	fs.IntVar(&f.fps, "fps", 0, "Render frame rate")
	fs.StringVar(&f.beamMode, "beam", "", "Marker span mode: distance or beam")
	fs.Float64Var(&f.offsetScale, "offset-scale", 0, "Multiplier applied to the projected beam offset")
	fs.StringVar(&f.backend, "backend", "", "Display backend: terminal, snapshot, both or none")
	fs.StringVar(&f.snapshot, "snapshot", "", "Snapshot image path for the snapshot backend")
	fs.BoolVar(&f.dev, "dev", false, "Run in dev mode with a simulated sensor")
	fs.StringVar(&f.fixturesPath, "fixtures", "", "File of telemetry lines replayed in dev mode")
	fs.StringVar(&f.logPath, "log", "", "Write logs to this file instead of stderr")
	fs.BoolVar(&f.debug, "debug", false, "Log every accepted sample and present error")
	fs.BoolVar(&f.listPorts, "list-ports", false, "List serial ports and exit")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	return fs
}

// apply overrides cfg with the flags that were set explicitly on the command
// line.
func (f *cliFlags) apply(cfg *config.Config, fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "port":
			cfg.Serial.Port = f.port
		case "baud":
			cfg.Serial.BaudRate = f.baud
		case "read-timeout":
			cfg.Serial.ReadTimeout = f.readTimeout
		case "width":
			cfg.Display.Width = f.width
		case "height":
			cfg.Display.Height = f.height
		case "fps":
			cfg.Display.FrameRate = f.fps
		case "beam":
			cfg.Beam.Mode = f.beamMode
		case "offset-scale":
			cfg.Beam.OffsetScale = f.offsetScale
		case "backend":
			cfg.Display.Backend = f.backend
		case "snapshot":
			cfg.Display.SnapshotPath = f.snapshot
		case "dev":
			cfg.Dev.Enable = f.dev
		case "fixtures":
			var lines []string
			lines, err = readFixtures(f.fixturesPath)
			cfg.Dev.Fixtures = lines
		}
	})
	return err
}

// readFixtures returns the non-empty lines of path.
func readFixtures(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("fixtures file %s has no lines", path)
	}
	return lines, nil
}

func loadConfig(f *cliFlags, fs *flag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if err := f.apply(&cfg, fs); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// simulatedOpener replays the dev fixtures instead of opening a device.
func simulatedOpener(cfg config.DevConfig) serialport.Opener {
	return func(_ string, _ serialport.PortOptions, readTimeout time.Duration) (serialport.TimeoutSerialPorter, error) {
		port := serialport.NewSimulatedPort(cfg.Fixtures, cfg.Interval)
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, err
		}
		return port, nil
	}
}

// surfaces opens the configured display backends. The returned closer
// releases them and is safe to call once.
func surfaces(cfg config.Config) (render.Surface, render.QuitPoller, func(), error) {
	var (
		multi   render.MultiSurface
		quit    render.QuitPoller
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	backend := cfg.Display.Backend
	if backend == config.BackendTerminal || backend == config.BackendBoth {
		term, err := display.NewTerminal(cfg.Display.Viewport)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialise terminal: %w", err)
		}
		multi = append(multi, term)
		quit = term
		closers = append(closers, func() { term.Close() })
	}
	if backend == config.BackendSnapshot || backend == config.BackendBoth {
		snap, err := display.NewSnapshot(cfg.Display.SnapshotPath, cfg.Display.Viewport, cfg.Display.SnapshotEvery)
		if err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("failed to create snapshot surface: %w", err)
		}
		multi = append(multi, snap)
	}
	return multi, quit, closeAll, nil
}

// run wires the acquisition and render loops and blocks until the user quits
// or ctx is cancelled. The acquisition goroutine, and with it the port, is
// always finished before run returns.
func run(ctx context.Context, cfg config.Config, open serialport.Opener) (telemetry.AcquisitionStats, error) {
	port, err := open(cfg.Serial.Port, cfg.Serial.PortOptions, cfg.Serial.ReadTimeout)
	if err != nil {
		return telemetry.AcquisitionStats{}, err
	}
	reader := serialport.NewLineReader(port)

	surface, quit, closeSurfaces, err := surfaces(cfg)
	if err != nil {
		reader.Close()
		return telemetry.AcquisitionStats{}, err
	}
	defer closeSurfaces()

	cell := telemetry.NewCell(telemetry.DefaultSample())
	acq := telemetry.NewAcquirer(reader, cell)
	loop := render.NewLoop(cell, cfg.Transform(), surface, quit,
		render.WithFrameRate(cfg.Display.FrameRate),
		render.WithStyle(render.Style{MarkerSize: cfg.Display.MarkerSize}),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := acq.Run(ctx); err != nil {
			log.Printf("acquisition stopped: %v", err)
		}
	}()

	err = loop.Run(ctx)
	cancel()
	wg.Wait()

	log.Printf("rendered %d frames, %d present errors", loop.Frames(), loop.PresentErrors())
	return acq.Stats(), err
}

func main() {
	var f cliFlags
	fs := newFlagSet(&f)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if f.showVersion {
		fmt.Println(version.String())
		return
	}

	if f.listPorts {
		ports, err := serialport.ListPorts()
		if err != nil {
			log.Fatalf("%v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(&f, fs)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	restoreLog := func() {}
	if f.logPath != "" {
		logFile, err := os.OpenFile(f.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
	} else if cfg.Display.Backend == config.BackendTerminal || cfg.Display.Backend == config.BackendBoth {
		// the terminal owns stderr while it is drawing
		log.SetOutput(io.Discard)
		restoreLog = func() { log.SetOutput(os.Stderr) }
	}
	monitoring.SetDebug(f.debug)

	log.Printf("starting %s", version.String())

	open := serialport.Opener(serialport.Open)
	if cfg.Dev.Enable {
		open = simulatedOpener(cfg.Dev)
		log.Printf("dev mode: replaying %d fixture lines every %s", len(cfg.Dev.Fixtures), cfg.Dev.Interval)
	} else {
		log.Printf("opening %s at %s", cfg.Serial.Port, cfg.Serial.PortOptions)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := run(ctx, cfg, open)
	restoreLog()
	if err != nil {
		log.Fatalf("beamcross: %v", err)
	}
	log.Printf("lines=%d accepted=%d rejected=%d timeouts=%d read_errors=%d",
		stats.Lines, stats.Accepted, stats.Rejected(), stats.Timeouts, stats.ReadErrors)
}
