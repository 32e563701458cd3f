package render

import (
	"context"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/banshee-data/beamcross/internal/geometry"
	"github.com/banshee-data/beamcross/internal/monitoring"
	"github.com/banshee-data/beamcross/internal/telemetry"
	"github.com/banshee-data/beamcross/internal/timeutil"
)

// DefaultFrameRate is the target number of frames per second.
const DefaultFrameRate = 60

// Default marker appearance.
var (
	DefaultBackground  color.Color = color.Black
	DefaultMarkerColor color.Color = color.White
)

// DefaultMarkerSize is the crosshair arm-to-arm size in pixels.
const DefaultMarkerSize = 10

// SampleReader is the render side of the telemetry cell.
type SampleReader interface {
	Read() telemetry.Sample
}

// Style controls how markers are drawn.
type Style struct {
	Background  color.Color
	MarkerColor color.Color
	MarkerSize  int
}

// Loop renders frames at a fixed rate until the user quits or its context is
// cancelled.
type Loop struct {
	cell      SampleReader
	transform geometry.Transform
	surface   Surface
	quit      QuitPoller
	clock     timeutil.Clock
	interval  time.Duration
	style     Style

	frames        atomic.Uint64
	presentErrors atomic.Uint64
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFrameRate sets the target frames per second. Non-positive values keep
// the default.
func WithFrameRate(fps int) LoopOption {
	return func(l *Loop) {
		if fps > 0 {
			l.interval = time.Second / time.Duration(fps)
		}
	}
}

// WithClock sets the clock that drives the frame ticker.
func WithClock(c timeutil.Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// WithStyle overrides the default colours and marker size. Zero fields keep
// their defaults.
func WithStyle(s Style) LoopOption {
	return func(l *Loop) {
		if s.Background != nil {
			l.style.Background = s.Background
		}
		if s.MarkerColor != nil {
			l.style.MarkerColor = s.MarkerColor
		}
		if s.MarkerSize > 0 {
			l.style.MarkerSize = s.MarkerSize
		}
	}
}

// NewLoop creates a render loop. quit may be nil for headless use.
func NewLoop(cell SampleReader, tf geometry.Transform, surface Surface, quit QuitPoller, opts ...LoopOption) *Loop {
	if quit == nil {
		quit = NeverQuit
	}
	l := &Loop{
		cell:      cell,
		transform: tf,
		surface:   surface,
		quit:      quit,
		clock:     timeutil.RealClock{},
		interval:  time.Second / DefaultFrameRate,
		style: Style{
			Background:  DefaultBackground,
			MarkerColor: DefaultMarkerColor,
			MarkerSize:  DefaultMarkerSize,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Interval returns the time between frames.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Run draws one frame per tick. It returns nil when the QuitPoller reports a
// quit request or ctx is cancelled; both are observed within one frame.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	monitoring.Logf("render loop started at %v per frame", l.interval)
	defer func() {
		monitoring.Logf("render loop stopped after %d frames (%d present errors)", l.frames.Load(), l.presentErrors.Load())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if l.quit.QuitRequested() {
				monitoring.Logf("quit requested")
				return nil
			}
			l.Frame()
		}
	}
}

// Frame draws a single frame from the current sample.
func (l *Loop) Frame() {
	sample := l.cell.Read()
	pts := l.transform.Points(sample.DistanceMM, sample.TiltDeg)

	l.surface.Clear(l.style.Background)
	l.surface.DrawMarker(pts.P1, l.style.MarkerSize, l.style.MarkerColor)
	l.surface.DrawMarker(pts.P2, l.style.MarkerSize, l.style.MarkerColor)
	if err := l.surface.Present(); err != nil {
		if l.presentErrors.Add(1) == 1 {
			monitoring.Logf("failed to present frame: %v", err)
		} else {
			monitoring.Debugf("failed to present frame: %v", err)
		}
	}
	l.frames.Add(1)
}

// Frames returns how many frames have been drawn.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// PresentErrors returns how many frames failed to present.
func (l *Loop) PresentErrors() uint64 {
	return l.presentErrors.Load()
}
