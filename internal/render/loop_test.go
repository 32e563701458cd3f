package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/beamcross/internal/geometry"
	"github.com/banshee-data/beamcross/internal/monitoring"
	"github.com/banshee-data/beamcross/internal/telemetry"
	"github.com/banshee-data/beamcross/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

type drawCall struct {
	op    string
	p     image.Point
	size  int
	color color.Color
}

// recordingSurface records the calls of the most recent frame.
type recordingSurface struct {
	mu         sync.Mutex
	calls      []drawCall
	presents   int
	presentErr error
}

func (r *recordingSurface) Clear(c color.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = []drawCall{{op: "clear", color: c}}
}

func (r *recordingSurface) DrawMarker(p image.Point, size int, c color.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, drawCall{op: "marker", p: p, size: size, color: c})
}

func (r *recordingSurface) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presents++
	return r.presentErr
}

func (r *recordingSurface) frame() ([]drawCall, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]drawCall(nil), r.calls...), r.presents
}

var testTransform = geometry.Transform{
	Viewport: geometry.Viewport{Width: 1000, Height: 600},
	Mode:     geometry.SpanDistance,
}

func TestLoop_Frame(t *testing.T) {
	cell := telemetry.NewCell(telemetry.DefaultSample())
	surface := &recordingSurface{}
	loop := NewLoop(cell, testTransform, surface, nil)

	loop.Frame()

	calls, presents := surface.frame()
	want := []drawCall{
		{op: "clear", color: DefaultBackground},
		{op: "marker", p: image.Pt(300, 300), size: DefaultMarkerSize, color: DefaultMarkerColor},
		{op: "marker", p: image.Pt(700, 300), size: DefaultMarkerSize, color: DefaultMarkerColor},
	}
	assert.Equal(t, want, calls)
	assert.Equal(t, 1, presents)
	assert.Equal(t, uint64(1), loop.Frames())

	// the next frame picks up whatever the cell holds now
	cell.Write(telemetry.Sample{DistanceMM: 200, TiltDeg: 90})
	loop.Frame()
	calls, _ = surface.frame()
	require.Len(t, calls, 3)
	assert.Equal(t, image.Pt(500, 200), calls[1].p)
	assert.Equal(t, image.Pt(500, 400), calls[2].p)
}

func TestLoop_Style(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	surface := &recordingSurface{}
	loop := NewLoop(telemetry.NewCell(telemetry.DefaultSample()), testTransform, surface, nil,
		WithStyle(Style{MarkerColor: red, MarkerSize: 24}))

	loop.Frame()
	calls, _ := surface.frame()
	require.Len(t, calls, 3)
	assert.Equal(t, DefaultBackground, calls[0].color)
	assert.Equal(t, red, calls[1].color)
	assert.Equal(t, 24, calls[1].size)
}

func TestLoop_FrameRate(t *testing.T) {
	cell := telemetry.NewCell(telemetry.DefaultSample())
	assert.Equal(t, time.Second/60, NewLoop(cell, testTransform, &recordingSurface{}, nil).Interval())
	assert.Equal(t, time.Second/30, NewLoop(cell, testTransform, &recordingSurface{}, nil, WithFrameRate(30)).Interval())
	assert.Equal(t, time.Second/60, NewLoop(cell, testTransform, &recordingSurface{}, nil, WithFrameRate(0)).Interval())
}

func TestLoop_RunTicksAndQuits(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	surface := &recordingSurface{}
	var quit atomic.Bool
	loop := NewLoop(telemetry.NewCell(telemetry.DefaultSample()), testTransform, surface,
		QuitFunc(quit.Load), WithClock(clock))

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	require.Eventually(t, func() bool { return clock.TickerCount() == 1 }, time.Second, time.Millisecond)

	for i := 1; i <= 3; i++ {
		clock.Advance(loop.Interval())
		want := uint64(i)
		require.Eventually(t, func() bool { return loop.Frames() == want }, time.Second, time.Millisecond)
	}

	quit.Store(true)
	clock.Advance(loop.Interval())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on quit request")
	}
	assert.Equal(t, uint64(3), loop.Frames(), "no frame is drawn once quit is requested")
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	surface := &recordingSurface{}
	loop := NewLoop(telemetry.NewCell(telemetry.DefaultSample()), testTransform, surface, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool { return loop.Frames() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * loop.Interval()):
		t.Fatal("loop did not stop within a few frame intervals")
	}
}

func TestLoop_PresentErrorsAreNotFatal(t *testing.T) {
	surface := &recordingSurface{presentErr: errors.New("display gone")}
	loop := NewLoop(telemetry.NewCell(telemetry.DefaultSample()), testTransform, surface, nil)

	loop.Frame()
	loop.Frame()

	assert.Equal(t, uint64(2), loop.Frames())
	assert.Equal(t, uint64(2), loop.PresentErrors())
}

func TestMultiSurface(t *testing.T) {
	a := &recordingSurface{}
	b := &recordingSurface{presentErr: errors.New("b failed")}
	c := &recordingSurface{}
	multi := MultiSurface{a, b, c}

	multi.Clear(color.Black)
	multi.DrawMarker(image.Pt(1, 2), 5, color.White)
	err := multi.Present()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b failed")
	for _, s := range []*recordingSurface{a, b, c} {
		calls, presents := s.frame()
		assert.Len(t, calls, 2)
		assert.Equal(t, 1, presents)
	}
	assert.NoError(t, MultiSurface{a, c}.Present())
}

func TestNeverQuit(t *testing.T) {
	assert.False(t, NeverQuit.QuitRequested())
}
