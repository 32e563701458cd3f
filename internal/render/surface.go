// Package render drives the fixed-rate frame loop: snapshot the telemetry
// cell, transform it into marker positions, and hand them to a Surface.
package render

import (
	"errors"
	"image"
	"image/color"
)

// Surface is the drawing collaborator. It is owned by the render loop and only
// touched from its goroutine.
type Surface interface {
	// Clear fills the whole surface with c.
	Clear(c color.Color)
	// DrawMarker draws a crosshair of the given size centred on p.
	DrawMarker(p image.Point, size int, c color.Color)
	// Present makes the frame drawn since the last Clear visible.
	Present() error
}

// QuitPoller reports, without blocking, whether the user asked to quit.
type QuitPoller interface {
	QuitRequested() bool
}

// QuitFunc adapts a function to QuitPoller.
type QuitFunc func() bool

// QuitRequested calls f.
func (f QuitFunc) QuitRequested() bool { return f() }

// NeverQuit is a QuitPoller for headless runs that only stop on cancellation.
var NeverQuit QuitPoller = QuitFunc(func() bool { return false })

// MultiSurface draws every frame on each of its surfaces in order.
type MultiSurface []Surface

// Clear clears every surface.
func (m MultiSurface) Clear(c color.Color) {
	for _, s := range m {
		s.Clear(c)
	}
}

// DrawMarker draws the marker on every surface.
func (m MultiSurface) DrawMarker(p image.Point, size int, c color.Color) {
	for _, s := range m {
		s.DrawMarker(p, size, c)
	}
}

// Present presents every surface, even when an earlier one fails, and returns
// the joined errors.
func (m MultiSurface) Present() error {
	var errs []error
	for _, s := range m {
		if err := s.Present(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
