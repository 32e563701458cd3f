// Package geometry converts telemetry (distance, tilt) and beam configuration
// into the two screen points the render loop draws.
//
// Every function in this package is pure: the same inputs always produce
// bit-identical outputs, and no NaN or infinity ever escapes into the returned
// coordinates.
package geometry

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/beamcross/internal/units"
)

// Viewport is the drawing area in pixels. The markers are centred on it.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Center returns the viewport centre using integer division.
func (v Viewport) Center() image.Point {
	return image.Pt(v.Width/2, v.Height/2)
}

// Points are the two marker positions for one frame.
type Points struct {
	P1 image.Point
	P2 image.Point
}

// BeamConfig describes the projecting beam. It is read-only after startup.
type BeamConfig struct {
	// AngleDeg is the full angular spread of the beam.
	AngleDeg float64 `json:"angle_deg" yaml:"angle_deg"`
	// SeparationMM is the desired real-world distance between the two markers.
	SeparationMM float64 `json:"separation_mm" yaml:"separation_mm"`
	// OffsetScale multiplies the normalised offset. 1 treats the result as the
	// full marker span; 2 doubles it.
	OffsetScale float64 `json:"offset_scale" yaml:"offset_scale"`
}

// DefaultBeamConfig returns a 46° beam with targets 200 mm apart.
func DefaultBeamConfig() BeamConfig {
	return BeamConfig{
		AngleDeg:     46,
		SeparationMM: 200,
		OffsetScale:  1,
	}
}

// ProjectedOffset returns the normalised distance between the two projected
// markers: the target separation as a fraction of the beam width at
// distanceMM, multiplied by beam.OffsetScale.
//
// Degenerate geometry returns 0: non-finite inputs, a beam angle whose half
// tangent is zero, negative or undefined (0°, 360°, >180°), and non-positive
// distances.
func ProjectedOffset(distanceMM float64, beam BeamConfig) float64 {
	if !units.IsFinite(distanceMM) || !units.IsFinite(beam.AngleDeg) ||
		!units.IsFinite(beam.SeparationMM) || !units.IsFinite(beam.OffsetScale) {
		return 0
	}

	halfAngle := units.DegreesToRadians(beam.AngleDeg) / 2
	beamWidthM := 2 * units.MillimetersToMeters(distanceMM) * math.Tan(halfAngle)
	if !units.IsFinite(beamWidthM) || beamWidthM <= 0 {
		return 0
	}

	offset := beam.OffsetScale * units.MillimetersToMeters(beam.SeparationMM) / beamWidthM
	if !units.IsFinite(offset) {
		return 0
	}
	return offset
}

// Project rotates a segment of length span, centred on the viewport, by tiltDeg
// and returns its end points. Coordinates are truncated toward zero rather than
// rounded. Non-finite span or tilt collapse both points onto the centre.
func Project(span, tiltDeg float64, vp Viewport) Points {
	if !units.IsFinite(span) || !units.IsFinite(tiltDeg) {
		span, tiltDeg = 0, 0
	}

	c := vp.Center()
	center := r2.Vec{X: float64(c.X), Y: float64(c.Y)}

	half := span / 2
	angle := units.DegreesToRadians(tiltDeg)
	d := r2.Vec{X: math.Cos(angle) * half, Y: math.Sin(angle) * half}

	return Points{
		P1: toPoint(r2.Sub(center, d)),
		P2: toPoint(r2.Add(center, d)),
	}
}

// toPoint truncates toward zero, clamping to the int32 range so that huge
// spans cannot overflow the conversion.
func toPoint(v r2.Vec) image.Point {
	return image.Pt(truncate(v.X), truncate(v.Y))
}

func truncate(f float64) int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}
