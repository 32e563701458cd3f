package geometry

import (
	"fmt"
	"strings"
)

// SpanMode selects what the render loop uses as the marker span.
type SpanMode int

const (
	// SpanDistance uses the raw distance (mm) as the span in pixels.
	SpanDistance SpanMode = iota
	// SpanBeam uses the beam-projection offset scaled to the viewport width,
	// so the viewport represents the full beam width at the sensed distance.
	SpanBeam
)

func (m SpanMode) String() string {
	switch m {
	case SpanDistance:
		return "distance"
	case SpanBeam:
		return "beam"
	default:
		return fmt.Sprintf("SpanMode(%d)", int(m))
	}
}

// ParseSpanMode parses the configuration spelling of a SpanMode.
func ParseSpanMode(s string) (SpanMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "distance":
		return SpanDistance, nil
	case "beam":
		return SpanBeam, nil
	default:
		return SpanDistance, fmt.Errorf("unsupported span mode %q: expected distance or beam", s)
	}
}

// Transform bundles the per-process configuration needed to turn a telemetry
// reading into marker positions.
type Transform struct {
	Viewport Viewport
	Beam     BeamConfig
	Mode     SpanMode
}

// Span returns the marker span in pixels for a distance reading.
func (t Transform) Span(distanceMM float64) float64 {
	if t.Mode == SpanBeam {
		return ProjectedOffset(distanceMM, t.Beam) * float64(t.Viewport.Width)
	}
	return distanceMM
}

// Points returns the marker positions for a (distance, tilt) reading.
func (t Transform) Points(distanceMM, tiltDeg float64) Points {
	return Project(t.Span(distanceMM), tiltDeg, t.Viewport)
}
