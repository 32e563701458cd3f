// Package telemetry turns the serial "<distance>,<tilt>" stream into samples
// and hands the most recent one to the render loop.
//
// The acquisition side (Acquirer) and the render side meet only at a Cell, a
// single-slot holder that always yields a complete sample.
package telemetry

import (
	"fmt"
	"time"
)

// Default reading used before the first valid line arrives.
const (
	DefaultDistanceMM = 400.0
	DefaultTiltDeg    = 0.0
)

// Sample is one (distance, tilt) measurement. It is a value type; copies never
// alias one another.
type Sample struct {
	DistanceMM float64
	TiltDeg    float64
	// CapturedAt is when the line was parsed. It is zero for DefaultSample.
	CapturedAt time.Time
}

// DefaultSample returns the reading shown until telemetry arrives.
func DefaultSample() Sample {
	return Sample{DistanceMM: DefaultDistanceMM, TiltDeg: DefaultTiltDeg}
}

func (s Sample) String() string {
	return fmt.Sprintf("distance=%.1fmm tilt=%.2f°", s.DistanceMM, s.TiltDeg)
}
