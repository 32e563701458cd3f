// Package units provides the length and angle conversions shared by the
// geometry transform and configuration validation.
package units

import "math"

// MillimetersPerMeter is the scale between the telemetry unit (mm) and SI metres.
const MillimetersPerMeter = 1000.0

// MillimetersToMeters converts a length reported by the sensor into metres.
func MillimetersToMeters(mm float64) float64 {
	return mm / MillimetersPerMeter
}

// MetersToMillimeters converts metres back into the telemetry unit.
func MetersToMillimeters(m float64) float64 {
	return m * MillimetersPerMeter
}

// DegreesToRadians converts an angle in degrees to radians.
func DegreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadiansToDegrees converts an angle in radians to degrees.
func RadiansToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
