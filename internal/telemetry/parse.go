package telemetry

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Rejection sentinels returned (wrapped) by ParseLine.
var (
	ErrInvalidEncoding = errors.New("line is not valid UTF-8")
	ErrEmptyLine       = errors.New("empty line")
	ErrTooFewFields    = errors.New("expected at least two comma-separated fields")
	ErrNotNumber       = errors.New("field is not a number")
	ErrNotFinite       = errors.New("field is not finite")
)

// RejectionKind groups parse failures by cause.
type RejectionKind int

const (
	// RejectNone means the error is not a parse rejection.
	RejectNone RejectionKind = iota
	// RejectDecode covers raw bytes that are not valid text.
	RejectDecode
	// RejectShape covers empty lines and lines with too few fields.
	RejectShape
	// RejectNumber covers fields that are not finite numbers.
	RejectNumber
)

func (k RejectionKind) String() string {
	switch k {
	case RejectDecode:
		return "decode"
	case RejectShape:
		return "shape"
	case RejectNumber:
		return "number"
	default:
		return "none"
	}
}

// RejectKind classifies an error returned by ParseLine.
func RejectKind(err error) RejectionKind {
	switch {
	case errors.Is(err, ErrInvalidEncoding):
		return RejectDecode
	case errors.Is(err, ErrEmptyLine), errors.Is(err, ErrTooFewFields):
		return RejectShape
	case errors.Is(err, ErrNotNumber), errors.Is(err, ErrNotFinite):
		return RejectNumber
	default:
		return RejectNone
	}
}

// ParseLine parses one "<distance>,<tilt>[,...]" line. Fields beyond the
// second are ignored. Surrounding whitespace, including a trailing "\r", is
// trimmed from the line and from each field. On failure the returned error
// wraps one of the rejection sentinels and the Sample is the zero value.
func ParseLine(raw []byte, now time.Time) (Sample, error) {
	if !utf8.Valid(raw) {
		return Sample{}, ErrInvalidEncoding
	}

	line := string(bytes.TrimSpace(raw))
	if line == "" {
		return Sample{}, ErrEmptyLine
	}

	segments := strings.SplitN(line, ",", 3)
	if len(segments) < 2 {
		return Sample{}, fmt.Errorf("%w: %q", ErrTooFewFields, line)
	}

	distance, err := parseField("distance", segments[0])
	if err != nil {
		return Sample{}, err
	}
	tilt, err := parseField("tilt", segments[1])
	if err != nil {
		return Sample{}, err
	}

	return Sample{DistanceMM: distance, TiltDeg: tilt, CapturedAt: now}, nil
}

func parseField(name, field string) (float64, error) {
	field = strings.TrimSpace(field)
	if isHexFloat(field) {
		return 0, fmt.Errorf("failed to parse %s %q: %w", name, field, ErrNotNumber)
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("failed to parse %s %q: %w", name, field, ErrNotFinite)
		}
		return 0, fmt.Errorf("failed to parse %s %q: %w", name, field, ErrNotNumber)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("failed to parse %s %q: %w", name, field, ErrNotFinite)
	}
	return v, nil
}

// isHexFloat reports whether field uses the 0x float syntax that ParseFloat
// accepts but the sensor never sends.
func isHexFloat(field string) bool {
	if field != "" && (field[0] == '+' || field[0] == '-') {
		field = field[1:]
	}
	return len(field) > 1 && field[0] == '0' && (field[1] == 'x' || field[1] == 'X')
}
