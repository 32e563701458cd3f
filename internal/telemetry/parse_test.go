package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseTime = time.Date(2025, time.June, 23, 23, 3, 46, 0, time.UTC)

func TestParseLine_Accepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line         string
		wantDistance float64
		wantTilt     float64
	}{
		{"400,0", 400, 0},
		{"512.25,-3.5", 512.25, -3.5},
		{"400,45\r", 400, 45},
		{"  800 , 12 \n", 800, 12},
		{"1e3,1e-2", 1000, 0.01},
		{"400,10,extra,fields", 400, 10},
		{"-5,370", -5, 370},
		{"0,0", 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLine([]byte(tt.line), parseTime)
			require.NoError(t, err)
			want := Sample{DistanceMM: tt.wantDistance, TiltDeg: tt.wantTilt, CapturedAt: parseTime}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParseLine_RoundTripsFiniteValues(t *testing.T) {
	t.Parallel()

	values := []float64{0, 1, -1, 400, 0.1, 123456.789, -0.000123, math.MaxFloat64, math.SmallestNonzeroFloat64}
	for _, d := range values {
		for _, tilt := range values {
			line := []byte(formatFloat(d) + "," + formatFloat(tilt))
			got, err := ParseLine(line, parseTime)
			require.NoError(t, err, "line %q", line)
			assert.Equal(t, math.Float64bits(d), math.Float64bits(got.DistanceMM), "line %q", line)
			assert.Equal(t, math.Float64bits(tilt), math.Float64bits(got.TiltDeg), "line %q", line)
		}
	}
}

func TestParseLine_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     []byte
		wantErr  error
		wantKind RejectionKind
	}{
		{"empty", []byte(""), ErrEmptyLine, RejectShape},
		{"whitespace only", []byte(" \r"), ErrEmptyLine, RejectShape},
		{"missing comma", []byte("400"), ErrTooFewFields, RejectShape},
		{"non numeric distance", []byte("far,10"), ErrNotNumber, RejectNumber},
		{"non numeric tilt", []byte("400,level"), ErrNotNumber, RejectNumber},
		{"empty tilt", []byte("400,"), ErrNotNumber, RejectNumber},
		{"empty distance", []byte(",10"), ErrNotNumber, RejectNumber},
		{"NaN distance", []byte("NaN,10"), ErrNotFinite, RejectNumber},
		{"infinite tilt", []byte("400,+Inf"), ErrNotFinite, RejectNumber},
		{"overflowing distance", []byte("1e400,0"), ErrNotFinite, RejectNumber},
		{"hex float distance", []byte("0x1p3,2"), ErrNotNumber, RejectNumber},
		{"signed hex float tilt", []byte("400,-0X1.8p1"), ErrNotNumber, RejectNumber},
		{"hex with underscores", []byte("0x_1p3,2"), ErrNotNumber, RejectNumber},
		{"invalid utf-8", []byte{0xff, 0xfe, ',', '1'}, ErrInvalidEncoding, RejectDecode},
		{"truncated utf-8 sequence", []byte("400,1\xe2\x82"), ErrInvalidEncoding, RejectDecode},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLine(tt.line, parseTime)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, RejectKind(err))
			assert.Equal(t, Sample{}, got)
		})
	}
}

func TestRejectKind(t *testing.T) {
	assert.Equal(t, RejectNone, RejectKind(nil))
	assert.Equal(t, RejectNone, RejectKind(assert.AnError))
	assert.Equal(t, "decode", RejectDecode.String())
	assert.Equal(t, "shape", RejectShape.String())
	assert.Equal(t, "number", RejectNumber.String())
	assert.Equal(t, "none", RejectNone.String())
}

func TestParseLine_RejectionLeavesCellUnchanged(t *testing.T) {
	t.Parallel()

	cell := NewCell(DefaultSample())
	for _, line := range []string{"", "400", "abc,1", "NaN,NaN", "\xff,\xfe"} {
		if s, err := ParseLine([]byte(line), parseTime); err == nil {
			cell.Write(s)
		}
	}
	assert.Equal(t, DefaultSample(), cell.Read())
	assert.Zero(t, cell.Writes())
}
