// Package serialport wraps the serial link that carries "<distance>,<tilt>"
// telemetry lines. It opens real ports through go.bug.st/serial, turns the byte
// stream into lines with a bounded read timeout, and provides test and
// simulated ports with the same timeout semantics.
package serialport

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrReadTimeout is returned by LineReader.ReadLine when the port's read
	// timeout elapsed before a complete line arrived.
	ErrReadTimeout = errors.New("serial read timed out")
	// ErrPortClosed is returned once the port has been closed.
	ErrPortClosed = errors.New("serial port closed")
	// ErrLineTooLong is returned when more than MaxLineLength bytes arrive
	// without a line terminator. The partial line is discarded.
	ErrLineTooLong = errors.New("serial line too long")
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter is a SerialPorter whose reads return (0, nil) once the
// configured timeout elapses without data, as go.bug.st/serial ports do.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}
