package serialport

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.bug.st/serial"
)

// Opener opens a port at path. Open is the production implementation; the
// binary swaps in a simulated port for dev mode.
type Opener func(path string, opts PortOptions, readTimeout time.Duration) (TimeoutSerialPorter, error)

// Open opens a real serial port at path and applies readTimeout so that reads
// return periodically even when the device is silent.
func Open(path string, opts PortOptions, readTimeout time.Duration) (TimeoutSerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
		}
	}
	return port, nil
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}

// translateError maps driver specific "port is closed" errors onto
// ErrPortClosed so callers can treat closure as terminal.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %v", ErrPortClosed, err)
	}
	if errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrPortClosed, err)
	}
	return err
}
