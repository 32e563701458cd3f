package serialport

import (
	"bytes"
	"sync"
	"time"
)

// TestableSerialPort implements TimeoutSerialPorter with configurable
// behaviour for testing. Reads on an empty buffer wait for data, Close, or the
// read timeout, whichever comes first; a timed out read returns (0, nil) like
// go.bug.st/serial. A zero ReadTimeout waits indefinitely.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// CloseCalls records the number of Close calls
	CloseCalls int

	// ReadCalls records the number of Read calls
	ReadCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration

	notify chan struct{}
	done   chan struct{}
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Read reads from the read buffer, waiting up to ReadTimeout for data.
func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	t.ReadCalls++

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		t.mu.Unlock()
		return 0, err
	}

	var deadline <-chan time.Time
	if t.ReadTimeout > 0 {
		timer := time.NewTimer(t.ReadTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		if t.Closed {
			t.mu.Unlock()
			return 0, ErrPortClosed
		}
		if t.ReadBuffer.Len() > 0 {
			n, _ := t.ReadBuffer.Read(p)
			t.mu.Unlock()
			return n, nil
		}
		t.mu.Unlock()

		select {
		case <-t.notify:
		case <-t.done:
		case <-deadline:
			return 0, nil
		}
		t.mu.Lock()
	}
}

// Write writes to the write buffer.
func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, ErrPortClosed
	}
	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed and wakes any blocked reader.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.CloseCalls++
	if !t.Closed {
		t.Closed = true
		close(t.done)
	}
	return t.CloseError
}

// IsClosed reports whether Close has been called.
func (t *TestableSerialPort) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Closed
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// SetReadError makes the next Read return err.
func (t *TestableSerialPort) SetReadError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadError = err
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	t.ReadBuffer.Write(data)
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// SimulatedPort replays fixture lines at a fixed interval. It stands in for
// the sensor in dev mode.
type SimulatedPort struct {
	*TestableSerialPort

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// DefaultFixture is replayed when no fixture lines are configured.
var DefaultFixture = []string{"400,45"}

// NewSimulatedPort starts emitting lines, one per interval, cycling through
// them until Close. An empty lines slice uses DefaultFixture.
func NewSimulatedPort(lines []string, interval time.Duration) *SimulatedPort {
	if len(lines) == 0 {
		lines = DefaultFixture
	}
	s := &SimulatedPort{
		TestableSerialPort: NewTestableSerialPort(),
		stop:               make(chan struct{}),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.AddReadData([]byte(lines[i%len(lines)] + "\n"))
			}
		}
	}()

	return s
}

// Close stops the generator and closes the port.
func (s *SimulatedPort) Close() error {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	return s.TestableSerialPort.Close()
}
