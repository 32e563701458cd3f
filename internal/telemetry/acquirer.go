package telemetry

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/beamcross/internal/monitoring"
	"github.com/banshee-data/beamcross/internal/serialport"
	"github.com/banshee-data/beamcross/internal/timeutil"
)

// DefaultRetryInterval is how long the acquirer waits after a transport error
// before reading again.
const DefaultRetryInterval = 200 * time.Millisecond

// LineSource yields telemetry lines. ReadLine must return within a bounded
// time: serialport.ErrReadTimeout when nothing complete arrived, io.EOF or
// serialport.ErrPortClosed when the transport is gone.
type LineSource interface {
	ReadLine() ([]byte, error)
	Close() error
}

// AcquisitionStats counts what the acquisition loop has seen.
type AcquisitionStats struct {
	Lines          uint64
	Accepted       uint64
	RejectedDecode uint64
	RejectedShape  uint64
	RejectedNumber uint64
	Timeouts       uint64
	ReadErrors     uint64
}

// Rejected is the total number of lines that did not produce a sample.
func (s AcquisitionStats) Rejected() uint64 {
	return s.RejectedDecode + s.RejectedShape + s.RejectedNumber
}

// Acquirer reads lines from a LineSource, parses them and writes accepted
// samples into a Cell. It owns the source and closes it when Run returns.
type Acquirer struct {
	src           LineSource
	cell          *Cell
	clock         timeutil.Clock
	retryInterval time.Duration
	session       string

	lines          atomic.Uint64
	accepted       atomic.Uint64
	rejectedDecode atomic.Uint64
	rejectedShape  atomic.Uint64
	rejectedNumber atomic.Uint64
	timeouts       atomic.Uint64
	readErrors     atomic.Uint64
}

// AcquirerOption configures an Acquirer.
type AcquirerOption func(*Acquirer)

// WithClock sets the clock used for sample timestamps and retry waits.
func WithClock(c timeutil.Clock) AcquirerOption {
	return func(a *Acquirer) { a.clock = c }
}

// WithRetryInterval sets the pause after a transport read error.
func WithRetryInterval(d time.Duration) AcquirerOption {
	return func(a *Acquirer) { a.retryInterval = d }
}

// NewAcquirer creates an Acquirer feeding cell from src.
func NewAcquirer(src LineSource, cell *Cell, opts ...AcquirerOption) *Acquirer {
	a := &Acquirer{
		src:           src,
		cell:          cell,
		clock:         timeutil.RealClock{},
		retryInterval: DefaultRetryInterval,
		session:       uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Session identifies this acquisition run in log output.
func (a *Acquirer) Session() string {
	return a.session
}

// Run reads until ctx is cancelled or the transport closes. Malformed lines,
// read timeouts and transient read errors never end the loop. The source is
// closed before Run returns. Cancellation and transport closure both return
// nil.
func (a *Acquirer) Run(ctx context.Context) error {
	monitoring.Logf("acquisition %s started", a.session)
	defer func() {
		if err := a.src.Close(); err != nil {
			monitoring.Logf("acquisition %s: failed to close transport: %v", a.session, err)
		}
		s := a.Stats()
		monitoring.Logf("acquisition %s stopped: lines=%d accepted=%d rejected=%d timeouts=%d read_errors=%d",
			a.session, s.Lines, s.Accepted, s.Rejected(), s.Timeouts, s.ReadErrors)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := a.src.ReadLine()
		switch {
		case err == nil:
			a.handleLine(line)

		case errors.Is(err, serialport.ErrReadTimeout):
			a.timeouts.Add(1)

		case errors.Is(err, serialport.ErrLineTooLong):
			a.lines.Add(1)
			a.rejectedShape.Add(1)
			monitoring.Debugf("acquisition %s: dropped oversized line", a.session)

		case errors.Is(err, io.EOF), errors.Is(err, serialport.ErrPortClosed):
			monitoring.Logf("acquisition %s: transport closed: %v", a.session, err)
			return nil

		default:
			a.readErrors.Add(1)
			monitoring.Logf("acquisition %s: read error: %v", a.session, err)
			select {
			case <-ctx.Done():
				return nil
			case <-a.clock.After(a.retryInterval):
			}
		}
	}
}

func (a *Acquirer) handleLine(line []byte) {
	a.lines.Add(1)

	sample, err := ParseLine(line, a.clock.Now())
	if err != nil {
		switch RejectKind(err) {
		case RejectDecode:
			a.rejectedDecode.Add(1)
		case RejectShape:
			a.rejectedShape.Add(1)
		default:
			a.rejectedNumber.Add(1)
		}
		monitoring.Debugf("acquisition %s: rejected line %q: %v", a.session, line, err)
		return
	}

	a.cell.Write(sample)
	a.accepted.Add(1)
	monitoring.Debugf("acquisition %s: %s", a.session, sample)
}

// Stats returns a snapshot of the loop counters.
func (a *Acquirer) Stats() AcquisitionStats {
	return AcquisitionStats{
		Lines:          a.lines.Load(),
		Accepted:       a.accepted.Load(),
		RejectedDecode: a.rejectedDecode.Load(),
		RejectedShape:  a.rejectedShape.Load(),
		RejectedNumber: a.rejectedNumber.Load(),
		Timeouts:       a.timeouts.Load(),
		ReadErrors:     a.readErrors.Load(),
	}
}
