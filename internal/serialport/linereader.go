package serialport

import (
	"bytes"
	"errors"
	"io"
)

// MaxLineLength bounds how many bytes are buffered while waiting for a line
// terminator.
const MaxLineLength = 4096

// LineReader splits a serial byte stream into newline-terminated lines. It is
// not safe for concurrent use; the acquisition loop owns it.
type LineReader struct {
	port    SerialPorter
	pending []byte
	chunk   []byte
	eof     bool
}

// NewLineReader wraps port. The port's own read timeout bounds every ReadLine
// call, so the port should be a TimeoutSerialPorter with a timeout set.
func NewLineReader(port SerialPorter) *LineReader {
	return &LineReader{
		port:  port,
		chunk: make([]byte, 256),
	}
}

// ReadLine returns the next line without its "\n" terminator. A trailing "\r"
// is left for the parser to trim. It returns ErrReadTimeout when the port read
// timed out before a full line arrived; bytes received so far are kept for the
// next call. io.EOF and ErrPortClosed mean the transport has gone away.
func (r *LineReader) ReadLine() ([]byte, error) {
	for {
		if i := bytes.IndexByte(r.pending, '\n'); i >= 0 {
			line := make([]byte, i)
			copy(line, r.pending[:i])
			r.pending = append(r.pending[:0], r.pending[i+1:]...)
			return line, nil
		}

		if len(r.pending) > MaxLineLength {
			r.pending = r.pending[:0]
			return nil, ErrLineTooLong
		}

		if r.eof {
			// hand back an unterminated final line once, then report EOF
			if len(r.pending) > 0 {
				line := append([]byte(nil), r.pending...)
				r.pending = r.pending[:0]
				return line, nil
			}
			return nil, io.EOF
		}

		n, err := r.port.Read(r.chunk)
		if n > 0 {
			r.pending = append(r.pending, r.chunk[:n]...)
		}
		switch {
		case errors.Is(err, io.EOF):
			r.eof = true
		case err != nil:
			return nil, translateError(err)
		case n == 0:
			return nil, ErrReadTimeout
		}
	}
}

// Close closes the underlying port.
func (r *LineReader) Close() error {
	return r.port.Close()
}
