package serial

import (
	"errors"
	"io"
)

// StreamPort adapts a reader/writer pair, such as stdin/stdout, to Port
type StreamPort struct {
	r io.Reader
	w io.Writer
}

// NewStreamPort creates a port reading from r and writing to w
func NewStreamPort(r io.Reader, w io.Writer) *StreamPort {
	return &StreamPort{r: r, w: w}
}

func (s *StreamPort) Read(b []byte) (int, error)  { return s.r.Read(b) }
func (s *StreamPort) Write(b []byte) (int, error) { return s.w.Write(b) }
func (s *StreamPort) Flush() error                { return nil }

// Close closes whichever side implements io.Closer
func (s *StreamPort) Close() error {
	var errs []error
	if c, ok := s.r.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := s.w.(io.Closer); ok && any(s.w) != any(s.r) {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Pipe returns two connected in-memory ports. Bytes written to one are read
// from the other.
func Pipe() (Port, Port) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return NewStreamPort(ar, aw), NewStreamPort(br, bw)
}
