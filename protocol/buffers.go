package protocol

import "errors"

// ErrLineOverflow is returned once per command line that does not fit the
// line buffer. The rest of that line is discarded.
var ErrLineOverflow = errors.New("protocol: line too long")

// ErrOutputFull is returned when an outgoing line does not fit
var ErrOutputFull = errors.New("protocol: output buffer full")

// LineBuffer assembles newline terminated command lines from a byte stream.
// '\r' is dropped and empty lines are skipped.
type LineBuffer struct {
	buf        []byte
	n          int
	discarding bool
}

// NewLineBuffer creates a line buffer holding lines of up to capacity-1
// bytes. A non-positive capacity selects LineMax.
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity <= 0 {
		capacity = LineMax
	}
	return &LineBuffer{buf: make([]byte, capacity)}
}

// Feed consumes one byte. It returns the completed line when b ends one;
// the slice is only valid until the next call.
func (l *LineBuffer) Feed(b byte) ([]byte, error) {
	switch b {
	case '\r':
		return nil, nil
	case '\n':
		if l.discarding {
			l.discarding = false
			l.n = 0
			return nil, nil
		}
		if l.n == 0 {
			return nil, nil
		}
		line := l.buf[:l.n]
		l.n = 0
		return line, nil
	}

	if l.discarding {
		return nil, nil
	}
	if l.n >= len(l.buf)-1 {
		l.discarding = true
		l.n = 0
		return nil, ErrLineOverflow
	}
	l.buf[l.n] = b
	l.n++
	return nil, nil
}

// Pending returns the number of bytes of the unfinished line
func (l *LineBuffer) Pending() int {
	return l.n
}

// Capacity returns the buffer size, terminator included
func (l *LineBuffer) Capacity() int {
	return len(l.buf)
}

// Reset drops the unfinished line
func (l *LineBuffer) Reset() {
	l.n = 0
	l.discarding = false
}

// FifoBuffer is a circular byte queue between the USB reader and the main
// loop
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data and returns how many bytes fit
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		next := (f.write + 1) % f.size
		if next == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = next
		written++
	}
	return written
}

// ReadByte removes the oldest byte. ok is false when the queue is empty.
func (f *FifoBuffer) ReadByte() (b byte, ok bool) {
	if f.read == f.write {
		return 0, false
	}
	b = f.buf[f.read]
	f.read = (f.read + 1) % f.size
	return b, true
}

// Available returns the number of bytes queued
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes that can still be written
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}

// OutputBuffer is a fixed-size outgoing byte buffer. Each Write is one
// whole line: it is stored complete or dropped and counted, never cut.
type OutputBuffer struct {
	buf     [OutputMax]byte
	pos     int
	dropped uint32
}

// Write appends data if all of it fits, otherwise returns ErrOutputFull
// and leaves the buffer untouched
func (o *OutputBuffer) Write(data []byte) (int, error) {
	if len(data) > len(o.buf)-o.pos {
		o.dropped++
		return 0, ErrOutputFull
	}
	o.pos += copy(o.buf[o.pos:], data)
	return len(data), nil
}

// Bytes returns the pending output
func (o *OutputBuffer) Bytes() []byte {
	return o.buf[:o.pos]
}

// Len returns the number of pending bytes
func (o *OutputBuffer) Len() int {
	return o.pos
}

// Dropped returns how many writes did not fit since creation
func (o *OutputBuffer) Dropped() uint32 {
	return o.dropped
}

// Reset clears the pending output
func (o *OutputBuffer) Reset() {
	o.pos = 0
}
