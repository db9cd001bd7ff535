// Package link is the host side of the motorhead line protocol: it sends
// command frames and decodes the board's info, echo, status and startup
// lines.
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"motorhead/host/logger"
	"motorhead/host/serial"
	"motorhead/protocol"
)

var ErrClosed = errors.New("link: closed")

// Event is one decoded line from the board
type Event struct {
	Kind   protocol.LineKind
	Raw    string
	Info   string                // info text, set when the line is not an echo
	Echo   []protocol.AxisEcho   // set for echo lines
	Status []protocol.AxisStatus // set for status lines
	Bounds []protocol.AxisBounds // set for startup reports
}

// IsEcho reports whether the event is the echo of an applied frame
func (e Event) IsEcho() bool {
	return e.Echo != nil
}

// Link is a connection to one board
type Link struct {
	port   serial.Port
	events chan Event

	writeMu sync.Mutex

	mu      sync.Mutex
	status  []protocol.AxisStatus
	bounds  []protocol.AxisBounds
	dropped int
	closed  bool

	ready     chan struct{}
	readyOnce sync.Once
}

// New wraps a port. Call Run to start decoding.
func New(port serial.Port) *Link {
	return &Link{
		port:   port,
		events: make(chan Event, 64),
		ready:  make(chan struct{}),
	}
}

// Dial opens a serial device and wraps it
func Dial(device string, baud int) (*Link, error) {
	cfg := serial.DefaultConfig(device)
	if baud > 0 {
		cfg.Baud = baud
	}
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(port), nil
}

// Events delivers decoded lines. It is closed when Run returns. Events are
// dropped rather than blocking the reader when nobody drains the channel.
func (l *Link) Events() <-chan Event {
	return l.events
}

// Run reads and decodes lines until the port is closed or ctx is done
func (l *Link) Run(ctx context.Context) error {
	defer close(l.events)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(l.port)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		l.dispatch(decode(line))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil && !l.isClosed() {
		return fmt.Errorf("link: read: %w", err)
	}
	return nil
}

func decode(line string) Event {
	ev := Event{Kind: protocol.Classify(line), Raw: line}

	var err error
	switch ev.Kind {
	case protocol.LineInfo:
		if echo, e := protocol.ParseEcho(line); e == nil {
			ev.Echo = echo
		} else {
			ev.Info, _ = protocol.InfoText(line)
		}
	case protocol.LineStatus:
		ev.Status, err = protocol.ParseStatus(line)
	case protocol.LineStartup:
		ev.Bounds, err = protocol.ParseStartup(line)
	}
	if err != nil {
		logger.Warnf("link: undecodable line %q: %v", line, err)
		ev.Kind = protocol.LineUnknown
	}
	return ev
}

func (l *Link) dispatch(ev Event) {
	l.mu.Lock()
	switch {
	case ev.Status != nil:
		l.status = ev.Status
	case ev.Bounds != nil:
		l.bounds = ev.Bounds
		l.readyOnce.Do(func() { close(l.ready) })
	}
	l.mu.Unlock()

	select {
	case l.events <- ev:
	default:
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
	}
}

// WaitReady blocks until the startup report arrives and returns the axis
// bounds it carried
func (l *Link) WaitReady(ctx context.Context) ([]protocol.AxisBounds, error) {
	select {
	case <-l.ready:
		return l.Bounds(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("link: waiting for startup report: %w", ctx.Err())
	}
}

// Send writes one command frame
func (l *Link) Send(f protocol.Frame) error {
	return l.SendLine(protocol.FormatFrame(f))
}

// SendLine writes raw text followed by a newline
func (l *Link) SendLine(s string) error {
	if l.isClosed() {
		return ErrClosed
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if _, err := l.port.Write([]byte(s + "\n")); err != nil {
		return fmt.Errorf("link: write: %w", err)
	}
	logger.Debugf("link: sent %q", s)
	return nil
}

// LastStatus returns the most recent status line, if any arrived
func (l *Link) LastStatus() ([]protocol.AxisStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, l.status != nil
}

// Bounds returns the axis bounds from the startup report
func (l *Link) Bounds() []protocol.AxisBounds {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bounds
}

// Dropped returns how many events were discarded because the channel was
// full
func (l *Link) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close closes the port. It is safe to call more than once.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.port.Close()
}

func (l *Link) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
