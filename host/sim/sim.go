// Package sim runs the firmware manager on the host against a virtual
// counter, with a serial.Port as its command channel.
package sim

import (
	"context"
	"fmt"
	"time"

	"motorhead/core"
	"motorhead/host/logger"
	"motorhead/host/serial"
	"motorhead/standalone"
)

// Options tune the simulation loop
type Options struct {
	// StepUS is the virtual time advanced per loop iteration
	StepUS uint32

	// Speed is virtual seconds per real second; 0 runs unthrottled
	Speed float64

	// ExitOnEOF ends Run once the input is closed and every axis is at
	// rest
	ExitOnEOF bool
}

// DefaultOptions runs in real time with 1ms of virtual time per iteration
func DefaultOptions() Options {
	return Options{StepUS: 1000, Speed: 1}
}

// Sim drives one manager. Only one Sim may run at a time: the counter and
// software compare list are process globals.
type Sim struct {
	m     *standalone.Manager
	port  serial.Port
	opts  Options
	step  uint32
	input chan []byte
	done  chan struct{}
}

// New creates a simulator around an initialized manager
func New(m *standalone.Manager, port serial.Port, opts Options) *Sim {
	if opts.StepUS == 0 {
		opts.StepUS = DefaultOptions().StepUS
	}
	return &Sim{
		m:     m,
		port:  port,
		opts:  opts,
		step:  core.TicksFromUS(opts.StepUS, m.Scheduler().Frequency()),
		input: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

// Advance moves the virtual counter forward by ticks, firing every compare
// match due on the way in order
func Advance(ticks uint32) {
	end := core.GetTime() + ticks
	for {
		wake, ok := core.NextWakeTime()
		if !ok || int32(end-wake) < 0 {
			break
		}
		core.SetTime(wake)
		core.ProcessTimers()
	}
	core.SetTime(end)
}

// Run starts the manager and loops until ctx is done, the port fails, or
// the input ends with ExitOnEOF set
func (s *Sim) Run(ctx context.Context) error {
	if err := s.m.Start(); err != nil {
		return fmt.Errorf("sim: start: %w", err)
	}
	defer s.m.Shutdown()
	defer close(s.done)
	if err := s.flush(); err != nil {
		return err
	}

	go s.readLoop()

	var tick <-chan time.Time
	if s.opts.Speed > 0 {
		period := time.Duration(float64(s.opts.StepUS) / s.opts.Speed * float64(time.Microsecond))
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	eof := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		eof = s.drainInput() || eof

		Advance(s.step)
		s.m.Poll()
		if err := s.flush(); err != nil {
			return err
		}

		if eof && s.opts.ExitOnEOF && s.idle() {
			return nil
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
}

// readLoop copies port input into the loop goroutine. The channel is closed
// at EOF.
func (s *Sim) readLoop() {
	defer close(s.input)
	buf := make([]byte, 256)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case s.input <- data:
			case <-s.done:
				return
			}
		}
		if err != nil {
			logger.Debugf("sim: input closed: %v", err)
			return
		}
	}
}

// drainInput feeds everything received so far to the manager. It reports
// whether the input has ended.
func (s *Sim) drainInput() bool {
	for {
		select {
		case data, ok := <-s.input:
			if !ok {
				return true
			}
			for _, b := range data {
				if err := s.m.ProcessByte(b); err != nil {
					logger.Debugf("sim: rejected input: %v", err)
				}
			}
		default:
			return false
		}
	}
}

func (s *Sim) flush() error {
	out := s.m.GetOutput()
	if len(out) == 0 {
		return nil
	}
	if _, err := s.port.Write(out); err != nil {
		return fmt.Errorf("sim: write: %w", err)
	}
	return nil
}

func (s *Sim) idle() bool {
	for i := 0; i < s.m.AxisCount(); i++ {
		if s.m.Axis(i).IsRunning() {
			return false
		}
	}
	return true
}
