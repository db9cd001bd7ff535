package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/shlex"

	"motorhead/host/link"
	"motorhead/protocol"
)

// board is the part of link.Link the REPL drives
type board interface {
	Send(f protocol.Frame) error
	SendLine(s string) error
	LastStatus() ([]protocol.AxisStatus, bool)
	Bounds() []protocol.AxisBounds
}

type repl struct {
	b     board
	watch atomic.Bool

	mu  sync.Mutex // serializes writes to out
	out io.Writer
}

func newREPL(b board, out io.Writer) *repl {
	return &repl{b: b, out: out}
}

func (r *repl) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// exec runs one input line and reports whether the session should end
func (r *repl) exec(line string) bool {
	args, err := shlex.Split(line)
	if err != nil {
		r.printf("Error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "quit", "exit", "q":
		return true

	case "help", "?":
		r.printHelp()

	case "move", "m":
		f, err := buildFrame(args[1:])
		if err != nil {
			r.printf("Error: %v\n", err)
			return false
		}
		if err := r.b.Send(f); err != nil {
			r.printf("Error: %v\n", err)
		}

	case "raw":
		if len(args) != 2 {
			r.printf("usage: raw <line>\n")
			return false
		}
		if err := r.b.SendLine(args[1]); err != nil {
			r.printf("Error: %v\n", err)
		}

	case "status":
		status, ok := r.b.LastStatus()
		if !ok {
			r.printf("no status received yet\n")
			return false
		}
		r.printStatus(status)

	case "bounds":
		r.printBounds(r.b.Bounds())

	case "watch":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			r.printf("usage: watch on|off\n")
			return false
		}
		r.watch.Store(args[1] == "on")

	default:
		r.printf("Unknown command: %s (type 'help' for available commands)\n", args[0])
	}
	return false
}

// buildFrame picks the frame shape from the number of values:
// 2 single, 5 dual, 7 dual with acceleration
func buildFrame(values []string) (protocol.Frame, error) {
	var shape protocol.FrameShape
	switch len(values) {
	case protocol.ShapeSingle.Fields():
		shape = protocol.ShapeSingle
	case protocol.ShapeDual.Fields():
		shape = protocol.ShapeDual
	case protocol.ShapeDualAccel.Fields():
		shape = protocol.ShapeDualAccel
	default:
		return protocol.Frame{}, fmt.Errorf("move takes 2, 5 or 7 values, got %d", len(values))
	}
	return protocol.ParseFrame([]byte(strings.Join(values, ",")), shape)
}

// printEvents reports info lines and, when watching, status lines
func (r *repl) printEvents(events <-chan link.Event) {
	for ev := range events {
		switch {
		case ev.IsEcho():
			r.printf("applied:\n")
			for i, e := range ev.Echo {
				r.printf("  axis %d: target %.2f  vmax %.2f  accel %.2f  running %v\n",
					i, e.Target, e.MaxVelocity, e.Acceleration, e.Running)
			}
		case ev.Kind == protocol.LineInfo:
			r.printf("board: %s\n", ev.Info)
		case ev.Kind == protocol.LineStatus:
			if r.watch.Load() {
				r.printStatus(ev.Status)
			}
		case ev.Kind == protocol.LineUnknown:
			r.printf("board: %s\n", ev.Raw)
		}
	}
}

func (r *repl) printStatus(status []protocol.AxisStatus) {
	for i, s := range status {
		r.printf("axis %d: pos %8.2f deg  speed %8.2f deg/s  running %v\n", i, s.Position, s.Speed, s.Running)
	}
}

func (r *repl) printBounds(bounds []protocol.AxisBounds) {
	for i, b := range bounds {
		r.printf("axis %d: position [%.2f, %.2f]  velocity [%.2f, %.2f]  accel [%.2f, %.2f]\n",
			i, b.MinPosition, b.MaxPosition, b.VelocityMin, b.VelocityMax, b.AccelMin, b.AccelMax)
	}
}

func (r *repl) printHelp() {
	r.printf(`
Available commands:
  move <values>  - Send a frame: 2 (target,vmax), 5 (two axes + rotary mode)
                   or 7 values (with accelerations)
  raw "<line>"   - Send a raw line
  status         - Print the last status line
  bounds         - Print the axis bounds from the startup report
  watch on|off   - Print status lines as they arrive
  quit/exit/q    - Exit the program

`)
}
