package protocol

import (
	"errors"
	"strconv"
)

var (
	ErrMalformedFrame = errors.New("protocol: wrong number of fields")
	ErrUnknownShape   = errors.New("protocol: unknown frame shape")
)

// FrameShape is the field layout a command channel accepts
type FrameShape uint8

const (
	// ShapeSingle: linear target, linear max speed
	ShapeSingle FrameShape = iota
	// ShapeDual: linear target, linear max speed, rotary target,
	// rotary max speed, rotary mode
	ShapeDual
	// ShapeDualAccel: linear target, linear max speed, linear accel,
	// rotary target, rotary max speed, rotary mode, rotary accel
	ShapeDualAccel
)

// Fields returns the exact field count of the shape
func (s FrameShape) Fields() int {
	switch s {
	case ShapeSingle:
		return 2
	case ShapeDual:
		return 5
	case ShapeDualAccel:
		return 7
	}
	return 0
}

// Axes returns how many axes one frame commands
func (s FrameShape) Axes() int {
	if s == ShapeSingle {
		return 1
	}
	return 2
}

func (s FrameShape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeDual:
		return "dual"
	case ShapeDualAccel:
		return "dual_accel"
	}
	return "unknown"
}

// ParseShape maps a configuration name to a shape. The empty name selects
// ShapeDualAccel.
func ParseShape(name string) (FrameShape, error) {
	switch name {
	case "", "dual_accel":
		return ShapeDualAccel, nil
	case "dual":
		return ShapeDual, nil
	case "single":
		return ShapeSingle, nil
	}
	return 0, ErrUnknownShape
}

// AxisFields are the values one frame carries for one axis, in degrees
type AxisFields struct {
	Target       float64
	MaxVelocity  float64
	Acceleration float64
	HasAccel     bool
	Mode         int32 // rotary axis only, unvalidated
}

// Frame is one decoded command line
type Frame struct {
	Shape  FrameShape
	Linear AxisFields
	Rotary AxisFields
}

// ParseFrame decodes a command line of the given shape. The field count
// must match exactly; individual fields never fail (see ParseNumber).
func ParseFrame(line []byte, shape FrameShape) (Frame, error) {
	want := shape.Fields()
	if want == 0 {
		return Frame{}, ErrUnknownShape
	}

	count := 1
	for _, b := range line {
		if b == Separator {
			count++
		}
	}
	if count != want {
		return Frame{}, ErrMalformedFrame
	}

	var v [7]float64
	i, start := 0, 0
	for pos := 0; pos <= len(line); pos++ {
		if pos == len(line) || line[pos] == Separator {
			v[i] = ParseNumber(line[start:pos])
			i++
			start = pos + 1
		}
	}

	f := Frame{Shape: shape}
	f.Linear.Target = v[0]
	f.Linear.MaxVelocity = v[1]

	switch shape {
	case ShapeDual:
		f.Rotary.Target = v[2]
		f.Rotary.MaxVelocity = v[3]
		f.Rotary.Mode = int32(v[4])
	case ShapeDualAccel:
		f.Linear.Acceleration = v[2]
		f.Linear.HasAccel = true
		f.Rotary.Target = v[3]
		f.Rotary.MaxVelocity = v[4]
		f.Rotary.Mode = int32(v[5])
		f.Rotary.Acceleration = v[6]
		f.Rotary.HasAccel = true
	}
	return f, nil
}

// ParseNumber reads the longest numeric prefix of field, after leading
// blanks. Anything that does not start with a number parses as 0.
func ParseNumber(field []byte) float64 {
	i := 0
	for i < len(field) && (field[i] == ' ' || field[i] == '\t') {
		i++
	}
	start := i
	if i < len(field) && (field[i] == '+' || field[i] == '-') {
		i++
	}

	digits := 0
	for i < len(field) && isDigit(field[i]) {
		i++
		digits++
	}
	if i < len(field) && field[i] == '.' {
		i++
		for i < len(field) && isDigit(field[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}

	// Exponent only counts when digits follow
	if i < len(field) && (field[i] == 'e' || field[i] == 'E') {
		j := i + 1
		if j < len(field) && (field[j] == '+' || field[j] == '-') {
			j++
		}
		if j < len(field) && isDigit(field[j]) {
			for j < len(field) && isDigit(field[j]) {
				j++
			}
			i = j
		}
	}

	// The prefix is well formed; only overflow errors, with v = +-Inf
	v, _ := strconv.ParseFloat(string(field[start:i]), 64)
	return v
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// FormatFrame builds the command line for f, without terminator
func FormatFrame(f Frame) string {
	b := make([]byte, 0, LineMax)
	b = appendNumber(b, f.Linear.Target)
	b = append(b, Separator)
	b = appendNumber(b, f.Linear.MaxVelocity)

	switch f.Shape {
	case ShapeDual:
		b = append(b, Separator)
		b = appendNumber(b, f.Rotary.Target)
		b = append(b, Separator)
		b = appendNumber(b, f.Rotary.MaxVelocity)
		b = append(b, Separator)
		b = strconv.AppendInt(b, int64(f.Rotary.Mode), 10)
	case ShapeDualAccel:
		b = append(b, Separator)
		b = appendNumber(b, f.Linear.Acceleration)
		b = append(b, Separator)
		b = appendNumber(b, f.Rotary.Target)
		b = append(b, Separator)
		b = appendNumber(b, f.Rotary.MaxVelocity)
		b = append(b, Separator)
		b = strconv.AppendInt(b, int64(f.Rotary.Mode), 10)
		b = append(b, Separator)
		b = appendNumber(b, f.Rotary.Acceleration)
	}
	return string(b)
}

func appendNumber(b []byte, v float64) []byte {
	return strconv.AppendFloat(b, v, 'f', -1, 64)
}
