package protocol

import (
	"errors"
	"strconv"
	"strings"
)

var ErrBadReport = errors.New("protocol: malformed report line")

// AxisEcho is the applied state of one axis after a command frame
type AxisEcho struct {
	Running      bool
	Target       float64 // deg
	MaxVelocity  float64 // deg/s
	Acceleration float64 // deg/s^2
}

// AxisStatus is one axis in the periodic status line
type AxisStatus struct {
	Running  bool
	Position float64 // deg, folded to one turn on rotary axes
	Speed    float64 // deg/s
}

// AxisBounds is one axis in the startup report
type AxisBounds struct {
	MinPosition float64
	MaxPosition float64
	VelocityMin float64
	VelocityMax float64
	AccelMin    float64
	AccelMax    float64
}

const (
	echoFields    = 4
	statusFields  = 3
	startupFields = 6
)

// AppendInfo appends an "I:" line
func AppendInfo(dst []byte, msg string) []byte {
	dst = append(dst, PrefixInfo...)
	dst = append(dst, msg...)
	return append(dst, LineEnd...)
}

// AppendEcho appends the echo line sent after a frame is applied
func AppendEcho(dst []byte, axes []AxisEcho) []byte {
	dst = append(dst, PrefixInfo...)
	for i, a := range axes {
		if i > 0 {
			dst = append(dst, Separator)
		}
		dst = appendRun(dst, a.Running)
		dst = appendFixed(dst, a.Target)
		dst = appendFixed(dst, a.MaxVelocity)
		dst = appendFixed(dst, a.Acceleration)
	}
	return append(dst, LineEnd...)
}

// AppendStatus appends the periodic "P:" line
func AppendStatus(dst []byte, axes []AxisStatus) []byte {
	dst = append(dst, PrefixPosition...)
	for i, a := range axes {
		if i > 0 {
			dst = append(dst, Separator)
		}
		dst = appendRun(dst, a.Running)
		dst = appendFixed(dst, a.Position)
		dst = appendFixed(dst, a.Speed)
	}
	return append(dst, LineEnd...)
}

// AppendStartup appends the one-time "S:" bounds report
func AppendStartup(dst []byte, axes []AxisBounds) []byte {
	dst = append(dst, PrefixStartup...)
	for i, a := range axes {
		if i > 0 {
			dst = append(dst, Separator)
		}
		dst = strconv.AppendFloat(dst, a.MinPosition, 'f', 2, 64)
		dst = appendFixed(dst, a.MaxPosition)
		dst = appendFixed(dst, a.VelocityMin)
		dst = appendFixed(dst, a.VelocityMax)
		dst = appendFixed(dst, a.AccelMin)
		dst = appendFixed(dst, a.AccelMax)
	}
	return append(dst, LineEnd...)
}

func appendRun(dst []byte, running bool) []byte {
	if running {
		return append(dst, '1')
	}
	return append(dst, '0')
}

// appendFixed writes ",v" with two decimals
func appendFixed(dst []byte, v float64) []byte {
	dst = append(dst, Separator)
	return strconv.AppendFloat(dst, v, 'f', 2, 64)
}

// LineKind tells report lines apart on the host side
type LineKind uint8

const (
	LineUnknown LineKind = iota
	LineInfo
	LineStatus
	LineStartup
)

// Classify returns the kind of a received line
func Classify(line string) LineKind {
	switch {
	case strings.HasPrefix(line, PrefixInfo):
		return LineInfo
	case strings.HasPrefix(line, PrefixPosition):
		return LineStatus
	case strings.HasPrefix(line, PrefixStartup):
		return LineStartup
	}
	return LineUnknown
}

// InfoText returns the message of an "I:" line
func InfoText(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, PrefixInfo) {
		return "", false
	}
	return line[len(PrefixInfo):], true
}

// ParseEcho decodes an echo line
func ParseEcho(line string) ([]AxisEcho, error) {
	f, err := splitReport(line, PrefixInfo, echoFields)
	if err != nil {
		return nil, err
	}

	axes := make([]AxisEcho, len(f)/echoFields)
	for i := range axes {
		g := f[i*echoFields:]
		run, err := parseRun(g[0])
		if err != nil {
			return nil, err
		}
		axes[i].Running = run
		if axes[i].Target, err = parseStrict(g[1]); err != nil {
			return nil, err
		}
		if axes[i].MaxVelocity, err = parseStrict(g[2]); err != nil {
			return nil, err
		}
		if axes[i].Acceleration, err = parseStrict(g[3]); err != nil {
			return nil, err
		}
	}
	return axes, nil
}

// ParseStatus decodes a "P:" line
func ParseStatus(line string) ([]AxisStatus, error) {
	f, err := splitReport(line, PrefixPosition, statusFields)
	if err != nil {
		return nil, err
	}

	axes := make([]AxisStatus, len(f)/statusFields)
	for i := range axes {
		g := f[i*statusFields:]
		run, err := parseRun(g[0])
		if err != nil {
			return nil, err
		}
		axes[i].Running = run
		if axes[i].Position, err = parseStrict(g[1]); err != nil {
			return nil, err
		}
		if axes[i].Speed, err = parseStrict(g[2]); err != nil {
			return nil, err
		}
	}
	return axes, nil
}

// ParseStartup decodes an "S:" line
func ParseStartup(line string) ([]AxisBounds, error) {
	f, err := splitReport(line, PrefixStartup, startupFields)
	if err != nil {
		return nil, err
	}

	axes := make([]AxisBounds, len(f)/startupFields)
	for i := range axes {
		var v [startupFields]float64
		for j := range v {
			if v[j], err = parseStrict(f[i*startupFields+j]); err != nil {
				return nil, err
			}
		}
		axes[i] = AxisBounds{
			MinPosition: v[0],
			MaxPosition: v[1],
			VelocityMin: v[2],
			VelocityMax: v[3],
			AccelMin:    v[4],
			AccelMax:    v[5],
		}
	}
	return axes, nil
}

func splitReport(line, prefix string, group int) ([]string, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, prefix) {
		return nil, ErrBadReport
	}
	body := line[len(prefix):]
	if body == "" {
		return nil, ErrBadReport
	}
	f := strings.Split(body, string(Separator))
	if len(f)%group != 0 {
		return nil, ErrBadReport
	}
	return f, nil
}

func parseRun(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, ErrBadReport
}

func parseStrict(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrBadReport
	}
	return v, nil
}
