package config

import (
	"errors"
	"strconv"

	"motorhead/core"
	"motorhead/protocol"
)

const (
	// DefaultStatusIntervalMS is the period of the unsolicited status line
	DefaultStatusIntervalMS = 100

	// DefaultTickPeriodUS is 120 counter ticks at 250kHz
	DefaultTickPeriodUS = 480
)

// Step backends an axis can use
const (
	BackendGPIO = "gpio"
	BackendPIO  = "pio"
	BackendNull = "none"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// FieldError names the configuration field that failed validation
type FieldError struct {
	Axis   int // -1 for head level fields
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	msg := "config: invalid " + e.Field
	if e.Axis >= 0 {
		msg = "config: axis " + strconv.Itoa(e.Axis) + ": invalid " + e.Field
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidConfig
}

// AxisConfig describes one axis. Positions are in steps, speeds in
// steps/s and accelerations in steps/s^2.
type AxisConfig struct {
	Name         string  `json:"name"`
	StepPin      uint8   `json:"step_pin"`
	DirPin       uint8   `json:"dir_pin"`
	InvertStep   bool    `json:"invert_step"`
	InvertDir    bool    `json:"invert_dir"`
	Backend      string  `json:"backend"` // "gpio", "pio" or "none"
	Rotary       bool    `json:"rotary"`  // modulo status and renormalization at rest
	StepsPerRev  int32   `json:"steps_per_rev"`
	TickPeriodUS float64 `json:"tick_period_us"`

	MinPosition int32   `json:"min_position"`
	MaxPosition int32   `json:"max_position"`
	VelocityMin float64 `json:"velocity_min"`
	VelocityMax float64 `json:"velocity_max"`
	AccelMin    float64 `json:"accel_min"`
	AccelMax    float64 `json:"accel_max"`

	MaxVelocity  float64 `json:"max_velocity"` // initial
	Acceleration float64 `json:"acceleration"` // initial
}

// Core converts the axis description to the motion engine configuration
func (a AxisConfig) Core() core.AxisConfig {
	return core.AxisConfig{
		StepPin:     a.StepPin,
		DirPin:      a.DirPin,
		InvertStep:  a.InvertStep,
		InvertDir:   a.InvertDir,
		StepsPerRev: a.StepsPerRev,
		TickPeriod:  a.TickPeriodUS / 1e6,
		Limits: core.AxisLimits{
			MinPosition: a.MinPosition,
			MaxPosition: a.MaxPosition,
			VelocityMin: a.VelocityMin,
			VelocityMax: a.VelocityMax,
			AccelMin:    a.AccelMin,
			AccelMax:    a.AccelMax,
		},
		MaxVelocity:  a.MaxVelocity,
		Acceleration: a.Acceleration,
	}
}

// HeadConfig is the complete firmware configuration
type HeadConfig struct {
	Frame            string       `json:"frame"` // "single", "dual" or "dual_accel"
	ClockHz          uint32       `json:"clock_hz"`
	StatusIntervalMS uint32       `json:"status_interval_ms"`
	LineBuffer       int          `json:"line_buffer"`
	Axes             []AxisConfig `json:"axes"`
}

// Shape returns the configured frame shape
func (c *HeadConfig) Shape() (protocol.FrameShape, error) {
	return protocol.ParseShape(c.Frame)
}

// Clock returns the configured counter rate
func (c *HeadConfig) Clock() core.ClockFrequency {
	return core.ClockFrequency(c.ClockHz)
}
