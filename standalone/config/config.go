package config

import (
	"encoding/json"
	"strconv"

	"motorhead/core"
	"motorhead/protocol"
)

// LoadConfig parses a JSON head configuration, fills in defaults and
// validates the result
func LoadConfig(jsonData []byte) (*HeadConfig, error) {
	var config HeadConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *HeadConfig) {
	if config.Frame == "" {
		config.Frame = protocol.ShapeDualAccel.String()
	}
	if config.ClockHz == 0 {
		config.ClockHz = uint32(core.DefaultClock)
	}
	if config.StatusIntervalMS == 0 {
		config.StatusIntervalMS = DefaultStatusIntervalMS
	}
	if config.LineBuffer == 0 {
		config.LineBuffer = protocol.LineMax
	}

	for i := range config.Axes {
		axis := &config.Axes[i]
		if axis.TickPeriodUS == 0 {
			axis.TickPeriodUS = DefaultTickPeriodUS
		}
		if axis.StepsPerRev == 0 && axis.Rotary {
			axis.StepsPerRev = core.DefaultStepsPerRev
		}
		if axis.MinPosition == 0 && axis.MaxPosition == 0 {
			axis.MinPosition = core.DefaultMinPosition
			axis.MaxPosition = core.DefaultMaxPosition
		}
		if axis.VelocityMin == 0 {
			axis.VelocityMin = core.DefaultVelocityMin
		}
		if axis.VelocityMax == 0 {
			axis.VelocityMax = core.DefaultVelocityMax
		}
		if axis.AccelMin == 0 {
			axis.AccelMin = core.DefaultAccelMin
		}
		if axis.AccelMax == 0 {
			axis.AccelMax = core.DefaultAccelMax
		}
		if axis.MaxVelocity == 0 {
			axis.MaxVelocity = core.DefaultMaxVelocity
		}
		if axis.Acceleration == 0 {
			axis.Acceleration = core.DefaultAcceleration
		}
		if axis.Backend == "" {
			axis.Backend = BackendGPIO
		}
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c *HeadConfig) Validate() error {
	shape, err := protocol.ParseShape(c.Frame)
	if err != nil {
		return &FieldError{Axis: -1, Field: "frame"}
	}
	if !core.ClockFrequency(c.ClockHz).Valid() {
		return &FieldError{Axis: -1, Field: "clock_hz"}
	}
	if c.LineBuffer < 8 {
		return &FieldError{Axis: -1, Field: "line_buffer"}
	}
	if len(c.Axes) == 0 || len(c.Axes) > core.MaxAxes {
		return &FieldError{Axis: -1, Field: "axes"}
	}
	if len(c.Axes) < shape.Axes() {
		return &FieldError{Axis: -1, Field: "axes", Reason: "fewer axes than the frame commands"}
	}

	freq := core.ClockFrequency(c.ClockHz)
	for i, axis := range c.Axes {
		switch {
		case axis.StepsPerRev < 0:
			return &FieldError{Axis: i, Field: "steps_per_rev"}
		case axis.Rotary && axis.StepsPerRev == 0:
			return &FieldError{Axis: i, Field: "steps_per_rev", Reason: "rotary axis needs steps per revolution"}
		case axis.TickPeriodUS <= 0 || core.PeriodTicks(axis.TickPeriodUS/1e6, freq) == 0:
			return &FieldError{Axis: i, Field: "tick_period_us"}
		case axis.MinPosition > axis.MaxPosition:
			return &FieldError{Axis: i, Field: "max_position"}
		case axis.VelocityMin < 0 || axis.VelocityMin > axis.VelocityMax:
			return &FieldError{Axis: i, Field: "velocity_max"}
		case axis.AccelMin < 0 || axis.AccelMax <= 0 || axis.AccelMin > axis.AccelMax:
			return &FieldError{Axis: i, Field: "accel_max"}
		case axis.Backend != BackendGPIO && axis.Backend != BackendPIO && axis.Backend != BackendNull:
			return &FieldError{Axis: i, Field: "backend"}
		}
		for j := 0; j < i; j++ {
			other := c.Axes[j]
			if axis.Backend != BackendNull && other.Backend != BackendNull &&
				(axis.StepPin == other.StepPin || axis.StepPin == other.DirPin ||
					axis.DirPin == other.StepPin || axis.DirPin == other.DirPin) {
				return &FieldError{Axis: i, Field: "step_pin", Reason: "pin shared with axis " + strconv.Itoa(j)}
			}
		}
	}
	return nil
}

// DefaultHeadConfig returns the two axis pan/rotary head: a clamped pan
// axis on gpio2/3 and a free rotary axis on gpio4/5
func DefaultHeadConfig() *HeadConfig {
	config := &HeadConfig{
		Frame: protocol.ShapeDualAccel.String(),
		Axes: []AxisConfig{
			{
				Name:        "pan",
				StepPin:     2,
				DirPin:      3,
				StepsPerRev: core.DefaultStepsPerRev,
			},
			{
				Name:        "rotary",
				StepPin:     4,
				DirPin:      5,
				Rotary:      true,
				StepsPerRev: core.DefaultStepsPerRev,
			},
		},
	}
	applyDefaults(config)
	return config
}
