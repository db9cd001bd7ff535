package core

// Per-axis trapezoidal motion engine, advanced once per scheduler tick.

import (
	"errors"
	"math"
)

const (
	// MaxAxes is the number of axes one firmware image can drive
	MaxAxes = 4

	// velocityEpsilon is the speed below which an axis sitting on its
	// target is considered stopped
	velocityEpsilon = 1e-6
)

// Defaults of a freshly created axis
const (
	DefaultStepsPerRev  = 32000
	DefaultTickPeriod   = 480e-6 // 120 ticks at 250kHz
	DefaultMaxVelocity  = 1500.0
	DefaultAcceleration = 8000.0
	DefaultMinPosition  = 0
	DefaultMaxPosition  = 32000
	DefaultVelocityMin  = 1.0
	DefaultVelocityMax  = 4000.0
	DefaultAccelMin     = 100.0
	DefaultAccelMax     = 10000.0
)

var ErrInvalidAxis = errors.New("axis: invalid configuration")

// AxisLimits are the bounds the command surface clamps against
type AxisLimits struct {
	MinPosition int32   // Linear clamp, steps
	MaxPosition int32   // Linear clamp, steps
	VelocityMin float64 // Lower bound for max velocity, steps/s
	VelocityMax float64 // Upper bound for max velocity, steps/s
	AccelMin    float64 // Lower bound for acceleration, steps/s^2
	AccelMax    float64 // Upper bound for acceleration, steps/s^2
}

// DefaultAxisLimits returns the power-on limits
func DefaultAxisLimits() AxisLimits {
	return AxisLimits{
		MinPosition: DefaultMinPosition,
		MaxPosition: DefaultMaxPosition,
		VelocityMin: DefaultVelocityMin,
		VelocityMax: DefaultVelocityMax,
		AccelMin:    DefaultAccelMin,
		AccelMax:    DefaultAccelMax,
	}
}

// AxisConfig is the setup-time description of one axis
type AxisConfig struct {
	StepPin     uint8
	DirPin      uint8
	InvertStep  bool
	InvertDir   bool
	StepsPerRev int32   // 0 for a linear-only axis
	TickPeriod  float64 // seconds between ticks, fixed after setup
	Limits      AxisLimits

	MaxVelocity  float64 // initial, steps/s
	Acceleration float64 // initial, steps/s^2
}

// DefaultAxisConfig returns the power-on configuration
func DefaultAxisConfig() AxisConfig {
	return AxisConfig{
		StepsPerRev:  DefaultStepsPerRev,
		TickPeriod:   DefaultTickPeriod,
		Limits:       DefaultAxisLimits(),
		MaxVelocity:  DefaultMaxVelocity,
		Acceleration: DefaultAcceleration,
	}
}

// Axis is one stepper motor. Position, velocity and accumulator belong to
// the tick routine; target and limits are written by the command surface
// inside critical sections.
type Axis struct {
	ID uint8

	backend StepperBackend

	position    int32
	target      int32
	velocity    float64
	accumulator float64

	maxVelocity  float64
	acceleration float64

	stepsPerRev int32
	tickPeriod  float64
	limits      AxisLimits

	reverse bool // direction output; backends start forward
}

var totalSteps uint32

// GetTotalStepCount returns the number of step edges emitted by all axes
func GetTotalStepCount() uint32 {
	return totalSteps
}

// NewAxis creates an axis at position 0 and initializes its backend
func NewAxis(id uint8, cfg AxisConfig, backend StepperBackend) (*Axis, error) {
	if cfg.TickPeriod <= 0 {
		return nil, ErrInvalidAxis
	}
	if cfg.StepsPerRev < 0 {
		return nil, ErrInvalidAxis
	}
	l := cfg.Limits
	if l.MinPosition > l.MaxPosition || l.VelocityMin > l.VelocityMax ||
		l.AccelMin > l.AccelMax || l.AccelMax <= 0 || l.VelocityMin < 0 || l.AccelMin < 0 {
		return nil, ErrInvalidAxis
	}
	if backend == nil {
		backend = NullBackend{}
	}

	a := &Axis{
		ID:          id,
		backend:     backend,
		stepsPerRev: cfg.StepsPerRev,
		tickPeriod:  cfg.TickPeriod,
		limits:      l,
	}
	a.maxVelocity = a.clampVelocity(math.Abs(cfg.MaxVelocity))
	if cfg.Acceleration == 0 {
		a.acceleration = a.clampAccel(DefaultAcceleration)
	} else {
		a.acceleration = a.clampAccel(math.Abs(cfg.Acceleration))
	}

	if err := backend.Init(cfg.StepPin, cfg.DirPin, cfg.InvertStep, cfg.InvertDir); err != nil {
		return nil, err
	}
	return a, nil
}

// Backend returns the pulse output the axis drives
func (a *Axis) Backend() StepperBackend {
	return a.backend
}

// TickPeriod returns the fixed tick period in seconds
func (a *Axis) TickPeriod() float64 {
	return a.tickPeriod
}

// Tick advances the axis by one tick period. It runs from the axis's
// compare channel interrupt and emits at most one step.
func (a *Axis) Tick() {
	remaining := a.target - a.position
	v := a.velocity

	if remaining == 0 && math.Abs(v) < velocityEpsilon {
		a.velocity = 0
		a.accumulator = 0
		return
	}

	dir := 1.0
	dist := float64(remaining)
	if remaining < 0 {
		dir = -1.0
		dist = -dist
	}

	vPeak := math.Sqrt(2.0 * a.acceleration * dist)
	vTarget := math.Min(a.maxVelocity, vPeak)
	dv := a.acceleration * a.tickPeriod

	if v*dir < 0 {
		// Moving away from the target: slow down only.
		if math.Abs(v) <= dv {
			a.velocity = 0
			a.accumulator = 0
			RecordTiming(EvtReverse, a.ID, GetTime(), uint32(a.position), 0)
		} else if v > 0 {
			a.velocity = v - dv
		} else {
			a.velocity = v + dv
		}
		return
	}

	speed := math.Abs(v)
	if speed < vTarget {
		v += dir * dv
		if math.Abs(v) > vTarget {
			v = dir * vTarget
		}
	} else if speed > vTarget {
		v -= dir * dv
		if v*dir < vTarget {
			v = dir * vTarget
		}
	}
	a.velocity = v

	a.accumulator += v * a.tickPeriod
	if a.accumulator < 1.0 && a.accumulator > -1.0 {
		return
	}

	stepDir := int32(1)
	if a.accumulator < 0 {
		stepDir = -1
	}
	nextPos := a.position + stepDir

	switch {
	case nextPos == a.target:
		a.emit(stepDir)
		a.arrive(0)
	case (stepDir > 0 && nextPos > a.target) || (stepDir < 0 && nextPos < a.target):
		a.arrive(1)
	default:
		a.emit(stepDir)
		a.position = nextPos
		a.accumulator -= float64(stepDir)
	}
}

func (a *Axis) emit(stepDir int32) {
	reverse := stepDir < 0
	if reverse != a.reverse {
		a.reverse = reverse
		a.backend.SetDirection(reverse)
	}
	a.backend.Step()
	totalSteps++
}

func (a *Axis) arrive(hard uint32) {
	a.position = a.target
	a.accumulator = 0
	a.velocity = 0
	RecordTiming(EvtArrive, a.ID, GetTime(), uint32(a.position), hard)
}

func (a *Axis) clampVelocity(v float64) float64 {
	if v < a.limits.VelocityMin {
		return a.limits.VelocityMin
	}
	if v > a.limits.VelocityMax {
		return a.limits.VelocityMax
	}
	return v
}

func (a *Axis) clampAccel(acc float64) float64 {
	if acc < a.limits.AccelMin {
		return a.limits.AccelMin
	}
	if acc > a.limits.AccelMax {
		return a.limits.AccelMax
	}
	return acc
}

func (a *Axis) clampPosition(p int32) int32 {
	if p < a.limits.MinPosition {
		return a.limits.MinPosition
	}
	if p > a.limits.MaxPosition {
		return a.limits.MaxPosition
	}
	return p
}
