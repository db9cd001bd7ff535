package core

import "math"

// Command surface of an axis. Setters run outside the tick interrupt and
// write inside critical sections; getters read without one and may mix
// values from two consecutive ticks.

// SetMaxVelocity sets the cruise speed limit in steps/s, clamped to the
// configured bounds. The sign is ignored.
func (a *Axis) SetMaxVelocity(v float64) {
	v = a.clampVelocity(math.Abs(v))

	state := disableInterrupts()
	a.maxVelocity = v
	restoreInterrupts(state)
}

// SetMaxVelocityDeg is SetMaxVelocity in deg/s
func (a *Axis) SetMaxVelocityDeg(v float64) {
	a.SetMaxVelocity(a.degToStepsF(v))
}

// SetAcceleration sets the ramp rate in steps/s^2, clamped to the
// configured bounds. Zero is ignored.
func (a *Axis) SetAcceleration(acc float64) {
	if acc == 0 {
		return
	}
	acc = a.clampAccel(math.Abs(acc))

	state := disableInterrupts()
	a.acceleration = acc
	restoreInterrupts(state)
}

// SetAccelerationDeg is SetAcceleration in deg/s^2
func (a *Axis) SetAccelerationDeg(acc float64) {
	a.SetAcceleration(a.degToStepsF(acc))
}

// SetTargetSteps is MoveToSteps
func (a *Axis) SetTargetSteps(absolute int32) {
	a.MoveToSteps(absolute)
}

// SetTargetDeg is MoveToDeg
func (a *Axis) SetTargetDeg(absolute float64) {
	a.MoveToDeg(absolute)
}

// MoveKind picks how a MoveRequest interprets its target
type MoveKind uint8

const (
	MoveLinear MoveKind = iota // clamped absolute target
	MoveModulo                 // modulo target with a RotaryMode
	MoveRaw                    // unclamped absolute target
)

// MoveRequest carries every field a command frame sets on one axis, in
// degrees. A zero Acceleration is ignored, as in SetAcceleration.
type MoveRequest struct {
	Kind         MoveKind
	Target       float64
	Mode         RotaryMode
	MaxVelocity  float64
	Acceleration float64
	KeepAccel    bool // frame carries no acceleration field
}

// ApplyMove writes target, max velocity and acceleration in one critical
// section so the tick never observes half of a command. Values are
// clamped exactly as the individual setters do. Returns false when a
// modulo move is requested on a linear-only axis; nothing is written then.
func (a *Axis) ApplyMove(req MoveRequest) bool {
	if req.Kind == MoveModulo && a.stepsPerRev <= 0 {
		return false
	}

	var target int32
	if req.Kind == MoveModulo {
		target = a.moduloDegToSteps(req.Target)
	} else {
		target = a.DegToSteps(req.Target)
	}
	vmax := a.clampVelocity(math.Abs(a.degToStepsF(req.MaxVelocity)))
	acc := a.clampAccel(math.Abs(a.degToStepsF(req.Acceleration)))

	state := disableInterrupts()
	switch req.Kind {
	case MoveLinear:
		a.setTarget(a.clampPosition(target))
	case MoveModulo:
		a.setTarget(a.position + ModuloDelta(a.position, target, a.stepsPerRev, req.Mode))
	default:
		a.setTarget(target)
	}
	a.maxVelocity = vmax
	if !req.KeepAccel && req.Acceleration != 0 {
		a.acceleration = acc
	}
	restoreInterrupts(state)
	return true
}

// Stop retargets the axis to the closest point it can decelerate to, so it
// ramps down instead of stopping dead.
func (a *Axis) Stop() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	v := a.velocity
	if v == 0 {
		a.setTarget(a.position)
		return
	}
	stepsToStop := int32(math.Ceil(v * v / (2.0 * a.acceleration)))
	if v > 0 {
		a.setTarget(a.position + stepsToStop)
	} else {
		a.setTarget(a.position - stepsToStop)
	}
}

// Halt stops the axis dead at its current position
func (a *Axis) Halt() {
	state := disableInterrupts()
	a.target = a.position
	a.velocity = 0
	a.accumulator = 0
	restoreInterrupts(state)

	a.backend.Stop()
	RecordTiming(EvtHalt, a.ID, GetTime(), uint32(a.position), 0)
}

// IsRunning reports whether the axis still has motion to perform
func (a *Axis) IsRunning() bool {
	return !(a.position == a.target && a.velocity == 0 && a.accumulator == 0)
}

// PositionSteps returns the unbounded position
func (a *Axis) PositionSteps() int32 { return a.position }

// PositionDeg returns the unbounded position in degrees
func (a *Axis) PositionDeg() float64 { return a.StepsToDeg(float64(a.position)) }

// PositionModuloSteps returns the position folded into one revolution
func (a *Axis) PositionModuloSteps() int32 {
	if a.stepsPerRev <= 0 {
		return a.position
	}
	return Mod(a.position, a.stepsPerRev)
}

// PositionModuloDeg returns the folded position in degrees
func (a *Axis) PositionModuloDeg() float64 {
	return a.StepsToDeg(float64(a.PositionModuloSteps()))
}

// TargetSteps returns the current target
func (a *Axis) TargetSteps() int32 { return a.target }

// TargetDeg returns the current target in degrees
func (a *Axis) TargetDeg() float64 { return a.StepsToDeg(float64(a.target)) }

// Speed returns the signed velocity in steps/s
func (a *Axis) Speed() float64 { return a.velocity }

// SpeedDeg returns the signed velocity in deg/s
func (a *Axis) SpeedDeg() float64 { return a.StepsToDeg(a.velocity) }

// Accumulator returns the fractional step phase
func (a *Axis) Accumulator() float64 { return a.accumulator }

// MaxVelocity returns the speed limit in steps/s
func (a *Axis) MaxVelocity() float64 { return a.maxVelocity }

// MaxVelocityDeg returns the speed limit in deg/s
func (a *Axis) MaxVelocityDeg() float64 { return a.StepsToDeg(a.maxVelocity) }

// Acceleration returns the ramp rate in steps/s^2
func (a *Axis) Acceleration() float64 { return a.acceleration }

// AccelerationDeg returns the ramp rate in deg/s^2
func (a *Axis) AccelerationDeg() float64 { return a.StepsToDeg(a.acceleration) }

// Limits returns the configured bounds in steps
func (a *Axis) Limits() AxisLimits { return a.limits }

// AxisBoundsDeg are the configured bounds in degrees, for the startup report
type AxisBoundsDeg struct {
	MinPosition float64
	MaxPosition float64
	VelocityMin float64
	VelocityMax float64
	AccelMin    float64
	AccelMax    float64
}

// LimitsDeg returns the configured bounds in degrees
func (a *Axis) LimitsDeg() AxisBoundsDeg {
	l := a.limits
	return AxisBoundsDeg{
		MinPosition: a.StepsToDeg(float64(l.MinPosition)),
		MaxPosition: a.StepsToDeg(float64(l.MaxPosition)),
		VelocityMin: a.StepsToDeg(l.VelocityMin),
		VelocityMax: a.StepsToDeg(l.VelocityMax),
		AccelMin:    a.StepsToDeg(l.AccelMin),
		AccelMax:    a.StepsToDeg(l.AccelMax),
	}
}
