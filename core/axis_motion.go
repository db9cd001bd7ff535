package core

import "math"

// RotaryMode selects the direction a modulo move takes
type RotaryMode uint8

const (
	RotaryShortest RotaryMode = iota // shortest path, ties go clockwise
	RotaryCW                         // clockwise only (increasing steps)
	RotaryCCW                        // counter-clockwise only (decreasing steps)
)

func (m RotaryMode) String() string {
	switch m {
	case RotaryShortest:
		return "shortest"
	case RotaryCW:
		return "cw"
	case RotaryCCW:
		return "ccw"
	}
	return "mode(" + itoa(int(m)) + ")"
}

// Mod returns x modulo n in [0, n). n must be positive.
func Mod(x, n int32) int32 {
	r := x % n
	if r < 0 {
		r += n
	}
	return r
}

// ModuloDelta returns the signed step delta that takes modulo position p to
// modulo target t on an n-step revolution. Unknown modes use the shortest
// path.
func ModuloDelta(p, t, n int32, mode RotaryMode) int32 {
	p = Mod(p, n)
	t = Mod(t, n)
	cw := Mod(t-p, n)
	ccw := Mod(p-t, n)

	switch mode {
	case RotaryCW:
		return cw
	case RotaryCCW:
		return -ccw
	}
	if cw <= ccw {
		return cw
	}
	return -ccw
}

// ShortestDelta is ModuloDelta with RotaryShortest
func ShortestDelta(p, t, n int32) int32 {
	return ModuloDelta(p, t, n, RotaryShortest)
}

// StepsToDeg converts steps to degrees. Linear-only axes return 0.
func (a *Axis) StepsToDeg(steps float64) float64 {
	if a.stepsPerRev <= 0 {
		return 0
	}
	return steps * 360.0 / float64(a.stepsPerRev)
}

// DegToSteps converts degrees to the nearest whole step, halves away from
// zero. Results outside int32 saturate; NaN and linear-only axes return 0.
func (a *Axis) DegToSteps(deg float64) int32 {
	s := math.Round(a.degToStepsF(deg))
	switch {
	case math.IsNaN(s):
		return 0
	case s >= math.MaxInt32:
		return math.MaxInt32
	case s <= math.MinInt32:
		return math.MinInt32
	}
	return int32(s)
}

// moduloDegToSteps folds deg into one turn before converting, so huge
// angles keep their direction
func (a *Axis) moduloDegToSteps(deg float64) int32 {
	return a.DegToSteps(math.Mod(deg, 360))
}

func (a *Axis) degToStepsF(deg float64) float64 {
	if a.stepsPerRev <= 0 {
		return 0
	}
	return deg * float64(a.stepsPerRev) / 360.0
}

// StepsPerRev returns the steps in one revolution, 0 for linear-only axes
func (a *Axis) StepsPerRev() int32 {
	return a.stepsPerRev
}

// Rotary reports whether modulo moves and renormalization are available
func (a *Axis) Rotary() bool {
	return a.stepsPerRev > 0
}

// MoveToSteps sets an unclamped absolute target. Homing and internal moves
// use it; commands go through MoveToWithLimitsSteps.
func (a *Axis) MoveToSteps(absolute int32) {
	state := disableInterrupts()
	a.setTarget(absolute)
	restoreInterrupts(state)
}

// MoveToDeg is MoveToSteps in degrees
func (a *Axis) MoveToDeg(absolute float64) {
	a.MoveToSteps(a.DegToSteps(absolute))
}

// MoveToWithLimitsSteps sets a target clamped to the linear bounds
func (a *Axis) MoveToWithLimitsSteps(absolute int32) {
	state := disableInterrupts()
	a.setTarget(a.clampPosition(absolute))
	restoreInterrupts(state)
}

// MoveToWithLimitsDeg is MoveToWithLimitsSteps in degrees
func (a *Axis) MoveToWithLimitsDeg(absolute float64) {
	a.MoveToWithLimitsSteps(a.DegToSteps(absolute))
}

// MoveToModuloSteps targets a position within one revolution, reached in
// the direction mode asks for. The delta is added to the unbounded
// position. Returns false on a linear-only axis.
func (a *Axis) MoveToModuloSteps(targetModulo int32, mode RotaryMode) bool {
	if a.stepsPerRev <= 0 {
		return false
	}
	if mode > RotaryCCW {
		DebugPrintln("[AXIS] " + itoa(int(a.ID)) + " unknown rotary " + mode.String() + ", using shortest")
	}

	state := disableInterrupts()
	a.setTarget(a.position + ModuloDelta(a.position, targetModulo, a.stepsPerRev, mode))
	restoreInterrupts(state)
	return true
}

// MoveToModuloDeg is MoveToModuloSteps in degrees
func (a *Axis) MoveToModuloDeg(targetModulo float64, mode RotaryMode) bool {
	return a.MoveToModuloSteps(a.moduloDegToSteps(targetModulo), mode)
}

// Renormalize folds position and target into [0, stepsPerRev). Only legal
// at rest; the owning loop calls it, never the tick.
func (a *Axis) Renormalize() bool {
	if a.stepsPerRev <= 0 {
		return false
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	if !a.atRest() {
		return false
	}
	a.position = Mod(a.position, a.stepsPerRev)
	a.target = Mod(a.target, a.stepsPerRev)
	return true
}

// HomePosition declares the current position as zero. Fails without
// touching anything unless the axis is at rest.
func (a *Axis) HomePosition() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if !a.atRest() {
		return false
	}
	a.position = 0
	a.target = 0
	RecordTiming(EvtHome, a.ID, GetTime(), 0, 0)
	return true
}

// setTarget must run inside a critical section
func (a *Axis) setTarget(t int32) {
	if t != a.target {
		RecordTiming(EvtRetarget, a.ID, GetTime(), uint32(a.target), uint32(t))
		a.target = t
	}
}

func (a *Axis) atRest() bool {
	return a.position == a.target && a.velocity == 0 && a.accumulator == 0
}
