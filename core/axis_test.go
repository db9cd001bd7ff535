package core

import (
	"math"
	"testing"
)

// recordingBackend counts step edges per direction
type recordingBackend struct {
	reverse  bool
	forward  int
	backward int
	dirCalls int
	stopped  int
	inited   bool
}

func (b *recordingBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.inited = true
	return nil
}

func (b *recordingBackend) Step() {
	if b.reverse {
		b.backward++
	} else {
		b.forward++
	}
}

func (b *recordingBackend) SetDirection(dir bool) {
	b.reverse = dir
	b.dirCalls++
}

func (b *recordingBackend) Stop()           { b.stopped++ }
func (b *recordingBackend) GetName() string { return "recording" }

func (b *recordingBackend) net() int { return b.forward - b.backward }

func newTestAxis(t *testing.T, cfg AxisConfig) (*Axis, *recordingBackend) {
	t.Helper()
	b := &recordingBackend{}
	a, err := NewAxis(0, cfg, b)
	if err != nil {
		t.Fatalf("NewAxis failed: %v", err)
	}
	if !b.inited {
		t.Fatal("backend was not initialized")
	}
	return a, b
}

// runUntilRest ticks until the axis stops or max ticks elapse
func runUntilRest(t *testing.T, a *Axis, max int) int {
	t.Helper()
	for i := 0; i < max; i++ {
		a.Tick()
		if !a.IsRunning() {
			return i + 1
		}
	}
	t.Fatalf("axis still running after %d ticks: pos=%d target=%d v=%f",
		max, a.position, a.target, a.velocity)
	return max
}

func scenarioAConfig() AxisConfig {
	cfg := DefaultAxisConfig()
	cfg.StepsPerRev = 32000
	cfg.MaxVelocity = 1000
	cfg.Acceleration = 8000
	return cfg
}

func TestNewAxisDefaults(t *testing.T) {
	a, _ := newTestAxis(t, DefaultAxisConfig())

	if a.MaxVelocity() != DefaultMaxVelocity {
		t.Errorf("Expected max velocity %f, got %f", DefaultMaxVelocity, a.MaxVelocity())
	}
	if a.Acceleration() != DefaultAcceleration {
		t.Errorf("Expected acceleration %f, got %f", DefaultAcceleration, a.Acceleration())
	}
	if a.IsRunning() {
		t.Error("New axis should be at rest")
	}
}

func TestNewAxisRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AxisConfig)
	}{
		{"zero tick period", func(c *AxisConfig) { c.TickPeriod = 0 }},
		{"negative steps per rev", func(c *AxisConfig) { c.StepsPerRev = -1 }},
		{"inverted position bounds", func(c *AxisConfig) { c.Limits.MinPosition = 10; c.Limits.MaxPosition = 0 }},
		{"inverted velocity bounds", func(c *AxisConfig) { c.Limits.VelocityMin = 10; c.Limits.VelocityMax = 1 }},
		{"zero acceleration ceiling", func(c *AxisConfig) { c.Limits.AccelMin = 0; c.Limits.AccelMax = 0 }},
	}

	for _, test := range tests {
		cfg := DefaultAxisConfig()
		test.modify(&cfg)
		if _, err := NewAxis(0, cfg, nil); err != ErrInvalidAxis {
			t.Errorf("%s: expected ErrInvalidAxis, got %v", test.name, err)
		}
	}
}

func TestScenarioARampCruiseArrive(t *testing.T) {
	a, b := newTestAxis(t, scenarioAConfig())
	a.MoveToSteps(16000)

	dvMax := a.Acceleration()*a.TickPeriod() + 1e-9
	prevV := a.Speed()
	prevRemaining := int32(16000)
	sawCruise := false

	for i := 0; i < 200000 && a.IsRunning(); i++ {
		before := b.forward + b.backward
		a.Tick()

		if steps := b.forward + b.backward - before; steps > 1 {
			t.Fatalf("tick %d emitted %d steps", i, steps)
		}

		arrived := a.position == a.target && a.velocity == 0
		if !arrived && math.Abs(a.velocity-prevV) > dvMax {
			t.Fatalf("tick %d: velocity jumped from %f to %f", i, prevV, a.velocity)
		}
		if math.Abs(a.velocity) > a.MaxVelocity()+1e-9 {
			t.Fatalf("tick %d: velocity %f above max %f", i, a.velocity, a.MaxVelocity())
		}
		if a.accumulator <= -1 || a.accumulator >= 1 {
			t.Fatalf("tick %d: accumulator %f out of range", i, a.accumulator)
		}

		remaining := a.target - a.position
		if remaining < 0 {
			remaining = -remaining
		}
		if remaining > prevRemaining {
			t.Fatalf("tick %d: distance grew from %d to %d", i, prevRemaining, remaining)
		}
		if a.velocity == a.MaxVelocity() {
			sawCruise = true
		}

		prevV = a.velocity
		prevRemaining = remaining
	}

	if a.PositionSteps() != 16000 {
		t.Errorf("Expected position 16000, got %d", a.PositionSteps())
	}
	if a.Speed() != 0 || a.Accumulator() != 0 {
		t.Errorf("Expected v=0 acc=0 at arrival, got v=%f acc=%f", a.Speed(), a.Accumulator())
	}
	if b.net() != 16000 || b.backward != 0 {
		t.Errorf("Expected 16000 forward steps, got forward=%d backward=%d", b.forward, b.backward)
	}
	if !sawCruise {
		t.Error("Expected the profile to reach cruise speed")
	}
}

func TestArrivalIsSticky(t *testing.T) {
	cfg := DefaultAxisConfig()
	a, b := newTestAxis(t, cfg)
	a.MoveToSteps(500)

	arrivedAt := -1
	for i := 0; i < 100000; i++ {
		a.Tick()
		if a.position == a.target {
			arrivedAt = i
			break
		}
	}
	if arrivedAt < 0 {
		t.Fatal("axis never reached its target")
	}
	if a.velocity != 0 || a.accumulator != 0 {
		t.Fatalf("first tick on target has v=%f acc=%f", a.velocity, a.accumulator)
	}

	steps := b.forward
	for i := 0; i < 1000; i++ {
		a.Tick()
		if a.velocity != 0 || a.accumulator != 0 || a.position != 500 {
			t.Fatalf("state drifted after arrival: pos=%d v=%f acc=%f", a.position, a.velocity, a.accumulator)
		}
	}
	if b.forward != steps {
		t.Errorf("Expected no steps after arrival, got %d more", b.forward-steps)
	}
}

func TestScenarioDReversalDecaysFirst(t *testing.T) {
	cfg := DefaultAxisConfig()
	a, b := newTestAxis(t, cfg)
	a.MoveToSteps(1000)

	for i := 0; i < 10000 && a.Speed() < 500; i++ {
		a.Tick()
	}
	if a.Speed() < 500 {
		t.Fatalf("axis did not reach 500 steps/s, v=%f", a.Speed())
	}

	a.MoveToSteps(-1000)
	posAtReversal := a.PositionSteps()
	backwardAtReversal := b.backward
	prev := a.Speed()

	for i := 0; a.Speed() != 0; i++ {
		if i > 10000 {
			t.Fatal("velocity never decayed to zero")
		}
		a.Tick()
		v := a.Speed()
		if v < 0 {
			t.Fatalf("tick %d: velocity went negative (%f) before reaching zero", i, v)
		}
		if v >= prev {
			t.Fatalf("tick %d: |v| did not decrease (%f -> %f)", i, prev, v)
		}
		if a.PositionSteps() != posAtReversal {
			t.Fatalf("tick %d: position moved during decel-only phase", i)
		}
		if b.backward != backwardAtReversal {
			t.Fatalf("tick %d: reverse step emitted before velocity reached zero", i)
		}
		prev = v
	}
	if a.Accumulator() != 0 {
		t.Errorf("Expected accumulator reset at zero crossing, got %f", a.Accumulator())
	}

	runUntilRest(t, a, 200000)
	if a.PositionSteps() != -1000 {
		t.Errorf("Expected final position -1000, got %d", a.PositionSteps())
	}
	if b.net() != -1000 {
		t.Errorf("Expected net -1000 steps emitted, got %d", b.net())
	}
}

func TestOneStepPerTickCap(t *testing.T) {
	cfg := DefaultAxisConfig()
	cfg.MaxVelocity = 4000 // above 1/tickPeriod
	cfg.Acceleration = 10000
	a, b := newTestAxis(t, cfg)
	a.MoveToSteps(20000)

	maxV := 0.0
	for i := 0; i < 100000 && a.IsRunning(); i++ {
		before := b.forward
		a.Tick()
		if b.forward-before > 1 {
			t.Fatalf("tick %d emitted %d steps", i, b.forward-before)
		}
		if a.Speed() > maxV {
			maxV = a.Speed()
		}
	}
	if a.PositionSteps() != 20000 {
		t.Errorf("Expected position 20000, got %d", a.PositionSteps())
	}
	if maxV <= 1/a.TickPeriod() {
		t.Errorf("Expected commanded velocity above the step rate cap, max was %f", maxV)
	}
}

func TestRetargetSameDirectionExtendsMove(t *testing.T) {
	a, b := newTestAxis(t, DefaultAxisConfig())
	a.MoveToSteps(2000)
	for i := 0; i < 500; i++ {
		a.Tick()
	}
	if !a.IsRunning() {
		t.Fatal("axis stopped too early")
	}

	a.MoveToSteps(5000)
	runUntilRest(t, a, 200000)

	if a.PositionSteps() != 5000 || b.backward != 0 {
		t.Errorf("Expected straight run to 5000, got pos=%d backward=%d", a.PositionSteps(), b.backward)
	}
}

func TestTargetSetToCurrentPositionWhileMoving(t *testing.T) {
	a, b := newTestAxis(t, DefaultAxisConfig())
	a.MoveToSteps(10000)
	for i := 0; i < 2000; i++ {
		a.Tick()
	}
	if a.Speed() <= 0 {
		t.Fatal("axis not moving")
	}

	a.MoveToSteps(a.PositionSteps())
	stopAt := a.PositionSteps()
	runUntilRest(t, a, 100000)

	if a.PositionSteps() != stopAt {
		t.Errorf("Expected to settle at %d, got %d", stopAt, a.PositionSteps())
	}
	if b.net() != int(stopAt) {
		t.Errorf("Emitted steps %d do not match position %d", b.net(), stopAt)
	}
}

func TestReducingMaxVelocityRampsDown(t *testing.T) {
	a, _ := newTestAxis(t, DefaultAxisConfig())
	a.MoveToSteps(30000)
	for i := 0; i < 3000; i++ {
		a.Tick()
	}
	if a.Speed() != DefaultMaxVelocity {
		t.Fatalf("Expected cruise at %f, got %f", DefaultMaxVelocity, a.Speed())
	}

	a.SetMaxVelocity(200)
	dv := a.Acceleration()*a.TickPeriod() + 1e-9
	prev := a.Speed()
	for a.Speed() > 200 {
		a.Tick()
		if prev-a.Speed() > dv {
			t.Fatalf("velocity dropped by %f in one tick", prev-a.Speed())
		}
		prev = a.Speed()
	}
	if a.Speed() != 200 {
		t.Errorf("Expected to settle at 200 steps/s, got %f", a.Speed())
	}
}

func TestDirectionWrittenOnlyOnChange(t *testing.T) {
	a, b := newTestAxis(t, DefaultAxisConfig())
	a.MoveToSteps(-300)
	runUntilRest(t, a, 100000)
	a.MoveToSteps(-100)
	runUntilRest(t, a, 100000)

	if b.dirCalls != 2 {
		t.Errorf("Expected 2 direction changes, got %d", b.dirCalls)
	}
	if b.forward != 200 || b.backward != 300 {
		t.Errorf("Expected 200 forward / 300 backward steps, got %d / %d", b.forward, b.backward)
	}
}

func TestHardStopWithoutPulse(t *testing.T) {
	a, b := newTestAxis(t, DefaultAxisConfig())
	// Sitting on target with residual forward motion: the next accumulated
	// step would pass the target.
	a.position = 100
	a.target = 100
	a.velocity = 1500
	a.accumulator = 0.9

	a.Tick()

	if a.position != 100 || a.velocity != 0 || a.accumulator != 0 {
		t.Errorf("Expected hard stop at 100, got pos=%d v=%f acc=%f", a.position, a.velocity, a.accumulator)
	}
	if b.forward != 0 {
		t.Errorf("Expected no pulse on hard stop, got %d", b.forward)
	}
}

func TestTotalStepCount(t *testing.T) {
	start := GetTotalStepCount()
	a, _ := newTestAxis(t, DefaultAxisConfig())
	a.MoveToSteps(50)
	runUntilRest(t, a, 100000)

	if got := GetTotalStepCount() - start; got != 50 {
		t.Errorf("Expected 50 steps counted, got %d", got)
	}
}
