//go:build rp2040

package main

// PIO stepper bench: one axis swings back and forth through the motion
// engine with the PIO backend. Watch step/dir on an oscilloscope; the
// ramps should be symmetric and no steps should be dropped.

import (
	"machine"
	"time"

	"motorhead/core"
	piostepper "motorhead/targets/pio"
)

const (
	stepPin = 2
	dirPin  = 3
	swing   = 3200 // steps, one tenth of a turn at the default resolution
)

func main() {
	time.Sleep(3 * time.Second)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	println("=== PIO Stepper Bench ===")
	println("Step: GP2, Dir: GP3")

	stepper := piostepper.NewPIOStepperBackend(0, 0)
	cfg := core.DefaultAxisConfig()
	cfg.StepPin = stepPin
	cfg.DirPin = dirPin

	axis, err := core.NewAxis(0, cfg, stepper)
	if err != nil {
		println("Init error:", err.Error())
		for {
			led.High()
			time.Sleep(100 * time.Millisecond)
			led.Low()
			time.Sleep(100 * time.Millisecond)
		}
	}
	println("Init OK!")

	period := time.Duration(cfg.TickPeriod * float64(time.Second))
	next := time.Now()
	cycle := 0
	for {
		cycle++
		target := int32(swing)
		if cycle%2 == 0 {
			target = 0
		}
		axis.MoveToSteps(target)
		led.Set(cycle%2 == 1)

		start := core.GetTotalStepCount()
		for axis.IsRunning() {
			next = next.Add(period)
			time.Sleep(time.Until(next))
			axis.Tick()
		}

		println("cycle", cycle, "steps", core.GetTotalStepCount()-start, "dropped", stepper.Dropped())
		time.Sleep(500 * time.Millisecond)
		next = time.Now()
	}
}
