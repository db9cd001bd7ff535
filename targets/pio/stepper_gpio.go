//go:build rp2040

package pio

import (
	"device/arm"
	"device/rp"
	"machine"

	"motorhead/core"
)

// GPIOStepperBackend drives step and direction through the SIO registers
// from the tick interrupt. Fallback when no state machine is free.
type GPIOStepperBackend struct {
	stepPin machine.Pin
	dirPin  machine.Pin

	stepMask   uint32
	dirMask    uint32
	invertStep bool
	invertDir  bool
}

// NewGPIOStepperBackend creates a new GPIO-based stepper backend
func NewGPIOStepperBackend() *GPIOStepperBackend {
	return &GPIOStepperBackend{}
}

// Init configures both pins as outputs at their idle levels
func (b *GPIOStepperBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)
	b.stepMask = 1 << stepPin
	b.dirMask = 1 << dirPin
	b.invertStep = invertStep
	b.invertDir = invertDir

	b.stepPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.stepPin.Set(invertStep)
	b.dirPin.Set(invertDir)
	return nil
}

// Step emits one pulse. 13 NOPs at 125MHz hold the active level ~104ns,
// above the 100ns Trinamic minimum.
func (b *GPIOStepperBackend) Step() {
	if b.invertStep {
		rp.SIO.GPIO_OUT_CLR.Set(b.stepMask)
		arm.Asm("nop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop")
		rp.SIO.GPIO_OUT_SET.Set(b.stepMask)
		return
	}
	rp.SIO.GPIO_OUT_SET.Set(b.stepMask)
	arm.Asm("nop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop")
	rp.SIO.GPIO_OUT_CLR.Set(b.stepMask)
}

// SetDirection sets the direction output (true = reverse)
func (b *GPIOStepperBackend) SetDirection(dir bool) {
	if dir != b.invertDir {
		rp.SIO.GPIO_OUT_SET.Set(b.dirMask)
	} else {
		rp.SIO.GPIO_OUT_CLR.Set(b.dirMask)
	}

	// Dir-to-step setup: 20ns minimum for TMC2209
	arm.Asm("nop\nnop\nnop")
}

// Stop returns the step pin to idle
func (b *GPIOStepperBackend) Stop() {
	b.stepPin.Set(b.invertStep)
}

func (b *GPIOStepperBackend) GetName() string {
	return "gpio"
}

// GetInfo returns backend performance information
func (b *GPIOStepperBackend) GetInfo() core.StepperBackendInfo {
	return core.StepperBackendInfo{
		Name:          "gpio",
		MaxStepRate:   200000,
		MinPulseNs:    104,
		TypicalJitter: 500, // interrupt latency
		CPUOverhead:   15,
	}
}
