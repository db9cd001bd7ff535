//go:build rp2040

package pio

// Step pulses generated by a PIO state machine, so pulse width and
// dir-to-step setup do not depend on interrupt latency.

import (
	"machine"

	"motorhead/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// One FIFO word per step. Bit 0 carries the direction level; the program
// drives it before pulsing the step pin.
//
//	pull block
//	out pins, 1          ; direction
//	set pins, active [7] ; step for 8 cycles
//	set pins, idle
func buildStepperProgram(invertStep bool) []uint16 {
	active, idle := uint8(1), uint8(0)
	if invertStep {
		active, idle = 0, 1
	}
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestPins, 1).Encode(),
		asm.Set(rp2pio.SetDestPins, active).Delay(7).Encode(),
		asm.Set(rp2pio.SetDestPins, idle).Encode(),
	}
}

const (
	// No jumps, so the program loads anywhere
	stepperPIOOrigin = -1

	// 125MHz / 125 = 1MHz state machine clock: 8us pulse, 1us setup
	stepperClkDiv = 125
)

// One copy per block and step polarity serves every state machine
var programOffset = [2][2]int16{{-1, -1}, {-1, -1}}

// PIOStepperBackend implements core.StepperBackend on one PIO state machine
type PIOStepperBackend struct {
	pio        *rp2pio.PIO
	sm         rp2pio.StateMachine
	stepPin    machine.Pin
	dirPin     machine.Pin
	invertStep bool
	invertDir  bool
	dirBit     uint32
	pioNum     uint8
	smNum      uint8
	dropped    uint32
}

// NewPIOStepperBackend creates a backend on PIO block pioNum, state
// machine smNum
func NewPIOStepperBackend(pioNum, smNum uint8) *PIOStepperBackend {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	return &PIOStepperBackend{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		pioNum: pioNum,
		smNum:  smNum,
	}
}

// Init loads the program and claims the pins
func (b *PIOStepperBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)
	b.invertStep = invertStep
	b.invertDir = invertDir

	b.sm.TryClaim()

	polarity := 0
	if invertStep {
		polarity = 1
	}
	program := buildStepperProgram(invertStep)
	if programOffset[b.pioNum][polarity] < 0 {
		offset, err := b.pio.AddProgram(program, stepperPIOOrigin)
		if err != nil {
			return err
		}
		programOffset[b.pioNum][polarity] = int16(offset)
	}
	offset := uint8(programOffset[b.pioNum][polarity])

	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	b.dirPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(b.stepPin, 1)
	cfg.SetOutPins(b.dirPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(stepperClkDiv, 0)

	// Pin directions must follow Init
	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPindirsConsecutive(b.dirPin, 1, true)

	b.sm.SetPinsConsecutive(b.stepPin, 1, invertStep)
	b.sm.SetPinsConsecutive(b.dirPin, 1, invertDir)
	b.SetDirection(false)

	b.sm.SetEnabled(true)
	return nil
}

// Step queues one pulse. It runs in the tick interrupt, so a full FIFO
// drops the step instead of waiting.
func (b *PIOStepperBackend) Step() {
	if b.sm.IsTxFIFOFull() {
		b.dropped++
		return
	}
	b.sm.TxPut(b.dirBit)
}

// SetDirection sets the level carried by the next queued step
func (b *PIOStepperBackend) SetDirection(dir bool) {
	if dir != b.invertDir {
		b.dirBit = 1
	} else {
		b.dirBit = 0
	}
}

// Stop discards queued steps and leaves the step pin idle
func (b *PIOStepperBackend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetPinsConsecutive(b.stepPin, 1, b.invertStep)
	b.sm.SetEnabled(true)
}

// Dropped returns the steps lost to a full FIFO
func (b *PIOStepperBackend) Dropped() uint32 {
	return b.dropped
}

func (b *PIOStepperBackend) GetName() string {
	return "pio"
}

// GetInfo returns backend performance information
func (b *PIOStepperBackend) GetInfo() core.StepperBackendInfo {
	return core.StepperBackendInfo{
		Name:          b.GetName(),
		MaxStepRate:   100000, // one word per 10 cycles at 1MHz
		MinPulseNs:    8000,
		TypicalJitter: 10, // hardware-timed
		CPUOverhead:   1,
	}
}
