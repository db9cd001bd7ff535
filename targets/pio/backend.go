//go:build rp2040

package pio

import (
	"errors"

	"motorhead/core"
	"motorhead/standalone/config"
)

var ErrNoStateMachine = errors.New("pio: no free state machine")

var (
	// RP2040 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	allocations = [2][4]bool{}
	nextPIONum  = uint8(0)
	nextSMNum   = uint8(0)
)

// InitSteppers registers the PIO backend as the default for axes whose
// configuration does not name one
func InitSteppers() {
	core.SetStepperBackendFactory(func() core.StepperBackend {
		b, err := newPIOBackend()
		if err != nil {
			return nil
		}
		return b
	})
}

// NewBackend returns the step output the axis configuration asks for. It
// matches standalone.BackendFactory.
func NewBackend(i int, axis config.AxisConfig) (core.StepperBackend, error) {
	switch axis.Backend {
	case config.BackendGPIO:
		return NewGPIOStepperBackend(), nil
	case config.BackendNull:
		return core.NullBackend{}, nil
	}
	b, err := newPIOBackend()
	if err != nil {
		return nil, err
	}
	return b, nil
}

func newPIOBackend() (*PIOStepperBackend, error) {
	pioNum, smNum, ok := allocate()
	if !ok {
		return nil, ErrNoStateMachine
	}
	return NewPIOStepperBackend(pioNum, smNum), nil
}

// allocate hands out state machines round-robin across both blocks
func allocate() (uint8, uint8, bool) {
	for i := 0; i < 8; i++ {
		pioNum := nextPIONum
		smNum := nextSMNum

		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		if !allocations[pioNum][smNum] {
			allocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}
	return 0, 0, false
}

// AllocationStatus returns which state machines are in use
func AllocationStatus() [2][4]bool {
	return allocations
}
