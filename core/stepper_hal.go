package core

// StepperBackend is the pulse-output capability an axis drives.
// Implementations can use GPIO, PIO, or other methods.
type StepperBackend interface {
	// Init initializes the stepper hardware
	// stepPin: GPIO pin for step pulses
	// dirPin: GPIO pin for direction signal
	// invertStep: invert step pin polarity
	// invertDir: invert direction pin polarity
	Init(stepPin, dirPin uint8, invertStep, invertDir bool) error

	// Step emits one step edge in the current direction.
	// Called from the tick interrupt; must not block or allocate.
	Step()

	// SetDirection sets the direction output
	// dir: true = reverse, false = forward
	SetDirection(dir bool)

	// Stop puts the step output in its idle state
	Stop()

	// GetName returns backend implementation name
	GetName() string
}

// StepperBackendInfo provides information about available backends
type StepperBackendInfo struct {
	Name          string
	MaxStepRate   uint32 // Maximum steps/second per axis
	MinPulseNs    uint32 // Minimum step pulse width (ns)
	TypicalJitter uint32 // Typical timing jitter (ns)
	CPUOverhead   uint8  // CPU overhead percentage (0-100)
}

// NullBackend discards steps. Axes without hardware (host builds) use it.
type NullBackend struct{}

func (NullBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error { return nil }
func (NullBackend) Step()                                                       {}
func (NullBackend) SetDirection(dir bool)                                       {}
func (NullBackend) Stop()                                                       {}
func (NullBackend) GetName() string                                             { return "null" }

var stepperBackendFactory func() StepperBackend

// SetStepperBackendFactory sets the factory used for new axes. Platform
// code calls it before the axes are built.
func SetStepperBackendFactory(factory func() StepperBackend) {
	stepperBackendFactory = factory
}

// NewStepperBackend returns a backend from the registered factory, or a
// NullBackend when no factory is set or it has run out of resources
func NewStepperBackend() StepperBackend {
	if stepperBackendFactory != nil {
		if b := stepperBackendFactory(); b != nil {
			return b
		}
	}
	return NullBackend{}
}
