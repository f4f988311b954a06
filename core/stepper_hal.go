package core

// StepperBackend is the hardware abstraction for the step/dir/enable
// outputs of one axis. Step is called from the scheduler interrupt
// and must handle its own pulse-width timing; it has to be fast.
type StepperBackend interface {
	// Step generates a single step pulse.
	Step()

	// SetDirection sets the direction output before the next step.
	SetDirection(dir Direction)

	// SetEnable powers the motor driver on or off.
	SetEnable(enabled bool)
}

// SwitchReader reads a limit/home switch input, debounced or not
// depending on the implementation.
type SwitchReader interface {
	Triggered() bool
}

// SwitchFunc adapts a plain function to SwitchReader.
type SwitchFunc func() bool

func (f SwitchFunc) Triggered() bool { return f() }
