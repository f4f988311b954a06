package core

// SpindleBackend is the hardware abstraction for the BLDC spindle
// driver board: PWM speed input, direction, brake and power enable.
type SpindleBackend interface {
	// SetDuty sets the speed PWM duty cycle, 0.0 (off) to 1.0 (full).
	SetDuty(duty float32)

	// SetDirection selects rotation direction (true = clockwise).
	SetDirection(cw bool)

	// SetBrake engages or releases the electrical brake.
	SetBrake(on bool)

	// SetEnable powers the driver stage on or off.
	SetEnable(on bool)
}
