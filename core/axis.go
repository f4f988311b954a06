package core

// Axis identifies one of the winder's two motion axes.
type Axis uint8

const (
	// AxisSpindle is the BLDC coil spindle (rotation).
	AxisSpindle Axis = 0

	// AxisTraverse is the stepper-driven wire guide (linear).
	AxisTraverse Axis = 1

	// NumAxes is the number of motion axes.
	NumAxes = 2
)

// Direction of motion for a queued chunk.
type Direction uint8

const (
	DirForward Direction = 0
	DirReverse Direction = 1
)

// StepChunk is a run-length-encoded segment of equal-interval steps,
// the unit exchanged between the move queue and the scheduler.
// Interval is in scheduler ticks and must be > 0; Count must be > 0.
// Add is applied to Interval after each step (signed, for accel ramps).
type StepChunk struct {
	Interval uint32
	Count    uint32
	Add      int32
	Dir      Direction
}

// Name returns a short axis label for status and debug output.
func (a Axis) Name() string {
	switch a {
	case AxisSpindle:
		return "spindle"
	case AxisTraverse:
		return "traverse"
	}
	return "axis?"
}
