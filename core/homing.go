package core

import "errors"

var ErrHomingTimeout = errors.New("homing timed out before switch trigger")

// HomingParams tunes a homing run.
type HomingParams struct {
	// Interval is the conservative step interval in scheduler ticks.
	Interval uint32

	// Burst is how many steps are queued per probe burst; the switch
	// is polled between bursts, so smaller bursts stop closer to the
	// trigger point at the cost of more foreground round-trips.
	Burst uint32

	// Dir is the direction toward the home switch.
	Dir Direction

	// TimeoutUS bounds the whole run; a disconnected switch must not
	// spin the axis forever.
	TimeoutUS uint32

	// SampleCount consecutive switch reads are required to accept a
	// trigger, rejecting contact bounce.
	SampleCount uint8
}

// Homer drives an axis toward its limit switch, zeroes the position
// counter on trigger and marks the axis homed. Blocking, foreground
// context only; the scheduler keeps draining the bursts underneath.
type Homer struct {
	Queue  *MoveQueue
	Axis   Axis
	Switch SwitchReader
	Clock  Clock
	Params HomingParams
}

// Home runs the homing sequence. On timeout the axis is flushed to a
// safe idle state and ErrHomingTimeout returned; position and homed
// state are then unchanged.
func (h *Homer) Home() error {
	p := h.Params
	if p.Burst == 0 {
		p.Burst = 32
	}
	if p.Interval == 0 {
		p.Interval = 1
	}
	if p.SampleCount == 0 {
		p.SampleCount = 3
	}
	if p.TimeoutUS == 0 {
		p.TimeoutUS = 15000000
	}

	start := h.Clock.NowUS()
	for {
		if h.confirmTriggered(p.SampleCount) {
			h.Queue.Flush(h.Axis)
			h.Queue.ZeroPosition(h.Axis)
			h.Queue.MarkHomed(h.Axis, true)
			return nil
		}
		if h.Clock.NowUS()-start > p.TimeoutUS {
			h.Queue.Flush(h.Axis)
			return ErrHomingTimeout
		}

		err := h.Queue.Enqueue(h.Axis, StepChunk{
			Interval: p.Interval,
			Count:    p.Burst,
			Dir:      p.Dir,
		})
		if err != nil {
			return err
		}

		for h.Queue.IsActive(h.Axis) {
			if h.confirmTriggered(p.SampleCount) {
				h.Queue.Flush(h.Axis)
				h.Queue.ZeroPosition(h.Axis)
				h.Queue.MarkHomed(h.Axis, true)
				return nil
			}
			if h.Clock.NowUS()-start > p.TimeoutUS {
				h.Queue.Flush(h.Axis)
				return ErrHomingTimeout
			}
			h.Clock.Pause()
		}
	}
}

// confirmTriggered requires n consecutive matching samples, the same
// oversampling trick hardware endstops use against bounce.
func (h *Homer) confirmTriggered(n uint8) bool {
	for i := uint8(0); i < n; i++ {
		if !h.Switch.Triggered() {
			return false
		}
	}
	return true
}
