package core

import (
	"errors"
	"sync/atomic"
)

// RunState is the machine-wide safety state.
type RunState uint32

const (
	StateNormal RunState = iota
	StateFeedHold
	StateEmergencyStopped
)

// String returns the state name used in status output.
func (s RunState) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateFeedHold:
		return "FEED_HOLD"
	case StateEmergencyStopped:
		return "EMERGENCY_STOPPED"
	}
	return "UNKNOWN"
}

var (
	ErrInvalidTransition = errors.New("invalid safety state transition")
	ErrSpindleNotStopped = errors.New("spindle still turning")
)

// ResetRPMThreshold is the spindle speed below which the machine is
// considered stopped for the purpose of leaving EMERGENCY_STOPPED.
const ResetRPMThreshold = 1.0

// SafetyState is the explicit safety state machine. It is the only
// cross-cutting mutable state shared by the interpreter, move queue
// and scheduler; the legal transition table lives entirely here.
//
// NORMAL -> FEED_HOLD       FeedHold
// FEED_HOLD -> NORMAL       Resume
// any -> EMERGENCY_STOPPED  EmergencyStop
// EMERGENCY_STOPPED -> NORMAL  Reset, only with the spindle stopped
type SafetyState struct {
	v uint32
}

// NewSafetyState returns a state machine in NORMAL.
func NewSafetyState() *SafetyState {
	return &SafetyState{}
}

// Current returns the current state. Safe from any context.
func (s *SafetyState) Current() RunState {
	return RunState(atomic.LoadUint32(&s.v))
}

// FeedHold transitions NORMAL -> FEED_HOLD.
func (s *SafetyState) FeedHold() error {
	if !atomic.CompareAndSwapUint32(&s.v, uint32(StateNormal), uint32(StateFeedHold)) {
		return ErrInvalidTransition
	}
	return nil
}

// Resume transitions FEED_HOLD -> NORMAL.
func (s *SafetyState) Resume() error {
	if !atomic.CompareAndSwapUint32(&s.v, uint32(StateFeedHold), uint32(StateNormal)) {
		return ErrInvalidTransition
	}
	return nil
}

// EmergencyStop enters EMERGENCY_STOPPED from any state. Safe to call
// from any context, any number of times.
func (s *SafetyState) EmergencyStop() {
	atomic.StoreUint32(&s.v, uint32(StateEmergencyStopped))
}

// Reset leaves EMERGENCY_STOPPED, but only if the measured spindle
// speed has decayed to zero. spindleRPM is the caller's current
// estimator reading.
func (s *SafetyState) Reset(spindleRPM float32) error {
	if s.Current() != StateEmergencyStopped {
		return ErrInvalidTransition
	}
	if spindleRPM > ResetRPMThreshold {
		return ErrSpindleNotStopped
	}
	atomic.StoreUint32(&s.v, uint32(StateNormal))
	return nil
}
