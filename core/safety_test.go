package core

import (
	"testing"
)

func TestSafetyTransitions(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(s *SafetyState)
		op      func(s *SafetyState) error
		wantErr bool
		want    RunState
	}{
		{
			"feed hold from normal",
			func(s *SafetyState) {},
			func(s *SafetyState) error { return s.FeedHold() },
			false, StateFeedHold,
		},
		{
			"feed hold from feed hold",
			func(s *SafetyState) { s.FeedHold() },
			func(s *SafetyState) error { return s.FeedHold() },
			true, StateFeedHold,
		},
		{
			"resume from feed hold",
			func(s *SafetyState) { s.FeedHold() },
			func(s *SafetyState) error { return s.Resume() },
			false, StateNormal,
		},
		{
			"resume from normal",
			func(s *SafetyState) {},
			func(s *SafetyState) error { return s.Resume() },
			true, StateNormal,
		},
		{
			"feed hold from emergency stop",
			func(s *SafetyState) { s.EmergencyStop() },
			func(s *SafetyState) error { return s.FeedHold() },
			true, StateEmergencyStopped,
		},
		{
			"resume from emergency stop",
			func(s *SafetyState) { s.EmergencyStop() },
			func(s *SafetyState) error { return s.Resume() },
			true, StateEmergencyStopped,
		},
		{
			"reset from normal",
			func(s *SafetyState) {},
			func(s *SafetyState) error { return s.Reset(0) },
			true, StateNormal,
		},
	}

	for _, tc := range cases {
		s := NewSafetyState()
		tc.setup(s)
		err := tc.op(s)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
		if s.Current() != tc.want {
			t.Errorf("%s: state = %v, want %v", tc.name, s.Current(), tc.want)
		}
	}
}

func TestEmergencyStopFromAnyState(t *testing.T) {
	for _, from := range []string{"normal", "hold", "estop"} {
		s := NewSafetyState()
		switch from {
		case "hold":
			s.FeedHold()
		case "estop":
			s.EmergencyStop()
		}
		s.EmergencyStop()
		if s.Current() != StateEmergencyStopped {
			t.Errorf("from %s: state = %v, want EMERGENCY_STOPPED", from, s.Current())
		}
	}
}

func TestResetRequiresStoppedSpindle(t *testing.T) {
	s := NewSafetyState()
	s.EmergencyStop()

	if err := s.Reset(250); err != ErrSpindleNotStopped {
		t.Errorf("Reset with spinning spindle returned %v, want ErrSpindleNotStopped", err)
	}
	if s.Current() != StateEmergencyStopped {
		t.Error("failed reset left emergency stop state")
	}

	if err := s.Reset(0.5); err != nil {
		t.Errorf("Reset with stopped spindle failed: %v", err)
	}
	if s.Current() != StateNormal {
		t.Errorf("state = %v after reset, want NORMAL", s.Current())
	}
}

func TestRunStateString(t *testing.T) {
	cases := []struct {
		state RunState
		want  string
	}{
		{StateNormal, "NORMAL"},
		{StateFeedHold, "FEED_HOLD"},
		{StateEmergencyStopped, "EMERGENCY_STOPPED"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
