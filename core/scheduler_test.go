package core

import (
	"testing"
)

func newTestScheduler() *Scheduler {
	safety := NewSafetyState()
	return NewScheduler(NewMoveQueue(safety), 100)
}

func TestTicksPerSecond(t *testing.T) {
	cases := []struct {
		periodUS uint32
		want     uint32
	}{
		{100, 10000},
		{50, 20000},
		{0, 10000}, // default period
	}

	for _, tc := range cases {
		s := NewScheduler(NewMoveQueue(NewSafetyState()), tc.periodUS)
		if got := s.TicksPerSecond(); got != tc.want {
			t.Errorf("TicksPerSecond(%d) = %d, want %d", tc.periodUS, got, tc.want)
		}
	}
}

func TestTimerDispatchOrder(t *testing.T) {
	s := newTestScheduler()

	var fired []int
	mk := func(id int, wake uint32) *Timer {
		return &Timer{
			WakeTime: wake,
			Handler: func(*Timer) uint8 {
				fired = append(fired, id)
				return SF_DONE
			},
		}
	}

	// Insert out of order; dispatch must be by wake time.
	s.ScheduleTimer(mk(1, 5))
	s.ScheduleTimer(mk(2, 3))
	s.ScheduleTimer(mk(3, 8))

	for i := 0; i < 10; i++ {
		s.Tick()
	}

	want := []int{2, 1, 3}
	if len(fired) != len(want) {
		t.Fatalf("fired %d timers, want %d", len(fired), len(want))
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("fired[%d] = %d, want %d", i, fired[i], want[i])
		}
	}
}

func TestTimerReschedule(t *testing.T) {
	s := newTestScheduler()

	calls := 0
	timer := &Timer{WakeTime: 2}
	timer.Handler = func(tm *Timer) uint8 {
		calls++
		if calls == 3 {
			return SF_DONE
		}
		tm.WakeTime += 2
		return SF_RESCHEDULE
	}
	s.ScheduleTimer(timer)

	for i := 0; i < 10; i++ {
		s.Tick()
	}

	if calls != 3 {
		t.Errorf("handler ran %d times, want 3", calls)
	}
}

func TestCancelTimer(t *testing.T) {
	s := newTestScheduler()

	fired := false
	timer := &Timer{
		WakeTime: 5,
		Handler: func(*Timer) uint8 {
			fired = true
			return SF_DONE
		},
	}
	s.ScheduleTimer(timer)
	s.CancelTimer(timer)

	for i := 0; i < 10; i++ {
		s.Tick()
	}

	if fired {
		t.Error("cancelled timer still fired")
	}
}

func TestCancelMiddleTimer(t *testing.T) {
	s := newTestScheduler()

	var fired []int
	mk := func(id int, wake uint32) *Timer {
		return &Timer{
			WakeTime: wake,
			Handler: func(*Timer) uint8 {
				fired = append(fired, id)
				return SF_DONE
			},
		}
	}

	t1 := mk(1, 2)
	t2 := mk(2, 4)
	t3 := mk(3, 6)
	s.ScheduleTimer(t1)
	s.ScheduleTimer(t2)
	s.ScheduleTimer(t3)
	s.CancelTimer(t2)

	for i := 0; i < 10; i++ {
		s.Tick()
	}

	if len(fired) != 2 || fired[0] != 1 || fired[1] != 3 {
		t.Errorf("fired = %v, want [1 3]", fired)
	}
}
