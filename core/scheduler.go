package core

// Timer represents a scheduled auxiliary event. WakeTime is in
// scheduler ticks. Handlers run in interrupt context and must not
// allocate or block.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler is the single heartbeat of the firmware. Tick is invoked
// from a fixed-period hardware timer interrupt; every step pulse the
// machine emits funnels through it. Auxiliary events (spindle ramp
// updates, stall checks) run off a sorted timer list drained on the
// same tick and never produce step output of their own.
type Scheduler struct {
	queue *MoveQueue

	tickPeriodUS uint32
	tickCount    uint32

	timerList *Timer
}

// NewScheduler creates a scheduler draining the given move queue.
// tickPeriodUS is the hardware timer period in microseconds.
func NewScheduler(queue *MoveQueue, tickPeriodUS uint32) *Scheduler {
	if tickPeriodUS == 0 {
		tickPeriodUS = 100
	}
	return &Scheduler{
		queue:        queue,
		tickPeriodUS: tickPeriodUS,
	}
}

// TickPeriodUS returns the configured tick period in microseconds.
func (s *Scheduler) TickPeriodUS() uint32 {
	return s.tickPeriodUS
}

// TicksPerSecond returns the tick rate.
func (s *Scheduler) TicksPerSecond() uint32 {
	return 1000000 / s.tickPeriodUS
}

// TickCount returns the number of ticks serviced since boot.
func (s *Scheduler) TickCount() uint32 {
	return s.tickCount
}

// Tick services one heartbeat: due auxiliary timers first, then at
// most one step per axis. Bounded time, no allocation.
func (s *Scheduler) Tick() {
	s.tickCount++
	s.dispatchTimers()
	for ax := Axis(0); ax < NumAxes; ax++ {
		s.queue.serviceTick(ax)
	}
}

// ScheduleTimer adds a timer to the schedule, sorted by WakeTime.
func (s *Scheduler) ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.insertTimer(t)
}

// CancelTimer removes a timer from the schedule if present.
func (s *Scheduler) CancelTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if s.timerList == t {
		s.timerList = t.Next
		t.Next = nil
		return
	}
	for cur := s.timerList; cur != nil; cur = cur.Next {
		if cur.Next == t {
			cur.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// insertTimer inserts a timer in sorted order by WakeTime.
func (s *Scheduler) insertTimer(t *Timer) {
	if s.timerList == nil || t.WakeTime < s.timerList.WakeTime {
		t.Next = s.timerList
		s.timerList = t
		return
	}

	current := s.timerList
	for current.Next != nil && current.Next.WakeTime < t.WakeTime {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// dispatchTimers runs all timers with WakeTime <= tickCount.
func (s *Scheduler) dispatchTimers() {
	for s.timerList != nil && s.timerList.WakeTime <= s.tickCount {
		timer := s.timerList
		s.timerList = timer.Next
		timer.Next = nil

		result := timer.Handler(timer)
		if result == SF_RESCHEDULE {
			s.insertTimer(timer)
		}
	}
}
