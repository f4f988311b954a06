package core

import (
	"errors"
	"sync/atomic"
)

const (
	// QueueCapacity is the fixed per-axis ring size. One slot is kept
	// free to distinguish full from empty.
	QueueCapacity = 64
)

var (
	ErrQueueFull        = errors.New("move queue full")
	ErrBadChunk         = errors.New("chunk must have count > 0 and interval > 0")
	ErrEmergencyStopped = errors.New("emergency stop active")
)

// axisState holds one axis's ring buffer and live stepping state.
//
// head is written only by the foreground enqueue path, tail only by
// the scheduler tick (single producer, single consumer); both are
// accessed with atomic loads/stores so neither context ever observes
// a torn index. The live chunk fields (active, delayLeft, running,
// position) belong to the tick context; foreground code touches them
// only inside an interrupt-masked section while the tick is frozen by
// the safety state.
type axisState struct {
	ring [QueueCapacity]StepChunk
	head uint32
	tail uint32

	active    StepChunk
	delayLeft uint32
	running   bool
	position  int64

	paused     uint32
	activeFlag uint32
	homed      bool
}

// MoveQueue buffers motion chunks per axis and feeds them to the
// scheduler one step at a time. It owns axis-level state: queue depth,
// active/paused flags, absolute step positions and the homed markers.
type MoveQueue struct {
	axes     [NumAxes]axisState
	backends [NumAxes]StepperBackend
	safety   *SafetyState

	chunksLoaded  uint32
	stepsExecuted uint32
}

// NewMoveQueue creates the move queue gated by the given safety state.
func NewMoveQueue(safety *SafetyState) *MoveQueue {
	return &MoveQueue{safety: safety}
}

// SetBackend installs the step/direction output for an axis. A nil
// backend leaves the queue counting steps without touching hardware,
// which is how the host-side tests run.
func (q *MoveQueue) SetBackend(ax Axis, b StepperBackend) {
	q.backends[ax] = b
}

// Enqueue appends a chunk to an axis queue. It rejects malformed
// chunks, rejects everything while emergency-stopped, and reports a
// full ring without mutating anything. Chunks enqueued during feed
// hold are accepted but not drained until resume.
func (q *MoveQueue) Enqueue(ax Axis, chunk StepChunk) error {
	if chunk.Count == 0 || chunk.Interval == 0 {
		return ErrBadChunk
	}
	if q.safety.Current() == StateEmergencyStopped {
		return ErrEmergencyStopped
	}

	a := &q.axes[ax]
	head := atomic.LoadUint32(&a.head)
	next := (head + 1) % QueueCapacity
	if next == atomic.LoadUint32(&a.tail) {
		return ErrQueueFull
	}

	a.ring[head] = chunk
	atomic.StoreUint32(&a.head, next)
	atomic.StoreUint32(&a.activeFlag, 1)
	RecordTiming(EvtEnqueue, uint8(ax), Ticks(), chunk.Count)
	return nil
}

// Depth returns the number of chunks waiting in an axis ring, not
// counting a partially consumed chunk.
func (q *MoveQueue) Depth(ax Axis) uint32 {
	a := &q.axes[ax]
	head := atomic.LoadUint32(&a.head)
	tail := atomic.LoadUint32(&a.tail)
	if head >= tail {
		return head - tail
	}
	return QueueCapacity - tail + head
}

// FreeSlots returns how many more chunks an axis ring can accept.
func (q *MoveQueue) FreeSlots(ax Axis) uint32 {
	return QueueCapacity - 1 - q.Depth(ax)
}

// IsActive reports whether the axis has queued or in-progress motion.
// The flag is the one signal the tick context communicates back to
// foreground code; it is cleared when the queue runs dry.
func (q *MoveQueue) IsActive(ax Axis) bool {
	a := &q.axes[ax]
	return atomic.LoadUint32(&a.activeFlag) != 0 || q.Depth(ax) > 0
}

// Position returns the absolute step position of an axis, signed,
// accumulated across the axis's whole lifetime.
func (q *MoveQueue) Position(ax Axis) int64 {
	state := disableInterrupts()
	pos := q.axes[ax].position
	restoreInterrupts(state)
	return pos
}

// ZeroPosition resets the absolute position counter, used when homing
// establishes the physical reference.
func (q *MoveQueue) ZeroPosition(ax Axis) {
	state := disableInterrupts()
	q.axes[ax].position = 0
	restoreInterrupts(state)
}

// Pause freezes draining for one axis. Partial chunk progress
// (remaining steps and delay countdown) is preserved exactly, so a
// later Resume continues as if the pause never happened.
func (q *MoveQueue) Pause(ax Axis) {
	atomic.StoreUint32(&q.axes[ax].paused, 1)
}

// Resume clears a paused axis.
func (q *MoveQueue) Resume(ax Axis) {
	atomic.StoreUint32(&q.axes[ax].paused, 0)
}

// Paused reports whether an axis is frozen.
func (q *MoveQueue) Paused(ax Axis) bool {
	return atomic.LoadUint32(&q.axes[ax].paused) != 0
}

// PauseAll freezes both axes (feed hold).
func (q *MoveQueue) PauseAll() {
	for ax := Axis(0); ax < NumAxes; ax++ {
		q.Pause(ax)
	}
}

// ResumeAll releases both axes.
func (q *MoveQueue) ResumeAll() {
	for ax := Axis(0); ax < NumAxes; ax++ {
		q.Resume(ax)
	}
}

// EmergencyStop discards all queued and in-progress motion for an
// axis and disables its driver. The position counter is preserved so
// the machine still knows where it physically is. The caller must
// have latched the safety state to EMERGENCY_STOPPED first; that is
// what keeps the tick context out of this state while it is cleared.
func (q *MoveQueue) EmergencyStop(ax Axis) {
	q.Flush(ax)
	if b := q.backends[ax]; b != nil {
		b.SetEnable(false)
	}
}

// Flush discards all queued and in-progress motion for an axis
// without touching the driver enable. Position is preserved. Runs
// with interrupts masked so the tick context never sees the live
// chunk half-cleared.
func (q *MoveQueue) Flush(ax Axis) {
	state := disableInterrupts()
	a := &q.axes[ax]
	atomic.StoreUint32(&a.tail, atomic.LoadUint32(&a.head))
	a.active = StepChunk{}
	a.delayLeft = 0
	a.running = false
	atomic.StoreUint32(&a.activeFlag, 0)
	restoreInterrupts(state)
}

// QuickStop drops all chunks still waiting in the ring but lets the
// currently loaded chunk finish, after which the axis idles.
func (q *MoveQueue) QuickStop(ax Axis) {
	state := disableInterrupts()
	a := &q.axes[ax]
	atomic.StoreUint32(&a.tail, atomic.LoadUint32(&a.head))
	restoreInterrupts(state)
}

// EnableDrivers re-enables the axis drivers after an emergency stop
// has been reset.
func (q *MoveQueue) EnableDrivers() {
	for ax := Axis(0); ax < NumAxes; ax++ {
		if b := q.backends[ax]; b != nil {
			b.SetEnable(true)
		}
	}
}

// SetEnable drives one axis enable line directly. Used by the host
// M17/M18 commands.
func (q *MoveQueue) SetEnable(ax Axis, on bool) {
	if b := q.backends[ax]; b != nil {
		b.SetEnable(on)
	}
}

// MarkHomed records that an axis has an established reference.
func (q *MoveQueue) MarkHomed(ax Axis, homed bool) {
	q.axes[ax].homed = homed
}

// Homed reports whether an axis has been homed.
func (q *MoveQueue) Homed(ax Axis) bool {
	return q.axes[ax].homed
}

// ChunksLoaded returns the number of chunks latched by the tick
// context since boot (diagnostics).
func (q *MoveQueue) ChunksLoaded() uint32 {
	return atomic.LoadUint32(&q.chunksLoaded)
}

// StepsExecuted returns the number of step pulses emitted since boot.
func (q *MoveQueue) StepsExecuted() uint32 {
	return atomic.LoadUint32(&q.stepsExecuted)
}

// serviceTick advances one axis by at most one step. Runs in the
// scheduler interrupt context only.
func (q *MoveQueue) serviceTick(ax Axis) {
	switch q.safety.Current() {
	case StateEmergencyStopped, StateFeedHold:
		return
	}

	a := &q.axes[ax]
	if atomic.LoadUint32(&a.paused) != 0 {
		return
	}

	if !a.running {
		if !q.loadNext(ax, a) {
			atomic.StoreUint32(&a.activeFlag, 0)
			return
		}
	}

	a.delayLeft--
	if a.delayLeft != 0 {
		return
	}

	if b := q.backends[ax]; b != nil {
		b.Step()
	}
	atomic.AddUint32(&q.stepsExecuted, 1)
	if a.active.Dir == DirForward {
		a.position++
	} else {
		a.position--
	}
	a.active.Count--

	if a.active.Add != 0 {
		next := int64(a.active.Interval) + int64(a.active.Add)
		if next < 1 {
			next = 1
		}
		a.active.Interval = uint32(next)
	}
	a.delayLeft = a.active.Interval

	if a.active.Count == 0 {
		a.running = false
		// Latch the next chunk now so back-to-back chunks leave no
		// timing gap beyond their own intervals.
		if !q.loadNext(ax, a) {
			atomic.StoreUint32(&a.activeFlag, 0)
		}
	}
}

// loadNext pops the next chunk into the live slot. Zero-count chunks
// cannot pass enqueue validation, but if one ever reaches the head it
// is discarded without output.
func (q *MoveQueue) loadNext(ax Axis, a *axisState) bool {
	for {
		tail := atomic.LoadUint32(&a.tail)
		if tail == atomic.LoadUint32(&a.head) {
			return false
		}
		chunk := a.ring[tail]
		atomic.StoreUint32(&a.tail, (tail+1)%QueueCapacity)

		if chunk.Count == 0 {
			continue
		}
		if chunk.Interval == 0 {
			chunk.Interval = 1
		}

		a.active = chunk
		a.delayLeft = chunk.Interval
		a.running = true
		atomic.AddUint32(&q.chunksLoaded, 1)
		RecordTiming(EvtLoadChunk, uint8(ax), Ticks(), chunk.Count)
		if b := q.backends[ax]; b != nil {
			b.SetDirection(chunk.Dir)
		}
		return true
	}
}
