package core

// DebugWriter is a function type for writing debug messages.
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis.
type TimingEvent struct {
	EventType uint8
	Axis      uint8
	Tick      uint32
	Value     uint32
}

// Event type codes
const (
	EvtEnqueue   = 1 // chunk accepted into a ring
	EvtLoadChunk = 2 // chunk latched by the tick context
	EvtEStop     = 3 // emergency stop latched
	EvtHallEdge  = 4 // hall edge accepted
	EvtHomingHit = 5 // home switch confirmed
)

const (
	// TimingRingSize keeps the last 32 events for post-mortem.
	TimingRingSize = 32
)

var (
	// debugPrintln is the global debug print function, installed by
	// platform code (UART on hardware, stdout on the host).
	debugPrintln DebugWriter = func(s string) {}

	// Disabled by default; debug output costs timing margin.
	debugEnabled bool = false

	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform writer.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming captures a timing event in the ring buffer. Always
// non-blocking; safe from interrupt context.
func RecordTiming(eventType, axis uint8, tick, value uint32) {
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Axis:      axis,
		Tick:      tick,
		Value:     value,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// DumpTimingRing outputs the timing ring buffer, oldest first. Call
// after stopping time-critical code, never from the tick.
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		idx := (start + i) % TimingRingSize
		evt := &timingRing[idx]
		if evt.EventType == 0 {
			continue
		}

		var name string
		switch evt.EventType {
		case EvtEnqueue:
			name = "ENQUEUE"
		case EvtLoadChunk:
			name = "LOAD_CHUNK"
		case EvtEStop:
			name = "ESTOP"
		case EvtHallEdge:
			name = "HALL_EDGE"
		case EvtHomingHit:
			name = "HOMING_HIT"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[TIMING] " + name +
			" axis=" + itoa(int(evt.Axis)) +
			" tick=" + utoa(evt.Tick) +
			" val=" + utoa(evt.Value))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer.
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
