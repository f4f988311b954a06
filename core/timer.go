package core

// Ticks returns the free-running microsecond counter. It wraps after
// about 71 minutes; consumers compare with unsigned subtraction.
func Ticks() uint32 {
	return getSystemTicks()
}

// SetTicks sets the microsecond counter (testing/hardware bring-up).
func SetTicks(us uint32) {
	setSystemTicks(us)
}

// Clock provides foreground timing for blocking operations (homing,
// dwell, planner sync). Pause yields briefly while a blocking
// operation waits for the tick interrupt to make progress; on host
// builds the test pump usually advances simulated time there.
type Clock interface {
	NowUS() uint32
	Pause()
}
