//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"puwinder/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08 // Raw timer high word
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// hwTimeUS reads the RP2040 hardware timer. The peripheral counts
// microseconds at 1MHz; the low 32 bits match the core's wrap-safe
// timestamp convention.
func hwTimeUS() uint32 {
	return timerRAWL.Get()
}

// hwClock adapts the hardware timer to the core Clock interface.
// Pause keeps the scheduler serviced while a foreground operation
// (homing, dwell) blocks the main loop.
type hwClock struct{}

func (hwClock) NowUS() uint32 { return hwTimeUS() }

func (hwClock) Pause() {
	pumpScheduler()
}

var (
	lastTickUS uint32
)

// pumpScheduler runs the scheduler for every tick period elapsed
// since the last call. Catch-up is bounded so a long stall cannot
// wedge the loop.
func pumpScheduler() {
	now := hwTimeUS()
	core.SetTicks(now)

	period := sched.TickPeriodUS()
	for i := 0; now-lastTickUS >= period && i < 64; i++ {
		lastTickUS += period
		sched.Tick()
	}
	if now-lastTickUS >= period {
		// Fell too far behind; drop the backlog rather than burst.
		lastTickUS = now
	}
}
