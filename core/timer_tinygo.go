//go:build tinygo

package core

import "time"

// getSystemTicks returns the hardware microsecond counter.
func getSystemTicks() uint32 {
	return uint32(time.Now().UnixNano() / 1000)
}

// setSystemTicks is ignored on hardware; the counter is free-running.
func setSystemTicks(us uint32) {
}
