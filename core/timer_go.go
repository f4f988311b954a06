//go:build !tinygo

package core

import "sync/atomic"

var systemTicksValue uint32

// getSystemTicks returns the current microsecond counter (host build).
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicksValue)
}

// setSystemTicks sets the microsecond counter (host build).
func setSystemTicks(us uint32) {
	atomic.StoreUint32(&systemTicksValue, us)
}

// AdvanceTicks moves simulated time forward (host build, tests).
func AdvanceTicks(us uint32) {
	atomic.AddUint32(&systemTicksValue, us)
}
