//go:build rp2040

package main

import "machine"

// Pin assignments for the SKR Pico carrier.
const (
	// UART link to the host
	pinUARTTX = machine.GPIO0
	pinUARTRX = machine.GPIO1
	uartBaud  = 115200

	// BLDC spindle
	pinSpindlePWM    = machine.GPIO24
	pinSpindleEnable = machine.GPIO21
	pinSpindleHall   = machine.GPIO22
	pinSpindleDir    = machine.GPIO3 // low = clockwise
	pinSpindleBrake  = machine.GPIO4 // high = brake

	// Traverse stepper
	pinTraverseStep = machine.GPIO6
	pinTraverseDir  = machine.GPIO5
	pinTraverseEna  = machine.GPIO7 // active low
	pinTraverseHome = machine.GPIO16

	// Status LCD (I2C1)
	pinLCDSDA = machine.GPIO26
	pinLCDSCL = machine.GPIO27
	lcdAddr   = 0x27
)
