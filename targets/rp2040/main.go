//go:build rp2040

package main

import (
	"machine"

	"puwinder/core"
	"puwinder/gcode"
	"puwinder/winding"
)

// Machine constants for the stock SKR Pico build. The host-side tool
// reads these from YAML; the firmware bakes them in.
const (
	tickPeriodUS = 100

	stepsPerMM      = 400.0
	maxTravelMM     = 200.0
	maxFeedMMPerMin = 3000.0
	rapidSpeedSPS   = 3000.0
	rapidAccelSPS2  = 5000.0
	homingSpeedSPS  = 1500
)

var sched *core.Scheduler

func main() {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: uartBaud,
		TX:       pinUARTTX,
		RX:       pinUARTRX,
	})

	core.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte("\r\n"))
	})

	safety := core.NewSafetyState()
	queue := core.NewMoveQueue(safety)
	sched = core.NewScheduler(queue, tickPeriodUS)

	traverse := newTraverseStepper()
	queue.SetBackend(core.AxisTraverse, traverse)

	est := core.NewRPMEstimator(core.DefaultPulsesPerRev, core.DefaultDebounceUS, core.DefaultStallUS, core.DefaultSmoothing)
	initHallSensor(est)

	bldc, err := newBLDCDriver()
	if err != nil {
		core.DebugPrintln("spindle pwm init failed")
	}
	spindle := core.NewSpindle(bldc, est, sched, core.SpindleParams{
		MaxRPM:        3000,
		RampRPMPerSec: 300,
	})

	clock := hwClock{}
	homer := &core.Homer{
		Queue:  queue,
		Axis:   core.AxisTraverse,
		Switch: newHomeSwitch(),
		Clock:  clock,
		Params: core.HomingParams{
			Interval: sched.TicksPerSecond() / homingSpeedSPS,
			Dir:      core.DirReverse,
		},
	}

	winder := winding.NewController(queue, sched, spindle, est, homer, winding.Config{
		StepsPerMM:  stepsPerMM,
		MaxTravelMM: maxTravelMM,
		TravelVel:   rapidSpeedSPS,
		TravelAccel: rapidAccelSPS2,
	})

	interp := gcode.NewInterpreter(queue, sched, spindle, est, safety, homer, winder, clock, gcode.Config{
		StepsPerMM:      stepsPerMM,
		MaxTravelMM:     maxTravelMM,
		MaxFeedMMPerMin: maxFeedMMPerMin,
		TravelAccel:     rapidAccelSPS2,
	})

	lcd := newStatusLCD()

	lastTickUS = hwTimeUS()

	var line [96]byte
	n := 0

	for {
		pumpScheduler()

		// Drain the UART receive buffer into the line assembler.
		for uart.Buffered() > 0 {
			b, err := uart.ReadByte()
			if err != nil {
				break
			}
			if b == '\n' || b == '\r' {
				if n == 0 {
					continue
				}
				resp := interp.Execute(string(line[:n]))
				n = 0
				if resp != "" {
					uart.Write([]byte(resp))
					uart.Write([]byte("\n"))
				}
				continue
			}
			if n < len(line) {
				line[n] = b
				n++
			} else {
				// Overlong line: discard it whole.
				n = 0
			}
		}

		now := hwTimeUS()
		winder.Update(now)
		lcd.update(now, est.RPM(now), float64(queue.Position(core.AxisTraverse))/stepsPerMM, winder)
	}
}
