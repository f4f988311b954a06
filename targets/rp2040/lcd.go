//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/hd44780i2c"

	"puwinder/core"
	"puwinder/winding"
)

// statusLCD shows spindle RPM and traverse position on the 16x2
// character display, refreshed from the main loop. Optional hardware:
// a failed probe just disables the display.
type statusLCD struct {
	dev          hd44780i2c.Device
	ok           bool
	lastUpdateUS uint32
}

func newStatusLCD() *statusLCD {
	err := machine.I2C1.Configure(machine.I2CConfig{
		SDA:       pinLCDSDA,
		SCL:       pinLCDSCL,
		Frequency: 400000,
	})
	if err != nil {
		return &statusLCD{}
	}

	dev := hd44780i2c.New(machine.I2C1, lcdAddr)
	if err := dev.Configure(hd44780i2c.Config{Width: 16, Height: 2}); err != nil {
		return &statusLCD{}
	}

	l := &statusLCD{dev: dev, ok: true}
	l.dev.ClearDisplay()
	l.dev.Print([]byte("PUWinder"))
	return l
}

// update refreshes the display at 4Hz. Called from the main loop
// only; the I2C transactions are far too slow for the tick path.
func (l *statusLCD) update(nowUS uint32, rpm float32, posMM float64, winder *winding.Controller) {
	if !l.ok || nowUS-l.lastUpdateUS < 250000 {
		return
	}
	l.lastUpdateUS = nowUS

	line1 := padLine(core.Ftoa(float64(rpm), 0) + "rpm " + core.Ftoa(posMM, 1) + "mm")
	line2 := padLine(winderLine(winder))

	l.dev.SetCursor(0, 0)
	l.dev.Print([]byte(line1))
	l.dev.SetCursor(0, 1)
	l.dev.Print([]byte(line2))
}

func winderLine(w *winding.Controller) string {
	if w == nil || !w.Active() {
		return "ready"
	}
	return w.State().String() + " T" + core.Utoa(w.TurnsCompleted())
}

// padLine pads or truncates to the 16 character row width so stale
// characters never linger.
func padLine(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	for len(s) < 16 {
		s += " "
	}
	return s
}
