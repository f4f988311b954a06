//go:build rp2040

package main

import (
	"machine"

	"puwinder/core"
)

// traverseStepper drives the TMC2209 step/dir/enable lines for the
// traverse axis. Step runs in the tick path and keeps the pulse width
// down to a few cycles of loop delay.
type traverseStepper struct {
	step machine.Pin
	dir  machine.Pin
	ena  machine.Pin // active low
}

func newTraverseStepper() *traverseStepper {
	s := &traverseStepper{
		step: pinTraverseStep,
		dir:  pinTraverseDir,
		ena:  pinTraverseEna,
	}
	s.step.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.dir.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.ena.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.step.Low()
	s.ena.High() // disabled until homing or motion enables it
	return s
}

func (s *traverseStepper) Step() {
	s.step.High()
	// TMC2209 needs >100ns of pulse width; a handful of loop
	// iterations at 133MHz covers it.
	for i := 0; i < 20; i++ {
	}
	s.step.Low()
}

func (s *traverseStepper) SetDirection(dir core.Direction) {
	s.dir.Set(dir == core.DirReverse)
}

func (s *traverseStepper) SetEnable(on bool) {
	s.ena.Set(!on)
}

// homeSwitch reads the traverse endstop, wired normally open to
// ground.
type homeSwitch struct {
	pin machine.Pin
}

func newHomeSwitch() *homeSwitch {
	h := &homeSwitch{pin: pinTraverseHome}
	h.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return h
}

func (h *homeSwitch) Triggered() bool {
	return !h.pin.Get()
}
