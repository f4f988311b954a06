//go:build rp2040

package main

import (
	"machine"

	"puwinder/core"
)

// pwmSlice abstracts over TinyGo's unexported *pwmGroup type so the
// peripheral can live in a struct field.
type pwmSlice interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// bldcDriver drives the spindle's external BLDC controller: a PWM
// speed input plus enable, direction and brake lines.
type bldcDriver struct {
	pwm     pwmSlice
	channel uint8
	enable  machine.Pin
	dir     machine.Pin
	brake   machine.Pin
}

func newBLDCDriver() (*bldcDriver, error) {
	d := &bldcDriver{
		// GPIO24 sits on PWM slice 4.
		pwm:    machine.PWM4,
		enable: pinSpindleEnable,
		dir:    pinSpindleDir,
		brake:  pinSpindleBrake,
	}

	d.enable.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.dir.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.brake.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.enable.Low()
	d.brake.High()

	// 25kHz carrier, above the audible range and within the speed
	// input range the BLDC controller accepts.
	if err := d.pwm.Configure(machine.PWMConfig{Period: 40000}); err != nil {
		return nil, err
	}
	ch, err := d.pwm.Channel(pinSpindlePWM)
	if err != nil {
		return nil, err
	}
	d.channel = ch
	d.pwm.Set(ch, 0)
	return d, nil
}

func (d *bldcDriver) SetDuty(duty float32) {
	if duty < 0 {
		duty = 0
	}
	if duty > 1 {
		duty = 1
	}
	d.pwm.Set(d.channel, uint32(duty*float32(d.pwm.Top())))
}

func (d *bldcDriver) SetDirection(cw bool) {
	d.dir.Set(!cw)
}

func (d *bldcDriver) SetBrake(on bool) {
	d.brake.Set(on)
}

func (d *bldcDriver) SetEnable(on bool) {
	d.enable.Set(on)
}

// hallEst is read by the GPIO interrupt handler; TinyGo pin
// interrupts want a plain function, not a capturing closure.
var hallEst *core.RPMEstimator

func hallEdgeISR(machine.Pin) {
	hallEst.OnHallEdge(hwTimeUS())
}

// initHallSensor wires the Hall pulse input straight into the RPM
// estimator. The GPIO interrupt runs independently of the scheduler
// tick; the estimator is written for exactly that context.
func initHallSensor(est *core.RPMEstimator) {
	hallEst = est
	hall := pinSpindleHall
	hall.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	hall.SetInterrupt(machine.PinFalling, hallEdgeISR)
}
