//go:build rp2040

package main

// Traverse bring-up exerciser. Jogs the traverse axis back and forth
// through a sweep of feed rates so step/dir/enable wiring and the
// scheduler tick path can be verified on a scope before the full
// firmware goes on the board.

import (
	"machine"
	"time"

	"puwinder/core"
	"puwinder/winding"
)

const (
	pinStep = machine.GPIO6
	pinDir  = machine.GPIO5
	pinEna  = machine.GPIO7

	tickPeriodUS = 100
	jogSteps     = 800 // 2mm at 400 steps/mm
)

var jogSpeeds = []float64{500, 1000, 2000, 3000}

type jogStepper struct {
	step, dir, ena machine.Pin
}

func (s *jogStepper) Step() {
	s.step.High()
	for i := 0; i < 20; i++ {
	}
	s.step.Low()
}

func (s *jogStepper) SetDirection(dir core.Direction) {
	s.dir.Set(dir == core.DirReverse)
}

func (s *jogStepper) SetEnable(on bool) {
	s.ena.Set(!on) // active low
}

func main() {
	time.Sleep(3 * time.Second)

	st := &jogStepper{step: pinStep, dir: pinDir, ena: pinEna}
	st.step.Configure(machine.PinConfig{Mode: machine.PinOutput})
	st.dir.Configure(machine.PinConfig{Mode: machine.PinOutput})
	st.ena.Configure(machine.PinConfig{Mode: machine.PinOutput})
	st.SetEnable(true)

	safety := core.NewSafetyState()
	queue := core.NewMoveQueue(safety)
	sched := core.NewScheduler(queue, tickPeriodUS)
	queue.SetBackend(core.AxisTraverse, st)

	tps := sched.TicksPerSecond()
	dir := core.DirForward

	for {
		for _, sps := range jogSpeeds {
			chunks, err := winding.CompressConstant(jogSteps, sps, tps, dir)
			if err != nil {
				continue
			}
			for _, c := range chunks {
				queue.Enqueue(core.AxisTraverse, c)
			}
			last := time.Now()
			for queue.IsActive(core.AxisTraverse) {
				for time.Since(last) >= tickPeriodUS*time.Microsecond {
					last = last.Add(tickPeriodUS * time.Microsecond)
					sched.Tick()
				}
			}
			if dir == core.DirForward {
				dir = core.DirReverse
			} else {
				dir = core.DirForward
			}
			time.Sleep(500 * time.Millisecond)
		}
	}
}
