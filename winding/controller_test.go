package winding

import (
	"testing"

	"puwinder/core"
)

type stepRecorder struct {
	steps   int
	dir     core.Direction
	enabled bool
}

func (b *stepRecorder) Step()                         { b.steps++ }
func (b *stepRecorder) SetDirection(d core.Direction) { b.dir = d }
func (b *stepRecorder) SetEnable(on bool)             { b.enabled = on }

type spindleRecorder struct {
	duty    float32
	cw      bool
	brake   bool
	enabled bool
}

func (b *spindleRecorder) SetDuty(d float32)    { b.duty = d }
func (b *spindleRecorder) SetDirection(cw bool) { b.cw = cw }
func (b *spindleRecorder) SetBrake(on bool)     { b.brake = on }
func (b *spindleRecorder) SetEnable(on bool)    { b.enabled = on }

type windRig struct {
	ctrl     *Controller
	sched    *core.Scheduler
	queue    *core.MoveQueue
	est      *core.RPMEstimator
	spindle  *core.Spindle
	traverse *stepRecorder
	spinDrv  *spindleRecorder

	// Simulated spindle physics: when the command is nonzero, Hall
	// edges arrive at the commanded speed.
	nextEdgeUS uint32
}

type rigClock struct {
	rig *windRig
}

func (c *rigClock) NowUS() uint32 { return core.Ticks() }
func (c *rigClock) Pause()        { c.rig.step() }

// step advances the world one scheduler tick.
func (r *windRig) step() {
	core.AdvanceTicks(r.sched.TickPeriodUS())
	r.sched.Tick()

	rpm := r.spindle.CommandRPM()
	if rpm > 0 {
		// 18 pulses per rev.
		period := uint32(60000000.0 / (rpm * 18))
		now := core.Ticks()
		if r.nextEdgeUS == 0 {
			r.nextEdgeUS = now + period
		}
		if now >= r.nextEdgeUS {
			r.est.OnHallEdge(now)
			r.nextEdgeUS = now + period
		}
	} else {
		r.nextEdgeUS = 0
	}
}

func newWindRig() *windRig {
	core.SetTicks(0)

	safety := core.NewSafetyState()
	queue := core.NewMoveQueue(safety)
	sched := core.NewScheduler(queue, 100)

	traverse := &stepRecorder{enabled: true}
	queue.SetBackend(core.AxisTraverse, traverse)

	spinDrv := &spindleRecorder{}
	est := core.NewRPMEstimator(18, 200, 500000, 0.5)
	spindle := core.NewSpindle(spinDrv, est, sched, core.SpindleParams{
		MaxRPM:        3000,
		RampRPMPerSec: 3000,
	})

	rig := &windRig{
		sched:    sched,
		queue:    queue,
		est:      est,
		spindle:  spindle,
		traverse: traverse,
		spinDrv:  spinDrv,
	}

	homer := &core.Homer{
		Queue:  queue,
		Axis:   core.AxisTraverse,
		Switch: core.SwitchFunc(func() bool { return traverse.steps >= 3 }),
		Clock:  &rigClock{rig: rig},
		Params: core.HomingParams{Interval: 1, Burst: 4, Dir: core.DirReverse},
	}

	rig.ctrl = NewController(queue, sched, spindle, est, homer, Config{
		StepsPerMM:   10,
		MaxTravelMM:  200,
		TravelVel:    1000,
		TravelAccel:  2000,
		LowWatermark: 4,
	})
	return rig
}

// run pumps the world until the predicate holds or the tick budget
// runs out.
func (r *windRig) run(t *testing.T, budget int, until func() bool) {
	t.Helper()
	for i := 0; i < budget; i++ {
		r.ctrl.Update(core.Ticks())
		r.step()
		if until() {
			return
		}
	}
	t.Fatalf("condition not reached in %d ticks, state %v err %v", budget, r.ctrl.State(), r.ctrl.Err())
}

func TestStartValidation(t *testing.T) {
	rig := newWindRig()

	cases := []struct {
		name string
		p    Params
	}{
		{"zero turns", Params{TargetTurns: 0, SpindleRPM: 300, WireDiameterMM: 0.1, WidthMM: 10}},
		{"zero wire", Params{TargetTurns: 10, SpindleRPM: 300, WireDiameterMM: 0, WidthMM: 10}},
		{"zero width", Params{TargetTurns: 10, SpindleRPM: 300, WireDiameterMM: 0.1, WidthMM: 0}},
		{"wire wider than coil", Params{TargetTurns: 10, SpindleRPM: 300, WireDiameterMM: 5, WidthMM: 1}},
		{"rpm over max", Params{TargetTurns: 10, SpindleRPM: 4000, WireDiameterMM: 0.1, WidthMM: 10}},
		{"window past travel", Params{TargetTurns: 10, SpindleRPM: 300, WireDiameterMM: 0.1, WidthMM: 10, StartPosMM: 195}},
	}

	for _, tc := range cases {
		if err := rig.ctrl.Start(tc.p); err != ErrBadParams {
			t.Errorf("%s: Start returned %v, want ErrBadParams", tc.name, err)
		}
		if rig.ctrl.Active() {
			t.Errorf("%s: controller active after rejected start", tc.name)
		}
	}
}

func TestStartWhileBusy(t *testing.T) {
	rig := newWindRig()

	p := Params{TargetTurns: 5, SpindleRPM: 600, WireDiameterMM: 1, WidthMM: 5, StartPosMM: 2, Clockwise: true}
	if err := rig.ctrl.Start(p); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := rig.ctrl.Start(p); err != ErrBusy {
		t.Errorf("second Start returned %v, want ErrBusy", err)
	}
}

func TestFullWindingJob(t *testing.T) {
	rig := newWindRig()

	p := Params{
		TargetTurns:    5,
		SpindleRPM:     600,
		WireDiameterMM: 1,
		WidthMM:        5,
		StartPosMM:     2,
		Clockwise:      true,
	}
	if err := rig.ctrl.Start(p); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if rig.ctrl.State() != StateHoming {
		t.Fatalf("state = %v after Start, want HOMING", rig.ctrl.State())
	}

	// Homing happens inside the first Update.
	rig.run(t, 1000, func() bool { return rig.ctrl.State() == StateMovingToStart })
	if !rig.queue.Homed(core.AxisTraverse) {
		t.Error("axis not homed")
	}

	rig.run(t, 50000, func() bool { return rig.ctrl.State() == StateWinding })
	// At the winding handoff the traverse sits at the start position.
	if got := rig.queue.Position(core.AxisTraverse); got != 20 {
		t.Errorf("position = %d at winding start, want 20", got)
	}

	rig.run(t, 2000000, func() bool { return rig.ctrl.State() == StateComplete })

	if got := rig.ctrl.TurnsCompleted(); got < 5 {
		t.Errorf("TurnsCompleted = %d, want >= 5", got)
	}
	if rig.spindle.Running() {
		t.Error("spindle still running after job complete")
	}
	if rig.queue.IsActive(core.AxisTraverse) {
		t.Error("traverse still active after job complete")
	}
	// 5 turns of 1mm wire over a 5mm width is one full layer.
	if rig.ctrl.Layer() == 0 {
		t.Error("no layer was laid")
	}
}

func TestAbortReturnsToIdle(t *testing.T) {
	rig := newWindRig()

	p := Params{TargetTurns: 1000, SpindleRPM: 600, WireDiameterMM: 1, WidthMM: 5, StartPosMM: 2, Clockwise: true}
	if err := rig.ctrl.Start(p); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	rig.run(t, 100000, func() bool { return rig.ctrl.State() == StateWinding })

	rig.ctrl.Abort()
	if rig.ctrl.State() != StateIdle {
		t.Errorf("state = %v after Abort, want IDLE", rig.ctrl.State())
	}
	if rig.ctrl.Active() {
		t.Error("controller active after Abort")
	}
	// Spindle is ramping down, not cut.
	if rig.spindle.TargetRPM() != 0 {
		t.Errorf("spindle target = %f after Abort, want 0", rig.spindle.TargetRPM())
	}
}

func TestFailLatchesError(t *testing.T) {
	rig := newWindRig()

	p := Params{TargetTurns: 1000, SpindleRPM: 600, WireDiameterMM: 1, WidthMM: 5, StartPosMM: 2, Clockwise: true}
	if err := rig.ctrl.Start(p); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	rig.run(t, 100000, func() bool { return rig.ctrl.State() == StateWinding })

	rig.ctrl.Fail(core.ErrEmergencyStopped)
	if rig.ctrl.State() != StateFault {
		t.Errorf("state = %v after Fail, want FAULT", rig.ctrl.State())
	}
	if rig.ctrl.Err() != core.ErrEmergencyStopped {
		t.Errorf("Err = %v, want ErrEmergencyStopped", rig.ctrl.Err())
	}

	// A faulted controller accepts a fresh job.
	if err := rig.ctrl.Start(p); err != nil {
		t.Errorf("Start after fault failed: %v", err)
	}
}

func TestStateNames(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateHoming, "HOMING"},
		{StateMovingToStart, "MOVING_TO_START"},
		{StateRampingUp, "RAMPING_UP"},
		{StateWinding, "WINDING"},
		{StateRampingDown, "RAMPING_DOWN"},
		{StateComplete, "COMPLETE"},
		{StateFault, "FAULT"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
