package core

import (
	"testing"
)

// recordingSpindle captures the driver outputs.
type recordingSpindle struct {
	duty    float32
	cw      bool
	brake   bool
	enabled bool
}

func (b *recordingSpindle) SetDuty(d float32)    { b.duty = d }
func (b *recordingSpindle) SetDirection(cw bool) { b.cw = cw }
func (b *recordingSpindle) SetBrake(on bool)     { b.brake = on }
func (b *recordingSpindle) SetEnable(on bool)    { b.enabled = on }

func newTestSpindle() (*Spindle, *recordingSpindle, *Scheduler) {
	safety := NewSafetyState()
	sched := NewScheduler(NewMoveQueue(safety), 100)
	backend := &recordingSpindle{}
	est := NewRPMEstimator(18, 200, 500000, 0.1)
	sp := NewSpindle(backend, est, sched, SpindleParams{
		MaxRPM:        3000,
		RampRPMPerSec: 300,
	})
	return sp, backend, sched
}

func TestSpindleStartValidation(t *testing.T) {
	sp, _, _ := newTestSpindle()

	cases := []struct {
		name string
		rpm  float32
		want error
	}{
		{"zero", 0, ErrRPMOutOfRange},
		{"negative", -100, ErrRPMOutOfRange},
		{"over max", 3500, ErrRPMOutOfRange},
		{"max", 3000, nil},
		{"normal", 300, nil},
	}

	for _, tc := range cases {
		if err := sp.Start(true, tc.rpm); err != tc.want {
			t.Errorf("%s: Start returned %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestSpindleRampReachesTarget(t *testing.T) {
	sp, backend, sched := newTestSpindle()

	if err := sp.Start(true, 30); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !backend.enabled || backend.brake {
		t.Error("Start did not enable driver with brake released")
	}

	// Ramp is 300 RPM/s in 10ms events: 3 RPM per event, 10 events
	// to reach 30 RPM. Output must never exceed the target.
	for i := 0; i < 2000; i++ {
		sched.Tick()
		if sp.CommandRPM() > 30 {
			t.Fatalf("command overshot to %f", sp.CommandRPM())
		}
	}

	if sp.CommandRPM() != 30 {
		t.Errorf("CommandRPM = %f after ramp, want 30", sp.CommandRPM())
	}
	if backend.duty != 30.0/3000.0 {
		t.Errorf("duty = %f, want %f", backend.duty, 30.0/3000.0)
	}
}

func TestSpindleStopRampsDownAndBrakes(t *testing.T) {
	sp, backend, sched := newTestSpindle()

	sp.Start(true, 30)
	for i := 0; i < 2000; i++ {
		sched.Tick()
	}

	sp.Stop()
	for i := 0; i < 2000; i++ {
		sched.Tick()
	}

	if sp.Running() {
		t.Error("Running = true after stop ramp finished")
	}
	if backend.duty != 0 {
		t.Errorf("duty = %f after stop, want 0", backend.duty)
	}
	if !backend.brake {
		t.Error("brake not engaged after ramp to zero")
	}
}

func TestSpindleStopIdempotent(t *testing.T) {
	sp, _, sched := newTestSpindle()

	// Stopping a stopped spindle is a no-op, not an error.
	sp.Stop()
	sp.Stop()
	for i := 0; i < 500; i++ {
		sched.Tick()
	}
	if sp.Running() {
		t.Error("Running = true after stopping a stopped spindle")
	}

	sp.Start(true, 60)
	for i := 0; i < 500; i++ {
		sched.Tick()
	}
	sp.Stop()
	sp.Stop() // second stop must not disturb the ramp
	for i := 0; i < 5000; i++ {
		sched.Tick()
	}
	if sp.Running() || sp.CommandRPM() != 0 {
		t.Errorf("spindle still running after double stop, command %f", sp.CommandRPM())
	}
}

func TestSpindleEmergencyStopImmediate(t *testing.T) {
	sp, backend, sched := newTestSpindle()

	sp.Start(false, 300)
	for i := 0; i < 500; i++ {
		sched.Tick()
	}
	if sp.CommandRPM() == 0 {
		t.Fatal("ramp never started")
	}

	sp.EmergencyStop()

	// No ramp: everything drops in the same call.
	if sp.CommandRPM() != 0 {
		t.Errorf("CommandRPM = %f after emergency stop, want 0", sp.CommandRPM())
	}
	if backend.duty != 0 {
		t.Errorf("duty = %f after emergency stop, want 0", backend.duty)
	}
	if !backend.brake || backend.enabled {
		t.Error("emergency stop must brake and disable the driver")
	}

	// The cancelled ramp timer must not resurrect the command.
	for i := 0; i < 2000; i++ {
		sched.Tick()
	}
	if sp.CommandRPM() != 0 || backend.duty != 0 {
		t.Error("spindle command came back after emergency stop")
	}
}

func TestSpindleDirection(t *testing.T) {
	sp, backend, _ := newTestSpindle()

	sp.Start(true, 100)
	if !backend.cw || !sp.Clockwise() {
		t.Error("direction not clockwise after M3-style start")
	}

	sp.Start(false, 100)
	if backend.cw || sp.Clockwise() {
		t.Error("direction not counter-clockwise after M4-style start")
	}
}
