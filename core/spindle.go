package core

import "errors"

var ErrRPMOutOfRange = errors.New("rpm out of range")

// SpindleParams configures the spindle driver.
type SpindleParams struct {
	MaxRPM        float32
	MinRPM        float32
	RampRPMPerSec float32
	// RampIntervalTicks is how often the ramp timer fires, in
	// scheduler ticks.
	RampIntervalTicks uint32
}

// Spindle drives the BLDC motor: direction, brake, enable, and a
// ramped PWM speed command. Speed changes never jump; a scheduler
// timer walks the output toward the target at the configured ramp
// rate, which is what keeps the wire from snapping on spin-up.
type Spindle struct {
	backend SpindleBackend
	est     *RPMEstimator
	sched   *Scheduler

	maxRPM    float32
	minRPM    float32
	rampStep  float32
	rampTicks uint32

	targetRPM float32
	outputRPM float32
	cw        bool
	brake     bool

	rampTimer Timer
}

// NewSpindle creates the spindle driver. The backend may be nil for
// host-side tests; ramping still runs against the internal state.
func NewSpindle(backend SpindleBackend, est *RPMEstimator, sched *Scheduler, p SpindleParams) *Spindle {
	if p.MaxRPM <= 0 {
		p.MaxRPM = 3000
	}
	if p.RampRPMPerSec <= 0 {
		p.RampRPMPerSec = 300
	}
	if p.RampIntervalTicks == 0 {
		// 10ms of ramp granularity at the default tick rate.
		p.RampIntervalTicks = 100
	}
	s := &Spindle{
		backend:   backend,
		est:       est,
		sched:     sched,
		maxRPM:    p.MaxRPM,
		minRPM:    p.MinRPM,
		rampTicks: p.RampIntervalTicks,
		cw:        true,
	}
	dt := float32(p.RampIntervalTicks) / float32(sched.TicksPerSecond())
	s.rampStep = p.RampRPMPerSec * dt
	s.rampTimer.Handler = s.rampEvent
	return s
}

// Start commands the spindle to ramp toward rpm in the given
// direction. Out-of-range speeds are rejected, not clamped.
func (s *Spindle) Start(cw bool, rpm float32) error {
	if rpm <= 0 || rpm > s.maxRPM || rpm < s.minRPM {
		return ErrRPMOutOfRange
	}

	s.cw = cw
	s.brake = false
	if s.backend != nil {
		s.backend.SetDirection(cw)
		s.backend.SetBrake(false)
		s.backend.SetEnable(true)
	}
	s.targetRPM = rpm
	s.kickRamp()
	return nil
}

// Stop ramps the spindle down to zero. Always allowed, including
// during feed hold, and idempotent when already stopped.
func (s *Spindle) Stop() {
	if s.targetRPM == 0 && s.outputRPM == 0 {
		return
	}
	s.targetRPM = 0
	s.kickRamp()
}

// EmergencyStop cuts PWM immediately, engages the brake and disables
// the driver stage. No ramp.
func (s *Spindle) EmergencyStop() {
	s.sched.CancelTimer(&s.rampTimer)
	s.targetRPM = 0
	s.outputRPM = 0
	s.brake = true
	if s.backend != nil {
		s.backend.SetDuty(0)
		s.backend.SetBrake(true)
		s.backend.SetEnable(false)
	}
}

// SetBrake engages or releases the brake without touching the speed
// command.
func (s *Spindle) SetBrake(on bool) {
	s.brake = on
	if s.backend != nil {
		s.backend.SetBrake(on)
	}
}

// Enable powers the driver stage, used when resetting from an
// emergency stop.
func (s *Spindle) Enable(on bool) {
	if s.backend != nil {
		s.backend.SetEnable(on)
	}
}

// Running reports whether the spindle is commanded to turn.
func (s *Spindle) Running() bool {
	return s.targetRPM > 0 || s.outputRPM > 0
}

// Clockwise reports the last commanded direction.
func (s *Spindle) Clockwise() bool {
	return s.cw
}

// BrakeEngaged reports brake state.
func (s *Spindle) BrakeEngaged() bool {
	return s.brake
}

// TargetRPM returns the commanded target speed.
func (s *Spindle) TargetRPM() float32 {
	return s.targetRPM
}

// CommandRPM returns the current ramped output command.
func (s *Spindle) CommandRPM() float32 {
	return s.outputRPM
}

// MeasuredRPM returns the Hall estimator's current reading.
func (s *Spindle) MeasuredRPM(nowUS uint32) float32 {
	return s.est.RPM(nowUS)
}

// MaxRPM returns the configured speed ceiling.
func (s *Spindle) MaxRPM() float32 {
	return s.maxRPM
}

func (s *Spindle) kickRamp() {
	s.sched.CancelTimer(&s.rampTimer)
	s.rampTimer.WakeTime = s.sched.TickCount() + s.rampTicks
	s.sched.ScheduleTimer(&s.rampTimer)
}

// rampEvent walks the PWM command toward the target. Interrupt
// context; scalar math only.
func (s *Spindle) rampEvent(t *Timer) uint8 {
	diff := s.targetRPM - s.outputRPM
	switch {
	case diff > s.rampStep:
		s.outputRPM += s.rampStep
	case diff < -s.rampStep:
		s.outputRPM -= s.rampStep
	default:
		s.outputRPM = s.targetRPM
	}

	if s.backend != nil {
		s.backend.SetDuty(s.outputRPM / s.maxRPM)
	}

	if s.outputRPM == s.targetRPM {
		if s.targetRPM == 0 {
			s.brake = true
			if s.backend != nil {
				s.backend.SetBrake(true)
			}
		}
		return SF_DONE
	}
	t.WakeTime += s.rampTicks
	return SF_RESCHEDULE
}
