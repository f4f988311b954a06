package gcode

import (
	"errors"

	"puwinder/core"
	"puwinder/winding"
)

var ErrBadCommand = errors.New("malformed command")

// Version is the firmware identification reported for VERSION.
const Version = "PUWinder_v1.0"

// Response strings. Every command gets exactly one response line.
const (
	respOK   = "OK"
	respPong = "PONG"

	errUnknownCommand    = "ERROR_UNKNOWN_COMMAND"
	errParse             = "ERROR_PARSE"
	errMissingParam      = "ERROR_MISSING_PARAM"
	errOutOfRange        = "ERROR_OUT_OF_RANGE"
	errQueueFull         = "ERROR_QUEUE_FULL"
	errEmergencyStopped  = "ERROR_EMERGENCY_STOPPED"
	errInvalidState      = "ERROR_INVALID_STATE"
	errSpindleNotStopped = "ERROR_SPINDLE_NOT_STOPPED"
	errHomingFailed      = "ERROR_HOMING_FAILED"
	errWinderBusy        = "ERROR_WINDER_BUSY"
)

// Config holds the interpreter's motion limits and conversions.
type Config struct {
	StepsPerMM          float64
	MaxTravelMM         float64
	MaxFeedMMPerMin     float64
	DefaultFeedMMPerMin float64
	TravelAccel         float64 // steps/s², for G0/G1 profiles
}

// Interpreter executes parsed commands against the motion core. One
// instance services the serial link; Execute is strictly synchronous
// and returns exactly one response line per command, while the motion
// it queues proceeds asynchronously under the tick interrupt.
type Interpreter struct {
	queue   *core.MoveQueue
	sched   *core.Scheduler
	spindle *core.Spindle
	est     *core.RPMEstimator
	safety  *core.SafetyState
	homer   *core.Homer
	winder  *winding.Controller
	clock   core.Clock
	cfg     Config

	// Planner position for the traverse axis, in steps. Runs ahead of
	// the executed position by whatever is still queued.
	plannedPos int64
	lastFeed   float64
}

func NewInterpreter(queue *core.MoveQueue, sched *core.Scheduler, spindle *core.Spindle, est *core.RPMEstimator, safety *core.SafetyState, homer *core.Homer, winder *winding.Controller, clock core.Clock, cfg Config) *Interpreter {
	if cfg.DefaultFeedMMPerMin <= 0 {
		cfg.DefaultFeedMMPerMin = 600
	}
	if cfg.MaxFeedMMPerMin <= 0 {
		cfg.MaxFeedMMPerMin = 3000
	}
	return &Interpreter{
		queue:    queue,
		sched:    sched,
		spindle:  spindle,
		est:      est,
		safety:   safety,
		homer:    homer,
		winder:   winder,
		clock:    clock,
		cfg:      cfg,
		lastFeed: cfg.DefaultFeedMMPerMin,
	}
}

// Execute parses and runs one command line and returns its response.
// Blank and comment-only lines return "".
func (it *Interpreter) Execute(line string) string {
	cmd, err := ParseLine(line)
	if err != nil {
		return errParse
	}
	if cmd == nil {
		return ""
	}

	if cmd.Word != "" {
		return it.executeWord(cmd)
	}

	switch cmd.Type {
	case 'G':
		switch cmd.Number {
		case 0, 1:
			return it.executeMove(cmd)
		case 4:
			return it.executeDwell(cmd)
		case 28:
			return it.executeHome()
		}
	case 'M':
		switch cmd.Number {
		case 0:
			return it.executeFeedHold()
		case 1:
			return it.executeResume()
		case 3:
			return it.executeSpindleStart(cmd, true)
		case 4:
			return it.executeSpindleStart(cmd, false)
		case 5:
			it.spindle.Stop()
			return respOK
		case 12:
			it.spindle.SetBrake(true)
			return respOK
		case 13:
			it.spindle.SetBrake(false)
			return respOK
		case 17:
			it.queue.SetEnable(core.AxisSpindle, true)
			it.queue.SetEnable(core.AxisTraverse, true)
			return respOK
		case 18:
			it.queue.SetEnable(core.AxisSpindle, false)
			it.queue.SetEnable(core.AxisTraverse, false)
			return respOK
		case 112:
			return it.executeEmergencyStop()
		case 114:
			return it.reportPosition()
		case 410:
			return it.executeQuickStop()
		case 999:
			return it.executeReset()
		}
	}

	return errUnknownCommand
}

func (it *Interpreter) executeWord(cmd *Command) string {
	switch cmd.Word {
	case "PING":
		return respPong
	case "VERSION":
		return Version
	case "STATUS":
		return it.reportStatus()
	case "WIND":
		return it.executeWind(cmd)
	}
	return errUnknownCommand
}

// executeMove handles G0/G1: absolute traverse move with optional
// feed rate. The move is planned whole before anything is enqueued,
// so a rejected command leaves no partial motion behind.
func (it *Interpreter) executeMove(cmd *Command) string {
	if it.safety.Current() == core.StateEmergencyStopped {
		return errEmergencyStopped
	}
	if !cmd.HasParameter('Y') {
		return errMissingParam
	}

	targetMM := cmd.Parameters['Y']
	if targetMM < 0 || targetMM > it.cfg.MaxTravelMM {
		return errOutOfRange
	}

	feed := it.lastFeed
	if cmd.HasParameter('F') {
		feed = cmd.Parameters['F']
		if feed <= 0 || feed > it.cfg.MaxFeedMMPerMin {
			return errOutOfRange
		}
	}

	// Resync the planner with the executed position when the axis is
	// idle; a quick stop or flush may have discarded planned motion.
	if !it.queue.IsActive(core.AxisTraverse) {
		it.plannedPos = it.queue.Position(core.AxisTraverse)
	}

	target := int64(targetMM * it.cfg.StepsPerMM)
	delta := target - it.plannedPos
	if delta == 0 {
		it.lastFeed = feed
		return respOK
	}

	dir := core.DirForward
	if delta < 0 {
		dir = core.DirReverse
		delta = -delta
	}

	vel := feed / 60 * it.cfg.StepsPerMM // steps/s
	chunks, err := winding.CompressTrapezoid(uint32(delta), 0, vel, it.cfg.TravelAccel, it.sched.TicksPerSecond(), dir)
	if err != nil {
		return errOutOfRange
	}
	if it.queue.FreeSlots(core.AxisTraverse) < uint32(len(chunks)) {
		return errQueueFull
	}
	for _, ch := range chunks {
		if err := it.queue.Enqueue(core.AxisTraverse, ch); err != nil {
			return errQueueFull
		}
	}

	it.plannedPos = target
	it.lastFeed = feed
	return respOK
}

// executeDwell handles G4. P gives milliseconds; P0 or a missing P
// waits for both axes to drain instead. The wait gives time back to
// the platform via Clock.Pause and bails out if an emergency stop
// lands meanwhile.
func (it *Interpreter) executeDwell(cmd *Command) string {
	ms := cmd.GetParameter('P', 0)
	if ms < 0 {
		return errOutOfRange
	}

	if ms > 0 {
		deadline := it.clock.NowUS() + uint32(ms*1000)
		for it.clock.NowUS()-deadline > 0x80000000 {
			if it.safety.Current() == core.StateEmergencyStopped {
				return respOK
			}
			it.clock.Pause()
		}
		return respOK
	}

	for it.queue.IsActive(core.AxisSpindle) || it.queue.IsActive(core.AxisTraverse) {
		if it.safety.Current() != core.StateNormal {
			// A hold or stop would make the drain unbounded.
			break
		}
		it.clock.Pause()
	}
	return respOK
}

func (it *Interpreter) executeHome() string {
	if it.homer == nil {
		return errInvalidState
	}
	if it.safety.Current() == core.StateEmergencyStopped {
		return errEmergencyStopped
	}
	if err := it.homer.Home(); err != nil {
		return errHomingFailed
	}
	it.plannedPos = 0
	return respOK
}

func (it *Interpreter) executeFeedHold() string {
	switch it.safety.Current() {
	case core.StateFeedHold:
		return respOK // already holding
	case core.StateEmergencyStopped:
		return errEmergencyStopped
	}
	if err := it.safety.FeedHold(); err != nil {
		return errInvalidState
	}
	it.queue.PauseAll()
	return respOK
}

func (it *Interpreter) executeResume() string {
	switch it.safety.Current() {
	case core.StateNormal:
		return respOK // nothing held
	case core.StateEmergencyStopped:
		return errEmergencyStopped
	}
	if err := it.safety.Resume(); err != nil {
		return errInvalidState
	}
	it.queue.ResumeAll()
	return respOK
}

func (it *Interpreter) executeSpindleStart(cmd *Command, cw bool) string {
	if it.safety.Current() != core.StateNormal {
		if it.safety.Current() == core.StateEmergencyStopped {
			return errEmergencyStopped
		}
		return errInvalidState
	}
	if !cmd.HasParameter('S') {
		return errMissingParam
	}
	if err := it.spindle.Start(cw, float32(cmd.Parameters['S'])); err != nil {
		return errOutOfRange
	}
	return respOK
}

// executeEmergencyStop handles M112: latch the safety state, tear
// down both axes and the spindle in the same call, and abort any
// winding job. Always answers OK; an emergency stop must never fail.
func (it *Interpreter) executeEmergencyStop() string {
	it.safety.EmergencyStop()
	it.queue.EmergencyStop(core.AxisSpindle)
	it.queue.EmergencyStop(core.AxisTraverse)
	it.spindle.EmergencyStop()
	if it.winder != nil {
		it.winder.Fail(core.ErrEmergencyStopped)
	}
	return respOK
}

// executeQuickStop handles M410: discard queued motion but let the
// active chunks run out, keeping the position counters truthful.
func (it *Interpreter) executeQuickStop() string {
	it.queue.QuickStop(core.AxisSpindle)
	it.queue.QuickStop(core.AxisTraverse)
	if it.winder != nil {
		it.winder.Abort()
	}
	return respOK
}

func (it *Interpreter) executeReset() string {
	rpm := it.est.RPM(it.clock.NowUS())
	if err := it.safety.Reset(rpm); err != nil {
		if err == core.ErrSpindleNotStopped {
			return errSpindleNotStopped
		}
		return errInvalidState
	}
	it.queue.EnableDrivers()
	it.plannedPos = it.queue.Position(core.AxisTraverse)
	return respOK
}

func (it *Interpreter) executeWind(cmd *Command) string {
	if it.winder == nil {
		return errInvalidState
	}

	// Bare WIND reports job progress.
	if len(cmd.Parameters) == 0 {
		return it.reportWinding()
	}

	if it.safety.Current() != core.StateNormal {
		if it.safety.Current() == core.StateEmergencyStopped {
			return errEmergencyStopped
		}
		return errInvalidState
	}
	if !cmd.HasParameter('T') || !cmd.HasParameter('S') ||
		!cmd.HasParameter('W') || !cmd.HasParameter('D') {
		return errMissingParam
	}

	p := winding.Params{
		TargetTurns:    uint32(cmd.Parameters['T']),
		SpindleRPM:     float32(cmd.Parameters['S']),
		WidthMM:        cmd.Parameters['W'],
		WireDiameterMM: cmd.Parameters['D'],
		StartPosMM:     cmd.GetParameter('Y', 0),
		Clockwise:      true,
	}
	if err := it.winder.Start(p); err != nil {
		if err == winding.ErrBusy {
			return errWinderBusy
		}
		return errOutOfRange
	}
	return respOK
}

// reportStatus builds the fixed STATUS line:
//
//	STATUS: Spindle=<rpm>RPM(<RUN|STOP>) Traverse=<pos>mm
func (it *Interpreter) reportStatus() string {
	rpm := it.est.RPM(it.clock.NowUS())
	run := "STOP"
	if it.spindle.Running() {
		run = "RUN"
	}
	posMM := float64(it.queue.Position(core.AxisTraverse)) / it.cfg.StepsPerMM

	return "STATUS: Spindle=" + core.Ftoa(float64(rpm), 1) +
		"RPM(" + run + ") Traverse=" + core.Ftoa(posMM, 2) + "mm"
}

func (it *Interpreter) reportPosition() string {
	posMM := float64(it.queue.Position(core.AxisTraverse)) / it.cfg.StepsPerMM
	return "POS: Y=" + core.Ftoa(posMM, 2)
}

func (it *Interpreter) reportWinding() string {
	return "WIND: " + it.winder.State().String() +
		" Turns=" + core.Utoa(it.winder.TurnsCompleted()) +
		" Layer=" + core.Utoa(it.winder.Layer())
}
