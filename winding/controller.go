package winding

import (
	"errors"

	"puwinder/core"
)

type State uint8

const (
	StateIdle State = iota
	StateHoming
	StateMovingToStart
	StateRampingUp
	StateWinding
	StateRampingDown
	StateComplete
	StateFault
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateHoming:
		return "HOMING"
	case StateMovingToStart:
		return "MOVING_TO_START"
	case StateRampingUp:
		return "RAMPING_UP"
	case StateWinding:
		return "WINDING"
	case StateRampingDown:
		return "RAMPING_DOWN"
	case StateComplete:
		return "COMPLETE"
	case StateFault:
		return "FAULT"
	}
	return "UNKNOWN"
}

var (
	ErrBusy      = errors.New("winding job already in progress")
	ErrBadParams = errors.New("invalid winding parameters")
)

// Params describes one winding job.
type Params struct {
	TargetTurns    uint32
	SpindleRPM     float32
	WireDiameterMM float64
	WidthMM        float64
	StartPosMM     float64
	Clockwise      bool
}

// Config holds the machine geometry and motion limits the controller
// plans against.
type Config struct {
	StepsPerMM    float64
	MaxTravelMM   float64
	TravelVel     float64 // steps/s for positioning moves
	TravelAccel   float64 // steps/s²
	LowWatermark  uint32  // refill the traverse queue below this depth
	RampSettleRPM float32 // measured RPM slack accepted as "at speed"
}

// Controller runs a complete winding job as a polled state machine:
// home the traverse, move to the coil start, ramp the spindle up,
// lay turns layer by layer with the traverse feed coupled to the
// measured spindle speed, then ramp down. Update is called from the
// foreground loop and never blocks except during homing.
type Controller struct {
	queue   *core.MoveQueue
	sched   *core.Scheduler
	spindle *core.Spindle
	est     *core.RPMEstimator
	homer   *core.Homer
	cfg     Config

	state  State
	params Params
	jobErr error

	turnsPerLayer float64
	totalLayers   uint32
	layer         uint32
	layerDir      core.Direction
	baseRevs      float64
	moveQueued    bool
}

func NewController(queue *core.MoveQueue, sched *core.Scheduler, spindle *core.Spindle, est *core.RPMEstimator, homer *core.Homer, cfg Config) *Controller {
	if cfg.LowWatermark == 0 {
		cfg.LowWatermark = 8
	}
	return &Controller{
		queue:   queue,
		sched:   sched,
		spindle: spindle,
		est:     est,
		homer:   homer,
		cfg:     cfg,
	}
}

func (c *Controller) State() State { return c.state }

// Err returns the failure that moved the controller to StateFault.
func (c *Controller) Err() error { return c.jobErr }

// TurnsCompleted reports whole spindle revolutions laid since the
// winding phase began.
func (c *Controller) TurnsCompleted() uint32 {
	if c.state < StateWinding || c.state == StateFault {
		return 0
	}
	t := float64(c.est.Revolutions()) - c.baseRevs
	if t < 0 {
		return 0
	}
	return uint32(t)
}

func (c *Controller) Layer() uint32 { return c.layer }

// Active reports whether a job is in flight.
func (c *Controller) Active() bool {
	switch c.state {
	case StateIdle, StateComplete, StateFault:
		return false
	}
	return true
}

// Start validates the job and arms the state machine. The actual work
// happens across subsequent Update calls.
func (c *Controller) Start(p Params) error {
	if c.Active() {
		return ErrBusy
	}
	if p.TargetTurns == 0 || p.WireDiameterMM <= 0 || p.WidthMM <= 0 {
		return ErrBadParams
	}
	if p.WidthMM < p.WireDiameterMM {
		return ErrBadParams
	}
	if p.SpindleRPM <= 0 || p.SpindleRPM > c.spindle.MaxRPM() {
		return ErrBadParams
	}
	if p.StartPosMM < 0 || p.StartPosMM+p.WidthMM > c.cfg.MaxTravelMM {
		return ErrBadParams
	}

	c.params = p
	c.turnsPerLayer = p.WidthMM / p.WireDiameterMM
	c.totalLayers = uint32(float64(p.TargetTurns)/c.turnsPerLayer) + 1
	c.layer = 0
	c.layerDir = core.DirForward
	c.jobErr = nil
	c.moveQueued = false
	c.state = StateHoming
	return nil
}

// Abort stops the job: spindle ramps down, any queued traverse motion
// past the active chunk is discarded. The machine returns to idle.
func (c *Controller) Abort() {
	if !c.Active() {
		return
	}
	c.spindle.Stop()
	c.queue.QuickStop(core.AxisTraverse)
	c.state = StateIdle
}

// Fail aborts the job and latches err. Used when an external fault
// (emergency stop) tears the machine down under the controller.
func (c *Controller) Fail(err error) {
	if !c.Active() {
		return
	}
	c.jobErr = err
	c.state = StateFault
}

// Update advances the state machine one poll. nowUS is the current
// free-running microsecond clock.
func (c *Controller) Update(nowUS uint32) {
	switch c.state {
	case StateHoming:
		if err := c.homer.Home(); err != nil {
			c.fault(err)
			return
		}
		c.state = StateMovingToStart

	case StateMovingToStart:
		if !c.moveQueued {
			if err := c.queueMoveTo(c.params.StartPosMM); err != nil {
				c.fault(err)
				return
			}
			c.moveQueued = true
			return
		}
		if !c.queue.IsActive(core.AxisTraverse) {
			c.moveQueued = false
			if err := c.spindle.Start(c.params.Clockwise, c.params.SpindleRPM); err != nil {
				c.fault(err)
				return
			}
			c.state = StateRampingUp
		}

	case StateRampingUp:
		if c.atSpeed(nowUS) {
			c.baseRevs = float64(c.est.Revolutions())
			c.layer = 0
			c.state = StateWinding
		}

	case StateWinding:
		turns := float64(c.est.Revolutions()) - c.baseRevs
		if turns >= float64(c.params.TargetTurns) {
			c.spindle.Stop()
			c.queue.QuickStop(core.AxisTraverse)
			c.state = StateRampingDown
			return
		}
		c.feedTraverse(nowUS)

	case StateRampingDown:
		if !c.spindle.Running() && !c.queue.IsActive(core.AxisTraverse) {
			c.state = StateComplete
		}
	}
}

func (c *Controller) fault(err error) {
	c.jobErr = err
	c.spindle.EmergencyStop()
	c.queue.QuickStop(core.AxisTraverse)
	c.state = StateFault
}

// atSpeed reports whether the spindle has reached the commanded RPM.
// The ramp must have finished; if a Hall signal is present it must
// also confirm the speed within the configured slack.
func (c *Controller) atSpeed(nowUS uint32) bool {
	if c.spindle.CommandRPM() < c.params.SpindleRPM {
		return false
	}
	measured := c.est.RPM(nowUS)
	if measured == 0 {
		// No feedback yet: trust the open-loop ramp.
		return true
	}
	slack := c.cfg.RampSettleRPM
	if slack <= 0 {
		slack = 50
	}
	return measured >= c.params.SpindleRPM-slack
}

// feedTraverse keeps the traverse queue primed with layer passes. The
// feed rate follows the measured spindle speed so the wire pitch holds
// even while the spindle settles.
func (c *Controller) feedTraverse(nowUS uint32) {
	if c.layer >= c.totalLayers {
		return
	}
	if c.queue.Depth(core.AxisTraverse) >= c.cfg.LowWatermark {
		return
	}

	rpm := float64(c.est.RPM(nowUS))
	if rpm <= 0 {
		rpm = float64(c.params.SpindleRPM)
	}
	// mm/s = rev/s * wire pitch.
	feed := rpm / 60 * c.params.WireDiameterMM
	vel := feed * c.cfg.StepsPerMM
	steps := uint32(c.params.WidthMM * c.cfg.StepsPerMM)
	if steps == 0 || vel <= 0 {
		return
	}

	chunks, err := CompressConstant(steps, vel, c.sched.TicksPerSecond(), c.layerDir)
	if err != nil {
		return
	}
	if c.queue.FreeSlots(core.AxisTraverse) < uint32(len(chunks)) {
		return
	}
	for _, ch := range chunks {
		if err := c.queue.Enqueue(core.AxisTraverse, ch); err != nil {
			return
		}
	}

	c.layer++
	if c.layerDir == core.DirForward {
		c.layerDir = core.DirReverse
	} else {
		c.layerDir = core.DirForward
	}
}

// queueMoveTo plans a trapezoidal positioning move from the current
// traverse position to posMM and enqueues it whole.
func (c *Controller) queueMoveTo(posMM float64) error {
	target := int64(posMM * c.cfg.StepsPerMM)
	cur := c.queue.Position(core.AxisTraverse)
	delta := target - cur
	if delta == 0 {
		return nil
	}

	dir := core.DirForward
	if delta < 0 {
		dir = core.DirReverse
		delta = -delta
	}

	chunks, err := CompressTrapezoid(uint32(delta), 0, c.cfg.TravelVel, c.cfg.TravelAccel, c.sched.TicksPerSecond(), dir)
	if err != nil {
		return err
	}
	if c.queue.FreeSlots(core.AxisTraverse) < uint32(len(chunks)) {
		return core.ErrQueueFull
	}
	for _, ch := range chunks {
		if err := c.queue.Enqueue(core.AxisTraverse, ch); err != nil {
			return err
		}
	}
	return nil
}
