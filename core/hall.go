package core

// RPMEstimator turns asynchronous Hall-sensor edge timestamps into a
// smoothed spindle RPM figure. OnHallEdge runs in the GPIO interrupt,
// independent of the scheduler tick; it performs only scalar writes
// so no lock is needed between it and foreground readers.
//
// A single Hall line cannot give direction, so direction is tracked
// from the last commanded direction elsewhere, not measured here.
type RPMEstimator struct {
	pulsesPerRev float32
	debounceUS   uint32
	stallUS      uint32
	alpha        float32

	lastEdgeUS  uint32
	haveEdge    bool
	havePeriod  bool
	smoothedRPM float32
	edgeCount   uint32
}

// Default estimator tuning, from the winder's 18-pulse-per-rev BLDC.
const (
	DefaultPulsesPerRev = 18.0
	DefaultDebounceUS   = 200
	DefaultStallUS      = 500000
	DefaultSmoothing    = 0.1
)

// NewRPMEstimator creates an estimator. Zero arguments pick defaults.
func NewRPMEstimator(pulsesPerRev float32, debounceUS, stallUS uint32, alpha float32) *RPMEstimator {
	if pulsesPerRev <= 0 {
		pulsesPerRev = DefaultPulsesPerRev
	}
	if debounceUS == 0 {
		debounceUS = DefaultDebounceUS
	}
	if stallUS == 0 {
		stallUS = DefaultStallUS
	}
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothing
	}
	return &RPMEstimator{
		pulsesPerRev: pulsesPerRev,
		debounceUS:   debounceUS,
		stallUS:      stallUS,
		alpha:        alpha,
	}
}

// OnHallEdge records one sensor transition. Edges closer together
// than the debounce floor are contact bounce or electrical noise and
// are discarded without touching the stored timestamp.
func (e *RPMEstimator) OnHallEdge(nowUS uint32) {
	if !e.haveEdge {
		e.lastEdgeUS = nowUS
		e.haveEdge = true
		e.edgeCount++
		return
	}

	delta := nowUS - e.lastEdgeUS
	if delta < e.debounceUS {
		return
	}

	instant := 60000000.0 / (float32(delta) * e.pulsesPerRev)
	if e.havePeriod {
		e.smoothedRPM += e.alpha * (instant - e.smoothedRPM)
	} else {
		e.smoothedRPM = instant
		e.havePeriod = true
	}
	e.lastEdgeUS = nowUS
	e.edgeCount++
}

// RPM returns the smoothed estimate, or 0 if no edge has arrived
// within the stall timeout. A stalled sensor usually means the motor
// genuinely stopped, so the stale smoothed value must not leak out.
func (e *RPMEstimator) RPM(nowUS uint32) float32 {
	if !e.havePeriod {
		return 0
	}
	if nowUS-e.lastEdgeUS > e.stallUS {
		return 0
	}
	return e.smoothedRPM
}

// Revolutions returns total fractional revolutions since the last
// reset, derived from the raw edge count. The winding controller uses
// this for turn tracking.
func (e *RPMEstimator) Revolutions() float32 {
	return float32(e.edgeCount) / e.pulsesPerRev
}

// EdgeCount returns the raw number of accepted edges.
func (e *RPMEstimator) EdgeCount() uint32 {
	return e.edgeCount
}

// ResetRevolutions zeroes the turn counter at the start of a winding
// run. The speed estimate is left alone.
func (e *RPMEstimator) ResetRevolutions() {
	e.edgeCount = 0
}
