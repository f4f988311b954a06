package winding

import (
	"errors"
	"math"

	"puwinder/core"
)

var ErrBadProfile = errors.New("velocity and acceleration must be positive")

// DefaultMaxErrTicks bounds the per-step timing error a fitted chunk
// may introduce, in scheduler ticks.
const DefaultMaxErrTicks = 2.0

// maxProfileChunks keeps a whole move enqueueable in one shot; the
// ring holds 63 usable slots and other traffic needs headroom.
const maxProfileChunks = 48

// CompressConstant produces chunks for a constant-velocity run.
// velocity is in steps/second.
func CompressConstant(totalSteps uint32, velocity float64, ticksPerSec uint32, dir core.Direction) ([]core.StepChunk, error) {
	if totalSteps == 0 {
		return nil, nil
	}
	if velocity <= 0 {
		return nil, ErrBadProfile
	}

	interval := uint32(math.Round(float64(ticksPerSec) / velocity))
	if interval == 0 {
		interval = 1
	}
	return []core.StepChunk{{
		Interval: interval,
		Count:    totalSteps,
		Dir:      dir,
	}}, nil
}

// CompressTrapezoid produces chunks for a trapezoidal velocity
// profile: accelerate from startVel to cruiseVel, cruise, decelerate
// back to startVel. Velocities are steps/second, accel steps/second².
// The exact per-step times are generated first and then fitted with
// run-length chunks (constant interval plus a signed per-step add)
// within DefaultMaxErrTicks. The chunk counts always sum to
// totalSteps; compression trades timing precision, never steps.
func CompressTrapezoid(totalSteps uint32, startVel, cruiseVel, accel float64, ticksPerSec uint32, dir core.Direction) ([]core.StepChunk, error) {
	if totalSteps == 0 {
		return nil, nil
	}
	if cruiseVel <= 0 {
		return nil, ErrBadProfile
	}
	if startVel < 0 {
		startVel = 0
	}
	if accel <= 0 || cruiseVel <= startVel {
		return CompressConstant(totalSteps, cruiseVel, ticksPerSec, dir)
	}

	times := stepTimesTrapezoid(totalSteps, startVel, cruiseVel, accel)
	for i := range times {
		times[i] *= float64(ticksPerSec)
	}

	// Widen the error bound until the profile fits the ring; long
	// ramps trade a little timing precision for a bounded chunk count.
	maxErr := DefaultMaxErrTicks
	chunks := fitChunks(times, maxErr)
	for len(chunks) > maxProfileChunks {
		maxErr *= 2
		chunks = fitChunks(times, maxErr)
	}

	for i := range chunks {
		chunks[i].Dir = dir
	}
	return chunks, nil
}

// stepTimesTrapezoid returns the absolute time (seconds) of each step
// edge for the profile. Falls back to a triangular profile when the
// move is too short to reach cruise velocity.
func stepTimesTrapezoid(totalSteps uint32, v0, vc, a float64) []float64 {
	n := int(totalSteps)

	// Steps spent accelerating to cruise.
	na := int(math.Ceil((vc*vc - v0*v0) / (2 * a)))
	if na < 0 {
		na = 0
	}
	nd := na
	if na+nd > n {
		na = n / 2
		nd = n - na
		vc = math.Sqrt(v0*v0 + 2*a*float64(na))
		if vc <= v0 {
			vc = v0 + 1
		}
	}
	ncruise := n - na - nd

	times := make([]float64, n)
	t := 0.0

	// Acceleration phase: s = v0 t + a t²/2, solved per step.
	for i := 1; i <= na; i++ {
		t = (math.Sqrt(v0*v0+2*a*float64(i)) - v0) / a
		times[i-1] = t
	}

	vtop := math.Sqrt(v0*v0 + 2*a*float64(na))
	if vtop > vc {
		vtop = vc
	}
	if vtop <= 0 {
		vtop = 1
	}

	// Cruise phase: evenly spaced.
	base := t
	for i := 1; i <= ncruise; i++ {
		times[na+i-1] = base + float64(i)/vtop
	}

	// Deceleration phase: mirror of the acceleration ramp.
	base = times[na+ncruise-1]
	if na+ncruise == 0 {
		base = 0
	}
	for j := 1; j <= nd; j++ {
		arg := vtop*vtop - 2*a*float64(j)
		if arg < 0 {
			arg = 0
		}
		tau := (vtop - math.Sqrt(arg)) / a
		times[na+ncruise+j-1] = base + tau
	}

	return times
}

// fitChunks greedily covers the step-time sequence with chunks whose
// linear interval model stays within maxErr of the exact times. The
// window is halved until the fit is acceptable; a single step always
// fits.
func fitChunks(times []float64, maxErr float64) []core.StepChunk {
	var chunks []core.StepChunk
	base := 0.0
	i := 0

	for i < len(times) {
		n := len(times) - i
		for {
			interval, add, err := fitWindow(times, i, n, base)
			if err <= maxErr || n == 1 {
				chunks = append(chunks, core.StepChunk{
					Interval: interval,
					Count:    uint32(n),
					Add:      add,
				})
				// Advance the reconstruction base by the exact times
				// so rounding error does not accumulate across chunks.
				base = times[i+n-1]
				i += n
				break
			}
			n /= 2
		}
	}
	return chunks
}

// fitWindow least-squares fits interval+add*k to the step deltas in
// [start, start+n) and returns the rounded coefficients and the worst
// reconstruction error against the exact cumulative times.
func fitWindow(times []float64, start, n int, base float64) (uint32, int32, float64) {
	// Least squares of d_k = c0 + c1*k over k = 0..n-1.
	var sumK, sumK2, sumD, sumKD float64
	prev := base
	for k := 0; k < n; k++ {
		d := times[start+k] - prev
		prev = times[start+k]
		fk := float64(k)
		sumK += fk
		sumK2 += fk * fk
		sumD += d
		sumKD += fk * d
	}

	fn := float64(n)
	var c0, c1 float64
	den := fn*sumK2 - sumK*sumK
	if den != 0 {
		c1 = (fn*sumKD - sumK*sumD) / den
		c0 = (sumD - c1*sumK) / fn
	} else {
		c0 = sumD / fn
	}

	interval := int64(math.Round(c0))
	if interval < 1 {
		interval = 1
	}
	add := int64(math.Round(c1))

	// Reconstruct with the integer model the scheduler will execute.
	worst := 0.0
	cum := base
	cur := interval
	for k := 0; k < n; k++ {
		cum += float64(cur)
		e := math.Abs(cum - times[start+k])
		if e > worst {
			worst = e
		}
		cur += add
		if cur < 1 {
			cur = 1
		}
	}

	return uint32(interval), int32(add), worst
}
