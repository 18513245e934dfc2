package mapview

import (
	"fmt"
	"time"
)

// Validator periodically re-requests on-screen front slots whose image does not
// match their coordinate. It catches fetches that were dropped as stale or lost.
type Validator struct {
	Interval       time.Duration
	RetryFailed    bool
	PendingTimeout time.Duration

	eng     *engine
	elapsed time.Duration
}

// Advance accumulates dt and sweeps front when an interval has elapsed. No
// sweep runs while the layers are swapping. Returns the number of re-requests.
func (v *Validator) Advance(dt time.Duration, front *Layer, state TransitionState) int {
	if v.Interval <= 0 {
		return 0
	}
	v.elapsed += dt
	if v.elapsed < v.Interval {
		return 0
	}
	v.elapsed -= v.Interval
	if state == StateSwapping {
		return 0
	}
	return v.Sweep(front)
}

// Sweep checks every on-screen slot of l once.
func (v *Validator) Sweep(l *Layer) int {
	n := 0
	for i := range l.slots {
		if !l.OnScreen(i) {
			continue
		}
		l.RecomputeSlotCoordinate(i)
		if l.ensureFresh(i, v.RetryFailed, v.PendingTimeout) {
			v.eng.record(l.ID.String(), CatValidator, KeyRefetch, fmt.Sprintf("slot %d %s", i, l.slots[i].Coord.Key()), float64(i))
			n++
		}
	}
	return n
}
