package mapview

import (
	"math"
	"time"
)

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// ExponentialOut starts fast and settles towards the end value.
func ExponentialOut(t float64) float64 {
	if t >= 1 {
		return 1
	}
	return 1 - math.Pow(2, -10*t)
}

// Animation interpolates a scalar from Start to End over Duration. It is a plain
// value advanced by the tick loop; completion is observed by the caller.
type Animation struct {
	Start    float64
	End      float64
	Duration time.Duration
	Elapsed  time.Duration
	Ease     Easing
}

// NewAnimation returns an animation with the given easing (Linear when nil).
func NewAnimation(start, end float64, d time.Duration, ease Easing) Animation {
	if ease == nil {
		ease = Linear
	}
	return Animation{Start: start, End: end, Duration: d, Ease: ease}
}

// Done reports whether the animation reached its end value.
func (a Animation) Done() bool {
	return a.Elapsed >= a.Duration
}

// Value returns the current interpolated value. A finished animation returns
// exactly End.
func (a Animation) Value() float64 {
	if a.Done() {
		return a.End
	}
	ease := a.Ease
	if ease == nil {
		ease = Linear
	}
	t := float64(a.Elapsed) / float64(a.Duration)
	return a.Start + (a.End-a.Start)*ease(t)
}

// Advance moves the animation forward by dt and returns the new value and
// whether it has completed.
func (a *Animation) Advance(dt time.Duration) (float64, bool) {
	a.Elapsed += dt
	if a.Elapsed > a.Duration {
		a.Elapsed = a.Duration
	}
	return a.Value(), a.Done()
}
