package mapview

import (
	"fmt"
	"math"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

// TransitionState is the zoom state machine position.
type TransitionState int

const (
	StateIdle TransitionState = iota
	StateScaling
	StateSwapping
)

func (s TransitionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScaling:
		return "scaling"
	case StateSwapping:
		return "swapping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Compositor owns the two layers and runs zoom transitions between them:
// the front layer scales about the viewport centre while the back layer is
// staged at the new zoom, then roles swap and the old front fades out.
type Compositor struct {
	eng    *engine
	panner *Panner

	front *Layer
	back  *Layer
	state TransitionState
	zoom  int

	minZoom       int
	maxZoom       int
	scaleDuration time.Duration
	fadeDuration  time.Duration

	levels    int
	target    tilemath.Coordinate // reference of the staged back layer
	cornerAt1 Vec                 // target tile's NW corner in front-layer space at scale 1
	scaleAnim Animation
	fadeAnim  Animation
	swapCount int
}

// Front returns the layer currently displayed on top.
func (c *Compositor) Front() *Layer { return c.front }

// Back returns the staging (or fading) layer.
func (c *Compositor) Back() *Layer { return c.back }

// State returns the transition state.
func (c *Compositor) State() TransitionState { return c.state }

// Zoom returns the logical zoom. It advances when a transition starts.
func (c *Compositor) Zoom() int { return c.zoom }

// ZoomBy starts a transition of levels zoom levels. It is rejected (false)
// unless the compositor is idle and the target zoom is within bounds.
func (c *Compositor) ZoomBy(levels int) bool {
	if levels == 0 {
		return false
	}
	if c.state != StateIdle {
		c.reject(levels, "busy")
		return false
	}
	target := c.zoom + levels
	if target < c.minZoom || target > c.maxZoom {
		c.reject(levels, "out of bounds")
		return false
	}

	f := c.front
	pivotIdx, ok := f.SlotAt(Vec{})
	if !ok {
		pivotIdx = f.nearestSlot(Vec{})
	}
	pivot := f.slots[pivotIdx].Coord
	q := pivot.Scale(levels)
	q.X = tilemath.WrapX(q.X, tilemath.CycleLimit(q.Zoom))

	corner := f.corner(pivotIdx)
	if levels < 0 {
		k := 1 << -levels
		dx := float64(pivot.X - tilemath.FloorDiv(pivot.X, k)*k)
		dy := float64(pivot.Y - tilemath.FloorDiv(pivot.Y, k)*k)
		corner = corner.Add(Vec{-dx * f.TileSize, dy * f.TileSize})
	}

	c.levels = levels
	c.target = q
	c.cornerAt1 = corner
	c.zoom = target
	factor := math.Pow(2, float64(levels))
	c.scaleAnim = NewAnimation(f.Scale, f.Scale*factor, c.scaleDuration, ExponentialOut)

	b := c.back
	b.reset()
	b.setReference(b.middleIndex(), q)
	c.align(f.Scale * factor)
	b.recomputeAll(true)
	c.panner.Settle(b)

	c.state = StateScaling
	c.eng.record(f.ID.String(), CatZoom, KeyStart,
		fmt.Sprintf("z%d -> z%d pivot %s", target-levels, target, pivot), float64(levels))
	Logger().Info("zoom transition started", "from", target-levels, "to", target, "pivot", pivot.String())
	return true
}

func (c *Compositor) reject(levels int, reason string) {
	c.eng.record("--", CatZoom, KeyRejected, fmt.Sprintf("%+d at z%d: %s", levels, c.zoom, reason), float64(levels))
	Logger().Info("zoom request rejected", "levels", levels, "zoom", c.zoom, "state", c.state, "reason", reason)
}

// align positions the back layer so its reference tile's NW corner coincides
// with the same geographic corner on the front layer at frontScale.
func (c *Compositor) align(frontScale float64) {
	b := c.back
	backCorner := c.cornerAt1.Mul(frontScale)
	h := b.TileSize / 2
	frontCorner := b.anchor.Add(Vec{-h, h})
	b.Offset = backCorner.Sub(frontCorner)
}

// Advance steps the running transition by dt. Returns true while the layers'
// geometry changed this tick.
func (c *Compositor) Advance(dt time.Duration) bool {
	switch c.state {
	case StateScaling:
		v, done := c.scaleAnim.Advance(dt)
		c.front.Scale = v
		if done {
			c.swap()
		}
		return true
	case StateSwapping:
		a, done := c.fadeAnim.Advance(dt)
		c.back.Alpha = a
		if done {
			c.finish()
		}
		return true
	}
	return false
}

func (c *Compositor) swap() {
	c.align(c.front.Scale)
	c.front, c.back = c.back, c.front
	c.swapCount++

	nf, ob := c.front, c.back
	nf.Visible = true
	nf.Alpha = 1
	nf.ZOrder = frontZOrder
	ob.ZOrder = backZOrder

	c.panner.Settle(nf)
	for i := range nf.slots {
		nf.recompute(i)
		if nf.OnScreen(i) {
			nf.ensureFresh(i, false, 0)
		}
	}

	c.fadeAnim = NewAnimation(1, 0, c.fadeDuration, Linear)
	c.state = StateSwapping
	c.eng.record(nf.ID.String(), CatZoom, KeySwap,
		fmt.Sprintf("ref %s offset (%.1f,%.1f)", nf.reference, nf.Offset.X, nf.Offset.Y), float64(c.zoom))
}

func (c *Compositor) finish() {
	c.back.reset()
	c.state = StateIdle
	c.eng.record(c.front.ID.String(), CatZoom, KeyIdle, fmt.Sprintf("z%d", c.zoom), float64(c.zoom))
	Logger().Info("zoom transition finished", "zoom", c.zoom, "reference", c.front.reference.String())
}
