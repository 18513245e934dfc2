package app

import (
	"math"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/config"
	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type actionKind int

const (
	actionPan actionKind = iota
	actionZoom
	actionZoomScale
	actionPlaceMarker
	actionRemoveMarker
	actionCopyCenter
	actionToggleHUD
	actionToggleEvents
)

// action is one map command derived from a frame of input.
type action struct {
	kind   actionKind
	vec    mapview.Vec // pan delta or screen point, +Y up
	levels int
	scale  float64
}

// minInertia is the speed (px/tick) below which a flick stops.
const minInertia = 0.05

// inertia keeps a released drag moving and decays it exponentially.
type inertia struct {
	velocity mapview.Vec
	decay    float64 // per-tick multiplier
}

// newInertia decays a flick to 1% of its speed over d at tps ticks per second.
func newInertia(d time.Duration, tps int) inertia {
	ticks := d.Seconds() * float64(tps)
	if ticks <= 0 {
		return inertia{}
	}
	return inertia{decay: math.Pow(0.01, 1/ticks)}
}

func (in *inertia) release(v mapview.Vec) {
	if in.decay == 0 {
		return
	}
	in.velocity = v
}

func (in *inertia) stop() { in.velocity = mapview.Vec{} }

// step returns this tick's movement and decays the velocity.
func (in *inertia) step() mapview.Vec {
	if in.velocity.Len() < minInertia {
		in.velocity = mapview.Vec{}
		return mapview.Vec{}
	}
	v := in.velocity
	in.velocity = in.velocity.Mul(in.decay)
	return v
}

// clickTracker recognises double clicks by time and distance.
type clickTracker struct {
	window   time.Duration
	slop     float64
	lastAt   time.Time
	lastPos  mapview.Vec
	hasFirst bool
}

// click records a press at p and reports whether it completes a double click.
func (c *clickTracker) click(now time.Time, p mapview.Vec) bool {
	if c.hasFirst && now.Sub(c.lastAt) <= c.window && p.Dist(c.lastPos) <= c.slop {
		c.hasFirst = false
		return true
	}
	c.hasFirst, c.lastAt, c.lastPos = true, now, p
	return false
}

// pinch turns a two-finger gesture into one zoom-to-scale on release.
type pinch struct {
	active bool
	start  float64
	last   float64
}

func (p *pinch) update(dist float64) {
	if !p.active {
		p.active, p.start = true, dist
	}
	p.last = dist
}

// end returns the gesture's scale factor, or 0 if no pinch was in progress.
func (p *pinch) end() float64 {
	if !p.active || p.start <= 0 {
		p.active = false
		return 0
	}
	p.active = false
	return p.last / p.start
}

type inputState struct {
	cfg     config.InputConfig
	tps     int
	inertia inertia
	clicks  clickTracker
	pinch   pinch

	dragging   bool
	dragLast   mapview.Vec
	dragVel    mapview.Vec
	wheelAccum float64
	touches    []ebiten.TouchID
	lastMarker uuid.UUID
}

func newInputState(cfg config.InputConfig, tps int) *inputState {
	return &inputState{
		cfg:     cfg,
		tps:     tps,
		inertia: newInertia(cfg.InertiaDuration, tps),
		clicks:  clickTracker{window: cfg.DoubleClick, slop: 6},
	}
}

// toScreen converts window pixels (origin top-left, +Y down) to map screen
// space (origin at the centre, +Y up).
func toScreen(x, y float64, w, h int) mapview.Vec {
	return mapview.Vec{X: x - float64(w)/2, Y: float64(h)/2 - y}
}

// toWindow is the inverse of toScreen.
func toWindow(p mapview.Vec, w, h int) (x, y float64) {
	return p.X + float64(w)/2, float64(h)/2 - p.Y
}

// poll reads this frame's keyboard, mouse and touch input.
func (in *inputState) poll(w, h int) []action {
	var acts []action
	pan := in.pollPointer(w, h, &acts)

	step := in.cfg.KeyPanSpeed / float64(in.tps)
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		pan.Y -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		pan.Y += step
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		pan.X += step
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		pan.X -= step
	}
	if !pan.IsZero() {
		acts = append(acts, action{kind: actionPan, vec: pan})
	}

	// One zoom level per wheel notch.
	_, wy := ebiten.Wheel()
	in.wheelAccum += wy
	if levels := int(in.wheelAccum); levels != 0 {
		in.wheelAccum -= float64(levels)
		acts = append(acts, action{kind: actionZoom, levels: levels})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		acts = append(acts, action{kind: actionZoom, levels: 1})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		acts = append(acts, action{kind: actionZoom, levels: -1})
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		acts = append(acts, action{kind: actionRemoveMarker})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		acts = append(acts, action{kind: actionCopyCenter})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		acts = append(acts, action{kind: actionToggleHUD})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		acts = append(acts, action{kind: actionToggleEvents})
	}
	return acts
}

// pollPointer handles mouse drags, double clicks and touch gestures. It
// returns the pointer-driven pan for this frame.
func (in *inputState) pollPointer(w, h int, acts *[]action) mapview.Vec {
	in.touches = ebiten.AppendTouchIDs(in.touches[:0])
	if len(in.touches) >= 2 {
		ax, ay := ebiten.TouchPosition(in.touches[0])
		bx, by := ebiten.TouchPosition(in.touches[1])
		in.pinch.update(math.Hypot(float64(ax-bx), float64(ay-by)))
		in.dragging = false
		in.inertia.stop()
		return mapview.Vec{}
	}
	if s := in.pinch.end(); s > 0 {
		*acts = append(*acts, action{kind: actionZoomScale, scale: s})
	}

	var (
		pressed bool
		x, y    int
	)
	switch {
	case len(in.touches) == 1:
		pressed = true
		x, y = ebiten.TouchPosition(in.touches[0])
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		pressed = true
		x, y = ebiten.CursorPosition()
	}
	p := toScreen(float64(x), float64(y), w, h)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) || len(inpututil.AppendJustPressedTouchIDs(nil)) > 0 {
		if in.clicks.click(time.Now(), p) {
			*acts = append(*acts, action{kind: actionPlaceMarker, vec: p})
		}
	}

	switch {
	case pressed && !in.dragging:
		in.dragging, in.dragLast, in.dragVel = true, p, mapview.Vec{}
		in.inertia.stop()
		return mapview.Vec{}
	case pressed:
		d := p.Sub(in.dragLast)
		in.dragLast = p
		// Smoothed for the release flick.
		in.dragVel = in.dragVel.Mul(0.6).Add(d.Mul(0.4))
		return d
	case in.dragging:
		in.dragging = false
		in.inertia.release(in.dragVel)
	}
	return in.inertia.step()
}
