// Package mapview is the slippy-map engine: two grids of recycled tile slots,
// pan-driven recycling, animated zoom transitions between the grids, marker
// projection and periodic repair of stale tiles. Everything runs on the tick
// goroutine; other goroutines talk to it through commands.
package mapview

import (
	"image"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

// SlotView describes one slot to a renderer.
type SlotView struct {
	Layer LayerID
	Index int
	Coord tilemath.Coordinate
	Key   string // assigned image key, "" when nothing is shown
	Rect  Rect
}

// Renderer draws slot images. img is nil when the slot has no current image.
type Renderer interface {
	Present(v SlotView, img image.Image, alpha float64)
}

// Map ties the layers, compositor, panner, markers and validator together.
type Map struct {
	cfg        Config
	eng        *engine
	layers     [2]*Layer
	compositor *Compositor
	panner     *Panner
	markers    *MarkerSet
	validator  *Validator

	mu    sync.Mutex
	queue []Command

	pendingPan  Vec
	needsSettle bool // viewport changed while a transition owned the front
	dirty       bool
}

// New builds a map from cfg. loader receives every fetch request.
func New(cfg Config, loader Loader) (*Map, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	eng := &engine{
		loader:   loader,
		events:   NewEventLog(cfg.EventLogLimit),
		viewport: Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
	}
	m := &Map{cfg: cfg, eng: eng}
	for i := range m.layers {
		m.layers[i] = newLayer(LayerID(i), eng)
		m.layers[i].Initialize(cfg.GridWidth, cfg.GridHeight, cfg.TileSize)
	}
	m.panner = &Panner{eng: eng, clampVertical: cfg.ClampVertical}
	m.markers = newMarkerSet(eng, cfg.MarkerFadeDuration)
	m.validator = &Validator{
		Interval:       cfg.ValidatorInterval,
		RetryFailed:    cfg.RetryFailed,
		PendingTimeout: cfg.PendingTimeout,
		eng:            eng,
	}

	zoom := min(max(cfg.StartZoom, cfg.MinZoom), cfg.MaxZoom)
	front, back := m.layers[LayerA], m.layers[LayerB]
	front.Visible, front.ZOrder = true, frontZOrder
	back.Visible, back.ZOrder = false, backZOrder
	m.compositor = &Compositor{
		eng:           eng,
		panner:        m.panner,
		front:         front,
		back:          back,
		zoom:          zoom,
		minZoom:       cfg.MinZoom,
		maxZoom:       cfg.MaxZoom,
		scaleDuration: cfg.ScaleDuration,
		fadeDuration:  cfg.FadeDuration,
	}

	front.DefineReferenceTile(zoom, cfg.StartLat, cfg.StartLon)
	front.recomputeAll(false)
	m.panner.Settle(front)
	m.checkCoverage()
	m.dirty = true
	return m, nil
}

func (m *Map) checkCoverage() {
	t := m.cfg.TileSize
	vp := m.eng.viewport
	if float64(m.cfg.GridWidth)*t < vp.Width+t || float64(m.cfg.GridHeight)*t < vp.Height+t {
		Logger().Warn("grid too small to cover viewport",
			"grid_w", m.cfg.GridWidth, "grid_h", m.cfg.GridHeight,
			"viewport_w", vp.Width, "viewport_h", vp.Height)
	}
}

// Enqueue schedules cmd for the next Tick. Safe for concurrent use.
func (m *Map) Enqueue(cmd Command) {
	m.mu.Lock()
	m.queue = append(m.queue, cmd)
	m.mu.Unlock()
}

func (m *Map) takeCommands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

// Tick advances the engine by dt: commands, pending pans, the zoom transition,
// completed fetches, markers and the validator, in that order.
func (m *Map) Tick(dt time.Duration) {
	m.eng.tick++
	m.eng.clock += dt

	for _, cmd := range m.takeCommands() {
		cmd.apply(m)
	}
	if m.compositor.State() == StateIdle && !m.pendingPan.IsZero() {
		d := m.pendingPan
		m.pendingPan = Vec{}
		m.pan(d)
	}
	if m.compositor.Advance(dt) {
		m.dirty = true
	}
	if m.needsSettle && m.compositor.State() == StateIdle {
		m.settleFront()
	}
	m.eng.loader.Drain(m.applyResult)

	if m.dirty {
		m.markers.Sync(m.compositor.Front())
		m.dirty = false
	}
	m.markers.Advance(dt)
	m.validator.Advance(dt, m.compositor.Front(), m.compositor.State())
}

func (m *Map) applyResult(r FetchResult) {
	if r.Layer < LayerA || r.Layer > LayerB {
		return
	}
	m.layers[r.Layer].apply(r)
}

func (m *Map) pan(delta Vec) {
	if !finite(delta.X) || !finite(delta.Y) {
		return
	}
	if m.compositor.State() != StateIdle {
		m.pendingPan = m.pendingPan.Add(delta)
		return
	}
	front := m.compositor.Front()
	delta = m.panner.ClampDelta(front, delta)
	if delta.IsZero() {
		return
	}
	// PanBy recycles each slot at most once per axis, so larger moves are
	// split into steps no longer than one tile.
	tile := front.TileSize * front.Scale
	n := max(1, int(math.Ceil(math.Max(math.Abs(delta.X), math.Abs(delta.Y))/tile)))
	step := delta.Mul(1 / float64(n))
	for range n {
		m.panner.PanBy(front, step)
	}
	m.dirty = true
}

func (m *Map) zoomToScale(scale float64) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return
	}
	levels := int(math.Round(math.Log2(scale)))
	zoom := m.compositor.Zoom()
	levels = min(max(levels, m.cfg.MinZoom-zoom), m.cfg.MaxZoom-zoom)
	if levels == 0 {
		return
	}
	m.compositor.ZoomBy(levels)
}

func (m *Map) resize(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	m.eng.viewport = Viewport{Width: w, Height: h}
	if m.compositor.State() == StateIdle {
		m.settleFront()
	} else {
		m.needsSettle = true
	}
	m.checkCoverage()
	m.dirty = true
}

// settleFront re-runs the four-edge test on the front layer and requests
// images for slots that became visible.
func (m *Map) settleFront() {
	f := m.compositor.Front()
	m.panner.Settle(f)
	for i := range f.slots {
		if f.OnScreen(i) {
			f.ensureFresh(i, false, 0)
		}
	}
	m.needsSettle = false
	m.dirty = true
}

// Render presents the visible layers back to front. Off-screen slots are skipped.
func (m *Map) Render(r Renderer) {
	layers := []*Layer{m.layers[0], m.layers[1]}
	sort.Slice(layers, func(i, j int) bool { return layers[i].ZOrder < layers[j].ZOrder })
	for _, l := range layers {
		if !l.Visible || l.Alpha <= 0 {
			continue
		}
		for i := range l.slots {
			rect := l.ScreenRect(i)
			if !m.eng.viewport.Intersects(rect) {
				continue
			}
			s := &l.slots[i]
			var img image.Image
			if !l.IsStale(i) {
				img = s.Image
			}
			r.Present(SlotView{Layer: l.ID, Index: i, Coord: s.Coord, Key: s.Assigned, Rect: rect}, img, l.Alpha)
		}
	}
}

// ScreenToGeo converts a screen-space point to a geographic position using the
// front layer. ok is false over "no tile" rows or outside the grid.
func (m *Map) ScreenToGeo(p Vec) (lat, lon float64, ok bool) {
	f := m.compositor.Front()
	i, found := f.SlotAt(p)
	if !found || !f.slots[i].placed || !f.slots[i].Coord.Valid() {
		return 0, 0, false
	}
	rect := f.ScreenRect(i)
	size := rect.Width()
	c := f.slots[i].Coord
	fx := float64(c.X) + (p.X-rect.Min.X)/size
	fy := float64(c.Y) + (rect.Max.Y-p.Y)/size
	lat, lon = tilemath.TileToGeo(fx, fy, c.Zoom)
	return lat, lon, true
}

// CenterGeo returns the geographic position under the viewport centre.
func (m *Map) CenterGeo() (lat, lon float64, ok bool) {
	return m.ScreenToGeo(Vec{})
}

func (m *Map) Front() *Layer           { return m.compositor.Front() }
func (m *Map) Back() *Layer            { return m.compositor.Back() }
func (m *Map) Layer(id LayerID) *Layer { return m.layers[id] }
func (m *Map) State() TransitionState  { return m.compositor.State() }
func (m *Map) Zoom() int               { return m.compositor.Zoom() }
func (m *Map) Events() *EventLog       { return m.eng.events }
func (m *Map) Viewport() Viewport      { return m.eng.viewport }
func (m *Map) Ticks() int              { return m.eng.tick }
func (m *Map) Config() Config          { return m.cfg }
func (m *Map) Markers() []MarkerView   { return m.markers.Views() }
func (m *Map) PendingPan() Vec         { return m.pendingPan }
func (m *Map) Swaps() int              { return m.compositor.swapCount }
func (m *Map) Validator() *Validator   { return m.validator }
func (m *Map) MarkerSet() *MarkerSet   { return m.markers }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
