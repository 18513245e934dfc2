package mapview

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

// LayerID names one of the two grid layers. Roles (front/back) swap, ids don't.
type LayerID int

const (
	LayerA LayerID = iota
	LayerB
)

func (id LayerID) String() string {
	if id == LayerA {
		return "A"
	}
	return "B"
}

// Render order of the two roles; higher draws on top.
const (
	backZOrder  = 2
	frontZOrder = 4
)

// Slot is one tile position in a layer. Slots are allocated once and recycled.
type Slot struct {
	Index    int
	Coord    tilemath.Coordinate
	Local    Vec
	Assigned string // key of the image currently held, "" for none
	Image    image.Image

	placed    bool // Coord has been derived at least once since the last reset
	pending   string
	pendingAt time.Duration
	failed    string
}

// Layer is a fixed grid of slots whose coordinates all derive from one
// reference slot. Screen position of a slot is Scale*(Offset+Local).
type Layer struct {
	ID       LayerID
	Width    int
	Height   int
	TileSize float64
	Zoom     int
	Scale    float64
	Offset   Vec
	Alpha    float64
	ZOrder   int
	Visible  bool

	slots     []Slot
	refIndex  int
	anchor    Vec
	reference tilemath.Coordinate
	eng       *engine
}

func newLayer(id LayerID, eng *engine) *Layer {
	return &Layer{ID: id, Scale: 1, Alpha: 1, eng: eng}
}

// Initialize allocates the slot pool and lays it out. Called once per layer.
func (l *Layer) Initialize(width, height int, tileSize float64) {
	l.Width, l.Height, l.TileSize = width, height, tileSize
	l.slots = make([]Slot, width*height)
	for i := range l.slots {
		l.slots[i].Index = i
	}
	l.refIndex = l.middleIndex()
	l.Layout()
}

// Layout returns every slot to its initial grid position, centred on the layer
// origin for both even and odd dimensions.
func (l *Layer) Layout() {
	for i := range l.slots {
		col, row := i%l.Width, i/l.Width
		l.slots[i].Local = Vec{
			X: (float64(col) - float64(l.Width-1)/2) * l.TileSize,
			Y: (float64(l.Height-1)/2 - float64(row)) * l.TileSize,
		}
	}
}

func (l *Layer) middleIndex() int {
	return (l.Height/2)*l.Width + l.Width/2
}

// Len returns the number of slots.
func (l *Layer) Len() int { return len(l.slots) }

// Slot returns a copy of slot i.
func (l *Layer) Slot(i int) Slot { return l.slots[i] }

// Reference returns the coordinate the layer's anchor stands for.
func (l *Layer) Reference() tilemath.Coordinate { return l.reference }

// DefineReferenceTile anchors the layer on the tile containing (lat, lon) at
// zoom, using the middle slot. Slot coordinates are not recomputed here.
func (l *Layer) DefineReferenceTile(zoom int, lat, lon float64) {
	x, y := tilemath.GeoToTile(lat, lon, zoom)
	l.setReference(l.middleIndex(), tilemath.Coordinate{
		Zoom: zoom,
		X:    tilemath.WrapX(x, tilemath.CycleLimit(zoom)),
		Y:    y,
	})
}

// setReference anchors coord at the current local position of slot i. The
// anchor stays put when that slot is later recycled.
func (l *Layer) setReference(i int, coord tilemath.Coordinate) {
	l.refIndex = i
	l.anchor = l.slots[i].Local
	l.reference = coord
	l.Zoom = coord.Zoom
}

// ScreenPos returns the screen-space centre of slot i.
func (l *Layer) ScreenPos(i int) Vec {
	return l.Offset.Add(l.slots[i].Local).Mul(l.Scale)
}

// ScreenRect returns the screen-space rectangle of slot i.
func (l *Layer) ScreenRect(i int) Rect {
	return RectAround(l.ScreenPos(i), l.TileSize*l.Scale)
}

// OnScreen reports whether any part of slot i intersects the viewport.
func (l *Layer) OnScreen(i int) bool {
	return l.eng.viewport.Intersects(l.ScreenRect(i))
}

// SlotAt returns the slot whose screen rectangle contains p.
func (l *Layer) SlotAt(p Vec) (int, bool) {
	for i := range l.slots {
		if l.ScreenRect(i).Contains(p) {
			return i, true
		}
	}
	return -1, false
}

// nearestSlot returns the slot whose centre is closest to p.
func (l *Layer) nearestSlot(p Vec) int {
	best, bestDist := 0, math.Inf(1)
	for i := range l.slots {
		if d := l.ScreenPos(i).Dist(p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// RecomputeSlotCoordinate derives slot i's coordinate from its offset to the
// anchor and requests the image when the coordinate changed. Calling it again
// without movement is a no-op.
func (l *Layer) RecomputeSlotCoordinate(i int) bool {
	if !l.recompute(i) {
		return false
	}
	l.refresh(i)
	return true
}

func (l *Layer) recompute(i int) bool {
	s := &l.slots[i]
	unit := l.TileSize * l.Scale
	d := s.Local.Sub(l.anchor).Mul(l.Scale)
	dx := int(math.Round(d.X / unit))
	dy := int(math.Round(d.Y / unit))
	zoom := l.reference.Zoom
	c := tilemath.Coordinate{
		Zoom: zoom,
		X:    tilemath.WrapX(l.reference.X+dx, tilemath.CycleLimit(zoom)),
		Y:    l.reference.Y - dy,
	}
	if s.placed && s.Coord == c {
		return false
	}
	s.Coord = c
	s.placed = true
	s.failed = ""
	return true
}

// refresh brings slot i's image in line with its coordinate: "no tile" rows
// are cleared without a fetch, everything else is requested unless already
// in flight.
func (l *Layer) refresh(i int) {
	s := &l.slots[i]
	if !s.Coord.Valid() {
		if s.Assigned != "" || s.Image != nil {
			l.SetTexture(i, "", nil)
		}
		s.pending = ""
		l.eng.record(l.ID.String(), CatFetch, KeyNoTile, s.Coord.String(), float64(i))
		return
	}
	key := s.Coord.Key()
	if s.pending == key {
		return
	}
	l.request(i, key)
}

func (l *Layer) request(i int, key string) {
	s := &l.slots[i]
	s.pending = key
	s.pendingAt = l.eng.clock
	l.eng.record(l.ID.String(), CatFetch, KeyIssued, key, float64(i))
	Logger().Debug("fetch issued", "layer", l.ID, "slot", i, "key", key)
	l.eng.loader.Request(FetchRequest{Layer: l.ID, Slot: i, Coord: s.Coord, Key: key})
}

// recomputeAll derives every slot's coordinate, fetching changed slots that
// are on screen (or all of them when onScreenOnly is false).
func (l *Layer) recomputeAll(onScreenOnly bool) {
	for i := range l.slots {
		if l.recompute(i) && (!onScreenOnly || l.OnScreen(i)) {
			l.refresh(i)
		}
	}
}

// SetTexture records the image shown by slot i under key. An empty key clears it.
func (l *Layer) SetTexture(i int, key string, img image.Image) {
	s := &l.slots[i]
	s.Assigned = key
	s.Image = img
}

// expectedKey is the key slot i should show, "" for a "no tile" row.
func (l *Layer) expectedKey(i int) string {
	s := &l.slots[i]
	if !s.Coord.Valid() {
		return ""
	}
	return s.Coord.Key()
}

// IsStale reports whether slot i does not show the image its coordinate names.
func (l *Layer) IsStale(i int) bool {
	return l.slots[i].Assigned != l.expectedKey(i)
}

// ensureFresh re-requests slot i if it is stale and nothing useful is in flight.
// Failed keys are retried only when retryFailed is set; a pending fetch older
// than pendingTimeout is considered lost.
func (l *Layer) ensureFresh(i int, retryFailed bool, pendingTimeout time.Duration) bool {
	if !l.slots[i].placed || !l.IsStale(i) {
		return false
	}
	s := &l.slots[i]
	key := l.expectedKey(i)
	if key == "" {
		l.SetTexture(i, "", nil)
		return false
	}
	if s.pending == key && (pendingTimeout <= 0 || l.eng.clock-s.pendingAt < pendingTimeout) {
		return false
	}
	if s.failed == key && !retryFailed {
		return false
	}
	l.request(i, key)
	return true
}

// apply installs a completed fetch if the slot still wants it.
func (l *Layer) apply(r FetchResult) {
	if r.Slot < 0 || r.Slot >= len(l.slots) {
		return
	}
	s := &l.slots[r.Slot]
	if s.pending == r.Key {
		s.pending = ""
	}
	if !s.placed || s.Coord != r.Coord {
		l.eng.record(l.ID.String(), CatFetch, KeyDroppedStale,
			fmt.Sprintf("%s now %s", r.Key, s.Coord.Key()), float64(r.Slot))
		Logger().Debug("stale fetch dropped", "layer", l.ID, "slot", r.Slot, "key", r.Key)
		return
	}
	if r.Err != nil || r.Image == nil {
		l.SetTexture(r.Slot, "", nil)
		s.failed = r.Key
		l.eng.record(l.ID.String(), CatFetch, KeyFailed, r.Key, float64(r.Slot))
		Logger().Warn("tile fetch failed", "layer", l.ID, "slot", r.Slot, "key", r.Key, "err", r.Err)
		return
	}
	l.SetTexture(r.Slot, r.Key, r.Image)
	s.failed = ""
	l.eng.record(l.ID.String(), CatFetch, KeyApplied, r.Key, float64(r.Slot))
}

// reset returns the layer to its pristine hidden state: initial layout,
// scale 1, no offset, no images, no derived coordinates.
func (l *Layer) reset() {
	l.Layout()
	l.Scale = 1
	l.Offset = Vec{}
	l.Alpha = 1
	l.Visible = false
	for i := range l.slots {
		s := &l.slots[i]
		s.Assigned, s.Image = "", nil
		s.placed = false
		s.pending, s.failed = "", ""
	}
}

// corner returns the north-west corner of slot i in layer space at scale 1.
func (l *Layer) corner(i int) Vec {
	h := l.TileSize / 2
	return l.Offset.Add(l.slots[i].Local).Add(Vec{-h, h})
}
