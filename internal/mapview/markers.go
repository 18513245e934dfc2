package mapview

import (
	"math"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Marker is a geo-anchored overlay kept in sync with the front layer.
type Marker struct {
	ID      uuid.UUID
	Geo     orb.Point // lon, lat
	Screen  Vec
	Visible bool
	Active  bool
	Alpha   float64

	fade   Animation
	fading bool
}

// MarkerView is what the renderer needs to draw a marker.
type MarkerView struct {
	ID      uuid.UUID
	Geo     orb.Point
	Screen  Vec
	Alpha   float64
	Visible bool
}

// MarkerSet positions markers on the front layer. Markers are only removed
// by Remove; sync just fades them in and out.
type MarkerSet struct {
	FadeDuration time.Duration

	eng   *engine
	order []*Marker
	byID  map[uuid.UUID]*Marker
}

func newMarkerSet(eng *engine, fade time.Duration) *MarkerSet {
	return &MarkerSet{FadeDuration: fade, eng: eng, byID: make(map[uuid.UUID]*Marker)}
}

// Add registers a marker at (lat, lon). Adding an existing id moves it.
func (ms *MarkerSet) Add(id uuid.UUID, lat, lon float64) *Marker {
	if m, ok := ms.byID[id]; ok {
		m.Geo = orb.Point{lon, lat}
		return m
	}
	m := &Marker{ID: id, Geo: orb.Point{lon, lat}, Active: true}
	ms.order = append(ms.order, m)
	ms.byID[id] = m
	ms.eng.record("--", CatMarker, KeyAdded, id.String(), 0)
	return m
}

// Remove deletes the marker with id.
func (ms *MarkerSet) Remove(id uuid.UUID) bool {
	if _, ok := ms.byID[id]; !ok {
		return false
	}
	delete(ms.byID, id)
	for i, m := range ms.order {
		if m.ID == id {
			ms.order = append(ms.order[:i], ms.order[i+1:]...)
			break
		}
	}
	ms.eng.record("--", CatMarker, KeyRemoved, id.String(), 0)
	return true
}

// Get returns the marker with id.
func (ms *MarkerSet) Get(id uuid.UUID) (*Marker, bool) {
	m, ok := ms.byID[id]
	return m, ok
}

// Len returns the number of markers.
func (ms *MarkerSet) Len() int { return len(ms.order) }

// Views returns the drawable state of every marker in insertion order.
func (ms *MarkerSet) Views() []MarkerView {
	out := make([]MarkerView, 0, len(ms.order))
	for _, m := range ms.order {
		out = append(out, MarkerView{ID: m.ID, Geo: m.Geo, Screen: m.Screen, Alpha: m.Alpha, Visible: m.Visible})
	}
	return out
}

// Sync projects every active marker onto front.
func (ms *MarkerSet) Sync(front *Layer) {
	for _, m := range ms.order {
		if m.Active {
			ms.syncOne(m, front)
		}
	}
}

func (ms *MarkerSet) syncOne(m *Marker, front *Layer) {
	zoom := front.Zoom
	fx, fy := tilemath.GeoToTileFractional(m.Geo.Lat(), m.Geo.Lon(), zoom)
	tx, ty := math.Floor(fx), math.Floor(fy)
	want := tilemath.Coordinate{
		Zoom: zoom,
		X:    tilemath.WrapX(int(tx), tilemath.CycleLimit(zoom)),
		Y:    int(ty),
	}

	slot := -1
	for i := range front.slots {
		s := &front.slots[i]
		if !s.placed || s.Coord != want {
			continue
		}
		slot = i
		if front.OnScreen(i) {
			break
		}
	}

	if slot < 0 {
		if m.Visible && !ms.eng.viewport.Contains(m.Screen) {
			ms.fadeTo(m, 0)
		}
		return
	}
	size := front.TileSize * front.Scale
	nw := front.ScreenRect(slot).TopLeft()
	m.Screen = nw.Add(Vec{(fx - tx) * size, -(fy - ty) * size})
	if !m.Visible {
		ms.fadeTo(m, 1)
	}
}

func (ms *MarkerSet) fadeTo(m *Marker, alpha float64) {
	m.Visible = alpha > 0
	m.fade = NewAnimation(m.Alpha, alpha, ms.FadeDuration, ExponentialOut)
	m.fading = true
	key := KeyFadeOut
	if m.Visible {
		key = KeyFadeIn
	}
	ms.eng.record("--", CatMarker, key, m.ID.String(), alpha)
}

// Advance steps marker fades by dt.
func (ms *MarkerSet) Advance(dt time.Duration) {
	for _, m := range ms.order {
		if !m.fading {
			continue
		}
		var done bool
		m.Alpha, done = m.fade.Advance(dt)
		if done {
			m.fading = false
		}
	}
}
