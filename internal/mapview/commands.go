package mapview

import "github.com/google/uuid"

// Command is an input event consumed by the tick loop.
type Command interface {
	apply(m *Map)
}

// PanCommand moves the map by Delta screen pixels (+Y up).
type PanCommand struct{ Delta Vec }

// ZoomCommand zooms by Levels (positive in, negative out).
type ZoomCommand struct{ Levels int }

// ZoomToScaleCommand zooms by round(log2(Scale)) levels, clamped to the zoom range.
type ZoomToScaleCommand struct{ Scale float64 }

// AddMarkerCommand places marker ID at a geographic position.
type AddMarkerCommand struct {
	ID  uuid.UUID
	Lat float64
	Lon float64
}

// RemoveMarkerCommand deletes marker ID.
type RemoveMarkerCommand struct{ ID uuid.UUID }

// PlaceMarkerCommand places marker ID under a screen-space point.
type PlaceMarkerCommand struct {
	ID uuid.UUID
	At Vec
}

// ResizeCommand changes the viewport size.
type ResizeCommand struct {
	Width  float64
	Height float64
}

func (c PanCommand) apply(m *Map)          { m.pan(c.Delta) }
func (c ZoomCommand) apply(m *Map)         { m.compositor.ZoomBy(c.Levels) }
func (c ZoomToScaleCommand) apply(m *Map)  { m.zoomToScale(c.Scale) }
func (c RemoveMarkerCommand) apply(m *Map) { m.markers.Remove(c.ID) }
func (c ResizeCommand) apply(m *Map)       { m.resize(c.Width, c.Height) }

func (c AddMarkerCommand) apply(m *Map) {
	m.markers.Add(c.ID, c.Lat, c.Lon)
	m.dirty = true
}

func (c PlaceMarkerCommand) apply(m *Map) {
	lat, lon, ok := m.ScreenToGeo(c.At)
	if !ok {
		return
	}
	m.markers.Add(c.ID, lat, lon)
	m.dirty = true
}

// PanBy enqueues a pan of (dx, dy) screen pixels.
func (m *Map) PanBy(dx, dy float64) { m.Enqueue(PanCommand{Delta: Vec{dx, dy}}) }

// ZoomIn enqueues a one-level zoom in.
func (m *Map) ZoomIn() { m.Enqueue(ZoomCommand{Levels: 1}) }

// ZoomOut enqueues a one-level zoom out.
func (m *Map) ZoomOut() { m.Enqueue(ZoomCommand{Levels: -1}) }

// ZoomBy enqueues a zoom of levels.
func (m *Map) ZoomBy(levels int) { m.Enqueue(ZoomCommand{Levels: levels}) }

// ZoomToScale enqueues a multi-level zoom by a scale factor (2 = one level in).
func (m *Map) ZoomToScale(scale float64) { m.Enqueue(ZoomToScaleCommand{Scale: scale}) }

// AddMarker enqueues a new marker and returns its id.
func (m *Map) AddMarker(lat, lon float64) uuid.UUID {
	id := uuid.New()
	m.Enqueue(AddMarkerCommand{ID: id, Lat: lat, Lon: lon})
	return id
}

// RemoveMarker enqueues the removal of marker id.
func (m *Map) RemoveMarker(id uuid.UUID) { m.Enqueue(RemoveMarkerCommand{ID: id}) }

// PlaceMarkerAt enqueues a marker under screen point (x, y) and returns its id.
// Nothing is placed if the point is not over a tile.
func (m *Map) PlaceMarkerAt(x, y float64) uuid.UUID {
	id := uuid.New()
	m.Enqueue(PlaceMarkerCommand{ID: id, At: Vec{x, y}})
	return id
}

// SetViewport enqueues a viewport resize.
func (m *Map) SetViewport(w, h float64) { m.Enqueue(ResizeCommand{Width: w, Height: h}) }
