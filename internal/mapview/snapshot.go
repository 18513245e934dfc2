package mapview

// Snapshot is a read-only copy of the engine state, safe to hand to other
// goroutines.
type Snapshot struct {
	Tick       int              `json:"tick"`
	Zoom       int              `json:"zoom"`
	State      string           `json:"state"`
	Reference  string           `json:"reference"`
	CenterLat  float64          `json:"center_lat"`
	CenterLon  float64          `json:"center_lon"`
	CenterOK   bool             `json:"center_ok"`
	Viewport   Viewport         `json:"viewport"`
	Counters   map[string]int   `json:"counters"`
	FrontSlots []SlotSnapshot   `json:"front_slots"`
	Markers    []MarkerSnapshot `json:"markers"`
}

// SlotSnapshot describes one front-layer slot.
type SlotSnapshot struct {
	Index    int     `json:"index"`
	Key      string  `json:"key"`
	Assigned string  `json:"assigned"`
	Valid    bool    `json:"valid"`
	Stale    bool    `json:"stale"`
	OnScreen bool    `json:"on_screen"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// MarkerSnapshot describes one marker.
type MarkerSnapshot struct {
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Alpha   float64 `json:"alpha"`
	Visible bool    `json:"visible"`
}

// Snapshot copies the current state. Call it on the tick goroutine.
func (m *Map) Snapshot() *Snapshot {
	f := m.compositor.Front()
	s := &Snapshot{
		Tick:      m.eng.tick,
		Zoom:      m.compositor.Zoom(),
		State:     m.compositor.State().String(),
		Reference: f.Reference().Key(),
		Viewport:  m.eng.viewport,
		Counters:  m.eng.events.Totals(),
	}
	s.CenterLat, s.CenterLon, s.CenterOK = m.CenterGeo()
	s.FrontSlots = make([]SlotSnapshot, 0, f.Len())
	for i := range f.slots {
		sl := &f.slots[i]
		pos := f.ScreenPos(i)
		s.FrontSlots = append(s.FrontSlots, SlotSnapshot{
			Index:    i,
			Key:      f.expectedKey(i),
			Assigned: sl.Assigned,
			Valid:    sl.Coord.Valid(),
			Stale:    f.IsStale(i),
			OnScreen: f.OnScreen(i),
			X:        pos.X,
			Y:        pos.Y,
		})
	}
	for _, mv := range m.markers.Views() {
		s.Markers = append(s.Markers, MarkerSnapshot{
			ID:      mv.ID.String(),
			Lat:     mv.Geo.Lat(),
			Lon:     mv.Geo.Lon(),
			X:       mv.Screen.X,
			Y:       mv.Screen.Y,
			Alpha:   mv.Alpha,
			Visible: mv.Visible,
		})
	}
	return s
}
