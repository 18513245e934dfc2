package mapview

import "time"

// engine is the state shared by the components of one Map. Only the tick
// goroutine touches it.
type engine struct {
	loader   Loader
	events   *EventLog
	viewport Viewport
	tick     int
	clock    time.Duration
}

func (e *engine) record(layer, category, key, value string, numVal float64) {
	e.events.Add(e.tick, layer, category, key, value, numVal)
}
