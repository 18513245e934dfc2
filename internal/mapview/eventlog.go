package mapview

import (
	"fmt"
	"strings"
)

// Event categories and keys recorded by the engine.
const (
	CatFetch     = "fetch"
	CatPan       = "pan"
	CatZoom      = "zoom"
	CatMarker    = "marker"
	CatValidator = "validator"

	KeyIssued       = "issued"
	KeyApplied      = "applied"
	KeyDroppedStale = "dropped_stale"
	KeyFailed       = "failed"
	KeyNoTile       = "no_tile"
	KeyRecycle      = "recycle"
	KeyClamped      = "clamped"
	KeyStart        = "start"
	KeyRejected     = "rejected"
	KeySwap         = "swap"
	KeyIdle         = "idle"
	KeyFadeIn       = "fade_in"
	KeyFadeOut      = "fade_out"
	KeyAdded        = "added"
	KeyRemoved      = "removed"
	KeyRefetch      = "refetch"
)

// Event is one recorded engine event.
type Event struct {
	Tick     int
	Layer    string // "A", "B" or "--"
	Category string
	Key      string
	Value    string
	NumVal   float64
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] A  fetch     issued           5/10/11.png
func (e Event) String() string {
	return fmt.Sprintf("[T=%03d] %-2s %-9s %-16s %s",
		e.Tick, e.Layer, e.Category, e.Key, e.Value)
}

// EventLog collects structured engine events. With a positive limit it keeps
// only the most recent entries; totals per category/key are kept regardless.
type EventLog struct {
	entries []Event
	limit   int
	counts  map[string]int
}

// NewEventLog creates an EventLog. limit <= 0 means unbounded.
func NewEventLog(limit int) *EventLog {
	return &EventLog{limit: limit, counts: make(map[string]int)}
}

// Add records a new entry.
func (el *EventLog) Add(tick int, layer, category, key, value string, numVal float64) {
	el.counts[category+"/"+key]++
	el.entries = append(el.entries, Event{
		Tick:     tick,
		Layer:    layer,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
	if el.limit > 0 && len(el.entries) > el.limit {
		drop := len(el.entries) - el.limit
		el.entries = append(el.entries[:0], el.entries[drop:]...)
	}
}

// Entries returns the retained entries, oldest first.
func (el *EventLog) Entries() []Event {
	return el.entries
}

// Recent returns up to n of the newest entries, oldest first.
func (el *EventLog) Recent(n int) []Event {
	if n >= len(el.entries) {
		return el.entries
	}
	return el.entries[len(el.entries)-n:]
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (el *EventLog) Filter(category, key string) []Event {
	var out []Event
	for _, e := range el.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Total returns how many events with category and key were ever recorded,
// including ones evicted by the limit.
func (el *EventLog) Total(category, key string) int {
	return el.counts[category+"/"+key]
}

// Totals returns a copy of every category/key counter.
func (el *EventLog) Totals() map[string]int {
	out := make(map[string]int, len(el.counts))
	for k, v := range el.counts {
		out[k] = v
	}
	return out
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (el *EventLog) LastOf(category, key string) (Event, bool) {
	for i := len(el.entries) - 1; i >= 0; i-- {
		e := el.entries[i]
		if e.Category == category && e.Key == key {
			return e, true
		}
	}
	return Event{}, false
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (el *EventLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range el.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the retained log as a single string for t.Log output.
func (el *EventLog) Format() string {
	var sb strings.Builder
	for _, e := range el.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
