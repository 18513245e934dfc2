package mapview

import "testing"

func TestEventLog_LimitKeepsTotals(t *testing.T) {
	el := NewEventLog(3)
	for i := 0; i < 5; i++ {
		el.Add(i, "A", CatFetch, KeyIssued, "k", float64(i))
	}
	if got := len(el.Entries()); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}
	if got := el.Entries()[0].Tick; got != 2 {
		t.Fatalf("oldest retained tick = %d, want 2", got)
	}
	if got := el.Total(CatFetch, KeyIssued); got != 5 {
		t.Fatalf("total = %d, want 5", got)
	}
}

func TestEventLog_FilterAndLast(t *testing.T) {
	el := NewEventLog(0)
	el.Add(1, "A", CatZoom, KeyStart, "z3 -> z4", 1)
	el.Add(2, "B", CatZoom, KeySwap, "ref", 4)
	el.Add(3, "B", CatZoom, KeyStart, "z4 -> z5", 1)

	if got := len(el.Filter(CatZoom, "")); got != 3 {
		t.Fatalf("zoom entries = %d, want 3", got)
	}
	last, ok := el.LastOf(CatZoom, KeyStart)
	if !ok || last.Tick != 3 {
		t.Fatalf("LastOf start = %+v %v, want tick 3", last, ok)
	}
	if !el.HasEntry(CatZoom, KeyStart, "z4") {
		t.Fatal("HasEntry z4 = false")
	}
	if got := len(el.Recent(2)); got != 2 {
		t.Fatalf("Recent(2) = %d entries", got)
	}
}
