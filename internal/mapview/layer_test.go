package mapview

import (
	"image"
	"testing"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
	"github.com/google/go-cmp/cmp"
)

const (
	vancouverLat = 49.2674573
	vancouverLon = -123.0930032
)

func newTestHarness(t *testing.T, opts ...HarnessOption) *Harness {
	t.Helper()
	h, err := NewHarness(opts...)
	if err != nil {
		t.Fatalf("NewHarness: %v", err)
	}
	return h
}

func okFetch(FetchRequest) (image.Image, error) { return Placeholder(), nil }

func slotCoords(l *Layer) []tilemath.Coordinate {
	out := make([]tilemath.Coordinate, l.Len())
	for i := range out {
		out[i] = l.Slot(i).Coord
	}
	return out
}

func TestLayer_LayoutCentred(t *testing.T) {
	for _, dims := range [][2]int{{5, 5}, {4, 6}, {8, 8}, {1, 1}} {
		l := newLayer(LayerA, &engine{})
		l.Initialize(dims[0], dims[1], 256)
		var sum Vec
		for i := 0; i < l.Len(); i++ {
			sum = sum.Add(l.Slot(i).Local)
		}
		if sum.X != 0 || sum.Y != 0 {
			t.Errorf("%dx%d grid: local positions sum to %v, want origin", dims[0], dims[1], sum)
		}
		first, last := l.Slot(0).Local, l.Slot(l.Len()-1).Local
		if first.X >= last.X && dims[0] > 1 {
			t.Errorf("%dx%d grid: column 0 at x=%.1f not left of last column %.1f", dims[0], dims[1], first.X, last.X)
		}
		if first.Y <= last.Y && dims[1] > 1 {
			t.Errorf("%dx%d grid: row 0 at y=%.1f not above last row %.1f", dims[0], dims[1], first.Y, last.Y)
		}
	}
}

func TestLayer_ReferenceIsMiddleSlot(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(vancouverLat, vancouverLon, 5))
	f := h.Map.Front()
	want := tilemath.Coordinate{Zoom: 5, X: 5, Y: 10}
	if diff := cmp.Diff(want, f.Reference()); diff != "" {
		t.Fatalf("reference mismatch (-want+got):\n%v", diff)
	}
	if got := f.Slot(12).Coord; got != want {
		t.Fatalf("middle slot coord = %v, want %v", got, want)
	}
	if got := f.Slot(0).Coord; got != (tilemath.Coordinate{Zoom: 5, X: 3, Y: 8}) {
		t.Fatalf("top-left slot coord = %v, want z5/3/8", got)
	}
}

func TestLayer_RecomputeIdempotent(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithManualFetches())
	f := h.Map.Front()
	before := len(h.Loader.Requests())

	for i := 0; i < f.Len(); i++ {
		if f.RecomputeSlotCoordinate(i) {
			t.Fatalf("slot %d: recompute without movement reported a change", i)
		}
	}
	if got := len(h.Loader.Requests()); got != before {
		t.Fatalf("requests after no-op recompute = %d, want %d", got, before)
	}

	f.slots[0].Local.X += float64(f.Width) * f.TileSize
	if !f.RecomputeSlotCoordinate(0) {
		t.Fatal("recompute after moving slot 0 reported no change")
	}
	if f.RecomputeSlotCoordinate(0) {
		t.Fatal("second recompute reported a change")
	}
	if got := len(h.Loader.Requests()); got != before+1 {
		t.Fatalf("requests after move = %d, want %d", got, before+1)
	}
}

func TestLayer_NoTileRowsNeverFetch(t *testing.T) {
	h := newTestHarness(t, WithGrid(8, 8), WithViewport(1536, 1536), WithStart(vancouverLat, vancouverLon, 3))
	h.RunTicks(2)
	f := h.Map.Front()

	invalid := 0
	for i := 0; i < f.Len(); i++ {
		s := f.Slot(i)
		if s.Coord.Valid() {
			continue
		}
		invalid++
		if s.Assigned != "" || s.Image != nil {
			t.Errorf("slot %d (%v) holds an image", i, s.Coord)
		}
		if f.IsStale(i) {
			t.Errorf("slot %d (%v) reported stale", i, s.Coord)
		}
	}
	// Reference row 4 holds y=2, so rows 0 and 1 are above the pole.
	if invalid != 16 {
		t.Fatalf("invalid slots = %d, want 16", invalid)
	}
	for _, r := range h.Loader.Requests() {
		if !r.Coord.Valid() {
			t.Fatalf("fetch issued for no-tile coordinate %v", r.Coord)
		}
	}
}

func TestLayer_StaleCallbackDropped(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768),
		WithStart(vancouverLat, vancouverLon, 10), WithManualFetches())
	f := h.Map.Front()

	var first FetchRequest
	for _, r := range h.Loader.Pending() {
		if r.Layer == f.ID && r.Slot == 0 {
			first = r
		}
	}
	if first.Key == "" {
		t.Fatal("no initial request for slot 0")
	}

	// Column 0 leaves on the left and is recycled to the right edge.
	h.Pan(-256, 0)
	if f.Slot(0).Coord == first.Coord {
		t.Fatalf("slot 0 not recycled, still %v", first.Coord)
	}

	h.Loader.Resolve(first, Placeholder(), nil)
	h.Step()
	if got := f.Slot(0).Assigned; got == first.Key {
		t.Fatalf("stale result applied: slot 0 shows %s for coord %v", got, f.Slot(0).Coord)
	}
	if n := h.Map.Events().Total(CatFetch, KeyDroppedStale); n != 1 {
		t.Fatalf("dropped_stale = %d, want 1\n%s", n, h.Map.Events().Format())
	}

	h.Loader.ResolveAll(okFetch)
	h.Step()
	if f.IsStale(0) {
		t.Fatalf("slot 0 still stale after current fetch resolved: assigned %q coord %v", f.Slot(0).Assigned, f.Slot(0).Coord)
	}
}
