package mapview

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPanner_FullWidthPanRestoresGrid(t *testing.T) {
	h := newTestHarness(t, WithGrid(8, 8), WithViewport(1536, 1536), WithStart(vancouverLat, vancouverLon, 3))
	f := h.Map.Front()
	before := slotCoords(f)
	beforePos := make([]Vec, f.Len())
	for i := range beforePos {
		beforePos[i] = f.ScreenPos(i)
	}

	for step := 0; step < 8; step++ {
		h.Pan(-256, 0)
	}

	if diff := cmp.Diff(before, slotCoords(f)); diff != "" {
		t.Fatalf("coordinates after full-width pan mismatch (-want+got):\n%v", diff)
	}
	for i := range beforePos {
		if got := f.ScreenPos(i); got.Dist(beforePos[i]) > 1e-9 {
			t.Errorf("slot %d at %v, want %v", i, got, beforePos[i])
		}
	}

	perSlot := make(map[int]int)
	for _, e := range h.Map.Events().Filter(CatPan, KeyRecycle) {
		perSlot[int(e.NumVal)]++
	}
	for i := 0; i < f.Len(); i++ {
		if perSlot[i] != 1 {
			t.Errorf("slot %d recycled %d times, want 1", i, perSlot[i])
		}
	}
}

func TestPanner_OnlyLeavingSlotsRecycle(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(1024, 1024), WithStart(vancouverLat, vancouverLon, 10))
	f := h.Map.Front()
	before := slotCoords(f)

	h.Pan(-100, 0)
	if n := h.Map.Events().Total(CatPan, KeyRecycle); n != 0 {
		t.Fatalf("recycles after 100px pan = %d, want 0", n)
	}
	h.Pan(-156, 0)
	if n := h.Map.Events().Total(CatPan, KeyRecycle); n != 5 {
		t.Fatalf("recycles after one tile = %d, want 5 (one column)", n)
	}
	after := slotCoords(f)
	for row := 0; row < 5; row++ {
		i := row * 5
		if after[i].X != before[i].X+5 {
			t.Errorf("row %d column 0: x = %d, want %d", row, after[i].X, before[i].X+5)
		}
		if after[i].Y != before[i].Y {
			t.Errorf("row %d column 0: y = %d, want %d", row, after[i].Y, before[i].Y)
		}
	}
}

func TestPanner_WrapsAcrossAntimeridian(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(0, -179.9, 4))
	f := h.Map.Front()
	if f.Reference().X != 0 {
		t.Fatalf("reference x = %d, want 0", f.Reference().X)
	}
	limit := 15
	for i := 0; i < f.Len(); i++ {
		c := f.Slot(i).Coord
		if c.X < 0 || c.X > limit {
			t.Fatalf("slot %d x = %d, want within [0,%d]", i, c.X, limit)
		}
	}
	// Left of tile 0 is tile 15.
	if got := f.Slot(11).Coord.X; got != 15 {
		t.Fatalf("slot left of reference x = %d, want 15", got)
	}
	for i := 0; i < 6; i++ {
		h.Pan(256, 0)
	}
	for i := 0; i < f.Len(); i++ {
		c := f.Slot(i).Coord
		if c.X < 0 || c.X > limit {
			t.Fatalf("after pan: slot %d x = %d, want within [0,%d]", i, c.X, limit)
		}
	}
}

func TestPanner_VerticalClamp(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(vancouverLat, vancouverLon, 3))
	f := h.Map.Front()

	// World top edge starts at 2*256+128 = 640, viewport top is 384.
	h.Pan(0, -1000)
	if got := f.Offset.Y; got != -256 {
		t.Fatalf("offset y after clamped pan = %.1f, want -256", got)
	}
	if n := h.Map.Events().Total(CatPan, KeyClamped); n != 1 {
		t.Fatalf("clamped events = %d, want 1", n)
	}
	h.Pan(0, -10)
	if got := f.Offset.Y; got != -256 {
		t.Fatalf("offset y after pan past the pole = %.1f, want -256", got)
	}
	h.Pan(0, 10)
	if got := f.Offset.Y; got != -246 {
		t.Fatalf("offset y after pan away from the pole = %.1f, want -246", got)
	}
}

func TestPanner_ClampDisabled(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(vancouverLat, vancouverLon, 3),
		WithConfig(func(c *Config) { c.ClampVertical = false }))
	h.Pan(0, -1000)
	if got := h.Map.Front().Offset.Y; got != -1000 {
		t.Fatalf("offset y = %.1f, want -1000", got)
	}
}

func TestPanner_SettleCoversResizedViewport(t *testing.T) {
	h := newTestHarness(t, WithGrid(7, 7), WithViewport(512, 512), WithStart(vancouverLat, vancouverLon, 10))
	f := h.Map.Front()
	h.Pan(-600, 0)

	h.Map.SetViewport(1280, 1280)
	h.Step()
	vp := h.Map.Viewport()
	for x := vp.Left() + 1; x < vp.Right(); x += 64 {
		if _, ok := f.SlotAt(Vec{x, 0}); !ok {
			t.Fatalf("no slot covers (%.0f,0) after resize", x)
		}
	}
}
