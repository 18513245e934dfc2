package mapview

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMap_NewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GridWidth = 0
	if _, err := New(cfg, NewManualLoader()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New with zero grid: err = %v, want ErrInvalidConfig", err)
	}
	cfg = DefaultConfig()
	cfg.MinZoom, cfg.MaxZoom = 10, 5
	if _, err := New(cfg, NewManualLoader()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New with inverted zoom range: err = %v, want ErrInvalidConfig", err)
	}
}

func TestMap_InitialFetchCoversGrid(t *testing.T) {
	h := newTestHarness(t, WithStart(vancouverLat, vancouverLon, 6))
	f := h.Map.Front()
	if got := len(h.Loader.Requests()); got != f.Len() {
		t.Fatalf("initial requests = %d, want %d", got, f.Len())
	}
	if !h.Settle(10) {
		t.Fatal("fetches did not settle")
	}
	for i := 0; i < f.Len(); i++ {
		if f.IsStale(i) {
			t.Fatalf("slot %d stale after settle", i)
		}
	}
	if n := h.Map.Events().Total(CatFetch, KeyApplied); n != f.Len() {
		t.Fatalf("applied = %d, want %d", n, f.Len())
	}
}

func TestMap_RenderHidesStaleImages(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(vancouverLat, vancouverLon, 10))
	h.Settle(10)

	var r recordingRenderer
	h.Map.Render(&r)
	for _, c := range r.calls {
		if !c.img {
			t.Fatalf("slot %s presented without image after settle", c.key)
		}
	}

	h.Map.PanBy(-256, 0) // recycles column 0, fetch not yet resolved
	h.Map.Tick(h.Frame)
	r = recordingRenderer{}
	h.Map.Render(&r)
	missing := 0
	for _, c := range r.calls {
		if !c.img {
			missing++
		}
	}
	if missing != 5 {
		t.Fatalf("slots presented without image = %d, want 5", missing)
	}
}

func TestMap_ConcurrentEnqueue(t *testing.T) {
	h := newTestHarness(t, WithStart(vancouverLat, vancouverLon, 10))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.Map.PanBy(1, 0)
			}
		}()
	}
	wg.Wait()
	before := h.Map.Front().Offset.X
	h.Step()
	if got := h.Map.Front().Offset.X - before; got != 400 {
		t.Fatalf("offset moved %.0f, want 400", got)
	}
}

func TestMap_Snapshot(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(vancouverLat, vancouverLon, 5))
	h.Map.AddMarker(vancouverLat, vancouverLon)
	h.Settle(10)

	s := h.Map.Snapshot()
	if s.Zoom != 5 || s.State != "idle" || s.Reference != "5/5/10.png" {
		t.Fatalf("snapshot zoom %d state %q ref %q, want 5 idle 5/5/10.png", s.Zoom, s.State, s.Reference)
	}
	if len(s.FrontSlots) != 25 {
		t.Fatalf("front slots = %d, want 25", len(s.FrontSlots))
	}
	if len(s.Markers) != 1 || !s.Markers[0].Visible {
		t.Fatalf("markers = %+v, want one visible", s.Markers)
	}
	if !s.CenterOK {
		t.Fatal("centre not resolved")
	}
	if s.Counters[CatFetch+"/"+KeyApplied] != 25 {
		t.Fatalf("applied counter = %d, want 25", s.Counters[CatFetch+"/"+KeyApplied])
	}
}

func TestMap_ViewportResizeReSettles(t *testing.T) {
	h := newTestHarness(t, WithGrid(9, 9), WithViewport(512, 512), WithStart(vancouverLat, vancouverLon, 10))
	h.Map.SetViewport(1800, 1800)
	h.Step()
	if got := h.Map.Viewport(); got != (Viewport{1800, 1800}) {
		t.Fatalf("viewport = %v, want 1800x1800", got)
	}
}

// uncovered counts sample points in the viewport that no front slot covers.
func uncovered(m *Map) int {
	f, vp := m.Front(), m.Viewport()
	n := 0
	for x := vp.Left() + 16; x < vp.Right(); x += 32 {
		for y := vp.Bottom() + 16; y < vp.Top(); y += 32 {
			if _, ok := f.SlotAt(Vec{x, y}); !ok {
				n++
			}
		}
	}
	return n
}

func TestMap_LargePanKeepsViewportCovered(t *testing.T) {
	h := newTestHarness(t)
	h.Pan(-2500, 0)
	if n := uncovered(h.Map); n != 0 {
		t.Fatalf("%d sample points uncovered after a 2500px pan", n)
	}

	stepped := newTestHarness(t)
	for range 10 {
		stepped.Pan(-250, 0)
	}
	if diff := cmp.Diff(slotCoords(stepped.Map.Front()), slotCoords(h.Map.Front())); diff != "" {
		t.Fatalf("single pan differs from ten small pans (-stepped +single):\n%s", diff)
	}
}

func TestMap_NonFinitePanIgnored(t *testing.T) {
	h := newTestHarness(t)
	before := h.Map.Front().Offset
	h.Pan(math.NaN(), 0)
	h.Pan(0, math.Inf(1))
	if got := h.Map.Front().Offset; got != before {
		t.Fatalf("offset = %v after non-finite pans, want %v", got, before)
	}
}

func TestMap_DeferredPanKeepsViewportCovered(t *testing.T) {
	h := newTestHarness(t)
	h.Map.ZoomIn()
	for range 50 {
		h.Pan(-60, 0)
	}
	runToIdle(t, h)
	h.Step()
	if !h.Map.PendingPan().IsZero() {
		t.Fatalf("pending pan not applied: %v", h.Map.PendingPan())
	}
	if n := uncovered(h.Map); n != 0 {
		t.Fatalf("%d sample points uncovered after the deferred pan", n)
	}
}

func TestMap_ResizeDuringFadeSettlesOnIdle(t *testing.T) {
	h := newTestHarness(t, WithViewport(800, 500))
	h.Map.ZoomIn()
	swapping := func(h *Harness) bool { return h.Map.State() == StateSwapping }
	if h.RunUntil(swapping, 300) < 0 {
		t.Fatalf("zoom never reached the swap, state %v", h.Map.State())
	}
	h.Map.SetViewport(1280, 720)
	h.Step()
	runToIdle(t, h)
	if got := h.Map.Viewport(); got != (Viewport{1280, 720}) {
		t.Fatalf("viewport = %v, want 1280x720", got)
	}
	if n := uncovered(h.Map); n != 0 {
		t.Fatalf("%d sample points uncovered after resizing mid-fade", n)
	}
}

func TestHarness_FailureRate(t *testing.T) {
	h := newTestHarness(t, WithFailureRate(1))
	if !h.Settle(10) {
		t.Fatal("fetches did not settle")
	}
	ev := h.Map.Events()
	issued := ev.Total(CatFetch, KeyIssued)
	if issued == 0 {
		t.Fatal("no fetches issued")
	}
	if got := ev.Total(CatFetch, KeyFailed); got != issued {
		t.Fatalf("failed = %d, want all %d issued", got, issued)
	}
	if got := ev.Total(CatFetch, KeyApplied); got != 0 {
		t.Fatalf("applied = %d with failure rate 1", got)
	}
}
