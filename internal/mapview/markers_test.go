package mapview

import (
	"math"
	"testing"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

func TestMarkers_ProjectedInsideReferenceTile(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(vancouverLat, vancouverLon, 10))
	id := h.Map.AddMarker(vancouverLat, vancouverLon)
	h.Step()

	m, ok := h.Map.MarkerSet().Get(id)
	if !ok {
		t.Fatal("marker not added")
	}
	if !m.Visible {
		t.Fatal("marker not visible")
	}
	fx, fy := tilemath.GeoToTileFractional(vancouverLat, vancouverLon, 10)
	want := Vec{
		X: -128 + (fx-math.Floor(fx))*256,
		Y: 128 - (fy-math.Floor(fy))*256,
	}
	if m.Screen.Dist(want) > 1e-6 {
		t.Fatalf("marker at %v, want %v", m.Screen, want)
	}

	h.RunTicks(30)
	if m.Alpha != 1 {
		t.Fatalf("marker alpha after fade = %v, want 1", m.Alpha)
	}
}

func TestMarkers_FollowPan(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(vancouverLat, vancouverLon, 10))
	id := h.Map.AddMarker(vancouverLat, vancouverLon)
	h.Step()
	m, _ := h.Map.MarkerSet().Get(id)
	before := m.Screen

	h.Pan(-40, 25)
	want := before.Add(Vec{-40, 25})
	if m.Screen.Dist(want) > 1e-6 {
		t.Fatalf("marker at %v after pan, want %v", m.Screen, want)
	}
}

func TestMarkers_FadeOutAndBackIn(t *testing.T) {
	h := newTestHarness(t, WithGrid(5, 5), WithViewport(768, 768), WithStart(vancouverLat, vancouverLon, 10))
	id := h.Map.AddMarker(vancouverLat, vancouverLon)
	h.RunTicks(20)
	m, _ := h.Map.MarkerSet().Get(id)

	for i := 0; i < 3; i++ {
		h.Pan(-256, 0)
	}
	if m.Visible {
		t.Fatalf("marker still visible after its tile left the grid (screen %v)", m.Screen)
	}
	if n := h.Map.Events().Total(CatMarker, KeyFadeOut); n != 1 {
		t.Fatalf("fade_out = %d, want 1", n)
	}
	h.RunTicks(30)
	if m.Alpha != 0 {
		t.Fatalf("alpha after fade out = %v, want 0", m.Alpha)
	}
	if h.Map.MarkerSet().Len() != 1 {
		t.Fatal("sync removed the marker")
	}

	for i := 0; i < 3; i++ {
		h.Pan(256, 0)
	}
	if !m.Visible {
		t.Fatal("marker not visible after panning back")
	}
	if n := h.Map.Events().Total(CatMarker, KeyFadeIn); n != 2 {
		t.Fatalf("fade_in = %d, want 2", n)
	}
}

func TestMarkers_UseFrontZoomDuringTransition(t *testing.T) {
	h := newTestHarness(t, WithStart(vancouverLat, vancouverLon, 10))
	id := h.Map.AddMarker(vancouverLat, vancouverLon)
	h.Step()
	m, _ := h.Map.MarkerSet().Get(id)
	start := m.Screen

	h.Map.ZoomIn()
	h.RunTicks(10)
	if h.Map.State() != StateScaling {
		t.Fatalf("state = %v, want scaling", h.Map.State())
	}
	s := h.Map.Front().Scale
	want := start.Mul(s)
	if m.Screen.Dist(want) > 1e-6 {
		t.Fatalf("marker at %v with front scale %.3f, want %v", m.Screen, s, want)
	}

	runToIdle(t, h)
	if m.Screen.Dist(start.Mul(2)) > 1e-6 {
		t.Fatalf("marker at %v after zoom in, want %v", m.Screen, start.Mul(2))
	}
}

func TestMarkers_PlaceAtScreenPoint(t *testing.T) {
	h := newTestHarness(t, WithStart(vancouverLat, vancouverLon, 12))
	lat, lon, ok := h.Map.ScreenToGeo(Vec{100, -50})
	if !ok {
		t.Fatal("no geo under (100,-50)")
	}
	id := h.Map.PlaceMarkerAt(100, -50)
	h.Step()
	m, ok := h.Map.MarkerSet().Get(id)
	if !ok {
		t.Fatal("marker not placed")
	}
	if math.Abs(m.Geo.Lat()-lat) > 1e-9 || math.Abs(m.Geo.Lon()-lon) > 1e-9 {
		t.Fatalf("marker geo (%f,%f), want (%f,%f)", m.Geo.Lat(), m.Geo.Lon(), lat, lon)
	}
	if m.Screen.Dist(Vec{100, -50}) > 1e-6 {
		t.Fatalf("marker screen %v, want (100,-50)", m.Screen)
	}
}

func TestMarkers_Remove(t *testing.T) {
	h := newTestHarness(t)
	id := h.Map.AddMarker(10, 10)
	h.Step()
	h.Map.RemoveMarker(id)
	h.Step()
	if h.Map.MarkerSet().Len() != 0 {
		t.Fatalf("markers = %d, want 0", h.Map.MarkerSet().Len())
	}
	if len(h.Map.Markers()) != 0 {
		t.Fatal("Markers() still lists the removed marker")
	}
}
