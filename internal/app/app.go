// Package app runs the map engine inside an ebiten window: input handling,
// tile drawing, markers, the HUD and the event panel.
package app

import (
	"fmt"
	"image/color"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/config"
	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const (
	snapshotEvery = 6 // ticks between published snapshots
	statusTicks   = 120
)

// App implements ebiten.Game around a *mapview.Map.
type App struct {
	m        *mapview.Map
	log      *slog.Logger
	renderer *tileRenderer
	input    *inputState
	panel    *eventPanel

	width  int
	height int
	dt     time.Duration

	showHUD    bool
	showEvents bool

	status      string
	statusUntil int

	snapshot atomic.Pointer[mapview.Snapshot]
}

// New wraps m. cfg supplies window, input and debug settings.
func New(m *mapview.Map, cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{
		m:          m,
		log:        logger,
		renderer:   newTileRenderer(cfg.Tiles.CacheSize),
		input:      newInputState(cfg.Input, cfg.Window.TPS),
		panel:      newEventPanel(),
		width:      cfg.Window.Width,
		height:     cfg.Window.Height,
		dt:         time.Second / time.Duration(cfg.Window.TPS),
		showHUD:    true,
		showEvents: cfg.Debug.EventPanel,
	}
	a.snapshot.Store(m.Snapshot())
	return a
}

// Snapshot returns the most recently published engine state. Safe for
// concurrent use.
func (a *App) Snapshot() *mapview.Snapshot { return a.snapshot.Load() }

// AddMarker enqueues a marker. Safe for concurrent use.
func (a *App) AddMarker(lat, lon float64) uuid.UUID { return a.m.AddMarker(lat, lon) }

// RemoveMarker enqueues a marker removal. Safe for concurrent use.
func (a *App) RemoveMarker(id uuid.UUID) { a.m.RemoveMarker(id) }

// Map returns the wrapped engine. Only its command methods are safe off the
// ebiten goroutine.
func (a *App) Map() *mapview.Map { return a.m }

func (a *App) Update() error {
	a.handleInput()
	a.tick()
	return nil
}

// tick advances the engine one frame and periodically publishes a snapshot.
func (a *App) tick() {
	a.m.Tick(a.dt)
	if a.m.Ticks()%snapshotEvery == 0 {
		a.snapshot.Store(a.m.Snapshot())
	}
}

func (a *App) handleInput() {
	for _, act := range a.input.poll(a.width, a.height) {
		switch act.kind {
		case actionPan:
			a.m.PanBy(act.vec.X, act.vec.Y)
		case actionZoom:
			a.m.ZoomBy(act.levels)
		case actionZoomScale:
			a.m.ZoomToScale(act.scale)
		case actionPlaceMarker:
			id := a.m.PlaceMarkerAt(act.vec.X, act.vec.Y)
			a.input.lastMarker = id
			a.log.Debug("marker placed", "id", id, "x", act.vec.X, "y", act.vec.Y)
		case actionRemoveMarker:
			if a.input.lastMarker != uuid.Nil {
				a.m.RemoveMarker(a.input.lastMarker)
				a.input.lastMarker = uuid.Nil
			}
		case actionCopyCenter:
			a.copyCenter()
		case actionToggleHUD:
			a.showHUD = !a.showHUD
		case actionToggleEvents:
			a.showEvents = !a.showEvents
		}
	}
}

func (a *App) copyCenter() {
	text, ok := centerText(a.m.Snapshot())
	if !ok {
		a.setStatus("no tile under centre")
		return
	}
	if err := writeClipboard(text); err != nil {
		a.log.Warn("clipboard write failed", "err", err)
		a.setStatus("clipboard unavailable")
		return
	}
	a.setStatus("copied " + text)
}

func (a *App) setStatus(s string) {
	a.status = s
	a.statusUntil = a.m.Ticks() + statusTicks
}

func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 14, G: 16, B: 20, A: 255})

	a.renderer.begin(screen)
	a.m.Render(a.renderer)
	a.renderer.end()

	drawMarkers(screen, a.m.Markers())

	if a.showEvents {
		a.panel.Draw(screen, a.m.Events(), a.width-panelWidth, a.height)
	}
	if a.showHUD {
		a.drawHUD(screen)
	}
	if a.status != "" && a.m.Ticks() < a.statusUntil {
		ebitenutil.DebugPrintAt(screen, a.status, 8, a.height-20)
	}
}

func (a *App) drawHUD(screen *ebiten.Image) {
	s := a.Snapshot()
	center := "--"
	if s.CenterOK {
		center = fmt.Sprintf("%.5f, %.5f", s.CenterLat, s.CenterLon)
	}
	lines := []string{
		fmt.Sprintf("zoom %d  %s  ref %s", s.Zoom, s.State, s.Reference),
		"centre " + center,
		fmt.Sprintf("tiles issued %d  applied %d  failed %d",
			s.Counters[mapview.CatFetch+"/"+mapview.KeyIssued],
			s.Counters[mapview.CatFetch+"/"+mapview.KeyApplied],
			s.Counters[mapview.CatFetch+"/"+mapview.KeyFailed]),
		fmt.Sprintf("markers %d  TPS %.0f", len(s.Markers), ebiten.ActualTPS()),
		"drag/arrows=pan  wheel/+-=zoom  dbl-click=marker",
		"backspace=undo marker  C=copy  H=HUD  L=events",
	}
	drawBox(screen, lines, 6, 6)
}

// Layout follows the window size and resizes the engine viewport to match.
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth > 0 && outsideHeight > 0 && (outsideWidth != a.width || outsideHeight != a.height) {
		a.width, a.height = outsideWidth, outsideHeight
		a.m.SetViewport(float64(outsideWidth), float64(outsideHeight))
	}
	return a.width, a.height
}

// centerText formats the centre position for the clipboard.
func centerText(s *mapview.Snapshot) (string, bool) {
	if s == nil || !s.CenterOK {
		return "", false
	}
	return fmt.Sprintf("%.6f,%.6f z%d %s", s.CenterLat, s.CenterLon, s.Zoom, s.Reference), true
}
