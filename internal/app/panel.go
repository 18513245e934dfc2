package app

import (
	"image/color"

	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	panelWidth     = 340
	panelMaxLines  = 60
	panelLineH     = 11
	panelHighlight = 3 // newest entries drawn on a highlighted row
)

// eventPanel draws the tail of the engine event log down the right side.
type eventPanel struct {
	lines []string
}

func newEventPanel() *eventPanel { return &eventPanel{} }

// refresh rebuilds the visible lines from the last n events, oldest first.
func (p *eventPanel) refresh(events *mapview.EventLog, n int) []string {
	p.lines = p.lines[:0]
	for _, e := range events.Recent(min(n, panelMaxLines)) {
		p.lines = append(p.lines, e.String())
	}
	return p.lines
}

func (p *eventPanel) Draw(screen *ebiten.Image, panelX, panelH int) {
	vector.FillRect(screen, float32(panelX), 0, float32(panelWidth), float32(panelH),
		color.RGBA{R: 10, G: 12, B: 16, A: 230}, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH),
		1.0, color.RGBA{R: 50, G: 60, B: 80, A: 255}, false)

	vector.FillRect(screen, float32(panelX), 0, float32(panelWidth), 16,
		color.RGBA{R: 20, G: 26, B: 36, A: 255}, false)
	ebitenutil.DebugPrintAt(screen, "EVENTS", panelX+8, 2)
	vector.StrokeLine(screen, float32(panelX), 16, float32(panelX+panelWidth), 16,
		1.0, color.RGBA{R: 50, G: 70, B: 100, A: 200}, false)

	maxVisible := (panelH - 24) / panelLineH
	if maxVisible <= 0 {
		return
	}
	visible := p.refresh(events, maxVisible)

	y := 20
	for i, line := range visible {
		if i >= len(visible)-panelHighlight {
			vector.FillRect(screen, float32(panelX+2), float32(y), float32(panelWidth-4), float32(panelLineH),
				color.RGBA{R: 30, G: 36, B: 50, A: 160}, false)
		}
		ebitenutil.DebugPrintAt(screen, line, panelX+6, y)
		y += panelLineH
	}
}
