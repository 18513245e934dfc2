package app

import (
	"image/color"

	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	markerRadius = 7
	lineH        = 12 // debug font line height
	charW        = 6  // debug font char width
)

var (
	markerFill    = color.RGBA{R: 220, G: 60, B: 50, A: 255}
	markerOutline = color.RGBA{R: 255, G: 245, B: 235, A: 255}
)

func drawMarkers(screen *ebiten.Image, markers []mapview.MarkerView) {
	b := screen.Bounds()
	for _, mk := range markers {
		if mk.Alpha <= 0 {
			continue
		}
		x, y := toWindow(mk.Screen, b.Dx(), b.Dy())
		a := uint8(255 * mk.Alpha)
		vector.FillCircle(screen, float32(x), float32(y), markerRadius+2, scaleAlpha(markerOutline, a), true)
		vector.FillCircle(screen, float32(x), float32(y), markerRadius, scaleAlpha(markerFill, a), true)
	}
}

// drawBox prints lines inside a translucent panel with its top-left at (x, y).
func drawBox(screen *ebiten.Image, lines []string, x, y int) {
	const padX, padY = 5, 4
	maxLen := 0
	for _, l := range lines {
		maxLen = max(maxLen, len(l))
	}
	boxW := float32(maxLen*charW + padX*2)
	boxH := float32(len(lines)*lineH + padY*2)

	vector.FillRect(screen, float32(x), float32(y), boxW, boxH,
		color.RGBA{R: 8, G: 10, B: 14, A: 210}, false)
	vector.StrokeRect(screen, float32(x), float32(y), boxW, boxH,
		1.0, color.RGBA{R: 70, G: 90, B: 120, A: 180}, false)
	for i, line := range lines {
		ebitenutil.DebugPrintAt(screen, line, x+padX, y+padY+i*lineH)
	}
}
