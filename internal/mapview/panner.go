package mapview

import (
	"fmt"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

// Panner translates the front layer and recycles slots that leave the viewport
// to the opposite edge of the grid.
type Panner struct {
	eng           *engine
	clampVertical bool
}

// PanBy moves l by delta (screen pixels) and recycles slots that crossed an edge
// in the direction of travel. Returns the number of slots recycled.
func (p *Panner) PanBy(l *Layer, delta Vec) int {
	if delta.IsZero() {
		return 0
	}
	l.Offset = l.Offset.Add(delta.Mul(1 / l.Scale))
	recycled := 0
	for i := range l.slots {
		if p.recycle(l, i, delta, false) {
			recycled++
		}
	}
	return recycled
}

// Settle applies the four-edge test regardless of direction, moving only slots
// whose new position intersects the viewport. Used after swaps and resizes.
func (p *Panner) Settle(l *Layer) int {
	total := 0
	for pass := 0; pass < l.Width+l.Height; pass++ {
		moved := 0
		for i := range l.slots {
			if p.recycle(l, i, Vec{}, true) {
				moved++
			}
		}
		total += moved
		if moved == 0 {
			break
		}
	}
	return total
}

// recycle runs the edge tests for slot i. At most one move per axis, and one
// coordinate recompute, happen per call.
func (p *Panner) recycle(l *Layer, i int, dir Vec, settle bool) bool {
	vp := p.eng.viewport
	pos := l.ScreenPos(i)
	half := l.TileSize * l.Scale / 2
	spanX := float64(l.Width) * l.TileSize
	spanY := float64(l.Height) * l.TileSize
	spanXs, spanYs := spanX*l.Scale, spanY*l.Scale
	s := &l.slots[i]
	moved := false

	switch {
	case (dir.X < 0 || settle) && pos.X+half < vp.Left():
		if !settle || pos.X+spanXs-half <= vp.Right() {
			s.Local.X += spanX
			moved = true
		}
	case (dir.X > 0 || settle) && pos.X-half > vp.Right():
		if !settle || pos.X-spanXs+half >= vp.Left() {
			s.Local.X -= spanX
			moved = true
		}
	}
	switch {
	case (dir.Y > 0 || settle) && pos.Y-half > vp.Top():
		if !settle || pos.Y-spanYs+half >= vp.Bottom() {
			s.Local.Y -= spanY
			moved = true
		}
	case (dir.Y < 0 || settle) && pos.Y+half < vp.Bottom():
		if !settle || pos.Y+spanYs-half <= vp.Top() {
			s.Local.Y += spanY
			moved = true
		}
	}
	if !moved {
		return false
	}
	p.eng.record(l.ID.String(), CatPan, KeyRecycle, fmt.Sprintf("slot %d", i), float64(i))
	l.RecomputeSlotCoordinate(i)
	return true
}

// ClampDelta limits the vertical part of delta so that the world's north and
// south edges never move inside the viewport. Motion away from a violation is
// always allowed.
func (p *Panner) ClampDelta(l *Layer, delta Vec) Vec {
	if !p.clampVertical || delta.Y == 0 {
		return delta
	}
	vp := p.eng.viewport
	rows := float64(tilemath.TilesAt(l.reference.Zoom))
	t := l.TileSize * l.Scale
	anchorY := (l.Offset.Y + l.anchor.Y) * l.Scale
	top := anchorY + float64(l.reference.Y)*t + t/2
	bottom := anchorY - (rows-float64(l.reference.Y))*t + t/2

	orig := delta.Y
	switch {
	case delta.Y < 0 && top+delta.Y < vp.Top():
		delta.Y = min(0, max(delta.Y, vp.Top()-top))
	case delta.Y > 0 && bottom+delta.Y > vp.Bottom():
		delta.Y = max(0, min(delta.Y, vp.Bottom()-bottom))
	}
	if delta.Y != orig {
		p.eng.record(l.ID.String(), CatPan, KeyClamped, fmt.Sprintf("dy %.1f -> %.1f", orig, delta.Y), delta.Y)
	}
	return delta
}
