package app

import (
	"image"
	"image/color"

	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultTextureCache = 256

var (
	placeholderFill   = color.RGBA{R: 36, G: 40, B: 46, A: 255}
	placeholderStroke = color.RGBA{R: 54, G: 60, B: 68, A: 255}
)

// tileRenderer draws slot images onto the frame being rendered. Decoded
// images become GPU textures once per key and are kept in an LRU.
type tileRenderer struct {
	screen   *ebiten.Image
	w, h     int
	textures *lru.Cache[string, *ebiten.Image]
	drawn    int
}

func newTileRenderer(size int) *tileRenderer {
	if size <= 0 {
		size = defaultTextureCache
	}
	textures, err := lru.NewWithEvict(size, func(_ string, img *ebiten.Image) {
		img.Deallocate()
	})
	if err != nil {
		// Only returned for size <= 0.
		panic(err)
	}
	return &tileRenderer{textures: textures}
}

func (r *tileRenderer) begin(screen *ebiten.Image) {
	r.screen = screen
	b := screen.Bounds()
	r.w, r.h = b.Dx(), b.Dy()
	r.drawn = 0
}

func (r *tileRenderer) end() { r.screen = nil }

// texture returns the GPU copy of img, uploading it on first use.
func (r *tileRenderer) texture(key string, img image.Image) *ebiten.Image {
	if tex, ok := r.textures.Get(key); ok {
		return tex
	}
	tex := ebiten.NewImageFromImage(img)
	r.textures.Add(key, tex)
	return tex
}

// Present implements mapview.Renderer.
func (r *tileRenderer) Present(v mapview.SlotView, img image.Image, alpha float64) {
	if r.screen == nil {
		return
	}
	x, y := toWindow(v.Rect.TopLeft(), r.w, r.h)
	size := v.Rect.Width()
	if img == nil || v.Key == "" {
		a := uint8(255 * alpha)
		vector.FillRect(r.screen, float32(x), float32(y), float32(size), float32(size),
			scaleAlpha(placeholderFill, a), false)
		vector.StrokeRect(r.screen, float32(x), float32(y), float32(size), float32(size),
			1, scaleAlpha(placeholderStroke, a), false)
		return
	}

	tex := r.texture(v.Key, img)
	b := tex.Bounds()
	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	op.GeoM.Scale(size/float64(b.Dx()), size/float64(b.Dy()))
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleAlpha(float32(alpha))
	r.screen.DrawImage(tex, op)
	r.drawn++
}

// scaleAlpha premultiplies c by a/255.
func scaleAlpha(c color.RGBA, a uint8) color.RGBA {
	f := uint16(a)
	return color.RGBA{
		R: uint8(uint16(c.R) * f / 255),
		G: uint8(uint16(c.G) * f / 255),
		B: uint8(uint16(c.B) * f / 255),
		A: uint8(uint16(c.A) * f / 255),
	}
}
