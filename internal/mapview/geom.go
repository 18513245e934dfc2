package mapview

import "math"

// Vec is a point or displacement in map screen space: origin at the viewport
// centre, X to the right, Y up, in pixels.
type Vec struct {
	X float64
	Y float64
}

func (v Vec) Add(o Vec) Vec      { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec      { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Mul(f float64) Vec  { return Vec{v.X * f, v.Y * f} }
func (v Vec) IsZero() bool       { return v.X == 0 && v.Y == 0 }
func (v Vec) Len() float64       { return math.Hypot(v.X, v.Y) }
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

// Rect is an axis-aligned rectangle in screen space. Min is the bottom-left
// corner, Max the top-right.
type Rect struct {
	Min Vec
	Max Vec
}

// RectAround returns the square of side size centred on c.
func RectAround(c Vec, size float64) Rect {
	h := size / 2
	return Rect{Min: Vec{c.X - h, c.Y - h}, Max: Vec{c.X + h, c.Y + h}}
}

func (r Rect) Center() Vec     { return Vec{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2} }
func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// TopLeft returns the north-west corner, the origin of a tile's pixel grid.
func (r Rect) TopLeft() Vec { return Vec{r.Min.X, r.Max.Y} }

// Contains uses the same half-open convention as tile addressing: the left
// and top edges belong to the rectangle, the right and bottom edges do not.
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y > r.Min.Y && p.Y <= r.Max.Y
}

// Viewport is the visible window, centred on the screen-space origin.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (v Viewport) Left() float64   { return -v.Width / 2 }
func (v Viewport) Right() float64  { return v.Width / 2 }
func (v Viewport) Top() float64    { return v.Height / 2 }
func (v Viewport) Bottom() float64 { return -v.Height / 2 }

// Contains reports whether p lies inside the viewport, edges included.
func (v Viewport) Contains(p Vec) bool {
	return p.X >= v.Left() && p.X <= v.Right() && p.Y >= v.Bottom() && p.Y <= v.Top()
}

// Intersects reports whether any part of r is inside the viewport.
func (v Viewport) Intersects(r Rect) bool {
	return r.Max.X >= v.Left() && r.Min.X <= v.Right() && r.Max.Y >= v.Bottom() && r.Min.Y <= v.Top()
}
