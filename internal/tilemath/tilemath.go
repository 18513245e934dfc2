// Package tilemath implements slippy-map tile addressing: Web-Mercator projection
// between geographic and tile coordinates, tile key naming and horizontal wraparound.
package tilemath

import (
	"errors"
	"fmt"
	"math"
)

// MaxLatitude is the latitude where the Web-Mercator square ends.
const MaxLatitude = 85.0511287798066

var (
	// ErrInvalidKey is returned by ParseKey for keys that are malformed or
	// address no tile.
	ErrInvalidKey = errors.New("tilemath: invalid tile key")
)

// Coordinate identifies one raster tile in the XYZ scheme.
type Coordinate struct {
	Zoom int
	X    int
	Y    int
}

// Valid reports whether the coordinate addresses an existing tile.
// Rows outside [0, 2^zoom) are the poles: no tile.
func (c Coordinate) Valid() bool {
	if c.Zoom < 0 || c.Zoom >= 31 {
		return false
	}
	n := 1 << c.Zoom
	return c.X >= 0 && c.X < n && c.Y >= 0 && c.Y < n
}

// Key returns the fetch key of the coordinate.
func (c Coordinate) Key() string {
	return Key(c.Zoom, c.X, c.Y)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("z%d/%d/%d", c.Zoom, c.X, c.Y)
}

// Key builds the deterministic tile key "{zoom}/{x}/{y}.png".
func Key(zoom, x, y int) string {
	return fmt.Sprintf("%d/%d/%d.png", zoom, x, y)
}

// ParseKey inverts Key. The extension is not restricted to png.
func ParseKey(key string) (Coordinate, error) {
	var c Coordinate
	var ext string
	n, err := fmt.Sscanf(key, "%d/%d/%d.%s", &c.Zoom, &c.X, &c.Y, &ext)
	if err != nil || n != 4 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("%w: %q out of range", ErrInvalidKey, key)
	}
	return c, nil
}

// TilesAt returns 2^zoom, the number of tiles along one axis.
func TilesAt(zoom int) int {
	return 1 << zoom
}

// CycleLimit returns the largest valid column at zoom (2^zoom - 1).
func CycleLimit(zoom int) int {
	return TilesAt(zoom) - 1
}

// WrapX maps any column back into [0, cycleLimit].
// Negative columns are reflected before wrapping so that -1 maps to cycleLimit,
// -2 to cycleLimit-1 and so on, keeping panning continuous across the antimeridian.
func WrapX(x, cycleLimit int) int {
	period := cycleLimit + 1
	if x > cycleLimit {
		return x % period
	}
	if x < 0 {
		t := -x - 1
		t %= period
		return cycleLimit - t
	}
	return x
}

// GeoToTile projects a geographic position to the tile containing it.
func GeoToTile(lat, lon float64, zoom int) (x, y int) {
	fx, fy := GeoToTileFractional(lat, lon, zoom)
	return int(math.Floor(fx)), int(math.Floor(fy))
}

// GeoToTileFractional projects a geographic position to fractional tile units.
func GeoToTileFractional(lat, lon float64, zoom int) (fx, fy float64) {
	n := float64(TilesAt(zoom))
	rad := lat * math.Pi / 180
	fx = (lon + 180) / 360 * n
	fy = (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2 * n
	return fx, fy
}

// TileToGeo returns the geographic position of the north-west corner of tile
// (x, y). Fractional tile units address points inside the tile.
func TileToGeo(x, y float64, zoom int) (lat, lon float64) {
	size := math.Pow(2, float64(zoom))
	n := math.Pi - 2*math.Pi*y/size
	lon = x/size*360 - 180
	lat = 180 / math.Pi * math.Atan(math.Sinh(n))
	return lat, lon
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Scale re-addresses c at zoom+levels: multiplied by 2^levels when zooming in,
// floor-divided when zooming out. The result is not wrapped.
func (c Coordinate) Scale(levels int) Coordinate {
	switch {
	case levels > 0:
		f := 1 << levels
		return Coordinate{Zoom: c.Zoom + levels, X: c.X * f, Y: c.Y * f}
	case levels < 0:
		f := 1 << -levels
		return Coordinate{Zoom: c.Zoom + levels, X: FloorDiv(c.X, f), Y: FloorDiv(c.Y, f)}
	default:
		return c
	}
}
