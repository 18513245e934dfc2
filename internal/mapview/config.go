package mapview

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by New for unusable engine settings.
var ErrInvalidConfig = errors.New("mapview: invalid config")

// Config holds the engine settings. Durations are simulated time advanced by Tick.
type Config struct {
	GridWidth  int
	GridHeight int
	TileSize   float64

	MinZoom   int
	MaxZoom   int
	StartZoom int
	StartLat  float64
	StartLon  float64

	ViewportWidth  float64
	ViewportHeight float64

	ScaleDuration      time.Duration
	FadeDuration       time.Duration
	MarkerFadeDuration time.Duration

	ValidatorInterval time.Duration
	PendingTimeout    time.Duration
	RetryFailed       bool

	ClampVertical bool
	EventLogLimit int
}

// DefaultConfig returns the stock settings: a 7x5 grid of 256px tiles over a
// 1280x720 viewport, starting on Vancouver at zoom 3.
func DefaultConfig() Config {
	return Config{
		GridWidth:          7,
		GridHeight:         5,
		TileSize:           256,
		MinZoom:            3,
		MaxZoom:            19,
		StartZoom:          3,
		StartLat:           49.2674573,
		StartLon:           -123.0930032,
		ViewportWidth:      1280,
		ViewportHeight:     720,
		ScaleDuration:      500 * time.Millisecond,
		FadeDuration:       500 * time.Millisecond,
		MarkerFadeDuration: 250 * time.Millisecond,
		ValidatorInterval:  time.Second,
		PendingTimeout:     10 * time.Second,
		ClampVertical:      true,
		EventLogLimit:      4096,
	}
}

func (c Config) validate() error {
	switch {
	case c.GridWidth < 1 || c.GridHeight < 1:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, c.GridWidth, c.GridHeight)
	case c.TileSize <= 0:
		return fmt.Errorf("%w: tile size %v", ErrInvalidConfig, c.TileSize)
	case c.MinZoom < 0 || c.MaxZoom > 30 || c.MinZoom > c.MaxZoom:
		return fmt.Errorf("%w: zoom range [%d, %d]", ErrInvalidConfig, c.MinZoom, c.MaxZoom)
	case c.ViewportWidth <= 0 || c.ViewportHeight <= 0:
		return fmt.Errorf("%w: viewport %vx%v", ErrInvalidConfig, c.ViewportWidth, c.ViewportHeight)
	}
	return nil
}
