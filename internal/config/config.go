// Package config loads application settings from an optional config file
// (YAML, TOML, JSON or .env) and SLIPPY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/fetch"
	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/spf13/viper"
)

// ErrInvalid is returned for settings the application cannot run with.
var ErrInvalid = errors.New("config: invalid settings")

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Grid      GridConfig      `mapstructure:"grid"`
	Zoom      ZoomConfig      `mapstructure:"zoom"`
	Start     StartConfig     `mapstructure:"start"`
	Animation AnimationConfig `mapstructure:"animation"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Tiles     TilesConfig     `mapstructure:"tiles"`
	Window    WindowConfig    `mapstructure:"window"`
	Input     InputConfig     `mapstructure:"input"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

type GridConfig struct {
	Width         int     `mapstructure:"width"`
	Height        int     `mapstructure:"height"`
	TileSize      float64 `mapstructure:"tile_size"`
	ClampVertical bool    `mapstructure:"clamp_vertical"`
}

type ZoomConfig struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

type StartConfig struct {
	Lat  float64 `mapstructure:"lat"`
	Lon  float64 `mapstructure:"lon"`
	Zoom int     `mapstructure:"zoom"`
}

type AnimationConfig struct {
	Scale      time.Duration `mapstructure:"scale"`
	Fade       time.Duration `mapstructure:"fade"`
	MarkerFade time.Duration `mapstructure:"marker_fade"`
}

type ValidatorConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	PendingTimeout time.Duration `mapstructure:"pending_timeout"`
	RetryFailed    bool          `mapstructure:"retry_failed"`
}

// TilesConfig selects tile sources. Dir and MBTiles, when set, are consulted
// before the URL.
type TilesConfig struct {
	URL           string        `mapstructure:"url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Dir           string        `mapstructure:"dir"`
	MBTiles       string        `mapstructure:"mbtiles"`
	Offline       bool          `mapstructure:"offline"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheSize     int           `mapstructure:"cache_size"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
	TPS    int    `mapstructure:"tps"`
}

type InputConfig struct {
	KeyPanSpeed     float64       `mapstructure:"key_pan_speed"` // pixels per second
	InertiaDuration time.Duration `mapstructure:"inertia_duration"`
	DoubleClick     time.Duration `mapstructure:"double_click"`
}

type DebugConfig struct {
	Addr       string `mapstructure:"addr"` // empty disables the debug server
	EventPanel bool   `mapstructure:"event_panel"`
}

func setDefaults(v *viper.Viper) {
	d := mapview.DefaultConfig()
	v.SetDefault("log_level", "info")

	v.SetDefault("grid.width", d.GridWidth)
	v.SetDefault("grid.height", d.GridHeight)
	v.SetDefault("grid.tile_size", d.TileSize)
	v.SetDefault("grid.clamp_vertical", d.ClampVertical)

	v.SetDefault("zoom.min", d.MinZoom)
	v.SetDefault("zoom.max", d.MaxZoom)

	v.SetDefault("start.lat", d.StartLat)
	v.SetDefault("start.lon", d.StartLon)
	v.SetDefault("start.zoom", d.StartZoom)

	v.SetDefault("animation.scale", d.ScaleDuration)
	v.SetDefault("animation.fade", d.FadeDuration)
	v.SetDefault("animation.marker_fade", d.MarkerFadeDuration)

	v.SetDefault("validator.interval", d.ValidatorInterval)
	v.SetDefault("validator.pending_timeout", d.PendingTimeout)
	v.SetDefault("validator.retry_failed", d.RetryFailed)

	v.SetDefault("tiles.url", fetch.DefaultTileURL)
	v.SetDefault("tiles.user_agent", "")
	v.SetDefault("tiles.dir", "")
	v.SetDefault("tiles.mbtiles", "")
	v.SetDefault("tiles.offline", false)
	v.SetDefault("tiles.timeout", 30*time.Second)
	v.SetDefault("tiles.cache_size", 512)
	v.SetDefault("tiles.max_concurrent", 6)

	v.SetDefault("window.width", int(d.ViewportWidth))
	v.SetDefault("window.height", int(d.ViewportHeight))
	v.SetDefault("window.title", "Slippy Sense")
	v.SetDefault("window.tps", 60)

	v.SetDefault("input.key_pan_speed", 600.0)
	v.SetDefault("input.inertia_duration", 700*time.Millisecond)
	v.SetDefault("input.double_click", 300*time.Millisecond)

	v.SetDefault("debug.addr", "")
	v.SetDefault("debug.event_panel", true)
}

// Load reads settings. With path empty it looks for an optional "slippy.*"
// file in the working directory; an explicit path must exist. Environment
// variables (SLIPPY_GRID_WIDTH, SLIPPY_TILES_URL, ...) take precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("slippy")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SLIPPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Default returns the built-in settings without reading files or environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults always decode.
	_ = v.Unmarshal(&c)
	return c
}

// Validate reports every unusable setting, wrapped in ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if c.Grid.Width < 1 || c.Grid.Height < 1 {
		add("grid %dx%d must be at least 1x1", c.Grid.Width, c.Grid.Height)
	}
	if c.Grid.TileSize <= 0 {
		add("grid.tile_size %v must be positive", c.Grid.TileSize)
	}
	if c.Zoom.Min < 0 || c.Zoom.Max > 30 || c.Zoom.Min > c.Zoom.Max {
		add("zoom range [%d, %d] must lie within [0, 30]", c.Zoom.Min, c.Zoom.Max)
	}
	if c.Start.Lat < -90 || c.Start.Lat > 90 || c.Start.Lon < -180 || c.Start.Lon > 180 {
		add("start position (%v, %v) out of range", c.Start.Lat, c.Start.Lon)
	}
	if c.Animation.Scale < 0 || c.Animation.Fade < 0 || c.Animation.MarkerFade < 0 {
		add("animation durations must not be negative")
	}
	if c.Validator.Interval < 0 {
		add("validator.interval %v must not be negative", c.Validator.Interval)
	}
	if c.Window.Width < 1 || c.Window.Height < 1 {
		add("window %dx%d must be at least 1x1", c.Window.Width, c.Window.Height)
	}
	if c.Window.TPS < 1 {
		add("window.tps %d must be positive", c.Window.TPS)
	}
	if c.Tiles.Offline && c.Tiles.Dir == "" && c.Tiles.MBTiles == "" {
		add("tiles.offline needs tiles.dir or tiles.mbtiles")
	}
	if _, err := c.SlogLevel(); err != nil {
		add("log_level: %v", err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// MapView converts the settings into an engine config.
func (c Config) MapView() mapview.Config {
	mc := mapview.DefaultConfig()
	mc.GridWidth = c.Grid.Width
	mc.GridHeight = c.Grid.Height
	mc.TileSize = c.Grid.TileSize
	mc.ClampVertical = c.Grid.ClampVertical
	mc.MinZoom = c.Zoom.Min
	mc.MaxZoom = c.Zoom.Max
	mc.StartZoom = c.Start.Zoom
	mc.StartLat = c.Start.Lat
	mc.StartLon = c.Start.Lon
	mc.ViewportWidth = float64(c.Window.Width)
	mc.ViewportHeight = float64(c.Window.Height)
	mc.ScaleDuration = c.Animation.Scale
	mc.FadeDuration = c.Animation.Fade
	mc.MarkerFadeDuration = c.Animation.MarkerFade
	mc.ValidatorInterval = c.Validator.Interval
	mc.PendingTimeout = c.Validator.PendingTimeout
	mc.RetryFailed = c.Validator.RetryFailed
	return mc
}
