package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/app"
	"github.com/Garsondee/Slippy-Sense/internal/config"
	"github.com/Garsondee/Slippy-Sense/internal/debugserver"
	"github.com/Garsondee/Slippy-Sense/internal/fetch"
	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/hajimehoshi/ebiten/v2"
)

type flags struct {
	configPath string
	lat, lon   float64
	zoom       int
	debugAddr  string
	tileDir    string
	mbtiles    string
	offline    bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "config file (yaml, toml, json or env); default ./slippy.*")
	flag.Float64Var(&f.lat, "lat", 0, "start latitude")
	flag.Float64Var(&f.lon, "lon", 0, "start longitude")
	flag.IntVar(&f.zoom, "zoom", 0, "start zoom level")
	flag.StringVar(&f.debugAddr, "debug-addr", "", "serve engine state over HTTP on this address")
	flag.StringVar(&f.tileDir, "tiles", "", "local tile pattern, e.g. ./tiles/{z}/{x}/{y}.png")
	flag.StringVar(&f.mbtiles, "mbtiles", "", "MBTiles file consulted before the network")
	flag.BoolVar(&f.offline, "offline", false, "never fetch tiles over the network")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func run(f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	mapview.SetLogger(logger)

	src, closeSrc, err := buildSource(cfg.Tiles, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

	client, err := fetch.NewClient(src, fetch.Options{
		CacheSize:     cfg.Tiles.CacheSize,
		MaxConcurrent: cfg.Tiles.MaxConcurrent,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	loader := mapview.NewAsyncLoader(context.Background(), client)
	defer loader.Close()

	m, err := mapview.New(cfg.MapView(), loader)
	if err != nil {
		return err
	}
	a := app.New(m, cfg, logger)

	if cfg.Debug.Addr != "" {
		srv := debugserver.New(cfg.Debug.Addr, a, logger)
		if _, err := srv.Start(); err != nil {
			return fmt.Errorf("debug server: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.Window.TPS)

	err = ebiten.RunGame(a)
	st := client.Stats()
	logger.Info("tile client stats", "hits", st.Hits, "misses", st.Misses, "fetched", st.Fetched, "failures", st.Failures)
	return err
}

// applyFlags overrides config values with flags given on the command line.
func applyFlags(cfg *config.Config, f flags) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "lat":
			cfg.Start.Lat = f.lat
		case "lon":
			cfg.Start.Lon = f.lon
		case "zoom":
			cfg.Start.Zoom = f.zoom
		case "debug-addr":
			cfg.Debug.Addr = f.debugAddr
		case "tiles":
			cfg.Tiles.Dir = f.tileDir
		case "mbtiles":
			cfg.Tiles.MBTiles = f.mbtiles
		case "offline":
			cfg.Tiles.Offline = f.offline
		}
	})
}

// buildSource chains the configured sources: MBTiles, then a tile directory,
// then the network unless offline.
func buildSource(tc config.TilesConfig, logger *slog.Logger) (fetch.Source, func(), error) {
	var (
		chain   fetch.Chain
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("closing tile source", "err", err)
			}
		}
	}

	if tc.MBTiles != "" {
		mb, err := fetch.OpenMBTiles(tc.MBTiles)
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, mb.Close)
		chain = append(chain, mb)
		if meta, err := mb.Metadata(context.Background()); err == nil {
			logger.Info("mbtiles opened", "path", tc.MBTiles, "name", meta["name"], "format", meta["format"])
		}
	}
	if tc.Dir != "" {
		dir, err := fetch.NewDirSource(tc.Dir)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		chain = append(chain, dir)
	}
	if !tc.Offline {
		limiter := fetch.NewRateLimiter(fetch.DefaultBackoff, logger)
		h, err := fetch.NewHTTPSource(tc.URL, tc.UserAgent, tc.Timeout, limiter)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		chain = append(chain, h)
	}
	if len(chain) == 0 {
		return nil, func() {}, errors.New("no tile source configured")
	}
	for _, s := range chain {
		logger.Debug("tile source", "name", s.Name())
	}
	return chain, closeAll, nil
}
