package main

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Garsondee/Slippy-Sense/internal/config"
	"github.com/Garsondee/Slippy-Sense/internal/fetch"
)

func TestBuildSource(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	pattern := filepath.Join(t.TempDir(), "{z}", "{x}", "{y}.png")

	tests := []struct {
		name  string
		tiles config.TilesConfig
		want  []string
	}{
		{"network only", config.TilesConfig{URL: fetch.DefaultTileURL}, []string{"tile.openstreetmap.org"}},
		{"dir then network", config.TilesConfig{URL: fetch.DefaultTileURL, Dir: pattern}, []string{"dir:" + pattern, "tile.openstreetmap.org"}},
		{"offline dir", config.TilesConfig{Dir: pattern, Offline: true}, []string{"dir:" + pattern}},
	}
	for _, tt := range tests {
		src, closeSrc, err := buildSource(tt.tiles, logger)
		if err != nil {
			t.Fatalf("%s: buildSource: %v", tt.name, err)
		}
		chain, ok := src.(fetch.Chain)
		if !ok {
			t.Fatalf("%s: source is %T, want fetch.Chain", tt.name, src)
		}
		var got []string
		for _, s := range chain {
			got = append(got, s.Name())
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%s: sources %v, want %v", tt.name, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: source %d = %q, want %q", tt.name, i, got[i], tt.want[i])
			}
		}
		closeSrc()
	}
}

func TestBuildSource_Errors(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	if _, _, err := buildSource(config.TilesConfig{Offline: true}, logger); err == nil {
		t.Error("offline without local sources: expected error")
	}
	if _, _, err := buildSource(config.TilesConfig{URL: "https://example.com/tiles"}, logger); err == nil {
		t.Error("url without placeholders: expected error")
	}
	if _, _, err := buildSource(config.TilesConfig{MBTiles: filepath.Join(t.TempDir(), "missing", "x.mbtiles"), Offline: true}, logger); err == nil {
		t.Error("missing mbtiles file: expected error")
	}
}
