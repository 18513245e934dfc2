package fetch_test

import (
	"context"
	"database/sql"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/Garsondee/Slippy-Sense/internal/fetch"
	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
)

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	tile := pngBytes(t, color.White)
	if err := os.MkdirAll(filepath.Join(root, "4", "3"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "4", "3", "5.png"), tile, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := fetch.NewDirSource(root + "/{z}/{x}/{y}.png")
	if err != nil {
		t.Fatalf("NewDirSource: %v", err)
	}
	got, err := src.Fetch(context.Background(), tilemath.Coordinate{Zoom: 4, X: 3, Y: 5})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if diff := cmp.Diff(tile, got); diff != "" {
		t.Errorf("tile mismatch (-want+got):\n%v", diff)
	}
	if _, err := src.Fetch(context.Background(), tilemath.Coordinate{Zoom: 4, X: 3, Y: 6}); !errors.Is(err, fetch.ErrNotFound) {
		t.Errorf("missing file: err = %v, want ErrNotFound", err)
	}
	if _, err := fetch.NewDirSource(root + "/tiles.png"); !errors.Is(err, fetch.ErrInvalidPattern) {
		t.Errorf("bad pattern: err = %v, want ErrInvalidPattern", err)
	}
}

func writeMBTiles(t *testing.T, path string, tiles map[tilemath.Coordinate][]byte) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB);
		INSERT INTO metadata (name, value) VALUES ('name', 'test'), ('format', 'png');
	`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	for c, data := range tiles {
		tmsY := (1 << c.Zoom) - 1 - c.Y
		if _, err := db.Exec("INSERT INTO tiles VALUES (?, ?, ?, ?)", c.Zoom, c.X, tmsY, data); err != nil {
			t.Fatalf("insert %v: %v", c, err)
		}
	}
}

func TestMBTilesSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mbtiles")
	tile := pngBytes(t, color.Black)
	writeMBTiles(t, path, map[tilemath.Coordinate][]byte{{Zoom: 3, X: 1, Y: 2}: tile})

	src, err := fetch.OpenMBTiles(path)
	if err != nil {
		t.Fatalf("OpenMBTiles: %v", err)
	}
	defer src.Close()
	ctx := context.Background()

	got, err := src.Fetch(ctx, tilemath.Coordinate{Zoom: 3, X: 1, Y: 2})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if diff := cmp.Diff(tile, got); diff != "" {
		t.Errorf("tile mismatch (-want+got):\n%v", diff)
	}
	// Row 5 in XYZ is TMS row 2, which holds nothing.
	if _, err := src.Fetch(ctx, tilemath.Coordinate{Zoom: 3, X: 1, Y: 5}); !errors.Is(err, fetch.ErrNotFound) {
		t.Errorf("missing tile: err = %v, want ErrNotFound", err)
	}

	md, err := src.Metadata(ctx)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"name": "test", "format": "png"}, md); diff != "" {
		t.Errorf("metadata mismatch (-want+got):\n%v", diff)
	}
}

func TestMBTilesSource_PathWithURIMetacharacters(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.mbtiles")
	tile := pngBytes(t, color.White)
	writeMBTiles(t, plain, map[tilemath.Coordinate][]byte{{Zoom: 2, X: 3, Y: 1}: tile})

	odd := filepath.Join(dir, "tiles?v=1#b 100%.mbtiles")
	if err := os.Rename(plain, odd); err != nil {
		t.Fatal(err)
	}
	src, err := fetch.OpenMBTiles(odd)
	if err != nil {
		t.Fatalf("OpenMBTiles(%q): %v", odd, err)
	}
	defer src.Close()

	got, err := src.Fetch(context.Background(), tilemath.Coordinate{Zoom: 2, X: 3, Y: 1})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if diff := cmp.Diff(tile, got); diff != "" {
		t.Errorf("tile mismatch (-want+got):\n%v", diff)
	}
}
