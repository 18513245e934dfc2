package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
	_ "github.com/mattn/go-sqlite3"
)

// MBTilesSource reads tiles from an MBTiles (sqlite) file. MBTiles stores rows
// in TMS order, so y is flipped on lookup.
type MBTilesSource struct {
	path string
	db   *sql.DB
	stmt *sql.Stmt
}

// OpenMBTiles opens path read-only. Close releases the database.
func OpenMBTiles(path string) (*MBTilesSource, error) {
	db, err := sql.Open("sqlite3", mbtilesDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare tile query on %s: %w", path, err)
	}
	return &MBTilesSource{path: path, db: db, stmt: stmt}, nil
}

// mbtilesDSN builds a read-only sqlite URI for path, escaping characters such
// as '?' and '#' that would otherwise end the file name.
func mbtilesDSN(path string) string {
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(path),
		OmitHost: true,
		RawQuery: "mode=ro",
	}
	return u.String()
}

func (s *MBTilesSource) Name() string { return "mbtiles:" + s.path }

func (s *MBTilesSource) Close() error {
	return errors.Join(s.stmt.Close(), s.db.Close())
}

// Metadata returns the name/value pairs of the metadata table.
func (s *MBTilesSource) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	md := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		md[name] = value
	}
	return md, rows.Err()
}

func (s *MBTilesSource) Fetch(ctx context.Context, c tilemath.Coordinate) ([]byte, error) {
	tmsY := tilemath.CycleLimit(c.Zoom) - c.Y // XYZ -> TMS

	var data []byte
	err := s.stmt.QueryRowContext(ctx, c.Zoom, c.X, tmsY).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && len(data) == 0) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, c.Key(), s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", c.Key(), s.path, err)
	}
	return data, nil
}
