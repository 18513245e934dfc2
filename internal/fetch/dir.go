package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

// DirSource reads tiles from an XYZ directory tree such as
// "tiles/{z}/{x}/{y}.png".
type DirSource struct {
	Pattern string
}

// NewDirSource validates pattern and returns a source for it.
func NewDirSource(pattern string) (*DirSource, error) {
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}
	return &DirSource{Pattern: filepath.FromSlash(pattern)}, nil
}

func (s *DirSource) Name() string { return "dir:" + s.Pattern }

func (s *DirSource) Fetch(ctx context.Context, c tilemath.Coordinate) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := formatPattern(s.Pattern, c)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
