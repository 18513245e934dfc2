// Package fetch turns tile keys into decoded images. A Client decodes and
// caches what a Source returns; sources read from an HTTP tile server, an XYZ
// directory tree or an MBTiles database.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

var (
	// ErrNotFound means the source has no tile at the coordinate. Chain moves
	// on to the next source.
	ErrNotFound = errors.New("fetch: tile not found")
	// ErrRateLimited is returned while an HTTP source is backing off.
	ErrRateLimited = errors.New("fetch: rate limited")
	// ErrStatus wraps an unexpected HTTP status.
	ErrStatus = errors.New("fetch: unexpected status")
	// ErrDecode means the tile bytes are not a supported image.
	ErrDecode = errors.New("fetch: undecodable tile")
	// ErrInvalidPattern is returned for URL templates and directory patterns
	// missing a {z}, {x} or {y} placeholder.
	ErrInvalidPattern = errors.New("fetch: invalid tile pattern")
)

// Source returns the encoded bytes of one tile.
type Source interface {
	Fetch(ctx context.Context, c tilemath.Coordinate) ([]byte, error)
	Name() string
}

// Chain tries each source in order and returns the first hit. Sources that
// report ErrNotFound are skipped; any other error stops the chain.
type Chain []Source

func (ch Chain) Fetch(ctx context.Context, c tilemath.Coordinate) ([]byte, error) {
	for _, s := range ch {
		data, err := s.Fetch(ctx, c)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, c.Key())
}

func (ch Chain) Name() string { return "chain" }
