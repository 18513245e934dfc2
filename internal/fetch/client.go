package fetch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync/atomic"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Options configures a Client.
type Options struct {
	CacheSize     int // decoded tiles kept in memory
	MaxConcurrent int // simultaneous source fetches
	Logger        *slog.Logger
}

// Stats counts client activity.
type Stats struct {
	Hits     int64
	Misses   int64
	Fetched  int64
	Failures int64
	Cached   int
}

// Client fetches tiles by key, decodes them (PNG, JPEG, WebP) and keeps the
// most recently used images in memory. Concurrent requests for one key share
// a single source fetch.
type Client struct {
	source Source
	cache  *lru.Cache[string, image.Image]
	group  singleflight.Group
	sem    *semaphore.Weighted
	logger *slog.Logger

	hits, misses, fetched, failures atomic.Int64
}

// NewClient wraps src.
func NewClient(src Source, opts Options) (*Client, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 6
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	cache, err := lru.New[string, image.Image](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile cache: %w", err)
	}
	return &Client{
		source: src,
		cache:  cache,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger: opts.Logger,
	}, nil
}

// Fetch returns the decoded image for key ("{z}/{x}/{y}.png").
func (c *Client) Fetch(ctx context.Context, key string) (image.Image, error) {
	if img, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return img, nil
	}
	c.misses.Add(1)

	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("tile fetch shared", "key", key)
	}
	return v.(image.Image), nil
}

func (c *Client) load(ctx context.Context, key string) (image.Image, error) {
	coord, err := tilemath.ParseKey(key)
	if err != nil {
		return nil, err
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	data, err := c.source.Fetch(ctx, coord)
	if err != nil {
		c.failures.Add(1)
		c.logger.Debug("tile fetch failed", "key", key, "source", c.source.Name(), "err", err)
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		c.failures.Add(1)
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}
	c.fetched.Add(1)
	c.cache.Add(key, img)
	c.logger.Debug("tile fetched", "key", key, "format", format, "bytes", len(data))
	return img, nil
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Fetched:  c.fetched.Load(),
		Failures: c.failures.Load(),
		Cached:   c.cache.Len(),
	}
}

// Purge drops every cached image.
func (c *Client) Purge() { c.cache.Purge() }
