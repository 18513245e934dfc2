package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

const (
	// DefaultTileURL is the OpenStreetMap standard tile layer.
	DefaultTileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

	DefaultUserAgent = "Slippy-Sense/1.0 (+https://github.com/Garsondee/Slippy-Sense)"

	maxTileBytes = 8 << 20
)

// HTTPSource downloads tiles from a URL template with {z}, {x} and {y}
// placeholders.
type HTTPSource struct {
	Template  string
	UserAgent string
	Limiter   *RateLimiter

	client *http.Client
	host   string
}

// NewHTTPSource creates a source honouring the system proxy settings.
func NewHTTPSource(template, userAgent string, timeout time.Duration, limiter *RateLimiter) (*HTTPSource, error) {
	if err := validatePattern(template); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.NewReplacer("{z}", "0", "{x}", "0", "{y}", "0").Replace(template))
	if err != nil {
		return nil, fmt.Errorf("invalid tile url %q: %w", template, err)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if limiter == nil {
		limiter = NewRateLimiter(nil, nil)
	}
	return &HTTPSource{
		Template:  template,
		UserAgent: userAgent,
		Limiter:   limiter,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		host: u.Host,
	}, nil
}

func (s *HTTPSource) Name() string { return s.host }

func (s *HTTPSource) Fetch(ctx context.Context, c tilemath.Coordinate) ([]byte, error) {
	if blocked, until := s.Limiter.Blocked(); blocked {
		return nil, fmt.Errorf("%w: %s until %s", ErrRateLimited, s.host, until.Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formatPattern(s.Template, c), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.Key(), err)
	}
	defer resp.Body.Close()

	if s.Limiter.Check(s.host, resp.StatusCode) {
		return nil, fmt.Errorf("%w: %s answered %d", ErrRateLimited, s.host, resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, c.Key())
	default:
		return nil, fmt.Errorf("%w: %d for %s", ErrStatus, resp.StatusCode, c.Key())
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.Key(), err)
	}
	return data, nil
}

func validatePattern(pattern string) error {
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found in %q", ErrInvalidPattern, p, pattern)
		}
	}
	return nil
}

func formatPattern(pattern string, c tilemath.Coordinate) string {
	return strings.NewReplacer(
		"{x}", strconv.Itoa(c.X),
		"{y}", strconv.Itoa(c.Y),
		"{z}", strconv.Itoa(c.Zoom),
	).Replace(pattern)
}
