package mapview

import (
	"context"
	"image"
	"sync"

	"github.com/Garsondee/Slippy-Sense/internal/tilemath"
)

// Fetcher retrieves the image for a tile key. Any error means "no image".
type Fetcher interface {
	Fetch(ctx context.Context, key string) (image.Image, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key string) (image.Image, error)

func (f FetcherFunc) Fetch(ctx context.Context, key string) (image.Image, error) { return f(ctx, key) }

// FetchRequest asks for the image of Coord on behalf of one slot.
type FetchRequest struct {
	Layer LayerID
	Slot  int
	Coord tilemath.Coordinate
	Key   string
}

// FetchResult carries a completed fetch back to the tick loop.
type FetchResult struct {
	FetchRequest
	Image image.Image
	Err   error
}

// Loader dispatches fetch requests and hands completed results back on the tick
// goroutine. Request must not block; Drain is called once per tick.
type Loader interface {
	Request(req FetchRequest)
	Drain(apply func(FetchResult))
}

// AsyncLoader runs each fetch on its own goroutine. Completed results queue up
// until the next Drain. Concurrency limits belong to the Fetcher.
type AsyncLoader struct {
	fetcher Fetcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu   sync.Mutex
	done []FetchResult
}

// NewAsyncLoader creates a loader whose in-flight fetches are cancelled with ctx
// or by Close.
func NewAsyncLoader(ctx context.Context, f Fetcher) *AsyncLoader {
	ctx, cancel := context.WithCancel(ctx)
	return &AsyncLoader{fetcher: f, ctx: ctx, cancel: cancel}
}

func (l *AsyncLoader) Request(req FetchRequest) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		img, err := l.fetcher.Fetch(l.ctx, req.Key)
		l.mu.Lock()
		l.done = append(l.done, FetchResult{FetchRequest: req, Image: img, Err: err})
		l.mu.Unlock()
	}()
}

func (l *AsyncLoader) Drain(apply func(FetchResult)) {
	l.mu.Lock()
	done := l.done
	l.done = nil
	l.mu.Unlock()
	for _, r := range done {
		apply(r)
	}
}

// Close cancels outstanding fetches and waits for their goroutines.
func (l *AsyncLoader) Close() {
	l.cancel()
	l.wg.Wait()
}
