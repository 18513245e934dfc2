package mapview

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"time"
)

// ErrHarnessFetch is the error delivered for keys a Harness is told to fail.
var ErrHarnessFetch = errors.New("harness: fetch failed")

// ManualLoader records fetch requests and delivers results only when told to.
// It gives tests and the headless report full control over fetch ordering.
type ManualLoader struct {
	requests []FetchRequest
	pending  []FetchRequest
	ready    []FetchResult
}

func NewManualLoader() *ManualLoader { return &ManualLoader{} }

func (l *ManualLoader) Request(req FetchRequest) {
	l.requests = append(l.requests, req)
	l.pending = append(l.pending, req)
}

func (l *ManualLoader) Drain(apply func(FetchResult)) {
	ready := l.ready
	l.ready = nil
	for _, r := range ready {
		apply(r)
	}
}

// Requests returns every request ever issued, oldest first.
func (l *ManualLoader) Requests() []FetchRequest { return l.requests }

// Pending returns the requests not yet resolved or dropped.
func (l *ManualLoader) Pending() []FetchRequest { return l.pending }

// Resolve completes the oldest pending request equal to req. The result is
// delivered on the next Drain.
func (l *ManualLoader) Resolve(req FetchRequest, img image.Image, err error) bool {
	if !l.remove(req) {
		return false
	}
	l.ready = append(l.ready, FetchResult{FetchRequest: req, Image: img, Err: err})
	return true
}

// Drop forgets the oldest pending request equal to req without a result,
// as if the fetch was lost.
func (l *ManualLoader) Drop(req FetchRequest) bool {
	return l.remove(req)
}

// ResolveAll completes every pending request with fn's answer.
func (l *ManualLoader) ResolveAll(fn func(FetchRequest) (image.Image, error)) int {
	pending := l.pending
	l.pending = nil
	for _, req := range pending {
		img, err := fn(req)
		l.ready = append(l.ready, FetchResult{FetchRequest: req, Image: img, Err: err})
	}
	return len(pending)
}

func (l *ManualLoader) remove(req FetchRequest) bool {
	for i, p := range l.pending {
		if p == req {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return true
		}
	}
	return false
}

// placeholderTile is the image the harness hands out for successful fetches.
var placeholderTile = func() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0xcc, G: 0xdd, B: 0xcc, A: 0xff})
	return img
}()

// Harness drives a Map headlessly with a ManualLoader. Fetches resolve after
// a seeded random latency (in ticks); keys can be configured to fail.
type Harness struct {
	Map    *Map
	Loader *ManualLoader
	Frame  time.Duration

	rng        *rand.Rand
	latencyMax int
	failKeys   map[string]bool
	failRate   float64
	scheduled  int
	inflight   []timedRequest
}

type timedRequest struct {
	req FetchRequest
	due int
}

type harnessSetup struct {
	cfg        Config
	seed       int64
	latencyMax int
	failKeys   []string
	failRate   float64
	frame      time.Duration
}

// HarnessOption configures a Harness before its Map is built.
type HarnessOption func(*harnessSetup)

// WithGrid sets the slot grid dimensions.
func WithGrid(w, h int) HarnessOption {
	return func(s *harnessSetup) {
		s.cfg.GridWidth = w
		s.cfg.GridHeight = h
	}
}

// WithViewport sets the viewport size in pixels.
func WithViewport(w, h float64) HarnessOption {
	return func(s *harnessSetup) {
		s.cfg.ViewportWidth = w
		s.cfg.ViewportHeight = h
	}
}

// WithStart sets the initial position and zoom.
func WithStart(lat, lon float64, zoom int) HarnessOption {
	return func(s *harnessSetup) {
		s.cfg.StartLat = lat
		s.cfg.StartLon = lon
		s.cfg.StartZoom = zoom
	}
}

// WithSeed sets the RNG seed for latency draws.
func WithSeed(seed int64) HarnessOption {
	return func(s *harnessSetup) { s.seed = seed }
}

// WithLatency makes each fetch resolve 0..maxTicks ticks after it was issued.
func WithLatency(maxTicks int) HarnessOption {
	return func(s *harnessSetup) { s.latencyMax = maxTicks }
}

// WithManualFetches disables automatic resolution; the test resolves fetches
// through Loader itself.
func WithManualFetches() HarnessOption {
	return func(s *harnessSetup) { s.latencyMax = -1 }
}

// WithFailingKeys makes fetches for the given keys fail.
func WithFailingKeys(keys ...string) HarnessOption {
	return func(s *harnessSetup) { s.failKeys = append(s.failKeys, keys...) }
}

// WithFailureRate makes each fetch fail with probability p, drawn from the
// seeded RNG.
func WithFailureRate(p float64) HarnessOption {
	return func(s *harnessSetup) { s.failRate = p }
}

// WithConfig edits the engine config directly.
func WithConfig(fn func(*Config)) HarnessOption {
	return func(s *harnessSetup) { fn(&s.cfg) }
}

// NewHarness builds a harness on DefaultConfig modified by opts. The event log
// is unbounded so tests can inspect the full history.
func NewHarness(opts ...HarnessOption) (*Harness, error) {
	setup := harnessSetup{cfg: DefaultConfig(), seed: 1, frame: time.Second / 60}
	setup.cfg.EventLogLimit = 0
	for _, o := range opts {
		o(&setup)
	}
	loader := NewManualLoader()
	m, err := New(setup.cfg, loader)
	if err != nil {
		return nil, err
	}
	h := &Harness{
		Map:        m,
		Loader:     loader,
		Frame:      setup.frame,
		rng:        rand.New(rand.NewSource(setup.seed)), // #nosec G404 -- test harness
		latencyMax: setup.latencyMax,
		failKeys:   make(map[string]bool, len(setup.failKeys)),
		failRate:   setup.failRate,
	}
	for _, k := range setup.failKeys {
		h.failKeys[k] = true
	}
	return h, nil
}

func (h *Harness) answer(req FetchRequest) (image.Image, error) {
	if h.failKeys[req.Key] || (h.failRate > 0 && h.rng.Float64() < h.failRate) {
		return nil, ErrHarnessFetch
	}
	return placeholderTile, nil
}

// Step resolves due fetches, then ticks the map once.
func (h *Harness) Step() {
	if h.latencyMax < 0 {
		h.Map.Tick(h.Frame)
		return
	}
	now := h.Map.Ticks()
	reqs := h.Loader.Requests()
	for _, r := range reqs[h.scheduled:] {
		delay := 0
		if h.latencyMax > 0 {
			delay = h.rng.Intn(h.latencyMax + 1)
		}
		h.inflight = append(h.inflight, timedRequest{req: r, due: now + delay})
	}
	h.scheduled = len(reqs)

	keep := h.inflight[:0]
	for _, tr := range h.inflight {
		if tr.due > now {
			keep = append(keep, tr)
			continue
		}
		img, err := h.answer(tr.req)
		h.Loader.Resolve(tr.req, img, err)
	}
	h.inflight = keep
	h.Map.Tick(h.Frame)
}

// RunTicks advances the harness n ticks.
func (h *Harness) RunTicks(n int) {
	for i := 0; i < n; i++ {
		h.Step()
	}
}

// RunUntil steps until predicate holds or maxTicks elapse. Returns the tick at
// which the predicate was satisfied, or -1.
func (h *Harness) RunUntil(predicate func(*Harness) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		h.Step()
		if predicate(h) {
			return h.Map.Ticks()
		}
	}
	return -1
}

// Settle steps until the compositor is idle and no fetch is outstanding.
func (h *Harness) Settle(maxTicks int) bool {
	return h.RunUntil(func(h *Harness) bool {
		return h.Map.State() == StateIdle && len(h.Loader.Pending()) == 0 && len(h.inflight) == 0
	}, maxTicks) >= 0
}

// Pan enqueues a pan and steps once.
func (h *Harness) Pan(dx, dy float64) {
	h.Map.PanBy(dx, dy)
	h.Step()
}

// Placeholder returns the image delivered for successful fetches.
func Placeholder() image.Image { return placeholderTile }
