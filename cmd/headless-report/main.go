package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/Garsondee/Slippy-Sense/internal/mapview"
)

const settleTicks = 1200

var scenarios = map[string]func(h *mapview.Harness, rng *rand.Rand, ticks int){
	"pan-sweep":   runPanSweep,
	"zoom-bounce": runZoomBounce,
	"mixed":       runMixed,
}

type runStats struct {
	runIndex int
	seed     int64

	firstSwapTick    int
	firstRecycleTick int
	firstStaleTick   int

	issued       int
	applied      int
	droppedStale int
	failed       int
	noTile       int
	refetched    int
	recycles     int
	clamped      int
	zoomStarts   int
	zoomRejected int
	swaps        int
	markersAdded int

	settled       bool
	staleOnScreen int
	pending       int
	finalZoom     int
	finalRef      string
	failedKeys    map[string]struct{}
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenario string
	var latencyMax int
	var failRate float64

	flag.IntVar(&runs, "runs", 5, "number of headless runs")
	flag.IntVar(&ticks, "ticks", 3600, "ticks of input per run (60 per second)")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "mixed", "scenario name (pan-sweep, zoom-bounce, mixed)")
	flag.IntVar(&latencyMax, "latency-max", 20, "maximum fetch latency in ticks")
	flag.Float64Var(&failRate, "fail-rate", 0, "probability that a fetch fails")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}
	if latencyMax < 0 {
		fmt.Println("error: -latency-max must be >= 0")
		return
	}
	drive, ok := scenarios[scenario]
	if !ok {
		fmt.Printf("error: unsupported scenario %q (supported: %s)\n", scenario, scenarioNames())
		return
	}

	fmt.Printf("=== Headless Tile Grid Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d seed_base=%d seed_step=%d latency_max=%d fail_rate=%.2f\n\n",
		scenario, runs, ticks, seedBase, seedStep, latencyMax, failRate)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		stats, err := runScenario(i+1, seed, ticks, latencyMax, failRate, drive)
		if err != nil {
			fmt.Printf("error: run %d: %v\n", i+1, err)
			return
		}
		all = append(all, stats)
		printRun(stats)
	}

	printAggregate(all)
}

func scenarioNames() string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func runScenario(runIndex int, seed int64, ticks, latencyMax int, failRate float64,
	drive func(*mapview.Harness, *rand.Rand, int)) (runStats, error) {
	h, err := mapview.NewHarness(
		mapview.WithSeed(seed),
		mapview.WithLatency(latencyMax),
		mapview.WithFailureRate(failRate),
		mapview.WithConfig(func(c *mapview.Config) { c.RetryFailed = failRate > 0 }),
	)
	if err != nil {
		return runStats{}, err
	}
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- reproducible input script
	drive(h, rng, ticks)
	// Let one validator sweep pick up slots revealed without a fetch.
	settled := h.Settle(settleTicks)
	h.RunTicks(int(h.Map.Config().ValidatorInterval/h.Frame) + 1)
	settled = h.Settle(settleTicks) && settled
	return collect(runIndex, seed, h, settled), nil
}

// runPanSweep drags the map with a slowly turning velocity.
func runPanSweep(h *mapview.Harness, rng *rand.Rand, ticks int) {
	var vx, vy float64
	for t := 0; t < ticks; t++ {
		vx = clamp(vx+rng.NormFloat64()*2, -40, 40)
		vy = clamp(vy+rng.NormFloat64()*2, -40, 40)
		h.Map.PanBy(vx, vy)
		h.Step()
	}
}

// runZoomBounce zooms in and out around the start position, panning a little
// between transitions.
func runZoomBounce(h *mapview.Harness, rng *rand.Rand, ticks int) {
	dir := 1
	for t := 0; t < ticks; t++ {
		if t%90 == 0 {
			if z := h.Map.Zoom(); z >= 12 || (dir < 0 && z <= h.Map.Config().MinZoom) {
				dir = -dir
			}
			h.Map.ZoomBy(dir)
		} else if t%90 > 70 {
			h.Map.PanBy(rng.Float64()*20-10, rng.Float64()*20-10)
		}
		h.Step()
	}
}

// runMixed interleaves pans, single and multi-level zooms and markers.
func runMixed(h *mapview.Harness, rng *rand.Rand, ticks int) {
	for t := 0; t < ticks; t++ {
		switch r := rng.Float64(); {
		case r < 0.60:
			h.Map.PanBy(rng.NormFloat64()*25, rng.NormFloat64()*25)
		case r < 0.62:
			h.Map.ZoomIn()
		case r < 0.64:
			h.Map.ZoomOut()
		case r < 0.65:
			h.Map.ZoomToScale(float64(int(1) << rng.Intn(3)))
		case r < 0.66:
			vp := h.Map.Viewport()
			h.Map.PlaceMarkerAt((rng.Float64()-0.5)*vp.Width, (rng.Float64()-0.5)*vp.Height)
		}
		h.Step()
	}
}

func collect(runIndex int, seed int64, h *mapview.Harness, settled bool) runStats {
	ev := h.Map.Events()
	entries := ev.Entries()
	snap := h.Map.Snapshot()

	rs := runStats{
		runIndex:         runIndex,
		seed:             seed,
		firstSwapTick:    firstTick(entries, mapview.CatZoom, mapview.KeySwap),
		firstRecycleTick: firstTick(entries, mapview.CatPan, mapview.KeyRecycle),
		firstStaleTick:   firstTick(entries, mapview.CatFetch, mapview.KeyDroppedStale),
		issued:           ev.Total(mapview.CatFetch, mapview.KeyIssued),
		applied:          ev.Total(mapview.CatFetch, mapview.KeyApplied),
		droppedStale:     ev.Total(mapview.CatFetch, mapview.KeyDroppedStale),
		failed:           ev.Total(mapview.CatFetch, mapview.KeyFailed),
		noTile:           ev.Total(mapview.CatFetch, mapview.KeyNoTile),
		refetched:        ev.Total(mapview.CatValidator, mapview.KeyRefetch),
		recycles:         ev.Total(mapview.CatPan, mapview.KeyRecycle),
		clamped:          ev.Total(mapview.CatPan, mapview.KeyClamped),
		zoomStarts:       ev.Total(mapview.CatZoom, mapview.KeyStart),
		zoomRejected:     ev.Total(mapview.CatZoom, mapview.KeyRejected),
		swaps:            ev.Total(mapview.CatZoom, mapview.KeySwap),
		markersAdded:     ev.Total(mapview.CatMarker, mapview.KeyAdded),
		settled:          settled,
		pending:          len(h.Loader.Pending()),
		finalZoom:        snap.Zoom,
		finalRef:         snap.Reference,
		failedKeys:       map[string]struct{}{},
	}
	for _, s := range snap.FrontSlots {
		if s.OnScreen && s.Valid && s.Stale {
			rs.staleOnScreen++
		}
	}
	for _, e := range ev.Filter(mapview.CatFetch, mapview.KeyFailed) {
		rs.failedKeys[e.Value] = struct{}{}
	}
	return rs
}

func firstTick(entries []mapview.Event, category, key string) int {
	for _, e := range entries {
		if e.Category == category && e.Key == key {
			return e.Tick
		}
	}
	return -1
}

// detectCoverageGap reports runs that ended with visible slots not showing
// their expected tile.
func detectCoverageGap(rs runStats) (bool, string) {
	var reasons []string
	if !rs.settled {
		reasons = append(reasons, "not_settled")
	}
	if rs.staleOnScreen > 0 {
		reasons = append(reasons, fmt.Sprintf("stale_on_screen=%d", rs.staleOnScreen))
	}
	if rs.pending > 0 {
		reasons = append(reasons, fmt.Sprintf("pending=%d", rs.pending))
	}
	if len(reasons) == 0 {
		return false, "ok"
	}
	return true, strings.Join(reasons, ",")
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("phase_markers: first_recycle=%d first_swap=%d first_stale_drop=%d\n",
		rs.firstRecycleTick, rs.firstSwapTick, rs.firstStaleTick)
	fmt.Printf("fetch_totals: issued=%d applied=%d dropped_stale=%d failed=%d no_tile=%d refetch=%d\n",
		rs.issued, rs.applied, rs.droppedStale, rs.failed, rs.noTile, rs.refetched)
	fmt.Printf("grid_totals: recycles=%d clamped=%d zoom_start=%d zoom_rejected=%d swaps=%d markers=%d\n",
		rs.recycles, rs.clamped, rs.zoomStarts, rs.zoomRejected, rs.swaps, rs.markersAdded)
	fmt.Printf("final: zoom=%d reference=%s\n", rs.finalZoom, rs.finalRef)
	gap, reason := detectCoverageGap(rs)
	fmt.Printf("coverage_gap=%v (%s)\n", gap, reason)
	fmt.Printf("failed_keys: %s\n", joinSet(rs.failedKeys))
	fmt.Println()
}

func printAggregate(all []runStats) {
	var issued, applied, dropped, failed, recycles, swaps, gaps int
	swapTicks := make([]int, 0, len(all))
	recycleTicks := make([]int, 0, len(all))
	failedGlobal := map[string]struct{}{}

	for _, rs := range all {
		issued += rs.issued
		applied += rs.applied
		dropped += rs.droppedStale
		failed += rs.failed
		recycles += rs.recycles
		swaps += rs.swaps
		if gap, _ := detectCoverageGap(rs); gap {
			gaps++
		}
		if rs.firstSwapTick >= 0 {
			swapTicks = append(swapTicks, rs.firstSwapTick)
		}
		if rs.firstRecycleTick >= 0 {
			recycleTicks = append(recycleTicks, rs.firstRecycleTick)
		}
		for k := range rs.failedKeys {
			failedGlobal[k] = struct{}{}
		}
	}

	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d coverage_gaps=%d\n", len(all), gaps)
	fmt.Printf("avg_fetch_per_run: issued=%.1f applied=%.1f dropped_stale=%.1f failed=%.1f\n",
		avg(issued, len(all)), avg(applied, len(all)), avg(dropped, len(all)), avg(failed, len(all)))
	fmt.Printf("avg_grid_per_run: recycles=%.1f swaps=%.1f\n", avg(recycles, len(all)), avg(swaps, len(all)))
	fmt.Printf("stale_drop_ratio=%.3f\n", ratio(dropped, issued))
	fmt.Printf("phase_marker_avg_ticks: first_recycle=%s first_swap=%s\n",
		avgTickString(recycleTicks), avgTickString(swapTicks))
	fmt.Printf("unique_failed_keys=%d\n", len(failedGlobal))
}

func clamp(v, lo, hi float64) float64 { return max(lo, min(v, hi)) }

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinSet(s map[string]struct{}) string {
	if len(s) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 10 {
		return strings.Join(keys[:10], ",") + fmt.Sprintf(",... (+%d)", len(keys)-10)
	}
	return strings.Join(keys, ",")
}
