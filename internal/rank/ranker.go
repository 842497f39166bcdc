package rank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/skelsey/galmarket/internal/cache"
	"github.com/skelsey/galmarket/internal/model"
)

// Filters narrows which stations qualify for a sale ranking. A station
// qualifies when at least one manifest commodity is listed with
// SellPrice >= MinPrice and Demand >= MinDemand, its snapshot is younger
// than MaxUpdateAge, and its type is not excluded.
type Filters struct {
	MinPrice             int64
	MinDemand            int64
	MaxUpdateAge         time.Duration
	ExcludedStationTypes []string
	TopK                 int
}

// DefaultFilters returns the stock filter set.
func DefaultFilters() Filters {
	return Filters{
		MaxUpdateAge: 48 * time.Hour,
		TopK:         20,
	}
}

// Source bundles the snapshots to rank with per-system jump distances.
type Source struct {
	Snapshots []model.MarketSnapshot
	Distances map[string]float64 // system name -> Ly from the query origin
}

// FromSnapshots builds a Source directly, for callers that already hold
// the data.
func FromSnapshots(snaps []model.MarketSnapshot, distances map[string]float64) Source {
	return Source{Snapshots: snaps, Distances: distances}
}

// FromCache collects every cached snapshot for the given systems. Stale
// and dirty snapshots are included; the age filter decides their fate.
func FromCache(ctx context.Context, store cache.Store, systems []model.System) (Source, error) {
	src := Source{Distances: make(map[string]float64, len(systems))}

	for _, sys := range systems {
		src.Distances[sys.Name] = sys.Distance

		stations, err := store.StationsIn(ctx, sys.Name)
		if err != nil {
			return Source{}, fmt.Errorf("stations in %q: %w", sys.Name, err)
		}
		for _, station := range stations {
			snap, ok, err := store.Get(ctx, model.Key{System: sys.Name, Station: station})
			if err != nil {
				return Source{}, fmt.Errorf("snapshot for %s/%s: %w", sys.Name, station, err)
			}
			if ok {
				src.Snapshots = append(src.Snapshots, snap)
			}
		}
	}
	return src, nil
}

// Ranker scores stations against cargo manifests.
type Ranker struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewRanker creates a Ranker.
func NewRanker(logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{logger: logger, now: time.Now}
}

// manifestLine is one resolved manifest entry.
type manifestLine struct {
	display string
	id      string
	qty     int
}

// Rank returns the top stations by hypothetical sale revenue, highest
// first, ties broken by jump distance ascending.
func (r *Ranker) Rank(ctx context.Context, manifest model.CargoManifest, src Source, f Filters) ([]model.SaleCandidate, error) {
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if f.TopK <= 0 {
		f.TopK = DefaultFilters().TopK
	}

	lines := resolveManifest(manifest)
	excluded := make(map[string]bool, len(f.ExcludedStationTypes))
	for _, t := range f.ExcludedStationTypes {
		excluded[t] = true
	}

	now := r.now()
	matchedAnywhere := make(map[string]bool, len(lines))

	candidates := make([]model.SaleCandidate, 0, len(src.Snapshots))
	for _, snap := range src.Snapshots {
		if excluded[snap.StationType] {
			continue
		}
		if snap.Age(now) >= f.MaxUpdateAge {
			continue
		}

		cand, ok := r.evaluate(snap, lines, f, src.Distances, now, matchedAnywhere)
		if ok {
			candidates = append(candidates, cand)
		}
	}

	for _, line := range lines {
		if !matchedAnywhere[line.id] {
			r.logger.Warn("manifest commodity matched no market listing",
				"commodity", line.display,
				"resolved_id", line.id,
			)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Revenue != candidates[j].Revenue {
			return candidates[i].Revenue > candidates[j].Revenue
		}
		return candidates[i].JumpDistance < candidates[j].JumpDistance
	})

	if len(candidates) > f.TopK {
		candidates = candidates[:f.TopK]
	}
	return candidates, nil
}

// evaluate prices a manifest against one snapshot. The station is kept
// only when at least one line clears the price and demand thresholds;
// matched and missing together always cover the whole manifest.
func (r *Ranker) evaluate(snap model.MarketSnapshot, lines []manifestLine, f Filters, distances map[string]float64, now time.Time, matchedAnywhere map[string]bool) (model.SaleCandidate, bool) {
	byID := make(map[string]model.Commodity, len(snap.Commodities))
	for _, c := range snap.Commodities {
		byID[c.Name] = c
	}

	var matched []model.MatchedCommodity
	var missing []string
	var revenue int64

	for _, line := range lines {
		c, present := byID[line.id]
		if !present || c.SellPrice < f.MinPrice || c.Demand < f.MinDemand {
			missing = append(missing, line.display)
			continue
		}
		matchedAnywhere[line.id] = true

		lineRevenue := c.SellPrice * int64(line.qty)
		matched = append(matched, model.MatchedCommodity{
			Name:      line.display,
			SellPrice: c.SellPrice,
			Demand:    c.Demand,
			Quantity:  line.qty,
			Revenue:   lineRevenue,
		})
		revenue += lineRevenue
	}

	if len(matched) == 0 {
		return model.SaleCandidate{}, false
	}

	return model.SaleCandidate{
		System:              snap.Key.System,
		Station:             snap.Key.Station,
		StationType:         snap.StationType,
		JumpDistance:        distances[snap.Key.System],
		SupercruiseDistance: snap.DistanceToArrival,
		SnapshotAge:         snap.Age(now),
		Revenue:             revenue,
		Matched:             matched,
		Missing:             missing,
	}, true
}

// resolveManifest maps display names to provider ids, sorted by display
// name so output ordering is deterministic.
func resolveManifest(manifest model.CargoManifest) []manifestLine {
	lines := make([]manifestLine, 0, len(manifest))
	for display, qty := range manifest {
		id, _ := canonicalID(display)
		lines = append(lines, manifestLine{display: display, id: id, qty: qty})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].display < lines[j].display
	})
	return lines
}
