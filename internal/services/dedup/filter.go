package dedup

import (
	"math"
	"sort"
	"time"

	"FinSignal/internal/domain/models"
)

type Config struct {
	PriceTolerance float64       // fraction of entry, 0.02 = 2%
	Window         time.Duration // created_at distance
}

func DefaultConfig() Config {
	return Config{PriceTolerance: 0.02, Window: 24 * time.Hour}
}

// Filter collapses near-identical candidates: same symbol and direction,
// entries within PriceTolerance and creation times within Window. The best
// candidate of each cluster survives. Applying Filter to its own output
// returns it unchanged.
type Filter struct {
	cfg Config
}

func NewFilter(cfg Config) *Filter {
	return &Filter{cfg: cfg}
}

func (f *Filter) Apply(cands []models.SignalCandidate) []models.SignalCandidate {
	sorted := make([]models.SignalCandidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Outranks(sorted[j]) })

	type groupKey struct {
		symbol string
		dir    models.Direction
	}
	kept := make(map[groupKey][]models.SignalCandidate)
	out := make([]models.SignalCandidate, 0, len(sorted))

	for _, c := range sorted {
		k := groupKey{c.Symbol, c.Direction}
		dup := false
		for _, existing := range kept[k] {
			if f.Duplicate(existing, c) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept[k] = append(kept[k], c)
		out = append(out, c)
	}
	return out
}

// Duplicate reports whether b falls inside a's dedup neighbourhood.
func (f *Filter) Duplicate(a, b models.SignalCandidate) bool {
	if a.Symbol != b.Symbol || a.Direction != b.Direction || a.EntryPrice <= 0 {
		return false
	}
	if math.Abs(b.EntryPrice-a.EntryPrice)/a.EntryPrice > f.cfg.PriceTolerance {
		return false
	}
	dt := b.CreatedAt.Sub(a.CreatedAt)
	if dt < 0 {
		dt = -dt
	}
	return dt <= f.cfg.Window
}
