package kpi

import (
	"sort"

	"salesdash/internal/store"
)

// Pareto tier boundaries on cumulative turnover share.
const (
	tierACutoff = 0.80
	tierBCutoff = 0.95
)

// ABCEntry is one classified group with its cumulative share of the total.
type ABCEntry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Ratio float64 `json:"ratio"`
}

// ABCResult buckets groups into the three Pareto tiers.
type ABCResult struct {
	A []ABCEntry `json:"A"`
	B []ABCEntry `json:"B"`
	C []ABCEntry `json:"C"`
}

// Classify ranks groups by summed amount descending and assigns each to tier
// A (cumulative share <= 0.80), B (<= 0.95) or C. A zero grand total uses a
// denominator of 1 so the degenerate case cannot divide by zero.
func Classify(groups []store.GroupTotal) ABCResult {
	sorted := make([]store.GroupTotal, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	total := 0.0
	for _, g := range sorted {
		total += g.Value
	}
	if total == 0 {
		total = 1
	}

	var out ABCResult
	cumulative := 0.0
	for _, g := range sorted {
		cumulative += g.Value
		entry := ABCEntry{Name: g.Name, Value: g.Value, Ratio: cumulative / total}
		switch {
		case entry.Ratio <= tierACutoff:
			out.A = append(out.A, entry)
		case entry.Ratio <= tierBCutoff:
			out.B = append(out.B, entry)
		default:
			out.C = append(out.C, entry)
		}
	}
	return out
}
