package ingest

import "github.com/agnivade/levenshtein"

// maximum edit distance for a header suggestion
const suggestMaxDistance = 2

// SuggestHeaders proposes the closest known raw column name for each
// unmapped header, so upload responses can point at likely typos
// ("inporte" -> "importe"). Headers with no close match are omitted.
func SuggestHeaders(unmapped []string, cfg Config) map[string]string {
	known := make([]string, 0, len(cfg.Aliases)+16)
	for alias := range cfg.Aliases {
		known = append(known, alias)
	}
	for _, d := range cfg.Dimensions {
		known = append(known, d.Candidates...)
	}

	out := make(map[string]string)
	for _, h := range unmapped {
		best := ""
		bestDist := suggestMaxDistance + 1
		for _, k := range known {
			if d := levenshtein.ComputeDistance(h, k); d < bestDist {
				best, bestDist = k, d
			}
		}
		if best != "" && bestDist <= suggestMaxDistance {
			out[h] = best
		}
	}
	return out
}
