package ingest

import "strings"

// DimensionDelimiter joins the parts of a composite business dimension.
const DimensionDelimiter = " | "

// ComposeDimension collects the trimmed, non-empty values of the candidate
// columns (in priority order) and joins them with DimensionDelimiter. All
// candidates empty means the dimension is missing for the row, reported as
// ("", false) rather than an empty string value.
func ComposeDimension(row map[string]string, candidates []string) (string, bool) {
	parts := make([]string, 0, len(candidates))
	for _, col := range candidates {
		v, present := row[col]
		if !present {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, DimensionDelimiter), true
}
