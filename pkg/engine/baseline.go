package engine

// Diff classifies the findings of the current run against a baseline run.
type Diff struct {
	New       []Finding
	Fixed     []Finding
	Unchanged []Finding
}

// CompareBaseline matches findings by scanner, identifier and location.
// Severity or description changes count as unchanged.
func CompareBaseline(current, baseline []Finding) Diff {
	seen := make(map[string]bool, len(baseline))
	for _, f := range baseline {
		seen[f.dedupeKey()] = true
	}
	present := make(map[string]bool, len(current))

	var d Diff
	for _, f := range current {
		key := f.dedupeKey()
		present[key] = true
		if seen[key] {
			d.Unchanged = append(d.Unchanged, f)
		} else {
			d.New = append(d.New, f)
		}
	}
	for _, f := range baseline {
		if !present[f.dedupeKey()] {
			d.Fixed = append(d.Fixed, f)
		}
	}
	SortFindings(d.New)
	SortFindings(d.Fixed)
	SortFindings(d.Unchanged)
	return d
}
