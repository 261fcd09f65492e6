package engine

import (
	"sort"
)

// Batch is the output of one parser invocation: one scanner, one source.
type Batch struct {
	Scanner  Scanner
	Source   string
	Findings []Finding
}

// Aggregate merges the unsuppressed findings of a run into one sorted,
// deduplicated sequence. Batches are ordered by (scanner, source) before
// merging so the result does not depend on the order they arrived in.
func Aggregate(batches ...Batch) []Finding {
	ordered := make([]Batch, len(batches))
	copy(ordered, batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Scanner != ordered[j].Scanner {
			return ordered[i].Scanner.Rank() < ordered[j].Scanner.Rank()
		}
		return ordered[i].Source < ordered[j].Source
	})

	index := make(map[string]int)
	merged := make([]Finding, 0)
	for _, b := range ordered {
		for _, f := range b.Findings {
			key := f.dedupeKey()
			if i, ok := index[key]; ok {
				// Same scanner, identifier and location: the later raw payload wins.
				merged[i] = f
				continue
			}
			index[key] = len(merged)
			merged = append(merged, f)
		}
	}

	SortFindings(merged)
	return merged
}

// SortFindings orders findings by scanner, severity descending, then
// identifier. Location and description break remaining ties so the order is
// total.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Scanner != b.Scanner {
			return a.Scanner.Rank() < b.Scanner.Rank()
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Identifier != b.Identifier {
			return a.Identifier < b.Identifier
		}
		if ka, kb := a.Location.Key(), b.Location.Key(); ka != kb {
			return ka < kb
		}
		return a.Description < b.Description
	})
}
