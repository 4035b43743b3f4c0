package queue

import (
	"cmp"
	"slices"

	"github.com/linnemanlabs/sift/internal/source"
)

// Rank applies the selection policy, in order: minimum-score floor, stable
// descending sort (ties keep input order, which is creation order), a
// per-source diversity cap that skips over-represented sources without
// removing them from consideration elsewhere, and truncation to MaxItems.
// The input slice is not modified.
func Rank(items []PriorityItem, cfg Config) []PriorityItem {
	kept := make([]PriorityItem, 0, len(items))
	for _, it := range items {
		if it.PriorityScore < cfg.MinScore {
			continue
		}
		kept = append(kept, it)
	}

	slices.SortStableFunc(kept, func(a, b PriorityItem) int {
		return cmp.Compare(b.PriorityScore, a.PriorityScore)
	})

	perSource := make(map[source.Type]int)
	out := make([]PriorityItem, 0, min(len(kept), cfg.MaxItems))
	for _, it := range kept {
		if cfg.MaxItemsPerSource > 0 && perSource[it.SourceType] >= cfg.MaxItemsPerSource {
			continue
		}
		perSource[it.SourceType]++
		out = append(out, it)
		if len(out) == cfg.MaxItems {
			break
		}
	}
	return out
}
