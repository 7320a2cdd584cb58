package aggregator

import (
	"sort"

	"launchpad-feed/internal/domain"
)

// Merge deduplicates records by token address. Lists are given in
// precedence order; the first record seen for an address wins and keeps its
// position, later lists only contribute new addresses.
func Merge(lists ...[]domain.TokenRecord) []domain.TokenRecord {
	size := 0
	for _, l := range lists {
		size += len(l)
	}

	seen := make(map[string]struct{}, size)
	merged := make([]domain.TokenRecord, 0, size)
	for _, l := range lists {
		for _, r := range l {
			if r.TokenAddress == "" {
				continue
			}
			if _, ok := seen[r.TokenAddress]; ok {
				continue
			}
			seen[r.TokenAddress] = struct{}{}
			merged = append(merged, r)
		}
	}
	return merged
}

// Featured returns up to n merged records, most recent activity first.
// Records with unknown activity sort last. Ties keep merge order.
// A negative n keeps every record.
func Featured(merged []domain.TokenRecord, n int) []domain.TokenRecord {
	out := make([]domain.TokenRecord, len(merged))
	copy(out, merged)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})

	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
