package identity

import "sort"

// Dedup keeps one row per key. Rows are stably sorted by (key, source id
// ascending with nulls last) and the first row of each key survives.
// Rows with an empty key are dropped.
func Dedup[T any](rows []T, key func(T) string, sourceID func(T) *int64) []T {
	kept := make([]T, 0, len(rows))
	for _, r := range rows {
		if key(r) != "" {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ki, kj := key(kept[i]), key(kept[j])
		if ki != kj {
			return ki < kj
		}
		return lessNullsLast(sourceID(kept[i]), sourceID(kept[j]))
	})

	out := kept[:0]
	var last string
	for i, r := range kept {
		k := key(r)
		if i > 0 && k == last {
			continue
		}
		out = append(out, r)
		last = k
	}
	return out
}

func lessNullsLast(a, b *int64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}
