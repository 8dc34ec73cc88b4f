package availability

import "sort"

// MergeBreaks sorts break windows by start and folds overlapping or adjacent
// windows into one. The scan cursor assumes sorted, disjoint breaks, so the
// merge is a correctness precondition and runs on every input. Windows with
// no width are dropped.
func MergeBreaks(breaks []BreakWindow) []BreakWindow {
	in := make([]BreakWindow, 0, len(breaks))
	for _, b := range breaks {
		if b.EndMinute > b.StartMinute {
			in = append(in, b)
		}
	}
	if len(in) <= 1 {
		return in
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].StartMinute != in[j].StartMinute {
			return in[i].StartMinute < in[j].StartMinute
		}
		return in[i].EndMinute < in[j].EndMinute
	})

	merged := make([]BreakWindow, 0, len(in))
	merged = append(merged, in[0])
	for _, cur := range in[1:] {
		last := &merged[len(merged)-1]
		if cur.StartMinute > last.EndMinute {
			merged = append(merged, cur)
			continue
		}
		if cur.EndMinute > last.EndMinute {
			last.EndMinute = cur.EndMinute
		}
	}
	return merged
}
