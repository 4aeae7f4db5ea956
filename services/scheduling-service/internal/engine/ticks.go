package engine

import "sort"

// TickSet is an atomic-tick view of a range set: one entry per 30-minute
// unit. Aggregation across participants happens on ticks; storage and
// patterns stay in range form. The two views are losslessly convertible as
// long as every range is tick-aligned.
type TickSet map[Tick]struct{}

// Contains reports whether the set holds the given tick.
func (s TickSet) Contains(t Tick) bool {
	_, ok := s[t]
	return ok
}

// RangesToTicks explodes each range into its constituent ticks, stepping by
// AddTick from Start (inclusive) to End (exclusive). Degenerate ranges
// contribute nothing. The walk is bounded at TicksPerDay steps per range so
// corrupt input truncates instead of hanging.
func RangesToTicks(ranges []Range) TickSet {
	set := make(TickSet, len(ranges)*4)
	for _, r := range ranges {
		if r.Start >= r.End {
			continue
		}
		steps := 0
		for t := r.Start; t < r.End && steps < TicksPerDay; t = AddTick(t) {
			set[Tick{Date: r.Date, Index: tickIndex(t)}] = struct{}{}
			steps++
		}
	}
	return set
}

// TicksToRanges folds a tick set back into merged ranges: per date,
// consecutive ticks join into one range and any gap starts a new one.
// Output is ordered by date then start time. For tick-aligned input,
// TicksToRanges(RangesToTicks(r)) == Merge(r).
func TicksToRanges(set TickSet) []Range {
	byDate := make(map[DateKey][]int)
	for t := range set {
		byDate[t.Date] = append(byDate[t.Date], t.Index)
	}

	dates := make([]DateKey, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	out := []Range{}
	for _, d := range dates {
		idxs := byDate[d]
		sort.Ints(idxs)

		start := idxs[0]
		prev := idxs[0]
		for _, idx := range idxs[1:] {
			if idx == prev+1 {
				prev = idx
				continue
			}
			out = append(out, tickRunRange(d, start, prev))
			start, prev = idx, idx
		}
		out = append(out, tickRunRange(d, start, prev))
	}
	return out
}

// tickRunRange converts a run of consecutive tick indexes [first, last]
// into the covering half-open range.
func tickRunRange(d DateKey, first, last int) Range {
	return Range{
		Date:  d,
		Start: TimeOfDayFromMinutes(first * TickMinutes),
		End:   TimeOfDayFromMinutes((last + 1) * TickMinutes),
	}
}
