package engine

import (
	"fmt"
	"sort"
)

// Range is a half-open [Start, End) span of free (or blocked) time on a
// single date. A meaningful range has Start < End; degenerate ranges that
// arise internally (clipping, subtraction) are dropped, never emitted.
// Endpoints must sit on the tick grid: off-grid times would get floored
// during aggregation and report slots nobody declared.
type Range struct {
	Date  DateKey   `json:"date"`
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Validate rejects a caller-supplied range that is malformed or empty.
// Zero-length input ranges are a caller error, unlike the zero-length
// intermediates the algebra discards silently.
func (r Range) Validate() error {
	if !r.Date.Valid() {
		return fmt.Errorf("%w: range date %q", ErrInvalid, r.Date)
	}
	if !r.Start.Valid() || r.Start == EndOfDay {
		return fmt.Errorf("%w: range start %q", ErrInvalid, r.Start)
	}
	if !r.End.Valid() {
		return fmt.Errorf("%w: range end %q", ErrInvalid, r.End)
	}
	if r.End <= r.Start {
		return fmt.Errorf("%w: empty range %s %s-%s", ErrInvalid, r.Date, r.Start, r.End)
	}
	if r.Start.Minutes()%TickMinutes != 0 {
		return fmt.Errorf("%w: range start %s not on the %d-minute grid", ErrInvalid, r.Start, TickMinutes)
	}
	if r.End.Minutes()%TickMinutes != 0 {
		return fmt.Errorf("%w: range end %s not on the %d-minute grid", ErrInvalid, r.End, TickMinutes)
	}
	return nil
}

// Merge folds a set of ranges into the minimal equivalent set: per date,
// adjacent or overlapping ranges collapse into one. The result is ordered
// by date then start time. Merge is idempotent and order-independent, and
// never mutates its input.
func Merge(ranges []Range) []Range {
	out := []Range{}
	for _, date := range sortedDates(ranges) {
		day := make([]Range, 0, 4)
		for _, r := range ranges {
			if r.Date == date && r.Start < r.End {
				day = append(day, r)
			}
		}
		sort.Slice(day, func(i, j int) bool {
			if day[i].Start != day[j].Start {
				return day[i].Start < day[j].Start
			}
			return day[i].End < day[j].End
		})

		cur := day[0]
		for _, r := range day[1:] {
			if r.Start <= cur.End {
				if r.End > cur.End {
					cur.End = r.End
				}
				continue
			}
			out = append(out, cur)
			cur = r
		}
		out = append(out, cur)
	}
	return out
}

// Subtract removes every portion of base covered by cut, emitting the
// surviving sub-ranges. Cuts only apply to base ranges on the same date;
// non-overlapping cuts are ignored. Subtract(base, nil) == base.
func Subtract(base, cut []Range) []Range {
	out := []Range{}
	for _, b := range base {
		if b.Start >= b.End {
			continue
		}

		day := make([]Range, 0, 2)
		for _, c := range cut {
			if c.Date == b.Date && c.Start < c.End {
				day = append(day, c)
			}
		}
		if len(day) == 0 {
			out = append(out, b)
			continue
		}
		sort.Slice(day, func(i, j int) bool { return day[i].Start < day[j].Start })

		// Walk the cuts left to right, keeping a cursor at the start of the
		// portion of b not yet consumed. A cut beginning past the cursor
		// leaves a retained gap before it; a cut reaching past the cursor
		// advances it.
		cursor := b.Start
		for _, c := range day {
			if c.End <= cursor || c.Start >= b.End {
				continue
			}
			if c.Start > cursor {
				out = append(out, Range{Date: b.Date, Start: cursor, End: c.Start})
			}
			if c.End > cursor {
				cursor = c.End
			}
		}
		if cursor < b.End {
			out = append(out, Range{Date: b.Date, Start: cursor, End: b.End})
		}
	}
	return out
}

// sortedDates returns the distinct dates present in ranges, ascending,
// considering only non-degenerate ranges.
func sortedDates(ranges []Range) []DateKey {
	seen := make(map[DateKey]struct{}, len(ranges))
	var dates []DateKey
	for _, r := range ranges {
		if r.Start >= r.End {
			continue
		}
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		dates = append(dates, r.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}
