package engine

import "fmt"

// WeeklyPattern is a recurring day-of-week time range, unanchored to any
// specific date. Whether it declares free or blocked time is decided by
// which input list it sits in (ParticipantInput.Available vs Unavailable).
type WeeklyPattern struct {
	Weekday int       `json:"weekday"` // 0 = Sunday .. 6 = Saturday
	Start   TimeOfDay `json:"start"`
	End     TimeOfDay `json:"end"`
}

// Validate rejects out-of-range weekdays, malformed times, and empty spans.
func (p WeeklyPattern) Validate() error {
	if p.Weekday < 0 || p.Weekday > 6 {
		return fmt.Errorf("%w: weekday %d", ErrInvalid, p.Weekday)
	}
	if !p.Start.Valid() || p.Start == EndOfDay {
		return fmt.Errorf("%w: pattern start %q", ErrInvalid, p.Start)
	}
	if !p.End.Valid() {
		return fmt.Errorf("%w: pattern end %q", ErrInvalid, p.End)
	}
	if p.End <= p.Start {
		return fmt.Errorf("%w: empty pattern %d %s-%s", ErrInvalid, p.Weekday, p.Start, p.End)
	}
	if p.Start.Minutes()%TickMinutes != 0 {
		return fmt.Errorf("%w: pattern start %s not on the %d-minute grid", ErrInvalid, p.Start, TickMinutes)
	}
	if p.End.Minutes()%TickMinutes != 0 {
		return fmt.Errorf("%w: pattern end %s not on the %d-minute grid", ErrInvalid, p.End, TickMinutes)
	}
	return nil
}

// Expand projects recurring weekly patterns onto every concrete date in the
// window, clipping each occurrence to the window's daily time range. A
// full-day window (earliest == latest) never clips. Occurrences clipped to
// nothing contribute nothing. The result is merged, so overlapping patterns
// on the same date collapse; expansion is fully deterministic.
//
// Patterns and window are assumed valid; Resolve validates before calling.
func Expand(patterns []WeeklyPattern, w Window) []Range {
	if len(patterns) == 0 {
		return []Range{}
	}

	byWeekday := [7][]WeeklyPattern{}
	for _, p := range patterns {
		byWeekday[p.Weekday] = append(byWeekday[p.Weekday], p)
	}

	var out []Range
	for date := w.StartDate; date <= w.EndDate; date = date.Next() {
		for _, p := range byWeekday[date.Weekday()] {
			start, end := p.Start, p.End
			if !w.FullDay() {
				if start < w.EarliestTime {
					start = w.EarliestTime
				}
				if end > w.LatestTime {
					end = w.LatestTime
				}
			}
			if start >= end {
				continue
			}
			out = append(out, Range{Date: date, Start: start, End: end})
		}
	}
	return Merge(out)
}
