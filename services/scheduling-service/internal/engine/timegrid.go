// Package engine resolves layered availability declarations into effective
// free-time ranges and aggregates them across a campaign's participants.
//
// Everything in this package is a pure function over its inputs: no I/O, no
// internal state, no mutation of arguments. Rows arrive as plain records
// (already normalized to the campaign's timezone) and results go back out as
// plain records.
package engine

import (
	"errors"
	"fmt"
	"time"
)

// TickMinutes is the fixed atomic time unit used for slot aggregation.
const TickMinutes = 30

// TicksPerDay is the number of ticks in a full 24-hour day.
const TicksPerDay = 24 * 60 / TickMinutes

// EndOfDay is the exclusive upper bound of a day's time axis. It is valid
// only as a range end, never as a start.
const EndOfDay TimeOfDay = "24:00"

// ErrInvalid marks precondition violations: malformed time strings,
// zero/negative-length caller-supplied ranges, out-of-range weekdays.
// The engine fails fast on these rather than silently fixing input.
var ErrInvalid = errors.New("invalid scheduling input")

// TimeOfDay is a zero-padded "HH:MM" clock time at minute resolution.
//
// Because the format is fixed-width, ordinary string comparison (<, <=, ==)
// is the defined ordering. That only holds for validated values; anything
// else is rejected up front.
type TimeOfDay string

// ParseTimeOfDay validates s as "HH:MM" (or the "24:00" end boundary).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t := TimeOfDay(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: time of day %q", ErrInvalid, s)
	}
	return t, nil
}

// Valid reports whether t is a well-formed zero-padded "HH:MM" value
// between "00:00" and "24:00" inclusive.
func (t TimeOfDay) Valid() bool {
	if len(t) != 5 || t[2] != ':' {
		return false
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if t[i] < '0' || t[i] > '9' {
			return false
		}
	}
	h := int(t[0]-'0')*10 + int(t[1]-'0')
	m := int(t[3]-'0')*10 + int(t[4]-'0')
	if h == 24 {
		return m == 0
	}
	return h <= 23 && m <= 59
}

// Minutes returns minutes since midnight. t must be valid.
func (t TimeOfDay) Minutes() int {
	h := int(t[0]-'0')*10 + int(t[1]-'0')
	m := int(t[3]-'0')*10 + int(t[4]-'0')
	return h*60 + m
}

// TimeOfDayFromMinutes formats minutes since midnight as a TimeOfDay.
// Minutes outside [0, 1440] are clamped to the day's bounds.
func TimeOfDayFromMinutes(mins int) TimeOfDay {
	if mins <= 0 {
		return "00:00"
	}
	if mins >= 24*60 {
		return EndOfDay
	}
	return TimeOfDay(fmt.Sprintf("%02d:%02d", mins/60, mins%60))
}

// AddTick advances t by one tick. It never rolls over to the next date:
// results at or past the day boundary clamp to EndOfDay, and the caller
// decides what that means.
func AddTick(t TimeOfDay) TimeOfDay {
	return TimeOfDayFromMinutes(t.Minutes() + TickMinutes)
}

// tickIndex maps a tick-aligned TimeOfDay to its index within the day.
func tickIndex(t TimeOfDay) int {
	return t.Minutes() / TickMinutes
}

// DateKey is a calendar date formatted "YYYY-MM-DD" with no timezone
// component; the caller has already resolved everything to one timezone.
// String ordering is date ordering.
type DateKey string

const dateKeyLayout = "2006-01-02"

// ParseDateKey validates s as a real calendar date.
func ParseDateKey(s string) (DateKey, error) {
	d := DateKey(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: date %q", ErrInvalid, s)
	}
	return d, nil
}

// Valid reports whether d is a well-formed "YYYY-MM-DD" calendar date.
func (d DateKey) Valid() bool {
	t, err := time.Parse(dateKeyLayout, string(d))
	return err == nil && t.Format(dateKeyLayout) == string(d)
}

// Weekday returns the day of week for d, 0 = Sunday through 6 = Saturday.
// d must be valid.
func (d DateKey) Weekday() int {
	t, _ := time.Parse(dateKeyLayout, string(d))
	return int(t.Weekday())
}

// Next returns the following calendar date. d must be valid.
func (d DateKey) Next() DateKey {
	t, _ := time.Parse(dateKeyLayout, string(d))
	return DateKey(t.AddDate(0, 0, 1).Format(dateKeyLayout))
}

// Tick identifies one atomic time unit: a date plus a tick index within
// that date. Using a typed composite key keeps aggregation free of string
// parse/format churn while preserving the same semantics as a
// "date-HH:MM" set.
type Tick struct {
	Date  DateKey
	Index int
}

// Window is the campaign-wide resolution window: an inclusive date range
// plus a daily time window shared by all participants. A daily window
// whose EarliestTime equals its LatestTime means the full 24-hour day.
type Window struct {
	StartDate    DateKey
	EndDate      DateKey
	EarliestTime TimeOfDay
	LatestTime   TimeOfDay
}

// Validate rejects malformed dates/times and inverted date ranges.
func (w Window) Validate() error {
	if !w.StartDate.Valid() {
		return fmt.Errorf("%w: window start date %q", ErrInvalid, w.StartDate)
	}
	if !w.EndDate.Valid() {
		return fmt.Errorf("%w: window end date %q", ErrInvalid, w.EndDate)
	}
	if w.EndDate < w.StartDate {
		return fmt.Errorf("%w: window end date %s before start date %s", ErrInvalid, w.EndDate, w.StartDate)
	}
	if !w.EarliestTime.Valid() {
		return fmt.Errorf("%w: window earliest time %q", ErrInvalid, w.EarliestTime)
	}
	if !w.LatestTime.Valid() {
		return fmt.Errorf("%w: window latest time %q", ErrInvalid, w.LatestTime)
	}
	if w.LatestTime < w.EarliestTime {
		return fmt.Errorf("%w: window latest time %s before earliest time %s", ErrInvalid, w.LatestTime, w.EarliestTime)
	}
	if w.EarliestTime.Minutes()%TickMinutes != 0 {
		return fmt.Errorf("%w: window earliest time %s not on the %d-minute grid", ErrInvalid, w.EarliestTime, TickMinutes)
	}
	if w.LatestTime.Minutes()%TickMinutes != 0 {
		return fmt.Errorf("%w: window latest time %s not on the %d-minute grid", ErrInvalid, w.LatestTime, TickMinutes)
	}
	return nil
}

// FullDay reports whether the daily window covers the whole day
// (earliest == latest disables clipping).
func (w Window) FullDay() bool {
	return w.EarliestTime == w.LatestTime
}

// dailyBounds returns the [start, end) tick-axis bounds of one day of the
// window as minutes since midnight.
func (w Window) dailyBounds() (startMin, endMin int) {
	if w.FullDay() {
		return 0, 24 * 60
	}
	return w.EarliestTime.Minutes(), w.LatestTime.Minutes()
}
