package engine

import (
	"errors"
	"testing"
)

// Two-week window with two Mondays: 2026-03-02 and 2026-03-09.
var fortnight = Window{
	StartDate:    "2026-03-02",
	EndDate:      "2026-03-15",
	EarliestTime: "09:00",
	LatestTime:   "22:00",
}

const mon2 = DateKey("2026-03-09")

func TestResolveAvailableMinusUnavailable(t *testing.T) {
	got, err := Resolve(ParticipantInput{
		ParticipantID: "p1",
		Available:     []WeeklyPattern{{Weekday: 1, Start: "13:00", End: "17:00"}},
		Unavailable:   []WeeklyPattern{{Weekday: 1, Start: "14:00", End: "15:00"}},
	}, fortnight)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	rangesEqual(t, got, []Range{
		{mon, "13:00", "14:00"},
		{mon, "15:00", "17:00"},
		{mon2, "13:00", "14:00"},
		{mon2, "15:00", "17:00"},
	})
}

func TestResolveManualAdditionRestoresItsDateOnly(t *testing.T) {
	got, err := Resolve(ParticipantInput{
		ParticipantID: "p1",
		Available:     []WeeklyPattern{{Weekday: 1, Start: "13:00", End: "17:00"}},
		Unavailable:   []WeeklyPattern{{Weekday: 1, Start: "14:00", End: "15:00"}},
		Additions:     []Range{{mon, "14:00", "14:30"}},
	}, fortnight)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	rangesEqual(t, got, []Range{
		{mon, "13:00", "14:30"}, // addition merged with the surviving 13:00-14:00
		{mon, "15:00", "17:00"},
		{mon2, "13:00", "14:00"}, // other Monday unaffected
		{mon2, "15:00", "17:00"},
	})
}

func TestResolveExceptionWinsOverEverything(t *testing.T) {
	got, err := Resolve(ParticipantInput{
		ParticipantID: "p1",
		Available:     []WeeklyPattern{{Weekday: 1, Start: "13:00", End: "17:00"}},
		Unavailable:   []WeeklyPattern{{Weekday: 1, Start: "14:00", End: "15:00"}},
		Additions:     []Range{{mon, "14:00", "14:30"}},
		Exceptions:    []Range{{mon, "13:00", "17:00"}},
	}, fortnight)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// The blacked-out Monday is gone entirely; the other survives.
	rangesEqual(t, got, []Range{
		{mon2, "13:00", "14:00"},
		{mon2, "15:00", "17:00"},
	})
}

func TestResolveAdditionOutsidePatterns(t *testing.T) {
	got, err := Resolve(ParticipantInput{
		ParticipantID: "p1",
		Additions:     []Range{{"2026-03-04", "19:00", "21:00"}},
	}, fortnight)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	rangesEqual(t, got, []Range{{"2026-03-04", "19:00", "21:00"}})
}

func TestResolveEmptyInput(t *testing.T) {
	got, err := Resolve(ParticipantInput{ParticipantID: "p1"}, fortnight)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	rangesEqual(t, got, []Range{})
}

func TestResolveRejectsMalformedInput(t *testing.T) {
	cases := []ParticipantInput{
		{Available: []WeeklyPattern{{Weekday: 7, Start: "13:00", End: "14:00"}}},
		{Available: []WeeklyPattern{{Weekday: -1, Start: "13:00", End: "14:00"}}},
		{Unavailable: []WeeklyPattern{{Weekday: 1, Start: "14:00", End: "14:00"}}},
		{Additions: []Range{{mon, "9:00", "10:00"}}},
		{Additions: []Range{{mon, "15:00", "14:00"}}},
		{Exceptions: []Range{{"2026-02-30", "13:00", "14:00"}}},
	}
	for i, in := range cases {
		if _, err := Resolve(in, fortnight); !errors.Is(err, ErrInvalid) {
			t.Fatalf("case %d: expected ErrInvalid, got %v", i, err)
		}
	}

	bad := fortnight
	bad.EarliestTime = "9 am"
	if _, err := Resolve(ParticipantInput{}, bad); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for malformed window, got %v", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	in := ParticipantInput{
		ParticipantID: "p1",
		Available:     []WeeklyPattern{{Weekday: 1, Start: "13:00", End: "17:00"}, {Weekday: 4, Start: "18:00", End: "21:00"}},
		Unavailable:   []WeeklyPattern{{Weekday: 1, Start: "16:00", End: "16:30"}},
		Additions:     []Range{{"2026-03-07", "10:00", "12:00"}},
		Exceptions:    []Range{{"2026-03-05", "18:00", "19:00"}},
	}
	first, err := Resolve(in, fortnight)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := Resolve(in, fortnight)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	rangesEqual(t, second, first)
}
