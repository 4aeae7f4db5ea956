package engine

import (
	"errors"
	"reflect"
	"testing"
)

var oneMonday = Window{
	StartDate:    "2026-03-02",
	EndDate:      "2026-03-02",
	EarliestTime: "09:00",
	LatestTime:   "22:00",
}

func TestAggregateTwoParticipants(t *testing.T) {
	res, err := Aggregate([]ParticipantAvailability{
		{ParticipantID: "alice", Ranges: []Range{{mon, "13:00", "15:00"}}},
		{ParticipantID: "bob", Ranges: []Range{{mon, "14:00", "16:00"}}},
	}, oneMonday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	wantPerfect := []OverlapSlot{{
		Date: mon, Start: "14:00", End: "15:00",
		ParticipantIDs: []string{"alice", "bob"},
		Total:          2,
	}}
	if !reflect.DeepEqual(res.PerfectSlots, wantPerfect) {
		t.Fatalf("perfect slots mismatch:\n got  %+v\n want %+v", res.PerfectSlots, wantPerfect)
	}
	// Max observed count is 2, so best == perfect here.
	if !reflect.DeepEqual(res.BestSlots, wantPerfect) {
		t.Fatalf("best slots mismatch:\n got  %+v\n want %+v", res.BestSlots, wantPerfect)
	}
}

func TestAggregateBestBelowFullCount(t *testing.T) {
	res, err := Aggregate([]ParticipantAvailability{
		{ParticipantID: "alice", Ranges: []Range{{mon, "13:00", "15:00"}}},
		{ParticipantID: "bob", Ranges: []Range{{mon, "14:00", "16:00"}}},
		{ParticipantID: "carol", Ranges: []Range{{mon, "18:00", "19:00"}}},
	}, oneMonday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(res.PerfectSlots) != 0 {
		t.Fatalf("expected no perfect slots, got %+v", res.PerfectSlots)
	}
	want := []OverlapSlot{{
		Date: mon, Start: "14:00", End: "15:00",
		ParticipantIDs: []string{"alice", "bob"},
		Total:          3,
	}}
	if !reflect.DeepEqual(res.BestSlots, want) {
		t.Fatalf("best slots mismatch:\n got  %+v\n want %+v", res.BestSlots, want)
	}
}

func TestAggregateTiesAllIncluded(t *testing.T) {
	res, err := Aggregate([]ParticipantAvailability{
		{ParticipantID: "alice", Ranges: []Range{{mon, "10:00", "11:00"}, {mon, "20:00", "21:00"}}},
		{ParticipantID: "bob", Ranges: []Range{{mon, "10:00", "11:00"}, {mon, "20:00", "21:00"}}},
		{ParticipantID: "carol", Ranges: []Range{{mon, "12:00", "13:00"}}},
	}, oneMonday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(res.BestSlots) != 2 {
		t.Fatalf("expected 2 tied best slots, got %+v", res.BestSlots)
	}
	if res.BestSlots[0].Start != "10:00" || res.BestSlots[1].Start != "20:00" {
		t.Fatalf("best slots out of order: %+v", res.BestSlots)
	}
}

func TestAggregateRespectsDailyWindow(t *testing.T) {
	// Availability outside the daily window never counts.
	res, err := Aggregate([]ParticipantAvailability{
		{ParticipantID: "alice", Ranges: []Range{{mon, "07:00", "08:00"}}},
		{ParticipantID: "bob", Ranges: []Range{{mon, "07:00", "08:00"}}},
	}, oneMonday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(res.PerfectSlots) != 0 || len(res.BestSlots) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestAggregateEmptyInputsNeverNil(t *testing.T) {
	res, err := Aggregate(nil, oneMonday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res.PerfectSlots == nil || res.BestSlots == nil {
		t.Fatal("expected non-nil empty slices")
	}
	if len(res.PerfectSlots) != 0 || len(res.BestSlots) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}

	// Participants with no availability at all behave the same way.
	res, err = Aggregate([]ParticipantAvailability{
		{ParticipantID: "alice"},
		{ParticipantID: "bob"},
	}, oneMonday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res.PerfectSlots == nil || res.BestSlots == nil || len(res.BestSlots) != 0 {
		t.Fatalf("expected non-nil empty slices, got %+v", res)
	}
}

func TestAggregateMultiDayOrdering(t *testing.T) {
	twoDays := oneMonday
	twoDays.EndDate = "2026-03-03"
	res, err := Aggregate([]ParticipantAvailability{
		{ParticipantID: "alice", Ranges: []Range{{tue, "10:00", "11:00"}, {mon, "13:00", "14:00"}}},
		{ParticipantID: "bob", Ranges: []Range{{tue, "10:00", "11:00"}, {mon, "13:00", "14:00"}}},
	}, twoDays)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(res.PerfectSlots) != 2 {
		t.Fatalf("expected 2 perfect slots, got %+v", res.PerfectSlots)
	}
	if res.PerfectSlots[0].Date != mon || res.PerfectSlots[1].Date != tue {
		t.Fatalf("slots not ordered by date: %+v", res.PerfectSlots)
	}
}

func TestAggregateRejectsMalformedRanges(t *testing.T) {
	_, err := Aggregate([]ParticipantAvailability{
		{ParticipantID: "alice", Ranges: []Range{{mon, "15:00", "14:00"}}},
	}, oneMonday)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestAggregateRejectsOffGridRanges(t *testing.T) {
	// Off-grid endpoints would get floored onto the tick grid during
	// aggregation and report a slot starting before anyone is free.
	_, err := Aggregate([]ParticipantAvailability{
		{ParticipantID: "alice", Ranges: []Range{{mon, "13:15", "13:45"}}},
		{ParticipantID: "bob", Ranges: []Range{{mon, "13:15", "13:45"}}},
	}, oneMonday)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for off-grid ranges, got %v", err)
	}
}
