package engine

import (
	"math/rand"
	"reflect"
	"testing"
)

const (
	mon = DateKey("2026-03-02")
	tue = DateKey("2026-03-03")
)

func rangesEqual(t *testing.T, got, want []Range) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch:\n got  %v\n want %v", got, want)
	}
}

func TestMergeFoldsOverlappingAndAdjacent(t *testing.T) {
	got := Merge([]Range{
		{mon, "13:00", "15:00"},
		{mon, "14:00", "16:00"}, // overlaps
		{mon, "16:00", "17:00"}, // adjacent
		{mon, "19:00", "20:00"}, // separate
		{tue, "09:00", "10:00"}, // different date
	})
	rangesEqual(t, got, []Range{
		{mon, "13:00", "17:00"},
		{mon, "19:00", "20:00"},
		{tue, "09:00", "10:00"},
	})
}

func TestMergeIdempotentAndOrderIndependent(t *testing.T) {
	in := []Range{
		{mon, "13:00", "14:00"},
		{tue, "10:00", "11:30"},
		{mon, "13:30", "15:00"},
		{mon, "18:00", "19:00"},
		{tue, "11:30", "12:00"},
	}
	want := Merge(in)
	if got := Merge(want); !reflect.DeepEqual(got, want) {
		t.Fatalf("merge not idempotent:\n got  %v\n want %v", got, want)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]Range{}, in...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := Merge(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("merge order-dependent for %v:\n got  %v\n want %v", shuffled, got, want)
		}
	}
}

func TestMergeDropsDegenerateRanges(t *testing.T) {
	got := Merge([]Range{
		{mon, "13:00", "13:00"}, // zero-length, dropped
		{mon, "15:00", "14:00"}, // inverted, dropped
	})
	rangesEqual(t, got, []Range{})

	rangesEqual(t, Merge(nil), []Range{})
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	in := []Range{
		{mon, "15:00", "16:00"},
		{mon, "13:00", "14:00"},
	}
	snapshot := append([]Range{}, in...)
	Merge(in)
	if !reflect.DeepEqual(in, snapshot) {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestSubtractCarvesMiddle(t *testing.T) {
	got := Subtract(
		[]Range{{mon, "13:00", "17:00"}},
		[]Range{{mon, "14:00", "15:00"}},
	)
	rangesEqual(t, got, []Range{
		{mon, "13:00", "14:00"},
		{mon, "15:00", "17:00"},
	})
}

func TestSubtractEdges(t *testing.T) {
	base := []Range{{mon, "13:00", "17:00"}}

	// Cut overlapping the left edge.
	rangesEqual(t, Subtract(base, []Range{{mon, "12:00", "14:00"}}), []Range{{mon, "14:00", "17:00"}})
	// Cut overlapping the right edge.
	rangesEqual(t, Subtract(base, []Range{{mon, "16:00", "18:00"}}), []Range{{mon, "13:00", "16:00"}})
	// Cut swallowing the base entirely.
	rangesEqual(t, Subtract(base, []Range{{mon, "12:00", "18:00"}}), []Range{})
	// Non-overlapping cut is ignored.
	rangesEqual(t, Subtract(base, []Range{{mon, "18:00", "19:00"}}), base)
	// Same times on a different date are ignored.
	rangesEqual(t, Subtract(base, []Range{{tue, "13:00", "17:00"}}), base)
}

func TestSubtractMultipleCuts(t *testing.T) {
	got := Subtract(
		[]Range{{mon, "09:00", "18:00"}},
		[]Range{
			{mon, "16:00", "17:00"},
			{mon, "10:00", "11:00"},
			{mon, "10:30", "12:00"}, // overlaps previous cut
		},
	)
	rangesEqual(t, got, []Range{
		{mon, "09:00", "10:00"},
		{mon, "12:00", "16:00"},
		{mon, "17:00", "18:00"},
	})
}

func TestSubtractIdentities(t *testing.T) {
	base := []Range{
		{mon, "13:00", "15:00"},
		{tue, "09:00", "10:00"},
	}
	rangesEqual(t, Subtract(base, nil), base)
	rangesEqual(t, Subtract(base, base), []Range{})
	rangesEqual(t, Subtract(nil, base), []Range{})
}

func TestRangeValidateRequiresTickAlignment(t *testing.T) {
	aligned := Range{Date: mon, Start: "13:00", End: "15:30"}
	if err := aligned.Validate(); err != nil {
		t.Fatalf("Validate failed for aligned range: %v", err)
	}
	for _, r := range []Range{
		{Date: mon, Start: "13:15", End: "15:00"},
		{Date: mon, Start: "13:00", End: "14:45"},
	} {
		if err := r.Validate(); err == nil {
			t.Fatalf("expected rejection of off-grid range %s-%s", r.Start, r.End)
		}
	}
}
