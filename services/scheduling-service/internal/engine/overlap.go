package engine

import "fmt"

// ParticipantAvailability pairs a participant with their already-resolved
// effective availability (the output of Resolve).
type ParticipantAvailability struct {
	ParticipantID string
	Ranges        []Range
}

// OverlapSlot is one candidate meeting range together with who can make it.
// ParticipantIDs reflects the slot's first constituent tick; Total is the
// campaign's participant count.
type OverlapSlot struct {
	Date           DateKey   `json:"date"`
	Start          TimeOfDay `json:"start"`
	End            TimeOfDay `json:"end"`
	ParticipantIDs []string  `json:"participant_ids"`
	Total          int       `json:"total"`
}

// Result partitions candidate slots into the two tiers the product ranks
// by: slots where everyone is free, and slots hitting the maximum observed
// head-count (which may be below the full count). Both slices are always
// non-nil.
type Result struct {
	PerfectSlots []OverlapSlot `json:"perfect_slots"`
	BestSlots    []OverlapSlot `json:"best_slots"`
}

// Aggregate counts, for every tick in the campaign window's tick universe,
// how many participants are free and which ones, then folds the
// everyone-free ticks and the maximum-count ticks back into ordered slots.
// Ties at the maximum are all included; no further ranking is applied.
//
// Participant data is only read, never modified. With zero participants or
// zero availability both tiers come back empty.
func Aggregate(participants []ParticipantAvailability, w Window) (Result, error) {
	if err := w.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{PerfectSlots: []OverlapSlot{}, BestSlots: []OverlapSlot{}}
	total := len(participants)
	if total == 0 {
		return res, nil
	}

	sets := make([]TickSet, total)
	for i, p := range participants {
		for _, r := range p.Ranges {
			if err := r.Validate(); err != nil {
				return Result{}, fmt.Errorf("participant %s: %w", p.ParticipantID, err)
			}
		}
		sets[i] = RangesToTicks(p.Ranges)
	}

	// Count per tick across the full universe: every date in the window
	// crossed with every tick inside the daily window.
	startMin, endMin := w.dailyBounds()
	freeIDs := make(map[Tick][]string)
	maxCount := 0
	for date := w.StartDate; date <= w.EndDate; date = date.Next() {
		for min := startMin; min < endMin; min += TickMinutes {
			tick := Tick{Date: date, Index: min / TickMinutes}
			var ids []string
			for i, set := range sets {
				if set.Contains(tick) {
					ids = append(ids, participants[i].ParticipantID)
				}
			}
			if len(ids) == 0 {
				continue
			}
			freeIDs[tick] = ids
			if len(ids) > maxCount {
				maxCount = len(ids)
			}
		}
	}
	if maxCount == 0 {
		return res, nil
	}

	perfect := make(TickSet)
	best := make(TickSet)
	for tick, ids := range freeIDs {
		if len(ids) == total {
			perfect[tick] = struct{}{}
		}
		if len(ids) == maxCount {
			best[tick] = struct{}{}
		}
	}

	res.PerfectSlots = slotsFromTicks(perfect, freeIDs, total)
	res.BestSlots = slotsFromTicks(best, freeIDs, total)
	return res, nil
}

// slotsFromTicks converts a tick tier back into ordered OverlapSlots,
// attaching the participant ids of each slot's first tick.
func slotsFromTicks(set TickSet, freeIDs map[Tick][]string, total int) []OverlapSlot {
	ranges := TicksToRanges(set)
	slots := make([]OverlapSlot, 0, len(ranges))
	for _, r := range ranges {
		first := Tick{Date: r.Date, Index: tickIndex(r.Start)}
		ids := freeIDs[first]
		slots = append(slots, OverlapSlot{
			Date:           r.Date,
			Start:          r.Start,
			End:            r.End,
			ParticipantIDs: append([]string{}, ids...),
			Total:          total,
		})
	}
	return slots
}
