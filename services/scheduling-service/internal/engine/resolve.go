package engine

import "fmt"

// ParticipantInput carries the four layered availability declarations of
// one participant, exactly as supplied by storage (or any other caller).
type ParticipantInput struct {
	ParticipantID string
	Available     []WeeklyPattern // recurring free time
	Unavailable   []WeeklyPattern // recurring blocked time
	Additions     []Range         // one-off free slots entered directly
	Exceptions    []Range         // one-off blackouts; always win
}

// Validate fails fast on any malformed declaration.
func (in ParticipantInput) Validate() error {
	for _, p := range in.Available {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("participant %s available pattern: %w", in.ParticipantID, err)
		}
	}
	for _, p := range in.Unavailable {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("participant %s unavailable pattern: %w", in.ParticipantID, err)
		}
	}
	for _, r := range in.Additions {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("participant %s addition: %w", in.ParticipantID, err)
		}
	}
	for _, r := range in.Exceptions {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("participant %s exception: %w", in.ParticipantID, err)
		}
	}
	return nil
}

// Resolve turns one participant's layered declarations into their effective
// availability over the window.
//
// The precedence is a fixed pipeline, highest layer last:
//
//  1. expand and merge the available weekly patterns
//  2. subtract the unavailable weekly patterns
//  3. merge in manual additions (they can restore time step 2 removed,
//     for their specific date only)
//  4. subtract manual exceptions (the final filter; nothing overrides them)
//
// The step order is a product decision: swapping 3 and 4 changes the result
// whenever an addition and an exception touch the same sub-range.
func Resolve(in ParticipantInput, w Window) ([]Range, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	base := Expand(in.Available, w)
	base = Subtract(base, Expand(in.Unavailable, w))
	if len(in.Additions) > 0 {
		base = Merge(append(base, in.Additions...))
	}
	base = Subtract(base, in.Exceptions)
	return base, nil
}
