package model

import (
	"time"

	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/engine"
)

// Campaign is a scheduling group: a roster of participants plus the shared
// window inside which session candidates are searched. Times are stored as
// minutes from midnight and dates as calendar days in the campaign's
// timezone; the engine never performs timezone conversion itself.
type Campaign struct {
	ID             string
	Name           string
	Timezone       string
	StartDate      time.Time
	EndDate        time.Time
	EarliestMinute int
	LatestMinute   int
	Revision       int64
	CreatedAt      time.Time
}

// Window converts the stored campaign window into engine form.
func (c Campaign) Window() engine.Window {
	return engine.Window{
		StartDate:    DateKey(c.StartDate),
		EndDate:      DateKey(c.EndDate),
		EarliestTime: engine.TimeOfDayFromMinutes(c.EarliestMinute),
		LatestTime:   engine.TimeOfDayFromMinutes(c.LatestMinute),
	}
}

type Participant struct {
	ID          string
	CampaignID  string
	DisplayName string
	Role        string // "gm" or "player"
	CreatedAt   time.Time
}

// Weekly pattern polarity values.
const (
	PolarityAvailable   = "available"
	PolarityUnavailable = "unavailable"
)

// WeeklyPatternRow is a stored recurring availability rule owned by one
// participant.
type WeeklyPatternRow struct {
	ID            string
	ParticipantID string
	Weekday       int
	StartMinute   int
	EndMinute     int
	Polarity      string
}

// Pattern converts the row into engine form.
func (r WeeklyPatternRow) Pattern() engine.WeeklyPattern {
	return engine.WeeklyPattern{
		Weekday: r.Weekday,
		Start:   engine.TimeOfDayFromMinutes(r.StartMinute),
		End:     engine.TimeOfDayFromMinutes(r.EndMinute),
	}
}

// Override kinds: a one-off slot added outside the pattern system, or a
// one-off blackout that overrides everything else for its date.
const (
	OverrideAddition  = "addition"
	OverrideException = "exception"
)

// OverrideRow is a stored one-off addition or exception.
type OverrideRow struct {
	ID            string
	ParticipantID string
	Day           time.Time
	StartMinute   int
	EndMinute     int
	Kind          string
	Reason        string
	CreatedAt     time.Time
}

// Range converts the row into engine form.
func (r OverrideRow) Range() engine.Range {
	return engine.Range{
		Date:  DateKey(r.Day),
		Start: engine.TimeOfDayFromMinutes(r.StartMinute),
		End:   engine.TimeOfDayFromMinutes(r.EndMinute),
	}
}

// ParticipantInput assembles the engine input for one participant from
// stored rows.
func ParticipantInput(p Participant, patterns []WeeklyPatternRow, overrides []OverrideRow) engine.ParticipantInput {
	in := engine.ParticipantInput{ParticipantID: p.ID}
	for _, row := range patterns {
		if row.Polarity == PolarityUnavailable {
			in.Unavailable = append(in.Unavailable, row.Pattern())
		} else {
			in.Available = append(in.Available, row.Pattern())
		}
	}
	for _, row := range overrides {
		if row.Kind == OverrideException {
			in.Exceptions = append(in.Exceptions, row.Range())
		} else {
			in.Additions = append(in.Additions, row.Range())
		}
	}
	return in
}

// Entitlements caps how large a campaign may grow; updates arrive from the
// external billing system over Kafka and are cached locally.
type Entitlements struct {
	CampaignID      string
	Tier            string
	MaxParticipants int
	MaxWindowDays   int
}

// DateKey formats a stored date in engine form.
func DateKey(t time.Time) engine.DateKey {
	return engine.DateKey(t.Format("2006-01-02"))
}
