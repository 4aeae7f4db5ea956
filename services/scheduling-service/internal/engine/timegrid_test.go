package engine

import (
	"errors"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	valid := []string{"00:00", "09:30", "23:59", "24:00"}
	for _, s := range valid {
		if _, err := ParseTimeOfDay(s); err != nil {
			t.Fatalf("ParseTimeOfDay(%q) failed: %v", s, err)
		}
	}

	invalid := []string{"", "9:30", "09:3", "24:30", "25:00", "12:60", "12-30", "ab:cd", "09:30:00"}
	for _, s := range invalid {
		if _, err := ParseTimeOfDay(s); !errors.Is(err, ErrInvalid) {
			t.Fatalf("ParseTimeOfDay(%q): expected ErrInvalid, got %v", s, err)
		}
	}
}

func TestTimeOfDayOrderingAndMinutes(t *testing.T) {
	if !(TimeOfDay("09:00") < TimeOfDay("13:30")) {
		t.Fatal("expected 09:00 < 13:30")
	}
	if !(TimeOfDay("23:30") < EndOfDay) {
		t.Fatal("expected 23:30 < 24:00")
	}
	if got := TimeOfDay("13:30").Minutes(); got != 810 {
		t.Fatalf("expected 810 minutes, got %d", got)
	}
	if got := TimeOfDayFromMinutes(810); got != "13:30" {
		t.Fatalf("expected 13:30, got %s", got)
	}
}

func TestAddTickClampsAtDayBoundary(t *testing.T) {
	if got := AddTick("13:00"); got != "13:30" {
		t.Fatalf("expected 13:30, got %s", got)
	}
	if got := AddTick("23:30"); got != EndOfDay {
		t.Fatalf("expected 24:00, got %s", got)
	}
	// No rollover to the next date: advancing at the boundary stays put.
	if got := AddTick(EndOfDay); got != EndOfDay {
		t.Fatalf("expected 24:00, got %s", got)
	}
}

func TestParseDateKey(t *testing.T) {
	if _, err := ParseDateKey("2026-03-02"); err != nil {
		t.Fatalf("ParseDateKey failed: %v", err)
	}
	for _, s := range []string{"", "2026-3-02", "2026-02-30", "02-03-2026", "2026-13-01"} {
		if _, err := ParseDateKey(s); !errors.Is(err, ErrInvalid) {
			t.Fatalf("ParseDateKey(%q): expected ErrInvalid, got %v", s, err)
		}
	}
}

func TestDateKeyWeekdayAndNext(t *testing.T) {
	// 2026-03-02 is a Monday.
	d := DateKey("2026-03-02")
	if got := d.Weekday(); got != 1 {
		t.Fatalf("expected weekday 1, got %d", got)
	}
	if got := d.Next(); got != "2026-03-03" {
		t.Fatalf("expected 2026-03-03, got %s", got)
	}
	// Month boundary.
	if got := DateKey("2026-02-28").Next(); got != "2026-03-01" {
		t.Fatalf("expected 2026-03-01, got %s", got)
	}
}

func TestWindowValidate(t *testing.T) {
	w := Window{StartDate: "2026-03-02", EndDate: "2026-03-08", EarliestTime: "09:00", LatestTime: "22:00"}
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	inverted := w
	inverted.StartDate, inverted.EndDate = w.EndDate, w.StartDate
	if err := inverted.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for inverted window, got %v", err)
	}

	upsideDown := w
	upsideDown.EarliestTime, upsideDown.LatestTime = w.LatestTime, w.EarliestTime
	if err := upsideDown.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for inverted daily window, got %v", err)
	}

	offGrid := w
	offGrid.EarliestTime = "09:15"
	if err := offGrid.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for off-grid daily window, got %v", err)
	}

	full := Window{StartDate: "2026-03-02", EndDate: "2026-03-02", EarliestTime: "00:00", LatestTime: "00:00"}
	if !full.FullDay() {
		t.Fatal("expected earliest == latest to mean a full-day window")
	}
	if w.FullDay() {
		t.Fatal("expected clipped window not to be full-day")
	}
}
