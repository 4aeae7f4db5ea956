package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rollcall-app/rollcall/libs/auth"
)

func TestPatternRows(t *testing.T) {
	rows, err := patternRows("p1", []patternItem{
		{Weekday: 1, Start: "18:00", End: "22:00"},
		{Weekday: 5, Start: "17:30", End: "23:00", Polarity: "unavailable"},
	})
	if err != nil {
		t.Fatalf("patternRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Polarity != "available" {
		t.Fatalf("expected default polarity available, got %q", rows[0].Polarity)
	}
	if rows[0].StartMinute != 18*60 || rows[0].EndMinute != 22*60 {
		t.Fatalf("unexpected minutes: %d..%d", rows[0].StartMinute, rows[0].EndMinute)
	}
	if rows[1].Polarity != "unavailable" {
		t.Fatalf("expected unavailable, got %q", rows[1].Polarity)
	}
}

func TestPatternRowsRejectsBadInput(t *testing.T) {
	if _, err := patternRows("p1", []patternItem{{Weekday: 7, Start: "18:00", End: "22:00"}}); err == nil {
		t.Fatal("expected error for weekday out of range")
	}
	if _, err := patternRows("p1", []patternItem{{Weekday: 1, Start: "22:00", End: "18:00"}}); err == nil {
		t.Fatal("expected error for inverted range")
	}
	if _, err := patternRows("p1", []patternItem{{Weekday: 1, Start: "18:00", End: "22:00", Polarity: "busy"}}); err == nil {
		t.Fatal("expected error for unknown polarity")
	}
}

func TestParticipantFromRequest(t *testing.T) {
	secret := "test-secret"
	now := time.Now().UTC()
	token, err := auth.SignHS256(auth.Claims{
		Sub:        "participant-1",
		CampaignID: "campaign-1",
		Role:       "player",
		Iat:        now.Unix(),
		Exp:        now.Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/v1/availability/resolved", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	claims, ok := participantFromRequest(r, secret)
	if !ok {
		t.Fatal("expected valid claims")
	}
	if claims.Sub != "participant-1" || claims.CampaignID != "campaign-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	r2 := httptest.NewRequest("GET", "/api/v1/availability/resolved", nil)
	r2.Header.Set("Authorization", "Bearer "+token)
	if _, ok := participantFromRequest(r2, "other-secret"); ok {
		t.Fatal("expected rejection with wrong secret")
	}

	r3 := httptest.NewRequest("GET", "/api/v1/availability/resolved", nil)
	if _, ok := participantFromRequest(r3, secret); ok {
		t.Fatal("expected rejection without header")
	}
}
