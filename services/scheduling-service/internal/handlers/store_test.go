package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rollcall-app/rollcall/libs/auth"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/model"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/outbox"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/parser"
	"golang.org/x/crypto/bcrypt"
)

type fakeTx struct {
	pgx.Tx
}

func (t *fakeTx) Commit(context.Context) error   { return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }
func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

type fakeStore struct {
	campaign     model.Campaign
	passHash     string
	participants int
	patterns     map[string][]model.WeeklyPatternRow

	bumps         int
	lockedReads   int
	unlockedReads int
	replacedWith  []model.WeeklyPatternRow
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

func (s *fakeStore) CreateCampaign(context.Context, pgx.Tx, *model.Campaign, string) (string, error) {
	return "camp-1", nil
}

func (s *fakeStore) GetCampaign(context.Context, string) (model.Campaign, error) {
	return s.campaign, nil
}

func (s *fakeStore) GetPassphraseHash(context.Context, string) (string, error) {
	return s.passHash, nil
}

func (s *fakeStore) BumpRevision(context.Context, pgx.Tx, string) (int64, error) {
	s.bumps++
	s.campaign.Revision++
	return s.campaign.Revision, nil
}

func (s *fakeStore) CreateParticipant(context.Context, pgx.Tx, *model.Participant) (string, error) {
	s.participants++
	return "part-" + strconv.Itoa(s.participants), nil
}

func (s *fakeStore) CountParticipants(context.Context, pgx.Tx, string) (int, error) {
	return s.participants, nil
}

func (s *fakeStore) GetParticipant(_ context.Context, id string) (model.Participant, error) {
	return model.Participant{ID: id}, nil
}

func (s *fakeStore) ListParticipants(context.Context, string) ([]model.Participant, error) {
	return nil, nil
}

func (s *fakeStore) GetEntitlements(context.Context, pgx.Tx, string) (model.Entitlements, bool, error) {
	return model.Entitlements{}, false, nil
}

func (s *fakeStore) ReplacePatterns(_ context.Context, _ pgx.Tx, id string, rows []model.WeeklyPatternRow) error {
	s.replacedWith = rows
	return nil
}

func (s *fakeStore) ListPatterns(_ context.Context, id string) ([]model.WeeklyPatternRow, error) {
	s.unlockedReads++
	return s.patterns[id], nil
}

func (s *fakeStore) ListPatternsForUpdate(_ context.Context, _ pgx.Tx, id string) ([]model.WeeklyPatternRow, error) {
	s.lockedReads++
	return s.patterns[id], nil
}

func (s *fakeStore) InsertOverride(context.Context, pgx.Tx, *model.OverrideRow) (string, error) {
	return "ovr-1", nil
}

func (s *fakeStore) ListOverrides(context.Context, string, time.Time, time.Time) ([]model.OverrideRow, error) {
	return nil, nil
}

func (s *fakeStore) ListCampaignPatterns(context.Context, string) (map[string][]model.WeeklyPatternRow, error) {
	return s.patterns, nil
}

func (s *fakeStore) ListCampaignOverrides(context.Context, string, time.Time, time.Time) (map[string][]model.OverrideRow, error) {
	return nil, nil
}

type staticParser struct {
	result parser.ParseResult
}

func (p staticParser) ParseFreeText(context.Context, string, string) (parser.ParseResult, error) {
	return p.result, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mintTestToken(t *testing.T, participantID, campaignID, secret string) string {
	t.Helper()
	now := time.Now().UTC()
	token, err := auth.SignHS256(auth.Claims{
		Sub:        participantID,
		CampaignID: campaignID,
		Role:       "player",
		Iat:        now.Unix(),
		Exp:        now.Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	return token
}

func TestJoinAdvancesCampaignRevision(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("dragons"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	store := &fakeStore{passHash: string(hash)}
	h := NewCampaignHandler(store, outbox.NewRepository(nil), testLogger(), "test-secret", time.Hour)

	body := `{"campaign_id":"camp-1","passphrase":"dragons","display_name":"alice"}`
	r := httptest.NewRequest("POST", "/api/v1/campaigns/join", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Join(rec, r)

	if rec.Code != 201 {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	// The roster change alters the overlap result, so cached entries for
	// the previous revision must stop matching.
	if store.bumps != 1 {
		t.Fatalf("expected join to advance the revision once, got %d bumps", store.bumps)
	}
}

func TestFreeTextAppendsUnderLockedRead(t *testing.T) {
	existing := model.WeeklyPatternRow{
		ParticipantID: "participant-1",
		Weekday:       2,
		StartMinute:   19 * 60,
		EndMinute:     22 * 60,
		Polarity:      model.PolarityAvailable,
	}
	store := &fakeStore{
		patterns: map[string][]model.WeeklyPatternRow{"participant-1": {existing}},
	}
	p := staticParser{result: parser.ParseResult{
		Patterns: []parser.ParsedPattern{
			{Weekday: 5, Start: "18:00", End: "22:00", Polarity: "available"},
		},
		Confidence: 0.9,
	}}
	h := NewAvailabilityHandler(store, outbox.NewRepository(nil), testLogger(), p, "test-secret")

	token := mintTestToken(t, "participant-1", "camp-1", "test-secret")
	r := httptest.NewRequest("POST", "/api/v1/availability/freetext", strings.NewReader(`{"text":"free friday evenings"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.FreeText(rec, r)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.lockedReads != 1 || store.unlockedReads != 0 {
		t.Fatalf("expected one locked read inside the replace transaction, got locked=%d unlocked=%d",
			store.lockedReads, store.unlockedReads)
	}
	if len(store.replacedWith) != 2 {
		t.Fatalf("expected existing plus parsed patterns, got %d rows", len(store.replacedWith))
	}
	if store.replacedWith[0] != existing {
		t.Fatalf("expected the pre-existing pattern to survive, got %+v", store.replacedWith[0])
	}
	if store.bumps != 1 {
		t.Fatalf("expected the write to advance the revision, got %d bumps", store.bumps)
	}
}
