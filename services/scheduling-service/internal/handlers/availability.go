package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rollcall-app/rollcall/libs/auth"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/engine"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/model"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/outbox"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/parser"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/storage"
)

var (
	errInvalidPolarity = errors.New("polarity must be available or unavailable")
	errInvalidPattern  = errors.New("invalid weekly pattern")
)

type AvailabilityHandler struct {
	repo       Store
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	parser     parser.Provider
	jwtSecret  string
}

func NewAvailabilityHandler(repo Store, outboxRepo *outbox.Repository, logger *slog.Logger, parserProvider parser.Provider, jwtSecret string) *AvailabilityHandler {
	return &AvailabilityHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		logger:     logger,
		parser:     parserProvider,
		jwtSecret:  jwtSecret,
	}
}

type patternItem struct {
	Weekday  int    `json:"weekday"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Polarity string `json:"polarity"`
}

type replacePatternsRequest struct {
	Patterns []patternItem `json:"patterns"`
}

type overrideRequest struct {
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason,omitempty"`
}

type overrideResponse struct {
	OverrideID string `json:"override_id"`
}

type freeTextRequest struct {
	Text string `json:"text"`
}

type freeTextResponse struct {
	Patterns   []patternItem `json:"patterns"`
	Confidence float64       `json:"confidence"`
}

type resolvedResponse struct {
	ParticipantID string      `json:"participant_id"`
	Ranges        []rangeItem `json:"ranges"`
}

type rangeItem struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (h *AvailabilityHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.replacePatterns(w, r)
	case http.MethodGet:
		h.listPatterns(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AvailabilityHandler) replacePatterns(w http.ResponseWriter, r *http.Request) {
	claims, ok := participantFromRequest(r, h.jwtSecret)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req replacePatternsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	rows, err := patternRows(claims.Sub, req.Patterns)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.ReplacePatterns(ctx, tx, claims.Sub, rows); err != nil {
		http.Error(w, "failed to store patterns", http.StatusInternalServerError)
		return
	}
	if err := h.recordAvailabilityChange(ctx, tx, claims, "patterns_replaced"); err != nil {
		http.Error(w, "failed to record change", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AvailabilityHandler) listPatterns(w http.ResponseWriter, r *http.Request) {
	claims, ok := participantFromRequest(r, h.jwtSecret)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rows, err := h.repo.ListPatterns(r.Context(), claims.Sub)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	items := []patternItem{}
	for _, row := range rows {
		p := row.Pattern()
		items = append(items, patternItem{
			Weekday:  row.Weekday,
			Start:    string(p.Start),
			End:      string(p.End),
			Polarity: row.Polarity,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(replacePatternsRequest{Patterns: items})
}

func (h *AvailabilityHandler) Slot(w http.ResponseWriter, r *http.Request) {
	h.createOverride(w, r, model.OverrideAddition)
}

func (h *AvailabilityHandler) Exception(w http.ResponseWriter, r *http.Request) {
	h.createOverride(w, r, model.OverrideException)
}

func (h *AvailabilityHandler) createOverride(w http.ResponseWriter, r *http.Request, kind string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := participantFromRequest(r, h.jwtSecret)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	rng := engine.Range{
		Date:  engine.DateKey(strings.TrimSpace(req.Date)),
		Start: engine.TimeOfDay(strings.TrimSpace(req.Start)),
		End:   engine.TimeOfDay(strings.TrimSpace(req.End)),
	}
	if err := rng.Validate(); err != nil {
		http.Error(w, "invalid time range", http.StatusBadRequest)
		return
	}
	day, _ := time.Parse("2006-01-02", string(rng.Date))

	row := &model.OverrideRow{
		ParticipantID: claims.Sub,
		Day:           day,
		StartMinute:   rng.Start.Minutes(),
		EndMinute:     rng.End.Minutes(),
		Kind:          kind,
		Reason:        strings.TrimSpace(req.Reason),
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.InsertOverride(ctx, tx, row)
	if err != nil {
		http.Error(w, "failed to store override", http.StatusInternalServerError)
		return
	}
	if err := h.recordAvailabilityChange(ctx, tx, claims, kind+"_added"); err != nil {
		http.Error(w, "failed to record change", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(overrideResponse{OverrideID: id})
}

func (h *AvailabilityHandler) FreeText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := participantFromRequest(r, h.jwtSecret)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if h.parser == nil {
		http.Error(w, "free text parsing unavailable", http.StatusServiceUnavailable)
		return
	}

	var req freeTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		http.Error(w, "missing text", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	result, err := h.parser.ParseFreeText(ctx, claims.Sub, req.Text)
	if err != nil {
		h.logger.Warn("free text parse failed", "err", err)
		http.Error(w, "free text parsing unavailable", http.StatusServiceUnavailable)
		return
	}

	items := make([]patternItem, 0, len(result.Patterns))
	for _, p := range result.Patterns {
		items = append(items, patternItem{
			Weekday:  p.Weekday,
			Start:    p.Start,
			End:      p.End,
			Polarity: p.Polarity,
		})
	}

	parsed, err := patternRows(claims.Sub, items)
	if err != nil {
		http.Error(w, "parser returned invalid patterns", http.StatusBadGateway)
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Read under the same transaction that replaces, with the rows locked;
	// a pattern write landing between the two would otherwise be lost.
	existing, err := h.repo.ListPatternsForUpdate(ctx, tx, claims.Sub)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	if err := h.repo.ReplacePatterns(ctx, tx, claims.Sub, append(existing, parsed...)); err != nil {
		http.Error(w, "failed to store patterns", http.StatusInternalServerError)
		return
	}
	if err := h.recordAvailabilityChange(ctx, tx, claims, "freetext_parsed"); err != nil {
		http.Error(w, "failed to record change", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(freeTextResponse{Patterns: items, Confidence: result.Confidence})
}

func (h *AvailabilityHandler) Resolved(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := participantFromRequest(r, h.jwtSecret)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	campaign, err := h.repo.GetCampaign(ctx, claims.CampaignID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "campaign not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	participant, err := h.repo.GetParticipant(ctx, claims.Sub)
	if err != nil {
		http.Error(w, "participant not found", http.StatusNotFound)
		return
	}

	patterns, err := h.repo.ListPatterns(ctx, claims.Sub)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	overrides, err := h.repo.ListOverrides(ctx, claims.Sub, campaign.StartDate, campaign.EndDate)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	ranges, err := engine.Resolve(model.ParticipantInput(participant, patterns, overrides), campaign.Window())
	if err != nil {
		h.logger.Error("resolve failed on stored rows", "err", err, "participant_id", claims.Sub)
		http.Error(w, "failed to resolve availability", http.StatusInternalServerError)
		return
	}

	resp := resolvedResponse{ParticipantID: claims.Sub, Ranges: []rangeItem{}}
	for _, rng := range ranges {
		resp.Ranges = append(resp.Ranges, rangeItem{
			Date:  string(rng.Date),
			Start: string(rng.Start),
			End:   string(rng.End),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// recordAvailabilityChange bumps the campaign revision so cached overlap
// results go stale, and emits the availability updated event.
func (h *AvailabilityHandler) recordAvailabilityChange(ctx context.Context, tx pgx.Tx, claims *auth.Claims, change string) error {
	revision, err := h.repo.BumpRevision(ctx, tx, claims.CampaignID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"campaign_id":    claims.CampaignID,
		"participant_id": claims.Sub,
		"change":         change,
		"revision":       revision,
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "participant",
		AggregateID:   claims.Sub,
		EventType:     outbox.EventAvailabilityUpdated,
		Payload:       payload,
	})
}

func patternRows(participantID string, items []patternItem) ([]model.WeeklyPatternRow, error) {
	rows := make([]model.WeeklyPatternRow, 0, len(items))
	for _, item := range items {
		polarity := strings.TrimSpace(item.Polarity)
		if polarity == "" {
			polarity = model.PolarityAvailable
		}
		if polarity != model.PolarityAvailable && polarity != model.PolarityUnavailable {
			return nil, errInvalidPolarity
		}
		p := engine.WeeklyPattern{
			Weekday: item.Weekday,
			Start:   engine.TimeOfDay(strings.TrimSpace(item.Start)),
			End:     engine.TimeOfDay(strings.TrimSpace(item.End)),
		}
		if err := p.Validate(); err != nil {
			return nil, errInvalidPattern
		}
		rows = append(rows, model.WeeklyPatternRow{
			ParticipantID: participantID,
			Weekday:       p.Weekday,
			StartMinute:   p.Start.Minutes(),
			EndMinute:     p.End.Minutes(),
			Polarity:      polarity,
		})
	}
	return rows, nil
}
