package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rollcall-app/rollcall/libs/auth"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/engine"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/model"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/outbox"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// Free tier defaults applied before billing has pushed entitlements for a
// campaign.
const (
	defaultMaxParticipants = 6
	defaultMaxWindowDays   = 60
)

type CampaignHandler struct {
	repo       Store
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	jwtSecret  string
	tokenTTL   time.Duration
}

func NewCampaignHandler(repo Store, outboxRepo *outbox.Repository, logger *slog.Logger, jwtSecret string, tokenTTL time.Duration) *CampaignHandler {
	return &CampaignHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		logger:     logger,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
	}
}

type createCampaignRequest struct {
	Name         string `json:"name"`
	Timezone     string `json:"timezone"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	EarliestTime string `json:"earliest_time"`
	LatestTime   string `json:"latest_time"`
	Passphrase   string `json:"passphrase"`
	GMName       string `json:"gm_name"`
}

type createCampaignResponse struct {
	CampaignID    string `json:"campaign_id"`
	ParticipantID string `json:"participant_id"`
	AccessToken   string `json:"access_token"`
	TokenType     string `json:"token_type"`
}

type joinCampaignRequest struct {
	CampaignID  string `json:"campaign_id"`
	Passphrase  string `json:"passphrase"`
	DisplayName string `json:"display_name"`
}

type joinCampaignResponse struct {
	ParticipantID string `json:"participant_id"`
	AccessToken   string `json:"access_token"`
	TokenType     string `json:"token_type"`
}

type campaignResponse struct {
	CampaignID   string            `json:"campaign_id"`
	Name         string            `json:"name"`
	Timezone     string            `json:"timezone"`
	StartDate    string            `json:"start_date"`
	EndDate      string            `json:"end_date"`
	EarliestTime string            `json:"earliest_time"`
	LatestTime   string            `json:"latest_time"`
	Participants []participantItem `json:"participants"`
}

type participantItem struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Role          string `json:"role"`
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Timezone = strings.TrimSpace(req.Timezone)
	req.GMName = strings.TrimSpace(req.GMName)
	if req.Name == "" || req.GMName == "" || req.Passphrase == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}

	window := engine.Window{
		StartDate:    engine.DateKey(strings.TrimSpace(req.StartDate)),
		EndDate:      engine.DateKey(strings.TrimSpace(req.EndDate)),
		EarliestTime: engine.TimeOfDay(strings.TrimSpace(req.EarliestTime)),
		LatestTime:   engine.TimeOfDay(strings.TrimSpace(req.LatestTime)),
	}
	if err := window.Validate(); err != nil {
		http.Error(w, "invalid campaign window", http.StatusBadRequest)
		return
	}

	startDate, _ := time.Parse("2006-01-02", string(window.StartDate))
	endDate, _ := time.Parse("2006-01-02", string(window.EndDate))
	if days := int(endDate.Sub(startDate).Hours()/24) + 1; days > defaultMaxWindowDays {
		http.Error(w, "campaign window exceeds plan limit", http.StatusPaymentRequired)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Passphrase), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash passphrase", http.StatusInternalServerError)
		return
	}

	campaign := &model.Campaign{
		Name:           req.Name,
		Timezone:       req.Timezone,
		StartDate:      startDate,
		EndDate:        endDate,
		EarliestMinute: window.EarliestTime.Minutes(),
		LatestMinute:   window.LatestTime.Minutes(),
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	campaignID, err := h.repo.CreateCampaign(ctx, tx, campaign, string(hash))
	if err != nil {
		http.Error(w, "failed to create campaign", http.StatusInternalServerError)
		return
	}

	gm := &model.Participant{
		CampaignID:  campaignID,
		DisplayName: req.GMName,
		Role:        "gm",
	}
	participantID, err := h.repo.CreateParticipant(ctx, tx, gm)
	if err != nil {
		http.Error(w, "failed to create participant", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"campaign_id": campaignID,
		"name":        campaign.Name,
		"timezone":    campaign.Timezone,
		"start_date":  string(window.StartDate),
		"end_date":    string(window.EndDate),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "campaign",
		AggregateID:   campaignID,
		EventType:     outbox.EventCampaignCreated,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	token, err := h.mintToken(participantID, campaignID, "gm")
	if err != nil {
		http.Error(w, "failed to mint token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createCampaignResponse{
		CampaignID:    campaignID,
		ParticipantID: participantID,
		AccessToken:   token,
		TokenType:     "Bearer",
	})
}

func (h *CampaignHandler) Join(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req joinCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.CampaignID = strings.TrimSpace(req.CampaignID)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.CampaignID == "" || req.DisplayName == "" || req.Passphrase == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	hash, err := h.repo.GetPassphraseHash(ctx, req.CampaignID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "campaign not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Passphrase)) != nil {
		http.Error(w, "invalid passphrase", http.StatusUnauthorized)
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	maxParticipants := defaultMaxParticipants
	if ent, found, err := h.repo.GetEntitlements(ctx, tx, req.CampaignID); err == nil && found {
		maxParticipants = ent.MaxParticipants
	} else if err != nil {
		http.Error(w, "entitlements check failed", http.StatusInternalServerError)
		return
	}

	count, err := h.repo.CountParticipants(ctx, tx, req.CampaignID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if count >= maxParticipants {
		http.Error(w, "campaign is full for its current plan", http.StatusPaymentRequired)
		return
	}

	p := &model.Participant{
		CampaignID:  req.CampaignID,
		DisplayName: req.DisplayName,
		Role:        "player",
	}
	participantID, err := h.repo.CreateParticipant(ctx, tx, p)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "display name already taken", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create participant", http.StatusInternalServerError)
		return
	}

	// A new participant changes the overlap result (Total rises, the
	// perfect tier shrinks), so cached entries for the old revision must
	// stop matching.
	if _, err := h.repo.BumpRevision(ctx, tx, req.CampaignID); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	token, err := h.mintToken(participantID, req.CampaignID, "player")
	if err != nil {
		http.Error(w, "failed to mint token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(joinCampaignResponse{
		ParticipantID: participantID,
		AccessToken:   token,
		TokenType:     "Bearer",
	})
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	participants, err := h.repo.ListParticipants(ctx, campaign.ID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	window := campaign.Window()
	resp := campaignResponse{
		CampaignID:   campaign.ID,
		Name:         campaign.Name,
		Timezone:     campaign.Timezone,
		StartDate:    string(window.StartDate),
		EndDate:      string(window.EndDate),
		EarliestTime: string(window.EarliestTime),
		LatestTime:   string(window.LatestTime),
		Participants: []participantItem{},
	}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, participantItem{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Role:          p.Role,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *CampaignHandler) mintToken(participantID, campaignID, role string) (string, error) {
	now := time.Now().UTC()
	return auth.SignHS256(auth.Claims{
		Sub:        participantID,
		CampaignID: campaignID,
		Role:       role,
		Iat:        now.Unix(),
		Exp:        now.Add(h.tokenTTL).Unix(),
	}, h.jwtSecret)
}
