package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/engine"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/model"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/storage"
)

type OverlapHandler struct {
	repo      Store
	logger    *slog.Logger
	rdb       *redis.Client
	cacheTTL  time.Duration
	jwtSecret string
}

func NewOverlapHandler(repo Store, logger *slog.Logger, rdb *redis.Client, cacheTTL time.Duration, jwtSecret string) *OverlapHandler {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &OverlapHandler{
		repo:      repo,
		logger:    logger,
		rdb:       rdb,
		cacheTTL:  cacheTTL,
		jwtSecret: jwtSecret,
	}
}

type overlapResponse struct {
	CampaignID   string               `json:"campaign_id"`
	Revision     int64                `json:"revision"`
	Participants int                  `json:"participants"`
	PerfectSlots []engine.OverlapSlot `json:"perfect_slots"`
	BestSlots    []engine.OverlapSlot `json:"best_slots"`
}

func (h *OverlapHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	// Cache key carries the revision: any availability write bumps it, so
	// stale entries are never served and expire on their own.
	cacheKey := fmt.Sprintf("overlap:%s:%d", campaign.ID, campaign.Revision)
	if h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(cached)
			return
		} else if err != redis.Nil {
			h.logger.Warn("overlap cache read failed", "err", err)
		}
	}

	participants, err := h.repo.ListParticipants(ctx, campaign.ID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	patternsByParticipant, err := h.repo.ListCampaignPatterns(ctx, campaign.ID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	overridesByParticipant, err := h.repo.ListCampaignOverrides(ctx, campaign.ID, campaign.StartDate, campaign.EndDate)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	window := campaign.Window()
	inputs := make([]engine.ParticipantAvailability, 0, len(participants))
	for _, p := range participants {
		in := model.ParticipantInput(p, patternsByParticipant[p.ID], overridesByParticipant[p.ID])
		ranges, err := engine.Resolve(in, window)
		if err != nil {
			h.logger.Error("resolve failed on stored rows", "err", err, "participant_id", p.ID)
			http.Error(w, "failed to resolve availability", http.StatusInternalServerError)
			return
		}
		inputs = append(inputs, engine.ParticipantAvailability{
			ParticipantID: p.ID,
			Ranges:        ranges,
		})
	}

	result, err := engine.Aggregate(inputs, window)
	if err != nil {
		h.logger.Error("overlap aggregation failed", "err", err, "campaign_id", campaign.ID)
		http.Error(w, "failed to compute overlap", http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(overlapResponse{
		CampaignID:   campaign.ID,
		Revision:     campaign.Revision,
		Participants: len(participants),
		PerfectSlots: result.PerfectSlots,
		BestSlots:    result.BestSlots,
	})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}

	if h.rdb != nil {
		if err := h.rdb.Set(ctx, cacheKey, body, h.cacheTTL).Err(); err != nil {
			h.logger.Warn("overlap cache write failed", "err", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
