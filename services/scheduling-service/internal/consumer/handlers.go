package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/engine"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/model"
	"github.com/segmentio/kafka-go"
)

// patternStore is the storage surface the parsed-availability handler
// needs; *storage.Repository implements it.
type patternStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	ListPatternsForUpdate(ctx context.Context, tx pgx.Tx, participantID string) ([]model.WeeklyPatternRow, error)
	ReplacePatterns(ctx context.Context, tx pgx.Tx, participantID string, patterns []model.WeeklyPatternRow) error
	BumpRevision(ctx context.Context, tx pgx.Tx, campaignID string) (int64, error)
}

type entitlementsStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	UpsertEntitlements(ctx context.Context, tx pgx.Tx, e model.Entitlements) error
}

// Topics this service consumes.
const (
	TopicAvailabilityParsed  = "parser.availability.parsed.v1"
	TopicEntitlementsUpdated = "billing.entitlements.updated.v1"
)

type parsedAvailabilityEvent struct {
	ParticipantID string `json:"participant_id"`
	CampaignID    string `json:"campaign_id"`
	Patterns      []struct {
		Weekday  int    `json:"weekday"`
		Start    string `json:"start"`
		End      string `json:"end"`
		Polarity string `json:"polarity"`
	} `json:"patterns"`
}

// NewParsedAvailabilityHandler applies patterns produced by the free text
// parser asynchronously. Parsed patterns are appended to whatever the
// participant already declared; invalid patterns fail the whole event so
// nothing partial is stored.
func NewParsedAvailabilityHandler(repo patternStore, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt parsedAvailabilityEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode parsed availability event: %w", err)
		}
		if evt.ParticipantID == "" || evt.CampaignID == "" {
			return fmt.Errorf("parsed availability event missing ids")
		}

		var rows []model.WeeklyPatternRow
		for _, p := range evt.Patterns {
			polarity := p.Polarity
			if polarity == "" {
				polarity = model.PolarityAvailable
			}
			if polarity != model.PolarityAvailable && polarity != model.PolarityUnavailable {
				return fmt.Errorf("parsed pattern has unknown polarity %q", p.Polarity)
			}
			pattern := engine.WeeklyPattern{
				Weekday: p.Weekday,
				Start:   engine.TimeOfDay(p.Start),
				End:     engine.TimeOfDay(p.End),
			}
			if err := pattern.Validate(); err != nil {
				return fmt.Errorf("parsed pattern invalid: %w", err)
			}
			rows = append(rows, model.WeeklyPatternRow{
				ParticipantID: evt.ParticipantID,
				Weekday:       pattern.Weekday,
				StartMinute:   pattern.Start.Minutes(),
				EndMinute:     pattern.End.Minutes(),
				Polarity:      polarity,
			})
		}
		if len(rows) == 0 {
			logger.Info("parsed availability event carried no patterns", "participant_id", evt.ParticipantID)
			return nil
		}

		tx, err := repo.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		// Locked read in the replacing transaction; an interleaved pattern
		// write would otherwise be dropped by the append-and-replace.
		existing, err := repo.ListPatternsForUpdate(ctx, tx, evt.ParticipantID)
		if err != nil {
			return err
		}

		if err := repo.ReplacePatterns(ctx, tx, evt.ParticipantID, append(existing, rows...)); err != nil {
			return err
		}
		if _, err := repo.BumpRevision(ctx, tx, evt.CampaignID); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info("applied parsed availability", "participant_id", evt.ParticipantID, "patterns", len(rows))
		return nil
	}
}

type entitlementsEvent struct {
	CampaignID      string `json:"campaign_id"`
	Tier            string `json:"tier"`
	MaxParticipants int    `json:"max_participants"`
	MaxWindowDays   int    `json:"max_window_days"`
}

// NewEntitlementsHandler caches plan limits pushed by the billing system.
func NewEntitlementsHandler(repo entitlementsStore, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt entitlementsEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode entitlements event: %w", err)
		}
		if evt.CampaignID == "" {
			return fmt.Errorf("entitlements event missing campaign id")
		}

		tx, err := repo.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := repo.UpsertEntitlements(ctx, tx, model.Entitlements{
			CampaignID:      evt.CampaignID,
			Tier:            evt.Tier,
			MaxParticipants: evt.MaxParticipants,
			MaxWindowDays:   evt.MaxWindowDays,
		}); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info("entitlements updated", "campaign_id", evt.CampaignID, "tier", evt.Tier)
		return nil
	}
}
