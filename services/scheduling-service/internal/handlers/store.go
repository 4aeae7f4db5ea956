package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/model"
)

// Store is the storage surface the HTTP handlers depend on.
// *storage.Repository implements it.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	CreateCampaign(ctx context.Context, tx pgx.Tx, c *model.Campaign, passphraseHash string) (string, error)
	GetCampaign(ctx context.Context, campaignID string) (model.Campaign, error)
	GetPassphraseHash(ctx context.Context, campaignID string) (string, error)
	BumpRevision(ctx context.Context, tx pgx.Tx, campaignID string) (int64, error)

	CreateParticipant(ctx context.Context, tx pgx.Tx, p *model.Participant) (string, error)
	CountParticipants(ctx context.Context, tx pgx.Tx, campaignID string) (int, error)
	GetParticipant(ctx context.Context, participantID string) (model.Participant, error)
	ListParticipants(ctx context.Context, campaignID string) ([]model.Participant, error)
	GetEntitlements(ctx context.Context, tx pgx.Tx, campaignID string) (model.Entitlements, bool, error)

	ReplacePatterns(ctx context.Context, tx pgx.Tx, participantID string, patterns []model.WeeklyPatternRow) error
	ListPatterns(ctx context.Context, participantID string) ([]model.WeeklyPatternRow, error)
	ListPatternsForUpdate(ctx context.Context, tx pgx.Tx, participantID string) ([]model.WeeklyPatternRow, error)
	InsertOverride(ctx context.Context, tx pgx.Tx, o *model.OverrideRow) (string, error)
	ListOverrides(ctx context.Context, participantID string, from, to time.Time) ([]model.OverrideRow, error)
	ListCampaignPatterns(ctx context.Context, campaignID string) (map[string][]model.WeeklyPatternRow, error)
	ListCampaignOverrides(ctx context.Context, campaignID string, from, to time.Time) (map[string][]model.OverrideRow, error)
}
