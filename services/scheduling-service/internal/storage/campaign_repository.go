package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rollcall-app/rollcall/libs/db"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/model"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) CreateCampaign(ctx context.Context, tx pgx.Tx, c *model.Campaign, passphraseHash string) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO campaigns
			(id, name, timezone, start_date, end_date, earliest_minute, latest_minute, passphrase_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, c.Name, c.Timezone, c.StartDate, c.EndDate, c.EarliestMinute, c.LatestMinute, passphraseHash)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) GetCampaign(ctx context.Context, campaignID string) (model.Campaign, error) {
	var c model.Campaign
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, timezone, start_date, end_date, earliest_minute, latest_minute, revision, created_at
		FROM campaigns
		WHERE id = $1
	`, campaignID).Scan(
		&c.ID,
		&c.Name,
		&c.Timezone,
		&c.StartDate,
		&c.EndDate,
		&c.EarliestMinute,
		&c.LatestMinute,
		&c.Revision,
		&c.CreatedAt,
	)
	if err != nil {
		return model.Campaign{}, err
	}
	return c, nil
}

func (r *Repository) GetPassphraseHash(ctx context.Context, campaignID string) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT passphrase_hash
		FROM campaigns
		WHERE id = $1
	`, campaignID).Scan(&hash)
	return hash, err
}

// BumpRevision advances the campaign's availability revision. Every
// availability write goes through this so cached overlap results for older
// revisions stop matching.
func (r *Repository) BumpRevision(ctx context.Context, tx pgx.Tx, campaignID string) (int64, error) {
	var revision int64
	err := tx.QueryRow(ctx, `
		UPDATE campaigns
		SET revision = revision + 1,
			updated_at = now()
		WHERE id = $1
		RETURNING revision
	`, campaignID).Scan(&revision)
	return revision, err
}

func (r *Repository) CreateParticipant(ctx context.Context, tx pgx.Tx, p *model.Participant) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO participants (id, campaign_id, display_name, role)
		VALUES ($1, $2, $3, $4)
	`, id, p.CampaignID, p.DisplayName, p.Role)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) CountParticipants(ctx context.Context, tx pgx.Tx, campaignID string) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM participants
		WHERE campaign_id = $1
	`, campaignID).Scan(&n)
	return n, err
}

func (r *Repository) GetParticipant(ctx context.Context, participantID string) (model.Participant, error) {
	var p model.Participant
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, campaign_id::text, display_name, role, created_at
		FROM participants
		WHERE id = $1
	`, participantID).Scan(&p.ID, &p.CampaignID, &p.DisplayName, &p.Role, &p.CreatedAt)
	if err != nil {
		return model.Participant{}, err
	}
	return p, nil
}

func (r *Repository) ListParticipants(ctx context.Context, campaignID string) ([]model.Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, campaign_id::text, display_name, role, created_at
		FROM participants
		WHERE campaign_id = $1
		ORDER BY created_at ASC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.DisplayName, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) UpsertEntitlements(ctx context.Context, tx pgx.Tx, e model.Entitlements) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO campaign_entitlements (campaign_id, tier, max_participants, max_window_days)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_id) DO UPDATE
		SET tier = EXCLUDED.tier,
			max_participants = EXCLUDED.max_participants,
			max_window_days = EXCLUDED.max_window_days,
			updated_at = now()
	`, e.CampaignID, e.Tier, e.MaxParticipants, e.MaxWindowDays)
	return err
}

func (r *Repository) GetEntitlements(ctx context.Context, tx pgx.Tx, campaignID string) (model.Entitlements, bool, error) {
	var e model.Entitlements
	err := tx.QueryRow(ctx, `
		SELECT campaign_id::text, tier, max_participants, max_window_days
		FROM campaign_entitlements
		WHERE campaign_id = $1
	`, campaignID).Scan(&e.CampaignID, &e.Tier, &e.MaxParticipants, &e.MaxWindowDays)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Entitlements{}, false, nil
	}
	if err != nil {
		return model.Entitlements{}, false, err
	}
	return e, true, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
