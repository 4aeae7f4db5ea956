package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/model"
)

// ReplacePatterns swaps a participant's entire weekly pattern set in one
// statement pair. Patterns are edited as a whole grid in the client, so
// partial updates would only invite drift.
func (r *Repository) ReplacePatterns(ctx context.Context, tx pgx.Tx, participantID string, patterns []model.WeeklyPatternRow) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM weekly_patterns
		WHERE participant_id = $1
	`, participantID); err != nil {
		return err
	}
	for _, p := range patterns {
		if _, err := tx.Exec(ctx, `
			INSERT INTO weekly_patterns (participant_id, weekday, start_minute, end_minute, polarity)
			VALUES ($1, $2, $3, $4, $5)
		`, participantID, p.Weekday, p.StartMinute, p.EndMinute, p.Polarity); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) ListPatterns(ctx context.Context, participantID string) ([]model.WeeklyPatternRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, participant_id::text, weekday, start_minute, end_minute, polarity
		FROM weekly_patterns
		WHERE participant_id = $1
		ORDER BY weekday ASC, start_minute ASC
	`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPatterns(rows)
}

// ListPatternsForUpdate reads a participant's patterns inside tx with the
// rows locked, so a read-modify-write (append parsed patterns, replace the
// set) cannot lose a concurrent write.
func (r *Repository) ListPatternsForUpdate(ctx context.Context, tx pgx.Tx, participantID string) ([]model.WeeklyPatternRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT id::text, participant_id::text, weekday, start_minute, end_minute, polarity
		FROM weekly_patterns
		WHERE participant_id = $1
		ORDER BY weekday ASC, start_minute ASC
		FOR UPDATE
	`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPatterns(rows)
}

// ListCampaignPatterns returns every participant's patterns for one
// campaign, keyed by participant id.
func (r *Repository) ListCampaignPatterns(ctx context.Context, campaignID string) (map[string][]model.WeeklyPatternRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT wp.id::text, wp.participant_id::text, wp.weekday, wp.start_minute, wp.end_minute, wp.polarity
		FROM weekly_patterns wp
		JOIN participants p ON p.id = wp.participant_id
		WHERE p.campaign_id = $1
		ORDER BY wp.weekday ASC, wp.start_minute ASC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patterns, err := scanPatterns(rows)
	if err != nil {
		return nil, err
	}
	byParticipant := make(map[string][]model.WeeklyPatternRow)
	for _, p := range patterns {
		byParticipant[p.ParticipantID] = append(byParticipant[p.ParticipantID], p)
	}
	return byParticipant, nil
}

func (r *Repository) InsertOverride(ctx context.Context, tx pgx.Tx, o *model.OverrideRow) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO availability_overrides (id, participant_id, day, start_minute, end_minute, kind, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, o.ParticipantID, o.Day, o.StartMinute, o.EndMinute, o.Kind, o.Reason)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ListOverrides(ctx context.Context, participantID string, from, to time.Time) ([]model.OverrideRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, participant_id::text, day, start_minute, end_minute, kind, COALESCE(reason, ''), created_at
		FROM availability_overrides
		WHERE participant_id = $1
			AND day >= $2
			AND day <= $3
		ORDER BY day ASC, start_minute ASC
	`, participantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOverrides(rows)
}

// ListCampaignOverrides returns every participant's one-off entries inside
// the campaign's date window, keyed by participant id.
func (r *Repository) ListCampaignOverrides(ctx context.Context, campaignID string, from, to time.Time) (map[string][]model.OverrideRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id::text, o.participant_id::text, o.day, o.start_minute, o.end_minute, o.kind, COALESCE(o.reason, ''), o.created_at
		FROM availability_overrides o
		JOIN participants p ON p.id = o.participant_id
		WHERE p.campaign_id = $1
			AND o.day >= $2
			AND o.day <= $3
		ORDER BY o.day ASC, o.start_minute ASC
	`, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides, err := scanOverrides(rows)
	if err != nil {
		return nil, err
	}
	byParticipant := make(map[string][]model.OverrideRow)
	for _, o := range overrides {
		byParticipant[o.ParticipantID] = append(byParticipant[o.ParticipantID], o)
	}
	return byParticipant, nil
}

func scanPatterns(rows pgx.Rows) ([]model.WeeklyPatternRow, error) {
	var out []model.WeeklyPatternRow
	for rows.Next() {
		var p model.WeeklyPatternRow
		if err := rows.Scan(&p.ID, &p.ParticipantID, &p.Weekday, &p.StartMinute, &p.EndMinute, &p.Polarity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanOverrides(rows pgx.Rows) ([]model.OverrideRow, error) {
	var out []model.OverrideRow
	for rows.Next() {
		var o model.OverrideRow
		if err := rows.Scan(&o.ID, &o.ParticipantID, &o.Day, &o.StartMinute, &o.EndMinute, &o.Kind, &o.Reason, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
