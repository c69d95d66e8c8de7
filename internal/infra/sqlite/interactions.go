package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/petlink-network/petlink/internal/domain"
)

// ─── Interaction Operations ─────────────────────────────────────────────────

// UpsertInteraction inserts or updates the (account, pet) interaction.
func (r *repo) UpsertInteraction(ctx context.Context, accountID, petID string, status domain.InteractionStatus) (*domain.Interaction, error) {
	now := toUnix(time.Now())
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO interactions (account_id, pet_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id, pet_id) DO UPDATE SET
			status     = excluded.status,
			updated_at = excluded.updated_at
	`, accountID, petID, string(status), now, now)
	if err != nil {
		return nil, err
	}
	return r.GetInteraction(ctx, accountID, petID)
}

// GetInteraction returns the interaction for (account, pet), or nil.
func (r *repo) GetInteraction(ctx context.Context, accountID, petID string) (*domain.Interaction, error) {
	var (
		in               domain.Interaction
		status           string
		created, updated int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT account_id, pet_id, status, created_at, updated_at
		FROM interactions WHERE account_id = ? AND pet_id = ?
	`, accountID, petID).Scan(&in.AccountID, &in.PetID, &status, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	in.Status = domain.InteractionStatus(status)
	in.CreatedAt = fromUnix(created)
	in.UpdatedAt = fromUnix(updated)
	return &in, nil
}

// ListInteractions returns an account's interactions, newest first,
// skipping rows in the excluded status.
func (r *repo) ListInteractions(ctx context.Context, accountID string, exclude domain.InteractionStatus) ([]domain.Interaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT account_id, pet_id, status, created_at, updated_at
		FROM interactions
		WHERE account_id = ? AND status <> ?
		ORDER BY updated_at DESC
	`, accountID, string(exclude))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var (
			in               domain.Interaction
			status           string
			created, updated int64
		)
		if err := rows.Scan(&in.AccountID, &in.PetID, &status, &created, &updated); err != nil {
			return nil, err
		}
		in.Status = domain.InteractionStatus(status)
		in.CreatedAt = fromUnix(created)
		in.UpdatedAt = fromUnix(updated)
		out = append(out, in)
	}
	return out, rows.Err()
}
