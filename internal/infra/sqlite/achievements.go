package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/petlink-network/petlink/internal/domain"
)

// ─── Achievement Operations ─────────────────────────────────────────────────

// AchievementByType returns the catalog entry for a record type, or nil.
func (r *repo) AchievementByType(ctx context.Context, t domain.RecordType) (*domain.Achievement, error) {
	var (
		a   domain.Achievement
		typ string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, type, name, description FROM achievements WHERE type = ?
	`, string(t)).Scan(&a.ID, &typ, &a.Name, &a.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Type = domain.RecordType(typ)
	return &a, nil
}

// GrantAchievement inserts the join row. It reports false when the account
// already held the achievement.
func (r *repo) GrantAchievement(ctx context.Context, accountID, achievementID string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO account_achievements (account_id, achievement_id, awarded_at)
		VALUES (?, ?, ?)
	`, accountID, achievementID, toUnix(time.Now()))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AccountAchievements lists the achievements held by an account.
func (r *repo) AccountAchievements(ctx context.Context, accountID string) ([]domain.AccountAchievement, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT a.id, a.type, a.name, a.description, aa.account_id, aa.awarded_at
		FROM account_achievements aa
		JOIN achievements a ON a.id = aa.achievement_id
		WHERE aa.account_id = ?
		ORDER BY aa.awarded_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AccountAchievement
	for rows.Next() {
		var (
			aa      domain.AccountAchievement
			typ     string
			awarded int64
		)
		if err := rows.Scan(&aa.ID, &typ, &aa.Name, &aa.Description, &aa.AccountID, &awarded); err != nil {
			return nil, err
		}
		aa.Type = domain.RecordType(typ)
		aa.AwardedAt = fromUnix(awarded)
		out = append(out, aa)
	}
	return out, rows.Err()
}
