package domain

import "time"

// ─── Achievement Types ──────────────────────────────────────────────────────

// Achievement is a catalog entry, one per ledger record type.
type Achievement struct {
	ID          string     `json:"id"`
	Type        RecordType `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

// AccountAchievement is an achievement granted to an account.
type AccountAchievement struct {
	Achievement
	AccountID string    `json:"account"`
	AwardedAt time.Time `json:"awardedAt"`
}
