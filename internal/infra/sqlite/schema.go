package sqlite

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements, one per string
// (SQLite executes one at a time). All statements are idempotent.
func Migrations() []string {
	return []string{
		// Identity collaborator tables (owned by the account/pet services)
		`CREATE TABLE IF NOT EXISTS accounts (
			id          TEXT PRIMARY KEY,
			email       TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL DEFAULT '',
			institution INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS pets (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			adopted    INTEGER NOT NULL DEFAULT 0,
			deleted    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pets_account ON pets(account_id)`,

		// One interaction per (account, pet)
		`CREATE TABLE IF NOT EXISTS interactions (
			account_id TEXT NOT NULL,
			pet_id     TEXT NOT NULL,
			status     TEXT NOT NULL CHECK(status IN ('liked', 'disliked', 'viewed')),
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (account_id, pet_id)
		)`,

		// History ledger
		`CREATE TABLE IF NOT EXISTS history_records (
			id                 TEXT PRIMARY KEY,
			type               TEXT NOT NULL CHECK(type IN ('adoption', 'sponsorship', 'donation')),
			status             TEXT NOT NULL DEFAULT 'pending'
			                   CHECK(status IN ('pending', 'completed', 'cancelled', 'refunded')),
			account_id         TEXT NOT NULL,
			pet_id             TEXT,
			institution_id     TEXT,
			amount             TEXT,
			external_reference TEXT,
			url_payment        TEXT,
			expires_at         INTEGER,
			created_at         INTEGER NOT NULL,
			updated_at         INTEGER NOT NULL,
			CHECK (type <> 'adoption' OR pet_id IS NOT NULL),
			CHECK (type = 'adoption' OR amount IS NOT NULL)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_pet ON history_records(pet_id, type, status)`,
		`CREATE INDEX IF NOT EXISTS idx_history_account ON history_records(account_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_expiry ON history_records(status, expires_at)`,
		// At most one completed adoption per pet
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_history_adopted_pet ON history_records(pet_id)
			WHERE type = 'adoption' AND status = 'completed'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_history_reference ON history_records(external_reference)
			WHERE external_reference IS NOT NULL`,

		// Achievement catalog and the account join table
		`CREATE TABLE IF NOT EXISTS achievements (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS account_achievements (
			account_id     TEXT NOT NULL,
			achievement_id TEXT NOT NULL REFERENCES achievements(id),
			awarded_at     INTEGER NOT NULL,
			PRIMARY KEY (account_id, achievement_id)
		)`,
		`INSERT OR IGNORE INTO achievements (id, type, name, description) VALUES
			('ach-adoption', 'adoption', 'Forever Home', 'Adopted a pet'),
			('ach-sponsorship', 'sponsorship', 'Guardian Angel', 'Sponsored an institution'),
			('ach-donation', 'donation', 'Kind Heart', 'Donated to the platform')`,
	}
}
