package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/petlink-network/petlink/internal/domain"
)

// ─── History Ledger Operations ──────────────────────────────────────────────

const recordColumns = `id, type, status, account_id, pet_id, institution_id, amount,
	external_reference, url_payment, expires_at, created_at, updated_at`

// CreateRecord inserts a new ledger entry after validating its variant.
func (r *repo) CreateRecord(ctx context.Context, rec *domain.HistoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	var amount sql.NullString
	if amt, ok := rec.Amount(); ok {
		amount = nullString(domain.FormatAmount(amt))
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO history_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, string(rec.Type()), string(rec.Status), rec.AccountID,
		nullString(rec.PetID()), nullString(rec.InstitutionID()), amount,
		nullString(rec.ExternalReference), nullString(rec.URLPayment), nullUnix(rec.ExpiresAt),
		toUnix(rec.CreatedAt), toUnix(rec.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateReference
	}
	return err
}

// GetRecord returns a ledger entry by id, or nil.
func (r *repo) GetRecord(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	return r.queryOne(ctx, `SELECT `+recordColumns+` FROM history_records WHERE id = ?`, id)
}

// RecordByReference returns the entry bound to an external reference, or nil.
func (r *repo) RecordByReference(ctx context.Context, ref string) (*domain.HistoryRecord, error) {
	return r.queryOne(ctx, `SELECT `+recordColumns+` FROM history_records WHERE external_reference = ?`, ref)
}

// LatestAdoption returns the newest adoption entry for (pet, account), or nil.
func (r *repo) LatestAdoption(ctx context.Context, petID, accountID string) (*domain.HistoryRecord, error) {
	return r.queryOne(ctx, `
		SELECT `+recordColumns+` FROM history_records
		WHERE type = 'adoption' AND pet_id = ? AND account_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, petID, accountID)
}

// PendingAdoption returns the pending adoption entry for (pet, account), or nil.
func (r *repo) PendingAdoption(ctx context.Context, petID, accountID string) (*domain.HistoryRecord, error) {
	return r.queryOne(ctx, `
		SELECT `+recordColumns+` FROM history_records
		WHERE type = 'adoption' AND status = 'pending' AND pet_id = ? AND account_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, petID, accountID)
}

// PendingAdoptions returns every pending adoption entry for a pet.
func (r *repo) PendingAdoptions(ctx context.Context, petID string) ([]domain.HistoryRecord, error) {
	return r.queryMany(ctx, `
		SELECT `+recordColumns+` FROM history_records
		WHERE type = 'adoption' AND status = 'pending' AND pet_id = ?
		ORDER BY created_at
	`, petID)
}

// AdoptionsForPet returns all adoption entries for a pet, oldest first.
func (r *repo) AdoptionsForPet(ctx context.Context, petID string) ([]domain.HistoryRecord, error) {
	return r.queryMany(ctx, `
		SELECT `+recordColumns+` FROM history_records
		WHERE type = 'adoption' AND pet_id = ?
		ORDER BY created_at
	`, petID)
}

// RecordsByAccount returns an account's entries, newest first.
func (r *repo) RecordsByAccount(ctx context.Context, accountID string) ([]domain.HistoryRecord, error) {
	return r.queryMany(ctx, `
		SELECT `+recordColumns+` FROM history_records
		WHERE account_id = ?
		ORDER BY created_at DESC
	`, accountID)
}

// ExpiredPending returns pending payment entries whose expiry is before now.
func (r *repo) ExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.HistoryRecord, error) {
	return r.queryMany(ctx, `
		SELECT `+recordColumns+` FROM history_records
		WHERE status = 'pending' AND type IN ('sponsorship', 'donation')
		  AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at LIMIT ?
	`, toUnix(now), limit)
}

// Transition is a compare-and-swap on status. It reports whether this call
// moved the record; false means the record was not in from.
func (r *repo) Transition(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	if !from.CanTransition(to) {
		return false, domain.ErrInvalidTransition
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE history_records SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(to), toUnix(time.Now()), id, string(from))
	if isUniqueViolation(err) {
		return false, domain.ErrAdoptionCompetition
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ─── Scanning ───────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*domain.HistoryRecord, error) {
	var (
		rec                domain.HistoryRecord
		typ, status        string
		pet, inst, amount  sql.NullString
		extRef, urlPayment sql.NullString
		expires            sql.NullInt64
		created, updated   int64
	)
	if err := s.Scan(&rec.ID, &typ, &status, &rec.AccountID, &pet, &inst, &amount,
		&extRef, &urlPayment, &expires, &created, &updated); err != nil {
		return nil, err
	}
	rec.Status = domain.Status(status)
	rec.ExternalReference = extRef.String
	rec.URLPayment = urlPayment.String
	rec.CreatedAt = fromUnix(created)
	rec.UpdatedAt = fromUnix(updated)
	if expires.Valid {
		t := fromUnix(expires.Int64)
		rec.ExpiresAt = &t
	}

	switch domain.RecordType(typ) {
	case domain.RecordAdoption:
		rec.Subject = domain.AdoptionSubject{PetID: pet.String, InstitutionID: inst.String}
	case domain.RecordDonation:
		amt, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, fmt.Errorf("record %s: bad amount %q: %w", rec.ID, amount.String, err)
		}
		rec.Subject = domain.DonationSubject{Amount: amt}
	case domain.RecordSponsorship:
		amt, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, fmt.Errorf("record %s: bad amount %q: %w", rec.ID, amount.String, err)
		}
		rec.Subject = domain.SponsorshipSubject{InstitutionID: inst.String, Amount: amt}
	default:
		return nil, fmt.Errorf("record %s: unknown type %q", rec.ID, typ)
	}
	return &rec, nil
}

func (r *repo) queryOne(ctx context.Context, query string, args ...any) (*domain.HistoryRecord, error) {
	rec, err := scanRecord(r.q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *repo) queryMany(ctx context.Context, query string, args ...any) ([]domain.HistoryRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
