package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/petlink-network/petlink/internal/domain"
)

// ─── Identity Operations ────────────────────────────────────────────────────
// Accounts and pets belong to the account/pet services; these tables hold the
// fields the adoption lifecycle reads, plus the adoption flag it writes.

// GetAccount returns an account by id, or nil.
func (r *repo) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var (
		a    domain.Account
		inst int
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, email, name, institution FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.Email, &a.Name, &inst)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Institution = inst == 1
	return &a, nil
}

// GetPet returns a pet by id, or nil.
func (r *repo) GetPet(ctx context.Context, id string) (*domain.Pet, error) {
	var (
		p                domain.Pet
		adopted, deleted int
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, account_id, name, adopted, deleted FROM pets WHERE id = ?
	`, id).Scan(&p.ID, &p.AccountID, &p.Name, &adopted, &deleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Adopted = adopted == 1
	p.Deleted = deleted == 1
	return &p, nil
}

// UpdatePet applies the non-nil fields of patch.
func (r *repo) UpdatePet(ctx context.Context, id string, patch domain.PetPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Adopted != nil {
		sets = append(sets, "adopted = ?")
		args = append(args, boolInt(*patch.Adopted))
	}
	if patch.AccountID != nil {
		sets = append(sets, "account_id = ?")
		args = append(args, *patch.AccountID)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.q.ExecContext(ctx,
		`UPDATE pets SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPetNotFound
	}
	return nil
}

// UpsertAccount inserts or replaces an account row.
func (d *DB) UpsertAccount(ctx context.Context, a domain.Account) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, name, institution) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email       = excluded.email,
			name        = excluded.name,
			institution = excluded.institution
	`, a.ID, a.Email, a.Name, boolInt(a.Institution))
	return err
}

// UpsertPet inserts or replaces a pet row.
func (d *DB) UpsertPet(ctx context.Context, p domain.Pet) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO pets (id, account_id, name, adopted, deleted) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			name       = excluded.name,
			adopted    = excluded.adopted,
			deleted    = excluded.deleted
	`, p.ID, p.AccountID, p.Name, boolInt(p.Adopted), boolInt(p.Deleted))
	return err
}
