package domain

// ─── Identity Types ─────────────────────────────────────────────────────────
// Accounts and pets are owned by the account/pet services. The lifecycle only
// reads them and flips a pet's adoption fields on acceptance.

// Account is the subset of an account the lifecycle needs.
type Account struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Institution bool   `json:"institution"`
}

// Pet is the subset of a pet the lifecycle needs.
type Pet struct {
	ID        string `json:"id"`
	AccountID string `json:"account"` // current owner
	Name      string `json:"name"`
	Adopted   bool   `json:"adopted"`
	Deleted   bool   `json:"deleted"`
}

// OwnedBy reports whether accountID owns the pet.
func (p Pet) OwnedBy(accountID string) bool {
	return p.AccountID == accountID
}

// VisibleTo reports whether the pet should appear in accountID's lists:
// deleted pets and pets adopted by somebody else are hidden.
func (p Pet) VisibleTo(accountID string) bool {
	if p.Deleted {
		return false
	}
	return !p.Adopted || p.AccountID == accountID
}

// PetPatch is a partial pet update. Nil fields are left untouched.
type PetPatch struct {
	Adopted   *bool
	AccountID *string
}
