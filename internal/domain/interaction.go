package domain

import "time"

// ─── Interaction Types ──────────────────────────────────────────────────────
// One record per (account, pet). Created on first interaction, mutated in
// place afterwards, never deleted: undo sets the status back to viewed.

// InteractionStatus is an account's engagement with a pet.
type InteractionStatus string

const (
	InteractionLiked    InteractionStatus = "liked"
	InteractionDisliked InteractionStatus = "disliked"
	InteractionViewed   InteractionStatus = "viewed"
)

// ParseInteractionStatus validates a client-supplied status.
func ParseInteractionStatus(s string) (InteractionStatus, error) {
	switch st := InteractionStatus(s); st {
	case InteractionLiked, InteractionDisliked, InteractionViewed:
		return st, nil
	}
	return "", BadRequest("unknown interaction status %q", s)
}

// Interaction is the stored (account, pet) engagement row.
type Interaction struct {
	AccountID string            `json:"account"`
	PetID     string            `json:"pet"`
	Status    InteractionStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// InteractionWithPet is an interaction resolved against its pet.
type InteractionWithPet struct {
	Interaction
	Pet Pet `json:"petDetails"`
}
