package domain

import (
	"errors"
	"fmt"
)

// ─── Error Taxonomy ─────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency. Every error that
// leaves an app service carries one of these kinds so the API layer can map
// it to a status without string matching.

// Kind classifies an error for the boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthorized
)

// String returns the lowercase name used in API error envelopes.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a classified domain error. Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for err. Causes of internal
// errors are never exposed.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// BadRequest returns a KindBadRequest error.
func BadRequest(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Internal wraps cause under a stable, component-specific message.
func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// AsInternal passes classified errors through unchanged and wraps anything
// else as KindInternal under msg. Nil stays nil.
func AsInternal(msg string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return Internal(msg, err)
}

// ─── Sentinel Errors ────────────────────────────────────────────────────────

var (
	// Identity errors
	ErrAccountNotFound = &Error{Kind: KindNotFound, Message: "account not found"}
	ErrPetNotFound     = &Error{Kind: KindNotFound, Message: "pet not found"}

	// Ledger errors
	ErrHistoryNotFound     = &Error{Kind: KindNotFound, Message: "history record not found"}
	ErrInvalidTransition   = &Error{Kind: KindConflict, Message: "invalid status transition"}
	ErrAlreadyProcessed    = &Error{Kind: KindConflict, Message: "already processed"}
	ErrIntentExpired       = &Error{Kind: KindConflict, Message: "payment intent expired"}
	ErrStatusMismatch      = &Error{Kind: KindConflict, Message: "callback status does not match pending record"}
	ErrReferenceMismatch   = &Error{Kind: KindConflict, Message: "callback reference does not match record"}
	ErrDuplicateReference  = &Error{Kind: KindConflict, Message: "external reference already recorded"}
	ErrAdoptionCompetition = &Error{Kind: KindConflict, Message: "pet already has a completed adoption"}

	// Adoption errors
	ErrPetAdopted        = &Error{Kind: KindConflict, Message: "pet already adopted"}
	ErrSelfAdoption      = &Error{Kind: KindConflict, Message: "cannot adopt your own pet"}
	ErrAlreadyRequested  = &Error{Kind: KindConflict, Message: "adoption already requested"}
	ErrAdoptionProcessed = &Error{Kind: KindConflict, Message: "adoption request already processed"}
	ErrNotPetOwner       = &Error{Kind: KindForbidden, Message: "only the pet owner can decide adoption requests"}

	// Interaction errors
	ErrSelfInteraction = &Error{Kind: KindConflict, Message: "cannot interact with your own pet"}

	// Payment errors
	ErrSelfSponsorship = &Error{Kind: KindConflict, Message: "cannot sponsor yourself"}
	ErrInvalidAmount   = &Error{Kind: KindBadRequest, Message: "amount must be a positive decimal with at most two decimal places"}

	// Webhook errors
	ErrInvalidSignature = &Error{Kind: KindUnauthorized, Message: "invalid webhook signature"}

	// Achievement errors
	ErrAchievementNotFound = &Error{Kind: KindNotFound, Message: "achievement not found"}
)
