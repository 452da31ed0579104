package engine

import (
	"errors"
	"time"
)

// Kind classifies a domain error for transport mapping.
type Kind int

const (
	// KindValidation: rejected before any mutation.
	KindValidation Kind = iota + 1
	// KindConflict: precondition on shared state failed.
	KindConflict
	// KindContention: expected under load; comes with retry guidance.
	KindContention
	// KindCollaborator: an external dependency failed.
	KindCollaborator
)

type Error struct {
	Kind       Kind
	Msg        string
	RetryAfter time.Duration
	wrapped    error
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.wrapped }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func Contention(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindContention, Msg: msg, RetryAfter: retryAfter}
}

func Collaborator(msg string, err error) *Error {
	return &Error{Kind: KindCollaborator, Msg: msg, wrapped: err}
}

// AsDomain extracts the domain error from a possibly-wrapped chain.
func AsDomain(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Shared guarded-update failures.
var (
	ErrInsufficientFunds     = Conflict("insufficient funds")
	ErrInsufficientStock     = Conflict("insufficient stock")
	ErrInsufficientInventory = Conflict("insufficient inventory")
)
