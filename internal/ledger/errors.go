package ledger

import "errors"

var (
	// ErrValidation is returned when a submitted transaction is malformed,
	// e.g. a non-positive amount. Nothing is persisted.
	ErrValidation = errors.New("invalid transaction")

	// ErrInvalidTransition is returned when approving or rejecting a
	// transaction that is no longer pending.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotFound is returned when the referenced transaction does not exist.
	ErrNotFound = errors.New("transaction not found")
)
