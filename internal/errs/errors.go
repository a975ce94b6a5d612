package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrImmutable indicates an attempt to change immutable fields
	ErrImmutable = errors.New("immutable")
	// ErrInsufficientFunds is raised per plan item when the source account
	// cannot cover the planned amount; it never aborts a batch.
	ErrInsufficientFunds = errors.New("insufficient_funds")
	// ErrConsistency indicates a reverse/reapply could not complete
	// atomically. The whole write is aborted and prior state kept.
	ErrConsistency = errors.New("consistency")
)
