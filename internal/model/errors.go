package model

import "errors"

// Taxonomy from the error-handling design: SourceError, ValidationError,
// LedgerError, RecorderError, LifecycleError. Components define their own
// sentinels and wrap into these via errors.Is/As-friendly %w chains.
var (
	ErrSource     = errors.New("source error")
	ErrValidation = errors.New("validation error")
	ErrLedger     = errors.New("ledger error")
	ErrRecorder   = errors.New("recorder error")
	ErrLifecycle  = errors.New("lifecycle error")

	// ErrInvariantViolation is raised when a post-condition check detects a
	// bug: negative balance, two active positions, etc. Fatal for the
	// engine until Reset() is called.
	ErrInvariantViolation = errors.New("invariant violation")
)
