package contracts

import "errors"

// Sentinel errors shared across the storage boundary.
// Repositories map driver-level failures (pgx.ErrNoRows, unique-violation
// SQLSTATEs, trigger raises) onto these; callers test with errors.Is.
var (
	// ErrNotFound indicates no qualifying row for a current/as-of read.
	// A normal outcome, not an exception path.
	ErrNotFound = errors.New("not found")

	// ErrOutOfOrderRevision indicates an append whose release_time is earlier
	// than the latest stored revision for the same (series, observation_date).
	// Knowledge cannot regress in time.
	ErrOutOfOrderRevision = errors.New("out-of-order revision: release time regression")

	// ErrRevisionNotAllowed indicates an append that would create revision > 0
	// on a series registered as non-revisable.
	ErrRevisionNotAllowed = errors.New("revision not allowed: series is not revisable")

	// ErrImmutabilityViolation indicates a mutation attempt on a locked
	// decision journal entry.
	ErrImmutabilityViolation = errors.New("immutability violation: journal entry is locked")

	// ErrDuplicateNaturalKey indicates a natural-key uniqueness violation.
	ErrDuplicateNaturalKey = errors.New("duplicate natural key")

	// ErrInvalidTransition indicates an illegal proposal status transition.
	ErrInvalidTransition = errors.New("invalid proposal transition")
)
