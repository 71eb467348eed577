package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrNotFound marks a lookup for an unknown competitor, contest or
	// feature row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateContest marks an append whose natural key already exists.
	// Re-ingestion skips these silently; the key is what makes runs
	// idempotent.
	ErrDuplicateContest = errors.New("duplicate contest")

	// ErrOutOfOrder marks an append that sorts at or before the current
	// checkpoint without being part of an explicit backfill batch. Accepting
	// it would silently corrupt every later rating.
	ErrOutOfOrder = errors.New("contest out of order")

	// ErrCorruptCheckpoint marks an unreadable checkpoint row. Running with
	// a guessed starting point is worse than refusing to run.
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

	// ErrLeaseHeld marks a lease acquisition attempt while another owner
	// holds an unexpired lease.
	ErrLeaseHeld = errors.New("lease held by another owner")
)
