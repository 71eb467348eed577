// Package repository defines the durable contest/competitor store and its
// errors.
//
// Three logical tables back the engine: competitors, contests (with the
// rating snapshot taken at each contest) and a single-row checkpoint. A
// fourth, features, caches derived vectors — deterministically recomputable,
// so losing it is never data loss. Writers run inside a Batch so that an
// interrupted run rolls back to the last committed checkpoint; readers may
// query at any time.
package repository

import (
	"context"
	"iter"
	"time"

	"github.com/okian/valetudo/internal/domain/model"
)

// Lease is the advisory single-writer lock record.
type Lease struct {
	Owner      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Store provides keyed access to competitors, contests, features and the run
// checkpoint.
type Store interface {
	// UpsertCompetitor creates the competitor if absent and returns the
	// stored row. Profile attributes fill in when previously unknown; the
	// rating is set only on first insert and never overwritten here — the
	// rating engine is the only rating mutator, via SetRating.
	UpsertCompetitor(ctx context.Context, c model.Competitor) (model.Competitor, error)

	// Competitor returns a competitor by id, or ErrNotFound.
	Competitor(ctx context.Context, id string) (model.Competitor, error)

	// SetRating stores a competitor's current rating.
	SetRating(ctx context.Context, id string, rating float64) error

	// ResetRatings sets every competitor back to the initial rating, for
	// full-rebuild replays.
	ResetRatings(ctx context.Context, initial float64) error

	// TopRatings returns the n highest-rated competitors, best first.
	TopRatings(ctx context.Context, n int) ([]model.Competitor, error)

	// CountCompetitors returns the number of stored competitors.
	CountCompetitors(ctx context.Context) (int64, error)

	// AppendContest stores a contest together with its rating snapshot.
	// Fails with ErrDuplicateContest when the key exists, and with
	// ErrOutOfOrder when the contest does not sort after the current
	// checkpoint unless backfill is set (full-rebuild ingestion).
	AppendContest(ctx context.Context, c model.Contest, snap model.RatingSnapshot, backfill bool) error

	// HasContest reports whether the natural key is already stored.
	HasContest(ctx context.Context, key model.ContestKey) (bool, error)

	// Contest returns a stored contest and its rating snapshot.
	Contest(ctx context.Context, key model.ContestKey) (model.Contest, model.RatingSnapshot, error)

	// SaveRatingSnapshot overwrites the derived rating snapshot of a stored
	// contest. The contest's input fields stay immutable; snapshots are
	// replay output and get rewritten during a full rebuild.
	SaveRatingSnapshot(ctx context.Context, key model.ContestKey, snap model.RatingSnapshot) error

	// ContestsSince yields stored contests strictly after the checkpoint in
	// the total processing order. The sequence is lazy and restartable:
	// ranging again re-runs the query from the same point.
	ContestsSince(ctx context.Context, cp model.Checkpoint) iter.Seq2[model.Contest, error]

	// CountContests returns the number of stored contests.
	CountContests(ctx context.Context) (int64, error)

	// PriorBouts returns every stored bout of the competitor that sorts
	// strictly before the given contest, oldest first, from the
	// competitor's own perspective.
	PriorBouts(ctx context.Context, competitorID string, before model.Contest) ([]model.Bout, error)

	// SaveFeatures upserts the derived feature vector for a contest.
	SaveFeatures(ctx context.Context, fv model.FeatureVector) error

	// Features returns the feature vector of a contest, or ErrNotFound.
	Features(ctx context.Context, key model.ContestKey) (model.FeatureVector, error)

	// FeatureTable returns all feature vectors in processing order, for the
	// trainer export.
	FeatureTable(ctx context.Context) ([]model.FeatureVector, error)

	// LoadCheckpoint reads the run checkpoint. A missing row is the zero
	// checkpoint; an unreadable row is ErrCorruptCheckpoint.
	LoadCheckpoint(ctx context.Context) (model.Checkpoint, error)

	// SaveCheckpoint atomically replaces the checkpoint.
	SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error

	// LastTrainedCount returns the total-contest count recorded at the last
	// training run, zero if never trained.
	LastTrainedCount(ctx context.Context) (int64, error)

	// MarkTrained records that training ran against the given contest count.
	MarkTrained(ctx context.Context, contests int64) error
}

// Batch is a transactional view of the Store. All writes inside a batch
// become visible atomically on Commit; Rollback (or a dropped batch) leaves
// the store exactly as it was.
type Batch interface {
	Store

	Commit() error
	Rollback() error
}

// BatchStore is a Store that can open write batches and arbitrate the
// single-writer lease.
type BatchStore interface {
	Store

	// Begin opens a write batch. At most one batch should be live at a
	// time; the lease, not the batch, is what serializes runs.
	Begin(ctx context.Context) (Batch, error)

	// AcquireLease claims the single-writer lease for owner until ttl
	// elapses. Fails with ErrLeaseHeld while another owner's unexpired
	// lease exists; an expired lease is reclaimed (crash recovery).
	AcquireLease(ctx context.Context, owner string, ttl time.Duration) (Lease, error)

	// ReleaseLease releases the lease if owner still holds it. Releasing a
	// lease that expired or was taken over is not an error.
	ReleaseLease(ctx context.Context, owner string) error

	// CurrentLease returns the active lease, or ErrNotFound when the lease
	// is free or expired.
	CurrentLease(ctx context.Context) (Lease, error)

	Close() error
}
