// Package detect decides which raw candidate records are genuinely new.
//
// Matching is by the stable natural key (source event id + bout ordinal),
// never by date: the source re-reports dates, and a checkpoint comparison on
// dates alone would re-ingest or silently drop records.
package detect

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/valetudo/internal/adapters/fetch"
	"github.com/okian/valetudo/internal/domain/model"
)

// ErrMalformedRecord marks a candidate that cannot form its natural key.
// Such records are dropped and counted, never fatal to the batch.
var ErrMalformedRecord = errors.New("malformed candidate record")

// KnownSet answers whether a contest key is already stored.
type KnownSet interface {
	HasContest(ctx context.Context, key model.ContestKey) (bool, error)
}

// Batch is the outcome of change detection: the genuinely new contests in
// processing order, the competitor profiles they reference, and the skip
// counters.
type Batch struct {
	New         []model.Contest
	Competitors map[string]model.Competitor
	Duplicates  int
	Malformed   int
}

// Detector filters candidate records against the store.
type Detector struct {
	known KnownSet
}

// New creates a Detector backed by the given known-contest lookup.
func New(known KnownSet) *Detector {
	return &Detector{known: known}
}

// Detect decodes and deduplicates candidates. Malformed records increment
// Batch.Malformed and are skipped; duplicates (already stored, or repeated
// within the batch) increment Batch.Duplicates. The surviving contests are
// returned sorted in the total processing order. Only lookup failures or
// context cancellation abort the batch.
func (d *Detector) Detect(ctx context.Context, candidates []fetch.Candidate) (Batch, error) {
	batch := Batch{Competitors: make(map[string]model.Competitor)}
	inBatch := make(map[model.ContestKey]struct{}, len(candidates))

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}

		contest, competitors, err := cand.Decode()
		if err != nil {
			batch.Malformed++
			continue
		}

		if _, dup := inBatch[contest.Key]; dup {
			batch.Duplicates++
			continue
		}
		inBatch[contest.Key] = struct{}{}

		stored, err := d.known.HasContest(ctx, contest.Key)
		if err != nil {
			return Batch{}, fmt.Errorf("lookup %s: %w", contest.Key, err)
		}
		if stored {
			batch.Duplicates++
			continue
		}

		batch.New = append(batch.New, contest)
		for _, comp := range competitors {
			// First appearance wins; profiles are slowly-changing and
			// the store upsert never overwrites ratings anyway.
			if _, ok := batch.Competitors[comp.ID]; !ok {
				batch.Competitors[comp.ID] = comp
			}
		}
	}

	sort.Slice(batch.New, func(i, j int) bool {
		return model.Less(batch.New[i], batch.New[j])
	})
	return batch, nil
}
