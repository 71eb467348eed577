package repository

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/okian/valetudo/internal/domain/model"
)

// storedContest pairs a contest with its rating snapshot.
type storedContest struct {
	contest model.Contest
	snap    model.RatingSnapshot
}

// memState is a complete copy of the store's data. Batches work on a deep
// clone and swap it in on commit, which gives the same atomicity the SQLite
// transaction does.
type memState struct {
	competitors map[string]model.Competitor
	contests    map[model.ContestKey]storedContest
	features    map[model.ContestKey]model.FeatureVector
	checkpoint  model.Checkpoint
	trained     int64
}

func newMemState() *memState {
	return &memState{
		competitors: make(map[string]model.Competitor),
		contests:    make(map[model.ContestKey]storedContest),
		features:    make(map[model.ContestKey]model.FeatureVector),
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		competitors: make(map[string]model.Competitor, len(st.competitors)),
		contests:    make(map[model.ContestKey]storedContest, len(st.contests)),
		features:    make(map[model.ContestKey]model.FeatureVector, len(st.features)),
		checkpoint:  st.checkpoint,
		trained:     st.trained,
	}
	for k, v := range st.competitors {
		c.competitors[k] = v
	}
	for k, v := range st.contests {
		c.contests[k] = v
	}
	for k, v := range st.features {
		c.features[k] = v
	}
	return c
}

// ordered returns all stored contests in processing order.
func (st *memState) ordered() []storedContest {
	out := make([]storedContest, 0, len(st.contests))
	for _, sc := range st.contests {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return model.Less(out[i].contest, out[j].contest) })
	return out
}

func (st *memState) upsertCompetitor(c model.Competitor) model.Competitor {
	cur, ok := st.competitors[c.ID]
	if !ok {
		st.competitors[c.ID] = c
		return c
	}
	cur.Name = c.Name
	if cur.Nickname == "" {
		cur.Nickname = c.Nickname
	}
	if cur.HeightCM == 0 {
		cur.HeightCM = c.HeightCM
	}
	if cur.ReachIn == 0 {
		cur.ReachIn = c.ReachIn
	}
	if cur.Stance == "" {
		cur.Stance = c.Stance
	}
	if cur.DOB.IsZero() {
		cur.DOB = c.DOB
	}
	st.competitors[c.ID] = cur
	return cur
}

func (st *memState) appendContest(c model.Contest, snap model.RatingSnapshot, backfill bool) error {
	if _, ok := st.contests[c.Key]; ok {
		return fmt.Errorf("contest %s: %w", c.Key, ErrDuplicateContest)
	}
	if !backfill && !c.After(st.checkpoint) {
		return fmt.Errorf("contest %s: %w", c.Key, ErrOutOfOrder)
	}
	st.contests[c.Key] = storedContest{contest: c, snap: snap}
	return nil
}

func (st *memState) priorBouts(competitorID string, before model.Contest) []model.Bout {
	var out []model.Bout
	for _, sc := range st.ordered() {
		c := sc.contest
		if !model.Less(c, before) {
			break
		}
		if c.RedID != competitorID && c.BlueID != competitorID {
			continue
		}
		out = append(out, boutFor(competitorID, c, sc.snap))
	}
	return out
}

// Memory is an in-memory BatchStore used by tests. Behavior mirrors the
// SQLite store, including the advisory lease.
type Memory struct {
	mu    sync.Mutex
	state *memState
	lease *Lease
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

func (m *Memory) UpsertCompetitor(_ context.Context, c model.Competitor) (model.Competitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.upsertCompetitor(c), nil
}

func (m *Memory) Competitor(_ context.Context, id string) (model.Competitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.competitors[id]
	if !ok {
		return model.Competitor{}, fmt.Errorf("competitor %q: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *Memory) SetRating(_ context.Context, id string, rating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.competitors[id]
	if !ok {
		return fmt.Errorf("competitor %q: %w", id, ErrNotFound)
	}
	c.Rating = rating
	m.state.competitors[id] = c
	return nil
}

func (m *Memory) ResetRatings(_ context.Context, initial float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.state.competitors {
		c.Rating = initial
		m.state.competitors[id] = c
	}
	return nil
}

func (m *Memory) TopRatings(_ context.Context, n int) ([]model.Competitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Competitor, 0, len(m.state.competitors))
	for _, c := range m.state.competitors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) CountCompetitors(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.state.competitors)), nil
}

func (m *Memory) AppendContest(_ context.Context, c model.Contest, snap model.RatingSnapshot, backfill bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.appendContest(c, snap, backfill)
}

func (m *Memory) HasContest(_ context.Context, key model.ContestKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state.contests[key]
	return ok, nil
}

func (m *Memory) Contest(_ context.Context, key model.ContestKey) (model.Contest, model.RatingSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.state.contests[key]
	if !ok {
		return model.Contest{}, model.RatingSnapshot{}, fmt.Errorf("contest %s: %w", key, ErrNotFound)
	}
	return sc.contest, sc.snap, nil
}

func (m *Memory) SaveRatingSnapshot(_ context.Context, key model.ContestKey, snap model.RatingSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.state.contests[key]
	if !ok {
		return fmt.Errorf("contest %s: %w", key, ErrNotFound)
	}
	sc.snap = snap
	m.state.contests[key] = sc
	return nil
}

func (m *Memory) ContestsSince(ctx context.Context, cp model.Checkpoint) iter.Seq2[model.Contest, error] {
	return func(yield func(model.Contest, error) bool) {
		m.mu.Lock()
		ordered := m.state.ordered()
		m.mu.Unlock()
		for _, sc := range ordered {
			if err := ctx.Err(); err != nil {
				yield(model.Contest{}, err)
				return
			}
			if !sc.contest.After(cp) {
				continue
			}
			if !yield(sc.contest, nil) {
				return
			}
		}
	}
}

func (m *Memory) CountContests(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.state.contests)), nil
}

func (m *Memory) PriorBouts(_ context.Context, competitorID string, before model.Contest) ([]model.Bout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.priorBouts(competitorID, before), nil
}

func (m *Memory) SaveFeatures(_ context.Context, fv model.FeatureVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.features[fv.ContestKey] = fv
	return nil
}

func (m *Memory) Features(_ context.Context, key model.ContestKey) (model.FeatureVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fv, ok := m.state.features[key]
	if !ok {
		return model.FeatureVector{}, fmt.Errorf("features of %s: %w", key, ErrNotFound)
	}
	return fv, nil
}

func (m *Memory) FeatureTable(_ context.Context) ([]model.FeatureVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.FeatureVector
	for _, sc := range m.state.ordered() {
		if fv, ok := m.state.features[sc.contest.Key]; ok {
			out = append(out, fv)
		}
	}
	return out, nil
}

func (m *Memory) LoadCheckpoint(_ context.Context) (model.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.checkpoint, nil
}

func (m *Memory) SaveCheckpoint(_ context.Context, cp model.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.checkpoint = cp
	return nil
}

func (m *Memory) LastTrainedCount(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.trained, nil
}

func (m *Memory) MarkTrained(_ context.Context, contests int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.trained = contests
	return nil
}

// Begin opens a write batch over a deep clone of the current state.
func (m *Memory) Begin(_ context.Context) (Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memBatch{parent: m, state: m.state.clone()}, nil
}

func (m *Memory) AcquireLease(_ context.Context, owner string, ttl time.Duration) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if m.lease != nil && m.lease.Owner != owner && m.lease.ExpiresAt.After(now) {
		return Lease{}, fmt.Errorf("owner %s: %w", m.lease.Owner, ErrLeaseHeld)
	}
	lease := Lease{Owner: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)}
	m.lease = &lease
	return lease, nil
}

func (m *Memory) ReleaseLease(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lease != nil && m.lease.Owner == owner {
		m.lease = nil
	}
	return nil
}

func (m *Memory) CurrentLease(_ context.Context) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lease == nil || !m.lease.ExpiresAt.After(time.Now().UTC()) {
		return Lease{}, fmt.Errorf("lease: %w", ErrNotFound)
	}
	return *m.lease, nil
}

func (m *Memory) Close() error { return nil }

// memBatch applies writes to its private clone; Commit swaps the clone in.
type memBatch struct {
	parent    *Memory
	state     *memState
	done      bool
	committed bool
}

func (b *memBatch) Commit() error {
	b.parent.mu.Lock()
	defer b.parent.mu.Unlock()
	if b.done {
		return nil
	}
	b.parent.state = b.state
	b.done = true
	b.committed = true
	return nil
}

func (b *memBatch) Rollback() error {
	b.done = true
	return nil
}

func (b *memBatch) UpsertCompetitor(_ context.Context, c model.Competitor) (model.Competitor, error) {
	return b.state.upsertCompetitor(c), nil
}

func (b *memBatch) Competitor(_ context.Context, id string) (model.Competitor, error) {
	c, ok := b.state.competitors[id]
	if !ok {
		return model.Competitor{}, fmt.Errorf("competitor %q: %w", id, ErrNotFound)
	}
	return c, nil
}

func (b *memBatch) SetRating(_ context.Context, id string, rating float64) error {
	c, ok := b.state.competitors[id]
	if !ok {
		return fmt.Errorf("competitor %q: %w", id, ErrNotFound)
	}
	c.Rating = rating
	b.state.competitors[id] = c
	return nil
}

func (b *memBatch) ResetRatings(_ context.Context, initial float64) error {
	for id, c := range b.state.competitors {
		c.Rating = initial
		b.state.competitors[id] = c
	}
	return nil
}

func (b *memBatch) TopRatings(ctx context.Context, n int) ([]model.Competitor, error) {
	view := &Memory{state: b.state}
	return view.TopRatings(ctx, n)
}

func (b *memBatch) CountCompetitors(_ context.Context) (int64, error) {
	return int64(len(b.state.competitors)), nil
}

func (b *memBatch) AppendContest(_ context.Context, c model.Contest, snap model.RatingSnapshot, backfill bool) error {
	return b.state.appendContest(c, snap, backfill)
}

func (b *memBatch) HasContest(_ context.Context, key model.ContestKey) (bool, error) {
	_, ok := b.state.contests[key]
	return ok, nil
}

func (b *memBatch) Contest(_ context.Context, key model.ContestKey) (model.Contest, model.RatingSnapshot, error) {
	sc, ok := b.state.contests[key]
	if !ok {
		return model.Contest{}, model.RatingSnapshot{}, fmt.Errorf("contest %s: %w", key, ErrNotFound)
	}
	return sc.contest, sc.snap, nil
}

func (b *memBatch) SaveRatingSnapshot(_ context.Context, key model.ContestKey, snap model.RatingSnapshot) error {
	sc, ok := b.state.contests[key]
	if !ok {
		return fmt.Errorf("contest %s: %w", key, ErrNotFound)
	}
	sc.snap = snap
	b.state.contests[key] = sc
	return nil
}

func (b *memBatch) ContestsSince(ctx context.Context, cp model.Checkpoint) iter.Seq2[model.Contest, error] {
	return func(yield func(model.Contest, error) bool) {
		for _, sc := range b.state.ordered() {
			if err := ctx.Err(); err != nil {
				yield(model.Contest{}, err)
				return
			}
			if !sc.contest.After(cp) {
				continue
			}
			if !yield(sc.contest, nil) {
				return
			}
		}
	}
}

func (b *memBatch) CountContests(_ context.Context) (int64, error) {
	return int64(len(b.state.contests)), nil
}

func (b *memBatch) PriorBouts(_ context.Context, competitorID string, before model.Contest) ([]model.Bout, error) {
	return b.state.priorBouts(competitorID, before), nil
}

func (b *memBatch) SaveFeatures(_ context.Context, fv model.FeatureVector) error {
	b.state.features[fv.ContestKey] = fv
	return nil
}

func (b *memBatch) Features(_ context.Context, key model.ContestKey) (model.FeatureVector, error) {
	fv, ok := b.state.features[key]
	if !ok {
		return model.FeatureVector{}, fmt.Errorf("features of %s: %w", key, ErrNotFound)
	}
	return fv, nil
}

func (b *memBatch) FeatureTable(_ context.Context) ([]model.FeatureVector, error) {
	var out []model.FeatureVector
	for _, sc := range b.state.ordered() {
		if fv, ok := b.state.features[sc.contest.Key]; ok {
			out = append(out, fv)
		}
	}
	return out, nil
}

func (b *memBatch) LoadCheckpoint(_ context.Context) (model.Checkpoint, error) {
	return b.state.checkpoint, nil
}

func (b *memBatch) SaveCheckpoint(_ context.Context, cp model.Checkpoint) error {
	b.state.checkpoint = cp
	return nil
}

func (b *memBatch) LastTrainedCount(_ context.Context) (int64, error) {
	return b.state.trained, nil
}

func (b *memBatch) MarkTrained(_ context.Context, contests int64) error {
	b.state.trained = contests
	return nil
}
