package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/valetudo/internal/domain/model"
)

//go:embed schema.sql
var schema string

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same statement code serves both the live store and an open batch.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Option applies a configuration option to the SQLite store.
type Option func(*SQLite)

// WithBusyTimeout sets how long a connection waits on a locked database
// before giving up.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLite) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// SQLite is the durable BatchStore. WAL mode keeps readers unblocked while a
// write batch is open; the advisory lease, not SQLite locking, is what keeps
// runs serialized.
type SQLite struct {
	db          *sql.DB
	q           querier
	busyTimeout time.Duration
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string, opts ...Option) (*SQLite, error) {
	s := &SQLite{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s.db = db
	s.q = db
	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Begin opens a write batch backed by a single transaction.
func (s *SQLite) Begin(ctx context.Context) (Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &sqliteBatch{
		SQLite: &SQLite{db: s.db, q: tx, busyTimeout: s.busyTimeout},
		tx:     tx,
	}, nil
}

type sqliteBatch struct {
	*SQLite
	tx *sql.Tx
}

func (b *sqliteBatch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch. Rolling back an already committed batch is a
// no-op so callers can defer it unconditionally.
func (b *sqliteBatch) Rollback() error {
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback batch: %w", err)
	}
	return nil
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// UpsertCompetitor creates the competitor if absent and fills in profile
// attributes that were previously unknown. The stored rating is never touched
// on conflict.
func (s *SQLite) UpsertCompetitor(ctx context.Context, c model.Competitor) (model.Competitor, error) {
	const q = `INSERT INTO competitors (id, name, nickname, height_cm, reach_in, stance, dob, rating)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name      = excluded.name,
    nickname  = CASE WHEN competitors.nickname = ''  THEN excluded.nickname  ELSE competitors.nickname  END,
    height_cm = CASE WHEN competitors.height_cm = 0  THEN excluded.height_cm ELSE competitors.height_cm END,
    reach_in  = CASE WHEN competitors.reach_in = 0   THEN excluded.reach_in  ELSE competitors.reach_in  END,
    stance    = CASE WHEN competitors.stance = ''    THEN excluded.stance    ELSE competitors.stance    END,
    dob       = CASE WHEN competitors.dob = ''       THEN excluded.dob       ELSE competitors.dob       END`
	if _, err := s.q.ExecContext(ctx, q,
		c.ID, c.Name, c.Nickname, c.HeightCM, c.ReachIn, c.Stance, encodeTime(c.DOB), c.Rating,
	); err != nil {
		return model.Competitor{}, fmt.Errorf("upsert competitor %q: %w", c.ID, err)
	}
	return s.Competitor(ctx, c.ID)
}

// Competitor returns a competitor by id.
func (s *SQLite) Competitor(ctx context.Context, id string) (model.Competitor, error) {
	const q = `SELECT id, name, nickname, height_cm, reach_in, stance, dob, rating
FROM competitors WHERE id = ?`
	var (
		c   model.Competitor
		dob string
	)
	err := s.q.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.Name, &c.Nickname, &c.HeightCM, &c.ReachIn, &c.Stance, &dob, &c.Rating,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Competitor{}, fmt.Errorf("competitor %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Competitor{}, fmt.Errorf("load competitor %q: %w", id, err)
	}
	if c.DOB, err = decodeTime(dob); err != nil {
		return model.Competitor{}, fmt.Errorf("competitor %q dob: %w", id, err)
	}
	return c, nil
}

// SetRating stores a competitor's current rating.
func (s *SQLite) SetRating(ctx context.Context, id string, rating float64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE competitors SET rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("set rating of %q: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("competitor %q: %w", id, ErrNotFound)
	}
	return nil
}

// ResetRatings sets every competitor back to the initial rating.
func (s *SQLite) ResetRatings(ctx context.Context, initial float64) error {
	if _, err := s.q.ExecContext(ctx, `UPDATE competitors SET rating = ?`, initial); err != nil {
		return fmt.Errorf("reset ratings: %w", err)
	}
	return nil
}

// TopRatings returns the n highest-rated competitors, best first. Ties break
// on id so the order is stable.
func (s *SQLite) TopRatings(ctx context.Context, n int) ([]model.Competitor, error) {
	const q = `SELECT id, name, nickname, height_cm, reach_in, stance, dob, rating
FROM competitors ORDER BY rating DESC, id ASC LIMIT ?`
	rows, err := s.q.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("top ratings: %w", err)
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		var (
			c   model.Competitor
			dob string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Nickname, &c.HeightCM, &c.ReachIn, &c.Stance, &dob, &c.Rating); err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		if c.DOB, err = decodeTime(dob); err != nil {
			return nil, fmt.Errorf("competitor %q dob: %w", c.ID, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top ratings: %w", err)
	}
	return out, nil
}

// CountCompetitors returns the number of stored competitors.
func (s *SQLite) CountCompetitors(ctx context.Context) (int64, error) {
	var n int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM competitors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count competitors: %w", err)
	}
	return n, nil
}

const contestColumns = `key, event_id, event_name, bout_ordinal, date, red_id, blue_id,
weight_class, outcome, method, round, clock_seconds, red_stats, blue_stats,
red_before, blue_before, red_after, blue_after`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContest(sc rowScanner) (model.Contest, model.RatingSnapshot, error) {
	var (
		c         model.Contest
		snap      model.RatingSnapshot
		date      int64
		clockSecs int64
		redStats  []byte
		blueStats []byte
	)
	err := sc.Scan(
		&c.Key, &c.EventID, &c.EventName, &c.BoutOrdinal, &date, &c.RedID, &c.BlueID,
		&c.WeightClass, &c.Outcome, &c.Method, &c.Round, &clockSecs, &redStats, &blueStats,
		&snap.RedBefore, &snap.BlueBefore, &snap.RedAfter, &snap.BlueAfter,
	)
	if err != nil {
		return model.Contest{}, model.RatingSnapshot{}, err
	}
	c.Date = time.Unix(date, 0).UTC()
	c.ClockTime = time.Duration(clockSecs) * time.Second
	if err := json.Unmarshal(redStats, &c.RedStats); err != nil {
		return model.Contest{}, model.RatingSnapshot{}, fmt.Errorf("decode red stats of %s: %w", c.Key, err)
	}
	if err := json.Unmarshal(blueStats, &c.BlueStats); err != nil {
		return model.Contest{}, model.RatingSnapshot{}, fmt.Errorf("decode blue stats of %s: %w", c.Key, err)
	}
	return c, snap, nil
}

// AppendContest stores a contest together with its rating snapshot. A key
// collision is ErrDuplicateContest; a contest at or before the checkpoint is
// ErrOutOfOrder unless backfill is set.
func (s *SQLite) AppendContest(ctx context.Context, c model.Contest, snap model.RatingSnapshot, backfill bool) error {
	exists, err := s.HasContest(ctx, c.Key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("contest %s: %w", c.Key, ErrDuplicateContest)
	}
	if !backfill {
		cp, err := s.LoadCheckpoint(ctx)
		if err != nil {
			return err
		}
		if !c.After(cp) {
			return fmt.Errorf("contest %s at %s: %w", c.Key, c.Date.Format(time.DateOnly), ErrOutOfOrder)
		}
	}

	redStats, err := json.Marshal(c.RedStats)
	if err != nil {
		return fmt.Errorf("encode red stats of %s: %w", c.Key, err)
	}
	blueStats, err := json.Marshal(c.BlueStats)
	if err != nil {
		return fmt.Errorf("encode blue stats of %s: %w", c.Key, err)
	}

	const q = `INSERT INTO contests (` + contestColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.q.ExecContext(ctx, q,
		c.Key, c.EventID, c.EventName, c.BoutOrdinal, c.Date.UTC().Unix(), c.RedID, c.BlueID,
		c.WeightClass, c.Outcome, c.Method, c.Round, int64(c.ClockTime/time.Second), redStats, blueStats,
		snap.RedBefore, snap.BlueBefore, snap.RedAfter, snap.BlueAfter,
	); err != nil {
		return fmt.Errorf("append contest %s: %w", c.Key, err)
	}
	return nil
}

// HasContest reports whether the natural key is already stored.
func (s *SQLite) HasContest(ctx context.Context, key model.ContestKey) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM contests WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup contest %s: %w", key, err)
	}
	return true, nil
}

// Contest returns a stored contest and its rating snapshot.
func (s *SQLite) Contest(ctx context.Context, key model.ContestKey) (model.Contest, model.RatingSnapshot, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE key = ?`, key)
	c, snap, err := scanContest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contest{}, model.RatingSnapshot{}, fmt.Errorf("contest %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return model.Contest{}, model.RatingSnapshot{}, fmt.Errorf("load contest %s: %w", key, err)
	}
	return c, snap, nil
}

// SaveRatingSnapshot overwrites the derived rating snapshot of a stored
// contest.
func (s *SQLite) SaveRatingSnapshot(ctx context.Context, key model.ContestKey, snap model.RatingSnapshot) error {
	const q = `UPDATE contests SET red_before = ?, blue_before = ?, red_after = ?, blue_after = ? WHERE key = ?`
	res, err := s.q.ExecContext(ctx, q, snap.RedBefore, snap.BlueBefore, snap.RedAfter, snap.BlueAfter, key)
	if err != nil {
		return fmt.Errorf("save snapshot of %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("contest %s: %w", key, ErrNotFound)
	}
	return nil
}

// ContestsSince yields stored contests strictly after the checkpoint in
// processing order. Ranging over the sequence again re-runs the query.
func (s *SQLite) ContestsSince(ctx context.Context, cp model.Checkpoint) iter.Seq2[model.Contest, error] {
	return func(yield func(model.Contest, error) bool) {
		q := `SELECT ` + contestColumns + ` FROM contests`
		var args []any
		if !cp.IsZero() {
			q += ` WHERE date > ?
   OR (date = ? AND event_id > ?)
   OR (date = ? AND event_id = ? AND bout_ordinal > ?)`
			d := cp.Date.UTC().Unix()
			args = []any{d, d, cp.EventID, d, cp.EventID, cp.BoutOrdinal}
		}
		q += ` ORDER BY date, event_id, bout_ordinal`

		rows, err := s.q.QueryContext(ctx, q, args...)
		if err != nil {
			yield(model.Contest{}, fmt.Errorf("contests since checkpoint: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			c, _, err := scanContest(rows)
			if err != nil {
				yield(model.Contest{}, fmt.Errorf("scan contest: %w", err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Contest{}, fmt.Errorf("contests since checkpoint: %w", err))
		}
	}
}

// CountContests returns the number of stored contests.
func (s *SQLite) CountContests(ctx context.Context) (int64, error) {
	var n int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM contests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contests: %w", err)
	}
	return n, nil
}

// PriorBouts returns every stored bout of the competitor that sorts strictly
// before the given contest, oldest first, from the competitor's perspective.
func (s *SQLite) PriorBouts(ctx context.Context, competitorID string, before model.Contest) ([]model.Bout, error) {
	q := `SELECT ` + contestColumns + ` FROM contests
WHERE (red_id = ? OR blue_id = ?)
  AND (date < ?
   OR (date = ? AND event_id < ?)
   OR (date = ? AND event_id = ? AND bout_ordinal < ?))
ORDER BY date, event_id, bout_ordinal`
	d := before.Date.UTC().Unix()
	rows, err := s.q.QueryContext(ctx, q,
		competitorID, competitorID,
		d, d, before.EventID, d, before.EventID, before.BoutOrdinal,
	)
	if err != nil {
		return nil, fmt.Errorf("prior bouts of %q: %w", competitorID, err)
	}
	defer rows.Close()

	var out []model.Bout
	for rows.Next() {
		c, snap, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contest: %w", err)
		}
		out = append(out, boutFor(competitorID, c, snap))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prior bouts of %q: %w", competitorID, err)
	}
	return out, nil
}

// boutFor projects a stored contest into one competitor's perspective.
func boutFor(id string, c model.Contest, snap model.RatingSnapshot) model.Bout {
	b := model.Bout{
		Key:       c.Key,
		Date:      c.Date,
		Won:       c.WinnerID() == id,
		Draw:      c.Outcome == model.OutcomeDraw,
		NoContest: c.Outcome == model.OutcomeNoContest,
		Method:    c.Method,
		Round:     c.Round,
		Duration:  c.Duration(),
	}
	if c.RedID == id {
		b.OpponentID = c.BlueID
		b.OpponentRatingBefore = snap.BlueBefore
		b.Stats = c.RedStats
		b.OpponentStats = c.BlueStats
	} else {
		b.OpponentID = c.RedID
		b.OpponentRatingBefore = snap.RedBefore
		b.Stats = c.BlueStats
		b.OpponentStats = c.RedStats
	}
	return b
}

// SaveFeatures upserts the derived feature vector for a contest.
func (s *SQLite) SaveFeatures(ctx context.Context, fv model.FeatureVector) error {
	vector, err := json.Marshal(fv)
	if err != nil {
		return fmt.Errorf("encode features of %s: %w", fv.ContestKey, err)
	}
	const q = `INSERT INTO features (contest_key, label, vector) VALUES (?, ?, ?)
ON CONFLICT(contest_key) DO UPDATE SET label = excluded.label, vector = excluded.vector`
	if _, err := s.q.ExecContext(ctx, q, fv.ContestKey, fv.Label, vector); err != nil {
		return fmt.Errorf("save features of %s: %w", fv.ContestKey, err)
	}
	return nil
}

// Features returns the feature vector of a contest.
func (s *SQLite) Features(ctx context.Context, key model.ContestKey) (model.FeatureVector, error) {
	var vector []byte
	err := s.q.QueryRowContext(ctx, `SELECT vector FROM features WHERE contest_key = ?`, key).Scan(&vector)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FeatureVector{}, fmt.Errorf("features of %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return model.FeatureVector{}, fmt.Errorf("load features of %s: %w", key, err)
	}
	var fv model.FeatureVector
	if err := json.Unmarshal(vector, &fv); err != nil {
		return model.FeatureVector{}, fmt.Errorf("decode features of %s: %w", key, err)
	}
	return fv, nil
}

// FeatureTable returns all stored feature vectors in processing order.
func (s *SQLite) FeatureTable(ctx context.Context) ([]model.FeatureVector, error) {
	const q = `SELECT f.vector FROM features f
JOIN contests c ON c.key = f.contest_key
ORDER BY c.date, c.event_id, c.bout_ordinal`
	rows, err := s.q.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("feature table: %w", err)
	}
	defer rows.Close()

	var out []model.FeatureVector
	for rows.Next() {
		var vector []byte
		if err := rows.Scan(&vector); err != nil {
			return nil, fmt.Errorf("scan features: %w", err)
		}
		var fv model.FeatureVector
		if err := json.Unmarshal(vector, &fv); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
		out = append(out, fv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feature table: %w", err)
	}
	return out, nil
}

// LoadCheckpoint reads the run checkpoint. A missing row is the zero
// checkpoint; an unreadable row is ErrCorruptCheckpoint.
func (s *SQLite) LoadCheckpoint(ctx context.Context) (model.Checkpoint, error) {
	const q = `SELECT event_id, bout_ordinal, date, contests, updated_at FROM checkpoint WHERE id = 1`
	var (
		cp        model.Checkpoint
		date      string
		updatedAt string
	)
	err := s.q.QueryRowContext(ctx, q).Scan(&cp.EventID, &cp.BoutOrdinal, &date, &cp.Contests, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Checkpoint{}, nil
	}
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	if cp.Date, err = decodeTime(date); err != nil {
		return model.Checkpoint{}, fmt.Errorf("%w: date %q: %v", ErrCorruptCheckpoint, date, err)
	}
	if cp.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return model.Checkpoint{}, fmt.Errorf("%w: updated_at %q: %v", ErrCorruptCheckpoint, updatedAt, err)
	}
	if cp.Contests < 0 || (cp.EventID == "" && cp.Contests > 0) {
		return model.Checkpoint{}, fmt.Errorf("%w: inconsistent row", ErrCorruptCheckpoint)
	}
	return cp, nil
}

// SaveCheckpoint atomically replaces the checkpoint row.
func (s *SQLite) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	const q = `INSERT INTO checkpoint (id, event_id, bout_ordinal, date, contests, updated_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    event_id = excluded.event_id, bout_ordinal = excluded.bout_ordinal,
    date = excluded.date, contests = excluded.contests, updated_at = excluded.updated_at`
	if _, err := s.q.ExecContext(ctx, q,
		cp.EventID, cp.BoutOrdinal, encodeTime(cp.Date), cp.Contests, encodeTime(cp.UpdatedAt),
	); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LastTrainedCount returns the total-contest count recorded at the last
// training run, zero if never trained.
func (s *SQLite) LastTrainedCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.q.QueryRowContext(ctx, `SELECT contests FROM training WHERE id = 1`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("last trained count: %w", err)
	}
	return n, nil
}

// MarkTrained records that training ran against the given contest count.
func (s *SQLite) MarkTrained(ctx context.Context, contests int64) error {
	const q = `INSERT INTO training (id, contests, trained_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET contests = excluded.contests, trained_at = excluded.trained_at`
	if _, err := s.q.ExecContext(ctx, q, contests, encodeTime(time.Now())); err != nil {
		return fmt.Errorf("mark trained: %w", err)
	}
	return nil
}
