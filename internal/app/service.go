// Package service coordinates sync runs: fetch, change detection, rating
// updates, feature derivation and checkpointing, all inside one store batch
// so an interrupted run leaves the store at the previous checkpoint.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/valetudo/internal/adapters/fetch"
	"github.com/okian/valetudo/internal/adapters/repository"
	"github.com/okian/valetudo/internal/domain/detect"
	"github.com/okian/valetudo/internal/domain/feature"
	"github.com/okian/valetudo/internal/domain/model"
	"github.com/okian/valetudo/internal/domain/rating"
	"github.com/okian/valetudo/internal/domain/retrain"
	"github.com/okian/valetudo/pkg/logger"
	"github.com/okian/valetudo/pkg/metrics"
)

// ErrAlreadyRunning marks a run attempt while another run holds the writer
// lease.
var ErrAlreadyRunning = errors.New("a sync run is already in progress")

// Mode selects how a run treats existing derived state.
type Mode string

// Run modes.
const (
	// ModeUpdate ingests only contests after the checkpoint and extends
	// ratings and features incrementally.
	ModeUpdate Mode = "update"

	// ModeRebuild ingests everything, then replays the full history from
	// the start, rewriting ratings, snapshots and features.
	ModeRebuild Mode = "rebuild"
)

// RunOptions parameterize a single sync run.
type RunOptions struct {
	Mode         Mode
	ForceRetrain bool
}

// RunResult summarizes a finished run.
type RunResult struct {
	Mode        Mode              `json:"mode"`
	NewContests int               `json:"new_contests"`
	Duplicates  int               `json:"duplicates"`
	Malformed   int               `json:"malformed"`
	Replayed    int               `json:"replayed,omitempty"`
	Checkpoint  model.Checkpoint  `json:"checkpoint"`
	Retrain     *retrain.Decision `json:"retrain,omitempty"`
	Duration    time.Duration     `json:"duration"`
}

// RunStatus is the externally visible run state.
type RunStatus struct {
	Running    bool       `json:"running"`
	Phase      string     `json:"phase"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	LastResult *RunResult `json:"last_result,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Service is the run coordinator plus the read surface used by the HTTP API.
type Service struct {
	store   repository.BatchStore
	fetcher fetch.Fetcher

	engine  *rating.Engine
	builder *feature.Builder
	gate    *retrain.Gate

	modelPath  string
	runTimeout time.Duration
	leaseTTL   time.Duration

	logger logger.Logger

	mu     sync.Mutex
	status RunStatus
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRatingEngine sets the rating engine.
func WithRatingEngine(e *rating.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithFeatureBuilder sets the feature builder.
func WithFeatureBuilder(b *feature.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithRetrainGate sets the retrain gate.
func WithRetrainGate(g *retrain.Gate) Option {
	return func(s *Service) {
		if g != nil {
			s.gate = g
		}
	}
}

// WithModelPath sets the trainer artifact path checked by the retrain gate.
func WithModelPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.modelPath = path
		}
	}
}

// WithRunTimeout bounds a single run end to end.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// WithLeaseTTL sets the writer lease lifetime.
func WithLeaseTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.leaseTTL = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(store repository.BatchStore, fetcher fetch.Fetcher, opts ...Option) *Service {
	s := &Service{
		store:      store,
		fetcher:    fetcher,
		engine:     rating.New(),
		builder:    feature.New(),
		gate:       retrain.New(),
		modelPath:  "data/model.bin",
		runTimeout: 10 * time.Minute,
		leaseTTL:   15 * time.Minute,
		status:     RunStatus{Phase: "idle"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Run executes one sync run. Exactly one run can be live at a time; a second
// caller gets ErrAlreadyRunning without touching any state.
func (s *Service) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	if opts.Mode == "" {
		opts.Mode = ModeUpdate
	}
	if opts.Mode != ModeUpdate && opts.Mode != ModeRebuild {
		return RunResult{}, fmt.Errorf("unknown run mode %q", opts.Mode)
	}

	started := time.Now()
	if err := s.begin(started); err != nil {
		return RunResult{}, err
	}

	res, err := s.run(ctx, opts, started)
	res.Mode = opts.Mode
	res.Duration = time.Since(started)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordRun(string(opts.Mode), outcome, res.Duration)

	s.finish(res, err)
	return res, err
}

// begin flips the status to running, refusing concurrent local runs.
func (s *Service) begin(started time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Running {
		return ErrAlreadyRunning
	}
	s.status.Running = true
	s.status.Phase = "starting"
	s.status.StartedAt = &started
	s.status.LastError = ""
	return nil
}

func (s *Service) finish(res RunResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.Phase = "idle"
	s.status.StartedAt = nil
	if err != nil {
		s.status.LastError = err.Error()
		return
	}
	s.status.LastResult = &res
}

func (s *Service) setPhase(phase string) {
	s.mu.Lock()
	s.status.Phase = phase
	s.mu.Unlock()
}

func (s *Service) run(ctx context.Context, opts RunOptions, started time.Time) (RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	s.setPhase("acquiring lease")
	owner := uuid.NewString()
	if _, err := s.store.AcquireLease(ctx, owner, s.leaseTTL); err != nil {
		if errors.Is(err, repository.ErrLeaseHeld) {
			return RunResult{}, fmt.Errorf("%w: %v", ErrAlreadyRunning, err)
		}
		return RunResult{}, err
	}
	metrics.SetLeaseHeld(true)
	defer func() {
		// Release on a fresh context: the run context may already be
		// cancelled and the lease must not outlive the run.
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer releaseCancel()
		if err := s.store.ReleaseLease(releaseCtx, owner); err != nil {
			s.logger.Warn(releaseCtx, "failed to release writer lease", logger.Error(err))
		}
		metrics.SetLeaseHeld(false)
	}()

	s.logger.Info(ctx, "sync run started",
		logger.String("mode", string(opts.Mode)),
		logger.String("owner", owner),
	)

	s.setPhase("fetching")
	candidates, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("fetch candidates: %w", err)
	}

	s.setPhase("detecting")
	batch, err := detect.New(s.store).Detect(ctx, candidates)
	if err != nil {
		return RunResult{}, fmt.Errorf("detect changes: %w", err)
	}
	for range batch.New {
		metrics.RecordContestIngested()
	}
	for i := 0; i < batch.Duplicates; i++ {
		metrics.RecordContestDuplicate()
	}
	for i := 0; i < batch.Malformed; i++ {
		metrics.RecordRecordMalformed()
	}

	res := RunResult{
		NewContests: len(batch.New),
		Duplicates:  batch.Duplicates,
		Malformed:   batch.Malformed,
	}

	switch opts.Mode {
	case ModeUpdate:
		res.Checkpoint, err = s.applyUpdate(ctx, batch)
	case ModeRebuild:
		res.Checkpoint, res.Replayed, err = s.applyRebuild(ctx, batch)
	}
	if err != nil {
		return res, err
	}

	s.setPhase("gating")
	decision, err := s.decideRetrain(ctx, opts.ForceRetrain)
	if err != nil {
		return res, err
	}
	res.Retrain = &decision
	metrics.RecordRetrainDecision(decision.Retrain)
	metrics.UpdateCheckpointContests(res.Checkpoint.Contests)
	s.refreshGauges(ctx)

	s.logger.Info(ctx, "sync run finished",
		logger.String("mode", string(opts.Mode)),
		logger.Int("new", res.NewContests),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("malformed", res.Malformed),
		logger.Int64("checkpoint_contests", res.Checkpoint.Contests),
		logger.Any("retrain", decision.Retrain),
	)
	return res, nil
}

// applyUpdate extends ratings and features with the new contests only. All
// writes happen in one batch committed after the checkpoint is saved.
func (s *Service) applyUpdate(ctx context.Context, batch detect.Batch) (model.Checkpoint, error) {
	s.setPhase("applying")
	b, err := s.store.Begin(ctx)
	if err != nil {
		return model.Checkpoint{}, err
	}
	defer b.Rollback() //nolint:errcheck // rollback after commit is a no-op

	cp, err := b.LoadCheckpoint(ctx)
	if err != nil {
		return model.Checkpoint{}, err
	}
	if len(batch.New) == 0 {
		return cp, nil
	}

	for _, c := range batch.New {
		if err := s.applyContest(ctx, b, batch, c, false); err != nil {
			return model.Checkpoint{}, err
		}
		cp = checkpointAt(c, cp.Contests+1)
	}

	s.setPhase("committing")
	if err := b.SaveCheckpoint(ctx, cp); err != nil {
		return model.Checkpoint{}, err
	}
	if err := b.Commit(); err != nil {
		return model.Checkpoint{}, err
	}
	return cp, nil
}

// applyRebuild ingests the new contests as backfill and replays the entire
// stored history from the start, rewriting ratings, snapshots and features.
func (s *Service) applyRebuild(ctx context.Context, batch detect.Batch) (model.Checkpoint, int, error) {
	s.setPhase("applying")
	b, err := s.store.Begin(ctx)
	if err != nil {
		return model.Checkpoint{}, 0, err
	}
	defer b.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// New contests land first, with placeholder snapshots; the replay below
	// rewrites every snapshot in order anyway.
	for _, c := range batch.New {
		if err := s.upsertSides(ctx, b, batch, c); err != nil {
			return model.Checkpoint{}, 0, err
		}
		if err := b.AppendContest(ctx, c, model.RatingSnapshot{}, true); err != nil {
			return model.Checkpoint{}, 0, err
		}
	}

	if err := b.ResetRatings(ctx, s.engine.InitialRating()); err != nil {
		return model.Checkpoint{}, 0, err
	}

	// Materialize the replay order up front; iterating the store while
	// writing to the same batch would interleave statements on one
	// transaction.
	var history []model.Contest
	for c, err := range b.ContestsSince(ctx, model.Checkpoint{}) {
		if err != nil {
			return model.Checkpoint{}, 0, err
		}
		history = append(history, c)
	}

	var cp model.Checkpoint
	for i, c := range history {
		if err := ctx.Err(); err != nil {
			return model.Checkpoint{}, 0, err
		}
		if err := s.replayContest(ctx, b, c); err != nil {
			return model.Checkpoint{}, 0, err
		}
		cp = checkpointAt(c, int64(i+1))
	}

	s.setPhase("committing")
	if err := b.SaveCheckpoint(ctx, cp); err != nil {
		return model.Checkpoint{}, 0, err
	}
	if err := b.Commit(); err != nil {
		return model.Checkpoint{}, 0, err
	}
	return cp, len(history), nil
}

// applyContest ingests one new contest: profiles, ratings, snapshot and
// feature vector.
func (s *Service) applyContest(ctx context.Context, b repository.Batch, batch detect.Batch, c model.Contest, backfill bool) error {
	if err := s.upsertSides(ctx, b, batch, c); err != nil {
		return err
	}

	red, err := b.Competitor(ctx, c.RedID)
	if err != nil {
		return err
	}
	blue, err := b.Competitor(ctx, c.BlueID)
	if err != nil {
		return err
	}

	snap := s.engine.Snapshot(c.Outcome, red.Rating, blue.Rating)
	if err := b.AppendContest(ctx, c, snap, backfill); err != nil {
		return err
	}
	if err := b.SetRating(ctx, red.ID, snap.RedAfter); err != nil {
		return err
	}
	if err := b.SetRating(ctx, blue.ID, snap.BlueAfter); err != nil {
		return err
	}

	return s.deriveFeatures(ctx, b, c, red, blue, snap)
}

// replayContest recomputes one stored contest's snapshot, ratings and
// features during a rebuild.
func (s *Service) replayContest(ctx context.Context, b repository.Batch, c model.Contest) error {
	red, err := b.Competitor(ctx, c.RedID)
	if err != nil {
		return err
	}
	blue, err := b.Competitor(ctx, c.BlueID)
	if err != nil {
		return err
	}

	snap := s.engine.Snapshot(c.Outcome, red.Rating, blue.Rating)
	if err := b.SaveRatingSnapshot(ctx, c.Key, snap); err != nil {
		return err
	}
	if err := b.SetRating(ctx, red.ID, snap.RedAfter); err != nil {
		return err
	}
	if err := b.SetRating(ctx, blue.ID, snap.BlueAfter); err != nil {
		return err
	}

	return s.deriveFeatures(ctx, b, c, red, blue, snap)
}

func (s *Service) deriveFeatures(ctx context.Context, b repository.Batch, c model.Contest, red, blue model.Competitor, snap model.RatingSnapshot) error {
	redPrior, err := b.PriorBouts(ctx, c.RedID, c)
	if err != nil {
		return err
	}
	bluePrior, err := b.PriorBouts(ctx, c.BlueID, c)
	if err != nil {
		return err
	}
	return b.SaveFeatures(ctx, s.builder.Build(c, red, blue, snap, redPrior, bluePrior))
}

// upsertSides makes sure both corners exist with their freshest profile.
// Debut competitors enter at the engine's initial rating.
func (s *Service) upsertSides(ctx context.Context, b repository.Batch, batch detect.Batch, c model.Contest) error {
	for _, id := range []string{c.RedID, c.BlueID} {
		comp, ok := batch.Competitors[id]
		if !ok {
			comp = model.Competitor{ID: id, Name: id}
		}
		comp.Rating = s.engine.InitialRating()
		if _, err := b.UpsertCompetitor(ctx, comp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) decideRetrain(ctx context.Context, force bool) (retrain.Decision, error) {
	total, err := s.store.CountContests(ctx)
	if err != nil {
		return retrain.Decision{}, err
	}
	trained, err := s.store.LastTrainedCount(ctx)
	if err != nil {
		return retrain.Decision{}, err
	}

	_, statErr := os.Stat(s.modelPath)
	artifactPresent := statErr == nil

	return s.gate.Decide(int(total-trained), artifactPresent, force), nil
}

func (s *Service) refreshGauges(ctx context.Context) {
	if n, err := s.store.CountCompetitors(ctx); err == nil {
		metrics.UpdateCompetitorsTotal(n)
	}
	if n, err := s.store.CountContests(ctx); err == nil {
		metrics.UpdateContestsTotal(n)
	}
}

func checkpointAt(c model.Contest, contests int64) model.Checkpoint {
	return model.Checkpoint{
		EventID:     c.EventID,
		BoutOrdinal: c.BoutOrdinal,
		Date:        c.Date,
		Contests:    contests,
		UpdatedAt:   time.Now().UTC(),
	}
}

// Status returns the externally visible run state.
func (s *Service) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Checkpoint returns the current run checkpoint.
func (s *Service) Checkpoint(ctx context.Context) (model.Checkpoint, error) {
	return s.store.LoadCheckpoint(ctx)
}

// Top returns the n highest-rated competitors.
func (s *Service) Top(ctx context.Context, n int) ([]model.Competitor, error) {
	return s.store.TopRatings(ctx, n)
}

// Competitor returns a competitor by id.
func (s *Service) Competitor(ctx context.Context, id string) (model.Competitor, error) {
	return s.store.Competitor(ctx, id)
}

// Features returns the derived feature vector of a contest.
func (s *Service) Features(ctx context.Context, key model.ContestKey) (model.FeatureVector, error) {
	return s.store.Features(ctx, key)
}

// FeatureTable returns all feature vectors in processing order.
func (s *Service) FeatureTable(ctx context.Context) ([]model.FeatureVector, error) {
	return s.store.FeatureTable(ctx)
}

// MarkTrained records that the external trainer consumed the current feature
// table.
func (s *Service) MarkTrained(ctx context.Context) (int64, error) {
	n, err := s.store.CountContests(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.store.MarkTrained(ctx, n); err != nil {
		return 0, err
	}
	return n, nil
}
