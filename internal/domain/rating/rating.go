// Package rating implements the zero-sum pairwise skill rating recurrence.
//
// Expected score is a logistic function of the rating difference; each side
// moves toward actual-minus-expected scaled by the K-factor. With an equal
// K-factor the two deltas of a contest sum to exactly zero.
//
// Outcome policy: a draw scores 0.5 for both sides; a no contest leaves both
// ratings untouched. The update is strictly order-sensitive, so contests must
// be applied in the store's total order — callers replay from the start in
// full-rebuild mode and never apply a contest older than the checkpoint in
// update mode.
package rating

import (
	"math"

	"github.com/okian/valetudo/internal/domain/model"
)

// Default rating configuration constants.
const (
	DefaultInitialRating = 1500.0
	DefaultKFactor       = 32.0

	logisticBase  = 10.0
	logisticScale = 400.0
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithKFactor sets the rating sensitivity constant.
func WithKFactor(k float64) Option {
	return func(e *Engine) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithInitialRating sets the rating assigned to debut competitors.
func WithInitialRating(r float64) Option {
	return func(e *Engine) {
		if r > 0 {
			e.initial = r
		}
	}
}

// Engine computes post-contest ratings from pre-contest ratings and outcome.
// The engine is stateless; ratings are threaded through explicitly so the
// no-lookahead property can be checked directly.
type Engine struct {
	k       float64
	initial float64
}

// New creates an Engine with default configuration.
func New(opts ...Option) *Engine {
	e := &Engine{
		k:       DefaultKFactor,
		initial: DefaultInitialRating,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitialRating returns the rating assigned to a competitor on debut.
func (e *Engine) InitialRating() float64 { return e.initial }

// KFactor returns the configured sensitivity constant.
func (e *Engine) KFactor() float64 { return e.k }

// Expected returns the expected score of the first side against the second.
func (e *Engine) Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(logisticBase, (rb-ra)/logisticScale))
}

// Apply computes the post-contest ratings for both sides from their
// pre-contest ratings and the recorded outcome. A no contest returns the
// inputs unchanged.
func (e *Engine) Apply(outcome model.Outcome, redBefore, blueBefore float64) (redAfter, blueAfter float64) {
	var redScore, blueScore float64
	switch outcome {
	case model.OutcomeRedWin:
		redScore, blueScore = 1, 0
	case model.OutcomeBlueWin:
		redScore, blueScore = 0, 1
	case model.OutcomeDraw:
		redScore, blueScore = 0.5, 0.5
	default:
		// No contest: ratings are conserved untouched.
		return redBefore, blueBefore
	}

	redAfter = redBefore + e.k*(redScore-e.Expected(redBefore, blueBefore))
	blueAfter = blueBefore + e.k*(blueScore-e.Expected(blueBefore, redBefore))
	return redAfter, blueAfter
}

// Snapshot applies the contest outcome and returns the full before/after
// rating snapshot consumed by feature derivation and persistence.
func (e *Engine) Snapshot(outcome model.Outcome, redBefore, blueBefore float64) model.RatingSnapshot {
	redAfter, blueAfter := e.Apply(outcome, redBefore, blueBefore)
	return model.RatingSnapshot{
		RedBefore:  redBefore,
		BlueBefore: blueBefore,
		RedAfter:   redAfter,
		BlueAfter:  blueAfter,
	}
}
