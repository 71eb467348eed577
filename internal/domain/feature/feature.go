// Package feature derives per-contest feature vectors from strictly earlier
// data.
//
// No-lookahead is the hard invariant here: the vector for a contest depends
// only on competitor attributes, pre-contest ratings, and bouts that sort
// strictly before the contest in the store's total order — never on the
// contest itself or anything later, even when the store already holds later
// contests during a rebuild replay.
package feature

import (
	"strings"
	"time"

	"github.com/okian/valetudo/internal/domain/model"
	"github.com/okian/valetudo/internal/domain/rating"
)

// DefaultWindowSize is the number of prior bouts aggregated per side.
const DefaultWindowSize = 5

const trailingYear = 365 * 24 * time.Hour

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithWindowSize sets the rolling-window size N.
func WithWindowSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.window = n
		}
	}
}

// WithNeutralRating sets the opponent-rating value reported for debut
// competitors. It should match the rating engine's initial rating.
func WithNeutralRating(r float64) Option {
	return func(b *Builder) {
		if r > 0 {
			b.neutralRating = r
		}
	}
}

// Builder computes feature vectors for newly ingested contests.
type Builder struct {
	window        int
	neutralRating float64
}

// New creates a Builder with default configuration.
func New(opts ...Option) *Builder {
	b := &Builder{
		window:        DefaultWindowSize,
		neutralRating: rating.DefaultInitialRating,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WindowSize returns the configured rolling-window size.
func (b *Builder) WindowSize() int { return b.window }

// Build computes the feature vector for contest c. snap must hold the
// pre-contest ratings produced by the rating engine for this exact contest.
// redPrior and bluePrior are each side's prior bouts in chronological order;
// callers obtain them from the store's ordered window query, which enforces
// the strictly-earlier cutoff at (date, event, ordinal) granularity. Build
// additionally drops the contest itself and anything dated after it, so a
// store that already contains later bouts cannot leak into the window.
func (b *Builder) Build(c model.Contest, red, blue model.Competitor, snap model.RatingSnapshot, redPrior, bluePrior []model.Bout) model.FeatureVector {
	return model.FeatureVector{
		ContestKey:   c.Key,
		Label:        c.Outcome,
		HeightDiffCM: red.HeightCM - blue.HeightCM,
		ReachDiffIn:  red.ReachIn - blue.ReachIn,
		AgeDiffYears: ageDiff(red, blue, c.Date),
		RatingDiff:   snap.RedBefore - snap.BlueBefore,
		Red:          b.aggregate(c, redPrior),
		Blue:         b.aggregate(c, bluePrior),
	}
}

// aggregate computes one side's rolling-window summary. A debut competitor
// yields the zero aggregate with AvgOpponentRating pinned to the neutral
// rating, never an error.
func (b *Builder) aggregate(c model.Contest, prior []model.Bout) model.WindowAggregate {
	prior = b.strictlyEarlier(c, prior)

	agg := model.WindowAggregate{AvgOpponentRating: b.neutralRating}
	if len(prior) == 0 {
		return agg
	}

	// Streak, recency and cadence look at the full prior history, not just
	// the window.
	last := prior[len(prior)-1]
	agg.DaysSinceLastBout = c.Date.Sub(last.Date).Hours() / 24
	for i := len(prior) - 1; i >= 0; i-- {
		if !prior[i].Won {
			break
		}
		agg.WinStreak++
	}
	cutoff := c.Date.Add(-trailingYear)
	for _, bt := range prior {
		if !bt.Date.Before(cutoff) {
			agg.BoutsLastYear++
		}
	}

	window := prior
	if len(window) > b.window {
		window = window[len(window)-b.window:]
	}
	agg.Bouts = len(window)

	var (
		wins, finishes                 int
		sigLanded, sigAttempted        int
		tdLanded, tdAttempted          int
		subAttempts                    int
		ctrl, fought                   time.Duration
		opponentRatings                float64
		firstRoundFinishes, kdFor, kdA int
	)
	for _, bt := range window {
		finish := bt.Won && !isDecision(bt.Method)
		if bt.Won {
			wins++
		}
		if finish {
			finishes++
			if bt.Round == 1 {
				firstRoundFinishes++
			}
		}
		kdFor += bt.Stats.Knockdowns
		kdA += bt.OpponentStats.Knockdowns
		sigLanded += bt.Stats.SigStrikesLanded
		sigAttempted += bt.Stats.SigStrikesAttempted
		tdLanded += bt.Stats.TakedownsLanded
		tdAttempted += bt.Stats.TakedownsAttempted
		subAttempts += bt.Stats.SubmissionAttempts
		ctrl += bt.Stats.ControlTime
		fought += bt.Duration
		opponentRatings += bt.OpponentRatingBefore
	}

	n := float64(len(window))
	agg.WinRate = float64(wins) / n
	agg.FinishRate = float64(finishes) / n
	agg.FirstRoundFinishes = firstRoundFinishes
	agg.KnockdownsScored = kdFor
	agg.KnockdownsAbsorbed = kdA
	agg.SigStrikeAccuracy = ratio(sigLanded, sigAttempted)
	agg.TakedownAccuracy = ratio(tdLanded, tdAttempted)
	agg.SubAttemptsPerBout = float64(subAttempts) / n
	if fought > 0 {
		agg.ControlShare = ctrl.Seconds() / fought.Seconds()
	}
	agg.AvgOpponentRating = opponentRatings / n
	return agg
}

// strictlyEarlier drops the contest itself and anything dated after it.
// Same-date bouts are kept: the store's ordered query already resolved the
// (event, ordinal) tie-break for those.
func (b *Builder) strictlyEarlier(c model.Contest, prior []model.Bout) []model.Bout {
	out := prior[:0:0]
	for _, bt := range prior {
		if bt.Key == c.Key || bt.Date.After(c.Date) {
			continue
		}
		out = append(out, bt)
	}
	return out
}

func ageDiff(red, blue model.Competitor, at time.Time) float64 {
	redAge, blueAge := red.AgeAt(at), blue.AgeAt(at)
	if redAge == 0 || blueAge == 0 {
		return 0
	}
	return redAge - blueAge
}

func ratio(landed, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return float64(landed) / float64(attempted)
}

func isDecision(method string) bool {
	return strings.Contains(strings.ToLower(method), "decision")
}
