// Package retrain decides whether the downstream model trainer should run.
// It only emits a decision with a reason; training itself is an external
// collaborator's job.
package retrain

import "fmt"

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithThreshold sets how many newly ingested contests since the last training
// run are needed before retraining. Zero means any new data triggers it.
func WithThreshold(n int) Option {
	return func(g *Gate) {
		if n >= 0 {
			g.threshold = n
		}
	}
}

// Gate evaluates the retraining policy.
type Gate struct {
	threshold int
}

// New creates a Gate with default configuration (retrain on any new data).
func New(opts ...Option) *Gate {
	g := &Gate{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the configured new-contest threshold.
func (g *Gate) Threshold() int { return g.threshold }

// Decision is the gate's verdict plus a human-readable reason.
type Decision struct {
	Retrain bool   `json:"retrain"`
	Reason  string `json:"reason"`
}

// Decide applies the policy: retrain when forced, when no model artifact
// exists, or when the new-contest count since the last training run exceeds
// the threshold.
func (g *Gate) Decide(newSinceLastTrain int, artifactPresent, force bool) Decision {
	switch {
	case force:
		return Decision{Retrain: true, Reason: "force flag set"}
	case !artifactPresent:
		return Decision{Retrain: true, Reason: "no model artifact present"}
	case newSinceLastTrain > g.threshold:
		return Decision{
			Retrain: true,
			Reason:  fmt.Sprintf("%d new contests since last training exceeds threshold %d", newSinceLastTrain, g.threshold),
		}
	default:
		return Decision{
			Retrain: false,
			Reason:  fmt.Sprintf("%d new contests since last training within threshold %d", newSinceLastTrain, g.threshold),
		}
	}
}
