package model

import "time"

// Competitor is an entity with a persistent skill rating across contests.
// Competitors are created on first appearance in an ingested contest and are
// never deleted. Rating is mutated only by the rating engine.
type Competitor struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Nickname string    `json:"nickname,omitempty"`
	HeightCM float64   `json:"height_cm,omitempty"`
	ReachIn  float64   `json:"reach_in,omitempty"`
	Stance   string    `json:"stance,omitempty"`
	DOB      time.Time `json:"dob,omitzero"`
	Rating   float64   `json:"rating"`
}

// AgeAt returns the competitor's age in years at the given date, or 0 when
// the date of birth is unknown.
func (c Competitor) AgeAt(t time.Time) float64 {
	if c.DOB.IsZero() || t.Before(c.DOB) {
		return 0
	}
	return t.Sub(c.DOB).Hours() / 24 / 365.25
}

// RatingSnapshot carries the pre- and post-contest ratings of both sides of
// one contest. Pre-contest values are what feature derivation must see; the
// competitors' stored ratings may already reflect later contests during a
// rebuild replay.
type RatingSnapshot struct {
	RedBefore  float64 `json:"red_before"`
	BlueBefore float64 `json:"blue_before"`
	RedAfter   float64 `json:"red_after"`
	BlueAfter  float64 `json:"blue_after"`
}

// Bout is one competitor's view of a completed contest, used for
// rolling-window feature aggregation.
type Bout struct {
	Key                  ContestKey
	Date                 time.Time
	Won                  bool
	Draw                 bool
	NoContest            bool
	Method               string
	Round                int
	Duration             time.Duration
	OpponentID           string
	OpponentRatingBefore float64
	Stats                StatLine
	OpponentStats        StatLine
}

// Checkpoint marks the latest fully ingested and fully processed contest.
// The zero value means "start of history".
type Checkpoint struct {
	EventID     string    `json:"event_id"`
	BoutOrdinal int       `json:"bout_ordinal"`
	Date        time.Time `json:"date"`
	Contests    int64     `json:"contests"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsZero reports whether the checkpoint still points at the start of history.
func (cp Checkpoint) IsZero() bool {
	return cp.EventID == "" && cp.Date.IsZero()
}

// Key returns the contest key the checkpoint points at.
func (cp Checkpoint) Key() ContestKey {
	if cp.IsZero() {
		return ""
	}
	return Key(cp.EventID, cp.BoutOrdinal)
}
