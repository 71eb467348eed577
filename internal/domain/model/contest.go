// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the recorded result of a contest.
type Outcome string

// Recognized contest outcomes.
const (
	OutcomeRedWin    Outcome = "red_win"
	OutcomeBlueWin   Outcome = "blue_win"
	OutcomeDraw      Outcome = "draw"
	OutcomeNoContest Outcome = "no_contest"
)

// Valid reports whether o is one of the recognized outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeRedWin, OutcomeBlueWin, OutcomeDraw, OutcomeNoContest:
		return true
	}
	return false
}

// roundDuration is the regulation length of a single round.
const roundDuration = 5 * time.Minute

// ContestKey is the stable natural key of a contest: source event id plus
// bout ordinal within the event. Dates are NOT part of the key because the
// source can re-report them.
type ContestKey string

// Key builds a ContestKey from its parts.
func Key(eventID string, boutOrdinal int) ContestKey {
	return ContestKey(fmt.Sprintf("%s#%d", eventID, boutOrdinal))
}

// StatLine holds one side's observed per-contest statistics as recorded at
// contest time.
type StatLine struct {
	Knockdowns            int           `json:"knockdowns"`
	SigStrikesLanded      int           `json:"sig_strikes_landed"`
	SigStrikesAttempted   int           `json:"sig_strikes_attempted"`
	TotalStrikesLanded    int           `json:"total_strikes_landed"`
	TotalStrikesAttempted int           `json:"total_strikes_attempted"`
	TakedownsLanded       int           `json:"takedowns_landed"`
	TakedownsAttempted    int           `json:"takedowns_attempted"`
	SubmissionAttempts    int           `json:"submission_attempts"`
	Reversals             int           `json:"reversals"`
	ControlTime           time.Duration `json:"control_time"`
}

// Contest is a single recorded bout between two competitors. Once stored it
// is immutable; corrections require a superseding record.
type Contest struct {
	Key         ContestKey    `json:"key"`
	EventID     string        `json:"event_id"`
	EventName   string        `json:"event_name"`
	BoutOrdinal int           `json:"bout_ordinal"`
	Date        time.Time     `json:"date"`
	RedID       string        `json:"red_id"`
	BlueID      string        `json:"blue_id"`
	WeightClass string        `json:"weight_class"`
	Outcome     Outcome       `json:"outcome"`
	Method      string        `json:"method"`
	Round       int           `json:"round"`
	ClockTime   time.Duration `json:"clock_time"`
	RedStats    StatLine      `json:"red_stats"`
	BlueStats   StatLine      `json:"blue_stats"`
}

// Duration returns the total elapsed fight time: completed rounds plus the
// clock time of the final round.
func (c Contest) Duration() time.Duration {
	if c.Round < 1 {
		return 0
	}
	return time.Duration(c.Round-1)*roundDuration + c.ClockTime
}

// WinnerID returns the id of the winning competitor, or "" for a draw or
// no contest.
func (c Contest) WinnerID() string {
	switch c.Outcome {
	case OutcomeRedWin:
		return c.RedID
	case OutcomeBlueWin:
		return c.BlueID
	}
	return ""
}

// IsFinish reports whether the contest ended inside the distance, i.e. by
// anything other than a judges' decision.
func (c Contest) IsFinish() bool {
	if c.Outcome == OutcomeDraw || c.Outcome == OutcomeNoContest {
		return false
	}
	return !strings.Contains(strings.ToLower(c.Method), "decision")
}

// IsKnockout reports whether the contest ended by KO or TKO.
func (c Contest) IsKnockout() bool {
	m := strings.ToUpper(c.Method)
	return strings.Contains(m, "KO") && !strings.Contains(m, "DECISION")
}

// Less defines the total processing order over contests: date first, then
// event id, then bout ordinal. The secondary keys make the order
// deterministic when a card has several bouts on the same date.
func Less(a, b Contest) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.EventID != b.EventID {
		return a.EventID < b.EventID
	}
	return a.BoutOrdinal < b.BoutOrdinal
}

// After reports whether c sorts strictly after the checkpoint position.
func (c Contest) After(cp Checkpoint) bool {
	if cp.IsZero() {
		return true
	}
	if !c.Date.Equal(cp.Date) {
		return c.Date.After(cp.Date)
	}
	if c.EventID != cp.EventID {
		return c.EventID > cp.EventID
	}
	return c.BoutOrdinal > cp.BoutOrdinal
}
