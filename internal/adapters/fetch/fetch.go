// Package fetch declares the acquisition boundary: an external collaborator
// turns a remote source into raw candidate contest records. Network retries,
// politeness and pagination are the collaborator's problem; a fetch failure
// surfaces here as an empty or partial candidate set.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/valetudo/internal/domain/model"
)

// Fetcher produces raw candidate contest records from an external source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Candidate, error)
}

// ErrMissingIdentity marks a candidate without the fields needed to form its
// natural key or identify its competitors.
var ErrMissingIdentity = errors.New("candidate missing identity fields")

// Candidate is one raw bout record as reported by the source. All fields are
// strings in the source's own formats; Decode turns them into domain values.
type Candidate struct {
	EventID     string `json:"event_id"`
	EventName   string `json:"event_name"`
	EventDate   string `json:"event_date"` // "January 2, 2006"
	BoutOrdinal int    `json:"bout_ordinal"`
	Winner      string `json:"winner"` // winner name, "Draw", "NC" or ""
	WeightClass string `json:"weight_class"`
	Method      string `json:"method"`
	Round       string `json:"round"`
	Time        string `json:"time"` // clock of the final round, "m:ss"
	Red         Corner `json:"red"`
	Blue        Corner `json:"blue"`
}

// Corner is one side's identity, attributes and observed statistics.
type Corner struct {
	Name     string      `json:"name"`
	Nickname string      `json:"nickname"`
	Height   string      `json:"height"` // 5' 11"
	Reach    string      `json:"reach"`  // 72"
	Stance   string      `json:"stance"`
	DOB      string      `json:"dob"` // "Jan 2, 2006"
	Stats    CornerStats `json:"stats"`
}

// CornerStats carries the per-bout stat strings as scraped. Landed/attempted
// pairs use the source's "X of Y" form; control time is a "m:ss" clock.
type CornerStats struct {
	Knockdowns   string `json:"kd"`
	SigStrikes   string `json:"sig_str"`
	TotalStrikes string `json:"total_str"`
	Takedowns    string `json:"td"`
	SubAttempts  string `json:"sub_att"`
	Reversals    string `json:"rev"`
	Control      string `json:"ctrl"`
}

// SlugID derives a stable competitor id from a display name.
func SlugID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}

// Decode validates the candidate's identity fields and converts the record
// into a domain contest plus both competitors' profiles. Identity problems
// (missing event id, names or an unparseable date) return
// ErrMissingIdentity-wrapped errors; stat fields are decoded leniently and
// default to zero, matching how the source leaves gaps in old cards.
func (c Candidate) Decode() (model.Contest, [2]model.Competitor, error) {
	var none [2]model.Competitor

	eventID := strings.TrimSpace(c.EventID)
	if eventID == "" {
		eventID = SlugID(c.EventName)
	}
	if eventID == "" || c.BoutOrdinal < 1 {
		return model.Contest{}, none, fmt.Errorf("%w: event %q bout %d", ErrMissingIdentity, c.EventID, c.BoutOrdinal)
	}
	redName := strings.TrimSpace(c.Red.Name)
	blueName := strings.TrimSpace(c.Blue.Name)
	if redName == "" || blueName == "" {
		return model.Contest{}, none, fmt.Errorf("%w: event %q bout %d lacks competitor names", ErrMissingIdentity, eventID, c.BoutOrdinal)
	}
	date, err := ParseEventDate(c.EventDate)
	if err != nil {
		return model.Contest{}, none, fmt.Errorf("%w: %v", ErrMissingIdentity, err)
	}

	red := decodeCorner(c.Red)
	blue := decodeCorner(c.Blue)

	contest := model.Contest{
		Key:         model.Key(eventID, c.BoutOrdinal),
		EventID:     eventID,
		EventName:   strings.TrimSpace(c.EventName),
		BoutOrdinal: c.BoutOrdinal,
		Date:        date,
		RedID:       red.ID,
		BlueID:      blue.ID,
		WeightClass: strings.TrimSpace(c.WeightClass),
		Outcome:     decodeOutcome(c.Winner, redName, blueName),
		Method:      strings.TrimSpace(c.Method),
		Round:       ParseIntSafe(c.Round),
		ClockTime:   ParseClock(c.Time),
		RedStats:    decodeStats(c.Red.Stats),
		BlueStats:   decodeStats(c.Blue.Stats),
	}
	return contest, [2]model.Competitor{red, blue}, nil
}

func decodeCorner(co Corner) model.Competitor {
	return model.Competitor{
		ID:       SlugID(co.Name),
		Name:     strings.TrimSpace(co.Name),
		Nickname: strings.TrimSpace(co.Nickname),
		HeightCM: ParseHeightCM(co.Height),
		ReachIn:  ParseReachIn(co.Reach),
		Stance:   strings.TrimSpace(co.Stance),
		DOB:      ParseDOB(co.DOB),
	}
}

func decodeStats(s CornerStats) model.StatLine {
	sigLanded, sigAttempted := ParseOf(s.SigStrikes)
	totalLanded, totalAttempted := ParseOf(s.TotalStrikes)
	tdLanded, tdAttempted := ParseOf(s.Takedowns)
	return model.StatLine{
		Knockdowns:            ParseIntSafe(s.Knockdowns),
		SigStrikesLanded:      sigLanded,
		SigStrikesAttempted:   sigAttempted,
		TotalStrikesLanded:    totalLanded,
		TotalStrikesAttempted: totalAttempted,
		TakedownsLanded:       tdLanded,
		TakedownsAttempted:    tdAttempted,
		SubmissionAttempts:    ParseIntSafe(s.SubAttempts),
		Reversals:             ParseIntSafe(s.Reversals),
		ControlTime:           ParseClock(s.Control),
	}
}

func decodeOutcome(winner, redName, blueName string) model.Outcome {
	w := strings.TrimSpace(winner)
	switch {
	case strings.EqualFold(w, redName):
		return model.OutcomeRedWin
	case strings.EqualFold(w, blueName):
		return model.OutcomeBlueWin
	case strings.EqualFold(w, "draw"):
		return model.OutcomeDraw
	default:
		return model.OutcomeNoContest
	}
}
