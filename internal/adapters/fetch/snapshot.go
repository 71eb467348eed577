package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// snapshotEvent mirrors one event in the source's JSON export: an event with
// its bouts in card order.
type snapshotEvent struct {
	EventID  string `json:"event_id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Location string `json:"location"`
	Fights   []struct {
		Winner      string `json:"winner"`
		WeightClass string `json:"weight_class"`
		Method      string `json:"method"`
		Round       string `json:"round"`
		Time        string `json:"time"`
		Red         Corner `json:"red"`
		Blue        Corner `json:"blue"`
	} `json:"fights"`
}

// SnapshotFetcher reads candidates from a JSON export file produced by the
// acquisition side. A missing file is treated as "nothing new" rather than an
// error so scheduled runs keep working between exports.
type SnapshotFetcher struct {
	Path string
}

// Fetch implements Fetcher by flattening the export's events into candidate
// bout records. Bout ordinals follow the card order within each event, which
// is what makes the natural key stable across re-exports.
func (f *SnapshotFetcher) Fetch(ctx context.Context) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var events []snapshotEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	var out []Candidate
	for _, ev := range events {
		eventID := ev.EventID
		if eventID == "" {
			eventID = SlugID(ev.Name)
		}
		for i, fight := range ev.Fights {
			out = append(out, Candidate{
				EventID:     eventID,
				EventName:   ev.Name,
				EventDate:   ev.Date,
				BoutOrdinal: i + 1,
				Winner:      fight.Winner,
				WeightClass: fight.WeightClass,
				Method:      fight.Method,
				Round:       fight.Round,
				Time:        fight.Time,
				Red:         fight.Red,
				Blue:        fight.Blue,
			})
		}
	}
	return out, nil
}
