// Package fixture generates deterministic synthetic fight history in the
// source's raw export format, for seeding local databases and for tests that
// need realistic multi-event candidate sets.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/okian/valetudo/internal/adapters/fetch"
)

// File permission for written snapshots.
const snapshotFilePermission = 0o600

var firstNames = []string{
	"Alex", "Bruno", "Carlos", "Dmitri", "Evan", "Felipe", "Gustavo",
	"Henrik", "Igor", "Jamal", "Kelvin", "Luca", "Marco", "Nate",
	"Omar", "Paulo", "Rafael", "Sergei", "Tariq", "Viktor",
}

var lastNames = []string{
	"Almeida", "Barboza", "Craig", "Dolidze", "Evloev", "Fiziev",
	"Gamrot", "Holland", "Imavov", "Jackson", "Krylov", "Lima",
	"Moreno", "Nurmagomedov", "Oliveira", "Pereira", "Rakhmonov",
	"Santos", "Tsarukyan", "Walker",
}

var weightClasses = []string{
	"Flyweight", "Bantamweight", "Featherweight", "Lightweight",
	"Welterweight", "Middleweight", "Light Heavyweight", "Heavyweight",
}

var methods = []string{
	"KO/TKO", "Submission", "Decision - Unanimous", "Decision - Split",
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed sets the random seed. The same seed always yields the same
// history.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithEvents sets how many events to generate.
func WithEvents(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.events = n
		}
	}
}

// WithBoutsPerEvent sets how many bouts each event card carries.
func WithBoutsPerEvent(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.boutsPerEvent = n
		}
	}
}

// WithRosterSize caps how many distinct competitors appear.
func WithRosterSize(n int) Option {
	return func(g *Generator) {
		if n >= 2 {
			g.rosterSize = n
		}
	}
}

// WithStartDate sets the date of the first event; later events follow at
// monthly cadence.
func WithStartDate(t time.Time) Option {
	return func(g *Generator) {
		if !t.IsZero() {
			g.start = t
		}
	}
}

// Generator produces synthetic candidate records.
type Generator struct {
	seed          int64
	events        int
	boutsPerEvent int
	rosterSize    int
	start         time.Time
}

// New creates a Generator with default configuration.
func New(opts ...Option) *Generator {
	g := &Generator{
		seed:          1,
		events:        12,
		boutsPerEvent: 6,
		rosterSize:    40,
		start:         time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rosterSize > len(firstNames)*len(lastNames) {
		g.rosterSize = len(firstNames) * len(lastNames)
	}
	return g
}

type fighter struct {
	corner fetch.Corner
}

// Candidates generates the full synthetic history, flattened to candidate
// bout records in card order.
func (g *Generator) Candidates() []fetch.Candidate {
	rng := rand.New(rand.NewSource(g.seed)) //nolint:gosec // deterministic fixtures, not crypto

	roster := g.roster(rng)

	var out []fetch.Candidate
	for ev := 0; ev < g.events; ev++ {
		date := g.start.AddDate(0, ev, 0)
		eventID := fmt.Sprintf("evt-%04d", ev+1)
		eventName := fmt.Sprintf("Contest Night %d", ev+1)

		// Draw distinct fighters for the card.
		order := rng.Perm(len(roster))
		for bout := 0; bout < g.boutsPerEvent; bout++ {
			red := roster[order[(bout*2)%len(order)]]
			blue := roster[order[(bout*2+1)%len(order)]]

			method := methods[rng.Intn(len(methods))]
			round, clock := g.finishPoint(rng, method)

			winner := red.corner.Name
			switch r := rng.Float64(); {
			case r < 0.46:
				winner = blue.corner.Name
			case r < 0.94:
				// red keeps it
			case r < 0.97:
				winner = "Draw"
				method = "Decision - Split"
				round, clock = "3", "5:00"
			default:
				winner = "NC"
				method = "Overturned"
			}

			out = append(out, fetch.Candidate{
				EventID:     eventID,
				EventName:   eventName,
				EventDate:   date.Format("January 2, 2006"),
				BoutOrdinal: bout + 1,
				Winner:      winner,
				WeightClass: weightClasses[rng.Intn(len(weightClasses))],
				Method:      method,
				Round:       round,
				Time:        clock,
				Red:         g.withStats(rng, red.corner),
				Blue:        g.withStats(rng, blue.corner),
			})
		}
	}
	return out
}

func (g *Generator) roster(rng *rand.Rand) []fighter {
	seen := make(map[string]struct{}, g.rosterSize)
	roster := make([]fighter, 0, g.rosterSize)
	for len(roster) < g.rosterSize {
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		dob := time.Date(1985+rng.Intn(15), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		feet := 5
		inches := 4 + rng.Intn(12)
		if inches >= 12 {
			feet, inches = 6, inches-12
		}
		roster = append(roster, fighter{corner: fetch.Corner{
			Name:   name,
			Height: fmt.Sprintf("%d' %d\"", feet, inches),
			Reach:  fmt.Sprintf("%d\"", 64+rng.Intn(20)),
			Stance: []string{"Orthodox", "Southpaw", "Switch"}[rng.Intn(3)],
			DOB:    dob.Format("Jan 2, 2006"),
		}})
	}
	return roster
}

func (g *Generator) finishPoint(rng *rand.Rand, method string) (round, clock string) {
	if method == "Decision - Unanimous" || method == "Decision - Split" {
		return "3", "5:00"
	}
	return fmt.Sprintf("%d", 1+rng.Intn(3)), fmt.Sprintf("%d:%02d", rng.Intn(5), rng.Intn(60))
}

func (g *Generator) withStats(rng *rand.Rand, c fetch.Corner) fetch.Corner {
	sigAttempted := 20 + rng.Intn(100)
	sigLanded := rng.Intn(sigAttempted + 1)
	tdAttempted := rng.Intn(6)
	tdLanded := 0
	if tdAttempted > 0 {
		tdLanded = rng.Intn(tdAttempted + 1)
	}
	c.Stats = fetch.CornerStats{
		Knockdowns:   fmt.Sprintf("%d", rng.Intn(3)),
		SigStrikes:   fmt.Sprintf("%d of %d", sigLanded, sigAttempted),
		TotalStrikes: fmt.Sprintf("%d of %d", sigLanded+rng.Intn(40), sigAttempted+rng.Intn(60)),
		Takedowns:    fmt.Sprintf("%d of %d", tdLanded, tdAttempted),
		SubAttempts:  fmt.Sprintf("%d", rng.Intn(3)),
		Reversals:    fmt.Sprintf("%d", rng.Intn(2)),
		Control:      fmt.Sprintf("%d:%02d", rng.Intn(8), rng.Intn(60)),
	}
	return c
}

// snapshotFight mirrors one bout inside the export's event structure.
type snapshotFight struct {
	Winner      string       `json:"winner"`
	WeightClass string       `json:"weight_class"`
	Method      string       `json:"method"`
	Round       string       `json:"round"`
	Time        string       `json:"time"`
	Red         fetch.Corner `json:"red"`
	Blue        fetch.Corner `json:"blue"`
}

type snapshotEvent struct {
	EventID string          `json:"event_id"`
	Name    string          `json:"name"`
	Date    string          `json:"date"`
	Fights  []snapshotFight `json:"fights"`
}

// WriteSnapshot writes the generated history as a JSON export file in the
// same nested shape the acquisition side produces.
func (g *Generator) WriteSnapshot(path string) error {
	candidates := g.Candidates()

	var events []snapshotEvent
	byID := make(map[string]int)
	for _, cand := range candidates {
		idx, ok := byID[cand.EventID]
		if !ok {
			idx = len(events)
			byID[cand.EventID] = idx
			events = append(events, snapshotEvent{
				EventID: cand.EventID,
				Name:    cand.EventName,
				Date:    cand.EventDate,
			})
		}
		events[idx].Fights = append(events[idx].Fights, snapshotFight{
			Winner:      cand.Winner,
			WeightClass: cand.WeightClass,
			Method:      cand.Method,
			Round:       cand.Round,
			Time:        cand.Time,
			Red:         cand.Red,
			Blue:        cand.Blue,
		})
	}

	raw, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, raw, snapshotFilePermission); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// StaticFetcher serves a fixed candidate set, for tests and seeding.
type StaticFetcher struct {
	Candidates []fetch.Candidate
	Err        error
}

// Fetch implements fetch.Fetcher.
func (f *StaticFetcher) Fetch(ctx context.Context) ([]fetch.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Candidates, f.Err
}
