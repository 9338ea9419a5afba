// Package schedule produces randomized verification instants for a work
// session window.
package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Policy are the generation parameters for one session.
type Policy struct {
	// MinIntervalMinutes and MaxIntervalMinutes bound the random gap between
	// consecutive verification instants.
	MinIntervalMinutes int
	// MaxIntervalMinutes is inclusive.
	MaxIntervalMinutes int
	// MinVerifications is the guaranteed lower bound on the number of
	// instants produced.
	MinVerifications int
	// CheckinGraceMinutes keeps the window after session start free of
	// verifications so workers have time to check in.
	CheckinGraceMinutes int
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	if p.MinIntervalMinutes < 1 {
		return fmt.Errorf("min interval must be at least 1 minute")
	}
	if p.MinIntervalMinutes > p.MaxIntervalMinutes {
		return fmt.Errorf("min interval cannot exceed max interval")
	}
	if p.MinVerifications < 1 {
		return fmt.Errorf("min verifications must be at least 1")
	}
	if p.CheckinGraceMinutes < 0 {
		return fmt.Errorf("check-in grace cannot be negative")
	}
	return nil
}

// Generator produces unpredictable verification schedules. The random source
// is injectable so tests can assert bounds deterministically; the zero
// default uses a time-seeded source.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator from a random source. Pass nil for a
// time-seeded source.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(src)}
}

// Instants returns an ascending, duplicate-free sequence of verification
// instants strictly between start+grace and end.
//
// The walk advances from start+grace by a uniform random integer number of
// minutes in [MinInterval, MaxInterval], discarding any step that lands at
// or after end. When that yields fewer than MinVerifications instants, the
// random walk is discarded entirely and exactly MinVerifications evenly
// spaced instants at (end-start)/(n+1) intervals are produced instead.
func (g *Generator) Instants(start, end time.Time, p Policy) ([]time.Time, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("session end must be after start")
	}

	grace := time.Duration(p.CheckinGraceMinutes) * time.Minute
	instants := g.randomWalk(start.Add(grace), end, p)

	if len(instants) < p.MinVerifications {
		instants = evenlySpaced(start, end, p.MinVerifications)
	}

	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })
	return dedupe(instants), nil
}

// randomWalk performs the randomized walk through (from, end).
func (g *Generator) randomWalk(from, end time.Time, p Policy) []time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	span := p.MaxIntervalMinutes - p.MinIntervalMinutes + 1
	var instants []time.Time

	cursor := from
	for {
		step := time.Duration(p.MinIntervalMinutes+g.rng.Intn(span)) * time.Minute
		cursor = cursor.Add(step)
		if !cursor.Before(end) {
			break
		}
		instants = append(instants, cursor)
	}
	return instants
}

// evenlySpaced returns exactly n instants strictly inside (start, end),
// spaced at (end-start)/(n+1).
func evenlySpaced(start, end time.Time, n int) []time.Time {
	interval := end.Sub(start) / time.Duration(n+1)
	instants := make([]time.Time, 0, n)
	for i := 1; i <= n; i++ {
		instants = append(instants, start.Add(time.Duration(i)*interval))
	}
	return instants
}

// dedupe removes consecutive duplicates from a sorted slice.
func dedupe(instants []time.Time) []time.Time {
	if len(instants) < 2 {
		return instants
	}
	out := instants[:1]
	for _, t := range instants[1:] {
		if !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}
