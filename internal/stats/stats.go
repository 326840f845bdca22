// Package stats counts CEP resolution outcomes. Counters live either in
// process memory or in Redis when several API instances share them.
package stats

import (
	"context"
	"maps"

	"github.com/cepcode/backend/internal/domain"
)

// Recorder is the contract both stores satisfy.
type Recorder interface {
	Record(ctx context.Context, ev domain.ResolutionEvent) error
	Counts(ctx context.Context) (Counts, error)
	Source() string
}

// Counts is a point-in-time copy of the counters.
type Counts struct {
	Outcomes map[domain.ResolutionOutcome]int64
	// Regions counts resolutions that produced a record, by region id.
	Regions map[int]int64
	// States counts the same resolutions by state.
	States map[string]int64
}

func newCounts() Counts {
	return Counts{
		Outcomes: make(map[domain.ResolutionOutcome]int64),
		Regions:  make(map[int]int64),
		States:   make(map[string]int64),
	}
}

func (c Counts) clone() Counts {
	return Counts{
		Outcomes: maps.Clone(c.Outcomes),
		Regions:  maps.Clone(c.Regions),
		States:   maps.Clone(c.States),
	}
}

// Total is the number of recorded events across every outcome.
func (c Counts) Total() int64 {
	var n int64
	for _, v := range c.Outcomes {
		n += v
	}
	return n
}

// HitRatio is cache hits over hits plus misses, or 0 before any lookup.
func (c Counts) HitRatio() float64 {
	hits := c.Outcomes[domain.OutcomeCacheHit]
	served := hits + c.Outcomes[domain.OutcomeCacheMiss]
	if served == 0 {
		return 0
	}
	return float64(hits) / float64(served)
}
