package stats

import (
	"context"
	"sync"

	"github.com/cepcode/backend/internal/domain"
)

// MemoryRecorder keeps counters in process memory. Nothing expires.
type MemoryRecorder struct {
	mu     sync.Mutex
	counts Counts
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counts: newCounts()}
}

func (m *MemoryRecorder) Record(_ context.Context, ev domain.ResolutionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts.Outcomes[ev.Outcome]++
	if ev.RegionID != 0 {
		m.counts.Regions[ev.RegionID]++
	}
	if ev.State != "" {
		m.counts.States[ev.State]++
	}
	return nil
}

func (m *MemoryRecorder) Counts(context.Context) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts.clone(), nil
}

func (m *MemoryRecorder) Source() string { return "memory" }
