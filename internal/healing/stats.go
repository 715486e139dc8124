package healing

import "sync"

// Stats is a read-only snapshot of the tracker's counters.
type Stats struct {
	TotalAttempts      uint64  `json:"totalAttempts"`
	SuccessfulAttempts uint64  `json:"successfulAttempts"`
	SuccessRate        float64 `json:"successRate"`
}

// StatisticsTracker keeps concurrency-safe aggregate healing counters. It is
// the only piece of coordinator state mutated on every Heal call, so both
// RecordAttempt and Stats take the mutex; counters are never read torn.
type StatisticsTracker struct {
	mu         sync.Mutex
	total      uint64
	successful uint64
}

// NewStatisticsTracker creates an empty tracker.
func NewStatisticsTracker() *StatisticsTracker {
	return &StatisticsTracker{}
}

// RecordAttempt increments the counters for one completed Heal call.
func (t *StatisticsTracker) RecordAttempt(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	if success {
		t.successful++
	}
}

// Stats returns a consistent snapshot of the counters.
func (t *StatisticsTracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{
		TotalAttempts:      t.total,
		SuccessfulAttempts: t.successful,
	}
	if t.total > 0 {
		stats.SuccessRate = float64(t.successful) / float64(t.total)
	}
	return stats
}
