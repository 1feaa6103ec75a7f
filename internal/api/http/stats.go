package http

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultStatsWindow is how many recent executions feed the duration
// statistics.
const DefaultStatsWindow = 1024

// Stats aggregates execution outcomes and a sliding window of durations for
// the /api/stats endpoint. Safe for concurrent use.
type Stats struct {
	mu        sync.Mutex
	durations []float64 // seconds, ring buffer
	next      int
	full      bool
	outcomes  map[string]int64
	total     int64
}

// NewStats creates an aggregator with the given window size; size <= 0 uses
// DefaultStatsWindow.
func NewStats(window int) *Stats {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	return &Stats{
		durations: make([]float64, window),
		outcomes:  make(map[string]int64),
	}
}

// Record adds one finished execution.
func (s *Stats) Record(outcome string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.outcomes[outcome]++
	s.durations[s.next] = d.Seconds()
	s.next++
	if s.next == len(s.durations) {
		s.next = 0
		s.full = true
	}
}

// Snapshot is a point-in-time aggregate of recent executions. Duration
// figures are in milliseconds over the sliding window.
type Snapshot struct {
	TotalExecutions int64            `json:"total_executions"`
	Outcomes        map[string]int64 `json:"outcomes"`
	WindowSize      int              `json:"window_size"`

	DurationMeanMS   float64 `json:"duration_mean_ms"`
	DurationStdDevMS float64 `json:"duration_stddev_ms"`
	DurationP50MS    float64 `json:"duration_p50_ms"`
	DurationP90MS    float64 `json:"duration_p90_ms"`
	DurationP99MS    float64 `json:"duration_p99_ms"`
}

// Snapshot computes the current aggregate.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	n := s.next
	if s.full {
		n = len(s.durations)
	}
	window := make([]float64, n)
	copy(window, s.durations[:n])
	outcomes := make(map[string]int64, len(s.outcomes))
	for k, v := range s.outcomes {
		outcomes[k] = v
	}
	total := s.total
	s.mu.Unlock()

	snap := Snapshot{
		TotalExecutions: total,
		Outcomes:        outcomes,
		WindowSize:      n,
	}
	if n == 0 {
		return snap
	}

	sort.Float64s(window)
	const toMS = 1000
	snap.DurationMeanMS = stat.Mean(window, nil) * toMS
	if n > 1 {
		snap.DurationStdDevMS = stat.StdDev(window, nil) * toMS
	}
	snap.DurationP50MS = stat.Quantile(0.5, stat.Empirical, window, nil) * toMS
	snap.DurationP90MS = stat.Quantile(0.9, stat.Empirical, window, nil) * toMS
	snap.DurationP99MS = stat.Quantile(0.99, stat.Empirical, window, nil) * toMS
	return snap
}
