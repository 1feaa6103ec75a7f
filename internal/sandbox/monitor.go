package sandbox

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// memorySampleInterval balances detection latency against the cost of
// reading runtime memory statistics.
const memorySampleInterval = 2 * time.Millisecond

// memoryMonitor samples heap growth attributable to one execution. The
// accounting is best-effort: the Go runtime exposes process-wide heap
// figures, so the baseline delta approximates the run's own footprint and
// an allocation-heavy execution on another goroutine can be charged to a
// concurrent one. Callers needing hard attribution must serialize
// executions or size the ceiling with headroom for expected concurrency.
type memoryMonitor struct {
	limit    int64
	baseline uint64
	peak     atomic.Int64

	exceeded chan struct{}
	once     sync.Once

	stop chan struct{}
	done chan struct{}
}

func newMemoryMonitor(limit int64) *memoryMonitor {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m := &memoryMonitor{
		limit:    limit,
		baseline: ms.HeapAlloc,
		exceeded: make(chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *memoryMonitor) run() {
	defer close(m.done)
	ticker := time.NewTicker(memorySampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			m.sample()
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *memoryMonitor) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	var delta int64
	if ms.HeapAlloc > m.baseline {
		delta = int64(ms.HeapAlloc - m.baseline)
	}
	if delta > m.peak.Load() {
		m.peak.Store(delta)
	}
	if m.limit > 0 && delta > m.limit {
		m.once.Do(func() { close(m.exceeded) })
	}
}

// Exceeded is closed the first time the sampled delta crosses the limit.
func (m *memoryMonitor) Exceeded() <-chan struct{} { return m.exceeded }

// Stop takes a final sample and ends the sampling loop.
func (m *memoryMonitor) Stop() {
	close(m.stop)
	<-m.done
}

// Peak returns the highest delta observed so far.
func (m *memoryMonitor) Peak() int64 { return m.peak.Load() }
