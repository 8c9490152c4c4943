package scheduler

import (
	"sync"
	"time"
)

// RunnerMetrics tracks statistics about fact gathering across turns.
type RunnerMetrics struct {
	FetchesDispatched int
	FetchesSuccessful int
	FetchesFailed     int
	TotalFetchTime    time.Duration
	LongestFetchTime  time.Duration
	ShortestFetchTime time.Duration
	FetchesByWorker   map[string]int

	mu sync.Mutex // Protects metrics updates
}

func newRunnerMetrics() *RunnerMetrics {
	return &RunnerMetrics{FetchesByWorker: make(map[string]int)}
}

func (m *RunnerMetrics) record(workerID string, succeeded bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchesDispatched++
	if succeeded {
		m.FetchesSuccessful++
	} else {
		m.FetchesFailed++
	}
	m.TotalFetchTime += elapsed
	if elapsed > m.LongestFetchTime {
		m.LongestFetchTime = elapsed
	}
	if m.ShortestFetchTime == 0 || elapsed < m.ShortestFetchTime {
		m.ShortestFetchTime = elapsed
	}
	m.FetchesByWorker[workerID]++
}

// Copy returns a snapshot without the mutex.
func (m *RunnerMetrics) Copy() RunnerMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	byWorker := make(map[string]int, len(m.FetchesByWorker))
	for k, v := range m.FetchesByWorker {
		byWorker[k] = v
	}
	return RunnerMetrics{
		FetchesDispatched: m.FetchesDispatched,
		FetchesSuccessful: m.FetchesSuccessful,
		FetchesFailed:     m.FetchesFailed,
		TotalFetchTime:    m.TotalFetchTime,
		LongestFetchTime:  m.LongestFetchTime,
		ShortestFetchTime: m.ShortestFetchTime,
		FetchesByWorker:   byWorker,
	}
}
