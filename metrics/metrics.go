package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics captures shared operational stats for recomputes and data reloads.
type Metrics struct {
	recomputes      int64
	lastRecomputeUS int64
	workingSetRows  int64
	datasetVersion  int64

	reloads       int64
	failedReloads int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	Recomputes      int64
	LastRecomputeUS int64
	WorkingSetRows  int
	DatasetVersion  int64
	Reloads         int64
	FailedReloads   int64
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordRecompute records one recompute pass over the working set.
func (m *Metrics) RecordRecompute(elapsed time.Duration, rows int, datasetVersion int64) {
	atomic.AddInt64(&m.recomputes, 1)
	atomic.StoreInt64(&m.lastRecomputeUS, elapsed.Microseconds())
	atomic.StoreInt64(&m.workingSetRows, int64(rows))
	atomic.StoreInt64(&m.datasetVersion, datasetVersion)
}

// RecordReload increments reload counters based on outcome.
func (m *Metrics) RecordReload(err error) {
	atomic.AddInt64(&m.reloads, 1)
	if err != nil {
		atomic.AddInt64(&m.failedReloads, 1)
	}
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Recomputes:      atomic.LoadInt64(&m.recomputes),
		LastRecomputeUS: atomic.LoadInt64(&m.lastRecomputeUS),
		WorkingSetRows:  int(atomic.LoadInt64(&m.workingSetRows)),
		DatasetVersion:  atomic.LoadInt64(&m.datasetVersion),
		Reloads:         atomic.LoadInt64(&m.reloads),
		FailedReloads:   atomic.LoadInt64(&m.failedReloads),
	}
}
