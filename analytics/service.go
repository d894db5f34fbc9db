package analytics

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pulse_analytics/internal/dataset"
	"pulse_analytics/internal/events"
	"pulse_analytics/metrics"
)

// Run is one recorded recompute pass.
type Run struct {
	ID                string
	Trigger           string
	StartedAt         time.Time
	FinishedAt        time.Time
	Status            string
	WorkingSetSize    int
	DatasetVersion    int64
	ConstraintVersion uint64
}

// RunLog persists recompute runs. Implemented by the sqlite store.
type RunLog interface {
	RecordRun(ctx context.Context, run Run) error
}

// Service owns the dataset snapshot and the constraint state and publishes an
// immutable Views value per recompute. Views are memoized by (constraint
// version, dataset version): reads recompute only when either changed, so an
// aggregation can never observe a working set derived from stale constraints.
type Service struct {
	state *State

	mu       sync.Mutex
	snapshot *dataset.Snapshot
	views    Views
	viewsFor struct {
		constraint uint64
		dataset    int64
	}
	computed bool

	runlog RunLog
	stats  *metrics.Metrics
	bus    *events.Bus
}

// NewService builds a Service around an initial snapshot. runlog, stats, and
// bus may be nil.
func NewService(snap *dataset.Snapshot, runlog RunLog, stats *metrics.Metrics, bus *events.Bus) *Service {
	return &Service{
		state:    NewState(snap),
		snapshot: snap,
		runlog:   runlog,
		stats:    stats,
		bus:      bus,
	}
}

// State exposes the constraint state for the constraint input layer.
func (s *Service) State() *State { return s.state }

// Snapshot returns the current dataset snapshot.
func (s *Service) Snapshot() *dataset.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Views returns the aggregate views for the current constraints, recomputing
// them first when the constraints or the dataset changed since the last pass.
func (s *Service) Views(ctx context.Context) Views {
	constraints, version := s.state.Current()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.computed && s.viewsFor.constraint == version && s.viewsFor.dataset == s.snapshot.Version {
		return s.views
	}
	return s.recomputeLocked(ctx, constraints, version, "constraints")
}

// ReplaceSnapshot swaps in a freshly loaded snapshot, resets constraints to
// the new dataset defaults, and recomputes eagerly.
func (s *Service) ReplaceSnapshot(ctx context.Context, snap *dataset.Snapshot) Views {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	version := s.state.Reset(snap)
	constraints, _ := s.state.Current()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked(ctx, constraints, version, "reload")
}

func (s *Service) recomputeLocked(ctx context.Context, constraints Constraints, version uint64, trigger string) Views {
	started := time.Now().UTC()
	ws := BuildWorkingSet(s.snapshot, constraints)
	views := Compute(ws, s.snapshot, constraints)
	views.ConstraintVersion = version

	s.views = views
	s.viewsFor.constraint = version
	s.viewsFor.dataset = s.snapshot.Version
	s.computed = true

	elapsed := time.Since(started)
	if s.stats != nil {
		s.stats.RecordRecompute(elapsed, ws.Len(), s.snapshot.Version)
	}
	if s.runlog != nil {
		run := Run{
			ID:                uuid.NewString(),
			Trigger:           trigger,
			StartedAt:         started,
			FinishedAt:        started.Add(elapsed),
			Status:            "ok",
			WorkingSetSize:    ws.Len(),
			DatasetVersion:    s.snapshot.Version,
			ConstraintVersion: version,
		}
		if err := s.runlog.RecordRun(ctx, run); err != nil {
			log.Printf("run log write failed: %v", err)
		}
	}
	if s.bus != nil {
		kind := events.KindRecompute
		if trigger == "reload" {
			kind = events.KindReload
		}
		s.bus.Publish(events.Event{
			Kind:              kind,
			At:                started,
			ConstraintVersion: version,
			DatasetVersion:    s.snapshot.Version,
			WorkingSetSize:    ws.Len(),
		})
	}
	return views
}
