package analytics

import (
	"sync"

	"pulse_analytics/internal/dataset"
)

// State holds the current constraint values. All three fields are guarded by
// one lock so a recompute always sees a consistent snapshot of the trio, and
// every mutation bumps the version so stale views are detectable.
type State struct {
	mu          sync.RWMutex
	version     uint64
	constraints Constraints
}

// NewState initializes constraints to the dataset defaults: the full observed
// date range and every observed intervention type and customer segment.
func NewState(snap *dataset.Snapshot) *State {
	s := &State{version: 1}
	s.constraints = defaultConstraints(snap)
	return s
}

func defaultConstraints(snap *dataset.Snapshot) Constraints {
	c := Constraints{
		Types:    snap.InterventionTypes(),
		Segments: snap.Segments(),
	}
	if min, max, ok := snap.DateBounds(); ok {
		c.Range = DateRange{Start: min, End: max}
	}
	return c
}

// Current returns a copy of the constraints and the version they belong to.
func (s *State) Current() (Constraints, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.constraints.clone(), s.version
}

// Set replaces all three constraint fields at once.
func (s *State) Set(c Constraints) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints = c.clone()
	s.version++
	return s.version
}

// SetDateRange updates the date range constraint.
func (s *State) SetDateRange(r DateRange) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints.Range = r
	s.version++
	return s.version
}

// SetTypes replaces the selected intervention types. An empty slice is valid
// and selects nothing.
func (s *State) SetTypes(types []string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints.Types = append([]string(nil), types...)
	s.version++
	return s.version
}

// SetSegments replaces the selected customer segments. An empty slice is
// valid and selects nothing.
func (s *State) SetSegments(segments []string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints.Segments = append([]string(nil), segments...)
	s.version++
	return s.version
}

// Reset restores the dataset defaults, used after a snapshot reload.
func (s *State) Reset(snap *dataset.Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints = defaultConstraints(snap)
	s.version++
	return s.version
}
