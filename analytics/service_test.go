package analytics

import (
	"context"
	"sync"
	"testing"
)

type memRunLog struct {
	mu   sync.Mutex
	runs []Run
}

func (m *memRunLog) RecordRun(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRunLog) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func TestStateDefaultsToObservedDomains(t *testing.T) {
	snap := fixtureSnapshot()
	state := NewState(snap)
	c, version := state.Current()
	if version == 0 {
		t.Fatal("initial version must be nonzero")
	}
	if len(c.Types) != 2 || len(c.Segments) != 2 {
		t.Fatalf("defaults = %+v", c)
	}
	if !c.Range.Start.Equal(day(2024, 1, 1)) || !c.Range.End.Equal(day(2024, 2, 15)) {
		t.Fatalf("default range = %+v", c.Range)
	}
}

func TestStateVersionBumpsOnEveryMutation(t *testing.T) {
	snap := fixtureSnapshot()
	state := NewState(snap)
	_, v0 := state.Current()
	v1 := state.SetTypes([]string{"Billing"})
	v2 := state.SetSegments(nil)
	v3 := state.SetDateRange(DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 2)})
	if !(v0 < v1 && v1 < v2 && v2 < v3) {
		t.Fatalf("versions not monotonic: %d %d %d %d", v0, v1, v2, v3)
	}
}

func TestStateCurrentReturnsACopy(t *testing.T) {
	snap := fixtureSnapshot()
	state := NewState(snap)
	c, _ := state.Current()
	c.Types[0] = "mutated"
	fresh, _ := state.Current()
	if fresh.Types[0] == "mutated" {
		t.Fatal("Current must return an independent copy")
	}
}

func TestServiceMemoizesByVersion(t *testing.T) {
	snap := fixtureSnapshot()
	runlog := &memRunLog{}
	svc := NewService(snap, runlog, nil, nil)
	ctx := context.Background()

	svc.Views(ctx)
	svc.Views(ctx)
	if got := runlog.count(); got != 1 {
		t.Fatalf("expected 1 recompute for repeated reads, got %d", got)
	}

	svc.State().SetTypes([]string{"Billing"})
	svc.Views(ctx)
	if got := runlog.count(); got != 2 {
		t.Fatalf("expected recompute after constraint change, got %d runs", got)
	}
}

func TestServiceViewsReflectConstraintChange(t *testing.T) {
	snap := fixtureSnapshot()
	svc := NewService(snap, nil, nil, nil)
	ctx := context.Background()

	before := svc.Views(ctx)
	if before.TotalInterventions != 3 {
		t.Fatalf("initial interventions %d, want 3", before.TotalInterventions)
	}

	svc.State().SetSegments([]string{"Budget Conscious"})
	after := svc.Views(ctx)
	if after.TotalInterventions != 1 {
		t.Fatalf("filtered interventions %d, want 1", after.TotalInterventions)
	}
	if after.ConstraintVersion <= before.ConstraintVersion {
		t.Fatal("views must carry the new constraint version")
	}
}

func TestServiceReplaceSnapshotResetsConstraints(t *testing.T) {
	snap := fixtureSnapshot()
	svc := NewService(snap, nil, nil, nil)
	ctx := context.Background()

	svc.State().SetSegments(nil)
	if svc.Views(ctx).TotalInterventions != 0 {
		t.Fatal("empty segment selection should empty the working set")
	}

	fresh := fixtureSnapshot()
	views := svc.ReplaceSnapshot(ctx, fresh)
	if views.TotalInterventions != 3 {
		t.Fatalf("reload should reset constraints to defaults, got %d rows", views.TotalInterventions)
	}
}

func TestServiceRunLedgerEntries(t *testing.T) {
	snap := fixtureSnapshot()
	runlog := &memRunLog{}
	svc := NewService(snap, runlog, nil, nil)
	ctx := context.Background()

	svc.Views(ctx)
	svc.ReplaceSnapshot(ctx, fixtureSnapshot())

	runlog.mu.Lock()
	defer runlog.mu.Unlock()
	if len(runlog.runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runlog.runs))
	}
	if runlog.runs[0].Trigger != "constraints" || runlog.runs[1].Trigger != "reload" {
		t.Fatalf("triggers = %q, %q", runlog.runs[0].Trigger, runlog.runs[1].Trigger)
	}
	for _, run := range runlog.runs {
		if run.ID == "" || run.Status != "ok" {
			t.Fatalf("malformed run: %+v", run)
		}
	}
}

func TestServiceConcurrentReads(t *testing.T) {
	snap := fixtureSnapshot()
	svc := NewService(snap, nil, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if n%2 == 0 {
					svc.State().SetTypes([]string{"Billing"})
				}
				views := svc.Views(ctx)
				if views.TotalInterventions != views.WorkingSetSize {
					t.Errorf("torn views: %d != %d", views.TotalInterventions, views.WorkingSetSize)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
