package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"pulse_analytics/analytics"
	"pulse_analytics/config"
	"pulse_analytics/internal/events"
	"pulse_analytics/internal/httpapi"
	"pulse_analytics/internal/ingest"
	"pulse_analytics/internal/store"
	"pulse_analytics/internal/watch"
	"pulse_analytics/metrics"
	"pulse_analytics/queue"
)

// App wires the analytics pipeline together: store, snapshot, service,
// reload tasks, watcher, and HTTP surface.
type App struct {
	cfg     config.Config
	store   *store.Store
	service *analytics.Service
	stats   *metrics.Metrics
	bus     *events.Bus
	tasks   *queue.Queue
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := seedIfEmpty(ctx, cfg, st); err != nil {
		return nil, err
	}
	snap, err := st.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	stats := metrics.New()
	bus := events.NewBus()
	svc := analytics.NewService(snap, st, stats, bus)
	tasks := queue.New(cfg.TaskQueueSize, cfg.WorkerCount, time.Duration(cfg.TaskTimeout)*time.Second)

	a := &App{
		cfg:     cfg,
		store:   st,
		service: svc,
		stats:   stats,
		bus:     bus,
		tasks:   tasks,
		mux:     http.NewServeMux(),
	}
	a.watcher = watch.New(cfg, tasks, a.reload)
	router := httpapi.NewRouter(cfg, svc, st, stats, tasks, func(r *http.Request) error {
		if ok := tasks.Enqueue(queue.Task{ID: "reload:ops", Source: "ops", Work: a.reload}); !ok {
			return errors.New("task queue full")
		}
		return nil
	})
	router.Register(a.mux)
	return a, nil
}

// seedIfEmpty populates the store on first start: from the CSV drop when
// present, otherwise from generated sample data when seeding is enabled.
func seedIfEmpty(ctx context.Context, cfg config.Config, st *store.Store) error {
	version, err := st.DatasetVersion(ctx)
	if err != nil {
		return err
	}
	if version > 0 {
		return nil
	}
	tables, err := ingest.LoadDir(cfg.DataDir)
	if errors.Is(err, os.ErrNotExist) {
		if !cfg.Analytics.SeedOnEmpty {
			return errors.New("no data files and seeding disabled")
		}
		log.Printf("no csv files in %s, seeding sample data", cfg.DataDir)
		tables = ingest.Sample(cfg.Analytics.SeedRNG)
	} else if err != nil {
		return err
	}
	v, err := st.ReplaceAll(ctx, tables.Customers, tables.Interventions, tables.Usage, tables.SupportTickets)
	if err != nil {
		return err
	}
	log.Printf("dataset loaded: version=%d customers=%d interventions=%d", v, len(tables.Customers), len(tables.Interventions))
	return nil
}

// reload re-ingests the CSV drop and swaps in a fresh snapshot. The current
// snapshot stays live when the reload fails.
func (a *App) reload(ctx context.Context) error {
	tables, err := ingest.LoadDir(a.cfg.DataDir)
	if err != nil {
		a.stats.RecordReload(err)
		return err
	}
	if _, err := a.store.ReplaceAll(ctx, tables.Customers, tables.Interventions, tables.Usage, tables.SupportTickets); err != nil {
		a.stats.RecordReload(err)
		return err
	}
	snap, err := a.store.LoadSnapshot(ctx)
	if err != nil {
		a.stats.RecordReload(err)
		return err
	}
	views := a.service.ReplaceSnapshot(ctx, snap)
	a.stats.RecordReload(nil)
	log.Printf("snapshot reloaded: version=%d interventions=%d working_set=%d", snap.Version, len(snap.Interventions), views.WorkingSetSize)
	return nil
}

// Run starts workers, the watcher, the refresh ticker, and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	a.tasks.Start(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	go a.logEvents(ctx)
	go a.refreshLoop(ctx)

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) logEvents(ctx context.Context) {
	sub := a.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			log.Printf("event=%s constraint_version=%d dataset_version=%d working_set=%d", ev.Kind, ev.ConstraintVersion, ev.DatasetVersion, ev.WorkingSetSize)
		}
	}
}

// refreshLoop periodically re-ingests the CSV drop so external file swaps are
// picked up even with the watcher disabled.
func (a *App) refreshLoop(ctx context.Context) {
	if a.cfg.Analytics.RefreshIntervalSec <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(a.cfg.Analytics.RefreshIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tasks.Enqueue(queue.Task{ID: "reload:scheduled", Source: "scheduler", Work: a.reload})
		}
	}
}

// Service exposes the analytics service for tests and the control plane.
func (a *App) Service() *analytics.Service { return a.service }
func (a *App) Store() *store.Store         { return a.store }
func (a *App) Mux() *http.ServeMux         { return a.mux }
