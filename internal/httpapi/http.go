package httpapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"pulse_analytics/analytics"
	"pulse_analytics/config"
	"pulse_analytics/internal/store"
	"pulse_analytics/metrics"
	"pulse_analytics/queue"
)

// Router builds HTTP handlers for /api and /ops. The /api surface is the
// presentation and constraint-input layer contract: raw numbers and
// sequences, no formatting.
type Router struct {
	cfg     config.Config
	service *analytics.Service
	store   *store.Store
	stats   *metrics.Metrics
	tasks   *queue.Queue
	reload  func(r *http.Request) error
}

func NewRouter(cfg config.Config, svc *analytics.Service, st *store.Store, stats *metrics.Metrics, tasks *queue.Queue, reload func(r *http.Request) error) *Router {
	return &Router{cfg: cfg, service: svc, store: st, stats: stats, tasks: tasks, reload: reload}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/views", r.views)
	mux.HandleFunc("/api/summary", r.summary)
	mux.HandleFunc("/api/trends/weekly", r.weeklyTrend)
	mux.HandleFunc("/api/trends/monthly", r.monthlyTrends)
	mux.HandleFunc("/api/portfolio", r.portfolio)
	mux.HandleFunc("/api/segments", r.segments)
	mux.HandleFunc("/api/cumulative", r.cumulative)
	mux.HandleFunc("/api/financial", r.financial)
	mux.HandleFunc("/api/options", r.options)
	mux.HandleFunc("/api/constraints", r.constraints)
	mux.HandleFunc("/ops/reload", r.opsReload)
	mux.HandleFunc("/ops/status", r.opsStatus)
	mux.HandleFunc("/ops/runs", r.opsRuns)
	mux.HandleFunc("/ops/health", r.health)
}

func (r *Router) views(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.service.Views(req.Context()))
}

func (r *Router) summary(w http.ResponseWriter, req *http.Request) {
	v := r.service.Views(req.Context())
	respondJSON(w, map[string]any{
		"total_savings":       v.TotalSavings,
		"total_interventions": v.TotalInterventions,
		"avg_confidence":      v.AvgConfidence,
		"unique_customers":    v.UniqueCustomers,
	})
}

func (r *Router) weeklyTrend(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.service.Views(req.Context()).WeeklySavings)
}

func (r *Router) monthlyTrends(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.service.Views(req.Context()).MonthlyTrends)
}

func (r *Router) portfolio(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.service.Views(req.Context()).Portfolio)
}

func (r *Router) segments(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.service.Views(req.Context()).SegmentAdoption)
}

func (r *Router) cumulative(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.service.Views(req.Context()).CumulativeSavings)
}

func (r *Router) financial(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.service.Views(req.Context()).Financial)
}

// options reports the observed filter domains the UI should offer.
func (r *Router) options(w http.ResponseWriter, req *http.Request) {
	snap := r.service.Snapshot()
	payload := map[string]any{
		"intervention_types": snap.InterventionTypes(),
		"customer_segments":  snap.Segments(),
	}
	if min, max, ok := snap.DateBounds(); ok {
		payload["date_range"] = map[string]string{
			"start": min.Format("2006-01-02"),
			"end":   max.Format("2006-01-02"),
		}
	}
	respondJSON(w, payload)
}

type constraintsRequest struct {
	DateRange *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"date_range"`
	Types    *[]string `json:"intervention_types"`
	Segments *[]string `json:"customer_segments"`
}

func (r *Router) constraints(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		current, version := r.service.State().Current()
		respondJSON(w, map[string]any{"constraints": current, "version": version})
	case http.MethodPut:
		var body constraintsRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		current, _ := r.service.State().Current()
		if body.DateRange != nil {
			rng, err := parseRange(body.DateRange.Start, body.DateRange.End)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			current.Range = rng
		}
		// Unknown types or segments are legal and simply match nothing;
		// empty slices are legal and select nothing.
		if body.Types != nil {
			current.Types = *body.Types
		}
		if body.Segments != nil {
			current.Segments = *body.Segments
		}
		version := r.service.State().Set(current)
		respondJSON(w, map[string]any{"constraints": current, "version": version})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func parseRange(start, end string) (analytics.DateRange, error) {
	var rng analytics.DateRange
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return rng, fmt.Errorf("invalid start date %q", start)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return rng, fmt.Errorf("invalid end date %q", end)
	}
	if e.Before(s) {
		return rng, fmt.Errorf("end date before start date")
	}
	rng.Start = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	rng.End = time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return rng, nil
}

func (r *Router) opsReload(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.reload(req); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"status": "queued"})
}

func (r *Router) opsStatus(w http.ResponseWriter, req *http.Request) {
	snap := r.stats.Snapshot()
	respondJSON(w, map[string]any{
		"recomputes":        snap.Recomputes,
		"last_recompute_us": snap.LastRecomputeUS,
		"working_set_rows":  snap.WorkingSetRows,
		"dataset_version":   snap.DatasetVersion,
		"reloads":           snap.Reloads,
		"failed_reloads":    snap.FailedReloads,
		"queue":             r.tasks.Stats(),
	})
}

func (r *Router) opsRuns(w http.ResponseWriter, req *http.Request) {
	limit := r.cfg.Analytics.RunHistoryLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := r.store.ListRuns(req.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, runs)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
