package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"freshmart-api/internal/scheduler"
	"freshmart-api/pkg/apierror"
	"freshmart-api/pkg/response"
)

// JobLister exposes the live expiry timers.
type JobLister interface {
	Jobs() []scheduler.ScheduledJob
}

// StatsProvider reports data store statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// SweepRunner runs one expiry sweep on demand.
type SweepRunner interface {
	RunNow() map[string]int
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	jobs      JobLister
	store     StatsProvider
	sweeper   SweepRunner
	dbType    string
	cacheType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. sweeper may be nil when the
// periodic sweep is disabled.
func NewAdminHandler(jobs JobLister, store StatsProvider, sweeper SweepRunner, dbType, cacheType string) *AdminHandler {
	return &AdminHandler{
		jobs:      jobs,
		store:     store,
		sweeper:   sweeper,
		dbType:    dbType,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// ListJobs handles GET /api/v1/admin/jobs
func (h *AdminHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	response.List(w, h.jobs.Jobs())
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["cache_type"] = h.cacheType
	stats["live_jobs"] = len(h.jobs.Jobs())

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Data store stats
	dbStats, err := h.store.GetStats(ctx)
	if err == nil {
		dbStats["status"] = "connected"
		stats["database"] = dbStats
	} else {
		stats["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// Sweep handles POST /api/v1/admin/sweep
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		fail(w, apierror.ServiceUnavailable("expiry sweeper is disabled"))
		return
	}
	response.OK(w, map[string]interface{}{
		"expired": h.sweeper.RunNow(),
	})
}
