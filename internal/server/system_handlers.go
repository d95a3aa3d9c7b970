package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/markowitz/internal/database"
	"github.com/aristath/markowitz/internal/scheduler"
)

// SystemHandlers handles system monitoring and maintenance endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	cacheDB     *database.DB
	scheduler   *scheduler.Scheduler
}

// NewSystemHandlers creates a new system handlers instance. Both cacheDB and
// sched may be nil.
func NewSystemHandlers(log zerolog.Logger, cacheDB *database.DB, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		cacheDB:     cacheDB,
		scheduler:   sched,
	}
}

// SystemStatusResponse represents the process and cache status
type SystemStatusResponse struct {
	Status      string          `json:"status"`
	UptimeHours float64         `json:"uptime_hours"`
	CPUPercent  float64         `json:"cpu_percent"`
	RAMPercent  float64         `json:"ram_percent"`
	Goroutines  int             `json:"goroutines"`
	Cache       *database.Stats `json:"cache,omitempty"`
}

// HandleSystemStatus returns process and cache statistics
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:      "healthy",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		Goroutines:  runtime.NumGoroutine(),
	}

	if h.cacheDB != nil {
		stats, err := h.cacheDB.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get cache database stats")
			response.Status = "degraded"
		} else {
			response.Cache = stats
		}
	}

	h.writeJSON(w, response)
}

// HandleListJobs lists the scheduled maintenance jobs
// GET /api/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobInfo{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	h.writeJSON(w, map[string]interface{}{"jobs": jobs})
}

// HandleRunJob runs a registered job immediately
// POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.scheduler == nil {
		h.writeJSONStatus(w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "No scheduler configured",
		})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")

	if err := h.scheduler.RunNow(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrUnknownJob) {
			status = http.StatusNotFound
		}
		h.writeJSONStatus(w, status, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": "Job " + name + " completed",
	})
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *SystemHandlers) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
