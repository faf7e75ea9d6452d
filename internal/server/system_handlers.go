package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/pricer/internal/database"
)

// JobLister reports registered background jobs.
type JobLister interface {
	Jobs() []string
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status     string          `json:"status"`
	CPUPercent float64         `json:"cpu_percent"`
	MemPercent float64         `json:"memory_percent"`
	Uptime     string          `json:"uptime"`
	Database   *database.Stats `json:"database,omitempty"`
	Jobs       []string        `json:"jobs"`
	Timestamp  time.Time       `json:"timestamp"`
}

// SystemHandlers serves process and database status.
type SystemHandlers struct {
	log       zerolog.Logger
	db        *database.DB
	jobs      JobLister
	startedAt time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, db *database.DB, jobs JobLister) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		db:        db,
		jobs:      jobs,
		startedAt: time.Now(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:     "healthy",
		CPUPercent: cpuPercent,
		MemPercent: memPercent,
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Jobs:       []string{},
		Timestamp:  time.Now().UTC(),
	}

	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database statistics")
		response.Status = "degraded"
	} else {
		response.Database = stats
	}

	if h.jobs != nil {
		response.Jobs = h.jobs.Jobs()
		sort.Strings(response.Jobs)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// getSystemStats returns CPU and memory usage percentages.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// Sample over 100ms so the endpoint stays responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}
