package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/nkoutso/portico/internal/database"
)

// SystemHandlers serves process and host level status endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	db        *database.DB
	startedAt time.Time
}

func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		db:        db,
		startedAt: time.Now(),
	}
}

// HandleHealth is the liveness probe.
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Conn().PingContext(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Health check database ping failed")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, map[string]string{"status": "ok"})
}

// HandleSystemStatus reports host and process statistics.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	h.writeJSON(w, map[string]any{
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
		"data_dir_mb":    h.getDirSize(h.dataDir),
	})
}

// HandleDatabaseStats reports row counts per table.
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]int64)
	for _, table := range []string{"portfolios", "assets", "price_alerts"} {
		var count int64
		// Table names are from a fixed list, not user input.
		if err := h.db.Conn().QueryRowContext(r.Context(), "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			h.log.Error().Err(err).Str("table", table).Msg("Failed to count table rows")
			http.Error(w, "failed to read database stats", http.StatusInternalServerError)
			return
		}
		stats[table] = count
	}
	h.writeJSON(w, stats)
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sample so the status endpoint stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
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

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
