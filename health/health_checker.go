// Package health reports whether the served snapshot is fresh enough to use.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/kalimati-scraper/interfaces"
)

// The market publishes once a day; a missed day degrades, two make the data unusable.
const (
	DegradedAge  = 26 * time.Hour
	UnhealthyAge = 48 * time.Hour
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker interface
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.SnapshotStore
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(dataStore interfaces.SnapshotStore) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		dataStore: dataStore,
	}
}

// HealthCheck returns the status, the response data and the HTTP code for /health
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	records := h.dataStore.GetRecords()
	productMapping := h.dataStore.GetMapping()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := time.Since(lastUpdate)

	switch {
	case lastUpdate.IsZero() || len(records) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > UnhealthyAge:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > DegradedAge:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	untranslated := 0
	for _, english := range productMapping {
		if english == "" {
			untranslated++
		}
	}

	data = map[string]any{
		"source_file":     h.dataStore.GetSourceFile(),
		"records":         len(records),
		"mapping_entries": len(productMapping),
		"untranslated":    untranslated,
		"is_updating":     isUpdating,
	}
	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
		data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(start).Seconds())
	}

	return status, data, httpStatus
}
