// Package health reports whether the scraper is keeping its artifacts fresh.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/medcodes-scraper/interfaces"
)

// Artifact age thresholds. Runs are scheduled at least daily.
const (
	DegradedAge  = 26 * time.Hour
	UnhealthyAge = 50 * time.Hour
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	runStore interfaces.RunStore
	now      func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(runStore interfaces.RunStore) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		runStore: runStore,
		now:      time.Now,
	}
}

// HealthCheck derives the status from the age of the last successful run.
// Before the first success the server uptime is used instead, so a freshly
// started process is healthy until its first run is overdue. A failure more
// recent than the last success degrades the status.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	now := h.now()
	lastSuccess := h.runStore.GetLastSuccess()
	lastErr, lastErrAt := h.runStore.GetLastError()
	isRunning := h.runStore.IsRunning()

	reference := lastSuccess
	if reference.IsZero() {
		reference = h.runStore.GetServerStartTime()
	}
	if reference.IsZero() {
		reference = now
	}
	age := now.Sub(reference)
	failing := lastErr != nil && lastErrAt.After(lastSuccess)

	switch {
	case age > UnhealthyAge:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case age > DegradedAge:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case failing:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"data_age_hours": math.Round(age.Hours()*10) / 10,
		"is_running":     isRunning,
	}

	if !lastSuccess.IsZero() {
		data["last_success"] = lastSuccess.Format(time.RFC3339)
	}
	if result := h.runStore.GetLastResult(); result != nil {
		data["cms_codes"] = result.CMSCount
		data["nucc_codes"] = result.NUCCCount
		data["total_codes"] = result.TotalCount
	}
	if failing {
		data["last_error"] = lastErr.Error()
		data["last_error_at"] = lastErrAt.Format(time.RFC3339)
	}

	return status, data, httpStatus
}
