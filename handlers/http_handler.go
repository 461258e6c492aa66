// Package handlers provides the HTTP handlers of the scraper API.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
	"github.com/giygas/medcodes-scraper/scheduler"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler interface
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	runStore  interfaces.RunStore
	scheduler interfaces.Scheduler
	health    interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(runStore interfaces.RunStore, sched interfaces.Scheduler, health interfaces.HealthChecker) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		runStore:  runStore,
		scheduler: sched,
		health:    health,
	}
}

// RunResponse is the body of POST /run
type RunResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  *entities.RunResult `json:"result,omitempty"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	NextRun       string         `json:"next_run,omitempty"`
	Data          map[string]any `json:"data"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, RunResponse{Status: "error", Message: message})
}

// TriggerRun runs the pipeline and responds with its result.
// A run already in progress yields 409, any pipeline failure 500.
func (h *HTTPHandlerImpl) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), scheduler.RunTimeout)
	defer cancel()

	result, err := h.scheduler.TriggerRun(ctx)
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		h.RespondWithError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		logging.Error("Triggered run failed", "error", err, "remote_addr", r.RemoteAddr)
		h.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.RespondWithJSON(w, http.StatusOK, RunResponse{
		Status:  "success",
		Message: fmt.Sprintf("Scraping completed successfully: %d codes", result.TotalCount),
		Result:  result,
	})
}

// LatestRun returns the result of the last successful run
func (h *HTTPHandlerImpl) LatestRun(w http.ResponseWriter, r *http.Request) {
	result := h.runStore.GetLastResult()
	if result == nil {
		h.RespondWithError(w, http.StatusNotFound, "no successful run yet")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, result)
}

// HealthCheck reports the health status with uptime and schedule information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.health.HealthCheck()

	var uptime time.Duration
	if start := h.runStore.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          data,
	}
	if next := h.scheduler.NextRun(); !next.IsZero() {
		response.NextRun = next.Format(time.RFC3339)
	}

	h.RespondWithJSON(w, httpStatus, response)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
