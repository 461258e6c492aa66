// Package data keeps the state of pipeline runs behind atomic values so the
// scheduler, the HTTP handlers and the health checker can share it without locks.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
)

// Compile-time check to ensure RunContainer implements RunStore
var _ interfaces.RunStore = (*RunContainer)(nil)

type runFailure struct {
	err error
	at  time.Time
}

// RunContainer holds the outcome of the latest runs
type RunContainer struct {
	lastResult      atomic.Pointer[entities.RunResult]
	lastSuccess     atomic.Value // time.Time
	lastFailure     atomic.Pointer[runFailure]
	running         atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewRunContainer creates a RunContainer without any recorded run
func NewRunContainer() *RunContainer {
	rc := &RunContainer{}
	rc.lastSuccess.Store(time.Time{})
	rc.serverStartTime.Store(time.Time{})
	return rc
}

// GetLastResult returns the result of the last successful run, or nil
func (rc *RunContainer) GetLastResult() *entities.RunResult {
	return rc.lastResult.Load()
}

// GetLastSuccess returns when the last successful run finished
func (rc *RunContainer) GetLastSuccess() time.Time {
	if v := rc.lastSuccess.Load(); v != nil {
		if lastSuccess, ok := v.(time.Time); ok {
			return lastSuccess
		}
	}

	logging.Warn("Could not get the last success value")
	return time.Time{}
}

// GetLastError returns the error of the last failed run and when it
// happened. It is cleared by the next successful run.
func (rc *RunContainer) GetLastError() (error, time.Time) {
	if f := rc.lastFailure.Load(); f != nil {
		return f.err, f.at
	}
	return nil, time.Time{}
}

// RecordSuccess stores result as the latest run and clears the last error
func (rc *RunContainer) RecordSuccess(result *entities.RunResult) {
	rc.lastResult.Store(result)
	rc.lastSuccess.Store(time.Now())
	rc.lastFailure.Store(nil)
}

// RecordFailure stores err as the latest failure. The last successful
// result is kept.
func (rc *RunContainer) RecordFailure(err error) {
	rc.lastFailure.Store(&runFailure{err: err, at: time.Now()})
}

// IsRunning returns true if a run is currently in progress
func (rc *RunContainer) IsRunning() bool {
	return rc.running.Load()
}

// BeginRun marks the start of a run
// Returns true if the run can proceed, false if another run is in progress
func (rc *RunContainer) BeginRun() bool {
	return rc.running.CompareAndSwap(false, true)
}

// EndRun marks the end of a run
func (rc *RunContainer) EndRun() {
	rc.running.Store(false)
}

// SetServerStartTime sets the server start time
func (rc *RunContainer) SetServerStartTime(startTime time.Time) {
	rc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (rc *RunContainer) GetServerStartTime() time.Time {
	if v := rc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}
