// Package interfaces defines the contracts between the scraper's packages
// so that fetching, scraping, storage and scheduling can be swapped in tests.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/medcodes-scraper/codesparser/entities"
)

// DataQualityReport summarizes data issues found in a scraped dataset.
// None of them fail a run, they are logged for follow-up.
type DataQualityReport struct {
	DuplicateCMSCodes    []string
	DuplicateNUCCCodes   []string
	EmptyDescriptions    int
	InvalidRecords       int
	InvalidRecordSamples []string // At most a few codes, for the logs
}

// Response is a successful upstream response
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher performs GET requests against upstream sources.
// Any transport failure or non-2xx status is returned as an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Scraper extracts the raw rows of one upstream dataset
type Scraper interface {
	Name() entities.Source
	Scrape(ctx context.Context) ([]entities.RawRow, error)
}

// Storage persists a serialized payload under name and returns where it was stored
type Storage interface {
	Store(ctx context.Context, data []byte, name string) (string, error)
	// Delete removes a stored payload. A missing payload is not an error.
	Delete(ctx context.Context, name string) error
}

// Runner executes one complete scrape and store pass
type Runner interface {
	Run(ctx context.Context) (*entities.RunResult, error)
}

// RunStore keeps the state of the latest runs for health checks and the HTTP API
type RunStore interface {
	GetLastResult() *entities.RunResult
	GetLastSuccess() time.Time
	GetLastError() (error, time.Time)
	RecordSuccess(result *entities.RunResult)
	RecordFailure(err error)
	IsRunning() bool
	BeginRun() bool
	EndRun()
	GetServerStartTime() time.Time
}

// Scheduler defines the contract for job scheduling and health monitoring.
type Scheduler interface {
	Start() error
	Stop()
	// TriggerRun runs the pipeline immediately, outside of the schedule
	TriggerRun(ctx context.Context) (*entities.RunResult, error)
	NextRun() time.Time
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator checks records and reports data quality
type DataValidator interface {
	ValidateRecord(r *entities.CodeRecord) error
	ReportDataQuality(records []entities.CodeRecord) *DataQualityReport
}

// HTTPHandler serves the HTTP API of the scraper
type HTTPHandler interface {
	TriggerRun(w http.ResponseWriter, r *http.Request)
	LatestRun(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}
