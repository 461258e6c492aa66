package entities

import "time"

// Dataset names used as keys of RunResult.Locations
const (
	DatasetCombined = "combined"
	DatasetCMS      = "cms"
	DatasetNUCC     = "nucc"
)

// RunResult summarizes a successful pipeline run.
type RunResult struct {
	RunID      string            `json:"run_id"`
	CMSCount   int               `json:"cms_count"`
	NUCCCount  int               `json:"nucc_count"`
	TotalCount int               `json:"total_count"`
	Locations  map[string]string `json:"file_urls"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   string            `json:"duration"`
}
