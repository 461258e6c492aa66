// Package pipeline runs one complete scrape: both sources, normalization,
// data quality reporting and storage of the three JSON artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/medcodes-scraper/apperrors"
	"github.com/giygas/medcodes-scraper/codesparser"
	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
	"github.com/giygas/medcodes-scraper/metrics"
	"github.com/giygas/medcodes-scraper/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Compile-time check to ensure Orchestrator implements Runner interface
var _ interfaces.Runner = (*Orchestrator)(nil)

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithClock replaces time.Now as the source of run timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator wires the scrapers to the storage backend
type Orchestrator struct {
	cms       interfaces.Scraper
	nucc      interfaces.Scraper
	storage   interfaces.Storage
	validator interfaces.DataValidator
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator. validator may be nil to skip
// data quality reporting.
func NewOrchestrator(cms, nucc interfaces.Scraper, store interfaces.Storage,
	validator interfaces.DataValidator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cms:       cms,
		nucc:      nucc,
		storage:   store,
		validator: validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type artifact struct {
	dataset string
	name    string
	data    []byte
}

// Run scrapes both sources concurrently and stores the combined, CMS and
// NUCC datasets. Nothing is stored when either source fails. All three
// artifact names carry the same timestamp, taken when the run starts.
func (o *Orchestrator) Run(ctx context.Context) (*entities.RunResult, error) {
	startedAt := o.now()
	runID := uuid.NewString()
	logging.Info("Starting scraping run", "run_id", runID)

	result, err := o.run(ctx, runID, startedAt)
	duration := o.now().Sub(startedAt)
	metrics.RunDuration.Observe(duration.Seconds())

	if err != nil {
		metrics.RunsTotal.WithLabelValues("failure").Inc()
		logging.Error("Scraping run failed",
			"run_id", runID,
			"kind", apperrors.KindOf(err),
			"duration", duration,
			"error", err)
		return nil, err
	}

	result.Duration = duration.Round(time.Millisecond).String()
	metrics.RunsTotal.WithLabelValues("success").Inc()
	metrics.RecordsScraped.WithLabelValues(string(entities.SourceCMS)).Set(float64(result.CMSCount))
	metrics.RecordsScraped.WithLabelValues(string(entities.SourceNUCC)).Set(float64(result.NUCCCount))

	logging.Info("Scraping run completed",
		"run_id", runID,
		"cms_codes", result.CMSCount,
		"nucc_codes", result.NUCCCount,
		"total_codes", result.TotalCount,
		"duration", result.Duration)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, runID string, startedAt time.Time) (*entities.RunResult, error) {
	cmsRows, nuccRows, err := o.scrape(ctx)
	if err != nil {
		return nil, err
	}

	cmsRecords, cmsDropped := codesparser.NormalizeAll(cmsRows)
	nuccRecords, nuccDropped := codesparser.NormalizeAll(nuccRows)
	if cmsDropped > 0 || nuccDropped > 0 {
		logging.Warn("Dropped rows during normalization", "cms", cmsDropped, "nucc", nuccDropped)
	}

	combined := make([]entities.CodeRecord, 0, len(cmsRecords)+len(nuccRecords))
	combined = append(combined, cmsRecords...)
	combined = append(combined, nuccRecords...)

	o.reportDataQuality(runID, combined)

	artifacts := []artifact{
		{dataset: entities.DatasetCombined, name: storage.Filename(storage.PrefixAll, startedAt)},
		{dataset: entities.DatasetCMS, name: storage.Filename(storage.PrefixCMS, startedAt)},
		{dataset: entities.DatasetNUCC, name: storage.Filename(storage.PrefixNUCC, startedAt)},
	}
	for i, records := range [][]entities.CodeRecord{combined, cmsRecords, nuccRecords} {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s dataset: %w", artifacts[i].dataset, err)
		}
		artifacts[i].data = data
	}

	locations, err := o.store(ctx, artifacts)
	if err != nil {
		return nil, err
	}

	return &entities.RunResult{
		RunID:      runID,
		CMSCount:   len(cmsRecords),
		NUCCCount:  len(nuccRecords),
		TotalCount: len(combined),
		Locations:  locations,
		StartedAt:  startedAt,
	}, nil
}

// scrape runs both scrapers to completion. The returned error joins the
// failures of both sources.
func (o *Orchestrator) scrape(ctx context.Context) ([]entities.RawRow, []entities.RawRow, error) {
	var (
		g                 errgroup.Group
		cmsRows, nuccRows []entities.RawRow
		cmsErr, nuccErr   error
	)

	g.Go(func() error {
		cmsRows, cmsErr = o.cms.Scrape(ctx)
		return nil
	})
	g.Go(func() error {
		nuccRows, nuccErr = o.nucc.Scrape(ctx)
		return nil
	})
	_ = g.Wait()

	if err := errors.Join(cmsErr, nuccErr); err != nil {
		return nil, nil, fmt.Errorf("scraping failed: %w", err)
	}
	return cmsRows, nuccRows, nil
}

// store writes all artifacts concurrently. If any write fails, the artifacts
// already written are removed so that a run leaves a complete set or nothing.
func (o *Orchestrator) store(ctx context.Context, artifacts []artifact) (map[string]string, error) {
	var (
		mu     sync.Mutex
		stored []string
	)
	locations := make(map[string]string, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range artifacts {
		a := a
		g.Go(func() error {
			location, err := o.storage.Store(gctx, a.data, a.name)
			if err != nil {
				if !errors.Is(err, apperrors.ErrStorage) {
					err = apperrors.NewStorageError(a.name, err)
				}
				return err
			}
			mu.Lock()
			locations[a.dataset] = location
			stored = append(stored, a.name)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.removeArtifacts(context.WithoutCancel(ctx), stored)
		return nil, fmt.Errorf("storing artifacts failed: %w", err)
	}
	return locations, nil
}

// removeArtifacts deletes a partial set of artifacts. Failures are logged,
// the run has already failed.
func (o *Orchestrator) removeArtifacts(ctx context.Context, names []string) {
	for _, name := range names {
		if err := o.storage.Delete(ctx, name); err != nil {
			logging.Error("Failed to remove partial artifact", "name", name, "error", err)
		}
	}
}

func (o *Orchestrator) reportDataQuality(runID string, records []entities.CodeRecord) {
	if o.validator == nil {
		return
	}

	report := o.validator.ReportDataQuality(records)
	if len(report.DuplicateCMSCodes) == 0 && len(report.DuplicateNUCCCodes) == 0 &&
		report.EmptyDescriptions == 0 && report.InvalidRecords == 0 {
		logging.Debug("Data quality check passed", "run_id", runID, "records", len(records))
		return
	}

	logging.Warn("Data quality issues detected",
		"run_id", runID,
		"duplicate_cms_codes", len(report.DuplicateCMSCodes),
		"duplicate_nucc_codes", len(report.DuplicateNUCCCodes),
		"empty_descriptions", report.EmptyDescriptions,
		"invalid_records", report.InvalidRecords,
		"invalid_samples", report.InvalidRecordSamples)
}
