package codesparser

import (
	"context"
	"fmt"

	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
)

// CMSListURL is the CMS physician self-referral list of CPT/HCPCS codes
const CMSListURL = "https://www.cms.gov/medicare/regulations-guidance/physician-self-referral/list-cpt-hcpcs-codes"

// Compile-time check to ensure CMSScraper implements Scraper interface
var _ interfaces.Scraper = (*CMSScraper)(nil)

// CMSConfig holds the endpoint of the CMS scraper
type CMSConfig struct {
	URL string
}

// DefaultCMSConfig returns the production CMS endpoint
func DefaultCMSConfig() CMSConfig {
	return CMSConfig{URL: CMSListURL}
}

// CMSScraper reads CPT/HCPCS codes from the HTML tables of the CMS list page
type CMSScraper struct {
	fetcher interfaces.Fetcher
	config  CMSConfig
}

// NewCMSScraper creates a CMS scraper using fetcher for HTTP
func NewCMSScraper(fetcher interfaces.Fetcher, config CMSConfig) *CMSScraper {
	return &CMSScraper{fetcher: fetcher, config: config}
}

func (s *CMSScraper) Name() entities.Source {
	return entities.SourceCMS
}

// Scrape fetches the list page and returns one row per table row with at
// least a code and a description cell. All tables of the page are scanned.
// A page without tables yields no rows and no error.
func (s *CMSScraper) Scrape(ctx context.Context) ([]entities.RawRow, error) {
	logging.Info("Starting CMS CPT/HCPCS code scraping", "url", s.config.URL)

	resp, err := s.fetcher.Fetch(ctx, s.config.URL)
	if err != nil {
		return nil, fmt.Errorf("cms scrape failed: %w", err)
	}

	doc, err := parseDocument(resp.Body, s.config.URL)
	if err != nil {
		logging.Error("Error parsing CMS data", "url", s.config.URL, "error", err)
		return nil, fmt.Errorf("cms scrape failed: %w", err)
	}

	var rows []entities.RawRow
	skippedShortRows := 0
	skippedEmptyCodes := 0

	for _, cells := range tableRows(doc) {
		if len(cells) < 2 {
			skippedShortRows++
			continue
		}
		if cells[0] == "" {
			skippedEmptyCodes++
			continue
		}
		rows = append(rows, entities.RawRow{
			Source:      entities.SourceCMS,
			Code:        cells[0],
			Description: cells[1],
			Category:    entities.CMSCategory,
		})
	}

	if skippedShortRows > 0 || skippedEmptyCodes > 0 {
		logging.Debug("CMS table skip statistics",
			"short_rows", skippedShortRows,
			"empty_codes", skippedEmptyCodes,
			"records_parsed", len(rows))
	}

	logging.Info("Successfully scraped CMS codes", "count", len(rows))
	return rows, nil
}
