package codesparser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/giygas/medcodes-scraper/apperrors"
	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
	"github.com/giygas/medcodes-scraper/metrics"
)

const (
	// NUCCBaseURL is the taxonomy landing page, used to discover the current CSV
	NUCCBaseURL = "https://taxonomy.nucc.org/"
	// NUCCCSVURL is the last known CSV export. Its version number changes with
	// every release, the landing page discovery covers stale values.
	NUCCCSVURL = "https://taxonomy.nucc.org/cs/groups/public/documents/datalist/nucc_taxonomy_234.csv"

	// DefaultNUCCCategory is used for HTML rows without a third cell
	DefaultNUCCCategory = "General"

	csvLinkMarker = ".csv"
)

// Strategies of the NUCC scraper, in the order they are attempted
const (
	StrategyCSV           = "csv"
	StrategyDiscoveredCSV = "discovered_csv"
	StrategyHTML          = "html"
)

// Compile-time check to ensure NUCCScraper implements Scraper interface
var _ interfaces.Scraper = (*NUCCScraper)(nil)

// NUCCConfig holds the endpoints of the NUCC scraper
type NUCCConfig struct {
	CSVURL  string
	BaseURL string
}

// DefaultNUCCConfig returns the production NUCC endpoints
func DefaultNUCCConfig() NUCCConfig {
	return NUCCConfig{CSVURL: NUCCCSVURL, BaseURL: NUCCBaseURL}
}

// NUCCScraper reads the NUCC provider taxonomy. It tries the known CSV
// export first, then a CSV link found on the landing page, then the HTML
// tables of the landing page.
type NUCCScraper struct {
	fetcher interfaces.Fetcher
	config  NUCCConfig
}

// NewNUCCScraper creates a NUCC scraper using fetcher for HTTP
func NewNUCCScraper(fetcher interfaces.Fetcher, config NUCCConfig) *NUCCScraper {
	return &NUCCScraper{fetcher: fetcher, config: config}
}

func (s *NUCCScraper) Name() entities.Source {
	return entities.SourceNUCC
}

// Scrape runs the fallback chain and returns the rows of the first strategy
// that succeeds. Failures of intermediate strategies are logged, the error
// returned when every strategy failed joins all of them.
func (s *NUCCScraper) Scrape(ctx context.Context) ([]entities.RawRow, error) {
	logging.Info("Starting NUCC taxonomy code scraping", "url", s.config.CSVURL)

	rows, err := s.scrapeCSV(ctx, s.config.CSVURL)
	if err == nil {
		return s.done(rows, StrategyCSV), nil
	}
	logging.Warn("NUCC CSV download failed, attempting landing page", "url", s.config.CSVURL, "error", err)
	failures := []error{err}

	page, err := s.fetcher.Fetch(ctx, s.config.BaseURL)
	if err != nil {
		return nil, s.failed(append(failures, err))
	}

	doc, err := parseDocument(page.Body, s.config.BaseURL)
	if err != nil {
		return nil, s.failed(append(failures, err))
	}

	if link, ok := discoverCSVLink(doc, s.config.BaseURL); ok {
		logging.Info("Found NUCC CSV download link", "url", link)

		rows, err := s.scrapeCSV(ctx, link)
		if err == nil {
			return s.done(rows, StrategyDiscoveredCSV), nil
		}
		logging.Warn("Discovered NUCC CSV failed, falling back to HTML tables", "url", link, "error", err)
		failures = append(failures, err)
	}

	rows = nuccRowsFromTables(doc)
	if len(rows) == 0 {
		return nil, s.failed(append(failures,
			apperrors.NewParseError("parse html", s.config.BaseURL, "no taxonomy table rows found", nil)))
	}

	return s.done(rows, StrategyHTML), nil
}

func (s *NUCCScraper) scrapeCSV(ctx context.Context, csvURL string) ([]entities.RawRow, error) {
	resp, err := s.fetcher.Fetch(ctx, csvURL)
	if err != nil {
		return nil, err
	}
	return parseTaxonomyCSV(resp.Body, csvURL)
}

func (s *NUCCScraper) done(rows []entities.RawRow, strategy string) []entities.RawRow {
	metrics.NUCCStrategyTotal.WithLabelValues(strategy).Inc()
	logging.Info("Successfully scraped NUCC taxonomy codes", "count", len(rows), "strategy", strategy)
	return rows
}

func (s *NUCCScraper) failed(failures []error) error {
	return fmt.Errorf("nucc scrape failed, all strategies exhausted: %w", errors.Join(failures...))
}

// discoverCSVLink returns the absolute URL of the first anchor whose href
// looks like a CSV file. Relative hrefs are resolved against baseURL.
func discoverCSVLink(doc *goquery.Document, baseURL string) (string, bool) {
	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		value, _ := a.Attr("href")
		value = strings.TrimSpace(value)
		if strings.Contains(strings.ToLower(value), csvLinkMarker) {
			href = value
			return false
		}
		return true
	})
	if href == "" {
		return "", false
	}

	resolved, err := resolveURL(baseURL, href)
	if err != nil {
		logging.Warn("Ignoring unparseable CSV link", "href", href, "error", err)
		return "", false
	}
	return resolved, true
}

func resolveURL(baseURL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func nuccRowsFromTables(doc *goquery.Document) []entities.RawRow {
	var rows []entities.RawRow
	for _, cells := range tableRows(doc) {
		if len(cells) < 2 || cells[0] == "" {
			continue
		}
		category := DefaultNUCCCategory
		if len(cells) > 2 {
			category = cells[2]
		}
		rows = append(rows, entities.RawRow{
			Source:      entities.SourceNUCC,
			Code:        cells[0],
			Description: cells[1],
			Category:    category,
		})
	}
	return rows
}
