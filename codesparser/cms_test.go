package codesparser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/giygas/medcodes-scraper/apperrors"
	"github.com/giygas/medcodes-scraper/codesparser/entities"
)

const testCMSURL = "https://cms.test/list-cpt-hcpcs-codes"

func cmsPage(tables ...string) string {
	return "<html><body>" + strings.Join(tables, "<p>text</p>") + "</body></html>"
}

func cmsTable(rows ...string) string {
	return "<table><tr><th>Code</th><th>Description</th></tr>" + strings.Join(rows, "") + "</table>"
}

func cmsRow(cells ...string) string {
	var b strings.Builder
	b.WriteString("<tr>")
	for _, c := range cells {
		b.WriteString("<td>" + c + "</td>")
	}
	b.WriteString("</tr>")
	return b.String()
}

func TestCMSScraperParsesRows(t *testing.T) {
	page := cmsPage(cmsTable(
		cmsRow("99213", "Office visit"),
		cmsRow(" 0001U ", "  Red blood cell antigen typing  ", "extra"),
	))
	fetcher := newFakeFetcher().serve(testCMSURL, page)

	rows, err := NewCMSScraper(fetcher, CMSConfig{URL: testCMSURL}).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	want := []entities.RawRow{
		{Source: entities.SourceCMS, Code: "99213", Description: "Office visit", Category: entities.CMSCategory},
		{Source: entities.SourceCMS, Code: "0001U", Description: "Red blood cell antigen typing", Category: entities.CMSCategory},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}

	if got := fetcher.requests(); len(got) != 1 || got[0] != testCMSURL {
		t.Errorf("requested %v, want exactly [%s]", got, testCMSURL)
	}
}

func TestCMSScraperKeepsInnerWhitespace(t *testing.T) {
	page := cmsPage(cmsTable(cmsRow("\n 99214\t", "  Office   visit,\n  established  ")))
	fetcher := newFakeFetcher().serve(testCMSURL, page)

	rows, err := NewCMSScraper(fetcher, CMSConfig{URL: testCMSURL}).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1: %+v", len(rows), rows)
	}
	if rows[0].Code != "99214" {
		t.Errorf("Code = %q, want %q", rows[0].Code, "99214")
	}
	if want := "Office   visit,\n  established"; rows[0].Description != want {
		t.Errorf("Description = %q, want %q", rows[0].Description, want)
	}
}

func TestCMSScraperNestedTables(t *testing.T) {
	inner := cmsTable(cmsRow("99213", "Office visit"), cmsRow("99214", "Office visit, established"))
	layout := "<table><tr><td>layout header</td></tr><tr><td>" + inner + "</td><td>sidebar</td></tr></table>"
	fetcher := newFakeFetcher().serve(testCMSURL, cmsPage(layout))

	rows, err := NewCMSScraper(fetcher, CMSConfig{URL: testCMSURL}).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	want := []string{"99213", "99214"}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i, code := range want {
		if rows[i].Code != code {
			t.Errorf("row %d code = %q, want %q", i, rows[i].Code, code)
		}
	}
}

func TestCMSScraperRowCounts(t *testing.T) {
	tests := []struct {
		name string
		page string
		want int
	}{
		{"no tables", "<html><body><p>nothing here</p></body></html>", 0},
		{"header only", cmsPage(cmsTable()), 0},
		{"short rows skipped", cmsPage(cmsTable(cmsRow("99213"), cmsRow("99214", "Visit"), cmsRow())), 1},
		{"empty code skipped", cmsPage(cmsTable(cmsRow("", "No code"), cmsRow("99214", "Visit"))), 1},
		{
			"multiple tables",
			cmsPage(
				cmsTable(cmsRow("10021", "Fine needle aspiration"), cmsRow("10022", "Aspiration")),
				cmsTable(cmsRow("A0021", "Ambulance")),
			),
			3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFakeFetcher().serve(testCMSURL, tt.page)
			rows, err := NewCMSScraper(fetcher, CMSConfig{URL: testCMSURL}).Scrape(context.Background())
			if err != nil {
				t.Fatalf("Scrape() error = %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("got %d rows, want %d", len(rows), tt.want)
			}
		})
	}
}

func TestCMSScraperManyRows(t *testing.T) {
	var rows []string
	for i := 0; i < 250; i++ {
		rows = append(rows, cmsRow(fmt.Sprintf("%05d", i), fmt.Sprintf("Procedure %d", i)))
	}
	fetcher := newFakeFetcher().serve(testCMSURL, cmsPage(cmsTable(rows...)))

	got, err := NewCMSScraper(fetcher, CMSConfig{URL: testCMSURL}).Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(got) != 250 {
		t.Fatalf("got %d rows, want 250", len(got))
	}
	if got[249].Code != "00249" || got[249].Description != "Procedure 249" {
		t.Errorf("last row = %+v", got[249])
	}
}

func TestCMSScraperFetchError(t *testing.T) {
	fetcher := newFakeFetcher().fail(testCMSURL, errors.New("connection refused"))

	_, err := NewCMSScraper(fetcher, CMSConfig{URL: testCMSURL}).Scrape(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, apperrors.ErrFetch) {
		t.Errorf("expected a fetch error, got %v", err)
	}
}

func TestCMSScraperName(t *testing.T) {
	if got := NewCMSScraper(newFakeFetcher(), DefaultCMSConfig()).Name(); got != entities.SourceCMS {
		t.Errorf("Name() = %q", got)
	}
	if DefaultCMSConfig().URL != CMSListURL {
		t.Errorf("default URL = %q", DefaultCMSConfig().URL)
	}
}
