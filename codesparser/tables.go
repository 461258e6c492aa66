// Package codesparser scrapes the CMS CPT/HCPCS and NUCC taxonomy code lists
// and normalizes them into entities.CodeRecord.
package codesparser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/giygas/medcodes-scraper/apperrors"
)

// parseDocument parses an HTML page
func parseDocument(body []byte, url string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(toUTF8(body)))
	if err != nil {
		return nil, apperrors.NewParseError("parse html", url, "", err)
	}
	return doc, nil
}

// cellText returns the text of a cell with surrounding whitespace stripped
func cellText(td *goquery.Selection) string {
	return strings.TrimSpace(td.Text())
}

// tableRows returns the <td> texts of every row of every table in doc,
// skipping the first row of each table, which is assumed to be the header.
// Rows are returned whatever their number of cells, callers decide which
// ones qualify. Only a table's own rows and cells are read, a nested table
// is visited as a table of its own and the layout row wrapping it is skipped.
func tableRows(doc *goquery.Document) [][]string {
	var rows [][]string

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		own := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return tr.Closest("table").IsSelection(table)
		})
		own.Each(func(i int, tr *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := tr.ChildrenFiltered("td")
			if cells.Has("table").Length() > 0 {
				return
			}
			texts := make([]string, 0, cells.Length())
			cells.Each(func(_ int, td *goquery.Selection) {
				texts = append(texts, cellText(td))
			})
			rows = append(rows, texts)
		})
	})

	return rows
}
