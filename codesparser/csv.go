package codesparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/giygas/medcodes-scraper/apperrors"
	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/logging"
)

// NUCC CSV header names
const (
	columnCode           = "code"
	columnClassification = "classification"
	columnSpecialization = "specialization"
	columnDefinition     = "definition"
)

// parseTaxonomyCSV maps a NUCC taxonomy CSV into raw rows.
// Columns are found by header name. Rows without a code are dropped.
func parseTaxonomyCSV(body []byte, url string) ([]entities.RawRow, error) {
	reader := csv.NewReader(bytes.NewReader(toUTF8(body)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewParseError("parse csv", url, "empty file", nil)
		}
		return nil, apperrors.NewParseError("parse csv", url, "unreadable header", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns[columnCode]; !ok {
		return nil, apperrors.NewParseError("parse csv", url, "missing Code column", nil)
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []entities.RawRow
	lineCount := 0
	skippedMissingCode := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParseError("parse csv", url, "malformed record", err)
		}
		lineCount++

		code := field(record, columnCode)
		if code == "" {
			skippedMissingCode++
			continue
		}

		rows = append(rows, entities.RawRow{
			Source:      entities.SourceNUCC,
			Code:        code,
			Description: field(record, columnClassification),
			Category:    field(record, columnSpecialization),
			Speciality:  field(record, columnDefinition),
		})
	}

	if skippedMissingCode > 0 {
		logging.Info("NUCC CSV skip statistics",
			"url", url,
			"missing_code", skippedMissingCode,
			"total_lines", lineCount,
			"records_parsed", len(rows))
	}

	return rows, nil
}
