package codesparser

import (
	"github.com/giygas/medcodes-scraper/codesparser/entities"
)

// Normalize maps a raw row to the shared record shape. CMS rows get their
// code mirrored in CptCode and the fixed CPT/HCPCS category, NUCC rows get
// it mirrored in TaxonomyCode. It never fails, rows of an unknown source
// come out with neither code field set.
func Normalize(row entities.RawRow) entities.CodeRecord {
	record := entities.CodeRecord{
		Source:      row.Source,
		Code:        row.Code,
		Description: row.Description,
		Category:    row.Category,
	}

	switch row.Source {
	case entities.SourceCMS:
		code := row.Code
		record.CptCode = &code
		record.Category = entities.CMSCategory
	case entities.SourceNUCC:
		code := row.Code
		record.TaxonomyCode = &code
		record.Speciality = row.Speciality
	}

	return record
}

// NormalizeAll normalizes rows, dropping the ones without a code or with an
// unknown source. It returns the records and the number of dropped rows.
func NormalizeAll(rows []entities.RawRow) ([]entities.CodeRecord, int) {
	records := make([]entities.CodeRecord, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		if row.Code == "" || (row.Source != entities.SourceCMS && row.Source != entities.SourceNUCC) {
			dropped++
			continue
		}
		records = append(records, Normalize(row))
	}

	return records, dropped
}
