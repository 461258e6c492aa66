// Package validation checks normalized code records and reports the data
// quality of a scraped dataset.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/interfaces"
)

// Pre-compiled code formats, compiled once at package initialization
var (
	// CPT codes are 5 digits, HCPCS level II codes a letter and 4 digits,
	// category II/III and PLA codes 4 digits and a letter
	cmsCodeRegex = regexp.MustCompile(`^[0-9A-Z]{5}$`)

	// Provider taxonomy codes are 10 characters ending in X
	nuccCodeRegex = regexp.MustCompile(`^[0-9A-Z]{9}X$`)
)

const (
	maxCodeLength        = 20
	maxDescriptionLength = 2000
	maxSamples           = 10
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateRecord checks the structure of a normalized record: a known
// source, a code of the expected format and the code mirrored in the
// field matching the source.
func (v *DataValidatorImpl) ValidateRecord(r *entities.CodeRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}

	code := r.Code
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("empty code for %s record", r.Source)
	}
	if len(code) > maxCodeLength {
		return fmt.Errorf("code too long for %s record: %d characters", r.Source, len(code))
	}
	if len(r.Description) > maxDescriptionLength {
		return fmt.Errorf("description too long for code %s: %d characters", code, len(r.Description))
	}

	switch r.Source {
	case entities.SourceCMS:
		if !cmsCodeRegex.MatchString(code) {
			return fmt.Errorf("invalid CPT/HCPCS code: %q", code)
		}
		if r.CptCode == nil || *r.CptCode != code {
			return fmt.Errorf("cpt_code does not match code %s", code)
		}
		if r.TaxonomyCode != nil {
			return fmt.Errorf("taxonomy_code set on CMS code %s", code)
		}
		if r.Category != entities.CMSCategory {
			return fmt.Errorf("unexpected category %q for CMS code %s", r.Category, code)
		}
	case entities.SourceNUCC:
		if !nuccCodeRegex.MatchString(code) {
			return fmt.Errorf("invalid taxonomy code: %q", code)
		}
		if r.TaxonomyCode == nil || *r.TaxonomyCode != code {
			return fmt.Errorf("taxonomy_code does not match code %s", code)
		}
		if r.CptCode != nil {
			return fmt.Errorf("cpt_code set on NUCC code %s", code)
		}
	default:
		return fmt.Errorf("unknown source %q for code %s", r.Source, code)
	}

	return nil
}

// ReportDataQuality collects duplicates, empty descriptions and invalid
// records. Duplicates are reported once per code, invalid records keep the
// first few codes as samples.
func (v *DataValidatorImpl) ReportDataQuality(records []entities.CodeRecord) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateCMSCodes:    []string{},
		DuplicateNUCCCodes:   []string{},
		InvalidRecordSamples: []string{},
	}

	seen := map[entities.Source]map[string]int{
		entities.SourceCMS:  {},
		entities.SourceNUCC: {},
	}

	for i := range records {
		r := &records[i]

		if codes, ok := seen[r.Source]; ok {
			codes[r.Code]++
			if codes[r.Code] == 2 {
				switch r.Source {
				case entities.SourceCMS:
					report.DuplicateCMSCodes = append(report.DuplicateCMSCodes, r.Code)
				case entities.SourceNUCC:
					report.DuplicateNUCCCodes = append(report.DuplicateNUCCCodes, r.Code)
				}
			}
		}

		if strings.TrimSpace(r.Description) == "" {
			report.EmptyDescriptions++
		}

		if err := v.ValidateRecord(r); err != nil {
			report.InvalidRecords++
			if len(report.InvalidRecordSamples) < maxSamples {
				report.InvalidRecordSamples = append(report.InvalidRecordSamples, fmt.Sprintf("%s:%s", r.Source, r.Code))
			}
		}
	}

	return report
}
