package entities

// RawRow is a row as extracted by a source scraper, before normalization.
// Speciality is only filled by the NUCC CSV strategies.
type RawRow struct {
	Source      Source
	Code        string
	Description string
	Category    string
	Speciality  string
}
