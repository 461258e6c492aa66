package entities

// Source identifies which upstream dataset produced a record.
type Source string

const (
	SourceCMS  Source = "cms"
	SourceNUCC Source = "nucc"
)

// CMSCategory is the fixed category label of every CMS record.
const CMSCategory = "CPT/HCPCS"

// CodeRecord is the shared output shape of both datasets.
// Exactly one of TaxonomyCode and CptCode is set, depending on Source.
// Unset codes are serialized as null.
type CodeRecord struct {
	Source       Source  `json:"source"`
	Code         string  `json:"code"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	TaxonomyCode *string `json:"taxonomy_code"`
	CptCode      *string `json:"cpt_code"`
	Speciality   string  `json:"speciality,omitempty"`
}
