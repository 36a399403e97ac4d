// Package domain contains the record types produced by a report run.
//
// Every record is derived directly from OpenAlex API responses, computed
// once, and serialized to disk as the final artifact. There is no further
// lifecycle: fetched, computed, written.
package domain

import "time"

// Metadata describes a single report run.
type Metadata struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`
	// CountryCode is the ISO 3166-1 alpha-2 code the report covers.
	CountryCode string `json:"country_code"`
	// Period is the publication-year window, formatted "YYYY-YYYY".
	Period string `json:"period"`
	// TotalWorks is the total number of works matching country and period.
	TotalWorks int `json:"total_works"`
	// RetrievedAt is when the data was fetched.
	RetrievedAt time.Time `json:"retrieved_at"`
}

// OAStatusShare is the count and share of one open-access status
// (gold, hybrid, diamond, green, bronze, closed).
type OAStatusShare struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// OAStats summarizes the open-access situation for the whole country.
type OAStats struct {
	// TotalOA is the number of works with is_oa:true.
	TotalOA int `json:"total_oa"`
	// PercentageOA is TotalOA relative to the country total.
	PercentageOA float64 `json:"percentage_oa"`
	// Breakdown is the per-status distribution from the oa_status group-by.
	Breakdown []OAStatusShare `json:"breakdown"`
}

// FieldStats holds the publication counts for one knowledge field
// (a top-level OpenAlex concept).
type FieldStats struct {
	// ConceptID is the OpenAlex concept ID (e.g. "C41008148").
	ConceptID string `json:"concept_id"`
	// Name is the display name of the field.
	Name string `json:"name"`
	// Works is the number of works in this field for country and period.
	Works int `json:"works"`
	// Percentage is Works relative to the country total.
	Percentage float64 `json:"percentage"`
	// WorksOA is the number of open-access works in this field.
	WorksOA int `json:"works_oa"`
	// PercentageOA is WorksOA relative to Works.
	PercentageOA float64 `json:"percentage_oa"`
	// OAStatus is the per-status breakdown, shares relative to Works.
	OAStatus []OAStatusShare `json:"oa_status,omitempty"`
}

// TopAuthor is one entry of the most-productive-authors list.
type TopAuthor struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ORCID         string `json:"orcid,omitempty"`
	Institution   string `json:"institution"`
	InstitutionID string `json:"institution_id,omitempty"`
	Works         int    `json:"works"`
	Citations     int    `json:"citations"`
}

// TopInstitution is one entry of the most-productive-institutions list.
type TopInstitution struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Works     int    `json:"works"`
	Citations int    `json:"citations"`
}

// CollaborationEntry is the number of works co-authored with one foreign
// country, with its share of the national total.
type CollaborationEntry struct {
	CountryCode string  `json:"country_code"`
	Works       int     `json:"works"`
	Percentage  float64 `json:"percentage"`
}

// AuthorRef is a compact author reference used in the summary document.
type AuthorRef struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
	Works       int    `json:"works,omitempty"`
	Citations   int    `json:"citations,omitempty"`
}

// InstitutionRef is a compact institution reference used in the summary.
type InstitutionRef struct {
	Name      string `json:"name"`
	Works     int    `json:"works"`
	Citations int    `json:"citations"`
}

// Summary is the condensed cross-section of all persisted records,
// assembled at the end of a run for downstream consumers.
type Summary struct {
	Authors struct {
		TotalAnalyzed  int         `json:"total_analyzed"`
		MostProductive []AuthorRef `json:"most_productive"`
		MostCited      []AuthorRef `json:"most_cited"`
	} `json:"top_authors"`
	Institutions struct {
		TotalAnalyzed  int              `json:"total_analyzed"`
		MostProductive []InstitutionRef `json:"most_productive"`
	} `json:"top_institutions"`
	Collaboration struct {
		TotalCountries   int                  `json:"total_countries"`
		TopCollaborators []CollaborationEntry `json:"top_collaborators"`
	} `json:"international_collaboration"`
}

// Percent computes count/total*100. It returns 0 when total is zero so a
// failed or empty denominator query never produces NaN or Inf in a record.
func Percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
