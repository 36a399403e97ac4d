// Package openalex provides a client for the OpenAlex API.
//
// OpenAlex is a free, open catalog of scholarly papers, authors, venues,
// institutions, and concepts. This package implements the small query
// surface the country report needs: single-page counts, group-by
// aggregations, and sorted entity listings.
//
// API Documentation: https://docs.openalex.org/
package openalex

// Meta contains metadata about a response, including the total match count.
type Meta struct {
	Count   int `json:"count"`
	DBTime  int `json:"db_response_time_ms"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// GroupCount is one bucket of a group_by aggregation.
type GroupCount struct {
	Key            string `json:"key"`
	KeyDisplayName string `json:"key_display_name"`
	Count          int    `json:"count"`
}

// WorksResponse is the response from the works endpoint. For count queries
// only Meta is populated; for group-by queries GroupBy carries the buckets.
type WorksResponse struct {
	Meta    Meta         `json:"meta"`
	GroupBy []GroupCount `json:"group_by"`
}

// InstitutionRef is the institution summary embedded in author records.
type InstitutionRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}

// Author represents an author entity in OpenAlex.
type Author struct {
	ID                   string          `json:"id"`
	DisplayName          string          `json:"display_name"`
	Orcid                string          `json:"orcid"`
	WorksCount           int             `json:"works_count"`
	CitedByCount         int             `json:"cited_by_count"`
	LastKnownInstitution *InstitutionRef `json:"last_known_institution"`
}

// AuthorsResponse is the response from the authors endpoint.
type AuthorsResponse struct {
	Meta    Meta     `json:"meta"`
	Results []Author `json:"results"`
}

// Institution represents an institution entity in OpenAlex.
type Institution struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Type         string `json:"type"`
	CountryCode  string `json:"country_code"`
	WorksCount   int    `json:"works_count"`
	CitedByCount int    `json:"cited_by_count"`
}

// InstitutionsResponse is the response from the institutions endpoint.
type InstitutionsResponse struct {
	Meta    Meta          `json:"meta"`
	Results []Institution `json:"results"`
}
