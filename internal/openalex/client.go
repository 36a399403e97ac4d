package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scholargraph/countrystats/internal/domain"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// maxPerPage is the per_page ceiling imposed by the OpenAlex API.
	maxPerPage = 200

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"

	// countryKeyPrefix is the URL prefix OpenAlex uses for country group keys.
	countryKeyPrefix = "https://openalex.org/countries/"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool.
	// Providing an email grants access to higher rate limits.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// Timeout is the request timeout.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to 10 req/sec (polite pool with email gets higher).
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to 10.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client queries the OpenAlex API.
type Client struct {
	config     Config
	httpClient *HTTPClient
}

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := NewHTTPClient(HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "CountryStats/1.0 (mailto:" + cfg.Email + ")",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// CountWorks returns the number of works matching the given filters.
// It issues a single-page query with per_page=1 and reads meta.count.
func (c *Client) CountWorks(ctx context.Context, filters []string) (int, error) {
	query := url.Values{}
	query.Set("per_page", "1")
	if len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	var resp WorksResponse
	if err := c.get(ctx, "/works", query, &resp); err != nil {
		return 0, err
	}
	return resp.Meta.Count, nil
}

// GroupWorks returns the group_by buckets for works matching the given
// filters, aggregated by the given categorical field (e.g. "oa_status",
// "authorships.countries").
func (c *Client) GroupWorks(ctx context.Context, filters []string, groupBy string) ([]GroupCount, error) {
	query := url.Values{}
	query.Set("group_by", groupBy)
	if len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	var resp WorksResponse
	if err := c.get(ctx, "/works", query, &resp); err != nil {
		return nil, err
	}
	return resp.GroupBy, nil
}

// ListAuthors returns a single page of authors matching the filter, sorted
// by the given sort expression (e.g. "works_count:desc").
func (c *Client) ListAuthors(ctx context.Context, filter, sort string, perPage int) ([]Author, error) {
	query := listQuery(filter, sort, perPage)

	var resp AuthorsResponse
	if err := c.get(ctx, "/authors", query, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ListInstitutions returns a single page of institutions matching the
// filter, sorted by the given sort expression.
func (c *Client) ListInstitutions(ctx context.Context, filter, sort string, perPage int) ([]Institution, error) {
	query := listQuery(filter, sort, perPage)

	var resp InstitutionsResponse
	if err := c.get(ctx, "/institutions", query, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// listQuery builds the query values shared by the entity listing endpoints.
func listQuery(filter, sort string, perPage int) url.Values {
	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}
	if sort != "" {
		query.Set("sort", sort)
	}
	if perPage <= 0 {
		perPage = 25
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	query.Set("per_page", strconv.Itoa(perPage))
	return query
}

// get executes a GET request against the given endpoint path and decodes
// the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = path

	// Add mailto for polite pool
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	baseURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// CountryFilter filters works by the country of the authoring institutions.
func CountryFilter(countryCode string) string {
	return "authorships.institutions.country_code:" + countryCode
}

// PeriodFilter filters works by a publication-year window ("YYYY-YYYY").
func PeriodFilter(period string) string {
	return "publication_year:" + period
}

// OpenAccessFilter filters works by open-access availability.
func OpenAccessFilter() string {
	return "is_oa:true"
}

// ConceptFilter filters works by a knowledge-field concept ID.
func ConceptFilter(conceptID string) string {
	return "concepts.id:" + conceptID
}

// AuthorCountryFilter filters authors by the country of their last known
// institution.
func AuthorCountryFilter(countryCode string) string {
	return "last_known_institution.country_code:" + countryCode
}

// InstitutionCountryFilter filters institutions by country.
func InstitutionCountryFilter(countryCode string) string {
	return "country_code:" + countryCode
}

// NormalizeID extracts the short ID from full OpenAlex URLs.
func NormalizeID(id string) string {
	if id == "" {
		return ""
	}
	id = strings.TrimPrefix(id, openAlexIDPrefix)
	return strings.TrimSpace(id)
}

// NormalizeORCID strips any URL prefixes from ORCID identifiers.
func NormalizeORCID(orcid string) string {
	if orcid == "" {
		return ""
	}
	orcid = strings.TrimPrefix(orcid, "https://orcid.org/")
	return strings.TrimSpace(orcid)
}

// NormalizeCountryKey strips the countries URL prefix from group-by keys,
// returning the bare ISO code.
func NormalizeCountryKey(key string) string {
	return strings.TrimSpace(strings.TrimPrefix(key, countryKeyPrefix))
}
