package openalex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholargraph/countrystats/internal/domain"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string) *Client {
	cfg := Config{
		BaseURL:   serverURL,
		Email:     "test@example.com",
		Timeout:   5 * time.Second,
		RateLimit: 100, // High rate for testing
		BurstSize: 100,
	}

	httpClient := NewHTTPClient(HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "TestClient/1.0",
	})

	return NewWithHTTPClient(cfg, httpClient)
}

func TestNewClient(t *testing.T) {
	t.Run("creates client with default config", func(t *testing.T) {
		client := New(Config{})

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
		assert.Equal(t, DefaultBurstSize, client.config.BurstSize)
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		cfg := Config{
			BaseURL:   "https://custom.api.org",
			Email:     "researcher@university.edu",
			Timeout:   60 * time.Second,
			RateLimit: 20.0,
			BurstSize: 20,
		}
		client := New(cfg)

		require.NotNil(t, client)
		assert.Equal(t, "https://custom.api.org", client.config.BaseURL)
		assert.Equal(t, "researcher@university.edu", client.config.Email)
		assert.Equal(t, 60*time.Second, client.config.Timeout)
	})
}

func TestClient_CountWorks(t *testing.T) {
	t.Run("returns meta count", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("per_page"))
			assert.Equal(t, "test@example.com", r.URL.Query().Get("mailto"))
			assert.Equal(t,
				"authorships.institutions.country_code:EC,publication_year:2021-2026",
				r.URL.Query().Get("filter"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(WorksResponse{Meta: Meta{Count: 48231}})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		filters := []string{CountryFilter("EC"), PeriodFilter("2021-2026")}

		count, err := client.CountWorks(context.Background(), filters)
		require.NoError(t, err)
		assert.Equal(t, 48231, count)
	})

	t.Run("zero matches", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(WorksResponse{})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		count, err := client.CountWorks(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.CountWorks(context.Background(), []string{CountryFilter("EC")})
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "OpenAlex", apiErr.Source)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(2 * time.Second)
			json.NewEncoder(w).Encode(WorksResponse{})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		_, err := client.CountWorks(ctx, nil)
		require.Error(t, err)
	})
}

func TestClient_GroupWorks(t *testing.T) {
	t.Run("returns buckets", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works", r.URL.Path)
			assert.Equal(t, "oa_status", r.URL.Query().Get("group_by"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(WorksResponse{
				Meta: Meta{Count: 100},
				GroupBy: []GroupCount{
					{Key: "gold", KeyDisplayName: "gold", Count: 40},
					{Key: "closed", KeyDisplayName: "closed", Count: 35},
					{Key: "green", KeyDisplayName: "green", Count: 25},
				},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		buckets, err := client.GroupWorks(context.Background(), []string{CountryFilter("EC")}, "oa_status")
		require.NoError(t, err)
		require.Len(t, buckets, 3)
		assert.Equal(t, "gold", buckets[0].Key)
		assert.Equal(t, 40, buckets[0].Count)
	})

	t.Run("empty group_by", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(WorksResponse{Meta: Meta{Count: 0}})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		buckets, err := client.GroupWorks(context.Background(), nil, "oa_status")
		require.NoError(t, err)
		assert.Empty(t, buckets)
	})
}

func TestClient_ListAuthors(t *testing.T) {
	t.Run("returns sorted authors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/authors", r.URL.Path)
			assert.Equal(t, "last_known_institution.country_code:EC", r.URL.Query().Get("filter"))
			assert.Equal(t, "works_count:desc", r.URL.Query().Get("sort"))
			assert.Equal(t, "50", r.URL.Query().Get("per_page"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(AuthorsResponse{
				Meta: Meta{Count: 2},
				Results: []Author{
					{
						ID:           "https://openalex.org/A111",
						DisplayName:  "Maria Gonzalez",
						Orcid:        "https://orcid.org/0000-0001-2345-6789",
						WorksCount:   320,
						CitedByCount: 5400,
						LastKnownInstitution: &InstitutionRef{
							ID:          "https://openalex.org/I123",
							DisplayName: "Universidad San Francisco de Quito",
							CountryCode: "EC",
						},
					},
					{
						ID:           "https://openalex.org/A222",
						DisplayName:  "Carlos Paredes",
						WorksCount:   280,
						CitedByCount: 3100,
					},
				},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		authors, err := client.ListAuthors(context.Background(), AuthorCountryFilter("EC"), "works_count:desc", 50)
		require.NoError(t, err)
		require.Len(t, authors, 2)
		assert.Equal(t, "Maria Gonzalez", authors[0].DisplayName)
		assert.Equal(t, 320, authors[0].WorksCount)
		require.NotNil(t, authors[0].LastKnownInstitution)
		assert.Equal(t, "Universidad San Francisco de Quito", authors[0].LastKnownInstitution.DisplayName)
		assert.Nil(t, authors[1].LastKnownInstitution)
	})

	t.Run("caps per_page at API limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "200", r.URL.Query().Get("per_page"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(AuthorsResponse{})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.ListAuthors(context.Background(), "", "", 500)
		require.NoError(t, err)
	})

	t.Run("defaults per_page when unset", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "25", r.URL.Query().Get("per_page"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(AuthorsResponse{})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.ListAuthors(context.Background(), "", "", 0)
		require.NoError(t, err)
	})
}

func TestClient_ListInstitutions(t *testing.T) {
	t.Run("returns institutions", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/institutions", r.URL.Path)
			assert.Equal(t, "country_code:EC", r.URL.Query().Get("filter"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(InstitutionsResponse{
				Meta: Meta{Count: 1},
				Results: []Institution{
					{
						ID:           "https://openalex.org/I123",
						DisplayName:  "Escuela Politecnica Nacional",
						Type:         "education",
						CountryCode:  "EC",
						WorksCount:   8400,
						CitedByCount: 61000,
					},
				},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		insts, err := client.ListInstitutions(context.Background(), InstitutionCountryFilter("EC"), "works_count:desc", 25)
		require.NoError(t, err)
		require.Len(t, insts, 1)
		assert.Equal(t, "Escuela Politecnica Nacional", insts[0].DisplayName)
		assert.Equal(t, "education", insts[0].Type)
	})

	t.Run("not found status surfaces as API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "not found"}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		_, err := client.ListInstitutions(context.Background(), "", "", 10)
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}

func TestFilterHelpers(t *testing.T) {
	assert.Equal(t, "authorships.institutions.country_code:EC", CountryFilter("EC"))
	assert.Equal(t, "publication_year:2021-2026", PeriodFilter("2021-2026"))
	assert.Equal(t, "is_oa:true", OpenAccessFilter())
	assert.Equal(t, "concepts.id:C41008148", ConceptFilter("C41008148"))
	assert.Equal(t, "last_known_institution.country_code:EC", AuthorCountryFilter("EC"))
	assert.Equal(t, "country_code:EC", InstitutionCountryFilter("EC"))
}

func TestNormalizeID(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "full URL",
			input:    "https://openalex.org/A1234567890",
			expected: "A1234567890",
		},
		{
			name:     "short ID",
			input:    "A1234567890",
			expected: "A1234567890",
		},
		{
			name:     "with whitespace",
			input:    "  A1234567890  ",
			expected: "A1234567890",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeID(tc.input))
		})
	}
}

func TestNormalizeORCID(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "full URL",
			input:    "https://orcid.org/0000-0001-2345-6789",
			expected: "0000-0001-2345-6789",
		},
		{
			name:     "short ORCID",
			input:    "0000-0001-2345-6789",
			expected: "0000-0001-2345-6789",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeORCID(tc.input))
		})
	}
}

func TestNormalizeCountryKey(t *testing.T) {
	assert.Equal(t, "US", NormalizeCountryKey("https://openalex.org/countries/US"))
	assert.Equal(t, "US", NormalizeCountryKey("US"))
	assert.Equal(t, "", NormalizeCountryKey(""))
}

// Test handling of malformed JSON response
func TestMalformedJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{invalid json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CountWorks(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "decoding")
}
