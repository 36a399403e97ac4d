package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholargraph/countrystats/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	t.Run("creates data directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")
		s, err := New(dir)
		require.NoError(t, err)

		info, err := os.Stat(s.DataDir())
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects empty directory", func(t *testing.T) {
		_, err := New("")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestStore_Metadata(t *testing.T) {
	s := newTestStore(t)

	meta := domain.Metadata{
		RunID:       "4f8a2c3e-0000-0000-0000-000000000000",
		CountryCode: "EC",
		Period:      "2021-2026",
		TotalWorks:  48231,
		RetrievedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveMetadata(meta))

	loaded, err := s.LoadMetadata()
	require.NoError(t, err)
	assert.Equal(t, meta, loaded)
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadOAStats()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(FieldsFile), []byte("{not json"), 0o644))

	_, err := s.LoadFieldStats()
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_FieldStatsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	fields := []domain.FieldStats{
		{
			ConceptID:    "C41008148",
			Name:         "Computer science",
			Works:        1200,
			Percentage:   12.5,
			WorksOA:      600,
			PercentageOA: 50,
			OAStatus: []domain.OAStatusShare{
				{Status: "gold", Count: 400, Percentage: 33.33},
				{Status: "green", Count: 200, Percentage: 16.67},
			},
		},
		{
			ConceptID:  "C121332964",
			Name:       "Sociology",
			Works:      80,
			Percentage: 0.83,
		},
	}
	require.NoError(t, s.SaveFieldStats(fields))

	loaded, err := s.LoadFieldStats()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, fields, loaded)
}

func TestStore_OverwriteReplacesSnapshot(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveTopAuthors([]domain.TopAuthor{
		{ID: "A1", Name: "First Author", Works: 10},
		{ID: "A2", Name: "Second Author", Works: 8},
	}))
	require.NoError(t, s.SaveTopAuthors([]domain.TopAuthor{
		{ID: "A3", Name: "Third Author", Works: 12},
	}))

	loaded, err := s.LoadTopAuthors()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "A3", loaded[0].ID)
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveCollaboration([]domain.CollaborationEntry{
		{CountryCode: "US", Works: 4200, Percentage: 8.7},
	}))

	entries, err := os.ReadDir(s.DataDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CollaborationFile, entries[0].Name())
}

func TestStore_SummaryRoundTrip(t *testing.T) {
	s := newTestStore(t)

	var sum domain.Summary
	sum.Authors.TotalAnalyzed = 20
	sum.Authors.MostProductive = []domain.AuthorRef{
		{Name: "Maria Gonzalez", Institution: "Universidad San Francisco de Quito", Works: 320},
	}
	sum.Institutions.TotalAnalyzed = 15
	sum.Institutions.MostProductive = []domain.InstitutionRef{
		{Name: "Escuela Politecnica Nacional", Works: 8400, Citations: 61000},
	}
	sum.Collaboration.TotalCountries = 42
	sum.Collaboration.TopCollaborators = []domain.CollaborationEntry{
		{CountryCode: "US", Works: 4200, Percentage: 8.7},
	}

	require.NoError(t, s.SaveSummary(sum))

	loaded, err := s.LoadSummary()
	require.NoError(t, err)
	assert.Equal(t, sum, loaded)
}

func TestStore_SnapshotIsIndented(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveTopInstitutions([]domain.TopInstitution{
		{ID: "I123", Name: "Escuela Politecnica Nacional", Type: "education", Works: 8400},
	}))

	data, err := os.ReadFile(s.Path(InstitutionsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")
}
