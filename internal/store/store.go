// Package store persists report snapshots as JSON files in the run's
// data directory. Each pipeline step writes one file with a fixed name,
// and the summary step reads them back. Reads are tolerant: a missing or
// unreadable file yields the zero value so a partial run can still
// produce a summary.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scholargraph/countrystats/internal/domain"
)

// Snapshot file names inside the data directory.
const (
	MetadataFile      = "metadata.json"
	OAStatusFile      = "oa_status.json"
	FieldsFile        = "fields.json"
	TopAuthorsFile    = "top_authors.json"
	InstitutionsFile  = "top_institutions.json"
	CollaborationFile = "collaboration.json"
	SummaryFile       = "summary.json"
)

// Store reads and writes report snapshots under a single data directory.
type Store struct {
	dataDir string
}

// New creates a store rooted at dataDir, creating the directory if needed.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

// DataDir returns the directory snapshots are written to.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Path returns the absolute path of a snapshot file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dataDir, name)
}

// write marshals v with indentation and writes it atomically: the data
// goes to a temp file in the same directory first, then renames over
// the destination so readers never observe a partial snapshot.
func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	dest := s.Path(name)
	tmp, err := os.CreateTemp(s.dataDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s into place: %w", name, err)
	}
	return nil
}

// read unmarshals the named snapshot into out. A missing file returns
// domain.ErrNotFound.
func (s *Store) read(name string, out any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// SaveMetadata writes the run metadata snapshot.
func (s *Store) SaveMetadata(m domain.Metadata) error {
	return s.write(MetadataFile, m)
}

// LoadMetadata reads the run metadata snapshot.
func (s *Store) LoadMetadata() (domain.Metadata, error) {
	var m domain.Metadata
	err := s.read(MetadataFile, &m)
	return m, err
}

// SaveOAStats writes the open-access statistics snapshot.
func (s *Store) SaveOAStats(st domain.OAStats) error {
	return s.write(OAStatusFile, st)
}

// LoadOAStats reads the open-access statistics snapshot.
func (s *Store) LoadOAStats() (domain.OAStats, error) {
	var st domain.OAStats
	err := s.read(OAStatusFile, &st)
	return st, err
}

// SaveFieldStats writes the per-field statistics snapshot.
func (s *Store) SaveFieldStats(fields []domain.FieldStats) error {
	return s.write(FieldsFile, fields)
}

// LoadFieldStats reads the per-field statistics snapshot.
func (s *Store) LoadFieldStats() ([]domain.FieldStats, error) {
	var fields []domain.FieldStats
	err := s.read(FieldsFile, &fields)
	return fields, err
}

// SaveTopAuthors writes the top-authors snapshot.
func (s *Store) SaveTopAuthors(authors []domain.TopAuthor) error {
	return s.write(TopAuthorsFile, authors)
}

// LoadTopAuthors reads the top-authors snapshot.
func (s *Store) LoadTopAuthors() ([]domain.TopAuthor, error) {
	var authors []domain.TopAuthor
	err := s.read(TopAuthorsFile, &authors)
	return authors, err
}

// SaveTopInstitutions writes the top-institutions snapshot.
func (s *Store) SaveTopInstitutions(insts []domain.TopInstitution) error {
	return s.write(InstitutionsFile, insts)
}

// LoadTopInstitutions reads the top-institutions snapshot.
func (s *Store) LoadTopInstitutions() ([]domain.TopInstitution, error) {
	var insts []domain.TopInstitution
	err := s.read(InstitutionsFile, &insts)
	return insts, err
}

// SaveCollaboration writes the international collaboration snapshot.
func (s *Store) SaveCollaboration(entries []domain.CollaborationEntry) error {
	return s.write(CollaborationFile, entries)
}

// LoadCollaboration reads the international collaboration snapshot.
func (s *Store) LoadCollaboration() ([]domain.CollaborationEntry, error) {
	var entries []domain.CollaborationEntry
	err := s.read(CollaborationFile, &entries)
	return entries, err
}

// SaveSummary writes the consolidated summary snapshot.
func (s *Store) SaveSummary(sum domain.Summary) error {
	return s.write(SummaryFile, sum)
}

// LoadSummary reads the consolidated summary snapshot.
func (s *Store) LoadSummary() (domain.Summary, error) {
	var sum domain.Summary
	err := s.read(SummaryFile, &sum)
	return sum, err
}
