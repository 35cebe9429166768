// Package history keeps a per-site CSV table of sweep outcomes: one row per
// address, one column per run.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/rangeping/internal/addrrange"
	"github.com/HerbHall/rangeping/internal/report"
	"github.com/HerbHall/rangeping/pkg/models"
)

// TimestampLayout formats run timestamps in the header row.
const TimestampLayout = time.ANSIC

var (
	// ErrNotFound is returned by Load when a site has no history yet.
	ErrNotFound = errors.New("no history")

	// ErrEmptyResults is returned by Save before any sweep ran.
	ErrEmptyResults = report.ErrEmptyResults

	// ErrInvalidIdentifier is returned for identifiers that cannot be
	// used as a file name.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Store reads and writes history tables under a directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Path returns the history file for id.
func (s *Store) Path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return filepath.Join(s.dir, id+".csv"), nil
}

// Load reads the table for id. It wraps ErrNotFound when no file exists.
func (s *Store) Load(id string) (*Table, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w for %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("open history %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read history %q: %w", path, err)
	}
	t, err := parseTable(records)
	if err != nil {
		return nil, fmt.Errorf("parse history %q: %w", path, err)
	}
	return t, nil
}

// Save appends results as a new run stamped at ts. With fresh set, or when
// the site has no history yet, the table is rebuilt from the host addresses
// of rng. Save reports false without writing when id is empty.
func (s *Store) Save(id string, rng addrrange.Range, results models.SweepResult, ts time.Time, fresh bool) (bool, error) {
	if results.Empty() {
		return false, ErrEmptyResults
	}
	if id == "" || s.dir == "" {
		return false, nil
	}

	var t *Table
	if !fresh {
		loaded, err := s.Load(id)
		switch {
		case err == nil:
			t = loaded
		case errors.Is(err, ErrNotFound):
			s.logger.Info("no history yet, starting fresh", zap.String("id", id))
		default:
			return false, err
		}
	}
	if t == nil {
		t = NewTable(rng.Hosts())
	}

	t.AppendRun(ts.Format(TimestampLayout), results.Results)
	if err := s.write(id, t); err != nil {
		return false, err
	}
	s.logger.Info("history saved",
		zap.String("id", id),
		zap.Int("runs", len(t.Runs())),
		zap.Int("rows", len(t.rows)),
	)
	return true, nil
}

// write replaces the history file atomically.
func (s *Store) write(id string, t *Table) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.csv")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(t.Records()); err != nil {
		tmp.Close()
		return fmt.Errorf("write history %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace history %q: %w", path, err)
	}
	return nil
}

// List returns the identifiers that have a history file.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list history: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".csv" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".csv"))
	}
	return ids, nil
}

// Dir returns the directory holding history files.
func (s *Store) Dir() string {
	return s.dir
}
