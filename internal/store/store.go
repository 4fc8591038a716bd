// Package store keeps tabular records in flat CSV files.
//
// Every save rewrites the whole file. Writes go to a temporary file in the
// same directory which is then renamed over the target, so readers never
// observe a half-written table. Read-modify-write cycles are serialised per
// file through Update; writers in other processes are not coordinated.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"event-registration/internal/metrics"
)

type Store struct {
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger.With("component", "store"),
		locks:  map[string]*sync.Mutex{},
	}
}

func (s *Store) lockFor(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := filepath.Clean(path)
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// lockAll acquires the locks for paths in sorted order and returns the
// matching unlock function.
func (s *Store) lockAll(paths []string) func() {
	keys := make([]string, 0, len(paths))
	seen := map[string]bool{}
	for _, p := range paths {
		k := filepath.Clean(p)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		l := s.lockFor(k)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// Load reads the table at path. A missing or empty file yields an empty
// table without columns and a nil error.
func (s *Store) Load(path string) (*Table, error) {
	unlock := s.lockAll([]string{path})
	defer unlock()
	return s.load(path)
}

// Save overwrites path with t, creating parent directories as needed.
func (s *Store) Save(t *Table, path string) error {
	unlock := s.lockAll([]string{path})
	defer unlock()
	return s.save(t, path)
}

// Update loads every path, hands the tables to fn in the same order and
// saves them all when fn returns nil. The files stay locked for the whole
// cycle. If fn fails nothing is written and its error is returned as is.
func (s *Store) Update(fn func(tables []*Table) error, paths ...string) error {
	unlock := s.lockAll(paths)
	defer unlock()

	tables := make([]*Table, len(paths))
	for i, p := range paths {
		t, err := s.load(p)
		if err != nil {
			return err
		}
		tables[i] = t
	}
	if err := fn(tables); err != nil {
		return err
	}
	for i, p := range paths {
		if err := s.save(tables[i], p); err != nil {
			return err
		}
	}
	return nil
}

func tableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Store) load(path string) (*Table, error) {
	defer metrics.RecordStoreOperation("load", tableName(path), time.Now())

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := readTable(f)
	var pathErr *fs.PathError
	switch {
	case errors.As(err, &pathErr):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

func readTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	t := NewTable(header...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]string, len(t.Columns))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (s *Store) save(t *Table, path string) error {
	defer metrics.RecordStoreOperation("save", tableName(path), time.Now())

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := writeTable(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	s.logger.Debug("table saved", "path", path, "rows", t.Len())
	return nil
}

func writeTable(w io.Writer, t *Table) error {
	if len(t.Columns) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteCSV encodes t as CSV to w, header first.
func WriteCSV(w io.Writer, t *Table) error {
	return writeTable(w, t)
}

// Tables names the two files the registration data lives in.
type Tables struct {
	Participants string
	Results      string
}
