// Package sink appends validated records to the result CSV table.
package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-extract/internal/parse"
)

// CSV is an append-only result table. The header is fixed by the first
// non-empty Append and reused for every later row.
type CSV struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	w      *csv.Writer
	header []string
	// wrote is set once the header line is out, even when it has no columns.
	wrote bool
	rows  int
}

// Open creates (or truncates) the result table at path, creating parent
// directories as needed.
func Open(path string) (*CSV, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "sink: create output dir")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrap(err, "sink: create file")
	}

	return &CSV{path: path, f: f, w: csv.NewWriter(f)}, nil
}

// Path returns the table's file path.
func (s *CSV) Path() string { return s.path }

// Header returns the header row, or nil before the first write.
func (s *CSV) Header() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.header...)
}

// Rows returns the number of data rows written so far.
func (s *CSV) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Append writes one row per record and returns how many were written.
// Values are looked up by header key: a record missing a header key gets an
// empty cell and keys outside the header are dropped. An empty slice writes
// nothing, not even the header.
func (s *CSV) Append(records []parse.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return 0, eris.New("sink: append to closed table")
	}

	if !s.wrote {
		header := records[0].Keys()
		if err := s.w.Write(header); err != nil {
			return 0, eris.Wrap(err, "sink: write header")
		}
		s.header = header
		s.wrote = true
	}

	row := make([]string, len(s.header))
	for _, rec := range records {
		for i, key := range s.header {
			row[i], _ = rec.Cell(key)
		}
		if err := s.w.Write(row); err != nil {
			return 0, eris.Wrap(err, "sink: write row")
		}
	}

	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return 0, eris.Wrap(err, "sink: flush")
	}

	s.rows += len(records)
	return len(records), nil
}

// Close flushes and closes the underlying file.
func (s *CSV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	s.w.Flush()
	flushErr := s.w.Error()
	closeErr := s.f.Close()
	s.f = nil
	if flushErr != nil {
		return eris.Wrap(flushErr, "sink: flush")
	}
	if closeErr != nil {
		return eris.Wrap(closeErr, "sink: close file")
	}
	return nil
}
