// Package table loads tabular job-listing inputs (CSV and XLSX) into memory.
package table

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports that an expected input file does not exist.
var ErrNotFound = errors.New("table: file not found")

// LoadError reports an input file that exists but cannot be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("table: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Table is an ordered set of rows sharing one header. A Table is not modified
// after it is loaded.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Row returns row i as a column-name → value mapping.
func (t *Table) Row(i int) map[string]string {
	m := make(map[string]string, len(t.Columns))
	for j, col := range t.Columns {
		m[col] = t.Rows[i][j]
	}
	return m
}

// Slice returns rows [start, end) as a table sharing the same header and
// backing storage. Bounds are clamped to the table.
func (t *Table) Slice(start, end int) *Table {
	if start < 0 {
		start = 0
	}
	if end > len(t.Rows) {
		end = len(t.Rows)
	}
	if start > end {
		start = end
	}
	return &Table{Name: t.Name, Columns: t.Columns, Rows: t.Rows[start:end:end]}
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	return t.Slice(0, n)
}

// Options tunes how input files are read.
type Options struct {
	// Delimiter separates CSV fields. Default ','.
	Delimiter rune
	// Sheet names the XLSX worksheet to read. Default: the first sheet.
	Sheet string
}

// Load reads the table at path. The format is chosen by extension: .xlsx is
// read as a workbook, everything else as CSV. A missing file yields an error
// wrapping ErrNotFound; any other failure is a *LoadError.
func Load(path string, opts Options) (*Table, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Err: errors.New("is a directory")}
	}

	var records [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path, opts.Sheet)
	default:
		records, err = readCSVFile(path, opts.Delimiter)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	t, err := fromRecords(filepath.Base(path), records)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return t, nil
}

// fromRecords turns raw rows into a Table. The first row is the header. Short
// data rows are padded; cells past the header width must be blank, otherwise
// the row cannot be placed and the whole file is rejected.
func fromRecords(name string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.New("no header row")
	}

	header := make([]string, len(records[0]))
	copy(header, records[0])
	for i, col := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if header[i] == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	rows := make([][]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		if len(rec) > len(header) && !isBlank(rec[len(header):]) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+2, len(rec), len(header))
		}
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}

	return &Table{Name: name, Columns: header, Rows: rows}, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
