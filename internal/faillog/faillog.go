// Package faillog keeps the two append-only failure logs of a run: batches
// skipped after exhausting retries, and batches whose response could not be
// used.
package faillog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
)

// Logs holds the skipped-batch log and the error log.
type Logs struct {
	mu      sync.Mutex
	skipped *os.File
	errors  *os.File
}

// Open creates (or truncates) both log files.
func Open(skippedPath, errorPath string) (*Logs, error) {
	skipped, err := create(skippedPath)
	if err != nil {
		return nil, eris.Wrap(err, "faillog: open skipped log")
	}
	errs, err := create(errorPath)
	if err != nil {
		_ = skipped.Close()
		return nil, eris.Wrap(err, "faillog: open error log")
	}
	return &Logs{skipped: skipped, errors: errs}, nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// Skipped records a batch whose extraction call never succeeded, along with
// the rendered input that was sent.
func (l *Logs) Skipped(start int, input string) error {
	return l.write(true, "Skipped sub-batch %d:\n%s\n", start, input)
}

// Undecodable records a batch whose response held no decodable JSON array.
func (l *Logs) Undecodable(start int, content string) error {
	return l.write(false, "Error for sub-batch %d:\n%s\n", start, content)
}

// Invalid records a batch whose decoded response was not a list of records.
func (l *Logs) Invalid(start int, content string) error {
	return l.write(false, "Invalid format for sub-batch %d:\n%s\n", start, content)
}

// WriteFailed records a batch whose records could not be appended to the
// result table.
func (l *Logs) WriteFailed(start int, reason string) error {
	return l.write(false, "Write failure for sub-batch %d:\n%s\n", start, reason)
}

func (l *Logs) write(skipped bool, format string, start int, body string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.skipped == nil {
		return eris.New("faillog: write to closed log")
	}
	w := l.errors
	if skipped {
		w = l.skipped
	}
	if _, err := fmt.Fprintf(w, format, start, body); err != nil {
		return eris.Wrap(err, "faillog: write entry")
	}
	return nil
}

// Close closes both files.
func (l *Logs) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.skipped == nil {
		return nil
	}
	errSkipped := l.skipped.Close()
	errErrors := l.errors.Close()
	l.skipped, l.errors = nil, nil
	if errSkipped != nil {
		return eris.Wrap(errSkipped, "faillog: close skipped log")
	}
	if errErrors != nil {
		return eris.Wrap(errErrors, "faillog: close error log")
	}
	return nil
}
