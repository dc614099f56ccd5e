package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/partsync/partsync/internal/model"
)

// Writer renders one batch run to a destination.
//
// Design decision: We use an interface so the batch command can write to
// the terminal, a file, or both with the same API.
type Writer interface {
	// Write renders the run. Returns the number of bytes written.
	Write(run *model.BatchRun) (int, error)
}

// MultiWriter writes a run to several Writers, stopping on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the run to every configured writer.
func (m *MultiWriter) Write(run *model.BatchRun) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides the shared output destination.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// CreateOutputFile opens path for writing a report, creating parent
// directories. The file is owner-only: batch reports carry pricing data.
func CreateOutputFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, nil
}
