package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/partsync/partsync/internal/model"
)

// SimpleWriter outputs human-readable text summaries for the terminal.
type SimpleWriter struct {
	baseWriter

	// showItems controls whether the per-item audit list is included.
	showItems bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithItems includes the per-item audit list in the output.
func WithItems(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showItems = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showItems:  true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the run as plain text.
func (w *SimpleWriter) Write(run *model.BatchRun) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("BATCH RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05")))
	if run.Cancelled {
		sb.WriteString("Status:   CANCELLED (partial results)\n")
	} else {
		sb.WriteString("Status:   Complete\n")
	}
	sb.WriteString("\n")

	// All four categories, always.
	sb.WriteString(fmt.Sprintf("  Updated:   %d\n", run.Tally.Updated))
	sb.WriteString(fmt.Sprintf("  Skipped:   %d\n", run.Tally.Skipped))
	sb.WriteString(fmt.Sprintf("  Errors:    %d\n", run.Tally.Errors))
	sb.WriteString(fmt.Sprintf("  Not Found: %d\n", run.Tally.NotFound))
	sb.WriteString(fmt.Sprintf("  TOTAL:     %d items\n", run.Tally.Total()))
	sb.WriteString("\n")

	if w.showItems && len(run.Items) > 0 {
		sb.WriteString(strings.Repeat("-", 60))
		sb.WriteString("\nITEMS\n")
		sb.WriteString(strings.Repeat("-", 60))
		sb.WriteString("\n\n")

		for _, item := range run.Items {
			sb.WriteString(fmt.Sprintf("  %-16s %-10s", item.RecordID, item.State))
			if item.OldPrice != 0 || item.NewPrice != 0 {
				sb.WriteString(fmt.Sprintf(" %.2f -> %.2f (%+.2f%%)",
					item.OldPrice, item.NewPrice, item.ChangePercent))
			}
			if item.Reason != "" {
				sb.WriteString(" " + item.Reason)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}
