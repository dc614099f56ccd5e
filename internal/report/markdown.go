package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/partsync/partsync/internal/model"
)

// MarkdownWriter outputs runs in Markdown for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent,
// type-safe markdown generation instead of string concatenation.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders the run as Markdown.
func (w *MarkdownWriter) Write(run *model.BatchRun) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Batch Run Report")
	md.PlainText("")

	status := "Complete"
	if run.Cancelled {
		status = "Cancelled (partial results)"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05")},
			{"Finished", run.FinishedAt.Format("2006-01-02 15:04:05")},
			{"Status", status},
			{"Items", strconv.Itoa(run.Tally.Total())},
		},
	})
	md.PlainText("")

	md.H2("Tally")
	md.Table(markdown.TableSet{
		Header: []string{"Verdict", "Count"},
		Rows: [][]string{
			{"Updated", strconv.Itoa(run.Tally.Updated)},
			{"Skipped", strconv.Itoa(run.Tally.Skipped)},
			{"Errors", strconv.Itoa(run.Tally.Errors)},
			{"Not Found", strconv.Itoa(run.Tally.NotFound)},
		},
	})
	md.PlainText("")

	if len(run.Items) > 0 {
		md.H2("Items")
		rows := make([][]string, 0, len(run.Items))
		for _, item := range run.Items {
			price := ""
			if item.OldPrice != 0 || item.NewPrice != 0 {
				price = fmt.Sprintf("%.2f -> %.2f (%+.2f%%)",
					item.OldPrice, item.NewPrice, item.ChangePercent)
			}
			rows = append(rows, []string{
				"`" + item.RecordID + "`",
				item.State.String(),
				item.Reason,
				price,
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Record", "State", "Reason", "Price"},
			Rows:   rows,
		})
	}

	return len(md.String()), md.Build()
}
