package summarytext

import (
	"bufio"
	"fmt"
	"io"

	"proccount/pkg/models"
)

// Writer prints the run summary as three human-readable lines.
type Writer struct {
	out io.Writer
}

// NewWriter creates a summary writer on out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteSummary writes the summary lines.
func (w *Writer) WriteSummary(s models.Summary) error {
	bw := bufio.NewWriter(w.out)
	fmt.Fprintf(bw, "%d Events Processed\n", s.EventsProcessed)
	fmt.Fprintf(bw, "%d Process Nodes Observed\n", s.ProcessNodesObserved)
	fmt.Fprintf(bw, "%d Unique UUIDs Observed\n", s.UniqueIDsObserved)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
