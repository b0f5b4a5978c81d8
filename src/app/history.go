package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/history"
	"github.com/ncruces/go-strftime"
)

const historyTimeFormat = "%Y-%m-%d %H:%M:%S"

var historyColumns = []string{"ID", "Kind", "Pipeline", "Started", "Topics", "Expected", "Actual", "Passed", "Duration"}

// RunHistory imprime las últimas n ejecuciones registradas.
func (d *Demo) RunHistory(ctx context.Context, n int) error {
	if d.history == nil {
		return ErrHistoryDisabled
	}
	if n <= 0 {
		n = 10
	}

	runs, err := d.history.Latest(ctx, n)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		d.console.Println("No demo runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, historyRow(r))
	}

	d.console.PrintRecords(fmt.Sprintf("Last %d demo runs", len(runs)), historyColumns, rows)
	return nil
}

func historyRow(r history.Run) []string {
	passed := "no"
	if r.Passed {
		passed = "yes"
	}

	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Kind,
		r.PipelineID,
		strftime.Format(historyTimeFormat, r.StartedAt.Local()),
		formatTopics(r.Topics),
		strconv.FormatInt(r.Expected, 10),
		strconv.FormatInt(r.Actual, 10),
		passed,
		fmt.Sprintf("%d ms", r.DurationMs),
	}
}

func formatTopics(topics []history.TopicCount) string {
	parts := make([]string, 0, len(topics))
	for _, t := range topics {
		if t.Duplicates > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d (%d dup)", t.Topic, t.Published, t.Duplicates))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d", t.Topic, t.Published))
	}
	return strings.Join(parts, ", ")
}
