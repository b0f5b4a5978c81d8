package console

import (
	"fmt"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/generator"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type TopicStats struct {
	Topic string
	Stats *generator.Stats
}

// PrintGenStats imprime las estadísticas de generación. Con más de un topic agrega
// la columna Topic y una fila por topic.
func (c *Console) PrintGenStats(title string, stats ...TopicStats) {
	if len(stats) == 0 {
		return
	}

	multi := len(stats) > 1
	duplication := false
	for _, s := range stats {
		duplication = duplication || s.Stats.Duplication
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault

	header := table.Row{}
	if multi {
		header = append(header, "Topic")
	}
	header = append(header, "Total Events")
	if duplication {
		header = append(header, "Total Duplicates", "Total Unique Events", "Duplication Rate")
	}
	header = append(header, "Time taken")
	t.AppendHeader(header)

	for _, s := range stats {
		row := table.Row{}
		if multi {
			row = append(row, s.Topic)
		}
		row = append(row, s.Stats.NumRecords)
		if duplication {
			row = append(row,
				s.Stats.TotalDuplicates,
				s.Stats.TotalGenerated,
				FormatPercent(s.Stats.DuplicationRatio))
		}
		row = append(row, fmt.Sprintf("%d ms", s.Stats.TimeTakenMs))
		t.AppendRow(row)
	}

	configs := alignRight(len(header))
	if multi {
		configs = configs[1:]
	}
	t.SetColumnConfigs(configs)

	fmt.Fprintln(c.out)
	t.Render()
	fmt.Fprintln(c.out)
}

// FormatPercent formatea un ratio como porcentaje con un decimal (0.1 -> "10.0%").
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
