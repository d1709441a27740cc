package facets

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"solrexport/pkg/ui"
)

func percent(n, of int) string {
	if of == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(of))
}

// WriteTable renders pair statistics as a table
func WriteTable(w io.Writer, pairs []PairStats) {
	t := ui.NewTable(w)
	t.SetTitle("Facet comparison")
	t.AppendHeader(table.Row{"Left", "Right", "Docs", "Same", "Different", "Only left", "Only right", "Avg terms diff"})
	for _, p := range pairs {
		t.AppendRow(table.Row{
			p.Left,
			p.Right,
			p.Documents,
			fmt.Sprintf("%d (%s)", p.Same, percent(p.Same, p.Documents)),
			fmt.Sprintf("%d (%s)", p.Different, percent(p.Different, p.Documents)),
			p.OnlyInLeft,
			p.OnlyInRight,
			fmt.Sprintf("%.2f", p.AvgTermsDiff),
		})
	}
	t.Render()
}

// WriteDifferences renders up to limit document differences
func WriteDifferences(w io.Writer, diffs []DocDiff, limit int) {
	if limit > 0 && len(diffs) > limit {
		diffs = diffs[:limit]
	}

	t := ui.NewTable(w)
	t.AppendHeader(table.Row{"ID", "Pair", "Only left", "Only right", "Recounted"})
	for _, d := range diffs {
		t.AppendRow(table.Row{
			d.ID,
			d.Left + " / " + d.Right,
			summarizeTerms(d.OnlyInLeft),
			summarizeTerms(d.OnlyInRight),
			summarizeTerms(d.Recounted),
		})
	}
	t.Render()
}

func summarizeTerms(terms []string) string {
	const shown = 5
	if len(terms) <= shown {
		return strings.Join(terms, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(terms[:shown], ", "), len(terms)-shown)
}

// WriteCSV writes pair statistics as CSV with a header row
func WriteCSV(w io.Writer, pairs []PairStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"left", "right", "documents", "same", "different", "only_in_left", "only_in_right", "avg_terms_diff"}); err != nil {
		return err
	}
	for _, p := range pairs {
		record := []string{
			p.Left,
			p.Right,
			strconv.Itoa(p.Documents),
			strconv.Itoa(p.Same),
			strconv.Itoa(p.Different),
			strconv.Itoa(p.OnlyInLeft),
			strconv.Itoa(p.OnlyInRight),
			strconv.FormatFloat(p.AvgTermsDiff, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
