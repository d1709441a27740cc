package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"solrexport/pkg/checkpoint"
	"solrexport/pkg/exporter"
)

// NewTable returns a table writer mirroring to w
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderSummary prints the outcome of an export run
func RenderSummary(w io.Writer, res exporter.Result, outputPath string, outputSize int64) {
	st := ComputeStats(Snapshot{
		RecordsExported: res.RecordsExported,
		RecordsAtStart:  res.RecordsAtStart,
		TotalAvailable:  res.TotalAvailable,
		Elapsed:         res.Duration,
	})

	t := NewTable(w)
	t.SetTitle("Export summary")
	t.AppendRows([]table.Row{
		{"State", string(res.FinalState)},
		{"Records this run", humanize.Comma(res.RecordsThisRun)},
		{"Records exported", humanize.Comma(res.RecordsExported)},
		{"Total available", formatTotal(res.TotalAvailable)},
		{"Pages", res.Pages},
		{"Fetch attempts", fmt.Sprintf("%d (%d retried)", res.FetchAttempts, res.FetchRetries)},
		{"Checkpoint failures", res.CheckpointFails},
		{"Duration", FormatDuration(res.Duration)},
		{"Throughput", fmt.Sprintf("%.1f records/min", st.Throughput)},
		{"Output", fmt.Sprintf("%s (%s)", outputPath, humanize.Bytes(uint64(max(outputSize, 0))))},
	})
	t.Render()
}

// RenderStatus prints a saved checkpoint. total is negative when unknown.
func RenderStatus(w io.Writer, info *checkpoint.Info, total int64, outputPath string, outputSize int64) {
	t := NewTable(w)
	t.SetTitle("Export status")

	if info == nil {
		t.AppendRow(table.Row{"Checkpoint", "none"})
		t.AppendRow(table.Row{"Total available", formatTotal(total)})
		t.Render()
		return
	}

	st := ComputeStats(Snapshot{
		RecordsExported: info.TotalExported,
		TotalAvailable:  total,
	})

	t.AppendRows([]table.Row{
		{"Checkpoint", info.Path},
		{"Continuation token", info.ContinuationToken},
		{"Finished", yesNo(info.Completed)},
		{"Records exported", humanize.Comma(info.TotalExported)},
		{"Total available", formatTotal(total)},
	})
	if st.TotalKnown {
		t.AppendRows([]table.Row{
			{"Complete", fmt.Sprintf("%.2f%%", st.Percent)},
			{"Remaining", humanize.Comma(st.Remaining)},
		})
	}
	t.AppendRows([]table.Row{
		{"Started", info.StartTime.Format(time.RFC3339)},
		{"Last saved", fmt.Sprintf("%s (%s)", info.LastExportTime.Format(time.RFC3339), humanize.Time(info.LastExportTime))},
		{"Output", fmt.Sprintf("%s (%s)", outputPath, humanize.Bytes(uint64(max(outputSize, 0))))},
	})
	t.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTotal(total int64) string {
	if total < 0 {
		return "unknown"
	}
	return humanize.Comma(total)
}
