package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"solrexport/pkg/exporter"
	"solrexport/pkg/logger"
)

const barWidth = 30

// Reporter renders export progress. On a terminal it redraws a single status
// line after every page; otherwise it emits one structured log line per page.
type Reporter struct {
	out      io.Writer
	log      logger.Logger
	size     func() int64
	tty      bool
	width    int
	now      func() time.Time
	mu       sync.Mutex
	drawn    bool
	lastStat Stats
}

// NewReporter creates a reporter writing to out. size, when non-nil, reports the
// output file size.
func NewReporter(out io.Writer, log logger.Logger, size func() int64) *Reporter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Reporter{
		out:   out,
		log:   log,
		size:  size,
		tty:   IsTerminal(out) && !IsQuietMode(),
		width: terminalWidth(out, 120),
		now:   time.Now,
	}
}

// StateChanged ends the progress line once the run is over
func (r *Reporter) StateChanged(from, to exporter.State) {
	if !to.Terminal() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tty && r.drawn {
		fmt.Fprintln(r.out)
		r.drawn = false
	}
}

// PageCompleted renders progress after a page
func (r *Reporter) PageCompleted(p exporter.Progress) {
	st := ComputeStats(Snapshot{
		RecordsExported: p.RecordsExported,
		RecordsAtStart:  p.RecordsAtStart,
		TotalAvailable:  p.TotalAvailable,
		Elapsed:         r.now().Sub(p.RunStarted),
		PageSize:        p.PageSize,
		LastFetch:       p.FetchDuration,
		LastSink:        p.SinkDuration,
	})

	var size int64
	if r.size != nil {
		size = r.size()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastStat = st

	if !r.tty {
		fields := map[string]interface{}{
			"page":               p.Page,
			"records":            p.Records,
			"exported":           p.RecordsExported,
			"throughput_per_min": fmt.Sprintf("%.1f", st.Throughput),
			"fetch_ms":           p.FetchDuration.Milliseconds(),
			"sink_ms":            p.SinkDuration.Milliseconds(),
			"output_bytes":       size,
		}
		if st.TotalKnown {
			fields["total"] = p.TotalAvailable
			fields["percent"] = fmt.Sprintf("%.2f", st.Percent)
			fields["remaining"] = st.Remaining
			fields["remaining_requests"] = st.RemainingRequests
		}
		if st.ETAKnown {
			fields["eta"] = FormatDuration(st.ETA)
		}
		r.log.InfoWithFields("page exported", fields)
		return
	}

	line := ProgressLine(p.RecordsExported, p.TotalAvailable, st, size)
	if pad := r.width - 1 - len([]rune(line)); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	fmt.Fprintf(r.out, "\r%s", line)
	r.drawn = true
}

// LastStats returns the statistics computed for the most recent page
func (r *Reporter) LastStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStat
}

// ProgressLine formats one status line
func ProgressLine(exported, total int64, st Stats, size int64) string {
	var b strings.Builder

	if st.TotalKnown {
		filled := int(st.Percent / 100 * barWidth)
		if filled > barWidth {
			filled = barWidth
		}
		b.WriteString("[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "] ")
		fmt.Fprintf(&b, "%.1f%% %s/%s", st.Percent, humanize.Comma(exported), humanize.Comma(total))
	} else {
		fmt.Fprintf(&b, "%s records", humanize.Comma(exported))
	}

	fmt.Fprintf(&b, " • %s/min", humanize.Comma(int64(st.Throughput)))
	if size > 0 {
		fmt.Fprintf(&b, " • %s", humanize.Bytes(uint64(size)))
	}
	if st.ETAKnown && st.Remaining > 0 {
		fmt.Fprintf(&b, " • ETA %s", FormatDuration(st.ETA))
	}
	return b.String()
}
