package ui

import (
	"fmt"
	"math"
	"time"
)

// Snapshot is the raw export progress the statistics are derived from
type Snapshot struct {
	RecordsExported int64
	RecordsAtStart  int64
	// TotalAvailable is negative when the collection size is unknown
	TotalAvailable int64
	Elapsed        time.Duration
	PageSize       int
	LastFetch      time.Duration
	LastSink       time.Duration
}

// Stats are derived progress figures
type Stats struct {
	RecordsThisRun    int64
	Throughput        float64 // records per minute over this run
	Percent           float64
	Remaining         int64
	RemainingRequests int64
	ETA               time.Duration
	TotalKnown        bool
	ETAKnown          bool
	LastFetch         time.Duration
	LastSink          time.Duration
}

// ComputeStats derives throughput, completion and ETA from s. The ETA
// extrapolates this run's average rate linearly over the remaining records.
func ComputeStats(s Snapshot) Stats {
	st := Stats{
		RecordsThisRun: s.RecordsExported - s.RecordsAtStart,
		LastFetch:      s.LastFetch,
		LastSink:       s.LastSink,
	}
	if st.RecordsThisRun < 0 {
		st.RecordsThisRun = 0
	}

	if s.Elapsed > 0 {
		st.Throughput = float64(st.RecordsThisRun) / s.Elapsed.Minutes()
	}

	if s.TotalAvailable < 0 {
		return st
	}
	st.TotalKnown = true

	st.Remaining = s.TotalAvailable - s.RecordsExported
	if st.Remaining < 0 {
		st.Remaining = 0
	}

	if s.TotalAvailable > 0 {
		st.Percent = math.Min(100, float64(s.RecordsExported)/float64(s.TotalAvailable)*100)
	} else {
		st.Percent = 100
	}

	if s.PageSize > 0 {
		st.RemainingRequests = (st.Remaining + int64(s.PageSize) - 1) / int64(s.PageSize)
	}

	if st.Remaining == 0 {
		st.ETAKnown = true
		return st
	}
	if st.RecordsThisRun > 0 && s.Elapsed > 0 {
		perRecord := float64(s.Elapsed) / float64(st.RecordsThisRun)
		st.ETA = time.Duration(perRecord * float64(st.Remaining))
		st.ETAKnown = true
	}

	return st
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
