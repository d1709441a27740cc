package exporter

import (
	"errors"
	"time"
)

// State names a phase of the export loop
type State string

const (
	StateInit          State = "INIT"
	StateFetching      State = "FETCHING"
	StateSinking       State = "SINKING"
	StateCheckpointing State = "CHECKPOINTING"
	StatePacing        State = "PACING"
	StateDone          State = "DONE"
	StateAborted       State = "ABORTED"
)

// Terminal reports whether no further transitions follow s
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// ErrInterrupted is returned when the run was cancelled before completion
var ErrInterrupted = errors.New("export interrupted")

// UnknownTotal marks a collection size that has not been observed yet
const UnknownTotal int64 = -1

// Progress describes the export right after a page was sunk and checkpointed
type Progress struct {
	Page            int
	Records         int
	RecordsExported int64
	RecordsAtStart  int64
	TotalAvailable  int64
	PageSize        int
	FetchDuration   time.Duration
	SinkDuration    time.Duration
	RunStarted      time.Time
	ExportStarted   time.Time
	Cursor          string
}

// Result summarizes one run of the driver
type Result struct {
	FinalState      State
	Pages           int
	RecordsThisRun  int64
	RecordsExported int64
	RecordsAtStart  int64
	TotalAvailable  int64
	FetchAttempts   int
	FetchRetries    int
	CheckpointFails int
	Duration        time.Duration
	Cursor          string
}
