package exporter

import (
	"context"
	"encoding/json"

	"solrexport/pkg/checkpoint"
	"solrexport/pkg/solr"
)

// Fetcher pulls pages from the remote index
type Fetcher interface {
	Prime(ctx context.Context) (*solr.Page, error)
	Fetch(ctx context.Context, cursor string, rows int) (*solr.Page, error)
}

// Sink durably appends records
type Sink interface {
	Append(records []json.RawMessage) error
}

// Store persists export progress
type Store interface {
	Load() (*checkpoint.State, error)
	Save(state *checkpoint.State) error
}

// Pacer blocks between pages
type Pacer interface {
	Wait(ctx context.Context) error
}

// Observer is told about every state transition and every completed page.
// Calls happen on the driver's goroutine.
type Observer interface {
	StateChanged(from, to State)
	PageCompleted(p Progress)
}
