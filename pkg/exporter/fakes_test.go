package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"solrexport/pkg/checkpoint"
	"solrexport/pkg/solr"
)

// scriptedFetcher serves a fixed collection with cursors "p<offset>". When
// lastEchoes is set the final non-empty page echoes its input cursor.
type scriptedFetcher struct {
	mu         sync.Mutex
	total      int
	lastEchoes bool
	fetches    []string
	primes     int
	failures   map[int]error // fetch call number (1-based) -> error
	onFetch    func(call int)
}

func newScriptedFetcher(total int) *scriptedFetcher {
	return &scriptedFetcher{total: total, failures: map[int]error{}}
}

func cursorAt(offset int) string { return fmt.Sprintf("p%d", offset) }

func (f *scriptedFetcher) Prime(ctx context.Context) (*solr.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primes++
	return &solr.Page{NextCursor: cursorAt(0), Total: int64(f.total)}, nil
}

func (f *scriptedFetcher) Fetch(ctx context.Context, cursor string, rows int) (*solr.Page, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, cursor)
	call := len(f.fetches)
	err := f.failures[call]
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}

	var offset int
	if _, err := fmt.Sscanf(cursor, "p%d", &offset); err != nil {
		return nil, fmt.Errorf("bad cursor %q", cursor)
	}

	end := offset + rows
	if end > f.total {
		end = f.total
	}
	page := &solr.Page{Total: int64(f.total), NextCursor: cursor}
	for i := offset; i < end; i++ {
		page.Records = append(page.Records, json.RawMessage(fmt.Sprintf(`{"id":"doc-%05d"}`, i)))
	}
	if len(page.Records) > 0 && !(f.lastEchoes && end == f.total) {
		page.NextCursor = cursorAt(end)
	}
	return page, nil
}

func (f *scriptedFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

// memorySink collects records and can fail on a given append call
type memorySink struct {
	records []string
	calls   int
	failOn  int
	err     error
}

func (s *memorySink) Append(records []json.RawMessage) error {
	s.calls++
	if s.failOn != 0 && s.calls == s.failOn {
		return s.err
	}
	for _, r := range records {
		s.records = append(s.records, string(r))
	}
	return nil
}

// memoryStore keeps the last saved state and the history of saves
type memoryStore struct {
	saved   *checkpoint.State
	history []checkpoint.State
	failing bool
}

func (s *memoryStore) Load() (*checkpoint.State, error) {
	if s.saved == nil {
		return &checkpoint.State{ContinuationToken: checkpoint.StartToken}, nil
	}
	cp := *s.saved
	return &cp, nil
}

func (s *memoryStore) Save(state *checkpoint.State) error {
	if s.failing {
		return fmt.Errorf("disk full")
	}
	cp := *state
	s.saved = &cp
	s.history = append(s.history, cp)
	return nil
}

// countingPacer records waits without sleeping
type countingPacer struct {
	waits  int
	cancel context.CancelFunc
	after  int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	if p.cancel != nil && p.waits == p.after {
		p.cancel()
	}
	return ctx.Err()
}

// recordingObserver keeps transitions and page callbacks
type recordingObserver struct {
	transitions []State
	pages       []Progress
}

func (o *recordingObserver) StateChanged(from, to State) {
	o.transitions = append(o.transitions, to)
}

func (o *recordingObserver) PageCompleted(p Progress) {
	o.pages = append(o.pages, p)
}
