package exporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solrexport/pkg/checkpoint"
	"solrexport/pkg/config"
	"solrexport/pkg/errors"
	"solrexport/pkg/logger"
	"solrexport/pkg/retry"
	"solrexport/pkg/solr"
)

// Options tunes a Driver
type Options struct {
	PageSize         int
	RetryDelay       time.Duration
	MaxFetchAttempts int
	Logger           logger.Logger
	Observer         Observer
}

// OptionsFromConfig builds driver options from the export section of the config
func OptionsFromConfig(cfg *config.ExportConfig, log logger.Logger) Options {
	return Options{
		PageSize:         cfg.PageSize,
		RetryDelay:       cfg.RetryDelay,
		MaxFetchAttempts: cfg.MaxFetchAttempts,
		Logger:           log,
	}
}

// Driver walks the whole collection: fetch a page, sink it, checkpoint it,
// pace, repeat. One Driver runs once.
type Driver struct {
	fetcher Fetcher
	sink    Sink
	store   Store
	pacer   Pacer
	opts    Options
	logger  logger.Logger
	now     func() time.Time

	mu     sync.Mutex
	state  State
	result Result
}

// New creates a driver
func New(fetcher Fetcher, sink Sink, store Store, pacer Pacer, opts Options) *Driver {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}

	return &Driver{
		fetcher: fetcher,
		sink:    sink,
		store:   store,
		pacer:   pacer,
		opts:    opts,
		logger:  log.WithField("component", "exporter"),
		now:     time.Now,
		state:   StateInit,
		result:  Result{FinalState: StateInit, TotalAvailable: UnknownTotal},
	}
}

// State returns the current state
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Result returns a copy of the run summary so far
func (d *Driver) Result() Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

func (d *Driver) transition(to State) {
	d.mu.Lock()
	from := d.state
	d.state = to
	d.result.FinalState = to
	d.mu.Unlock()

	if from == to {
		return
	}
	d.logger.DebugWithFields("state transition", map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	})
	if d.opts.Observer != nil {
		d.opts.Observer.StateChanged(from, to)
	}
}

func (d *Driver) update(fn func(r *Result)) {
	d.mu.Lock()
	fn(&d.result)
	d.mu.Unlock()
}

// Run exports until the remote reports the end of the collection, a sink write
// fails, fetch attempts run out or ctx is cancelled. The end is an empty page,
// a page shorter than PageSize or a cursor that comes back unchanged. Reaching
// the end marks the checkpoint completed, and a completed checkpoint makes Run
// return DONE without fetching. It returns ErrInterrupted on cancellation. On
// every exit after the checkpoint was loaded a final checkpoint save is attempted.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	runStart := d.now()
	d.transition(StateInit)

	state, err := d.store.Load()
	if err != nil {
		d.transition(StateAborted)
		return d.finish(runStart), fmt.Errorf("load checkpoint: %w", err)
	}

	d.update(func(r *Result) {
		r.RecordsAtStart = state.TotalExported
		r.RecordsExported = state.TotalExported
		r.Cursor = state.ContinuationToken
	})

	logger.LogComponentStart(d.logger, "exporter", map[string]interface{}{
		"page_size":          d.opts.PageSize,
		"retry_delay":        d.opts.RetryDelay.String(),
		"max_fetch_attempts": d.opts.MaxFetchAttempts,
		"resumed":            !state.Fresh(),
		"total_exported":     state.TotalExported,
	})

	if state.Completed {
		d.logger.InfoWithFields("export already complete, nothing to fetch", map[string]interface{}{
			"total_exported":     state.TotalExported,
			"continuation_token": state.ContinuationToken,
		})
		d.transition(StateDone)
		logger.LogComponentStop(d.logger, "exporter", "already complete")
		return d.finish(runStart), nil
	}

	total := UnknownTotal

	if state.Fresh() {
		primed, err := d.fetchWithRetry(ctx, "prime", func() (*solr.Page, error) {
			return d.fetcher.Prime(ctx)
		})
		if err != nil {
			return d.fail(ctx, runStart, state, fmt.Errorf("open cursor: %w", err))
		}
		if primed.NextCursor != "" {
			state.ContinuationToken = primed.NextCursor
		}
		total = primed.Total
		d.update(func(r *Result) { r.TotalAvailable = total })
	}

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return d.interrupt(runStart, state)
		}

		d.transition(StateFetching)
		cursor := state.ContinuationToken
		fetchStart := d.now()
		fetched, err := d.fetchWithRetry(ctx, "fetch", func() (*solr.Page, error) {
			p, err := d.fetcher.Fetch(ctx, cursor, d.opts.PageSize)
			if err == nil && !p.Empty() && p.NextCursor == "" {
				return nil, errors.New(errors.ErrorTypeParsing, 0, nil, "page of %d records came without a next cursor", len(p.Records))
			}
			return p, err
		})
		if err != nil {
			return d.fail(ctx, runStart, state, fmt.Errorf("fetch page %d: %w", page, err))
		}
		fetchDuration := d.now().Sub(fetchStart)

		if fetched.Total >= 0 {
			total = fetched.Total
			d.update(func(r *Result) { r.TotalAvailable = total })
		}

		if fetched.Empty() {
			d.logger.InfoWithFields("cursor returned no records", map[string]interface{}{
				"cursor": cursor,
			})
			return d.complete(runStart, state)
		}

		d.transition(StateSinking)
		sinkStart := d.now()
		if err := d.sink.Append(fetched.Records); err != nil {
			d.logger.WithError(err).ErrorWithFields("failed to write page", map[string]interface{}{
				"page":    page,
				"records": len(fetched.Records),
			})
			return d.abort(runStart, state, fmt.Errorf("write page %d: %w", page, err))
		}
		sinkDuration := d.now().Sub(sinkStart)

		d.transition(StateCheckpointing)
		echoed := fetched.Exhausted(cursor)
		short := len(fetched.Records) < d.opts.PageSize
		if !echoed {
			state.ContinuationToken = fetched.NextCursor
		}
		state.TotalExported += int64(len(fetched.Records))
		d.saveCheckpoint(state)

		d.update(func(r *Result) {
			r.Pages++
			r.RecordsThisRun += int64(len(fetched.Records))
			r.RecordsExported = state.TotalExported
			r.Cursor = state.ContinuationToken
		})
		logger.LogExportProgress(d.logger, state.TotalExported, total)

		if d.opts.Observer != nil {
			d.opts.Observer.PageCompleted(Progress{
				Page:            page,
				Records:         len(fetched.Records),
				RecordsExported: state.TotalExported,
				RecordsAtStart:  d.Result().RecordsAtStart,
				TotalAvailable:  total,
				PageSize:        d.opts.PageSize,
				FetchDuration:   fetchDuration,
				SinkDuration:    sinkDuration,
				RunStarted:      runStart,
				ExportStarted:   state.StartTime,
				Cursor:          state.ContinuationToken,
			})
		}

		if echoed || short {
			d.logger.InfoWithFields("reached the end of the collection", map[string]interface{}{
				"cursor":       cursor,
				"echoed":       echoed,
				"page_records": len(fetched.Records),
			})
			return d.complete(runStart, state)
		}

		// The size snapshot only decides whether to pause; the next fetch
		// confirms the end of the collection.
		if total == UnknownTotal || state.TotalExported < total {
			d.transition(StatePacing)
			if err := d.pacer.Wait(ctx); err != nil {
				return d.interrupt(runStart, state)
			}
		}
	}
}

// fetchWithRetry retries op at the configured fixed delay
func (d *Driver) fetchWithRetry(ctx context.Context, what string, op func() (*solr.Page, error)) (*solr.Page, error) {
	cfg := retry.FixedDelayConfig(ctx, d.opts.RetryDelay, d.opts.MaxFetchAttempts, nil)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		d.update(func(r *Result) { r.FetchRetries++ })

		fields := map[string]interface{}{
			"request":  what,
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"type":     string(errors.TypeOf(err)),
		}
		if errors.IsRetryable(errors.TypeOf(err)) {
			d.logger.WithError(err).WarnWithFields("request failed, retrying", fields)
		} else {
			d.logger.WithError(err).ErrorWithFields("request failed, retrying", fields)
		}
	}

	return retry.DoWithResult(func() (*solr.Page, error) {
		d.update(func(r *Result) { r.FetchAttempts++ })
		return op()
	}, cfg)
}

func (d *Driver) saveCheckpoint(state *checkpoint.State) bool {
	if err := d.store.Save(state); err != nil {
		d.update(func(r *Result) { r.CheckpointFails++ })
		cpErr := errors.New(errors.ErrorTypeCheckpoint, 0, err, "save checkpoint: %v", err)
		d.logger.WithError(cpErr).WarnWithFields("failed to save checkpoint, continuing", map[string]interface{}{
			"continuation_token": state.ContinuationToken,
			"total_exported":     state.TotalExported,
		})
		return false
	}
	return true
}

// fail routes a fetch failure to interrupt or abort
func (d *Driver) fail(ctx context.Context, runStart time.Time, state *checkpoint.State, err error) (Result, error) {
	if ctx.Err() != nil {
		return d.interrupt(runStart, state)
	}
	return d.abort(runStart, state, err)
}

func (d *Driver) complete(runStart time.Time, state *checkpoint.State) (Result, error) {
	state.Completed = true
	d.saveCheckpoint(state)
	d.transition(StateDone)
	logger.LogComponentStop(d.logger, "exporter", "completed")
	return d.finish(runStart), nil
}

func (d *Driver) abort(runStart time.Time, state *checkpoint.State, err error) (Result, error) {
	d.saveCheckpoint(state)
	d.transition(StateAborted)
	logger.LogComponentStop(d.logger, "exporter", err.Error())
	return d.finish(runStart), err
}

func (d *Driver) interrupt(runStart time.Time, state *checkpoint.State) (Result, error) {
	d.saveCheckpoint(state)
	d.transition(StateAborted)
	logger.LogComponentStop(d.logger, "exporter", "interrupted")
	return d.finish(runStart), ErrInterrupted
}

func (d *Driver) finish(runStart time.Time) Result {
	d.update(func(r *Result) { r.Duration = d.now().Sub(runStart) })
	return d.Result()
}
