package facets

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"solrexport/pkg/logger"
	"solrexport/pkg/retry"
	"solrexport/pkg/solr"
)

// Source answers facet queries for one index
type Source interface {
	Facets(ctx context.Context, filterQuery, field string, limit int) (*solr.FacetResult, error)
}

// Target is one named index taking part in a comparison
type Target struct {
	Name   string
	Source Source
}

// Options controls facet collection
type Options struct {
	Field       string
	Limit       int
	IDField     string
	Concurrency int
	// MaxAttempts per query; a query that still fails counts as no terms
	MaxAttempts int
	Backoff     retry.BackoffStrategy
	Logger      logger.Logger
	// OnDocument is called after every target has answered for one id
	OnDocument func(done, total int)
}

// Results holds the term counts collected per document and target
type Results struct {
	Targets  []string
	IDs      []string
	Terms    map[string]map[string]map[string]int64 // id -> target -> term -> count
	Failures int
	Elapsed  time.Duration
}

// Get returns the terms target reported for id, nil when it reported none
func (r *Results) Get(id, target string) map[string]int64 {
	return r.Terms[id][target]
}

// Collect queries every target for the facet terms of every id. Requests run
// concurrently up to opts.Concurrency. Failed queries are logged and recorded
// as empty so one unhealthy target does not hide the others. Repeated ids are
// queried once.
func Collect(ctx context.Context, targets []Target, ids []string, opts Options) (*Results, error) {
	opts = withDefaults(opts)
	ids = uniqueIDs(ids)
	start := time.Now()

	res := &Results{
		IDs:   ids,
		Terms: make(map[string]map[string]map[string]int64, len(ids)),
	}
	for _, t := range targets {
		res.Targets = append(res.Targets, t.Name)
	}
	for _, id := range ids {
		res.Terms[id] = make(map[string]map[string]int64, len(targets))
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]int, len(ids))
		done    int
	)
	for _, id := range ids {
		pending[id] = len(targets)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, id := range ids {
		for _, t := range targets {
			id, t := id, t
			g.Go(func() error {
				terms, err := query(gctx, t, id, opts)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					opts.Logger.WithError(err).ErrorWithFields("facet query failed", map[string]interface{}{
						"target": t.Name,
						"id":     id,
					})
				}

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Failures++
				}
				res.Terms[id][t.Name] = terms
				pending[id]--
				if pending[id] == 0 {
					done++
					if opts.OnDocument != nil {
						opts.OnDocument(done, len(ids))
					}
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func query(ctx context.Context, t Target, id string, opts Options) (map[string]int64, error) {
	cfg := &retry.Config{
		MaxAttempts: opts.MaxAttempts,
		Backoff:     opts.Backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      opts.Logger,
	}

	result, err := retry.DoWithResult(func() (*solr.FacetResult, error) {
		return t.Source.Facets(ctx, solr.TermQuery(opts.IDField, id), opts.Field, opts.Limit)
	}, cfg)
	if err != nil {
		return map[string]int64{}, err
	}
	return result.Terms, nil
}

func withDefaults(opts Options) Options {
	if opts.Field == "" {
		opts.Field = "search_text_cloud"
	}
	if opts.Limit == 0 {
		opts.Limit = 1000
	}
	if opts.IDField == "" {
		opts.IDField = "id"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultExponentialBackoff()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return opts
}

// uniqueIDs drops repeated ids, keeping first occurrences in order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
