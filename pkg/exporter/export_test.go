package exporter

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solrexport/internal/solrtest"
	"solrexport/pkg/checkpoint"
	"solrexport/pkg/config"
	"solrexport/pkg/logger"
	"solrexport/pkg/ratelimit"
	"solrexport/pkg/sink"
	"solrexport/pkg/solr"
)

type run struct {
	srv        *solrtest.Server
	dir        string
	checkpoint string
	output     string
}

func newRun(t *testing.T, docs int) *run {
	t.Helper()
	srv := solrtest.New("topic_10236681", docs)
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	return &run{
		srv:        srv,
		dir:        dir,
		checkpoint: filepath.Join(dir, "export_state.json"),
		output:     filepath.Join(dir, "exported_data.jsonl"),
	}
}

func (r *run) exec(t *testing.T, ctx context.Context, pageSize int, observer Observer) (Result, error) {
	t.Helper()
	log := logger.NewTestLogger()

	solrCfg := config.DefaultConfig().Solr
	solrCfg.BaseURL = r.srv.URL
	solrCfg.Collection = r.srv.Collection
	solrCfg.Timeout = 5 * time.Second

	w, err := sink.Open(r.output)
	require.NoError(t, err)
	defer w.Close()

	d := New(
		solr.NewClient(&solrCfg, log),
		w,
		checkpoint.NewManager(r.checkpoint, log),
		ratelimit.NewFixedInterval(0),
		Options{PageSize: pageSize, RetryDelay: time.Millisecond, Logger: log, Observer: observer},
	)
	return d.Run(ctx)
}

func (r *run) ids(t *testing.T) []string {
	t.Helper()
	f, err := os.Open(r.output)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var doc struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &doc))
		ids = append(ids, doc.ID)
	}
	require.NoError(t, scanner.Err())
	return ids
}

func TestExportAgainstSolr(t *testing.T) {
	r := newRun(t, 1050)

	res, err := r.exec(t, context.Background(), 500, nil)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.FinalState)
	assert.Equal(t, int64(1050), res.RecordsExported)
	assert.Equal(t, int64(1050), res.TotalAvailable)
	assert.Equal(t, 3, r.srv.CursorRequests(), "500, 500, then a short page of 50")

	ids := r.ids(t)
	require.Len(t, ids, 1050)
	assert.Equal(t, "doc-00000", ids[0])
	assert.Equal(t, "doc-01049", ids[1049])

	state, err := checkpoint.NewManager(r.checkpoint, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1050), state.TotalExported)
	assert.True(t, state.Completed)

	// A second run finds the completed checkpoint and sends nothing.
	before := len(r.srv.Requests())
	res, err = r.exec(t, context.Background(), 500, nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.FinalState)
	assert.Equal(t, int64(0), res.RecordsThisRun)
	assert.Len(t, r.srv.Requests(), before)
	assert.Len(t, r.ids(t), 1050)
}

type cancelAfterPages struct {
	pages  int
	cancel context.CancelFunc
}

func (c *cancelAfterPages) StateChanged(from, to State) {}

func (c *cancelAfterPages) PageCompleted(p Progress) {
	if p.Page == c.pages {
		c.cancel()
	}
}

func TestExportResumesAfterInterrupt(t *testing.T) {
	r := newRun(t, 1234)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := r.exec(t, ctx, 100, &cancelAfterPages{pages: 3, cancel: cancel})
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, int64(300), res.RecordsExported)
	assert.Len(t, r.ids(t), 300)

	res, err = r.exec(t, context.Background(), 100, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(300), res.RecordsAtStart)
	assert.Equal(t, int64(934), res.RecordsThisRun)

	ids := r.ids(t)
	require.Len(t, ids, 1234)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		require.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func TestExportEndsOnEmptyPageWhenTotalIsMultipleOfPageSize(t *testing.T) {
	r := newRun(t, 1000)

	res, err := r.exec(t, context.Background(), 500, nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.FinalState)
	assert.Equal(t, 3, r.srv.CursorRequests(), "two full pages and one empty")
	assert.Len(t, r.ids(t), 1000)
}

func TestExportRetriesTransientFailures(t *testing.T) {
	r := newRun(t, 20)
	r.srv.FailNext(http.StatusServiceUnavailable, http.StatusBadGateway)

	res, err := r.exec(t, context.Background(), 10, nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.FinalState)
	assert.Equal(t, 2, res.FetchRetries)
	assert.Len(t, r.ids(t), 20)
}
