package sink

import (
	"bufio"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solrexport/pkg/errors"
)

func raw(docs ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		out[i] = json.RawMessage(d)
	}
	return out
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestAppendWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "exported_data.jsonl")

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(raw("{\"id\": \"a\",\n  \"title\": \"first\\nline\"}", `{"id":"b"}`)))
	require.NoError(t, w.Append(raw(`{ "id" : "c" }`)))

	lines := readLines(t, path)
	assert.Equal(t, []string{`{"id":"a","title":"first\nline"}`, `{"id":"b"}`, `{"id":"c"}`}, lines)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), w.Size())
}

func TestAppendEmptyPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(nil))
	assert.Equal(t, int64(0), w.Size())
}

func TestReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(raw(`{"id":"a"}`)))
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(`{"id":"a"}`)+1), w.Size())
	require.NoError(t, w.Append(raw(`{"id":"b"}`)))
	require.NoError(t, w.Close())

	assert.Equal(t, []string{`{"id":"a"}`, `{"id":"b"}`}, readLines(t, path))
}

func TestInvalidRecordRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(raw(`{"id":"a"}`)))

	err = w.Append(raw(`{"id":"b"}`, `{broken`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSink))

	assert.Equal(t, []string{`{"id":"a"}`}, readLines(t, path))
	assert.Equal(t, int64(len(`{"id":"a"}`)+1), w.Size())
}

func TestFailedRollbackIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(raw(`{"id":"a"}`)))

	readOnly := stderrors.New("read-only file system")
	var truncatedTo int64 = -1
	w.truncate = func(size int64) error {
		truncatedTo = size
		return readOnly
	}

	err = w.Append(raw(`{"id":"b"}`, `{broken`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSink))
	assert.ErrorIs(t, err, readOnly)
	assert.Contains(t, err.Error(), "rollback to 11 bytes failed")
	assert.Equal(t, int64(11), truncatedTo)
	assert.Equal(t, int64(11), w.Size())
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "out.jsonl"))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	err = w.Append(raw(`{"id":"a"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestOpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := Open(filepath.Join(blocker, "out.jsonl"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSink))
}
