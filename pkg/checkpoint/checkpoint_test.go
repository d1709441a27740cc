package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solrexport/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), "state", "export_state.json"), logger.NewTestLogger())
}

func TestLoadWithoutCheckpoint(t *testing.T) {
	mgr := newTestManager(t)

	state, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, StartToken, state.ContinuationToken)
	assert.Equal(t, int64(0), state.TotalExported)
	assert.False(t, state.StartTime.IsZero())
	assert.True(t, state.Fresh())
	assert.False(t, mgr.Exists())
}

func TestSaveAndLoad(t *testing.T) {
	mgr := newTestManager(t)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return fixed }

	start := fixed.Add(-time.Hour)
	state := &State{ContinuationToken: "AoE/doc-499", TotalExported: 500, StartTime: start}
	require.NoError(t, mgr.Save(state))
	assert.Equal(t, fixed, state.LastExportTime)

	loaded, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, "AoE/doc-499", loaded.ContinuationToken)
	assert.Equal(t, int64(500), loaded.TotalExported)
	assert.True(t, start.Equal(loaded.StartTime))
	assert.True(t, fixed.Equal(loaded.LastExportTime))
	assert.False(t, loaded.Fresh())

	_, err = os.Stat(mgr.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")
}

func TestFileFormat(t *testing.T) {
	mgr := newTestManager(t)
	mgr.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, mgr.Save(&State{
		ContinuationToken: "tok",
		TotalExported:     3,
		StartTime:         time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}))

	data, err := os.ReadFile(mgr.Path())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "tok", raw["continuation_token"])
	assert.Equal(t, float64(3), raw["total_exported"])
	assert.Equal(t, "2024-05-01T10:00:00Z", raw["last_export_time"])
	assert.Equal(t, "2024-05-01T09:00:00Z", raw["start_time"])
}

func TestSaveOverwrites(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Save(&State{ContinuationToken: "a", TotalExported: 500}))
	require.NoError(t, mgr.Save(&State{ContinuationToken: "b", TotalExported: 1000}))

	loaded, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, "b", loaded.ContinuationToken)
	assert.Equal(t, int64(1000), loaded.TotalExported)
}

func TestLoadCorrupt(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(mgr.Path()), 0755))
	require.NoError(t, os.WriteFile(mgr.Path(), []byte("{not json"), 0644))

	_, err := mgr.Load()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{"continuation_token":"x","total_exported":-1}`), 0644))
	_, err = mgr.Load()
	assert.Error(t, err)
}

func TestLoadFillsMissingToken(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(mgr.Path()), 0755))
	require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{"total_exported":0}`), 0644))

	state, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, StartToken, state.ContinuationToken)
}

func TestDeleteAndExists(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Delete(), "deleting a missing checkpoint is not an error")

	require.NoError(t, mgr.Save(&State{ContinuationToken: "a"}))
	assert.True(t, mgr.Exists())

	require.NoError(t, mgr.Delete())
	assert.False(t, mgr.Exists())
}

func TestInfo(t *testing.T) {
	mgr := newTestManager(t)

	info, err := mgr.Info()
	require.NoError(t, err)
	assert.Nil(t, info)

	saved := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return saved }
	require.NoError(t, mgr.Save(&State{ContinuationToken: "a", TotalExported: 42, StartTime: saved, Completed: true}))

	mgr.now = func() time.Time { return saved.Add(5 * time.Minute) }
	info, err = mgr.Info()
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, int64(42), info.TotalExported)
	assert.Equal(t, 5*time.Minute, info.Age)
	assert.Equal(t, mgr.Path(), info.Path)
	assert.True(t, info.Completed)

	data, err := os.ReadFile(mgr.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"completed": true`)
}

func TestBackup(t *testing.T) {
	mgr := newTestManager(t)

	path, err := mgr.Backup()
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, mgr.Save(&State{ContinuationToken: "a", TotalExported: 7}))
	path, err = mgr.Backup()
	require.NoError(t, err)

	orig, err := os.ReadFile(mgr.Path())
	require.NoError(t, err)
	backup, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, orig, backup)
}
