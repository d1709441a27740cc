package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"solrexport/pkg/logger"
)

// StartToken is the continuation token of an export that has not fetched anything yet
const StartToken = "*"

// State is the persisted progress of an export
type State struct {
	ContinuationToken string    `json:"continuation_token"`
	TotalExported     int64     `json:"total_exported"`
	LastExportTime    time.Time `json:"last_export_time"`
	StartTime         time.Time `json:"start_time"`
	// Completed is set once the cursor reported the end of the collection.
	// A completed export is never fetched again.
	Completed bool `json:"completed,omitempty"`
}

// Fresh reports whether the state has not advanced past the start token
func (s *State) Fresh() bool {
	return s.ContinuationToken == "" || s.ContinuationToken == StartToken
}

// Info summarizes a persisted checkpoint
type Info struct {
	Path              string
	ContinuationToken string
	TotalExported     int64
	StartTime         time.Time
	LastExportTime    time.Time
	Age               time.Duration
	Completed         bool
}

// Manager reads and writes the checkpoint file at one path
type Manager struct {
	path string
	log  logger.Logger
	now  func() time.Time
}

// NewManager returns a Manager for path. A nil log uses the global logger.
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{path: path, log: log, now: time.Now}
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) fresh() *State {
	now := m.now()
	return &State{ContinuationToken: StartToken, StartTime: now, LastExportTime: now}
}

// Load reads the persisted state. A missing file yields a fresh state
// positioned at StartToken.
func (m *Manager) Load() (*State, error) {
	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		m.log.WithField("path", m.path).Info("no checkpoint, starting from the beginning")
		return m.fresh(), nil
	case err != nil:
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("checkpoint %s is corrupt: %w", m.path, err)
	}
	if st.TotalExported < 0 {
		return nil, fmt.Errorf("checkpoint %s has negative total_exported %d", m.path, st.TotalExported)
	}
	if st.ContinuationToken == "" {
		st.ContinuationToken = StartToken
	}
	if st.StartTime.IsZero() {
		st.StartTime = m.now()
	}

	m.log.InfoWithFields("resuming from checkpoint", map[string]interface{}{
		"total_exported":     st.TotalExported,
		"continuation_token": st.ContinuationToken,
		"last_export_time":   st.LastExportTime,
		"completed":          st.Completed,
	})
	return &st, nil
}

// Save stamps LastExportTime and replaces the file atomically
func (m *Manager) Save(state *State) error {
	state.LastExportTime = m.now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := writeAtomic(m.path, append(data, '\n')); err != nil {
		return err
	}

	m.log.DebugWithFields("checkpoint saved", map[string]interface{}{
		"total_exported":     state.TotalExported,
		"continuation_token": state.ContinuationToken,
	})
	return nil
}

// writeAtomic writes data to a sibling temp file, syncs it and renames it
// over path, so readers see either the old or the new contents.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Delete removes the checkpoint. A missing file is not an error.
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	m.log.WithField("path", m.path).Info("checkpoint deleted")
	return nil
}

func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Info summarizes the checkpoint, or returns nil when there is none
func (m *Manager) Info() (*Info, error) {
	if !m.Exists() {
		return nil, nil
	}
	st, err := m.Load()
	if err != nil {
		return nil, err
	}
	return &Info{
		Path:              m.path,
		ContinuationToken: st.ContinuationToken,
		TotalExported:     st.TotalExported,
		StartTime:         st.StartTime,
		LastExportTime:    st.LastExportTime,
		Age:               m.now().Sub(st.LastExportTime),
		Completed:         st.Completed,
	}, nil
}

// Backup copies the checkpoint to path.backup and returns that path.
// With no checkpoint it returns "".
func (m *Manager) Backup() (string, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read checkpoint for backup: %w", err)
	}

	backup := m.path + ".backup"
	if err := writeAtomic(backup, data); err != nil {
		return "", fmt.Errorf("backup checkpoint: %w", err)
	}
	m.log.WithField("backup", backup).Debug("checkpoint backed up")
	return backup, nil
}
