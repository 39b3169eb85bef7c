package watch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

const stateFileName = "watch_state.json"

// AuditState is the last run recorded for one base URL
type AuditState struct {
	LastRunTime    time.Time `json:"last_run_time"`
	LastRunSuccess bool      `json:"last_run_success"`
	Results        int       `json:"results"`
	BrokenURLs     []string  `json:"broken_urls,omitempty"` // Sorted
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// WatchState is the persisted state of every watched base URL
type WatchState struct {
	Audits    map[string]AuditState `json:"audits"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// StateManager loads and saves watch state as JSON under the state directory
type StateManager struct {
	stateDir  string
	statePath string
	state     WatchState
	mu        sync.RWMutex
}

// NewStateManager creates a new state manager
func NewStateManager(stateDir string) *StateManager {
	return &StateManager{
		stateDir:  stateDir,
		statePath: filepath.Join(stateDir, stateFileName),
		state:     WatchState{Audits: make(map[string]AuditState)},
	}
}

// Path returns the state file location
func (m *StateManager) Path() string {
	return m.statePath
}

// Load reads the state file. A missing file is an empty state.
func (m *StateManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.state = WatchState{Audits: make(map[string]AuditState)}
			return nil
		}
		return fmt.Errorf("%w: read watch state '%s': %w", utils.ErrFilesystem, m.statePath, err)
	}

	var loaded WatchState
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("%w: watch state JSON '%s': %w", utils.ErrParsing, m.statePath, err)
	}
	if loaded.Audits == nil {
		loaded.Audits = make(map[string]AuditState)
	}
	m.state = loaded
	return nil
}

// Save writes the state file, creating the state directory if needed
func (m *StateManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.UpdatedAt = time.Now()

	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("%w: create state directory '%s': %w", utils.ErrFilesystem, m.stateDir, err)
	}
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal watch state: %w", err)
	}
	if err := os.WriteFile(m.statePath, data, 0644); err != nil {
		return fmt.Errorf("%w: write watch state '%s': %w", utils.ErrFilesystem, m.statePath, err)
	}
	return nil
}

// Get returns the recorded state for key
func (m *StateManager) Get(key string) (AuditState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state.Audits[key]
	return state, ok
}

// Record stores a finished run for key, replacing the previous one
func (m *StateManager) Record(key string, state AuditState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state.BrokenURLs = slices.Clone(state.BrokenURLs)
	slices.Sort(state.BrokenURLs)
	m.state.Audits[key] = state
}

// ShouldRun reports whether key has never run or last ran at least interval before now
func (m *StateManager) ShouldRun(key string, interval time.Duration, now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Audits[key]
	if !ok {
		return true
	}
	return now.Sub(state.LastRunTime) >= interval
}

// NextRunTime returns when key is next due; now if it has never run
func (m *StateManager) NextRunTime(key string, interval time.Duration, now time.Time) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Audits[key]
	if !ok {
		return now
	}
	return state.LastRunTime.Add(interval)
}

// DiffBroken compares two sorted broken-URL lists
func DiffBroken(previous, current []string) (newlyBroken, fixed []string) {
	i, j := 0, 0
	for i < len(previous) && j < len(current) {
		switch {
		case previous[i] == current[j]:
			i++
			j++
		case previous[i] < current[j]:
			fixed = append(fixed, previous[i])
			i++
		default:
			newlyBroken = append(newlyBroken, current[j])
			j++
		}
	}
	fixed = append(fixed, previous[i:]...)
	newlyBroken = append(newlyBroken, current[j:]...)
	return newlyBroken, fixed
}
