// Package state provides persistent per-thread workflow state storage.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"starlit/pkg/story"
)

// Store persists workflow state keyed by thread ID.
type Store interface {
	// Load retrieves the state for a thread. The boolean reports whether a
	// state existed; a false return with nil error means a fresh thread.
	Load(threadID string) (*story.State, bool, error)

	// Save persists the state for a thread, replacing any previous snapshot.
	Save(threadID string, st *story.State) error

	// Delete removes the persisted state for a thread. Deleting a missing
	// thread is not an error.
	Delete(threadID string) error

	// ListThreads returns the IDs of all threads with persisted state.
	ListThreads() ([]string, error)
}

// MemoryStore keeps thread state in memory. Snapshots round-trip through JSON
// so callers never share mutable state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]json.RawMessage)}
}

// Load implements Store.
func (m *MemoryStore) Load(threadID string) (*story.State, bool, error) {
	if threadID == "" {
		return nil, false, fmt.Errorf("threadID cannot be empty")
	}

	m.mu.RLock()
	raw, ok := m.threads[threadID]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	var st story.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal state for thread %s: %w", threadID, err)
	}
	return &st, true, nil
}

// Save implements Store.
func (m *MemoryStore) Save(threadID string, st *story.State) error {
	if threadID == "" {
		return fmt.Errorf("threadID cannot be empty")
	}
	if st == nil {
		return fmt.Errorf("state cannot be nil")
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state for thread %s: %w", threadID, err)
	}

	m.mu.Lock()
	m.threads[threadID] = raw
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(threadID string) error {
	if threadID == "" {
		return fmt.Errorf("threadID cannot be empty")
	}
	m.mu.Lock()
	delete(m.threads, threadID)
	m.mu.Unlock()
	return nil
}

// ListThreads implements Store.
func (m *MemoryStore) ListThreads() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	return ids, nil
}

// FileStore persists each thread's state as THREAD_<id>.json under a base
// directory. Writes go through a temp file and rename so a crash never leaves
// a torn snapshot.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a file-backed store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Load implements Store.
func (f *FileStore) Load(threadID string) (*story.State, bool, error) {
	if threadID == "" {
		return nil, false, fmt.Errorf("threadID cannot be empty")
	}

	filename := f.stateFilename(threadID)
	fileData, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read state file for thread %s: %w", threadID, err)
	}

	var st story.State
	if err := json.Unmarshal(fileData, &st); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal state for thread %s: %w", threadID, err)
	}
	return &st, true, nil
}

// Save implements Store.
func (f *FileStore) Save(threadID string, st *story.State) error {
	if threadID == "" {
		return fmt.Errorf("threadID cannot be empty")
	}
	if st == nil {
		return fmt.Errorf("state cannot be nil")
	}

	jsonData, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state for thread %s: %w", threadID, err)
	}

	filename := f.stateFilename(threadID)
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write state file for thread %s: %w", threadID, err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("failed to commit state file for thread %s: %w", threadID, err)
	}
	return nil
}

// Delete implements Store.
func (f *FileStore) Delete(threadID string) error {
	if threadID == "" {
		return fmt.Errorf("threadID cannot be empty")
	}

	filename := f.stateFilename(threadID)
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil
	}
	if err := os.Remove(filename); err != nil {
		return fmt.Errorf("failed to delete state file for thread %s: %w", threadID, err)
	}
	return nil
}

// ListThreads implements Store.
func (f *FileStore) ListThreads() ([]string, error) {
	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "THREAD_") && strings.HasSuffix(name, ".json") {
			ids = append(ids, name[len("THREAD_"):len(name)-len(".json")])
		}
	}
	return ids, nil
}

func (f *FileStore) stateFilename(threadID string) string {
	return filepath.Join(f.baseDir, fmt.Sprintf("THREAD_%s.json", threadID))
}
