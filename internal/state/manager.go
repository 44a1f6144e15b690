package state

import (
	"encoding/json"
	"fmt"
	"sync"

	"gomodules.xyz/jsonpatch/v2"

	"craftcheck/pkg/logging"
)

// emptySnapshot is returned for keys that were never stored.
const emptySnapshot = "{}"

// Manager captures immutable snapshots of arbitrary values and compares
// them. A value is serialized to canonical JSON the moment it is stored, so
// later mutation of the live object can never alter the snapshot
// (copy-on-store, not copy-on-read). Safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	snapshots map[string]string
}

// Comparison is the outcome of comparing two snapshots. HasChanges is
// derived strictly from textual inequality of the snapshots; Diff is a
// best-effort structured patch generated independently and may be empty even
// when HasChanges is true.
type Comparison struct {
	Before     string                `json:"before"`
	After      string                `json:"after"`
	HasChanges bool                  `json:"has_changes"`
	Diff       []jsonpatch.Operation `json:"diff,omitempty"`
}

// NewManager creates an empty snapshot store.
func NewManager() *Manager {
	return &Manager{
		snapshots: make(map[string]string),
	}
}

// Store snapshots value under key. It never fails: a value that cannot be
// serialized to JSON is stored as its default string representation instead.
func (m *Manager) Store(key string, value interface{}) {
	var snapshot string

	data, err := json.Marshal(value)
	if err != nil {
		logging.Warn("State", "Value for %q is not JSON-serializable, storing string form: %v", key, err)
		snapshot = fmt.Sprintf("%q", fmt.Sprint(value))
	} else {
		snapshot = string(data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[key] = snapshot
}

// Retrieve decodes the snapshot stored under key back into a structured
// value. The second return value reports whether the key was present.
func (m *Manager) Retrieve(key string) (interface{}, bool) {
	m.mu.RLock()
	snapshot, ok := m.snapshots[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal([]byte(snapshot), &value); err != nil {
		// Snapshots are written by Store and should always decode; fall
		// back to the raw text if not.
		return snapshot, true
	}
	return value, true
}

// RetrieveJSON returns the canonical snapshot text for key, or the
// empty-object sentinel when the key is absent.
func (m *Manager) RetrieveJSON(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if snapshot, ok := m.snapshots[key]; ok {
		return snapshot
	}
	return emptySnapshot
}

// Keys returns the stored snapshot keys.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.snapshots))
	for k := range m.snapshots {
		keys = append(keys, k)
	}
	return keys
}

// Clear discards all snapshots.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = make(map[string]string)
}

// Compare compares the snapshots stored under keyBefore and keyAfter.
// HasChanges is true iff the two canonical texts differ. Diff generation can
// legitimately fail (snapshots need not share a shape); that degrades to an
// empty patch and never fails the comparison.
func (m *Manager) Compare(keyBefore, keyAfter string) Comparison {
	before := m.RetrieveJSON(keyBefore)
	after := m.RetrieveJSON(keyAfter)

	result := Comparison{
		Before:     before,
		After:      after,
		HasChanges: before != after,
	}

	if !result.HasChanges {
		return result
	}

	diff, err := jsonpatch.CreatePatch([]byte(before), []byte(after))
	if err != nil {
		logging.Debug("State", "Diff generation failed for %q -> %q: %v", keyBefore, keyAfter, err)
		return result
	}
	result.Diff = diff

	return result
}
