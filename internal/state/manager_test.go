package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotImmutability(t *testing.T) {
	m := NewManager()

	value := map[string]interface{}{"health": 20, "position": []int{0, 64, 0}}
	m.Store("before", value)

	// Mutating the live object after Store must not change the snapshot.
	value["health"] = 1
	value["position"] = []int{100, 12, -40}

	retrieved, ok := m.Retrieve("before")
	require.True(t, ok)

	asMap, ok := retrieved.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(20), asMap["health"])
}

func TestStoreNeverFails(t *testing.T) {
	m := NewManager()

	// Channels are not JSON-serializable; Store degrades to the string form.
	m.Store("weird", make(chan int))

	snapshot := m.RetrieveJSON("weird")
	assert.NotEqual(t, "{}", snapshot)
}

func TestRetrieveJSONAbsentKey(t *testing.T) {
	m := NewManager()
	assert.Equal(t, "{}", m.RetrieveJSON("missing"))
}

func TestRetrieveAbsentKey(t *testing.T) {
	m := NewManager()
	_, ok := m.Retrieve("missing")
	assert.False(t, ok)
}

func TestCompareNoChanges(t *testing.T) {
	m := NewManager()
	m.Store("a", map[string]int{"count": 3})
	m.Store("b", map[string]int{"count": 3})

	result := m.Compare("a", "b")
	assert.False(t, result.HasChanges)
	assert.Empty(t, result.Diff)
}

func TestCompareDetectsChanges(t *testing.T) {
	m := NewManager()
	m.Store("before", map[string]interface{}{"health": 20, "food": 20})
	m.Store("after", map[string]interface{}{"health": 12, "food": 20})

	result := m.Compare("before", "after")
	require.True(t, result.HasChanges)
	require.NotEmpty(t, result.Diff)

	op := result.Diff[0]
	assert.Equal(t, "replace", op.Operation)
	assert.Equal(t, "/health", op.Path)
}

func TestCompareHasChangesIndependentOfDiff(t *testing.T) {
	m := NewManager()
	// Incompatible shapes: an array vs an object. Diff generation may
	// produce anything or nothing, but HasChanges must still be correct.
	m.Store("before", []int{1, 2, 3})
	m.Store("after", map[string]string{"shape": "different"})

	result := m.Compare("before", "after")
	assert.True(t, result.HasChanges)
}

func TestCompareAbsentKeysUseEmptySentinel(t *testing.T) {
	m := NewManager()

	result := m.Compare("never-a", "never-b")
	assert.False(t, result.HasChanges)
	assert.Equal(t, "{}", result.Before)
	assert.Equal(t, "{}", result.After)
}

func TestClear(t *testing.T) {
	m := NewManager()
	m.Store("a", 1)
	m.Clear()

	assert.Empty(t, m.Keys())
	assert.Equal(t, "{}", m.RetrieveJSON("a"))
}
