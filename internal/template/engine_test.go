package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceString(t *testing.T) {
	e := New()
	ctx := map[string]interface{}{"player": "steve", "count": 3}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"spaces", "connect {{ player }}", "connect steve"},
		{"no spaces", "connect {{player}}", "connect steve"},
		{"dot prefix", "connect {{ .player }}", "connect steve"},
		{"numeric", "give {{ player }} dirt {{ count }}", "give steve dirt 3"},
		{"no placeholders", "plain text", "plain text"},
		{"extra inner spaces", "connect {{  player }}", "connect steve"},
		{"trailing spaces", "connect {{player   }}", "connect steve"},
		{"tab padding", "connect {{\tplayer\t}}", "connect steve"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := e.ReplaceString(test.input, ctx)
			require.NoError(t, err)
			assert.Equal(t, test.expected, result)
		})
	}
}

func TestReplaceUndefinedVariable(t *testing.T) {
	e := New()

	_, err := e.ReplaceString("kick {{ ghost }}", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable")
	assert.Contains(t, err.Error(), "ghost")

	// Irregular spacing must still be reported, not passed through.
	_, err = e.ReplaceString("kick {{  ghost  }}", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestReplaceNested(t *testing.T) {
	e := New()
	ctx := map[string]interface{}{"target": "alex"}

	value := map[string]interface{}{
		"command": "tp {{ target }}",
		"args":    []interface{}{"{{ target }}", 42},
	}

	result, err := e.Replace(value, ctx)
	require.NoError(t, err)

	m := result.(map[string]interface{})
	assert.Equal(t, "tp alex", m["command"])
	assert.Equal(t, "alex", m["args"].([]interface{})[0])
	assert.Equal(t, 42, m["args"].([]interface{})[1])
}

func TestReplaceNonStringPassthrough(t *testing.T) {
	e := New()

	result, err := e.Replace(12.5, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, result)
}

func TestExtractVariables(t *testing.T) {
	e := New()

	vars := e.ExtractVariables(map[string]interface{}{
		"a": "{{ one }} and {{ two }}",
		"b": []interface{}{"{{ three }}"},
	})

	assert.ElementsMatch(t, []string{"one", "two", "three"}, vars)
}

func TestMergeContexts(t *testing.T) {
	merged := MergeContexts(
		map[string]interface{}{"a": 1, "b": 1},
		map[string]interface{}{"b": 2},
	)

	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 2, merged["b"])
}
