package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftcheck/internal/consistency"
	"craftcheck/internal/scenario"
)

func TestSummarize(t *testing.T) {
	results := []scenario.Result{
		{Scenario: "a", Status: scenario.StatusPassed, Duration: time.Second},
		{Scenario: "b", Status: scenario.StatusFailed, Duration: 2 * time.Second},
		{Scenario: "c", Status: scenario.StatusPassed, Duration: time.Second},
	}

	summary := Summarize(results)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 4*time.Second, summary.Duration)
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	RenderResults(&buf, []scenario.Result{
		{Scenario: "smoke", Status: scenario.StatusPassed, Duration: 1200 * time.Millisecond},
		{Scenario: "combat", Status: scenario.StatusFailed, Error: "steps action \"hit\" failed"},
	})

	out := buf.String()
	assert.Contains(t, out, "smoke")
	assert.Contains(t, out, "combat")
	assert.Contains(t, out, "1 passed, 1 failed")
	assert.Contains(t, out, "hit")
}

func TestRenderConsistency(t *testing.T) {
	var buf bytes.Buffer
	RenderConsistency(&buf, consistency.Report{
		Consistent: false,
		Comparisons: []consistency.ScenarioComparison{
			{
				Scenario:        "greeting",
				Consistent:      false,
				Inconsistencies: []string{"scenario greeting: status diverges"},
				Results: []consistency.BackendResult{
					{Config: "alpha", Result: scenario.Result{Status: scenario.StatusPassed}},
					{Config: "beta", Result: scenario.Result{Status: scenario.StatusFailed}},
				},
			},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "greeting")
	assert.Contains(t, out, "status diverges")
	assert.Contains(t, out, "alpha")
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	rep := RunReport{
		Summary: Summary{Total: 1, Passed: 1},
		Results: []scenario.Result{{Scenario: "smoke", Status: scenario.StatusPassed}},
	}
	require.NoError(t, WriteJSON(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded RunReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Summary.Passed)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "smoke", decoded.Results[0].Scenario)
}
