package consistency

import (
	"time"

	"craftcheck/internal/backend"
	"craftcheck/internal/scenario"
)

// BackendResult is one scenario's execution result on one backend
// configuration.
type BackendResult struct {
	Config string          `json:"config"`
	Kind   backend.Kind    `json:"kind"`
	Result scenario.Result `json:"result"`
}

// PerformanceSpread summarizes scenario durations across configurations.
type PerformanceSpread struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
	// SpreadPercent is (max-min)/min as a percentage; zero when fewer than
	// two measurements exist.
	SpreadPercent float64 `json:"spread_percent"`
	// Significant marks spreads above the reporting threshold. Timing noise
	// below it is expected and not flagged.
	Significant bool `json:"significant"`
}

// ScenarioComparison judges one scenario's results across all backend
// configurations.
type ScenarioComparison struct {
	Scenario        string            `json:"scenario"`
	Consistent      bool              `json:"consistent"`
	Inconsistencies []string          `json:"inconsistencies,omitempty"`
	Performance     PerformanceSpread `json:"performance"`
	Results         []BackendResult   `json:"results"`
}

// Report is the full outcome of one consistency run.
type Report struct {
	RunID       string               `json:"run_id"`
	StartTime   time.Time            `json:"start_time"`
	EndTime     time.Time            `json:"end_time"`
	Duration    time.Duration        `json:"duration"`
	Comparisons []ScenarioComparison `json:"comparisons"`
	// Consistent is the conjunction over all scenario comparisons.
	Consistent bool `json:"consistent"`
}
