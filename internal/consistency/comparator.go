package consistency

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"craftcheck/internal/scenario"
)

// performanceSpreadThreshold is the relative duration spread, in percent,
// above which a scenario's timing difference is flagged.
const performanceSpreadThreshold = 10.0

// CompareResults judges one scenario's results across backend
// configurations. Equivalence is behavioral: same outcome, same executed
// step count, and matching normalized step responses. Raw responses differ
// legitimately between transports, so byte equality is never required.
func CompareResults(scenarioName string, results []BackendResult) ScenarioComparison {
	comparison := ScenarioComparison{
		Scenario:    scenarioName,
		Consistent:  true,
		Performance: performanceSpread(results),
		Results:     results,
	}

	if len(results) < 2 {
		return comparison
	}

	reference := results[0]
	for _, other := range results[1:] {
		comparison.Inconsistencies = append(comparison.Inconsistencies,
			compareOutcomes(scenarioName, reference, other)...)
	}

	comparison.Consistent = len(comparison.Inconsistencies) == 0
	return comparison
}

// compareOutcomes lists the behavioral differences between two results.
func compareOutcomes(scenarioName string, a, b BackendResult) []string {
	var diffs []string

	if a.Result.Status != b.Result.Status {
		diffs = append(diffs, fmt.Sprintf(
			"scenario %s: status diverges between %s (%s) and %s (%s)",
			scenarioName, a.Config, a.Result.Status, b.Config, b.Result.Status))
		// Divergent status makes step-level comparison noise.
		return diffs
	}

	aSteps := executedSteps(a.Result)
	bSteps := executedSteps(b.Result)
	if len(aSteps) != len(bSteps) {
		diffs = append(diffs, fmt.Sprintf(
			"scenario %s: %s executed %d steps, %s executed %d",
			scenarioName, a.Config, len(aSteps), b.Config, len(bSteps)))
		return diffs
	}

	for i := range aSteps {
		aResp := normalizeResponse(aSteps[i].Response)
		bResp := normalizeResponse(bSteps[i].Response)
		if aResp != bResp {
			diffs = append(diffs, fmt.Sprintf(
				"scenario %s step %d (%s): response %q on %s vs %q on %s",
				scenarioName, i+1, stepName(aSteps[i]),
				aResp, a.Config, bResp, b.Config))
		}
	}

	return diffs
}

// executedSteps returns the steps-phase action results that actually ran.
// Setup and cleanup are backend plumbing and excluded from equivalence.
func executedSteps(result scenario.Result) []scenario.ActionResult {
	var steps []scenario.ActionResult
	for _, ar := range result.ActionResults {
		if ar.Phase == scenario.PhaseSteps && ar.Status != scenario.StatusSkipped {
			steps = append(steps, ar)
		}
	}
	return steps
}

var (
	coordinatePattern = regexp.MustCompile(`-?\d+\.\d+`)
	uuidPattern       = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// normalizeResponse flattens a step response for cross-backend comparison.
// Entity ids and fractional coordinates vary per server instance and are
// masked out; structured responses compare by their textual rendering.
func normalizeResponse(response interface{}) string {
	if response == nil {
		return ""
	}

	text := fmt.Sprintf("%v", response)
	text = strings.TrimSpace(text)
	text = uuidPattern.ReplaceAllString(text, "<id>")
	text = coordinatePattern.ReplaceAllString(text, "<coord>")
	return text
}

// performanceSpread computes the duration spread across passed results.
func performanceSpread(results []BackendResult) PerformanceSpread {
	var durations []time.Duration
	for _, r := range results {
		if r.Result.Passed() {
			durations = append(durations, r.Result.Duration)
		}
	}
	if len(durations) == 0 {
		return PerformanceSpread{}
	}

	spread := PerformanceSpread{Min: durations[0], Max: durations[0]}
	var total time.Duration
	for _, d := range durations {
		if d < spread.Min {
			spread.Min = d
		}
		if d > spread.Max {
			spread.Max = d
		}
		total += d
	}
	spread.Avg = total / time.Duration(len(durations))

	if len(durations) > 1 && spread.Min > 0 {
		spread.SpreadPercent = float64(spread.Max-spread.Min) / float64(spread.Min) * 100
		spread.Significant = spread.SpreadPercent > performanceSpreadThreshold
	}
	return spread
}

func stepName(ar scenario.ActionResult) string {
	if ar.Action.Name != "" {
		return ar.Action.Name
	}
	return string(ar.Action.Action)
}
