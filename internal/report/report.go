package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"craftcheck/internal/consistency"
	"craftcheck/internal/scenario"
)

// Summary aggregates scenario outcomes for one run.
type Summary struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Summarize counts outcomes across results.
func Summarize(results []scenario.Result) Summary {
	summary := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed() {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Duration += r.Duration
	}
	return summary
}

// RunReport is the structured form of one scenario run, written as JSON when
// a report path is configured.
type RunReport struct {
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Summary   Summary           `json:"summary"`
	Results   []scenario.Result `json:"results"`
}

// RenderResults writes a scenario run table to w.
func RenderResults(w io.Writer, results []scenario.Result) {
	t := newTable(w)
	t.AppendHeader(table.Row{"SCENARIO", "STATUS", "DURATION", "DETAIL"})

	for _, r := range results {
		detail := ""
		if !r.Passed() {
			detail = r.Error
		}
		t.AppendRow(table.Row{
			r.Scenario,
			statusCell(r.Status),
			r.Duration.Round(time.Millisecond),
			truncate(detail, 60),
		})
	}

	summary := Summarize(results)
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d scenarios", summary.Total),
		fmt.Sprintf("%d passed, %d failed", summary.Passed, summary.Failed),
		summary.Duration.Round(time.Millisecond),
		"",
	})
	t.Render()
}

// RenderConsistency writes a consistency report table to w, followed by the
// recorded inconsistencies.
func RenderConsistency(w io.Writer, rep consistency.Report) {
	t := newTable(w)
	t.AppendHeader(table.Row{"SCENARIO", "VERDICT", "CONFIGS", "SPREAD"})

	for _, comparison := range rep.Comparisons {
		verdict := text.FgGreen.Sprint("consistent")
		if !comparison.Consistent {
			verdict = text.FgRed.Sprint("INCONSISTENT")
		}

		spread := "-"
		if comparison.Performance.SpreadPercent > 0 {
			spread = fmt.Sprintf("%.1f%%", comparison.Performance.SpreadPercent)
			if comparison.Performance.Significant {
				spread = text.FgYellow.Sprint(spread + " !")
			}
		}

		t.AppendRow(table.Row{
			comparison.Scenario,
			verdict,
			configSummary(comparison.Results),
			spread,
		})
	}
	t.Render()

	for _, comparison := range rep.Comparisons {
		for _, inconsistency := range comparison.Inconsistencies {
			fmt.Fprintf(w, "  %s %s\n", text.FgRed.Sprint("✗"), inconsistency)
		}
	}

	if rep.Consistent {
		fmt.Fprintf(w, "\n%s All scenarios behave consistently across %s\n",
			text.FgGreen.Sprint("✓"), rep.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "\n%s Cross-backend inconsistencies detected\n", text.FgRed.Sprint("✗"))
	}
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s failed: %w", path, err)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func statusCell(status scenario.Status) string {
	switch status {
	case scenario.StatusPassed:
		return text.FgGreen.Sprint(status)
	case scenario.StatusFailed:
		return text.FgRed.Sprint(status)
	default:
		return text.FgYellow.Sprint(status)
	}
}

// configSummary renders per-config outcomes like "alpha:✓ beta:✗".
func configSummary(results []consistency.BackendResult) string {
	out := ""
	for i, r := range results {
		if i > 0 {
			out += " "
		}
		mark := text.FgGreen.Sprint("✓")
		if !r.Result.Passed() {
			mark = text.FgRed.Sprint("✗")
		}
		out += fmt.Sprintf("%s:%s", r.Config, mark)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
