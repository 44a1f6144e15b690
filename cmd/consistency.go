package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"craftcheck/internal/config"
	"craftcheck/internal/consistency"
	"craftcheck/internal/report"
	"craftcheck/internal/scenario"
)

var (
	consistencyScenarioPath string
	consistencyTag          string
	consistencyParallel     int
	consistencyReportPath   string
)

// consistencyCmd runs every scenario on every backend and compares outcomes.
var consistencyCmd = &cobra.Command{
	Use:   "consistency",
	Short: "Run all scenarios across all backends and compare behavior",
	Long: `Consistency executes every matching scenario against every configured
backend and judges whether the backends behave equivalently: same outcome,
same executed steps, same normalized responses. Timing spreads above 10%
between backends are flagged.

Each (backend, scenario) pair runs isolated with its own backend instance
and timeout, so one hung backend cannot poison the rest of the run.

Example usage:
  craftcheck consistency --config craftcheck.yaml
  craftcheck consistency --tag smoke --report consistency.json`,
	RunE: runConsistency,
}

func init() {
	consistencyCmd.Flags().StringVarP(&consistencyScenarioPath, "scenarios", "s", "", "Scenario file or directory (default from config)")
	consistencyCmd.Flags().StringVar(&consistencyTag, "tag", "", "Run only scenarios carrying this tag")
	consistencyCmd.Flags().IntVarP(&consistencyParallel, "parallel", "p", 0, "Maximum concurrent (backend, scenario) pairs (default from config)")
	consistencyCmd.Flags().StringVar(&consistencyReportPath, "report", "", "Write a JSON consistency report to this path")

	rootCmd.AddCommand(consistencyCmd)
}

func runConsistency(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return err
	}
	if len(cfg.Backends) < 2 {
		return fmt.Errorf("consistency testing needs at least two configured backends, have %d", len(cfg.Backends))
	}

	scenarioPath := consistencyScenarioPath
	if scenarioPath == "" {
		scenarioPath = cfg.ScenarioPath
	}

	logger := scenario.NewStdoutLogger(rootVerbose, rootDebug)
	loader := scenario.NewLoader(logger)
	scenarios, err := loader.Load(scenarioPath)
	if err != nil {
		return err
	}
	scenarios = scenario.Filter(scenarios, "", consistencyTag)
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios match the given filters")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tester := consistency.NewTester(cfg.Backends, logger)
	parallel := consistencyParallel
	if parallel == 0 {
		parallel = cfg.Parallelism
	}
	tester.SetParallelism(parallel)

	rep, err := tester.Run(ctx, scenarios)
	if err != nil {
		return err
	}

	report.RenderConsistency(os.Stdout, rep)

	if consistencyReportPath != "" {
		if err := report.WriteJSON(consistencyReportPath, rep); err != nil {
			return err
		}
	}

	if !rep.Consistent {
		os.Exit(ExitCodeInconsistent)
	}
	return nil
}
