package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"craftcheck/internal/backend"
	"craftcheck/internal/config"
	"craftcheck/internal/conn"
	"craftcheck/internal/report"
	"craftcheck/internal/scenario"
	"craftcheck/internal/state"
	"craftcheck/internal/watch"
)

var (
	runScenarioPath string
	runBackendName  string
	runScenarioName string
	runTag          string
	runTimeout      time.Duration
	runReportPath   string
	runWatch        bool
)

// runCmd executes scenarios against a single backend configuration.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run test scenarios against one backend",
	Long: `Run loads YAML scenarios from a file or directory and executes them in
order against one configured backend. Each scenario runs setup, steps, and
cleanup; cleanup always runs, even when earlier phases fail.

Example usage:
  craftcheck run --config craftcheck.yaml
  craftcheck run --scenarios tests/smoke.yaml --backend local-rcon
  craftcheck run --tag combat --watch`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runScenarioPath, "scenarios", "s", "", "Scenario file or directory (default from config)")
	runCmd.Flags().StringVarP(&runBackendName, "backend", "b", "", "Backend configuration name (default: first configured)")
	runCmd.Flags().StringVar(&runScenarioName, "scenario", "", "Run only the scenario with this exact name")
	runCmd.Flags().StringVar(&runTag, "tag", "", "Run only scenarios carrying this tag")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "Per-scenario timeout for scenarios without their own")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Write a JSON run report to this path")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "Re-run scenarios whenever their files change")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return err
	}

	scenarioPath := runScenarioPath
	if scenarioPath == "" {
		scenarioPath = cfg.ScenarioPath
	}
	reportPath := runReportPath
	if reportPath == "" {
		reportPath = cfg.ReportPath
	}

	backendCfg, err := selectBackend(cfg, runBackendName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func() (bool, error) {
		return executeScenarios(ctx, cfg, backendCfg, scenarioPath, reportPath)
	}

	passed, err := runOnce()
	if err != nil {
		return err
	}

	if runWatch {
		return watchAndRerun(ctx, scenarioPath, runOnce)
	}

	if !passed {
		os.Exit(ExitCodeError)
	}
	return nil
}

// executeScenarios loads, filters, and runs the scenarios against one
// backend, rendering the result table. It returns whether all passed.
func executeScenarios(ctx context.Context, cfg config.Config, backendCfg backend.Config, scenarioPath, reportPath string) (bool, error) {
	logger := scenario.NewStdoutLogger(rootVerbose, rootDebug)

	loader := scenario.NewLoader(logger)
	scenarios, err := loader.Load(scenarioPath)
	if err != nil {
		return false, err
	}
	scenarios = scenario.Filter(scenarios, runScenarioName, runTag)
	if len(scenarios) == 0 {
		return false, fmt.Errorf("no scenarios match the given filters")
	}

	b, err := backend.New(backendCfg)
	if err != nil {
		return false, err
	}
	manager := conn.NewManager(b)

	if err := awaitBackendReady(ctx, backendCfg, manager); err != nil {
		return false, err
	}
	defer func() {
		if err := manager.Cleanup(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: backend cleanup failed: %v\n", err)
		}
	}()

	executor := scenario.NewExecutor(manager, state.NewManager(), logger)
	executor.SetSettleDelay(cfg.SettleDelay)
	executor.SetVariables(cfg.Variables)

	startTime := time.Now()
	results := make([]scenario.Result, 0, len(scenarios))
	for _, sc := range scenarios {
		timeout := runTimeout
		if sc.Timeout.Std() > 0 {
			timeout = sc.Timeout.Std()
		}

		scenarioCtx, cancel := context.WithTimeout(ctx, timeout)
		results = append(results, executor.Execute(scenarioCtx, sc))
		cancel()

		if ctx.Err() != nil {
			break
		}
	}

	report.RenderResults(os.Stdout, results)

	if reportPath != "" {
		runReport := report.RunReport{
			StartTime: startTime,
			EndTime:   time.Now(),
			Summary:   report.Summarize(results),
			Results:   results,
		}
		if err := report.WriteJSON(reportPath, runReport); err != nil {
			return false, err
		}
	}

	return report.Summarize(results).Failed == 0, nil
}

// awaitBackendReady polls the backend until it initializes or the budget is
// spent, with a spinner so slow server startups are visible.
func awaitBackendReady(ctx context.Context, cfg backend.Config, manager *conn.Manager) error {
	budget := 15 * time.Second
	if cfg.Kind == backend.KindContainer {
		budget = 2 * time.Minute
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Waiting for backend %s (%s)...", cfg.Name, cfg.Kind)
	s.Start()
	defer s.Stop()

	if sc, ok := manager.Backend().(backend.ServerController); ok {
		if !sc.IsServerRunning(ctx) {
			if err := sc.LaunchServer(ctx, cfg.Version); err != nil {
				return fmt.Errorf("launch server: %w", err)
			}
		}
	}

	deadline := time.Now().Add(budget)
	for {
		err := manager.Initialize(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("backend %s not ready within %v: %w", cfg.Name, budget, err)
		}

		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// watchAndRerun blocks re-running the scenarios on every change until
// interrupted.
func watchAndRerun(ctx context.Context, scenarioPath string, runOnce func() (bool, error)) error {
	w, err := watch.New(scenarioPath)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Printf("Watching %s for changes, press Ctrl-C to stop...\n", scenarioPath)

	err = w.Run(ctx, func() {
		fmt.Println("\nScenario files changed, re-running...")
		if _, err := runOnce(); err != nil {
			fmt.Fprintf(os.Stderr, "Re-run failed: %v\n", err)
		}
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

func selectBackend(cfg config.Config, name string) (backend.Config, error) {
	if len(cfg.Backends) == 0 {
		return backend.Config{}, fmt.Errorf("no backends configured; add a backends section to the configuration file")
	}
	if name == "" {
		return cfg.Backends[0], nil
	}
	for _, b := range cfg.Backends {
		if b.Name == name {
			return b, nil
		}
	}
	return backend.Config{}, fmt.Errorf("unknown backend configuration %q", name)
}
