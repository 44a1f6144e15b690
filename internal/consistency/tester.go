package consistency

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"craftcheck/internal/backend"
	"craftcheck/internal/conn"
	"craftcheck/internal/scenario"
	"craftcheck/internal/state"
	"craftcheck/pkg/logging"
)

// Readiness and task budgets. Container configurations boot a full server
// process and get the larger budgets.
const (
	defaultReadinessBudget   = 15 * time.Second
	containerReadinessBudget = 2 * time.Minute
	readinessPollInterval    = 500 * time.Millisecond

	defaultTaskTimeout   = 2 * time.Minute
	containerTaskTimeout = 5 * time.Minute
)

// Tester runs every scenario against every backend configuration and
// compares the outcomes. Each (configuration, scenario) pair gets its own
// backend instance and goroutine, so a hung or panicking pair fails alone
// without poisoning the rest of the run.
type Tester struct {
	configs  []backend.Config
	logger   scenario.RunLogger
	parallel int

	// readinessBudget, when positive, overrides the kind-based budget.
	readinessBudget time.Duration

	// newBackend builds a backend for one configuration. Overridable so
	// tests can substitute stub backends for the real transports.
	newBackend func(backend.Config) (backend.Backend, error)
}

// NewTester creates a tester over the given backend configurations.
func NewTester(configs []backend.Config, logger scenario.RunLogger) *Tester {
	if logger == nil {
		logger = scenario.NewSilentLogger()
	}
	return &Tester{
		configs:    configs,
		logger:     logger,
		parallel:   4,
		newBackend: backend.New,
	}
}

// SetParallelism bounds the number of concurrently running pairs.
func (t *Tester) SetParallelism(n int) {
	if n > 0 {
		t.parallel = n
	}
}

// Run executes the full cross product and returns the comparison report.
// The context bounds the whole run; individual pairs additionally carry
// their own per-task timeouts.
func (t *Tester) Run(ctx context.Context, scenarios []scenario.Scenario) (Report, error) {
	if len(t.configs) == 0 {
		return Report{}, fmt.Errorf("consistency: no backend configurations")
	}
	if len(scenarios) == 0 {
		return Report{}, fmt.Errorf("consistency: no scenarios to run")
	}

	report := Report{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}

	t.logger.Info("▶ Consistency run %s: %d scenarios × %d configurations\n",
		report.RunID, len(scenarios), len(t.configs))

	var mu sync.Mutex
	byScenario := make(map[string][]BackendResult, len(scenarios))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(t.parallel)

	for _, cfg := range t.configs {
		for _, sc := range scenarios {
			cfg, sc := cfg, sc
			group.Go(func() error {
				result := t.runPair(groupCtx, cfg, sc)
				mu.Lock()
				byScenario[sc.Name] = append(byScenario[sc.Name], result)
				mu.Unlock()
				// Pair failures land in the report, never abort the group.
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return report, err
	}

	for _, sc := range scenarios {
		results := byScenario[sc.Name]
		sort.Slice(results, func(i, j int) bool { return results[i].Config < results[j].Config })
		report.Comparisons = append(report.Comparisons, CompareResults(sc.Name, results))
	}

	report.Consistent = true
	for _, comparison := range report.Comparisons {
		if !comparison.Consistent {
			report.Consistent = false
			break
		}
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	return report, nil
}

// runPair executes one scenario on a fresh backend built from one
// configuration. Any failure mode, including a panic in the backend
// implementation, is converted into a failed Result for this pair.
func (t *Tester) runPair(ctx context.Context, cfg backend.Config, sc scenario.Scenario) (result BackendResult) {
	result = BackendResult{Config: cfg.Name, Kind: cfg.Kind}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Consistency", fmt.Errorf("panic: %v", r),
				"Pair %s/%s panicked", cfg.Name, sc.Name)
			result.Result = failedResult(sc.Name, fmt.Sprintf("panic during execution: %v", r))
		}
	}()

	taskTimeout := defaultTaskTimeout
	if cfg.Kind == backend.KindContainer {
		taskTimeout = containerTaskTimeout
	}
	if sc.Timeout.Std() > taskTimeout {
		taskTimeout = sc.Timeout.Std()
	}
	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	b, err := t.newBackend(cfg)
	if err != nil {
		result.Result = failedResult(sc.Name, fmt.Sprintf("backend construction failed: %v", err))
		return result
	}

	manager := conn.NewManager(b)
	if err := t.awaitReady(taskCtx, cfg, b, manager); err != nil {
		result.Result = failedResult(sc.Name, fmt.Sprintf("backend not ready: %v", err))
		return result
	}
	defer func() {
		if err := manager.Cleanup(context.Background()); err != nil {
			logging.Warn("Consistency", "Cleanup of %s after %s failed: %v", cfg.Name, sc.Name, err)
		}
	}()

	executor := scenario.NewExecutor(manager, state.NewManager(), t.logger)
	result.Result = executor.Execute(taskCtx, sc)

	t.logger.Info("  %s on %s: %s (%v)\n", sc.Name, cfg.Name,
		result.Result.Status, result.Result.Duration.Round(time.Millisecond))
	return result
}

// awaitReady launches the server when the backend owns it, then polls
// Initialize until it succeeds or the readiness budget runs out. Polling
// replaces any fixed startup sleep: a fast backend proceeds immediately, a
// slow one gets the whole budget.
func (t *Tester) awaitReady(ctx context.Context, cfg backend.Config, b backend.Backend, manager *conn.Manager) error {
	budget := defaultReadinessBudget
	if cfg.Kind == backend.KindContainer {
		budget = containerReadinessBudget
	}
	if t.readinessBudget > 0 {
		budget = t.readinessBudget
	}

	if sc, ok := b.(backend.ServerController); ok {
		if !sc.IsServerRunning(ctx) {
			if err := sc.LaunchServer(ctx, cfg.Version); err != nil {
				return fmt.Errorf("launch server: %w", err)
			}
		}
	}

	deadline := time.Now().Add(budget)
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = manager.Initialize(ctx)
		if lastErr == nil {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("readiness budget of %v exhausted: %w", budget, lastErr)
		}

		select {
		case <-time.After(readinessPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func failedResult(name, reason string) scenario.Result {
	now := time.Now()
	return scenario.Result{
		Scenario:  name,
		Status:    scenario.StatusFailed,
		Error:     reason,
		StartTime: now,
		EndTime:   now,
	}
}
