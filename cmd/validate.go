package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"craftcheck/internal/config"
	"craftcheck/internal/scenario"
)

var validateScenarioPath string

// validateCmd checks configuration and scenario files without touching any
// backend.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and scenario files",
	Long: `Validate parses the configuration file and all scenario files and
reports structural problems without connecting to any backend. Unrecognized
action types are allowed; the executor skips those at run time.

Example usage:
  craftcheck validate --config craftcheck.yaml
  craftcheck validate --scenarios tests/scenarios`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateScenarioPath, "scenarios", "s", "", "Scenario file or directory (default from config)")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Configuration valid (%d backends)\n", len(cfg.Backends))

	scenarioPath := validateScenarioPath
	if scenarioPath == "" {
		scenarioPath = cfg.ScenarioPath
	}

	loader := scenario.NewLoader(scenario.NewStdoutLogger(rootVerbose, rootDebug))
	scenarios, err := loader.Load(scenarioPath)
	if err != nil {
		return err
	}

	for _, sc := range scenarios {
		actions := len(sc.Setup) + len(sc.Steps) + len(sc.Cleanup)
		fmt.Printf("✓ %s (%d actions)\n", sc.Name, actions)
	}
	fmt.Printf("%d scenarios valid\n", len(scenarios))
	return nil
}
