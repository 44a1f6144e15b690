package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"craftcheck/pkg/logging"
)

// Exit codes follow common conventions so scripts can distinguish scenario
// failures from cross-backend inconsistencies.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error or failed scenarios.
	ExitCodeError = 1
	// ExitCodeInconsistent indicates the consistency run found divergent
	// backend behavior.
	ExitCodeInconsistent = 2
)

var (
	rootConfigPath string
	rootVerbose    bool
	rootDebug      bool
)

// rootCmd represents the base command for the craftcheck application.
var rootCmd = &cobra.Command{
	Use:   "craftcheck",
	Short: "Drive game-server test scenarios across interchangeable backends",
	Long: `craftcheck executes declarative YAML test scenarios against a running
game server through interchangeable backends: the binary console protocol,
a JSON-over-HTTP bot bridge, a containerized server, or a headless game
client. It snapshots and diffs observed state, and can run the same
scenarios across every configured backend to judge behavioral consistency.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if rootVerbose {
			level = logging.LevelInfo
		}
		if rootDebug {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootConfigPath, "config", "c", "", "Path to the craftcheck configuration file")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug output")
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "craftcheck version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}
