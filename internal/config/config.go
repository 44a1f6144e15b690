package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"craftcheck/internal/backend"
)

// Config is the top-level configuration: where scenarios live and which
// backend configurations to drive. YAML values are overridden by CRAFTCHECK_*
// environment variables.
type Config struct {
	// ScenarioPath is the default scenario file or directory.
	ScenarioPath string `yaml:"scenario_path" env:"CRAFTCHECK_SCENARIO_PATH"`
	// ReportPath, when set, receives the JSON run report.
	ReportPath string `yaml:"report_path" env:"CRAFTCHECK_REPORT_PATH"`
	// SettleDelay is applied between scenario actions without an explicit
	// duration.
	SettleDelay time.Duration `yaml:"settle_delay" env:"CRAFTCHECK_SETTLE_DELAY"`
	// Parallelism bounds concurrent (configuration, scenario) pairs in
	// consistency runs.
	Parallelism int `yaml:"parallelism" env:"CRAFTCHECK_PARALLELISM"`

	// Variables are default scenario variables, available to every
	// {{ placeholder }} and shadowed by values stored during execution.
	Variables map[string]interface{} `yaml:"variables,omitempty"`

	Backends []backend.Config `yaml:"backends"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ScenarioPath: "scenarios",
		SettleDelay:  250 * time.Millisecond,
		Parallelism:  4,
	}
}

// Load reads the YAML file at path, applies environment overrides, and
// validates the result. An empty path loads defaults plus environment only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate fails fast on unknown backend kinds and missing per-kind
// connection fields.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("config: backend %d: name is required", i+1)
		}
		if seen[b.Name] {
			return fmt.Errorf("config: duplicate backend name %q", b.Name)
		}
		seen[b.Name] = true

		if err := validateBackend(b); err != nil {
			return fmt.Errorf("config: backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func validateBackend(b backend.Config) error {
	switch b.Kind {
	case backend.KindRCON:
		if b.Host == "" || b.Port == 0 {
			return fmt.Errorf("host and port are required for kind %s", b.Kind)
		}
		if b.Password == "" {
			return fmt.Errorf("password is required for kind %s", b.Kind)
		}
	case backend.KindBridge:
		if b.BridgeURL == "" {
			return fmt.Errorf("bridge_url is required for kind %s", b.Kind)
		}
	case backend.KindContainer:
		if b.Image == "" {
			return fmt.Errorf("image is required for kind %s", b.Kind)
		}
		if b.Port == 0 || b.Password == "" {
			return fmt.Errorf("port and password are required for kind %s", b.Kind)
		}
	case backend.KindHeadless:
		if b.ServerURL == "" {
			return fmt.Errorf("server_url is required for kind %s", b.Kind)
		}
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown backend type %q", b.Kind)
	}
	return nil
}
