package scenario

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader reads scenario definitions from YAML files.
type Loader struct {
	logger RunLogger
}

// NewLoader creates a scenario loader.
func NewLoader(logger RunLogger) *Loader {
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &Loader{logger: logger}
}

// Load loads scenarios from the given path: a single YAML file or a
// directory walked for .yaml/.yml files.
func (l *Loader) Load(path string) ([]Scenario, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario path does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenario path: %w", err)
	}

	var scenarios []Scenario
	if info.IsDir() {
		scenarios, err = l.loadDirectory(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenarios from directory: %w", err)
		}
	} else {
		scenario, err := l.loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario from file: %w", err)
		}
		scenarios = append(scenarios, scenario)
	}

	l.logger.Debug("📋 Loaded %d scenarios from %s\n", len(scenarios), path)
	return scenarios, nil
}

func (l *Loader) loadDirectory(dirPath string) ([]Scenario, error) {
	var scenarios []Scenario

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAMLFile(path) {
			return nil
		}

		l.logger.Debug("📄 Loading scenario file: %s\n", path)
		scenario, err := l.loadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load scenario from %s: %w", path, err)
		}

		scenarios = append(scenarios, scenario)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}

	return scenarios, nil
}

func (l *Loader) loadFile(filePath string) (Scenario, error) {
	var scenario Scenario

	content, err := os.ReadFile(filePath)
	if err != nil {
		return scenario, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	if err := yaml.Unmarshal(content, &scenario); err != nil {
		return scenario, fmt.Errorf("failed to parse YAML in %s: %w", filePath, err)
	}

	if err := Validate(scenario); err != nil {
		return scenario, fmt.Errorf("invalid scenario in %s: %w", filePath, err)
	}

	return scenario, nil
}

// Validate checks that a scenario carries the required fields. An
// unrecognized action tag is not a validation error; the executor skips
// those at run time.
func Validate(scenario Scenario) error {
	if scenario.Name == "" {
		return fmt.Errorf("scenario name is required")
	}

	total := len(scenario.Setup) + len(scenario.Steps) + len(scenario.Cleanup)
	if total == 0 {
		return fmt.Errorf("scenario must have at least one action")
	}

	for phase, actions := range map[Phase][]Action{
		PhaseSetup:   scenario.Setup,
		PhaseSteps:   scenario.Steps,
		PhaseCleanup: scenario.Cleanup,
	} {
		for i, action := range actions {
			if action.Action == "" {
				return fmt.Errorf("%s action %d: action type is required", phase, i+1)
			}
		}
	}

	return nil
}

// Filter returns the scenarios matching a name filter (exact) and a tag
// filter (any match). Empty filters match everything.
func Filter(scenarios []Scenario, name, tag string) []Scenario {
	var filtered []Scenario

	for _, scenario := range scenarios {
		if name != "" && scenario.Name != name {
			continue
		}
		if tag != "" && !hasTag(scenario, tag) {
			continue
		}
		filtered = append(filtered, scenario)
	}

	return filtered
}

func hasTag(scenario Scenario, tag string) bool {
	for _, t := range scenario.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
