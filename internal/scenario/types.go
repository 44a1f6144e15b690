package scenario

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ActionType tags the recognized action kinds. Scenario files written for a
// newer action set may carry tags outside this list; the executor skips
// those with a diagnostic rather than failing.
type ActionType string

const (
	ActionConnectPlayer    ActionType = "connect_player"
	ActionDisconnectPlayer ActionType = "disconnect_player"
	ActionExecuteCommand   ActionType = "execute_command"
	ActionPlayerCommand    ActionType = "player_command"
	ActionChat             ActionType = "chat"
	ActionMove             ActionType = "move"
	ActionEquip            ActionType = "equip"
	ActionUse              ActionType = "use"
	ActionGetEntities      ActionType = "get_entities"
	ActionGetInventory     ActionType = "get_inventory"
	ActionGetPosition      ActionType = "get_position"
	ActionSnapshotState    ActionType = "snapshot_state"
	ActionCompareState     ActionType = "compare_state"
	ActionWait             ActionType = "wait"
)

// Status represents the outcome of an action or a scenario execution.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// Phase names the executor's three action phases.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhaseSteps   Phase = "steps"
	PhaseCleanup Phase = "cleanup"
)

// Duration wraps time.Duration with YAML support for both duration strings
// ("500ms", "2s") and raw nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var asInt int64
	if err := node.Decode(&asInt); err == nil {
		*d = Duration(asInt)
		return nil
	}

	var asString string
	if err := node.Decode(&asString); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}

	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", asString, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Action is a single declarative step within a scenario. Any string field
// may reference a previously stored variable via a {{ placeholder }}; the
// executor resolves those immediately before the action runs.
type Action struct {
	// Name describes the action in results and diagnostics.
	Name string `yaml:"name"`
	// Action is the type tag dispatched on by the executor.
	Action ActionType `yaml:"action"`
	// Player names the virtual player the action applies to.
	Player string `yaml:"player,omitempty"`
	// Command is the command text for execute_command / player_command.
	Command string `yaml:"command,omitempty"`
	// Message is the chat text for chat actions.
	Message string `yaml:"message,omitempty"`
	// X, Y, Z are target coordinates for move actions.
	X float64 `yaml:"x,omitempty"`
	Y float64 `yaml:"y,omitempty"`
	Z float64 `yaml:"z,omitempty"`
	// Item and Slot parameterize equip actions.
	Item string `yaml:"item,omitempty"`
	Slot string `yaml:"slot,omitempty"`
	// Target names the entity for use actions.
	Target string `yaml:"target,omitempty"`
	// Key is the snapshot key for snapshot_state.
	Key string `yaml:"key,omitempty"`
	// Before and After are the snapshot keys compared by compare_state.
	Before string `yaml:"before,omitempty"`
	After  string `yaml:"after,omitempty"`
	// Duration is the wait time for wait actions, and otherwise overrides
	// the default settle delay applied after the action.
	Duration Duration `yaml:"duration,omitempty"`
	// StoreAs, when present, names the variable slot where this action's
	// result is recorded for later substitution.
	StoreAs string `yaml:"store_as,omitempty"`
}

// Scenario is a declarative test: ordered setup, step, and cleanup action
// lists. Immutable once parsed.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	// Timeout bounds one execution of this scenario, zero meaning the
	// caller's default applies.
	Timeout Duration `yaml:"timeout,omitempty"`
	Setup   []Action `yaml:"setup,omitempty"`
	Steps   []Action `yaml:"steps,omitempty"`
	Cleanup []Action `yaml:"cleanup,omitempty"`
}

// ActionResult records the outcome of one executed action.
type ActionResult struct {
	Action    Action        `json:"action"`
	Phase     Phase         `json:"phase"`
	Status    Status        `json:"status"`
	Response  interface{}   `json:"response,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// Result is the outcome of one scenario execution against one backend.
type Result struct {
	Scenario string `json:"scenario"`
	Status   Status `json:"status"`
	// Error carries the first failing action's description when Status is
	// FAILED.
	Error         string         `json:"error,omitempty"`
	FailedAction  string         `json:"failed_action,omitempty"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	Duration      time.Duration  `json:"duration"`
	ActionResults []ActionResult `json:"action_results"`
}

// Passed reports whether the execution completed without failure.
func (r *Result) Passed() bool {
	return r.Status == StatusPassed
}
