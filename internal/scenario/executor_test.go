package scenario

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftcheck/internal/backend"
	"craftcheck/internal/conn"
	"craftcheck/internal/state"
)

// echoBackend is an in-memory backend that echoes say commands, records
// every call, and fails on demand.
type echoBackend struct {
	failOnCommand string
	entities      map[string]interface{}

	commands      []string
	connected     []string
	disconnected  []string
	shutdownCalls int
}

func newEchoBackend() *echoBackend {
	return &echoBackend{
		entities: map[string]interface{}{"entities": []interface{}{}},
	}
}

func (e *echoBackend) Name() string                        { return "echo" }
func (e *echoBackend) Kind() backend.Kind                  { return backend.KindRCON }
func (e *echoBackend) Initialize(ctx context.Context) error { return nil }

func (e *echoBackend) Shutdown(ctx context.Context) error {
	e.shutdownCalls++
	return nil
}

func (e *echoBackend) SendCommand(ctx context.Context, command string) (string, error) {
	e.commands = append(e.commands, command)
	if e.failOnCommand != "" && command == e.failOnCommand {
		return "", fmt.Errorf("command rejected: %s", command)
	}
	if rest, ok := strings.CutPrefix(command, "say "); ok {
		return rest, nil
	}
	return command, nil
}

func (e *echoBackend) ExecutePlayerCommand(ctx context.Context, player, command string) (string, error) {
	return e.SendCommand(ctx, fmt.Sprintf("execute as %s run %s", player, command))
}

func (e *echoBackend) GetEntities(ctx context.Context, player string) (map[string]interface{}, error) {
	return e.entities, nil
}

func (e *echoBackend) GetInventory(ctx context.Context, player string) (map[string]interface{}, error) {
	return map[string]interface{}{"inventory": []interface{}{}}, nil
}

func (e *echoBackend) ConnectPlayer(ctx context.Context, player string) error {
	e.connected = append(e.connected, player)
	return nil
}

func (e *echoBackend) DisconnectPlayer(ctx context.Context, player string) error {
	e.disconnected = append(e.disconnected, player)
	return nil
}

func newTestExecutor(t *testing.T, b backend.Backend) (*Executor, *conn.Manager) {
	t.Helper()
	manager := conn.NewManager(b)
	require.NoError(t, manager.Initialize(context.Background()))

	executor := NewExecutor(manager, state.NewManager(), NewSilentLogger())
	executor.SetSettleDelay(0)
	return executor, manager
}

func TestExecuteScenarioPasses(t *testing.T) {
	echo := newEchoBackend()
	executor, _ := newTestExecutor(t, echo)

	sc := Scenario{
		Name: "say-hi",
		Setup: []Action{
			{Name: "join", Action: ActionConnectPlayer, Player: "alice"},
		},
		Steps: []Action{
			{Name: "greet", Action: ActionExecuteCommand, Command: "say hi"},
		},
		Cleanup: []Action{
			{Name: "leave", Action: ActionDisconnectPlayer, Player: "alice"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	assert.Equal(t, StatusPassed, result.Status)
	assert.True(t, result.Passed())
	assert.Empty(t, result.Error)
	require.Len(t, result.ActionResults, 3)
	assert.Equal(t, "hi", result.ActionResults[1].Response)
	assert.Equal(t, []string{"alice"}, echo.connected)
	assert.Equal(t, []string{"alice"}, echo.disconnected)
	assert.True(t, result.Duration >= 0)
}

func TestExecuteFailedSetupSkipsStepsButRunsCleanup(t *testing.T) {
	echo := newEchoBackend()
	echo.failOnCommand = "prepare"
	executor, _ := newTestExecutor(t, echo)

	sc := Scenario{
		Name: "broken-setup",
		Setup: []Action{
			{Name: "prepare arena", Action: ActionExecuteCommand, Command: "prepare"},
		},
		Steps: []Action{
			{Name: "never runs", Action: ActionExecuteCommand, Command: "say unreachable"},
		},
		Cleanup: []Action{
			{Name: "tear down", Action: ActionExecuteCommand, Command: "reset"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "prepare arena", result.FailedAction)
	assert.Contains(t, result.Error, "prepare arena")

	// Setup failed and steps were skipped, but cleanup still ran.
	require.Len(t, result.ActionResults, 2)
	assert.Equal(t, PhaseSetup, result.ActionResults[0].Phase)
	assert.Equal(t, PhaseCleanup, result.ActionResults[1].Phase)
	assert.Equal(t, []string{"prepare", "reset"}, echo.commands)
}

func TestExecuteCleanupFailureDoesNotFlipResult(t *testing.T) {
	echo := newEchoBackend()
	echo.failOnCommand = "reset"
	executor, _ := newTestExecutor(t, echo)

	sc := Scenario{
		Name: "flaky-cleanup",
		Steps: []Action{
			{Action: ActionExecuteCommand, Command: "say done"},
		},
		Cleanup: []Action{
			{Action: ActionExecuteCommand, Command: "reset"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	assert.Equal(t, StatusPassed, result.Status)
	require.Len(t, result.ActionResults, 2)
	assert.Equal(t, StatusFailed, result.ActionResults[1].Status)
}

func TestExecuteStoresAndResolvesVariables(t *testing.T) {
	echo := newEchoBackend()
	executor, _ := newTestExecutor(t, echo)

	sc := Scenario{
		Name: "variables",
		Steps: []Action{
			{Action: ActionExecuteCommand, Command: "say alice", StoreAs: "who"},
			{Action: ActionExecuteCommand, Command: "say hello {{ who }}"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	require.Equal(t, StatusPassed, result.Status)
	assert.Equal(t, "hello alice", result.ActionResults[1].Response)
}

func TestExecuteDefaultVariables(t *testing.T) {
	echo := newEchoBackend()
	executor, _ := newTestExecutor(t, echo)
	executor.SetVariables(map[string]interface{}{"who": "steve", "world": "overworld"})

	sc := Scenario{
		Name: "defaults",
		Steps: []Action{
			{Action: ActionExecuteCommand, Command: "say {{ who }} in {{ world }}"},
			{Action: ActionExecuteCommand, Command: "say alice", StoreAs: "who"},
			{Action: ActionExecuteCommand, Command: "say {{ who }} again"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	require.Equal(t, StatusPassed, result.Status)
	assert.Equal(t, "steve in overworld", result.ActionResults[0].Response)
	// Values stored during execution shadow configured defaults.
	assert.Equal(t, "alice again", result.ActionResults[2].Response)
}

func TestExecuteUndefinedVariableFails(t *testing.T) {
	executor, _ := newTestExecutor(t, newEchoBackend())

	sc := Scenario{
		Name: "missing-var",
		Steps: []Action{
			{Name: "use ghost", Action: ActionExecuteCommand, Command: "say {{ ghost }}"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "undefined variable")
	assert.Equal(t, "use ghost", result.FailedAction)
}

func TestExecuteUnknownActionSkipped(t *testing.T) {
	echo := newEchoBackend()
	executor, _ := newTestExecutor(t, echo)

	sc := Scenario{
		Name: "forward-compat",
		Steps: []Action{
			{Action: ActionType("teleport_randomly")},
			{Action: ActionExecuteCommand, Command: "say still running"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	assert.Equal(t, StatusPassed, result.Status)
	require.Len(t, result.ActionResults, 2)
	assert.Equal(t, StatusSkipped, result.ActionResults[0].Status)
	assert.Equal(t, "still running", result.ActionResults[1].Response)
}

func TestExecuteSnapshotAndCompare(t *testing.T) {
	echo := newEchoBackend()
	executor, _ := newTestExecutor(t, echo)

	sc := Scenario{
		Name: "state-diff",
		Steps: []Action{
			{Action: ActionSnapshotState, Key: "before", Player: "alice"},
			{Action: ActionSnapshotState, Key: "after", Player: "alice"},
			{Action: ActionCompareState, Before: "before", After: "after"},
		},
	}

	// Mutate entities between the snapshots by swapping the map the stub
	// returns after the first capture runs.
	echo.entities = map[string]interface{}{"entities": []interface{}{}}
	result := executor.Execute(context.Background(), sc)

	require.Equal(t, StatusPassed, result.Status)
	comparison, ok := result.ActionResults[2].Response.(state.Comparison)
	require.True(t, ok, "compare_state should respond with a state comparison")
	assert.False(t, comparison.HasChanges)
}

func TestExecuteWaitHonorsDuration(t *testing.T) {
	executor, _ := newTestExecutor(t, newEchoBackend())

	sc := Scenario{
		Name: "pause",
		Steps: []Action{
			{Action: ActionWait, Duration: Duration(20 * time.Millisecond)},
		},
	}

	start := time.Now()
	result := executor.Execute(context.Background(), sc)

	assert.Equal(t, StatusPassed, result.Status)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestExecuteCancelledContextFails(t *testing.T) {
	echo := newEchoBackend()
	executor, _ := newTestExecutor(t, echo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := Scenario{
		Name: "cancelled",
		Steps: []Action{
			{Action: ActionExecuteCommand, Command: "say never"},
		},
		Cleanup: []Action{
			{Action: ActionExecuteCommand, Command: "reset"},
		},
	}

	result := executor.Execute(ctx, sc)

	assert.Equal(t, StatusFailed, result.Status)
	// Cleanup ran on its own deadline despite the cancelled run context.
	assert.Contains(t, echo.commands, "reset")
	assert.NotContains(t, echo.commands, "say never")
}

// positionBackend reports player positions directly.
type positionBackend struct {
	*echoBackend
	position map[string]interface{}
}

func (p *positionBackend) GetPosition(ctx context.Context, player string) (map[string]interface{}, error) {
	return p.position, nil
}

func TestExecuteGetPositionFallsBackToConsole(t *testing.T) {
	echo := newEchoBackend()
	executor, _ := newTestExecutor(t, echo)

	sc := Scenario{
		Name: "where-am-i",
		Steps: []Action{
			{Name: "locate", Action: ActionGetPosition, Player: "alice", StoreAs: "pos"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	require.Equal(t, StatusPassed, result.Status)
	require.Len(t, result.ActionResults, 1)
	assert.Equal(t, StatusPassed, result.ActionResults[0].Status)
	assert.Equal(t, map[string]interface{}{"raw": "data get entity alice Pos"}, result.ActionResults[0].Response)
	assert.Equal(t, []string{"data get entity alice Pos"}, echo.commands)
}

func TestExecuteGetPositionUsesPositionReader(t *testing.T) {
	pb := &positionBackend{
		echoBackend: newEchoBackend(),
		position:    map[string]interface{}{"x": 104.5, "y": 64.0, "z": -33.25},
	}
	executor, _ := newTestExecutor(t, pb)

	sc := Scenario{
		Name: "where-am-i",
		Steps: []Action{
			{Name: "locate", Action: ActionGetPosition, Player: "alice"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	require.Equal(t, StatusPassed, result.Status)
	assert.Equal(t, pb.position, result.ActionResults[0].Response)
	assert.Empty(t, pb.commands, "direct position read should not issue console commands")
}

func TestExecuteChatFallsBackToConsole(t *testing.T) {
	echo := newEchoBackend()
	executor, _ := newTestExecutor(t, echo)

	sc := Scenario{
		Name: "chat-fallback",
		Steps: []Action{
			{Action: ActionChat, Player: "alice", Message: "hello world"},
		},
	}

	result := executor.Execute(context.Background(), sc)

	require.Equal(t, StatusPassed, result.Status)
	require.Len(t, echo.commands, 1)
	assert.Equal(t, "execute as alice run say hello world", echo.commands[0])
}
