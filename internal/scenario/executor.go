package scenario

import (
	"context"
	"fmt"
	"time"

	"craftcheck/internal/backend"
	"craftcheck/internal/conn"
	"craftcheck/internal/state"
	"craftcheck/internal/template"
	"craftcheck/pkg/logging"
)

// defaultSettleDelay is applied between actions to accommodate server-side
// asynchronous propagation when the action declares no duration of its own.
const defaultSettleDelay = 250 * time.Millisecond

// defaultWaitDuration is used by wait actions with no explicit duration.
const defaultWaitDuration = time.Second

// Executor interprets one parsed scenario against one backend: setup, then
// steps, then cleanup. A failure in setup or steps aborts that phase and
// skips the remaining phases except cleanup, which always runs best-effort.
// Actions run strictly in order; the executor is not safe for concurrent
// Execute calls on the same instance.
type Executor struct {
	manager  *conn.Manager
	state    *state.Manager
	engine   *template.Engine
	settle   time.Duration
	defaults map[string]interface{}
	logger   RunLogger
}

// NewExecutor creates an executor over the given connection manager and
// state manager.
func NewExecutor(manager *conn.Manager, stateMgr *state.Manager, logger RunLogger) *Executor {
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &Executor{
		manager: manager,
		state:   stateMgr,
		engine:  template.New(),
		settle:  defaultSettleDelay,
		logger:  logger,
	}
}

// SetSettleDelay overrides the default delay applied between actions.
func (e *Executor) SetSettleDelay(d time.Duration) {
	e.settle = d
}

// SetVariables installs configuration-level default variables. Values stored
// during execution shadow these defaults.
func (e *Executor) SetVariables(vars map[string]interface{}) {
	e.defaults = vars
}

// Execute runs the scenario and returns its Result. The context bounds the
// whole execution; cleanup still runs on a fresh best-effort deadline when
// the main context has expired.
func (e *Executor) Execute(ctx context.Context, sc Scenario) Result {
	result := Result{
		Scenario:      sc.Name,
		Status:        StatusPassed,
		StartTime:     time.Now(),
		ActionResults: make([]ActionResult, 0, len(sc.Setup)+len(sc.Steps)+len(sc.Cleanup)),
	}

	execCtx := NewContext()

	e.logger.Info("▶ Executing scenario: %s\n", sc.Name)

	if e.runPhase(ctx, PhaseSetup, sc.Setup, execCtx, &result) {
		e.runPhase(ctx, PhaseSteps, sc.Steps, execCtx, &result)
	}

	// Cleanup always runs to completion. If the scenario context already
	// expired, give cleanup its own bounded deadline.
	cleanupCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		cleanupCtx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}
	e.runCleanup(cleanupCtx, sc.Cleanup, execCtx, &result)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.logger.Info("▶ Scenario %s: %s (%v)\n", sc.Name, result.Status, result.Duration.Round(time.Millisecond))
	return result
}

// runPhase executes setup or step actions in order. It returns false when
// the phase failed, marking the result with the first failing action.
func (e *Executor) runPhase(ctx context.Context, phase Phase, actions []Action, execCtx *Context, result *Result) bool {
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			result.Status = StatusFailed
			result.Error = fmt.Sprintf("%s aborted: %v", phase, err)
			return false
		}

		actionResult := e.runAction(ctx, phase, action, execCtx)
		result.ActionResults = append(result.ActionResults, actionResult)

		if actionResult.Status == StatusFailed {
			result.Status = StatusFailed
			result.Error = fmt.Sprintf("%s action %q failed: %s", phase, describeAction(action), actionResult.Error)
			result.FailedAction = describeAction(action)
			return false
		}

		e.settleAfter(ctx, action)
	}
	return true
}

// runCleanup executes cleanup actions best-effort. Cleanup failures are
// logged but never change the scenario's status: they neither overwrite an
// already-failed result nor flip a passed one to failed.
func (e *Executor) runCleanup(ctx context.Context, actions []Action, execCtx *Context, result *Result) {
	for _, action := range actions {
		actionResult := e.runAction(ctx, PhaseCleanup, action, execCtx)
		result.ActionResults = append(result.ActionResults, actionResult)

		if actionResult.Status == StatusFailed {
			logging.Warn("Executor", "Cleanup action %q failed: %s", describeAction(action), actionResult.Error)
		}
	}
}

// runAction resolves the action's variables and dispatches it.
func (e *Executor) runAction(ctx context.Context, phase Phase, action Action, execCtx *Context) ActionResult {
	result := ActionResult{
		Action:    action,
		Phase:     phase,
		Status:    StatusPassed,
		StartTime: time.Now(),
	}

	resolved, err := e.resolveAction(action, execCtx)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		result.Duration = time.Since(result.StartTime)
		return result
	}

	response, status, err := e.dispatch(ctx, resolved)
	result.Response = response
	result.Status = status
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
	}

	if resolved.StoreAs != "" && result.Status == StatusPassed && response != nil {
		execCtx.Store(resolved.StoreAs, response)
	}

	result.Duration = time.Since(result.StartTime)
	return result
}

// resolveAction substitutes stored variables into the action's textual
// fields. Referencing an undefined slot is an error.
func (e *Executor) resolveAction(action Action, execCtx *Context) (Action, error) {
	vars := template.MergeContexts(e.defaults, execCtx.All())

	fields := []*string{
		&action.Player, &action.Command, &action.Message,
		&action.Item, &action.Slot, &action.Target,
		&action.Key, &action.Before, &action.After,
	}
	for _, field := range fields {
		if *field == "" {
			continue
		}
		resolved, err := e.engine.ReplaceString(*field, vars)
		if err != nil {
			return action, err
		}
		*field = resolved
	}

	return action, nil
}

// dispatch executes one resolved action against the backend. Unrecognized
// action types are skipped with a diagnostic, preserving forward
// compatibility with scenario files written for a newer action set.
func (e *Executor) dispatch(ctx context.Context, a Action) (interface{}, Status, error) {
	b := e.manager.Backend()

	switch a.Action {
	case ActionConnectPlayer:
		if err := e.manager.ConnectPlayer(ctx, a.Player); err != nil {
			return nil, StatusFailed, err
		}
		return map[string]interface{}{"player": a.Player, "connected": true}, StatusPassed, nil

	case ActionDisconnectPlayer:
		if err := e.manager.DisconnectPlayer(ctx, a.Player); err != nil {
			return nil, StatusFailed, err
		}
		return map[string]interface{}{"player": a.Player, "connected": false}, StatusPassed, nil

	case ActionExecuteCommand:
		out, err := b.SendCommand(ctx, a.Command)
		if err != nil {
			return nil, StatusFailed, err
		}
		return out, StatusPassed, nil

	case ActionPlayerCommand:
		out, err := b.ExecutePlayerCommand(ctx, a.Player, a.Command)
		if err != nil {
			return nil, StatusFailed, err
		}
		return out, StatusPassed, nil

	case ActionChat:
		if bc, ok := b.(backend.BotController); ok {
			if err := bc.Chat(ctx, a.Player, a.Message); err != nil {
				return nil, StatusFailed, err
			}
			return a.Message, StatusPassed, nil
		}
		out, err := b.ExecutePlayerCommand(ctx, a.Player, fmt.Sprintf("say %s", a.Message))
		if err != nil {
			return nil, StatusFailed, err
		}
		return out, StatusPassed, nil

	case ActionMove:
		if bc, ok := b.(backend.BotController); ok {
			if err := bc.Move(ctx, a.Player, a.X, a.Y, a.Z); err != nil {
				return nil, StatusFailed, err
			}
			return map[string]interface{}{"x": a.X, "y": a.Y, "z": a.Z}, StatusPassed, nil
		}
		out, err := b.SendCommand(ctx, fmt.Sprintf("tp %s %g %g %g", a.Player, a.X, a.Y, a.Z))
		if err != nil {
			return nil, StatusFailed, err
		}
		return out, StatusPassed, nil

	case ActionEquip:
		if bc, ok := b.(backend.BotController); ok {
			if err := bc.Equip(ctx, a.Player, a.Item, a.Slot); err != nil {
				return nil, StatusFailed, err
			}
			return map[string]interface{}{"item": a.Item, "slot": a.Slot}, StatusPassed, nil
		}
		out, err := b.SendCommand(ctx, fmt.Sprintf("item replace entity %s %s with %s", a.Player, consoleSlot(a.Slot), a.Item))
		if err != nil {
			return nil, StatusFailed, err
		}
		return out, StatusPassed, nil

	case ActionUse:
		bc, ok := b.(backend.BotController)
		if !ok {
			e.logger.Debug("⏭ Action %q: use not supported by backend %s, skipping\n", describeAction(a), b.Name())
			return nil, StatusSkipped, nil
		}
		if err := bc.UseItem(ctx, a.Player, a.Target); err != nil {
			return nil, StatusFailed, err
		}
		return map[string]interface{}{"target": a.Target}, StatusPassed, nil

	case ActionGetEntities:
		entities, err := b.GetEntities(ctx, a.Player)
		if err != nil {
			return nil, StatusFailed, err
		}
		return entities, StatusPassed, nil

	case ActionGetInventory:
		inventory, err := b.GetInventory(ctx, a.Player)
		if err != nil {
			return nil, StatusFailed, err
		}
		return inventory, StatusPassed, nil

	case ActionGetPosition:
		if pr, ok := b.(backend.PositionReader); ok {
			position, err := pr.GetPosition(ctx, a.Player)
			if err != nil {
				return nil, StatusFailed, err
			}
			return position, StatusPassed, nil
		}
		out, err := b.SendCommand(ctx, fmt.Sprintf("data get entity %s Pos", a.Player))
		if err != nil {
			return nil, StatusFailed, err
		}
		return map[string]interface{}{"raw": out}, StatusPassed, nil

	case ActionSnapshotState:
		entities, err := b.GetEntities(ctx, a.Player)
		if err != nil {
			return nil, StatusFailed, err
		}
		e.state.Store(a.Key, entities)
		return e.state.RetrieveJSON(a.Key), StatusPassed, nil

	case ActionCompareState:
		comparison := e.state.Compare(a.Before, a.After)
		return comparison, StatusPassed, nil

	case ActionWait:
		d := a.Duration.Std()
		if d <= 0 {
			d = defaultWaitDuration
		}
		select {
		case <-time.After(d):
			return nil, StatusPassed, nil
		case <-ctx.Done():
			return nil, StatusFailed, ctx.Err()
		}

	default:
		e.logger.Debug("⏭ Unrecognized action type %q in %q, skipping\n", a.Action, describeAction(a))
		logging.Warn("Executor", "Unrecognized action type %q, skipping", a.Action)
		return nil, StatusSkipped, nil
	}
}

// settleAfter sleeps between actions: the action's declared duration when
// present, otherwise the default settle delay. Wait actions already slept.
func (e *Executor) settleAfter(ctx context.Context, action Action) {
	if action.Action == ActionWait {
		return
	}

	d := action.Duration.Std()
	if d <= 0 {
		d = e.settle
	}
	if d <= 0 {
		return
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// consoleSlot maps bot slot names onto console item-slot identifiers.
func consoleSlot(slot string) string {
	switch slot {
	case "", "hand":
		return "weapon.mainhand"
	case "off-hand":
		return "weapon.offhand"
	default:
		return "armor." + slot
	}
}

// describeAction prefers the human-given name, falling back to the type tag.
func describeAction(a Action) string {
	if a.Name != "" {
		return a.Name
	}
	return string(a.Action)
}
