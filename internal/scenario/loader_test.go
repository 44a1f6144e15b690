package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const basicScenario = `
name: basic-smoke
description: Connect a player and greet
tags: [smoke, chat]
timeout: 30s
setup:
  - name: join
    action: connect_player
    player: alice
steps:
  - name: greet
    action: execute_command
    command: say hi
    duration: 500ms
cleanup:
  - name: leave
    action: disconnect_player
    player: alice
`

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "basic.yaml", basicScenario)

	loader := NewLoader(nil)
	scenarios, err := loader.Load(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	sc := scenarios[0]
	assert.Equal(t, "basic-smoke", sc.Name)
	assert.Equal(t, []string{"smoke", "chat"}, sc.Tags)
	assert.Equal(t, 30*time.Second, sc.Timeout.Std())
	require.Len(t, sc.Setup, 1)
	require.Len(t, sc.Steps, 1)
	require.Len(t, sc.Cleanup, 1)
	assert.Equal(t, ActionConnectPlayer, sc.Setup[0].Action)
	assert.Equal(t, "say hi", sc.Steps[0].Command)
	assert.Equal(t, 500*time.Millisecond, sc.Steps[0].Duration.Std())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "one.yaml", "name: one\nsteps:\n  - action: wait\n")
	writeScenarioFile(t, dir, "two.yml", "name: two\nsteps:\n  - action: wait\n")
	writeScenarioFile(t, dir, "notes.txt", "not a scenario")

	loader := NewLoader(nil)
	scenarios, err := loader.Load(dir)
	require.NoError(t, err)
	assert.Len(t, scenarios, 2)
}

func TestLoadMissingPath(t *testing.T) {
	loader := NewLoader(nil)
	_, err := loader.Load("/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "broken.yaml", "name: [unclosed")

	loader := NewLoader(nil)
	_, err := loader.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse YAML")
}

func TestValidateRequiresName(t *testing.T) {
	err := Validate(Scenario{Steps: []Action{{Action: ActionWait}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestValidateRequiresActions(t *testing.T) {
	err := Validate(Scenario{Name: "empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one action")
}

func TestValidateRequiresActionType(t *testing.T) {
	err := Validate(Scenario{
		Name:  "typeless",
		Steps: []Action{{Name: "mystery"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action type is required")
}

func TestValidateAcceptsUnknownActionTag(t *testing.T) {
	err := Validate(Scenario{
		Name:  "forward-compat",
		Steps: []Action{{Action: ActionType("teleport_randomly")}},
	})
	assert.NoError(t, err)
}

func TestFilter(t *testing.T) {
	scenarios := []Scenario{
		{Name: "smoke-chat", Tags: []string{"smoke", "chat"}},
		{Name: "combat-basics", Tags: []string{"combat"}},
		{Name: "chat-emotes", Tags: []string{"chat"}},
	}

	assert.Len(t, Filter(scenarios, "", ""), 3)
	assert.Len(t, Filter(scenarios, "", "chat"), 2)
	assert.Len(t, Filter(scenarios, "combat-basics", ""), 1)
	assert.Empty(t, Filter(scenarios, "combat-basics", "chat"))
	assert.Empty(t, Filter(scenarios, "no-such", ""))
}

func TestDurationUnmarshalNanoseconds(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "ns.yaml",
		"name: ns\nsteps:\n  - action: wait\n    duration: 1500000000\n")

	loader := NewLoader(nil)
	scenarios, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, scenarios[0].Steps[0].Duration.Std())
}

func TestDurationUnmarshalInvalid(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "bad.yaml",
		"name: bad\nsteps:\n  - action: wait\n    duration: soon\n")

	loader := NewLoader(nil)
	_, err := loader.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}
