package backend

import (
	"context"
	"fmt"
	"sync"

	"craftcheck/internal/headless"
	"craftcheck/pkg/logging"
)

// headlessBackend joins the game server directly as websocket clients, one
// per virtual player. Console-level commands go through a dedicated control
// session established at Initialize.
type headlessBackend struct {
	cfg Config

	mu          sync.Mutex
	initialized bool
	control     *headless.Client
	players     map[string]*headless.Client
}

func newHeadlessBackend(cfg Config) *headlessBackend {
	return &headlessBackend{
		cfg:     cfg,
		players: make(map[string]*headless.Client),
	}
}

func (b *headlessBackend) Name() string { return b.cfg.Name }
func (b *headlessBackend) Kind() Kind   { return KindHeadless }

func (b *headlessBackend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	control := headless.NewClient(b.cfg.ServerURL)
	if err := control.Join(ctx); err != nil {
		return fmt.Errorf("headless backend %s: %w", b.cfg.Name, err)
	}

	b.control = control
	b.initialized = true
	logging.Debug("Backend", "Headless backend %s joined %s as %s", b.cfg.Name, b.cfg.ServerURL, control.PlayerID())
	return nil
}

func (b *headlessBackend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}
	b.initialized = false

	for name, client := range b.players {
		if err := client.Close(); err != nil {
			logging.Warn("Backend", "Headless backend %s: close of player %s failed: %v", b.cfg.Name, name, err)
		}
		delete(b.players, name)
	}

	err := b.control.Close()
	b.control = nil
	return err
}

// session returns the client for the named player, falling back to the
// control session. Caller must not hold b.mu.
func (b *headlessBackend) session(player string) (*headless.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}
	if client, ok := b.players[player]; ok {
		return client, nil
	}
	return b.control, nil
}

func (b *headlessBackend) SendCommand(ctx context.Context, command string) (string, error) {
	client, err := b.session("")
	if err != nil {
		return "", err
	}

	if err := client.Send("command", map[string]interface{}{"command": command}); err != nil {
		return "", err
	}
	// The websocket protocol has no per-command response channel; effects
	// are observed through state broadcasts.
	return "", nil
}

func (b *headlessBackend) ExecutePlayerCommand(ctx context.Context, player, command string) (string, error) {
	client, err := b.session(player)
	if err != nil {
		return "", err
	}

	if err := client.Send("command", map[string]interface{}{"command": command}); err != nil {
		return "", err
	}
	return "", nil
}

func (b *headlessBackend) GetEntities(ctx context.Context, player string) (map[string]interface{}, error) {
	client, err := b.session(player)
	if err != nil {
		return nil, err
	}

	state := client.LastState()
	if state == nil {
		return map[string]interface{}{}, nil
	}
	if entities, ok := state["entities"]; ok {
		return map[string]interface{}{"entities": entities}, nil
	}
	return state, nil
}

func (b *headlessBackend) GetInventory(ctx context.Context, player string) (map[string]interface{}, error) {
	client, err := b.session(player)
	if err != nil {
		return nil, err
	}

	state := client.LastState()
	if state == nil {
		return map[string]interface{}{}, nil
	}
	if inv, ok := state["inventory"]; ok {
		return map[string]interface{}{"inventory": inv}, nil
	}
	return map[string]interface{}{}, nil
}

// ConnectPlayer implements PlayerController: each virtual player gets its
// own websocket session.
func (b *headlessBackend) ConnectPlayer(ctx context.Context, player string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}
	if _, ok := b.players[player]; ok {
		return nil
	}

	client := headless.NewClient(b.cfg.ServerURL)
	if err := client.Join(ctx); err != nil {
		return fmt.Errorf("headless backend %s: failed to join player %s: %w", b.cfg.Name, player, err)
	}

	b.players[player] = client
	return nil
}

// DisconnectPlayer implements PlayerController.
func (b *headlessBackend) DisconnectPlayer(ctx context.Context, player string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	client, ok := b.players[player]
	if !ok {
		return nil
	}
	delete(b.players, player)
	return client.Close()
}
