package backend

import (
	"context"
	"fmt"
	"sync"

	"craftcheck/internal/rcon"
	"craftcheck/pkg/logging"
)

// rconBackend drives the game server over the binary console protocol. It
// owns a single persistent client; the client serializes in-flight requests
// internally.
type rconBackend struct {
	cfg    Config
	client *rcon.Client

	mu          sync.Mutex
	initialized bool
}

func newRCONBackend(cfg Config) *rconBackend {
	return &rconBackend{
		cfg:    cfg,
		client: rcon.NewClient(cfg.Host, cfg.Port, cfg.Password),
	}
}

func (b *rconBackend) Name() string { return b.cfg.Name }
func (b *rconBackend) Kind() Kind   { return KindRCON }

func (b *rconBackend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	if err := b.client.Connect(ctx); err != nil {
		return fmt.Errorf("rcon backend %s: %w", b.cfg.Name, err)
	}

	b.initialized = true
	logging.Debug("Backend", "RCON backend %s initialized against %s:%d", b.cfg.Name, b.cfg.Host, b.cfg.Port)
	return nil
}

func (b *rconBackend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.initialized = false
	return b.client.Close()
}

func (b *rconBackend) ready() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (b *rconBackend) SendCommand(ctx context.Context, command string) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}
	return b.client.ExecuteCommand(ctx, command)
}

func (b *rconBackend) ExecutePlayerCommand(ctx context.Context, player, command string) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}
	return b.client.ExecuteCommand(ctx, fmt.Sprintf("execute as %s at %s run %s", player, player, command))
}

func (b *rconBackend) GetEntities(ctx context.Context, player string) (map[string]interface{}, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}

	out, err := b.client.ExecuteCommand(ctx, fmt.Sprintf("execute as %s at %s run data get entity @s", player, player))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"raw": out}, nil
}

func (b *rconBackend) GetInventory(ctx context.Context, player string) (map[string]interface{}, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}

	out, err := b.client.ExecuteCommand(ctx, fmt.Sprintf("data get entity %s Inventory", player))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"raw": out}, nil
}
