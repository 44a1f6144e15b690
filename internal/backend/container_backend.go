package backend

import (
	"context"
	"fmt"
	"sync"

	"craftcheck/internal/container"
	"craftcheck/internal/rcon"
	"craftcheck/pkg/logging"
)

// containerBackend runs the game server in a container and drives it over
// the console protocol. It is the only variant that owns the server process
// itself, exposed through the ServerController extension.
type containerBackend struct {
	cfg     Config
	manager *container.Manager
	client  *rcon.Client

	mu          sync.Mutex
	initialized bool
}

func newContainerBackend(cfg Config) *containerBackend {
	return &containerBackend{
		cfg:     cfg,
		manager: container.NewManager(cfg.Image, cfg.Port, map[string]string{"EULA": "TRUE"}),
		client:  rcon.NewClient(cfg.Host, cfg.Port, cfg.Password),
	}
}

func (b *containerBackend) Name() string { return b.cfg.Name }
func (b *containerBackend) Kind() Kind   { return KindContainer }

// Initialize connects the console client to the containerized server. The
// container must already be up: consistency setup calls LaunchServer first.
func (b *containerBackend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	if err := b.client.Connect(ctx); err != nil {
		return fmt.Errorf("container backend %s: %w", b.cfg.Name, err)
	}

	b.initialized = true
	return nil
}

func (b *containerBackend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.initialized = false
	if err := b.client.Close(); err != nil {
		logging.Warn("Backend", "Container backend %s: console close failed: %v", b.cfg.Name, err)
	}
	return b.manager.Stop(ctx)
}

func (b *containerBackend) ready() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (b *containerBackend) SendCommand(ctx context.Context, command string) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}
	return b.client.ExecuteCommand(ctx, command)
}

func (b *containerBackend) ExecutePlayerCommand(ctx context.Context, player, command string) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}
	return b.client.ExecuteCommand(ctx, fmt.Sprintf("execute as %s at %s run %s", player, player, command))
}

func (b *containerBackend) GetEntities(ctx context.Context, player string) (map[string]interface{}, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}

	out, err := b.client.ExecuteCommand(ctx, fmt.Sprintf("execute as %s at %s run data get entity @s", player, player))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"raw": out}, nil
}

func (b *containerBackend) GetInventory(ctx context.Context, player string) (map[string]interface{}, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}

	out, err := b.client.ExecuteCommand(ctx, fmt.Sprintf("data get entity %s Inventory", player))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"raw": out}, nil
}

// LaunchServer implements ServerController.
func (b *containerBackend) LaunchServer(ctx context.Context, version string) error {
	return b.manager.Launch(ctx, version)
}

// IsServerRunning implements ServerController.
func (b *containerBackend) IsServerRunning(ctx context.Context) bool {
	return b.manager.IsRunning(ctx)
}

// ServerLogs implements ServerController.
func (b *containerBackend) ServerLogs(ctx context.Context) (string, error) {
	return b.manager.Logs(ctx)
}
