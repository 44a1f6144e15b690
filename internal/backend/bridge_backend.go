package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"craftcheck/internal/bridge"
	"craftcheck/pkg/logging"
)

// defaultControlPlayer is the bridge player used for console-level commands
// when the configuration does not name one.
const defaultControlPlayer = "craftcheck_console"

// bridgeBackend drives virtual players through the bot-bridge process. The
// underlying HTTP client is stateless per call and safe for concurrent use.
type bridgeBackend struct {
	cfg    Config
	client *bridge.Client

	mu          sync.Mutex
	initialized bool
}

func newBridgeBackend(cfg Config) *bridgeBackend {
	return &bridgeBackend{
		cfg:    cfg,
		client: bridge.NewClient(cfg.BridgeURL),
	}
}

func (b *bridgeBackend) Name() string { return b.cfg.Name }
func (b *bridgeBackend) Kind() Kind   { return KindBridge }

func (b *bridgeBackend) controlPlayer() string {
	if b.cfg.ControlPlayer != "" {
		return b.cfg.ControlPlayer
	}
	return defaultControlPlayer
}

func (b *bridgeBackend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	if !b.client.Healthy(ctx) {
		return fmt.Errorf("bridge backend %s: bridge at %s is not healthy", b.cfg.Name, b.cfg.BridgeURL)
	}

	// The control player carries console-level commands; connect it now so
	// SendCommand works immediately after Initialize.
	if err := b.client.Connect(ctx, b.controlPlayer(), b.cfg.Host, b.cfg.Port); err != nil {
		return fmt.Errorf("bridge backend %s: failed to connect control player: %w", b.cfg.Name, err)
	}

	b.initialized = true
	logging.Debug("Backend", "Bridge backend %s initialized against %s", b.cfg.Name, b.cfg.BridgeURL)
	return nil
}

func (b *bridgeBackend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}
	b.initialized = false

	if err := b.client.Disconnect(ctx, b.controlPlayer()); err != nil {
		logging.Warn("Backend", "Bridge backend %s: control player disconnect failed: %v", b.cfg.Name, err)
	}
	return nil
}

func (b *bridgeBackend) ready() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (b *bridgeBackend) SendCommand(ctx context.Context, command string) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}

	resp, err := b.client.Command(ctx, b.controlPlayer(), ensureSlash(command))
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func (b *bridgeBackend) ExecutePlayerCommand(ctx context.Context, player, command string) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}

	resp, err := b.client.Command(ctx, player, ensureSlash(command))
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func (b *bridgeBackend) GetEntities(ctx context.Context, player string) (map[string]interface{}, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	return b.client.GetEntities(ctx, player)
}

func (b *bridgeBackend) GetInventory(ctx context.Context, player string) (map[string]interface{}, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	return b.client.GetInventory(ctx, player)
}

// GetPosition implements PositionReader.
func (b *bridgeBackend) GetPosition(ctx context.Context, player string) (map[string]interface{}, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	return b.client.GetPosition(ctx, player)
}

// ConnectPlayer implements PlayerController.
func (b *bridgeBackend) ConnectPlayer(ctx context.Context, player string) error {
	if err := b.ready(); err != nil {
		return err
	}
	return b.client.Connect(ctx, player, b.cfg.Host, b.cfg.Port)
}

// DisconnectPlayer implements PlayerController.
func (b *bridgeBackend) DisconnectPlayer(ctx context.Context, player string) error {
	if err := b.ready(); err != nil {
		return err
	}
	return b.client.Disconnect(ctx, player)
}

// Chat implements BotController.
func (b *bridgeBackend) Chat(ctx context.Context, player, message string) error {
	if err := b.ready(); err != nil {
		return err
	}
	return b.client.Chat(ctx, player, message)
}

// Move implements BotController.
func (b *bridgeBackend) Move(ctx context.Context, player string, x, y, z float64) error {
	if err := b.ready(); err != nil {
		return err
	}
	return b.client.Move(ctx, player, x, y, z)
}

// Equip implements BotController.
func (b *bridgeBackend) Equip(ctx context.Context, player, item, slot string) error {
	if err := b.ready(); err != nil {
		return err
	}
	return b.client.Equip(ctx, player, item, slot)
}

// UseItem implements BotController.
func (b *bridgeBackend) UseItem(ctx context.Context, player, target string) error {
	if err := b.ready(); err != nil {
		return err
	}
	return b.client.Use(ctx, player, target)
}

// ensureSlash normalizes command text for the bot library, which expects a
// leading slash on chat-issued commands.
func ensureSlash(command string) string {
	if strings.HasPrefix(command, "/") {
		return command
	}
	return "/" + command
}

// responseText extracts the human-readable output from a bridge response.
func responseText(resp map[string]interface{}) string {
	if out, ok := resp["output"].(string); ok {
		return out
	}
	if raw, ok := resp["raw"].(string); ok {
		return raw
	}
	return ""
}
