package backend

import (
	"context"
	"errors"
	"fmt"
)

// Kind discriminates the closed set of backend variants. Resolution happens
// once, at construction time; nothing deeper in the call graph switches on
// raw strings.
type Kind string

const (
	// KindRCON drives the game server over the binary console protocol.
	KindRCON Kind = "rcon"
	// KindBridge drives virtual players through the bot-bridge process.
	KindBridge Kind = "bridge"
	// KindContainer runs the game server in a container and drives it over
	// the console protocol.
	KindContainer Kind = "container"
	// KindHeadless joins the game server directly as a websocket client.
	KindHeadless Kind = "headless"
)

// ErrNotInitialized is returned by every operation other than Initialize
// while the backend has no usable connection.
var ErrNotInitialized = errors.New("backend: not initialized")

// Config carries the connection parameters for one backend instance.
type Config struct {
	// Name identifies this backend configuration in results and logs.
	Name string `yaml:"name"`
	// Kind selects the variant.
	Kind Kind `yaml:"kind"`
	// Host and Port locate the game server (rcon, container, headless).
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
	// Password is the console-protocol shared secret.
	Password string `yaml:"password,omitempty"`
	// BridgeURL is the base URL of the bot-bridge process.
	BridgeURL string `yaml:"bridge_url,omitempty"`
	// ControlPlayer is the bridge player used for console-level commands.
	ControlPlayer string `yaml:"control_player,omitempty"`
	// Image is the game server container image (container kind), and
	// Version the image tag to launch.
	Image   string `yaml:"image,omitempty"`
	Version string `yaml:"version,omitempty"`
	// ServerURL is the headless game server base URL (headless kind).
	ServerURL string `yaml:"server_url,omitempty"`
}

// Backend is the uniform capability surface used to drive a remote server or
// bot, implemented polymorphically by each variant.
type Backend interface {
	// Name returns the configuration name of this backend instance.
	Name() string
	// Kind returns the variant discriminator.
	Kind() Kind
	// Initialize establishes the underlying transport. All other
	// operations fail fast until it succeeds.
	Initialize(ctx context.Context) error
	// Shutdown tears down the transport. Idempotent.
	Shutdown(ctx context.Context) error
	// SendCommand executes a console-level command and returns its output.
	SendCommand(ctx context.Context, command string) (string, error)
	// ExecutePlayerCommand executes a command as the named player.
	ExecutePlayerCommand(ctx context.Context, player, command string) (string, error)
	// GetEntities returns the entities observable by the named player.
	GetEntities(ctx context.Context, player string) (map[string]interface{}, error)
	// GetInventory returns the named player's inventory.
	GetInventory(ctx context.Context, player string) (map[string]interface{}, error)
}

// PlayerController is the optional extension for variants that can connect
// and disconnect virtual players. Callers type-assert.
type PlayerController interface {
	ConnectPlayer(ctx context.Context, player string) error
	DisconnectPlayer(ctx context.Context, player string) error
}

// BotController is the optional extension for variants that can drive bot
// behaviors beyond plain commands. Callers type-assert and fall back to
// console-command equivalents when absent.
type BotController interface {
	Chat(ctx context.Context, player, message string) error
	Move(ctx context.Context, player string, x, y, z float64) error
	Equip(ctx context.Context, player, item, slot string) error
	UseItem(ctx context.Context, player, target string) error
}

// PositionReader is the optional extension for variants that can report a
// player's position directly. Callers type-assert and fall back to a console
// data query when absent.
type PositionReader interface {
	GetPosition(ctx context.Context, player string) (map[string]interface{}, error)
}

// ServerController is the optional extension for variants that own the game
// server process itself. It is used only during consistency-test setup, not
// during normal scenario execution; callers type-assert.
type ServerController interface {
	LaunchServer(ctx context.Context, version string) error
	IsServerRunning(ctx context.Context) bool
	ServerLogs(ctx context.Context) (string, error)
}

// New resolves the config's kind to a variant. An unrecognized kind fails
// fast; there is no silent default.
func New(cfg Config) (Backend, error) {
	switch cfg.Kind {
	case KindRCON:
		return newRCONBackend(cfg), nil
	case KindBridge:
		return newBridgeBackend(cfg), nil
	case KindContainer:
		return newContainerBackend(cfg), nil
	case KindHeadless:
		return newHeadlessBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Kind)
	}
}
