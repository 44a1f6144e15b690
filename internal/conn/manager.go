package conn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"craftcheck/internal/backend"
	"craftcheck/pkg/logging"
)

// Service names tracked in the health record.
const (
	ServiceConsole    = "console-protocol"
	ServiceBridge     = "bridge"
	ServiceGameClient = "game-client"
)

// Manager owns the lifecycle of one backend's underlying connections. It
// tracks per-service health and the set of connected virtual players.
// Initialize and Cleanup are serialized; health and player reads are safe
// concurrently.
type Manager struct {
	backend backend.Backend

	mu          sync.RWMutex
	initialized bool
	health      map[string]bool
	players     map[string]time.Time
}

// NewManager creates a manager around the given backend.
func NewManager(b backend.Backend) *Manager {
	return &Manager{
		backend: b,
		health:  make(map[string]bool),
		players: make(map[string]time.Time),
	}
}

// Backend returns the managed backend.
func (m *Manager) Backend() backend.Backend {
	return m.backend
}

// serviceName maps the backend kind to the health-record service it depends on.
func (m *Manager) serviceName() string {
	switch m.backend.Kind() {
	case backend.KindBridge:
		return ServiceBridge
	case backend.KindHeadless:
		return ServiceGameClient
	default:
		return ServiceConsole
	}
}

// Initialize establishes the backend's transport and records the service's
// health exactly once for this call. Later failures during use do not
// retroactively flip the recorded health.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	service := m.serviceName()
	if err := m.backend.Initialize(ctx); err != nil {
		m.health[service] = false
		return fmt.Errorf("connection manager: initialize failed: %w", err)
	}

	m.health[service] = true
	m.initialized = true
	logging.Info("Backend", "Backend %s (%s) initialized, service %s healthy", m.backend.Name(), m.backend.Kind(), service)
	return nil
}

// Initialized reports whether Initialize completed successfully.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Healthy reports the recorded health of the named service. Unknown
// services are unhealthy.
func (m *Manager) Healthy(service string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health[service]
}

// HealthRecord returns a copy of the full health record.
func (m *Manager) HealthRecord() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record := make(map[string]bool, len(m.health))
	for k, v := range m.health {
		record[k] = v
	}
	return record
}

// ConnectPlayer connects a virtual player through the backend, if the
// variant supports it, and records it in the connected set. Connecting an
// already-connected player is a no-op.
func (m *Manager) ConnectPlayer(ctx context.Context, player string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return backend.ErrNotInitialized
	}
	if _, ok := m.players[player]; ok {
		logging.Debug("Backend", "Player %s already connected, skipping", player)
		return nil
	}

	if pc, ok := m.backend.(backend.PlayerController); ok {
		if err := pc.ConnectPlayer(ctx, player); err != nil {
			return fmt.Errorf("connection manager: failed to connect player %s: %w", player, err)
		}
	} else {
		// Console-only variants have no virtual player transport; the
		// player is tracked so cleanup still works symmetrically.
		logging.Debug("Backend", "Backend %s cannot connect players, tracking %s only", m.backend.Name(), player)
	}

	m.players[player] = time.Now()
	return nil
}

// DisconnectPlayer disconnects a tracked player. A no-op for players not
// present, which makes cleanup idempotent.
func (m *Manager) DisconnectPlayer(ctx context.Context, player string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[player]; !ok {
		return nil
	}
	delete(m.players, player)

	if pc, ok := m.backend.(backend.PlayerController); ok {
		if err := pc.DisconnectPlayer(ctx, player); err != nil {
			return fmt.Errorf("connection manager: failed to disconnect player %s: %w", player, err)
		}
	}
	return nil
}

// ConnectedPlayers returns the names of the currently tracked players.
func (m *Manager) ConnectedPlayers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	players := make([]string, 0, len(m.players))
	for name := range m.players {
		players = append(players, name)
	}
	return players
}

// Cleanup disconnects all tracked players and shuts the backend down.
// Player disconnect failures are logged, not fatal.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for player := range m.players {
		delete(m.players, player)
		if pc, ok := m.backend.(backend.PlayerController); ok {
			if err := pc.DisconnectPlayer(ctx, player); err != nil {
				logging.Warn("Backend", "Cleanup: failed to disconnect player %s: %v", player, err)
			}
		}
	}

	m.initialized = false
	return m.backend.Shutdown(ctx)
}
