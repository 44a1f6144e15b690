package conn

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftcheck/internal/backend"
)

// fakeBackend implements backend.Backend and backend.PlayerController,
// recording player operations for assertions.
type fakeBackend struct {
	mu            sync.Mutex
	initErr       error
	initialized   bool
	connects      []string
	disconnects   []string
	shutdownCalls int
}

func (f *fakeBackend) Name() string       { return "fake" }
func (f *fakeBackend) Kind() backend.Kind { return backend.KindBridge }

func (f *fakeBackend) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return f.initErr
	}
	f.initialized = true
	return nil
}

func (f *fakeBackend) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdownCalls++
	f.initialized = false
	return nil
}

func (f *fakeBackend) SendCommand(ctx context.Context, command string) (string, error) {
	return "", nil
}

func (f *fakeBackend) ExecutePlayerCommand(ctx context.Context, player, command string) (string, error) {
	return "", nil
}

func (f *fakeBackend) GetEntities(ctx context.Context, player string) (map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeBackend) GetInventory(ctx context.Context, player string) (map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeBackend) ConnectPlayer(ctx context.Context, player string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, player)
	return nil
}

func (f *fakeBackend) DisconnectPlayer(ctx context.Context, player string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, player)
	return nil
}

func TestInitializeRecordsHealth(t *testing.T) {
	m := NewManager(&fakeBackend{})

	require.NoError(t, m.Initialize(context.Background()))
	assert.True(t, m.Initialized())
	assert.True(t, m.Healthy(ServiceBridge))
}

func TestInitializeFailureRecordsUnhealthy(t *testing.T) {
	m := NewManager(&fakeBackend{initErr: errors.New("bridge down")})

	err := m.Initialize(context.Background())
	require.Error(t, err)
	assert.False(t, m.Initialized())
	assert.False(t, m.Healthy(ServiceBridge))
}

func TestConnectPlayerGuardsDoubleConnect(t *testing.T) {
	fake := &fakeBackend{}
	m := NewManager(fake)
	require.NoError(t, m.Initialize(context.Background()))

	ctx := context.Background()
	require.NoError(t, m.ConnectPlayer(ctx, "steve"))
	require.NoError(t, m.ConnectPlayer(ctx, "steve"))

	// The second connect is a no-op: the transport saw exactly one.
	assert.Equal(t, []string{"steve"}, fake.connects)
	assert.Equal(t, []string{"steve"}, m.ConnectedPlayers())
}

func TestConnectPlayerRequiresInitialize(t *testing.T) {
	m := NewManager(&fakeBackend{})
	err := m.ConnectPlayer(context.Background(), "steve")
	assert.ErrorIs(t, err, backend.ErrNotInitialized)
}

func TestDisconnectPlayerIdempotent(t *testing.T) {
	fake := &fakeBackend{}
	m := NewManager(fake)
	require.NoError(t, m.Initialize(context.Background()))

	ctx := context.Background()
	require.NoError(t, m.ConnectPlayer(ctx, "steve"))
	require.NoError(t, m.DisconnectPlayer(ctx, "steve"))

	// Disconnecting an absent player is a no-op.
	require.NoError(t, m.DisconnectPlayer(ctx, "steve"))
	require.NoError(t, m.DisconnectPlayer(ctx, "ghost"))

	assert.Equal(t, []string{"steve"}, fake.disconnects)
	assert.Empty(t, m.ConnectedPlayers())
}

func TestCleanupDisconnectsAllPlayers(t *testing.T) {
	fake := &fakeBackend{}
	m := NewManager(fake)
	require.NoError(t, m.Initialize(context.Background()))

	ctx := context.Background()
	require.NoError(t, m.ConnectPlayer(ctx, "steve"))
	require.NoError(t, m.ConnectPlayer(ctx, "alex"))

	require.NoError(t, m.Cleanup(ctx))
	assert.Len(t, fake.disconnects, 2)
	assert.Equal(t, 1, fake.shutdownCalls)
	assert.Empty(t, m.ConnectedPlayers())
	assert.False(t, m.Initialized())
}

func TestHealthRecordCopy(t *testing.T) {
	m := NewManager(&fakeBackend{})
	require.NoError(t, m.Initialize(context.Background()))

	record := m.HealthRecord()
	record[ServiceBridge] = false

	// Mutating the returned copy must not affect the manager's record.
	assert.True(t, m.Healthy(ServiceBridge))
}
