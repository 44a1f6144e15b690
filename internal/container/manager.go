package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/uuid"

	"craftcheck/pkg/logging"
)

// Manager controls the lifecycle of one containerized game server via the
// docker CLI. Used only during consistency-test setup; normal scenario
// execution talks to an already-running server.
type Manager struct {
	image    string
	hostPort int
	env      map[string]string

	mu            sync.Mutex
	containerName string
}

// NewManager creates a manager for the given image. hostPort is published to
// the server's game port inside the container; env entries are passed
// through as container environment variables.
func NewManager(image string, hostPort int, env map[string]string) *Manager {
	return &Manager{
		image:    image,
		hostPort: hostPort,
		env:      env,
	}
}

// Launch starts a game server container for the given version tag and waits
// for docker to report it created. A previous container launched by this
// manager is removed first.
func (m *Manager) Launch(ctx context.Context, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.containerName != "" {
		if err := m.remove(ctx, m.containerName); err != nil {
			logging.Warn("Container", "Failed to remove previous container %s: %v", m.containerName, err)
		}
		m.containerName = ""
	}

	name := fmt.Sprintf("craftcheck-%s", uuid.NewString()[:8])

	image := m.image
	if version != "" {
		image = fmt.Sprintf("%s:%s", m.image, version)
	}

	args := []string{
		"run", "-d", "--name", name,
		"-p", fmt.Sprintf("%d:25565", m.hostPort),
	}
	for k, v := range m.env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, image)

	if out, err := m.docker(ctx, args...); err != nil {
		return fmt.Errorf("container: failed to launch %s: %w (%s)", image, err, strings.TrimSpace(out))
	}

	m.containerName = name
	logging.Info("Container", "Launched %s as %s (port %d)", image, name, m.hostPort)
	return nil
}

// IsRunning reports whether the launched container is still up. False when
// nothing was launched or docker cannot be queried.
func (m *Manager) IsRunning(ctx context.Context) bool {
	m.mu.Lock()
	name := m.containerName
	m.mu.Unlock()

	if name == "" {
		return false
	}

	out, err := m.docker(ctx, "inspect", "-f", "{{.State.Running}}", name)
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "true"
}

// Logs returns the container's captured stdout/stderr.
func (m *Manager) Logs(ctx context.Context) (string, error) {
	m.mu.Lock()
	name := m.containerName
	m.mu.Unlock()

	if name == "" {
		return "", fmt.Errorf("container: no server launched")
	}

	out, err := m.docker(ctx, "logs", name)
	if err != nil {
		return "", fmt.Errorf("container: failed to collect logs for %s: %w", name, err)
	}
	return out, nil
}

// Stop removes the launched container. Idempotent.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.containerName == "" {
		return nil
	}

	err := m.remove(ctx, m.containerName)
	m.containerName = ""
	return err
}

func (m *Manager) remove(ctx context.Context, name string) error {
	if out, err := m.docker(ctx, "rm", "-f", name); err != nil {
		return fmt.Errorf("container: failed to remove %s: %w (%s)", name, err, strings.TrimSpace(out))
	}
	logging.Debug("Container", "Removed container %s", name)
	return nil
}

// docker runs one docker CLI invocation with combined output captured.
func (m *Manager) docker(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}
