package rcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"craftcheck/pkg/logging"
)

var (
	// ErrNotConnected is returned when a command is executed before Connect.
	ErrNotConnected = errors.New("rcon: not connected")
	// ErrNotAuthenticated is returned when a command is executed before a
	// successful authentication handshake.
	ErrNotAuthenticated = errors.New("rcon: not authenticated")
	// ErrAuthFailed is returned when the server rejects the shared secret.
	ErrAuthFailed = errors.New("rcon: authentication rejected by server")
)

// NoResponse is the sentinel result for commands the server acknowledged
// without a body. Fire-and-forget commands are not failures.
const NoResponse = "(no response)"

// defaultTimeout bounds individual reads and writes on the connection so a
// stalled server cannot block a scenario forever.
const defaultTimeout = 10 * time.Second

// Client is a console-protocol client over a single persistent TCP stream.
// One request/response is in flight at a time; concurrent callers must
// serialize externally or rely on the internal mutex taking care of it.
type Client struct {
	addr     string
	password string
	timeout  time.Duration

	mu            sync.Mutex
	conn          net.Conn
	requestID     int32
	authenticated bool
}

// NewClient creates a client for the console protocol at host:port. The
// client is unconnected until Connect is called.
func NewClient(host string, port int, password string) *Client {
	return &Client{
		addr:     net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		password: password,
		timeout:  defaultTimeout,
	}
}

// SetTimeout overrides the per-operation read/write deadline.
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Connect establishes the stream connection and performs the one-shot
// authentication handshake. A response carrying the designated failure id
// (-1) means the secret was rejected; any other id counts as success. This
// deliberately reproduces the deployed protocol's permissive check rather
// than requiring the id to match the auth request.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("rcon: failed to dial %s: %w", c.addr, err)
	}

	authID := c.nextRequestID()
	auth := &Packet{ID: authID, Type: TypeAuth, Body: c.password}

	conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := WritePacket(conn, auth); err != nil {
		conn.Close()
		return fmt.Errorf("rcon: failed to send auth request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.timeout))
	resp, err := ReadPacket(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("rcon: no auth response within timeout: %w", err)
	}

	if resp.ID == AuthFailureID {
		conn.Close()
		return ErrAuthFailed
	}

	c.conn = conn
	c.authenticated = true
	logging.Debug("RCON", "Authenticated to %s (auth id %d, response id %d)", c.addr, authID, resp.ID)

	return nil
}

// Authenticated reports whether the handshake completed successfully.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// ExecuteCommand performs one blocking round trip: send a command request,
// read exactly one response, return its body. Socket errors surface as a
// failed command with an empty result; the client stays connected and only
// Connect failures are fatal to the session.
func (c *Client) ExecuteCommand(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return "", ErrNotConnected
	}
	if !c.authenticated {
		return "", ErrNotAuthenticated
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	req := &Packet{ID: c.nextRequestID(), Type: TypeCommand, Body: command}

	c.conn.SetWriteDeadline(deadline)
	if err := WritePacket(c.conn, req); err != nil {
		logging.Warn("RCON", "Command send failed, connection retained: %v", err)
		return "", fmt.Errorf("rcon: failed to send command: %w", err)
	}

	c.conn.SetReadDeadline(deadline)
	resp, err := ReadPacket(c.conn)
	if err != nil {
		logging.Warn("RCON", "Command response read failed, connection retained: %v", err)
		return "", fmt.Errorf("rcon: failed to read command response: %w", err)
	}

	if resp.Body == "" {
		return NoResponse, nil
	}

	return resp.Body, nil
}

// Close tears down the connection. It is idempotent and safe to call on a
// partially-initialized client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authenticated = false
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// nextRequestID returns a monotonically increasing id, never reused within a
// connection's lifetime. Caller must hold c.mu.
func (c *Client) nextRequestID() int32 {
	c.requestID++
	return c.requestID
}
