package headless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"craftcheck/pkg/logging"
)

// Client joins a game server as a headless player: an HTTP join handshake
// followed by a JSON-over-websocket session. The server broadcasts world
// state messages; the client keeps only the most recent one.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	conn      *websocket.Conn
	playerID  string
	lastState map[string]interface{}
	done      chan struct{}
}

// joinResponse is the body returned by the server's join endpoint.
type joinResponse struct {
	ID string `json:"id"`
}

// NewClient creates a headless client for the game server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Join registers a player with the server and opens the websocket session.
func (c *Client) Join(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/join", nil)
	if err != nil {
		return fmt.Errorf("headless: failed to build join request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("headless: join request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("headless: join returned HTTP %d", resp.StatusCode)
	}

	var join joinResponse
	if err := json.NewDecoder(resp.Body).Decode(&join); err != nil {
		return fmt.Errorf("headless: failed to decode join response: %w", err)
	}

	wsURL := "ws" + c.baseURL[len("http"):] + "/ws?id=" + join.ID
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("headless: websocket dial failed: %w", err)
	}

	c.conn = conn
	c.playerID = join.ID
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)

	logging.Debug("Headless", "Joined as player %s", join.ID)
	return nil
}

// PlayerID returns the server-assigned player id, empty before Join.
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// readLoop consumes state broadcasts until the connection closes.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		c.mu.Lock()
		c.lastState = msg
		c.mu.Unlock()
	}
}

// Send issues a command message of the given type with extra fields.
func (c *Client) Send(msgType string, fields map[string]interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("headless: not joined")
	}

	msg := map[string]interface{}{"type": msgType}
	for k, v := range fields {
		msg[k] = v
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("headless: failed to send %s: %w", msgType, err)
	}
	return nil
}

// LastState returns the most recent world-state broadcast, or nil if none
// has arrived yet.
func (c *Client) LastState() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastState
}

// Close leaves the server. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := conn.Close()

	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}

	return err
}
