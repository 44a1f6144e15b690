package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"craftcheck/pkg/logging"
)

// StatusOK is the status value the bridge reports for successful calls.
const StatusOK = "ok"

// Client issues JSON requests over HTTP to the companion bridge process that
// embeds the bot library. Every verb is a single request/response pair
// describing the effect requested on a named remote player. The client is
// stateless per call and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bridge client against the given base URL, e.g.
// "http://localhost:3100".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Connect asks the bridge to join a player to the game server. Connect is
// idempotent: if the bridge reports the player as already connected the call
// succeeds without erroring.
func (c *Client) Connect(ctx context.Context, player, host string, port int) error {
	payload := map[string]interface{}{"player": player}
	if host != "" {
		payload["host"] = host
	}
	if port > 0 {
		payload["port"] = port
	}

	resp, err := c.post(ctx, "/connect", payload)
	if err != nil {
		if strings.Contains(err.Error(), "already connected") {
			logging.Debug("Bridge", "Player %s already connected, treating connect as success", player)
			return nil
		}
		return err
	}

	return c.checkStatus("connect", player, resp)
}

// Disconnect removes the player from the game server.
func (c *Client) Disconnect(ctx context.Context, player string) error {
	resp, err := c.post(ctx, "/disconnect", map[string]interface{}{"player": player})
	if err != nil {
		return err
	}
	return c.checkStatus("disconnect", player, resp)
}

// Command executes a slash command as the player.
func (c *Client) Command(ctx context.Context, player, command string) (map[string]interface{}, error) {
	resp, err := c.post(ctx, "/command", map[string]interface{}{
		"player":  player,
		"command": command,
	})
	if err != nil {
		return nil, err
	}
	return resp, c.checkStatus("command", player, resp)
}

// Chat sends a chat message as the player.
func (c *Client) Chat(ctx context.Context, player, message string) error {
	resp, err := c.post(ctx, "/chat", map[string]interface{}{
		"player":  player,
		"message": message,
	})
	if err != nil {
		return err
	}
	return c.checkStatus("chat", player, resp)
}

// Move walks the player towards the given coordinates.
func (c *Client) Move(ctx context.Context, player string, x, y, z float64) error {
	resp, err := c.post(ctx, "/move", map[string]interface{}{
		"player": player,
		"x":      x,
		"y":      y,
		"z":      z,
	})
	if err != nil {
		return err
	}
	return c.checkStatus("move", player, resp)
}

// Equip equips the named item into the given slot ("hand", "head", ...).
func (c *Client) Equip(ctx context.Context, player, item, slot string) error {
	resp, err := c.post(ctx, "/equip", map[string]interface{}{
		"player": player,
		"item":   item,
		"slot":   slot,
	})
	if err != nil {
		return err
	}
	return c.checkStatus("equip", player, resp)
}

// Use activates the currently held item, optionally against a named target.
func (c *Client) Use(ctx context.Context, player, target string) error {
	payload := map[string]interface{}{"player": player}
	if target != "" {
		payload["target"] = target
	}
	resp, err := c.post(ctx, "/use", payload)
	if err != nil {
		return err
	}
	return c.checkStatus("use", player, resp)
}

// GetPosition returns the player's current coordinates.
func (c *Client) GetPosition(ctx context.Context, player string) (map[string]interface{}, error) {
	return c.post(ctx, "/position", map[string]interface{}{"player": player})
}

// GetHealth returns the player's health and food levels.
func (c *Client) GetHealth(ctx context.Context, player string) (map[string]interface{}, error) {
	return c.post(ctx, "/health", map[string]interface{}{"player": player})
}

// GetInventory returns the player's inventory contents.
func (c *Client) GetInventory(ctx context.Context, player string) (map[string]interface{}, error) {
	return c.post(ctx, "/inventory", map[string]interface{}{"player": player})
}

// GetEntities returns the entities visible to the player.
func (c *Client) GetEntities(ctx context.Context, player string) (map[string]interface{}, error) {
	return c.post(ctx, "/entities", map[string]interface{}{"player": player})
}

// Healthy reports whether the bridge process is reachable and answering. It
// never returns an error: any transport or protocol failure maps to false.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 400
}

// post performs one JSON request/response exchange. HTTP status >= 400 is
// surfaced as an error carrying the response body as diagnostic text. A body
// that fails structured decoding degrades to an empty map instead of
// propagating the parse failure.
func (c *Client) post(ctx context.Context, path string, payload map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("bridge: failed to encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bridge: failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bridge: failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bridge: %s returned HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	result := map[string]interface{}{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			// Best-effort partial parse: keep the raw text available
			// rather than failing the caller.
			logging.Debug("Bridge", "Unparseable response from %s: %v", path, err)
			result = map[string]interface{}{"raw": string(data)}
		}
	}

	return result, nil
}

// checkStatus turns a bridge-level error status into a Go error.
func (c *Client) checkStatus(verb, player string, resp map[string]interface{}) error {
	status, ok := resp["status"].(string)
	if !ok || status == StatusOK {
		return nil
	}

	msg, _ := resp["message"].(string)
	if verb == "connect" && strings.Contains(strings.ToLower(msg), "already connected") {
		return nil
	}
	if msg == "" {
		msg = fmt.Sprintf("status %q", status)
	}

	return fmt.Errorf("bridge: %s failed for player %s: %s", verb, player, msg)
}
