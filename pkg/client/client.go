// Package client implements a Go client for the chat namespace: it claims a
// username, sends messages and slash commands, and dispatches server frames
// to an EventHandler.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
	"github.com/segmentio/ksuid"

	cidpkg "chatroom/internal/cid"
	"chatroom/pkg/protocol"
)

// buildDialHeaders constructs the HTTP header map used for websocket.Dial.
// Extracted to allow unit testing of header propagation.
func buildDialHeaders(ctx context.Context, userAgent string) map[string][]string {
	headers := map[string][]string{"User-Agent": {userAgent}}
	cidpkg.AddHeaderFromContext(headers, ctx)
	return headers
}

// ChatClient represents a connected chat participant.
type ChatClient struct {
	conn         *websocket.Conn
	clientID     string
	config       Config
	connected    bool
	eventHandler EventHandler
}

// NewChatClient creates a new chat client.
func NewChatClient(config Config) *ChatClient {
	if config.UserAgent == "" {
		config.UserAgent = "chatroom-client/1.0.0"
	}

	return &ChatClient{
		clientID:     ksuid.New().String(),
		config:       config,
		eventHandler: &DefaultEventHandler{},
	}
}

// SetEventHandler sets a custom event handler.
func (c *ChatClient) SetEventHandler(handler EventHandler) {
	c.eventHandler = handler
}

// ClientID returns the client's locally generated ID.
func (c *ChatClient) ClientID() string {
	return c.clientID
}

// IsConnected returns whether the client is connected.
func (c *ChatClient) IsConnected() bool {
	return c.connected
}

// Connect establishes the WebSocket connection and claims the configured
// username. The first frame a chat connection sends is always the username
// claim; the server answers with either a welcome info frame or an error
// frame, both of which arrive through the event handler via Listen.
func (c *ChatClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.ServerURL, &websocket.DialOptions{
		HTTPHeader: buildDialHeaders(ctx, c.config.UserAgent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.eventHandler.OnConnected()

	if err := conn.Write(ctx, websocket.MessageText, []byte(c.config.Username)); err != nil {
		c.close()
		return fmt.Errorf("failed to claim username: %w", err)
	}
	return nil
}

// Send sends a chat message or slash command.
func (c *ChatClient) Send(ctx context.Context, text string) error {
	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.Write(ctx, websocket.MessageText, []byte(text))
}

// Whisper sends a private message to another user.
func (c *ChatClient) Whisper(ctx context.Context, to, text string) error {
	return c.Send(ctx, fmt.Sprintf("/t @%s %s", to, text))
}

// Listen reads server frames and dispatches them to the event handler until
// the connection drops or ctx is cancelled. It returns nil on a normal
// close.
func (c *ChatClient) Listen(ctx context.Context) error {
	defer func() {
		c.close()
		c.eventHandler.OnDisconnected()
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		c.handleFrame(data)
	}
}

// Disconnect closes the connection.
func (c *ChatClient) Disconnect() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.conn.Close(websocket.StatusNormalClosure, "client disconnect")
}

func (c *ChatClient) close() {
	if c.conn != nil && c.connected {
		c.connected = false
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (c *ChatClient) handleFrame(data []byte) {
	var frame struct {
		Type      string   `json:"type"`
		Text      string   `json:"text"`
		Timestamp string   `json:"timestamp"`
		From      string   `json:"from"`
		Users     []string `json:"users"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	switch frame.Type {
	case protocol.TypeMessage:
		c.eventHandler.OnMessage(frame.Text, frame.Timestamp)
	case protocol.TypePrivate:
		c.eventHandler.OnPrivate(frame.From, frame.Text)
	case protocol.TypeInfo:
		c.eventHandler.OnInfo(frame.Text)
	case protocol.TypeError:
		c.eventHandler.OnError(frame.Text)
	case protocol.TypeUserList:
		c.eventHandler.OnUserList(frame.Users)
	}
}
