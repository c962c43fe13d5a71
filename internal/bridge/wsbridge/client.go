package wsbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-excalidraw/internal/bridge"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// Client is the view side of the websocket bridge, used as a direct
// primitive by headless callers.
type Client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	logger  interfaces.Logger
	dialogs interfaces.DialogHost
	changed func(string)
	rewrote func(string)

	mu      sync.Mutex
	pending map[string]chan Frame
	done    chan struct{}
	err     error
}

var _ interfaces.MessageSender = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialogHost answers dialog frames. Without one every dialog is closed.
func WithDialogHost(host interfaces.DialogHost) ClientOption {
	return func(c *Client) {
		c.dialogs = host
	}
}

// OnResourceChanged registers a callback for change notifications.
func OnResourceChanged(fn func(resourceID string)) ClientOption {
	return func(c *Client) {
		c.changed = fn
	}
}

// OnDocumentChanged registers a callback for rewritten documents.
func OnDocumentChanged(fn func(documentID string)) ClientOption {
	return func(c *Client) {
		c.rewrote = fn
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger interfaces.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Dial connects to a Server.
func Dial(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsbridge: dial %s: %w", url, err)
	}
	c := &Client{
		ws:      ws,
		logger:  logging.NoOp(),
		pending: map[string]chan Frame{},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) write(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(f)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		switch f.Type {
		case FrameReply:
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			delete(c.pending, f.ID)
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		case FrameDialog:
			go c.answerDialog(f)
		case FrameResourceChanged:
			if c.changed != nil {
				c.changed(f.ResourceID)
			}
		case FrameDocumentChanged:
			if c.rewrote != nil {
				c.rewrote(f.DocumentID)
			}
		}
	}
}

func (c *Client) answerDialog(f Frame) {
	result := interfaces.DialogResult{ButtonID: "cancel"}
	if c.dialogs != nil && f.Dialog != nil {
		res, err := c.dialogs.Open(context.Background(), *f.Dialog)
		if err != nil {
			c.logger.Warn("wsbridge.dialog.failed", "error", err)
		} else {
			result = res
		}
	}
	if err := c.write(Frame{Type: FrameDialogResult, ID: f.ID, Result: &result}); err != nil {
		c.logger.Warn("wsbridge.dialog_result.write_failed", "error", err)
	}
}

// Send posts message and waits for the reply. An empty reply is null.
func (c *Client) Send(ctx context.Context, channelID, message string) (string, error) {
	id := uuid.NewString()
	ch := make(chan Frame, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(Frame{Type: FrameMessage, ID: id, Channel: channelID, Message: message}); err != nil {
		return "", fmt.Errorf("%w: %v", bridge.ErrBridgeUnavailable, err)
	}

	select {
	case f := <-ch:
		if f.Error != "" {
			return "", errors.New(f.Error)
		}
		if f.Reply == nil {
			return "", nil
		}
		return *f.Reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", fmt.Errorf("%w: connection closed", bridge.ErrBridgeUnavailable)
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.ws.Close()
}
