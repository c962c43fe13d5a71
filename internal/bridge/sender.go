package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// Registry dispatches messages to handlers registered per channel. It is the
// in-process direct primitive.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]interfaces.MessageHandler
}

var (
	_ interfaces.MessageRegistrar = (*Registry)(nil)
	_ interfaces.MessageSender    = (*Registry)(nil)
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]interfaces.MessageHandler{}}
}

// OnMessage registers handler for channelID, replacing any previous one.
func (r *Registry) OnMessage(channelID string, handler interfaces.MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if handler == nil {
		delete(r.handlers, channelID)
		return
	}
	r.handlers[channelID] = handler
}

// Handler returns the handler for channelID.
func (r *Registry) Handler(channelID string) (interfaces.MessageHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[channelID]
	return h, ok
}

// Send invokes the channel handler.
func (r *Registry) Send(ctx context.Context, channelID, message string) (string, error) {
	handler, ok := r.Handler(channelID)
	if !ok {
		return "", fmt.Errorf("%w: no handler for channel %q", ErrBridgeUnavailable, channelID)
	}
	return handler(ctx, message)
}

var (
	globalMu       sync.Mutex
	globalRegistry *Registry
)

// PublishGlobal exposes r as the process-wide registry reached by the
// fallback path. Passing nil withdraws it.
func PublishGlobal(r *Registry) {
	globalMu.Lock()
	globalRegistry = r
	globalMu.Unlock()
}

func lookupGlobal() *Registry {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalRegistry
}

// Probe returns the sender to use for one call, or nil.
type Probe func() interfaces.MessageSender

// Static is a probe that always yields sender, or nothing when sender is nil.
func Static(sender interfaces.MessageSender) Probe {
	return func() interfaces.MessageSender {
		if sender == nil {
			return nil
		}
		return sender
	}
}

// GlobalFallback reaches the process-wide registry without injection.
// Unstable: the global may be withdrawn at any time; remove this path once
// every host provides a direct primitive.
func GlobalFallback() interfaces.MessageSender {
	if r := lookupGlobal(); r != nil {
		return r
	}
	return nil
}

// Client sends messages through whichever primitive the probes find at call
// time: the direct one first, then the fallback.
type Client struct {
	direct   Probe
	fallback Probe
	logger   interfaces.Logger
}

var _ interfaces.MessageSender = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDirect sets the direct primitive probe.
func WithDirect(probe Probe) ClientOption {
	return func(c *Client) {
		c.direct = probe
	}
}

// WithFallback sets the fallback probe.
func WithFallback(probe Probe) ClientOption {
	return func(c *Client) {
		c.fallback = probe
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

// NewClient builds a client. Without options nothing is reachable.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Available reports whether the direct primitive is reachable. Views hide
// their edit affordance when it is not.
func (c *Client) Available() bool {
	return c.direct != nil && c.direct() != nil
}

func (c *Client) resolve() interfaces.MessageSender {
	if c.direct != nil {
		if s := c.direct(); s != nil {
			return s
		}
	}
	if c.fallback != nil {
		if s := c.fallback(); s != nil {
			c.logger.Debug("bridge.fallback.used")
			return s
		}
	}
	return nil
}

// Send delivers message and returns the single reply.
func (c *Client) Send(ctx context.Context, channelID, message string) (string, error) {
	sender := c.resolve()
	if sender == nil {
		c.logger.Warn("bridge.send.unavailable", "channel", channelID, "message", message)
		return "", ErrBridgeUnavailable
	}
	reply, err := sender.Send(ctx, channelID, message)
	if err != nil {
		c.logger.Error("bridge.send.failed", "channel", channelID, "message", message, "error", err)
		return "", err
	}
	return reply, nil
}
