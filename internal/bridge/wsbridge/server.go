package wsbridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-excalidraw/internal/bridge"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

const writeWait = 10 * time.Second

// Server upgrades view connections, routes their messages to the host and
// shows editor dialogs on them. It implements interfaces.DialogHost.
type Server struct {
	upgrader websocket.Upgrader
	sender   interfaces.MessageSender
	logger   interfaces.Logger

	mu    sync.Mutex
	conns map[*serverConn]struct{}
	last  *serverConn
}

var (
	_ http.Handler          = (*Server)(nil)
	_ interfaces.DialogHost = (*Server)(nil)
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger interfaces.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCheckOrigin overrides the upgrader's origin check.
func WithCheckOrigin(fn func(*http.Request) bool) ServerOption {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// NewServer routes incoming messages to sender, usually a bridge.Registry.
func NewServer(sender interfaces.MessageSender, opts ...ServerOption) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{ReadBufferSize: 64 * 1024, WriteBufferSize: 64 * 1024},
		sender:   sender,
		logger:   logging.NoOp(),
		conns:    map[*serverConn]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type serverConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	dialogs map[string]chan interfaces.DialogResult
}

func (c *serverConn) write(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(f)
}

type connKey struct{}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("wsbridge.upgrade.failed", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &serverConn{ws: ws, ctx: ctx, cancel: cancel, dialogs: map[string]chan interfaces.DialogResult{}}
	s.track(c, true)
	defer func() {
		s.track(c, false)
		cancel()
		ws.Close()
	}()
	s.logger.Debug("wsbridge.conn.opened", "remote", r.RemoteAddr)

	for {
		var f Frame
		if err := ws.ReadJSON(&f); err != nil {
			s.logger.Debug("wsbridge.conn.closed", "error", err)
			return
		}
		switch f.Type {
		case FrameMessage:
			go s.handleMessage(c, f)
		case FrameDialogResult:
			c.mu.Lock()
			ch, ok := c.dialogs[f.ID]
			delete(c.dialogs, f.ID)
			c.mu.Unlock()
			if ok && f.Result != nil {
				ch <- *f.Result
			}
		default:
			s.logger.Warn("wsbridge.frame.unknown", "type", f.Type)
		}
	}
}

func (s *Server) track(c *serverConn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
		s.last = c
		return
	}
	delete(s.conns, c)
	if s.last == c {
		s.last = nil
		for other := range s.conns {
			s.last = other
			break
		}
	}
}

func (s *Server) handleMessage(c *serverConn, f Frame) {
	ctx := context.WithValue(c.ctx, connKey{}, c)
	reply, err := s.sender.Send(ctx, f.Channel, f.Message)
	if werr := c.write(replyFrame(f.ID, reply, err)); werr != nil {
		s.logger.Warn("wsbridge.reply.write_failed", "error", werr)
	}
}

// Open shows req on the connection that sent the current message, or the
// most recent one, and waits for the user.
func (s *Server) Open(ctx context.Context, req interfaces.DialogRequest) (interfaces.DialogResult, error) {
	c, _ := ctx.Value(connKey{}).(*serverConn)
	if c == nil {
		s.mu.Lock()
		c = s.last
		s.mu.Unlock()
	}
	if c == nil {
		return interfaces.DialogResult{}, fmt.Errorf("%w: no connected view", bridge.ErrBridgeUnavailable)
	}

	id := uuid.NewString()
	ch := make(chan interfaces.DialogResult, 1)
	c.mu.Lock()
	c.dialogs[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.dialogs, id)
		c.mu.Unlock()
	}()

	if err := c.write(Frame{Type: FrameDialog, ID: id, Dialog: &req}); err != nil {
		return interfaces.DialogResult{}, fmt.Errorf("wsbridge: send dialog: %w", err)
	}

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return interfaces.DialogResult{}, ctx.Err()
	case <-c.ctx.Done():
		return interfaces.DialogResult{}, fmt.Errorf("%w: view disconnected", bridge.ErrBridgeUnavailable)
	}
}

// NotifyResourceChanged tells every view to refresh images of resourceID.
func (s *Server) NotifyResourceChanged(resourceID string) {
	if resourceID == "" {
		return
	}
	s.broadcast(Frame{Type: FrameResourceChanged, ResourceID: resourceID})
}

// NotifyDocumentChanged tells every view that the body of documentID was
// rewritten, so views showing it re-render.
func (s *Server) NotifyDocumentChanged(documentID string) {
	if documentID == "" {
		return
	}
	s.broadcast(Frame{Type: FrameDocumentChanged, DocumentID: documentID})
}

func (s *Server) broadcast(f Frame) {
	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.write(f); err != nil {
			s.logger.Debug("wsbridge.notify.write_failed", "type", f.Type, "error", err)
		}
	}
}

// Connections returns the number of open views.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
