package excalidraw

import (
	"context"
	"net/http"

	"github.com/goliatone/go-excalidraw/internal/di"
	"github.com/goliatone/go-excalidraw/internal/editor"
	httpapi "github.com/goliatone/go-excalidraw/internal/http"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/internal/resources"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// CodecService exports the resource codec contract.
type CodecService = resources.Service

// EditorService exports the editor host contract.
type EditorService = editor.Service

// ErrDialogClosed is returned when the editor is dismissed without saving.
var ErrDialogClosed = editor.ErrDialogClosed

// Module represents the top level diagram runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Codec returns the resource codec.
func (m *Module) Codec() CodecService {
	return m.container.Codec()
}

// Editor returns the editor host.
func (m *Module) Editor() EditorService {
	return m.container.Editor()
}

// Bridge returns the sender views use to reach the host.
func (m *Module) Bridge() interfaces.MessageSender {
	return m.container.BridgeClient()
}

// HandleMessage answers one bridge message the way the channel handler does.
// An empty reply is the null reply.
func (m *Module) HandleMessage(ctx context.Context, message string) (string, error) {
	return m.container.BridgeHost().HandleMessage(ctx, message)
}

// RenderMarkdown renders a note body with diagram affordances.
func (m *Module) RenderMarkdown(ctx context.Context, source []byte) ([]byte, error) {
	html, _, err := m.container.MarkdownParser().RenderNote(ctx, source)
	return html, err
}

// InsertDiagram opens the editor for a new diagram and inserts its
// reference into the current note.
func (m *Module) InsertDiagram(ctx context.Context) (string, error) {
	return m.container.Editor().Insert(ctx)
}

// EditDiagram opens the editor for an existing diagram.
func (m *Module) EditDiagram(ctx context.Context, svgID string) (string, error) {
	return m.container.Editor().Open(ctx, svgID)
}

// ConvertDiagram migrates a v1 diagram and rewrites the current note.
func (m *Module) ConvertDiagram(ctx context.Context, jsonID string) (string, error) {
	return m.container.BridgeHost().Convert(ctx, jsonID)
}

type handlerConfig struct {
	insert func(ctx context.Context) (string, error)
}

// HandlerOption configures Handler.
type HandlerOption func(*handlerConfig)

// WithDiagramInserter replaces the insert action behind the note toolbar,
// for example with commands.DispatchInsert. Defaults to InsertDiagram.
func WithDiagramInserter(fn func(ctx context.Context) (string, error)) HandlerOption {
	return func(hc *handlerConfig) {
		if fn != nil {
			hc.insert = fn
		}
	}
}

// Handler returns the HTTP surface: rendered notes, attachments, assets and
// the websocket bridge.
func (m *Module) Handler(opts ...HandlerOption) http.Handler {
	c := m.container
	cfg := c.Config

	hc := handlerConfig{insert: m.InsertDiagram}
	for _, opt := range opts {
		if opt != nil {
			opt(&hc)
		}
	}

	viewerOpts := []httpapi.ViewerOption{
		httpapi.WithNotes(c.Notes(), c.MarkdownParser()),
		httpapi.WithAttachmentStore(c.AttachmentStore()),
		httpapi.WithTracker(c.Tracker()),
		httpapi.WithBridge(c.BridgeClient(), cfg.Bridge.ChannelID, c.BridgeClient().Available),
		httpapi.WithInserter(hc.insert),
		httpapi.WithEditorDir(cfg.Editor.Dir),
		httpapi.WithLogger(logging.HTTPLogger(c.LoggerProvider())),
	}
	if cfg.Features.Websocket {
		viewerOpts = append(viewerOpts, httpapi.WithWebsocket(c.WebsocketServer()))
	}
	return httpapi.NewViewerAPI(viewerOpts...).Router()
}

// Watch forwards attachment changes to connected views.
func (m *Module) Watch(ctx context.Context) error {
	return m.container.Watch(ctx)
}

// Close releases the runtime.
func (m *Module) Close() error {
	return m.container.Close()
}
