package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-excalidraw/internal/editor"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// Migrator copies a v1 diagram into a new pair.
type Migrator interface {
	MigrateV1ToV2(ctx context.Context, v1JSONID string) (string, error)
}

// DiagramEditor opens the editor for an existing diagram.
type DiagramEditor interface {
	Open(ctx context.Context, svgID string) (string, error)
}

// References describes the markdown forms rewritten by a conversion.
type References struct {
	V1Sentinel string
	V2Sentinel string
	V1Scheme   string
}

// V1 returns the markdown reference of a v1 diagram.
func (r References) V1(jsonID string) string {
	return "![" + r.V1Sentinel + "](" + r.V1Scheme + "://" + jsonID + ")"
}

// V2 returns the markdown reference of a v2 diagram.
func (r References) V2(svgID string) string {
	return "![" + r.V2Sentinel + "](:/" + svgID + ")"
}

// DefaultReferences matches runtimeconfig.DefaultConfig.
var DefaultReferences = References{V1Sentinel: "excalidraw", V2Sentinel: "excalidraw.svg", V1Scheme: "excalidraw"}

// Host answers bridge messages.
type Host struct {
	codec     Migrator
	documents interfaces.DocumentStore
	editor    DiagramEditor
	refs      References
	logger    interfaces.Logger
	migration func() bool
	onChange  []func(resourceID string)
	onRewrite []func(documentID string)

	routesMu sync.RWMutex
	routes   map[MessageKind]Action
}

// Action executes one message kind for a resource id and returns the reply.
type Action func(ctx context.Context, resourceID string) (string, error)

// HostOption configures a Host.
type HostOption func(*Host)

// WithReferences overrides DefaultReferences.
func WithReferences(refs References) HostOption {
	return func(h *Host) {
		h.refs = refs
	}
}

// WithHostLogger sets the host logger.
func WithHostLogger(logger interfaces.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithChangeListener is called with the replied resource id after every
// successful request.
func WithChangeListener(fn func(resourceID string)) HostOption {
	return func(h *Host) {
		if fn != nil {
			h.onChange = append(h.onChange, fn)
		}
	}
}

// WithMigration gates conversions. While enabled reports false every convert
// request fails with ErrMigrationDisabled.
func WithMigration(enabled func() bool) HostOption {
	return func(h *Host) {
		h.migration = enabled
	}
}

// WithDocumentListener is called with the id of every document a conversion
// rewrote.
func WithDocumentListener(fn func(documentID string)) HostOption {
	return func(h *Host) {
		if fn != nil {
			h.onRewrite = append(h.onRewrite, fn)
		}
	}
}

// NewHost wires the host to its collaborators.
func NewHost(codec Migrator, documents interfaces.DocumentStore, ed DiagramEditor, opts ...HostOption) *Host {
	h := &Host{
		codec:     codec,
		documents: documents,
		editor:    ed,
		refs:      DefaultReferences,
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Route replaces the action behind kind, for example to run conversions
// through a command dispatcher. A nil action restores the default.
func (h *Host) Route(kind MessageKind, action Action) {
	h.routesMu.Lock()
	defer h.routesMu.Unlock()
	if action == nil {
		delete(h.routes, kind)
		return
	}
	if h.routes == nil {
		h.routes = map[MessageKind]Action{}
	}
	h.routes[kind] = action
}

func (h *Host) action(kind MessageKind) Action {
	h.routesMu.RLock()
	defer h.routesMu.RUnlock()
	if action, ok := h.routes[kind]; ok {
		return action
	}
	switch kind {
	case MessageConvert:
		return h.Convert
	case MessageEdit:
		return h.Edit
	default:
		return nil
	}
}

// Register installs HandleMessage on channelID.
func (h *Host) Register(reg interfaces.MessageRegistrar, channelID string) {
	reg.OnMessage(channelID, h.HandleMessage)
}

// HandleMessage is the channel handler. Every failure is logged and answered
// with an empty (null) reply.
func (h *Host) HandleMessage(ctx context.Context, message string) (string, error) {
	reply, err := h.Dispatch(ctx, message)
	if err != nil {
		logging.FromContext(ctx, h.logger).Error("bridge.message.failed", "message", message, "error", err)
		return "", nil
	}
	return reply, nil
}

// Dispatch parses and executes one message.
func (h *Host) Dispatch(ctx context.Context, message string) (string, error) {
	msg, err := ParseMessage(message)
	if err != nil {
		return "", err
	}

	ctx = logging.ContextWithFields(ctx, map[string]any{"bridge_kind": msg.Kind.String(), "resource_id": msg.ResourceID})

	if msg.Kind == MessageConvert && !h.migrationEnabled() {
		return "", fmt.Errorf("%w: %s", ErrMigrationDisabled, msg.ResourceID)
	}
	action := h.action(msg.Kind)
	if action == nil {
		return "", fmt.Errorf("%w: unsupported kind %s", ErrMalformedMessage, msg.Kind)
	}
	reply, err := action(ctx, msg.ResourceID)
	if err != nil {
		return "", err
	}
	for _, fn := range h.onChange {
		fn(reply)
	}
	return reply, nil
}

// Convert migrates a v1 diagram and rewrites every reference to it in the
// current document. The new SVG id is returned even when the document could
// not be rewritten, since the pair already exists. It fails with
// ErrMigrationDisabled while migration is off.
func (h *Host) Convert(ctx context.Context, jsonID string) (string, error) {
	if !h.migrationEnabled() {
		return "", fmt.Errorf("%w: %s", ErrMigrationDisabled, jsonID)
	}
	logger := logging.WithResourceContext(logging.FromContext(ctx, h.logger), jsonID, "", "convert")

	svgID, err := h.codec.MigrateV1ToV2(ctx, jsonID)
	if err != nil {
		return "", err
	}

	doc, err := h.documents.CurrentDocument(ctx)
	if err != nil {
		logger.Warn("bridge.convert.document_unavailable", "svg_id", svgID, "error", err)
		return svgID, nil
	}

	from, to := h.refs.V1(jsonID), h.refs.V2(svgID)
	count := strings.Count(doc.Body, from)
	if count == 0 {
		logger.Warn("bridge.convert.reference_missing", "document_id", doc.ID, "svg_id", svgID)
		return svgID, nil
	}
	if err := h.documents.ReplaceDocumentBody(ctx, doc.ID, strings.ReplaceAll(doc.Body, from, to)); err != nil {
		logger.Error("bridge.convert.document_write_failed", "document_id", doc.ID, "svg_id", svgID, "error", err)
		return svgID, nil
	}
	logger.Info("bridge.convert.completed", "document_id", doc.ID, "svg_id", svgID, "replaced", count)
	for _, fn := range h.onRewrite {
		fn(doc.ID)
	}
	return svgID, nil
}

func (h *Host) migrationEnabled() bool {
	return h.migration == nil || h.migration()
}

// Edit opens the editor for svgID. Closing the dialog without saving still
// replies with svgID.
func (h *Host) Edit(ctx context.Context, svgID string) (string, error) {
	id, err := h.editor.Open(ctx, svgID)
	if errors.Is(err, editor.ErrDialogClosed) {
		return svgID, nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
