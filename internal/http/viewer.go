package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-excalidraw/internal/adapters/notebook"
	"github.com/goliatone/go-excalidraw/internal/cachebust"
	"github.com/goliatone/go-excalidraw/internal/dom"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/internal/markdown"
	"github.com/goliatone/go-excalidraw/internal/render"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// NoteSource resolves notes and tracks the one being viewed.
type NoteSource interface {
	interfaces.DocumentReader
	Select(ctx context.Context, id string) error
}

// NoteRenderer turns a note into HTML.
type NoteRenderer interface {
	RenderNote(ctx context.Context, source []byte) ([]byte, markdown.Source, error)
}

// Inserter creates a diagram and inserts its reference into the current
// note, returning the new SVG id.
type Inserter func(ctx context.Context) (string, error)

// noteLister is implemented by sources that can enumerate notes.
type noteLister interface {
	List(ctx context.Context) ([]notebook.Entry, error)
}

// ViewerAPI serves rendered notes, their attachments and the bridge.
type ViewerAPI struct {
	basePath  string
	notes     NoteSource
	renderer  NoteRenderer
	store     interfaces.AttachmentStore
	tracker   *cachebust.Tracker
	sender    interfaces.MessageSender
	channelID string
	available func() bool
	socket    http.Handler
	insert    Inserter
	editorDir string
	logger    interfaces.Logger
}

// ViewerOption mutates the ViewerAPI configuration.
type ViewerOption func(*ViewerAPI)

// NewViewerAPI constructs a ViewerAPI instance.
func NewViewerAPI(opts ...ViewerOption) *ViewerAPI {
	api := &ViewerAPI{
		basePath:  "/",
		channelID: "excalidraw-script",
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	if api.tracker == nil {
		api.tracker = cachebust.NewTracker()
	}
	return api
}

// WithBasePath overrides the mount path (defaults to "/").
func WithBasePath(path string) ViewerOption {
	return func(api *ViewerAPI) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			api.basePath = trimmed
		}
	}
}

// WithNotes wires the note source and renderer.
func WithNotes(notes NoteSource, renderer NoteRenderer) ViewerOption {
	return func(api *ViewerAPI) {
		api.notes = notes
		api.renderer = renderer
	}
}

// WithAttachmentStore wires the attachment store.
func WithAttachmentStore(store interfaces.AttachmentStore) ViewerOption {
	return func(api *ViewerAPI) {
		api.store = store
	}
}

// WithTracker shares the cache-breaker tracker with the render pipeline.
func WithTracker(tracker *cachebust.Tracker) ViewerOption {
	return func(api *ViewerAPI) {
		api.tracker = tracker
	}
}

// WithBridge wires the message sender used by /bridge/messages. available
// reports whether views get edit affordances; nil means always.
func WithBridge(sender interfaces.MessageSender, channelID string, available func() bool) ViewerOption {
	return func(api *ViewerAPI) {
		api.sender = sender
		if trimmed := strings.TrimSpace(channelID); trimmed != "" {
			api.channelID = trimmed
		}
		api.available = available
	}
}

// WithWebsocket mounts handler at /bridge.
func WithWebsocket(handler http.Handler) ViewerOption {
	return func(api *ViewerAPI) {
		api.socket = handler
	}
}

// WithInserter mounts POST /notes/{id}/diagrams and gives rendered notes an
// insert button while the bridge is available.
func WithInserter(fn Inserter) ViewerOption {
	return func(api *ViewerAPI) {
		api.insert = fn
	}
}

// WithEditorDir serves a local Excalidraw build under /assets/local-excalidraw.
func WithEditorDir(dir string) ViewerOption {
	return func(api *ViewerAPI) {
		api.editorDir = strings.TrimSpace(dir)
	}
}

// WithLogger sets the request logger.
func WithLogger(logger interfaces.Logger) ViewerOption {
	return func(api *ViewerAPI) {
		if logger != nil {
			api.logger = logger
		}
	}
}

// Router builds a chi router with the viewer endpoints mounted.
func (api *ViewerAPI) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(api.logRequests)
	_ = api.Register(r)
	return r
}

// Register attaches the viewer endpoints to r.
func (api *ViewerAPI) Register(r chi.Router) error {
	if r == nil {
		return fmt.Errorf("http: router is required")
	}
	if api == nil {
		return fmt.Errorf("http: viewer api is nil")
	}

	base := joinPath(api.basePath, "")
	route := func(suffix string) string { return joinPath(base, suffix) }

	if api.notes != nil && api.renderer != nil {
		r.Get(route("notes"), api.handleListNotes)
		r.Get(route("notes/{id}"), api.handleNote)
		if api.insert != nil {
			r.Post(route("notes/{id}/diagrams"), api.handleInsert)
		}
	}
	if api.store != nil {
		r.Get(route("resources/{file}"), api.handleResource)
	}

	assets := route("assets/excalidraw")
	r.Handle(assets+"/*", http.StripPrefix(assets+"/", http.FileServer(http.FS(render.Assets()))))

	if api.editorDir != "" {
		local := route("assets/local-excalidraw")
		r.Handle(local+"/*", http.StripPrefix(local+"/", http.FileServer(http.Dir(api.editorDir))))
	}

	if api.socket != nil {
		r.Handle(route("bridge"), api.socket)
	}
	if api.sender != nil {
		r.Post(route("bridge/messages"), api.handleBridgeMessage)
	}
	return nil
}

func (api *ViewerAPI) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.ContextWithFields(r.Context(), map[string]any{"request_id": id}))
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		api.logger.Debug("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (api *ViewerAPI) bridgeAvailable() bool {
	if api.sender == nil {
		return false
	}
	if api.available == nil {
		return true
	}
	return api.available()
}

func (api *ViewerAPI) handleListNotes(w http.ResponseWriter, r *http.Request) {
	lister, ok := api.notes.(noteLister)
	if !ok {
		writeJSON(w, http.StatusOK, []notebook.Entry{})
		return
	}
	entries, err := lister.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (api *ViewerAPI) handleNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	doc, err := api.notes.Document(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := api.notes.Select(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	body, _, err := api.renderer.RenderNote(ctx, []byte(doc.Body))
	if err != nil {
		writeError(w, err)
		return
	}

	available := api.bridgeAvailable()
	data := pageData{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Body:       template.HTML(body),
		Assets:     joinPath(api.basePath, "assets/excalidraw"),
		Bridge:     api.bridgePath(),
		Messages:   api.messagesPath(),
		CacheParam: api.tracker.Param(),
	}
	if available && api.insert != nil {
		data.Insert = joinPath(api.basePath, "notes/"+url.PathEscape(id)+"/diagrams")
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		writeError(w, err)
		return
	}

	page, err := dom.Parse(&buf, api.tracker, dom.WithBridge(available), dom.WithLogger(api.logger))
	if err != nil {
		writeError(w, err)
		return
	}
	count := page.LoadImages()
	out, err := page.HTML()
	if err != nil {
		writeError(w, err)
		return
	}
	api.logger.Debug("http.note.rendered", "document_id", id, "diagrams", count, "bridge", available)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<!DOCTYPE html>\n" + out))
}

func (api *ViewerAPI) bridgePath() string {
	if api.socket == nil {
		return ""
	}
	return joinPath(api.basePath, "bridge")
}

func (api *ViewerAPI) messagesPath() string {
	if api.sender == nil {
		return ""
	}
	return joinPath(api.basePath, "bridge/messages")
}

type insertResponse struct {
	SVGID string `json:"svg_id"`
}

// handleInsert selects the note first. The editor inserts into the current
// note.
func (api *ViewerAPI) handleInsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := api.notes.Document(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	if err := api.notes.Select(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	svgID, err := api.insert(ctx)
	if err != nil {
		logging.FromContext(ctx, api.logger).Warn("http.note.insert_failed", "document_id", id, "error", err)
		writeError(w, err)
		return
	}
	logging.FromContext(ctx, api.logger).Info("http.note.inserted", "document_id", id, "svg_id", svgID)
	writeJSON(w, http.StatusCreated, insertResponse{SVGID: svgID})
}

func (api *ViewerAPI) handleResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	file := chi.URLParam(r, "file")
	id := strings.TrimSuffix(file, path.Ext(file))

	meta, err := api.store.Metadata(ctx, id, "mime", "updated_time")
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := api.store.Bytes(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := meta.MimeType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if !meta.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", meta.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type bridgeRequest struct {
	Message string `json:"message"`
}

type bridgeResponse struct {
	Reply *string `json:"reply"`
}

func (api *ViewerAPI) handleBridgeMessage(w http.ResponseWriter, r *http.Request) {
	var req bridgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "message is required"})
		return
	}

	reply, err := api.sender.Send(r.Context(), api.channelID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := bridgeResponse{}
	if reply != "" {
		resp.Reply = &reply
	}
	writeJSON(w, http.StatusOK, resp)
}

type pageData struct {
	DocumentID string
	Title      string
	Body       template.HTML
	Assets     string
	Bridge     string
	Messages   string
	Insert     string
	CacheParam string
}

var pageTemplate = template.Must(template.New("note").Parse(`<html data-excalidraw-document="{{.DocumentID}}" data-excalidraw-cache-param="{{.CacheParam}}"{{if .Bridge}} data-excalidraw-bridge="{{.Bridge}}"{{end}}{{if .Messages}} data-excalidraw-messages="{{.Messages}}"{{end}}>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.Assets}}/excalidraw.css">
</head>
<body>
{{if .Insert}}<nav class="excalidraw--toolbar"><button type="button" class="excalidraw--insertButton" data-excalidraw-insert="{{.Insert}}">Insert diagram</button></nav>
{{end}}<main class="note">{{.Body}}</main>
<script src="{{.Assets}}/controller.js"></script>
</body>
</html>`))
