package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-excalidraw/internal/adapters/attachments"
	"github.com/goliatone/go-excalidraw/internal/adapters/notebook"
	"github.com/goliatone/go-excalidraw/internal/bridge"
	"github.com/goliatone/go-excalidraw/internal/cachebust"
	"github.com/goliatone/go-excalidraw/internal/editor"
	"github.com/goliatone/go-excalidraw/internal/identity"
	"github.com/goliatone/go-excalidraw/internal/markdown"
	"github.com/goliatone/go-excalidraw/internal/render"
)

type viewerFixture struct {
	server   *httptest.Server
	registry *bridge.Registry
	notes    *notebook.Notebook
}

func setupViewer(t *testing.T, opts ...ViewerOption) viewerFixture {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	note := "# Sketch\n\n![excalidraw](excalidraw://abc123)\n\n![excalidraw.svg](:/x1)\n"
	if err := os.WriteFile(filepath.Join(dir, "sketch.md"), []byte(note), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
	nb, err := notebook.New(notebook.Config{Root: dir})
	if err != nil {
		t.Fatalf("notebook: %v", err)
	}

	store := attachments.NewMemoryStore()
	svgPath := filepath.Join(t.TempDir(), "x1.svg")
	if err := os.WriteFile(svgPath, []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), 0o600); err != nil {
		t.Fatalf("write svg: %v", err)
	}
	if _, err := store.Create(ctx, "x1", "excalidraw-j1.svg", svgPath); err != nil {
		t.Fatalf("seed svg: %v", err)
	}

	tracker := cachebust.NewTracker()
	parser := markdown.NewGoldmarkParser(markdown.ParseOptions{}, &render.Extension{
		Hook:     render.NewInterceptor(render.Options{}),
		Resolver: render.StoreResolver{Store: store, BaseURL: "/resources"},
	})

	registry := bridge.NewRegistry()
	base := []ViewerOption{
		WithNotes(nb, parser),
		WithAttachmentStore(store),
		WithTracker(tracker),
		WithBridge(registry, "excalidraw-script", nil),
	}
	api := NewViewerAPI(append(base, opts...)...)

	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return viewerFixture{server: srv, registry: registry, notes: nb}
}

func get(t *testing.T, url string, status int) (string, http.Header) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != status {
		t.Fatalf("GET %s: expected status %d got %d: %s", url, status, resp.StatusCode, body)
	}
	return string(body), resp.Header
}

func TestViewerRendersNote(t *testing.T) {
	fx := setupViewer(t)

	body, header := get(t, fx.server.URL+"/notes/"+identity.DocumentID("sketch.md"), http.StatusOK)

	if !strings.HasPrefix(header.Get("Content-Type"), "text/html") {
		t.Fatalf("expected html content type, got %q", header.Get("Content-Type"))
	}
	for _, want := range []string{
		`data-excalidraw-action="convert"`,
		`data-excalidraw-target="abc123"`,
		`src="/resources/x1.svg?t=`,
		`data-resource-id="x1"`,
		`/assets/excalidraw/controller.js`,
		`class="excalidraw--editButton"`,
		`data-excalidraw-messages="/bridge/messages"`,
		`data-excalidraw-document="` + identity.DocumentID("sketch.md") + `"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in %s", want, body)
		}
	}
	if strings.Contains(body, "data-excalidraw-bridge") {
		t.Fatalf("expected no websocket endpoint without a socket handler, got %s", body)
	}
	if strings.Contains(body, "data-excalidraw-insert") {
		t.Fatalf("expected no insert button without an inserter, got %s", body)
	}

	doc, err := fx.notes.CurrentDocument(context.Background())
	if err != nil {
		t.Fatalf("expected viewed note to become current: %v", err)
	}
	if doc.ID != identity.DocumentID("sketch.md") {
		t.Fatalf("unexpected current note %q", doc.ID)
	}
}

func TestViewerDropsButtonsWithoutBridge(t *testing.T) {
	fx := setupViewer(t, WithBridge(bridge.NewRegistry(), "excalidraw-script", func() bool { return false }))

	body, _ := get(t, fx.server.URL+"/notes/"+identity.DocumentID("sketch.md"), http.StatusOK)
	if strings.Contains(body, "<button") {
		t.Fatalf("expected buttons removed when bridge is unavailable, got %s", body)
	}
	if !strings.Contains(body, `data-excalidraw-action="edit"`) {
		t.Fatalf("expected image markup to remain, got %s", body)
	}
}

func TestViewerUnknownNote(t *testing.T) {
	fx := setupViewer(t)
	get(t, fx.server.URL+"/notes/missing", http.StatusNotFound)
}

func TestViewerServesResources(t *testing.T) {
	fx := setupViewer(t)

	body, header := get(t, fx.server.URL+"/resources/x1.svg", http.StatusOK)
	if header.Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("expected svg content type, got %q", header.Get("Content-Type"))
	}
	if !strings.HasPrefix(body, "<svg") {
		t.Fatalf("unexpected body %q", body)
	}
	get(t, fx.server.URL+"/resources/nope.svg", http.StatusNotFound)
}

func TestViewerServesAssets(t *testing.T) {
	fx := setupViewer(t)

	body, _ := get(t, fx.server.URL+"/assets/excalidraw/controller.js", http.StatusOK)
	for _, want := range []string{
		"data-excalidraw-action",
		// views without a websocket post to /bridge/messages
		"data-excalidraw-messages",
		"document_changed",
		"data-excalidraw-insert",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in controller script", want)
		}
	}
}

func postMessage(t *testing.T, url, message string) bridgeResponse {
	t.Helper()
	payload, _ := json.Marshal(bridgeRequest{Message: message})
	resp, err := http.Post(url+"/bridge/messages", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out bridgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return out
}

func TestViewerBridgeMessages(t *testing.T) {
	fx := setupViewer(t)
	fx.registry.OnMessage("excalidraw-script", func(_ context.Context, message string) (string, error) {
		if message == bridge.ConvertMessage("abc123") {
			return "new-svg", nil
		}
		return "", nil
	})

	out := postMessage(t, fx.server.URL, bridge.ConvertMessage("abc123"))
	if out.Reply == nil || *out.Reply != "new-svg" {
		t.Fatalf("expected reply new-svg, got %+v", out)
	}

	out = postMessage(t, fx.server.URL, bridge.ConvertMessage("other"))
	if out.Reply != nil {
		t.Fatalf("expected null reply, got %q", *out.Reply)
	}
}

func TestViewerBridgeMessageRequiresBody(t *testing.T) {
	fx := setupViewer(t)

	resp, err := http.Post(fx.server.URL+"/bridge/messages", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func postInsert(t *testing.T, url string, status int) insertResponse {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("post insert: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != status {
		t.Fatalf("POST %s: expected status %d got %d: %s", url, status, resp.StatusCode, body)
	}
	var out insertResponse
	_ = json.Unmarshal(body, &out)
	return out
}

func TestViewerInsertsIntoSelectedNote(t *testing.T) {
	var fx viewerFixture
	var insertedInto []string
	fx = setupViewer(t, WithInserter(func(ctx context.Context) (string, error) {
		doc, err := fx.notes.CurrentDocument(ctx)
		if err != nil {
			return "", err
		}
		insertedInto = append(insertedInto, doc.ID)
		return "svg42", nil
	}))
	noteID := identity.DocumentID("sketch.md")

	body, _ := get(t, fx.server.URL+"/notes/"+noteID, http.StatusOK)
	insertURL := "/notes/" + noteID + "/diagrams"
	if !strings.Contains(body, `data-excalidraw-insert="`+insertURL+`"`) {
		t.Fatalf("expected insert button for %s in %s", insertURL, body)
	}

	out := postInsert(t, fx.server.URL+insertURL, http.StatusCreated)
	if out.SVGID != "svg42" {
		t.Fatalf("unexpected insert response %+v", out)
	}
	if len(insertedInto) != 1 || insertedInto[0] != noteID {
		t.Fatalf("expected insert into %s, got %#v", noteID, insertedInto)
	}

	postInsert(t, fx.server.URL+"/notes/missing/diagrams", http.StatusNotFound)
	if len(insertedInto) != 1 {
		t.Fatalf("expected unknown note not to reach the editor, got %#v", insertedInto)
	}
}

func TestViewerInsertClosedDialogConflicts(t *testing.T) {
	fx := setupViewer(t, WithInserter(func(context.Context) (string, error) {
		return "", editor.ErrDialogClosed
	}))
	postInsert(t, fx.server.URL+"/notes/"+identity.DocumentID("sketch.md")+"/diagrams", http.StatusConflict)
}

func TestViewerHidesInsertWithoutBridge(t *testing.T) {
	fx := setupViewer(t,
		WithBridge(bridge.NewRegistry(), "excalidraw-script", func() bool { return false }),
		WithInserter(func(context.Context) (string, error) { return "svg1", nil }),
	)
	body, _ := get(t, fx.server.URL+"/notes/"+identity.DocumentID("sketch.md"), http.StatusOK)
	if strings.Contains(body, "data-excalidraw-insert") {
		t.Fatalf("expected no insert button without a bridge, got %s", body)
	}
}
