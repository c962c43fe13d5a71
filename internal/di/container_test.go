package di_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-excalidraw/internal/bridge"
	"github.com/goliatone/go-excalidraw/internal/bridge/wsbridge"
	"github.com/goliatone/go-excalidraw/internal/di"
	"github.com/goliatone/go-excalidraw/internal/runtimeconfig"
)

const noteID = "0f8fad5bd9cb469fa16570867728950e"

func newTestContainer(t *testing.T, cfg runtimeconfig.Config) *di.Container {
	t.Helper()
	container, err := di.NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func seedV1Diagram(t *testing.T, container *di.Container, id string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), id+".json")
	if err := os.WriteFile(path, []byte(`{"type":"excalidraw","version":2,"elements":[]}`), 0o600); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	if _, err := container.AttachmentStore().Create(context.Background(), id, id+".json", path); err != nil {
		t.Fatalf("seed v1 diagram: %v", err)
	}
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Markdown.V2Sentinel = cfg.Markdown.V1Sentinel

	if _, err := di.NewContainer(cfg); err == nil {
		t.Fatal("expected identical sentinels to be rejected")
	}
}

func TestContainerConvertsAndRendersDiagram(t *testing.T) {
	cfg := testConfig(t)
	note := "---\nid: " + noteID + "\ntitle: Sketches\n---\n# Sketches\n\n![excalidraw](excalidraw://abc123)\n"
	if err := os.WriteFile(filepath.Join(cfg.HTTP.NotebookDir, "sketches.md"), []byte(note), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	container := newTestContainer(t, cfg)
	ctx := context.Background()
	seedV1Diagram(t, container, "abc123")

	if err := container.Notes().Select(ctx, noteID); err != nil {
		t.Fatalf("select note: %v", err)
	}

	html, _, err := container.MarkdownParser().RenderNote(ctx, []byte(note))
	if err != nil {
		t.Fatalf("render v1 note: %v", err)
	}
	if !strings.Contains(string(html), `data-excalidraw-action="convert"`) {
		t.Fatalf("expected convert affordance, got %s", html)
	}

	svgID, err := container.BridgeClient().Send(ctx, cfg.Bridge.ChannelID, bridge.ConvertMessage("abc123"))
	if err != nil {
		t.Fatalf("send convert: %v", err)
	}
	if svgID == "" {
		t.Fatal("expected new svg id in reply")
	}

	doc, err := container.Notes().CurrentDocument(ctx)
	if err != nil {
		t.Fatalf("current document: %v", err)
	}
	if !strings.Contains(doc.Body, "![excalidraw.svg](:/"+svgID+")") {
		t.Fatalf("expected v2 reference in body, got %q", doc.Body)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.HTTP.NotebookDir, "sketches.md"))
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	if !strings.HasPrefix(string(raw), "---\nid: "+noteID) {
		t.Fatalf("expected front matter to survive the rewrite, got %q", raw)
	}

	html, _, err = container.MarkdownParser().RenderNote(ctx, raw)
	if err != nil {
		t.Fatalf("render v2 note: %v", err)
	}
	for _, want := range []string{
		`data-excalidraw-action="edit"`,
		`src="/resources/` + svgID + `.svg?t=`,
		`data-resource-id="` + svgID + `"`,
	} {
		if !strings.Contains(string(html), want) {
			t.Fatalf("expected %q in %s", want, html)
		}
	}

	if _, err := container.Codec().ReadScene(ctx, svgID); err != nil {
		t.Fatalf("read migrated scene: %v", err)
	}
}

func TestContainerMigrationReplyIsNullForUnknownDiagram(t *testing.T) {
	container := newTestContainer(t, testConfig(t))

	reply, err := container.BridgeClient().Send(context.Background(), container.Config.Bridge.ChannelID, bridge.ConvertMessage("missing"))
	if err != nil {
		t.Fatalf("send convert: %v", err)
	}
	if reply != "" {
		t.Fatalf("expected null reply, got %q", reply)
	}
}

func TestContainerRegistryFallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.RegistryFallback = true
	container := newTestContainer(t, cfg)

	fallback := bridge.GlobalFallback()
	if fallback == nil {
		t.Fatal("expected container registry to be published")
	}
	if fallback != container.Registry() {
		t.Fatalf("expected published registry to be the container registry")
	}

	_ = container.Close()
	if bridge.GlobalFallback() != nil {
		t.Fatal("expected close to withdraw the published registry")
	}
}

func TestContainerBunStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Provider = "bun"
	cfg.Storage.Driver = "sqlite3"
	cfg.Storage.DSN = "file:" + filepath.Join(t.TempDir(), "attachments.db")

	container := newTestContainer(t, cfg)
	seedV1Diagram(t, container, "abc123")

	meta, err := container.AttachmentStore().Metadata(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.MimeType != "application/json" {
		t.Fatalf("expected json mime type, got %q", meta.MimeType)
	}
}

func TestContainerMigrationDisabledLeavesNoteAlone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.Migration = false
	note := "---\nid: " + noteID + "\ntitle: Sketches\n---\n![excalidraw](excalidraw://abc123)\n"
	if err := os.WriteFile(filepath.Join(cfg.HTTP.NotebookDir, "sketches.md"), []byte(note), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	container := newTestContainer(t, cfg)
	ctx := context.Background()
	seedV1Diagram(t, container, "abc123")
	if err := container.Notes().Select(ctx, noteID); err != nil {
		t.Fatalf("select note: %v", err)
	}

	reply, err := container.BridgeHost().HandleMessage(ctx, bridge.ConvertMessage("abc123"))
	if err != nil || reply != "" {
		t.Fatalf("expected null reply, got %q err %v", reply, err)
	}
	raw, err := os.ReadFile(filepath.Join(cfg.HTTP.NotebookDir, "sketches.md"))
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	if string(raw) != note {
		t.Fatalf("expected note untouched, got %q", raw)
	}

	html, _, err := container.MarkdownParser().RenderNote(ctx, raw)
	if err != nil {
		t.Fatalf("render note: %v", err)
	}
	if strings.Contains(string(html), `data-excalidraw-action="convert"`) || strings.Contains(string(html), "<button") {
		t.Fatalf("expected no convert affordance, got %s", html)
	}
	if strings.Contains(string(html), "excalidraw://") {
		t.Fatalf("expected v1 source replaced by the logo, got %s", html)
	}
}

func TestContainerChangeEventsOutdateRenderedTokens(t *testing.T) {
	container := newTestContainer(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svgPath := filepath.Join(t.TempDir(), "x1.svg")
	if err := os.WriteFile(svgPath, []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), 0o600); err != nil {
		t.Fatalf("write svg: %v", err)
	}
	if _, err := container.AttachmentStore().Create(ctx, "x1", "x1.svg", svgPath); err != nil {
		t.Fatalf("seed svg: %v", err)
	}
	if err := container.Watch(ctx); err != nil {
		t.Fatalf("watch: %v", err)
	}

	html, _, err := container.MarkdownParser().RenderNote(ctx, []byte("![excalidraw.svg](:/x1)\n"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	match := regexp.MustCompile(`src="(/resources/x1\.svg\?t=\d+)"`).FindStringSubmatch(string(html))
	if match == nil {
		t.Fatalf("expected stamped source in %s", html)
	}
	rendered := match[1]

	// keep the update in a later millisecond than the first render
	time.Sleep(5 * time.Millisecond)
	if err := container.AttachmentStore().Update(ctx, "x1", "x1.svg", svgPath); err != nil {
		t.Fatalf("update svg: %v", err)
	}

	base := container.ResourceURL("x1")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := container.Tracker().Lookup(base); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected change event to record staleness")
		}
		time.Sleep(5 * time.Millisecond)
	}

	next, changed := container.Tracker().Refresh(rendered)
	if !changed || next == rendered || !strings.HasPrefix(next, base+"?t=") {
		t.Fatalf("expected %q to be refreshed, got %q", rendered, next)
	}
}

func TestContainerConvertOutdatesNewDiagram(t *testing.T) {
	cfg := testConfig(t)
	note := "---\nid: " + noteID + "\ntitle: Sketches\n---\n![excalidraw](excalidraw://abc123)\n"
	if err := os.WriteFile(filepath.Join(cfg.HTTP.NotebookDir, "sketches.md"), []byte(note), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
	container := newTestContainer(t, cfg)
	ctx := context.Background()
	seedV1Diagram(t, container, "abc123")
	if err := container.Notes().Select(ctx, noteID); err != nil {
		t.Fatalf("select note: %v", err)
	}

	svgID, _ := container.BridgeHost().HandleMessage(ctx, bridge.ConvertMessage("abc123"))
	if svgID == "" {
		t.Fatal("expected converted svg id")
	}
	if _, ok := container.Tracker().Lookup(container.ResourceURL(svgID)); !ok {
		t.Fatalf("expected staleness entry for %s", svgID)
	}
}

func TestContainerConvertAnnouncesRewrittenNote(t *testing.T) {
	cfg := testConfig(t)
	note := "---\nid: " + noteID + "\ntitle: Sketches\n---\n![excalidraw](excalidraw://abc123)\n"
	if err := os.WriteFile(filepath.Join(cfg.HTTP.NotebookDir, "sketches.md"), []byte(note), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
	container := newTestContainer(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	seedV1Diagram(t, container, "abc123")
	if err := container.Notes().Select(ctx, noteID); err != nil {
		t.Fatalf("select note: %v", err)
	}

	srv := httptest.NewServer(container.WebsocketServer())
	t.Cleanup(srv.Close)
	rewritten := make(chan string, 1)
	view, err := wsbridge.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"),
		wsbridge.OnDocumentChanged(func(id string) { rewritten <- id }))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer view.Close()
	for container.WebsocketServer().Connections() == 0 && ctx.Err() == nil {
		time.Sleep(5 * time.Millisecond)
	}

	if reply, _ := container.BridgeHost().HandleMessage(ctx, bridge.ConvertMessage("abc123")); reply == "" {
		t.Fatal("expected converted svg id")
	}
	select {
	case id := <-rewritten:
		if id != noteID {
			t.Fatalf("unexpected document id %q", id)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for document_changed")
	}
}
