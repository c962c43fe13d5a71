package notebook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-excalidraw/internal/identity"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

func writeNote(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newNotebook(t *testing.T) (*Notebook, string) {
	t.Helper()
	dir := t.TempDir()
	writeNote(t, dir, "plain.md", "# Plain\n\n![excalidraw](excalidraw://abc123)\n")
	writeNote(t, dir, "meta.md", "---\nid: 0f8fad5bd9cb469fa16570867728950e\ntitle: With Meta\n---\nbody\n")
	writeNote(t, dir, "nested/deep.md", "deep\n")
	writeNote(t, dir, "skip.txt", "not a note\n")

	nb, err := New(Config{Root: dir})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return nb, dir
}

func TestListDiscoversNotes(t *testing.T) {
	nb, _ := newNotebook(t)

	entries, err := nb.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two top-level notes, got %#v", entries)
	}
	if entries[0].Path != "meta.md" || entries[0].ID != "0f8fad5bd9cb469fa16570867728950e" || entries[0].Title != "With Meta" {
		t.Fatalf("unexpected entry %#v", entries[0])
	}
	if entries[1].ID != identity.DocumentID("plain.md") || entries[1].Title != "plain" {
		t.Fatalf("unexpected entry %#v", entries[1])
	}
}

func TestCurrentDocumentRequiresSelection(t *testing.T) {
	nb, _ := newNotebook(t)
	if _, err := nb.CurrentDocument(context.Background()); !errors.Is(err, interfaces.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := nb.Select(context.Background(), "missing"); !errors.Is(err, interfaces.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestReplaceBodyKeepsFrontMatter(t *testing.T) {
	nb, dir := newNotebook(t)
	ctx := context.Background()
	id := "0f8fad5bd9cb469fa16570867728950e"

	if err := nb.ReplaceDocumentBody(ctx, id, "new body\n"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "meta.md"))
	if string(raw) != "---\nid: 0f8fad5bd9cb469fa16570867728950e\ntitle: With Meta\n---\nnew body\n" {
		t.Fatalf("unexpected file %q", raw)
	}
	doc, err := nb.Document(ctx, id)
	if err != nil || doc.Body != "new body\n" {
		t.Fatalf("unexpected document %#v err %v", doc, err)
	}
}

func TestInsertTextAppendsToCurrentNote(t *testing.T) {
	nb, _ := newNotebook(t)
	ctx := context.Background()
	id := identity.DocumentID("plain.md")

	if err := nb.Select(ctx, id); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := nb.InsertText(ctx, "![excalidraw.svg](:/svg1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	doc, _ := nb.CurrentDocument(ctx)
	if !strings.HasSuffix(doc.Body, "(excalidraw://abc123)\n![excalidraw.svg](:/svg1)\n") {
		t.Fatalf("unexpected body %q", doc.Body)
	}
}

func TestRecursiveListing(t *testing.T) {
	_, dir := newNotebook(t)
	nb, err := New(Config{Root: dir, Recursive: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	entries, err := nb.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected nested note included, got %#v", entries)
	}
}
