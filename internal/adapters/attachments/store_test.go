package attachments

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := store.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	id, err := store.Create(ctx, "abc123", "excalidraw-abc123.json", writeFile(t, "excalidraw-abc123.json", `{"a":1}`))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "abc123" {
		t.Fatalf("expected caller id to be kept, got %q", id)
	}
	assertEvent(t, events, ChangeCreated, "abc123")

	if _, err := store.Create(ctx, "abc123", "dup.json", writeFile(t, "dup.json", "{}")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	minted, err := store.Create(ctx, "", "excalidraw-abc123.svg", writeFile(t, "excalidraw-abc123.svg", "<svg/>"))
	if err != nil || len(minted) != 32 {
		t.Fatalf("expected minted id, got %q (%v)", minted, err)
	}
	assertEvent(t, events, ChangeCreated, minted)

	meta, err := store.Metadata(ctx, minted, "id", "title")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Title != "excalidraw-abc123.svg" || meta.MimeType != "image/svg+xml" || meta.Size != int64(len("<svg/>")) {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	if err := store.Update(ctx, "abc123", "excalidraw-abc123.json", writeFile(t, "next.json", `{"a":2}`)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	assertEvent(t, events, ChangeUpdated, "abc123")

	data, err := store.Bytes(ctx, "abc123")
	if err != nil || string(data) != `{"a":2}` {
		t.Fatalf("unexpected bytes %q (%v)", data, err)
	}

	if err := store.Update(ctx, "missing", "x.json", writeFile(t, "x.json", "{}")); !errors.Is(err, interfaces.ErrAttachmentNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}

	if err := store.Delete(ctx, "abc123"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	assertEvent(t, events, ChangeDeleted, "abc123")
	if _, err := store.Bytes(ctx, "abc123"); !errors.Is(err, interfaces.ErrAttachmentNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := store.Metadata(ctx, "abc123"); !errors.Is(err, interfaces.ErrAttachmentNotFound) {
		t.Fatalf("expected metadata not found after delete, got %v", err)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreRequiresFile(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Create(context.Background(), "a", "a.json", ""); !errors.Is(err, ErrFileRequired) {
		t.Fatalf("expected ErrFileRequired, got %v", err)
	}
}

func assertEvent(t *testing.T, events <-chan ChangeEvent, want ChangeType, id string) {
	t.Helper()
	select {
	case evt := <-events:
		if evt.Type != want || evt.ID != id {
			t.Fatalf("expected %s event for %s, got %+v", want, id, evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s event", want)
	}
}
