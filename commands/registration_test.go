package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-command/dispatcher"

	diagramscmd "github.com/goliatone/go-excalidraw/internal/commands/diagrams"
	"github.com/goliatone/go-excalidraw/internal/di"
	"github.com/goliatone/go-excalidraw/internal/runtimeconfig"
)

func newTestContainer(t *testing.T, mutate func(*runtimeconfig.Config)) *di.Container {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	cfg.Staging.Dir = t.TempDir()
	cfg.HTTP.NotebookDir = t.TempDir()
	cfg.Bridge.RegistryFallback = false
	if mutate != nil {
		mutate(&cfg)
	}
	container, err := di.NewContainer(cfg)
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func TestRegisterContainerCommandsBuildsHandlers(t *testing.T) {
	registry := &recordingRegistry{}
	dispatcher := &recordingDispatcher{}

	result, err := RegisterContainerCommands(newTestContainer(t, nil), RegistrationOptions{
		Registry:   registry,
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}

	if len(result.Handlers) != 3 {
		t.Fatalf("expected convert, edit and insert handlers, got %d", len(result.Handlers))
	}
	if len(result.Handlers) != len(registry.handlers) {
		t.Fatalf("expected registry to record all handlers, got %d of %d", len(registry.handlers), len(result.Handlers))
	}
	if len(dispatcher.subscriptions) != 3 {
		t.Fatalf("expected dispatcher subscriptions when dispatcher provided, got %d", len(dispatcher.subscriptions))
	}

	result.Unsubscribe()
	for _, sub := range dispatcher.subscriptions {
		if !sub.unsubscribed {
			t.Fatal("expected unsubscribe to reach every subscription")
		}
	}
}

func TestRegisterContainerCommandsSkipsConvertWhenMigrationDisabled(t *testing.T) {
	container := newTestContainer(t, func(cfg *runtimeconfig.Config) {
		cfg.Features.Migration = false
	})

	result, err := RegisterContainerCommands(container, RegistrationOptions{})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	for _, handler := range result.Handlers {
		if _, ok := handler.(*diagramscmd.ConvertV1Handler); ok {
			t.Fatal("expected convert handler not to be registered when migration is disabled")
		}
	}
	if len(result.Subscriptions) != 0 {
		t.Fatalf("expected no dispatcher subscriptions without dispatcher, got %d", len(result.Subscriptions))
	}
}

func TestDispatcherRunsConvertCommand(t *testing.T) {
	container := newTestContainer(t, nil)

	path := filepath.Join(t.TempDir(), "abc123.json")
	if err := os.WriteFile(path, []byte(`{"type":"excalidraw","elements":[]}`), 0o600); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	if _, err := container.AttachmentStore().Create(context.Background(), "abc123", "abc123.json", path); err != nil {
		t.Fatalf("seed v1 diagram: %v", err)
	}

	result, err := RegisterContainerCommands(container, RegistrationOptions{Dispatcher: NewDispatcher(0)})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	t.Cleanup(result.Unsubscribe)

	var svgID string
	err = dispatcher.Dispatch(context.Background(), diagramscmd.ConvertV1Command{
		JSONID:     "abc123",
		OnComplete: func(id string) { svgID = id },
	})
	if err != nil {
		t.Fatalf("dispatch convert: %v", err)
	}
	if svgID == "" {
		t.Fatal("expected converted svg id")
	}
}

func TestDispatcherRejectsUnknownHandlers(t *testing.T) {
	if _, err := NewDispatcher(1).RegisterCommand(struct{}{}); err == nil {
		t.Fatal("expected unsupported handler error")
	}
}

type recordingRegistry struct {
	handlers []any
}

func (r *recordingRegistry) RegisterCommand(handler any) error {
	r.handlers = append(r.handlers, handler)
	return nil
}

type recordingDispatcher struct {
	handlers      []any
	subscriptions []*recordingSubscription
	err           error
}

func (d *recordingDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.handlers = append(d.handlers, handler)
	sub := &recordingSubscription{handler: handler}
	d.subscriptions = append(d.subscriptions, sub)
	return sub, nil
}

type recordingSubscription struct {
	handler      any
	unsubscribed bool
}

func (s *recordingSubscription) Unsubscribe() {
	s.unsubscribed = true
}
