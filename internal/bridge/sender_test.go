package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

func echoHandler(prefix string) interfaces.MessageHandler {
	return func(_ context.Context, msg string) (string, error) {
		return prefix + msg, nil
	}
}

func TestRegistrySend(t *testing.T) {
	reg := NewRegistry()
	reg.OnMessage("chan", echoHandler("got:"))

	reply, err := reg.Send(context.Background(), "chan", "hi")
	if err != nil || reply != "got:hi" {
		t.Fatalf("unexpected reply %q err %v", reply, err)
	}
	if _, err := reg.Send(context.Background(), "other", "hi"); !errors.Is(err, ErrBridgeUnavailable) {
		t.Fatalf("expected ErrBridgeUnavailable, got %v", err)
	}
}

func TestClientPrefersDirectPrimitive(t *testing.T) {
	direct, fallback := NewRegistry(), NewRegistry()
	direct.OnMessage("chan", echoHandler("direct:"))
	fallback.OnMessage("chan", echoHandler("fallback:"))

	c := NewClient(WithDirect(Static(direct)), WithFallback(Static(fallback)))
	if !c.Available() {
		t.Fatal("expected direct primitive to be available")
	}
	reply, err := c.Send(context.Background(), "chan", "m")
	if err != nil || reply != "direct:m" {
		t.Fatalf("unexpected reply %q err %v", reply, err)
	}
}

func TestClientUsesGlobalFallback(t *testing.T) {
	reg := NewRegistry()
	reg.OnMessage("chan", echoHandler("global:"))
	PublishGlobal(reg)
	t.Cleanup(func() { PublishGlobal(nil) })

	c := NewClient(WithFallback(GlobalFallback))
	if c.Available() {
		t.Fatal("expected no direct primitive")
	}
	reply, err := c.Send(context.Background(), "chan", "m")
	if err != nil || reply != "global:m" {
		t.Fatalf("unexpected reply %q err %v", reply, err)
	}
}

func TestClientWithoutPrimitivesIsUnavailable(t *testing.T) {
	c := NewClient(WithFallback(GlobalFallback))
	if _, err := c.Send(context.Background(), "chan", "m"); !errors.Is(err, ErrBridgeUnavailable) {
		t.Fatalf("expected ErrBridgeUnavailable, got %v", err)
	}
}
