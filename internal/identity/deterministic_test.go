package identity

import (
	"strings"
	"testing"
)

func TestNewResourceIDShape(t *testing.T) {
	seen := map[string]struct{}{}
	for range 50 {
		id := NewResourceID()
		if len(id) != 32 || strings.Contains(id, "-") {
			t.Fatalf("unexpected id shape %q", id)
		}
		if !IsResourceID(id) {
			t.Fatalf("expected %q to be a resource id", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestDocumentIDIsDeterministic(t *testing.T) {
	a := DocumentID("notes/welcome.md")
	b := DocumentID("notes\\welcome.md")
	if a == "" || a != b {
		t.Fatalf("expected stable id across separators, got %q and %q", a, b)
	}
	if a == DocumentID("notes/other.md") {
		t.Fatal("expected different paths to produce different ids")
	}
	if DocumentID("  ") != "" {
		t.Fatal("expected empty path to produce empty id")
	}
}

func TestIsResourceID(t *testing.T) {
	cases := map[string]bool{
		"abc123":  true,
		"":        false,
		"abc-123": false,
		"abc.svg": false,
	}
	for value, want := range cases {
		if got := IsResourceID(value); got != want {
			t.Fatalf("IsResourceID(%q) = %v, want %v", value, got, want)
		}
	}
}
