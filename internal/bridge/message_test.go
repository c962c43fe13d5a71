package bridge

import (
	"errors"
	"testing"
)

func TestParseMessage(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind MessageKind
		id   string
	}{
		{"convert", "convert_v1_abc123", MessageConvert, "abc123"},
		{"convert encoded", ConvertMessage("abc123"), MessageConvert, "abc123"},
		{"resource link", ":/xyz789", MessageEdit, "xyz789"},
		{"encoded resource link", "%3A%2Fxyz789", MessageEdit, "xyz789"},
		{"file url", "file:///home/u/.config/joplin/resources/d41d8cd9.svg?t=1700000000000", MessageEdit, "d41d8cd9"},
		{"app url", "joplin-content://note-viewer/resources/ab12.svg", MessageEdit, "ab12"},
		{"http url", EditMessage("http://127.0.0.1:8787/resources/ab12.svg?t=5"), MessageEdit, "ab12"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ParseMessage(tc.raw)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.raw, err)
			}
			if msg.Kind != tc.kind || msg.ResourceID != tc.id {
				t.Fatalf("expected %s %q, got %s %q", tc.kind, tc.id, msg.Kind, msg.ResourceID)
			}
		})
	}
}

func TestParseMessageRejectsUnknownForms(t *testing.T) {
	for _, raw := range []string{"garbage", "convert_v1_", ":/not-an-id", "%zz", "ftp://host/a.svg"} {
		if _, err := ParseMessage(raw); !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("expected ErrMalformedMessage for %q, got %v", raw, err)
		}
	}
}
