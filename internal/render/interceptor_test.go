package render

import (
	"strings"
	"testing"

	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

func newTestInterceptor() *Interceptor {
	return NewInterceptor(Options{LogoURI: "data:image/png;base64,AAAA"})
}

func TestClassify(t *testing.T) {
	in := newTestInterceptor()

	cases := []struct {
		name  string
		token interfaces.ImageToken
		html  string
		kind  Kind
		id    string
	}{
		{
			name:  "v1 diagram",
			token: interfaces.ImageToken{Alt: "excalidraw", Src: "excalidraw://abc123"},
			html:  `<img src="excalidraw://abc123" alt="excalidraw">`,
			kind:  KindV1,
			id:    "abc123",
		},
		{
			name:  "v1 sentinel without scheme",
			token: interfaces.ImageToken{Alt: "excalidraw", Src: "https://example.com/a.png"},
			html:  `<img src="https://example.com/a.png" alt="excalidraw">`,
		},
		{
			name:  "v1 scheme without id",
			token: interfaces.ImageToken{Alt: "excalidraw", Src: "excalidraw://"},
			html:  `<img src="excalidraw://" alt="excalidraw">`,
		},
		{
			name:  "v2 diagram with file url",
			token: interfaces.ImageToken{Alt: "excalidraw.svg", Src: ":/def456"},
			html:  `<img src="file:///profile/resources/def456.svg?t=1700000000000" alt="excalidraw.svg">`,
			kind:  KindV2,
		},
		{
			name:  "v2 diagram with host url",
			token: interfaces.ImageToken{Alt: "excalidraw.svg", Src: ":/def456"},
			html:  `<img src="joplin-content://note-viewer/resources/def456.svg" alt="excalidraw.svg">`,
			kind:  KindV2,
		},
		{
			name:  "v2 sentinel on png",
			token: interfaces.ImageToken{Alt: "excalidraw.svg", Src: ":/def456"},
			html:  `<img src="file:///profile/resources/def456.png" alt="excalidraw.svg">`,
		},
		{
			name:  "ordinary image",
			token: interfaces.ImageToken{Alt: "cat", Src: "cat.svg"},
			html:  `<img src="cat.svg" alt="cat">`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := in.Classify(tc.token, tc.html)
			if got.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, got.Kind)
			}
			if got.ResourceID != tc.id {
				t.Fatalf("expected id %q, got %q", tc.id, got.ResourceID)
			}
		})
	}
}

func TestRewriteImagePassesThroughNonDiagrams(t *testing.T) {
	in := newTestInterceptor()
	def := `<img src="cat.svg" alt="cat" title="x">`

	got := in.RewriteImage(interfaces.ImageToken{Alt: "cat", Src: "cat.svg", Title: "x"}, def)
	if got != def {
		t.Fatalf("expected default html untouched, got %q", got)
	}
}

func TestRewriteImageV1(t *testing.T) {
	in := newTestInterceptor()
	def := `<img src="excalidraw://abc123" alt="excalidraw">`

	got := in.RewriteImage(interfaces.ImageToken{Alt: "excalidraw", Src: "excalidraw://abc123"}, def)

	for _, want := range []string{
		`<span class="excalidraw--svgWrapper" contenteditable="false">`,
		`src="data:image/png;base64,AAAA"`,
		`data-excalidraw-action="convert"`,
		`data-excalidraw-target="abc123"`,
		`data-excalidraw-refresh="false"`,
		`data-excalidraw-channel="excalidraw-script"`,
		`>Convert to v2 🔄</button></span>`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "excalidraw://") {
		t.Fatalf("expected v1 source to be replaced, got %q", got)
	}
	if strings.Contains(got, "<script") || strings.Contains(got, "onclick") {
		t.Fatalf("fragment must not carry executable code: %q", got)
	}
}

func TestRewriteImageV2(t *testing.T) {
	in := newTestInterceptor()
	def := `<img src="/resources/def456.svg?t=1700000000000" alt="excalidraw.svg" data-resource-id="def456">`

	got := in.RewriteImage(interfaces.ImageToken{Alt: "excalidraw.svg", Src: "/resources/def456.svg?t=1700000000000"}, def)

	for _, want := range []string{
		`src="/resources/def456.svg?t=1700000000000"`,
		`data-resource-id="def456"`,
		`data-excalidraw-action="edit"`,
		`data-excalidraw-refresh="true"`,
		`>Edit 🖊️</button></span>`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, AttrTarget) {
		t.Fatalf("edit fragments carry no target, got %q", got)
	}
}

func TestRewriteImagePairsButtonAndImageIDs(t *testing.T) {
	in := newTestInterceptor()
	def := `<img src="/resources/a.svg" alt="excalidraw.svg">`
	token := interfaces.ImageToken{Alt: "excalidraw.svg", Src: "/resources/a.svg"}

	first := in.RewriteImage(token, def)
	second := in.RewriteImage(token, def)

	if !strings.Contains(first, `id="`+ImageIDPrefix+`0"`) || !strings.Contains(first, `id="`+ButtonIDPrefix+`0"`) {
		t.Fatalf("expected first fragment to use counter 0, got %q", first)
	}
	if !strings.Contains(first, AttrButton+`="`+ButtonIDPrefix+`0"`) || !strings.Contains(first, AttrImage+`="`+ImageIDPrefix+`0"`) {
		t.Fatalf("expected image and button to reference each other, got %q", first)
	}
	if !strings.Contains(second, `id="`+ImageIDPrefix+`1"`) {
		t.Fatalf("expected second fragment to use counter 1, got %q", second)
	}
}

func TestRewriteImageV1ReplacesEscapedSource(t *testing.T) {
	in := newTestInterceptor()
	// the renderer escapes the source, so it no longer matches the token text
	def := `<img src="excalidraw://ab%C3%A9&amp;c" alt="excalidraw">`

	got := in.RewriteImage(interfaces.ImageToken{Alt: "excalidraw", Src: "excalidraw://abé&c"}, def)

	if strings.Contains(got, "excalidraw://") {
		t.Fatalf("expected v1 source to be replaced, got %q", got)
	}
	if !strings.Contains(got, `src="data:image/png;base64,AAAA"`) {
		t.Fatalf("expected logo source, got %q", got)
	}
	if !strings.Contains(got, `data-excalidraw-target="abé&amp;c"`) {
		t.Fatalf("expected escaped target, got %q", got)
	}
}

func TestRewriteImageV1WithoutMigration(t *testing.T) {
	in := NewInterceptor(Options{
		LogoURI:   "data:image/png;base64,AAAA",
		Migration: func() bool { return false },
	})
	def := `<img src="excalidraw://abc123" alt="excalidraw">`

	got := in.RewriteImage(interfaces.ImageToken{Alt: "excalidraw", Src: "excalidraw://abc123"}, def)

	if got != `<img src="data:image/png;base64,AAAA" alt="excalidraw">` {
		t.Fatalf("expected bare logo image, got %q", got)
	}

	// v2 diagrams keep their edit affordance
	v2 := in.RewriteImage(interfaces.ImageToken{Alt: "excalidraw.svg", Src: "/resources/a.svg"},
		`<img src="/resources/a.svg" alt="excalidraw.svg">`)
	if !strings.Contains(v2, `data-excalidraw-action="edit"`) {
		t.Fatalf("expected edit affordance, got %q", v2)
	}
}
