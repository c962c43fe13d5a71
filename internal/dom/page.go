// Package dom applies the rendered-view lifecycle of diagram fragments to an
// HTML document: button placement, cache-breaker refresh on load, and
// post-edit source bumps.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/goliatone/go-excalidraw/internal/cachebust"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/internal/render"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// Page wraps a parsed document.
type Page struct {
	doc     *goquery.Document
	tracker *cachebust.Tracker
	// bridge reports whether a direct bridge primitive exists for this view.
	bridge bool
	logger interfaces.Logger
}

// Option configures a Page.
type Option func(*Page)

// WithLogger sets the page logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(p *Page) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBridge marks the direct bridge as available or not.
func WithBridge(available bool) Option {
	return func(p *Page) {
		p.bridge = available
	}
}

// Parse reads an HTML document.
func Parse(r io.Reader, tracker *cachebust.Tracker, opts ...Option) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	if tracker == nil {
		tracker = cachebust.NewTracker()
	}
	p := &Page{doc: doc, tracker: tracker, bridge: true, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// ParseString is Parse over a string.
func ParseString(html string, tracker *cachebust.Tracker, opts ...Option) (*Page, error) {
	return Parse(strings.NewReader(html), tracker, opts...)
}

// Document exposes the underlying goquery document.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// LoadImages runs the load handler of every diagram image and returns how
// many were processed.
func (p *Page) LoadImages() int {
	imgs := p.doc.Find("img[" + render.AttrAction + "]")
	imgs.Each(func(_ int, img *goquery.Selection) {
		p.OnImageLoad(img)
	})
	return imgs.Length()
}

// OnImageLoad attaches the paired button to the image's container, applies
// the staleness check when the image opted in, and removes the button when
// no bridge is reachable.
func (p *Page) OnImageLoad(img *goquery.Selection) {
	container := img.Parent()
	if container.Length() == 0 {
		return
	}

	button := container.ChildrenFiltered("button." + render.ButtonClass).First()
	if button.Length() == 0 {
		buttonID, _ := img.Attr(render.AttrButton)
		if buttonID == "" {
			return
		}
		button = p.doc.Find("#" + cssEscape(buttonID)).First()
		if button.Length() == 0 {
			p.logger.Debug("dom.button.missing", "button_id", buttonID)
			return
		}
		button.Remove()
		container.AppendSelection(button)
	}
	container.AddClass(render.WrapperClass)

	if v, _ := img.Attr(render.AttrRefresh); v == "true" {
		if src, ok := img.Attr("src"); ok {
			if next, changed := p.tracker.Refresh(src); changed {
				img.SetAttr("src", next)
				p.logger.Debug("dom.image.refreshed", "src", next)
			}
		}
	}

	if !p.bridge {
		button.Remove()
	}
}

// HTML serialises the whole document.
func (p *Page) HTML() (string, error) {
	return p.doc.Html()
}

// BodyHTML serialises the inner HTML of body.
func (p *Page) BodyHTML() (string, error) {
	return p.doc.Find("body").Html()
}

// cssEscape covers the characters ids and resource ids may carry.
func cssEscape(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
