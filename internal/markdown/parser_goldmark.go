package markdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/goliatone/go-excalidraw/internal/render"
)

// ParseOptions tune the goldmark engine.
type ParseOptions struct {
	Extensions []string
	HardWraps  bool
	// SafeMode drops raw HTML from note bodies. Diagram fragments are
	// emitted by the image hook and are unaffected.
	SafeMode bool
}

// GoldmarkParser renders markdown with the diagram extension installed. The
// engine is built once and is safe for concurrent use.
type GoldmarkParser struct {
	engine goldmark.Markdown
}

// NewGoldmarkParser builds a parser. ext may be nil for a plain renderer.
func NewGoldmarkParser(opts ParseOptions, ext *render.Extension) *GoldmarkParser {
	return &GoldmarkParser{engine: newGoldmarkEngine(opts, ext)}
}

// Parse renders a note body without request-scoped context.
func (p *GoldmarkParser) Parse(markdown []byte) ([]byte, error) {
	return p.Render(context.Background(), markdown)
}

// Render renders markdown; ctx reaches resource resolution.
func (p *GoldmarkParser) Render(ctx context.Context, markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.engine.Convert(markdown, &buf, render.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("markdown parse: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderNote strips front matter before rendering.
func (p *GoldmarkParser) RenderNote(ctx context.Context, source []byte) ([]byte, Source, error) {
	src, err := ParseFrontMatter(source)
	if err != nil {
		return nil, Source{}, err
	}
	out, err := p.Render(ctx, src.Body)
	if err != nil {
		return nil, src, err
	}
	return out, src, nil
}

func newGoldmarkEngine(opts ParseOptions, ext *render.Extension) goldmark.Markdown {
	exts := collectExtensions(opts.Extensions)
	if ext != nil {
		exts = append(exts, ext)
	}

	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	return goldmark.New(
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
		goldmark.WithExtensions(exts...),
	)
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{
			extension.GFM,
			extension.Linkify,
			extension.TaskList,
		}
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}
	return extenders
}
