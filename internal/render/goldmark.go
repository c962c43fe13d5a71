package render

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"regexp"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// ResourceLinkPattern matches the note-local resource link form `:/<id>`.
var ResourceLinkPattern = regexp.MustCompile(`^:/([a-zA-Z0-9]+)$`)

// ResolvedResource is a servable location for an attachment.
type ResolvedResource struct {
	ID  string
	URL string
}

// ResourceResolver maps attachment ids to servable URLs.
type ResourceResolver interface {
	ResolveResource(ctx context.Context, id string) (ResolvedResource, error)
}

// StoreResolver resolves against an attachment store and stamps the URL with
// the attachment's update time as cache breaker.
type StoreResolver struct {
	Store   interfaces.AttachmentStore
	BaseURL string
	Param   string
}

func (r StoreResolver) ResolveResource(ctx context.Context, id string) (ResolvedResource, error) {
	meta, err := r.Store.Metadata(ctx, id, "mime", "updated_time")
	if err != nil {
		return ResolvedResource{}, err
	}
	param := r.Param
	if param == "" {
		param = "t"
	}
	url := r.BaseURL + "/" + id + extensionFor(meta.MimeType) +
		"?" + param + "=" + strconv.FormatInt(meta.UpdatedAt.UnixMilli(), 10)
	return ResolvedResource{ID: id, URL: url}, nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/svg+xml":
		return ".svg"
	case "application/json":
		return ".json"
	default:
		return ""
	}
}

var contextKey = parser.NewContextKey()

// WithContext carries ctx into resource resolution for one Convert call.
func WithContext(ctx context.Context) parser.ParseOption {
	pc := parser.NewContext()
	pc.Set(contextKey, ctx)
	return parser.WithContext(pc)
}

func contextFrom(pc parser.Context) context.Context {
	if pc != nil {
		if ctx, ok := pc.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// Extension installs the resource link resolver and the image hook into a
// goldmark instance. Either part may be nil.
type Extension struct {
	Hook     interfaces.ImageRenderHook
	Resolver ResourceResolver
	Logger   interfaces.Logger
}

var _ goldmark.Extender = (*Extension)(nil)

func (e *Extension) Extend(m goldmark.Markdown) {
	logger := e.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	if e.Resolver != nil {
		m.Parser().AddOptions(parser.WithASTTransformers(
			util.Prioritized(&resourceTransformer{resolver: e.Resolver, logger: logger}, 100),
		))
	}
	if e.Hook != nil {
		m.Renderer().AddOptions(renderer.WithNodeRenderers(
			util.Prioritized(&imageRenderer{Config: html.NewConfig(), hook: e.Hook}, 100),
		))
	}
}

type resourceTransformer struct {
	resolver ResourceResolver
	logger   interfaces.Logger
}

func (t *resourceTransformer) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	ctx := contextFrom(pc)
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := node.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		m := ResourceLinkPattern.FindSubmatch(img.Destination)
		if m == nil {
			return ast.WalkContinue, nil
		}
		id := string(m[1])
		res, err := t.resolver.ResolveResource(ctx, id)
		if err != nil {
			if errors.Is(err, interfaces.ErrAttachmentNotFound) {
				t.logger.Debug("render.resource.unknown", "resource_id", id)
			} else {
				t.logger.Warn("render.resource.resolve_failed", "resource_id", id, "error", err)
			}
			return ast.WalkContinue, nil
		}
		img.Destination = []byte(res.URL)
		img.SetAttributeString(AttrResource, []byte(res.ID))
		return ast.WalkContinue, nil
	})
}

// imageRenderer reproduces goldmark's image output and hands it to the hook.
type imageRenderer struct {
	html.Config
	hook interfaces.ImageRenderHook
}

func (r *imageRenderer) SetOption(name renderer.OptionName, value any) {
	r.Config.SetOption(name, value)
}

func (r *imageRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindImage, r.renderImage)
}

func (r *imageRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Image)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, _ = bw.WriteString(`<img src="`)
	if r.Unsafe || !html.IsDangerousURL(n.Destination) {
		_, _ = bw.Write(util.EscapeHTML(util.URLEscape(n.Destination, true)))
	}
	_, _ = bw.WriteString(`" alt="`)
	_, _ = bw.Write(util.EscapeHTML(n.Text(source)))
	_ = bw.WriteByte('"')
	if n.Title != nil {
		_, _ = bw.WriteString(` title="`)
		r.Writer.Write(bw, n.Title)
		_ = bw.WriteByte('"')
	}
	if n.Attributes() != nil {
		html.RenderAttributes(bw, n, html.ImageAttributeFilter)
	}
	if r.XHTML {
		_, _ = bw.WriteString(" />")
	} else {
		_, _ = bw.WriteString(">")
	}
	if err := bw.Flush(); err != nil {
		return ast.WalkStop, err
	}

	token := interfaces.ImageToken{
		Alt:   string(n.Text(source)),
		Src:   string(n.Destination),
		Title: string(n.Title),
	}
	if attrs := n.Attributes(); len(attrs) > 0 {
		token.Attrs = make(map[string]string, len(attrs))
		for _, a := range attrs {
			switch v := a.Value.(type) {
			case []byte:
				token.Attrs[string(a.Name)] = string(v)
			case string:
				token.Attrs[string(a.Name)] = v
			}
		}
	}

	_, _ = w.WriteString(r.hook.RewriteImage(token, buf.String()))
	return ast.WalkSkipChildren, nil
}
