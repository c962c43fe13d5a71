// Package render turns markdown image tokens that reference diagrams into
// self-describing HTML fragments carrying edit and convert affordances.
//
// The emitted markup holds no executable code. Every interactive element
// carries data attributes (channel, action, target, button, refresh) that the
// delegation controller served from assets/controller.js reads at load time.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// Kind classifies an image token.
type Kind int

const (
	KindNone Kind = iota
	KindV1
	KindV2
)

func (k Kind) String() string {
	switch k {
	case KindV1:
		return "v1"
	case KindV2:
		return "v2"
	default:
		return "none"
	}
}

// Classification is the outcome of inspecting an image token.
type Classification struct {
	Kind Kind
	// ResourceID is the JSON attachment id of a v1 diagram. v2 tokens
	// resolve their id from the rendered URL on the host side.
	ResourceID string
}

const (
	ActionEdit    = "edit"
	ActionConvert = "convert"

	WrapperClass = "excalidraw--svgWrapper"
	ButtonClass  = "excalidraw--editButton"

	ButtonIDPrefix = "excalidraw-edit-button-"
	ImageIDPrefix  = "excalidraw-editable-svg-"

	AttrChannel  = "data-excalidraw-channel"
	AttrAction   = "data-excalidraw-action"
	AttrTarget   = "data-excalidraw-target"
	AttrButton   = "data-excalidraw-button"
	AttrImage    = "data-excalidraw-image"
	AttrRefresh  = "data-excalidraw-refresh"
	AttrResource = "data-resource-id"

	LabelConvert = "Convert to v2 🔄"
	LabelEdit    = "Edit 🖊️"
)

// Options configures the interceptor.
type Options struct {
	ChannelID  string
	V1Sentinel string
	V2Sentinel string
	V1Scheme   string
	CacheParam string
	// LogoURI replaces the unrenderable v1 source. Defaults to the embedded logo.
	LogoURI string
	// Migration reports whether v1 diagrams get a convert affordance. Nil
	// means always.
	Migration func() bool
	Logger    interfaces.Logger
}

// Interceptor implements interfaces.ImageRenderHook.
type Interceptor struct {
	channel    string
	v1Sentinel string
	v2Sentinel string
	v1Prefix   string
	logoURI    string
	migration  func() bool
	svgSrc     *regexp.Regexp
	counter    atomic.Uint64
	logger     interfaces.Logger
}

var _ interfaces.ImageRenderHook = (*Interceptor)(nil)

// NewInterceptor applies defaults matching runtimeconfig.DefaultConfig.
func NewInterceptor(opts Options) *Interceptor {
	if opts.ChannelID == "" {
		opts.ChannelID = "excalidraw-script"
	}
	if opts.V1Sentinel == "" {
		opts.V1Sentinel = "excalidraw"
	}
	if opts.V2Sentinel == "" {
		opts.V2Sentinel = "excalidraw.svg"
	}
	if opts.V1Scheme == "" {
		opts.V1Scheme = "excalidraw"
	}
	if opts.CacheParam == "" {
		opts.CacheParam = "t"
	}
	if opts.LogoURI == "" {
		opts.LogoURI = LogoDataURI()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOp()
	}
	return &Interceptor{
		channel:    opts.ChannelID,
		v1Sentinel: opts.V1Sentinel,
		v2Sentinel: opts.V2Sentinel,
		v1Prefix:   opts.V1Scheme + "://",
		logoURI:    opts.LogoURI,
		migration:  opts.Migration,
		svgSrc: regexp.MustCompile(`(?i)src\s*=\s*['"](file://|jop[-a-zA-Z]+://)?[^'"]*\.svg(\?` +
			regexp.QuoteMeta(opts.CacheParam) + `=\d+)?['"]`),
		logger: opts.Logger,
	}
}

// Classify inspects a token and its default HTML. A v2 token whose rendered
// source is not an SVG URL is not a diagram.
func (i *Interceptor) Classify(token interfaces.ImageToken, defaultHTML string) Classification {
	switch token.Alt {
	case i.v1Sentinel:
		if !strings.HasPrefix(token.Src, i.v1Prefix) {
			return Classification{}
		}
		id := token.Src[len(i.v1Prefix):]
		if id == "" {
			return Classification{}
		}
		return Classification{Kind: KindV1, ResourceID: id}
	case i.v2Sentinel:
		if !i.svgSrc.MatchString(defaultHTML) {
			i.logger.Warn("render.v2.url_unrecognised", "src", token.Src)
			return Classification{}
		}
		return Classification{Kind: KindV2}
	default:
		return Classification{}
	}
}

// RewriteImage returns the augmented fragment for diagram tokens and
// defaultHTML, byte for byte, for everything else. A failure while rewriting
// one token falls back to its default HTML.
func (i *Interceptor) RewriteImage(token interfaces.ImageToken, defaultHTML string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("render.rewrite.panic", "src", token.Src, "error", fmt.Sprint(r))
			out = defaultHTML
		}
	}()

	class := i.Classify(token, defaultHTML)
	if class.Kind == KindNone {
		return defaultHTML
	}
	if !strings.Contains(defaultHTML, "<img ") {
		return defaultHTML
	}

	n := i.counter.Add(1) - 1
	buttonID := ButtonIDPrefix + strconv.FormatUint(n, 10)
	imageID := ImageIDPrefix + strconv.FormatUint(n, 10)

	fragment := defaultHTML
	action, label, refresh := ActionEdit, LabelEdit, true
	if class.Kind == KindV1 {
		// the v1 scheme is not servable; show the logo without a cache breaker
		fragment = replaceImageSrc(fragment, i.logoURI)
		if i.migration != nil && !i.migration() {
			return fragment
		}
		action, label, refresh = ActionConvert, LabelConvert, false
	}

	common := attr(AttrChannel, i.channel) + attr(AttrAction, action)
	if class.Kind == KindV1 {
		common += attr(AttrTarget, class.ResourceID)
	}

	imgAttrs := attr("id", imageID) + common + attr(AttrButton, buttonID) +
		attr(AttrRefresh, strconv.FormatBool(refresh))
	fragment = strings.Replace(fragment, "<img ", "<img"+imgAttrs+" ", 1)

	var b strings.Builder
	b.WriteString(`<span class="` + WrapperClass + `" contenteditable="false">`)
	b.WriteString(fragment)
	b.WriteString(`<button type="button" class="` + ButtonClass + `"`)
	b.WriteString(attr("id", buttonID) + common + attr(AttrImage, imageID))
	b.WriteString(">")
	b.WriteString(label)
	b.WriteString("</button></span>")

	i.logger.Trace("render.token.rewritten", "kind", class.Kind.String(), "image_id", imageID)
	return b.String()
}

var imgSrcAttr = regexp.MustCompile(`(?is)(<img\b[^>]*?\ssrc\s*=\s*)("[^"]*"|'[^']*'|[^\s>]+)`)

// replaceImageSrc swaps the value of the first img src attribute. The
// rendered value is escaped, so it is matched by position, not by text.
func replaceImageSrc(fragment, src string) string {
	loc := imgSrcAttr.FindStringSubmatchIndex(fragment)
	if loc == nil {
		return fragment
	}
	return fragment[:loc[3]] + `"` + html.EscapeString(src) + `"` + fragment[loc[5]:]
}

func attr(name, value string) string {
	return " " + name + `="` + html.EscapeString(value) + `"`
}
