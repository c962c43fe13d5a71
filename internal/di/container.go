package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-excalidraw/internal/adapters/attachments"
	"github.com/goliatone/go-excalidraw/internal/adapters/joplin"
	"github.com/goliatone/go-excalidraw/internal/adapters/notebook"
	"github.com/goliatone/go-excalidraw/internal/bridge"
	"github.com/goliatone/go-excalidraw/internal/bridge/wsbridge"
	"github.com/goliatone/go-excalidraw/internal/cachebust"
	"github.com/goliatone/go-excalidraw/internal/editor"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/internal/logging/console"
	"github.com/goliatone/go-excalidraw/internal/logging/gologger"
	"github.com/goliatone/go-excalidraw/internal/markdown"
	"github.com/goliatone/go-excalidraw/internal/render"
	"github.com/goliatone/go-excalidraw/internal/resources"
	"github.com/goliatone/go-excalidraw/internal/runtimeconfig"
	"github.com/goliatone/go-excalidraw/internal/staging"
	"github.com/goliatone/go-excalidraw/internal/validation"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// Notes is the document backend: the note being viewed plus the editing
// surface diagrams are inserted into.
type Notes interface {
	interfaces.DocumentStore
	interfaces.DocumentReader
	interfaces.Workspace
	Select(ctx context.Context, id string) error
}

// Container wires the diagram runtime.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider

	bunDB      *bun.DB
	ownsBunDB  bool
	store      *attachmentStoreProxy
	notes      Notes
	dialogs    interfaces.DialogHost
	stager     *staging.Store
	validator  *validation.SceneValidator
	codec      resources.Service
	tracker    *cachebust.Tracker
	hook       *render.Interceptor
	parser     *markdown.GoldmarkParser
	registry   *bridge.Registry
	bridgeHost *bridge.Host
	client     *bridge.Client
	wsServer   *wsbridge.Server
	editorSvc  editor.Service

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected from Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithAttachmentStore overrides the store selected from Config.Storage.
func WithAttachmentStore(store interfaces.AttachmentStore) Option {
	return func(c *Container) {
		if store != nil {
			c.store = newAttachmentStoreProxy(store)
		}
	}
}

// WithBunDB supplies the database used by the bun provider.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithNotes overrides the document backend.
func WithNotes(notes Notes) Option {
	return func(c *Container) {
		c.notes = notes
	}
}

// WithDialogHost overrides the websocket dialog host.
func WithDialogHost(host interfaces.DialogHost) Option {
	return func(c *Container) {
		c.dialogs = host
	}
}

// NewContainer validates cfg and builds every collaborator.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	if err := c.configureStaging(); err != nil {
		return nil, err
	}
	if err := c.configureStorage(); err != nil {
		return nil, err
	}
	if err := c.configureNotes(); err != nil {
		return nil, err
	}
	if err := c.configureCodec(); err != nil {
		return nil, err
	}
	c.configureRender()
	c.configureBridge()

	logging.ModuleLogger(c.loggerProvider, "excalidraw").Info("container.configured",
		"storage", storageProvider(cfg),
		"websocket", cfg.Features.Websocket,
		"migration", cfg.Features.Migration,
	)
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	if !c.Config.Features.Logger {
		c.loggerProvider = nil
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:  c.Config.Logging.Level,
			Format: c.Config.Logging.Format,
			Focus:  c.Config.Logging.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{}
		if level, ok := console.ParseLevel(c.Config.Logging.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureStaging() error {
	c.stager = staging.NewStore(c.Config.Staging.Dir, staging.WithLogger(logging.StagingLogger(c.loggerProvider)))
	if c.Config.Staging.ClearOnStart {
		if err := c.stager.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) configureStorage() error {
	if c.store != nil {
		return nil
	}
	switch storageProvider(c.Config) {
	case "bun":
		if c.bunDB == nil {
			db, err := attachments.OpenBunDB(c.Config.Storage.Driver, c.Config.Storage.DSN)
			if err != nil {
				return err
			}
			c.bunDB = db
			c.ownsBunDB = true
		}
		store := attachments.NewBunStore(c.bunDB)
		if err := store.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("di: prepare attachment schema: %w", err)
		}
		c.store = newAttachmentStoreProxy(store)
	case "joplin":
		client, err := c.joplinClient()
		if err != nil {
			return err
		}
		c.store = newAttachmentStoreProxy(client)
		if c.notes == nil {
			c.notes = client
		}
	default:
		c.store = newAttachmentStoreProxy(attachments.NewMemoryStore())
	}
	return nil
}

func (c *Container) joplinClient() (*joplin.Client, error) {
	return joplin.New(c.Config.Joplin.BaseURL, c.Config.Joplin.Token, c.Config.Joplin.Timeout,
		joplin.WithLogger(logging.ModuleLogger(c.loggerProvider, "excalidraw.joplin")))
}

func (c *Container) configureNotes() error {
	if c.notes != nil {
		return nil
	}
	root := c.Config.HTTP.NotebookDir
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	nb, err := notebook.New(notebook.Config{Root: root, Recursive: true},
		notebook.WithLogger(logging.ModuleLogger(c.loggerProvider, "excalidraw.notebook")))
	if err != nil {
		return err
	}
	c.notes = nb
	return nil
}

func (c *Container) configureCodec() error {
	validator, err := validation.NewSceneValidator()
	if err != nil {
		return err
	}
	c.validator = validator
	c.codec = resources.NewService(c.store, c.stager,
		resources.WithTitlePrefix(c.Config.Resources.TitlePrefix),
		resources.WithLogger(logging.ResourcesLogger(c.loggerProvider)),
		resources.WithSceneChecker(validator),
	)
	return nil
}

func (c *Container) configureRender() {
	md := c.Config.Markdown
	logger := logging.RenderLogger(c.loggerProvider)

	c.tracker = cachebust.NewTracker(cachebust.WithParam(md.CacheParam))
	c.hook = render.NewInterceptor(render.Options{
		ChannelID:  c.Config.Bridge.ChannelID,
		V1Sentinel: md.V1Sentinel,
		V2Sentinel: md.V2Sentinel,
		V1Scheme:   md.V1Scheme,
		CacheParam: md.CacheParam,
		Migration:  c.migrationEnabled,
		Logger:     logger,
	})
	c.parser = markdown.NewGoldmarkParser(markdown.ParseOptions{Extensions: md.Extensions}, &render.Extension{
		Hook: c.hook,
		Resolver: render.StoreResolver{
			Store:   c.store,
			BaseURL: strings.TrimRight(md.ResourceBaseURL, "/"),
			Param:   md.CacheParam,
		},
		Logger: logger,
	})
}

func (c *Container) configureBridge() {
	logger := logging.BridgeLogger(c.loggerProvider)
	refs := bridge.References{
		V1Sentinel: c.Config.Markdown.V1Sentinel,
		V2Sentinel: c.Config.Markdown.V2Sentinel,
		V1Scheme:   c.Config.Markdown.V1Scheme,
	}

	c.registry = bridge.NewRegistry()
	c.wsServer = wsbridge.NewServer(c.registry, wsbridge.WithLogger(logger))
	if c.dialogs == nil {
		c.dialogs = c.wsServer
	}

	editorOpts := []editor.ServiceOption{
		editor.WithLogger(logging.EditorLogger(c.loggerProvider)),
		editor.WithTimeout(c.Config.Editor.Timeout),
		editor.WithReference(refs.V2),
	}
	if url := strings.TrimSpace(c.Config.Editor.AssetsURL); url != "" {
		editorOpts = append(editorOpts, editor.WithAssetsURL(url))
	}
	c.editorSvc = editor.NewService(c.codec, c.dialogs, c.notes, editorOpts...)

	c.bridgeHost = bridge.NewHost(c.codec, c.notes, c.editorSvc,
		bridge.WithReferences(refs),
		bridge.WithHostLogger(logger),
		bridge.WithMigration(c.migrationEnabled),
		bridge.WithChangeListener(c.resourceChanged),
		bridge.WithDocumentListener(c.wsServer.NotifyDocumentChanged),
	)
	c.bridgeHost.Register(c.registry, c.Config.Bridge.ChannelID)

	clientOpts := []bridge.ClientOption{
		bridge.WithDirect(bridge.Static(c.registry)),
		bridge.WithClientLogger(logger),
	}
	if c.Config.Bridge.RegistryFallback {
		bridge.PublishGlobal(c.registry)
		clientOpts = append(clientOpts, bridge.WithFallback(bridge.GlobalFallback))
	}
	c.client = bridge.NewClient(clientOpts...)
}

func (c *Container) migrationEnabled() bool {
	return c.Config.Features.Migration
}

// resourceChanged outdates every cache breaker issued for the SVG of
// resourceID, so pages rendered before the change converge on load, and
// tells connected views to refresh.
func (c *Container) resourceChanged(resourceID string) {
	if resourceID == "" {
		return
	}
	c.tracker.Invalidate(c.ResourceURL(resourceID))
	c.wsServer.NotifyResourceChanged(resourceID)
}

// ResourceURL is the cache-breaker-free URL rendered pages use for the SVG
// of resourceID.
func (c *Container) ResourceURL(resourceID string) string {
	return strings.TrimRight(c.Config.Markdown.ResourceBaseURL, "/") + "/" + resourceID + ".svg"
}

// Watch forwards attachment changes to connected views until ctx ends or
// Close is called. Stores without change events are ignored.
func (c *Container) Watch(ctx context.Context) error {
	sub, ok := c.store.current().(interface {
		Subscribe(context.Context) (<-chan attachments.ChangeEvent, error)
	})
	if !ok {
		return nil
	}

	c.watchMu.Lock()
	if c.watchCancel != nil {
		c.watchMu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	c.watchCancel = cancel
	c.watchMu.Unlock()

	events, err := sub.Subscribe(ctx)
	if err != nil {
		cancel()
		return err
	}
	logger := logging.BridgeLogger(c.loggerProvider)
	go func() {
		for evt := range events {
			if evt.Type == attachments.ChangeDeleted {
				continue
			}
			logger.Debug("bridge.resource.changed", "resource_id", evt.ID, "type", string(evt.Type))
			c.resourceChanged(evt.ID)
		}
	}()
	return nil
}

// Close stops the watcher, withdraws the global registry and closes a
// database the container opened itself.
func (c *Container) Close() error {
	c.watchMu.Lock()
	if c.watchCancel != nil {
		c.watchCancel()
		c.watchCancel = nil
	}
	c.watchMu.Unlock()

	if c.Config.Bridge.RegistryFallback {
		bridge.PublishGlobal(nil)
	}
	var errs error
	if c.ownsBunDB && c.bunDB != nil {
		errs = errors.Join(errs, c.bunDB.Close())
	}
	return errs
}

// SwapAttachmentStore replaces the backing store without rebuilding the codec.
func (c *Container) SwapAttachmentStore(store interfaces.AttachmentStore) {
	c.store.swap(store)
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

func (c *Container) AttachmentStore() interfaces.AttachmentStore { return c.store }

func (c *Container) Notes() Notes { return c.notes }

func (c *Container) Staging() *staging.Store { return c.stager }

func (c *Container) Codec() resources.Service { return c.codec }

func (c *Container) Tracker() *cachebust.Tracker { return c.tracker }

func (c *Container) Interceptor() *render.Interceptor { return c.hook }

func (c *Container) MarkdownParser() *markdown.GoldmarkParser { return c.parser }

func (c *Container) Registry() *bridge.Registry { return c.registry }

func (c *Container) BridgeHost() *bridge.Host { return c.bridgeHost }

func (c *Container) BridgeClient() *bridge.Client { return c.client }

func (c *Container) WebsocketServer() *wsbridge.Server { return c.wsServer }

func (c *Container) Editor() editor.Service { return c.editorSvc }

func storageProvider(cfg runtimeconfig.Config) string {
	provider := strings.ToLower(strings.TrimSpace(cfg.Storage.Provider))
	if provider == "" {
		return "memory"
	}
	return provider
}
