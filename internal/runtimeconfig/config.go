package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrTitlePrefixRequired = errors.New("excalidraw config: resource title prefix is required")
var ErrSentinelRequired = errors.New("excalidraw config: markdown sentinels are required")

// ErrSentinelsMustDiffer guards classification: identical alt-text sentinels make v1 and v2 tokens indistinguishable.
var ErrSentinelsMustDiffer = errors.New("excalidraw config: v1 and v2 sentinels must differ")
var ErrV1SchemeInvalid = errors.New("excalidraw config: v1 scheme must be alphanumeric")
var ErrChannelIDRequired = errors.New("excalidraw config: bridge channel id is required")
var ErrStagingDirRequired = errors.New("excalidraw config: staging directory is required")
var ErrStorageProviderUnknown = errors.New("excalidraw config: storage provider is invalid")
var ErrStorageDriverUnknown = errors.New("excalidraw config: storage driver is invalid")
var ErrStorageDSNRequired = errors.New("excalidraw config: storage dsn is required for the bun provider")
var ErrJoplinTokenRequired = errors.New("excalidraw config: joplin token is required for the joplin provider")
var ErrLoggingProviderRequired = errors.New("excalidraw config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("excalidraw config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("excalidraw config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("excalidraw config: logging format is invalid")
var ErrTimeoutInvalid = errors.New("excalidraw config: timeouts must be zero or positive")

// Config aggregates the settings of the diagram runtime.
type Config struct {
	Resources ResourcesConfig
	Markdown  MarkdownConfig
	Bridge    BridgeConfig
	Staging   StagingConfig
	Storage   StorageConfig
	Joplin    JoplinConfig
	Editor    EditorConfig
	Commands  CommandsConfig
	HTTP      HTTPConfig
	Logging   LoggingConfig
	Features  Features
}

// ResourcesConfig controls the attachment title convention linking a diagram pair.
type ResourcesConfig struct {
	TitlePrefix string
}

// MarkdownConfig holds the markdown reference forms recognised by the render interceptor.
type MarkdownConfig struct {
	V1Sentinel string
	V2Sentinel string
	V1Scheme   string
	// CacheParam is the query parameter carrying the cache breaker.
	CacheParam string
	// ResourceBaseURL prefixes rendered `:/<id>` references.
	ResourceBaseURL string
	Extensions      []string
}

// BridgeConfig configures the message channel between rendered views and the host.
type BridgeConfig struct {
	ChannelID string
	// RegistryFallback enables the plugin-registry sender when no direct primitive is reachable.
	RegistryFallback bool
}

// StagingConfig configures the scratch directory used before attachment writes.
type StagingConfig struct {
	Dir          string
	ClearOnStart bool
}

// StorageConfig selects the attachment store.
type StorageConfig struct {
	Provider string
	Driver   string
	DSN      string
}

// JoplinConfig points at a running Joplin Data API.
type JoplinConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// EditorConfig configures the editor dialog.
type EditorConfig struct {
	AssetsURL string
	// Dir holds a local Excalidraw build served under /assets/local-excalidraw.
	Dir string
	// Timeout bounds a pending dialog. Zero waits until the user closes it.
	Timeout time.Duration
}

type CommandsConfig struct {
	Timeout    time.Duration
	MaxRetries int
}

type HTTPConfig struct {
	Addr        string
	NotebookDir string
}

// LoggingConfig selects the logger provider used when Features.Logger is enabled.
type LoggingConfig struct {
	Provider string
	Level    string
	Format   string
	Focus    []string
}

// Features toggles optional behaviour.
type Features struct {
	Logger    bool
	Migration bool
	Websocket bool
}

// DefaultConfig returns defaults compatible with notes written by the Joplin plugin.
func DefaultConfig() Config {
	return Config{
		Resources: ResourcesConfig{
			TitlePrefix: "excalidraw-",
		},
		Markdown: MarkdownConfig{
			V1Sentinel:      "excalidraw",
			V2Sentinel:      "excalidraw.svg",
			V1Scheme:        "excalidraw",
			CacheParam:      "t",
			ResourceBaseURL: "/resources",
		},
		Bridge: BridgeConfig{
			ChannelID:        "excalidraw-script",
			RegistryFallback: true,
		},
		Staging: StagingConfig{
			Dir:          filepath.Join(os.TempDir(), "joplin-excalidraw-plugin"),
			ClearOnStart: true,
		},
		Storage: StorageConfig{
			Provider: "memory",
			Driver:   "sqlite3",
		},
		Joplin: JoplinConfig{
			BaseURL: "http://127.0.0.1:41184",
			Timeout: 30 * time.Second,
		},
		Editor: EditorConfig{
			AssetsURL: "/assets/local-excalidraw/index.html",
		},
		Commands: CommandsConfig{
			Timeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8787",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		Features: Features{
			Migration: true,
			Websocket: true,
		},
	}
}

// Validate reports configuration combinations the runtime cannot honour.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Resources.TitlePrefix) == "" {
		return ErrTitlePrefixRequired
	}
	v1 := strings.TrimSpace(cfg.Markdown.V1Sentinel)
	v2 := strings.TrimSpace(cfg.Markdown.V2Sentinel)
	if v1 == "" || v2 == "" {
		return ErrSentinelRequired
	}
	if v1 == v2 {
		return ErrSentinelsMustDiffer
	}
	if !isAlphanumeric(cfg.Markdown.V1Scheme) {
		return fmt.Errorf("%w: %q", ErrV1SchemeInvalid, cfg.Markdown.V1Scheme)
	}
	if strings.TrimSpace(cfg.Bridge.ChannelID) == "" {
		return ErrChannelIDRequired
	}
	if strings.TrimSpace(cfg.Staging.Dir) == "" {
		return ErrStagingDirRequired
	}
	if cfg.Editor.Timeout < 0 || cfg.Commands.Timeout < 0 || cfg.Joplin.Timeout < 0 {
		return ErrTimeoutInvalid
	}

	switch normalize(cfg.Storage.Provider) {
	case "", "memory":
	case "bun":
		if !isSupportedDriver(cfg.Storage.Driver) {
			return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
		}
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return ErrStorageDSNRequired
		}
	case "joplin":
		if strings.TrimSpace(cfg.Joplin.Token) == "" {
			return ErrJoplinTokenRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, cfg.Storage.Provider)
	}

	if cfg.Features.Logger {
		provider := normalize(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isAlphanumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func isSupportedDriver(driver string) bool {
	switch normalize(driver) {
	case "sqlite3", "sqlite", "postgres", "pg":
		return true
	default:
		return false
	}
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch normalize(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch normalize(format) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
