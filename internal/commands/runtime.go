package commands

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// DefaultCommandTimeout bounds non-interactive commands such as conversions.
// Dialog-backed commands opt out with WithTimeout(0).
const DefaultCommandTimeout = 30 * time.Second

const loggerRoot = "excalidraw.commands"

// EnsureContext substitutes context.Background for nil.
func EnsureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// WithCommandTimeout is a no-op for non-positive timeouts.
func WithCommandTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// EnsureLogger substitutes the no-op logger for nil.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger != nil {
		return logger
	}
	return logging.NoOp()
}

// CommandLogger scopes a logger under excalidraw.commands.<group> and tags
// every entry with the command group.
func CommandLogger(provider interfaces.LoggerProvider, group string) interfaces.Logger {
	group = strings.TrimSpace(group)
	if group == "" {
		group = "core"
	}
	return logging.WithFields(
		logging.ModuleLogger(provider, loggerRoot+"."+group),
		map[string]any{"component": "command", "command_group": group},
	)
}
