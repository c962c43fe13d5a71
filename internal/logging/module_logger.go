package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

const (
	rootModule      = "excalidraw"
	stagingModule   = "excalidraw.staging"
	resourcesModule = "excalidraw.resources"
	renderModule    = "excalidraw.render"
	bridgeModule    = "excalidraw.bridge"
	editorModule    = "excalidraw.editor"
	httpModule      = "excalidraw.http"
)

const (
	fieldResourceID = "resource_id"
	fieldDocumentID = "document_id"
	fieldAction     = "action"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		return fieldsLogger.WithFields(map[string]any{
			"module": module,
		})
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// StagingLogger returns the logger namespace reserved for the scratch store.
func StagingLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, stagingModule)
}

// ResourcesLogger returns the logger namespace reserved for the diagram codec.
func ResourcesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, resourcesModule)
}

// RenderLogger returns the logger namespace reserved for markdown interception.
func RenderLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, renderModule)
}

// BridgeLogger returns the logger namespace reserved for bridge dispatch.
func BridgeLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, bridgeModule)
}

// EditorLogger returns the logger namespace reserved for the editor dialog.
func EditorLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, editorModule)
}

// HTTPLogger returns the logger namespace reserved for the HTTP host.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// WithResourceContext enriches the provided logger with the resource, document
// and action being processed. Empty values are ignored.
func WithResourceContext(logger interfaces.Logger, resourceID, documentID, action string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(resourceID); trimmed != "" {
		fields[fieldResourceID] = trimmed
	}
	if trimmed := strings.TrimSpace(documentID); trimmed != "" {
		fields[fieldDocumentID] = trimmed
	}
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		fields[fieldAction] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
