package diagramscmd

import (
	"context"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-excalidraw/internal/commands"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

const (
	convertOperation = "diagrams.convert_v1"
	editOperation    = "diagrams.edit"
	insertOperation  = "diagrams.insert"
)

// Converter migrates v1 diagrams. Satisfied by bridge.Host.
type Converter interface {
	Convert(ctx context.Context, jsonID string) (string, error)
}

// Editor opens and inserts diagrams. Satisfied by editor.Service.
type Editor interface {
	Open(ctx context.Context, svgID string) (string, error)
	Insert(ctx context.Context) (string, error)
}

var (
	_ command.Commander[ConvertV1Command]     = (*ConvertV1Handler)(nil)
	_ command.Commander[EditDiagramCommand]   = (*EditDiagramHandler)(nil)
	_ command.Commander[InsertDiagramCommand] = (*InsertDiagramHandler)(nil)
)

// ConvertV1Handler runs ConvertV1Command.
type ConvertV1Handler struct {
	inner *commands.Handler[ConvertV1Command]
}

// NewConvertV1Handler binds the handler to a converter.
func NewConvertV1Handler(converter Converter, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[ConvertV1Command]) *ConvertV1Handler {
	logger = commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ConvertV1Command) error {
		if !gates.migrationEnabled() {
			return mapError(ErrMigrationDisabled)
		}
		svgID, err := converter.Convert(ctx, msg.JSONID)
		if err != nil {
			return mapError(err)
		}
		if msg.OnComplete != nil {
			msg.OnComplete(svgID)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ConvertV1Command]{
		commands.WithLogger[ConvertV1Command](logger),
		commands.WithOperation[ConvertV1Command](convertOperation),
		commands.WithMessageFields(func(msg ConvertV1Command) map[string]any {
			return map[string]any{"resource_id": msg.JSONID}
		}),
	}
	return &ConvertV1Handler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[ConvertV1Command].
func (h *ConvertV1Handler) Execute(ctx context.Context, msg ConvertV1Command) error {
	return h.inner.Execute(ctx, msg)
}

// EditDiagramHandler runs EditDiagramCommand.
type EditDiagramHandler struct {
	inner *commands.Handler[EditDiagramCommand]
}

// NewEditDiagramHandler binds the handler to an editor. Dialogs wait for the
// user, so callers usually pass commands.WithTimeout with zero.
func NewEditDiagramHandler(ed Editor, logger interfaces.Logger, opts ...commands.HandlerOption[EditDiagramCommand]) *EditDiagramHandler {
	logger = commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg EditDiagramCommand) error {
		svgID, err := ed.Open(ctx, msg.SVGID)
		if err != nil {
			return mapError(err)
		}
		if msg.OnComplete != nil {
			msg.OnComplete(svgID)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[EditDiagramCommand]{
		commands.WithLogger[EditDiagramCommand](logger),
		commands.WithOperation[EditDiagramCommand](editOperation),
		commands.WithMessageFields(func(msg EditDiagramCommand) map[string]any {
			return map[string]any{"resource_id": msg.SVGID}
		}),
	}
	return &EditDiagramHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[EditDiagramCommand].
func (h *EditDiagramHandler) Execute(ctx context.Context, msg EditDiagramCommand) error {
	return h.inner.Execute(ctx, msg)
}

// InsertDiagramHandler runs InsertDiagramCommand.
type InsertDiagramHandler struct {
	inner *commands.Handler[InsertDiagramCommand]
}

// NewInsertDiagramHandler binds the handler to an editor.
func NewInsertDiagramHandler(ed Editor, logger interfaces.Logger, opts ...commands.HandlerOption[InsertDiagramCommand]) *InsertDiagramHandler {
	logger = commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg InsertDiagramCommand) error {
		svgID, err := ed.Insert(ctx)
		if err != nil {
			return mapError(err)
		}
		logging.WithFields(logger, map[string]any{"resource_id": svgID}).Info("diagrams.command.insert.completed")
		if msg.OnComplete != nil {
			msg.OnComplete(svgID)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[InsertDiagramCommand]{
		commands.WithLogger[InsertDiagramCommand](logger),
		commands.WithOperation[InsertDiagramCommand](insertOperation),
	}
	return &InsertDiagramHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[InsertDiagramCommand].
func (h *InsertDiagramHandler) Execute(ctx context.Context, msg InsertDiagramCommand) error {
	return h.inner.Execute(ctx, msg)
}
