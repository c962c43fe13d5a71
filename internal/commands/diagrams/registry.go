package diagramscmd

import (
	"errors"

	"github.com/goliatone/go-excalidraw/internal/commands"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the handlers built by RegisterDiagramCommands.
type HandlerSet struct {
	Convert *ConvertV1Handler
	Edit    *EditDiagramHandler
	Insert  *InsertDiagramHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	convertOpts []commands.HandlerOption[ConvertV1Command]
	editOpts    []commands.HandlerOption[EditDiagramCommand]
	insertOpts  []commands.HandlerOption[InsertDiagramCommand]
}

// WithConvertHandlerOptions forwards options to the convert handler.
func WithConvertHandlerOptions(opts ...commands.HandlerOption[ConvertV1Command]) Option {
	return func(cfg *options) {
		cfg.convertOpts = append(cfg.convertOpts, opts...)
	}
}

// WithEditHandlerOptions forwards options to the edit handler.
func WithEditHandlerOptions(opts ...commands.HandlerOption[EditDiagramCommand]) Option {
	return func(cfg *options) {
		cfg.editOpts = append(cfg.editOpts, opts...)
	}
}

// WithInsertHandlerOptions forwards options to the insert handler.
func WithInsertHandlerOptions(opts ...commands.HandlerOption[InsertDiagramCommand]) Option {
	return func(cfg *options) {
		cfg.insertOpts = append(cfg.insertOpts, opts...)
	}
}

// RegisterDiagramCommands builds the diagram handlers and registers them
// with reg when it is non-nil.
func RegisterDiagramCommands(reg CommandRegistry, converter Converter, ed Editor, provider interfaces.LoggerProvider, gates FeatureGates, opts ...Option) (*HandlerSet, error) {
	if converter == nil {
		return nil, errors.New("diagrams command registration: converter is nil")
	}
	if ed == nil {
		return nil, errors.New("diagrams command registration: editor is nil")
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "diagrams")
	set := &HandlerSet{
		Convert: NewConvertV1Handler(converter, logger, gates, cfg.convertOpts...),
		Edit:    NewEditDiagramHandler(ed, logger, cfg.editOpts...),
		Insert:  NewInsertDiagramHandler(ed, logger, cfg.insertOpts...),
	}

	if reg != nil {
		for _, h := range []any{set.Convert, set.Edit, set.Insert} {
			if err := reg.RegisterCommand(h); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
