package commands

import (
	"errors"

	"github.com/goliatone/go-excalidraw/internal/bridge"
	internalcommands "github.com/goliatone/go-excalidraw/internal/commands"
	diagramscmd "github.com/goliatone/go-excalidraw/internal/commands/diagrams"
	"github.com/goliatone/go-excalidraw/internal/di"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// CommandRegistry records command handlers so hosts can expose them via CLI or menus.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CommandDispatcher subscribes command handlers to a dispatcher implementation.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

// RegistrationOptions configures how handlers are registered during construction.
type RegistrationOptions struct {
	Registry       CommandRegistry
	Dispatcher     CommandDispatcher
	LoggerProvider interfaces.LoggerProvider
}

// RegistrationResult captures the constructed command handlers and any dispatcher subscriptions.
type RegistrationResult struct {
	Handlers      []any
	Subscriptions []CommandSubscription
}

// Unsubscribe tears down every dispatcher subscription.
func (r *RegistrationResult) Unsubscribe() {
	if r == nil {
		return
	}
	for _, sub := range r.Subscriptions {
		sub.Unsubscribe()
	}
	r.Subscriptions = nil
}

// RegisterContainerCommands builds the diagram command handlers exposed by
// the container and optionally registers them with registry/dispatcher
// integrations.
func RegisterContainerCommands(container *di.Container, opts RegistrationOptions) (*RegistrationResult, error) {
	if container == nil {
		return &RegistrationResult{}, nil
	}

	cfg := container.Config

	provider := opts.LoggerProvider
	if provider == nil {
		provider = container.LoggerProvider()
	}

	result := &RegistrationResult{
		Handlers:      make([]any, 0),
		Subscriptions: make([]CommandSubscription, 0),
	}

	var errs error

	register := func(handler any) {
		if handler == nil {
			return
		}
		result.Handlers = append(result.Handlers, handler)

		if opts.Registry != nil {
			if err := opts.Registry.RegisterCommand(handler); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		if opts.Dispatcher != nil {
			subscription, err := opts.Dispatcher.RegisterCommand(handler)
			if err != nil {
				errs = errors.Join(errs, err)
			} else if subscription != nil {
				result.Subscriptions = append(result.Subscriptions, subscription)
			}
		}
	}

	gates := diagramscmd.FeatureGates{
		MigrationEnabled: func() bool { return cfg.Features.Migration },
	}
	timeout := cfg.Commands.Timeout

	handlerSet, err := diagramscmd.RegisterDiagramCommands(nil, container.BridgeHost(), container.Editor(), provider, gates,
		diagramscmd.WithConvertHandlerOptions(internalcommands.WithTimeout[diagramscmd.ConvertV1Command](timeout)),
		// dialogs wait for the user
		diagramscmd.WithEditHandlerOptions(internalcommands.WithTimeout[diagramscmd.EditDiagramCommand](0)),
		diagramscmd.WithInsertHandlerOptions(internalcommands.WithTimeout[diagramscmd.InsertDiagramCommand](0)),
	)
	if err != nil {
		return result, err
	}

	if cfg.Features.Migration {
		register(handlerSet.Convert)
	}
	register(handlerSet.Edit)
	register(handlerSet.Insert)

	return result, errs
}

// RouteBridgeConversions makes the bridge host run conversions through
// DispatchConvert, so they get the dispatcher's retries. Call it once a
// Dispatcher holds the convert subscription. It does nothing while migration
// is off.
func RouteBridgeConversions(container *di.Container) {
	if container == nil || !container.Config.Features.Migration {
		return
	}
	container.BridgeHost().Route(bridge.MessageConvert, DispatchConvert)
}
