package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	diagramscmd "github.com/goliatone/go-excalidraw/internal/commands/diagrams"
)

// Dispatcher subscribes diagram handlers to the go-command dispatcher.
// Retries apply to conversions only; a failed edit or insert is a dismissed
// dialog and must not reopen.
type Dispatcher struct {
	MaxRetries int
}

var _ CommandDispatcher = Dispatcher{}

// NewDispatcher returns a dispatcher retrying failed commands maxRetries times.
func NewDispatcher(maxRetries int) Dispatcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return Dispatcher{MaxRetries: maxRetries}
}

// RegisterCommand subscribes handler for its message type.
func (d Dispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	switch h := handler.(type) {
	case *diagramscmd.ConvertV1Handler:
		return dispatcher.SubscribeCommand[diagramscmd.ConvertV1Command](h, runner.WithMaxRetries(d.MaxRetries)), nil
	case *diagramscmd.EditDiagramHandler:
		return dispatcher.SubscribeCommand[diagramscmd.EditDiagramCommand](h, runner.WithMaxRetries(0)), nil
	case *diagramscmd.InsertDiagramHandler:
		return dispatcher.SubscribeCommand[diagramscmd.InsertDiagramCommand](h, runner.WithMaxRetries(0)), nil
	default:
		return nil, fmt.Errorf("commands: unsupported handler %T", handler)
	}
}

// ErrNoDiagram is returned when a dispatch completed without a handler
// reporting a diagram, typically because none is subscribed.
var ErrNoDiagram = errors.New("commands: insert produced no diagram")

// DispatchInsert sends InsertDiagramCommand through the dispatcher and
// returns the SVG id reported by the subscribed handler.
func DispatchInsert(ctx context.Context) (string, error) {
	var svgID string
	msg := diagramscmd.InsertDiagramCommand{OnComplete: func(id string) { svgID = id }}
	if err := dispatcher.Dispatch(ctx, msg); err != nil {
		return "", err
	}
	if svgID == "" {
		return "", ErrNoDiagram
	}
	return svgID, nil
}

// DispatchConvert sends ConvertV1Command through the dispatcher, so bridge
// conversions get the configured retries. It fits bridge.Host.Route.
func DispatchConvert(ctx context.Context, jsonID string) (string, error) {
	var svgID string
	msg := diagramscmd.ConvertV1Command{JSONID: jsonID, OnComplete: func(id string) { svgID = id }}
	if err := dispatcher.Dispatch(ctx, msg); err != nil {
		return "", err
	}
	if svgID == "" {
		return "", ErrNoDiagram
	}
	return svgID, nil
}
