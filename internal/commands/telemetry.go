package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// Outcome is the result class reported after a command runs.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeTimedOut  Outcome = "timed_out"
)

// Interrupted reports whether the command stopped on its context.
func (o Outcome) Interrupted() bool {
	return o == OutcomeCanceled || o == OutcomeTimedOut
}

// TelemetryInfo describes one execution.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Outcome   Outcome
	Logger    interfaces.Logger
}

// Telemetry is invoked once per execution, after the error has been wrapped.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry logs outcomes. Interruptions log at warn since they are
// usually a closed dialog or a shutdown, not a fault.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	logger = EnsureLogger(logger)
	return func(_ context.Context, _ T, info TelemetryInfo) {
		entry := logging.WithFields(logger, info.Fields)
		args := []any{"duration_ms", info.Duration.Milliseconds(), "outcome", string(info.Outcome)}
		switch {
		case info.Outcome == OutcomeSucceeded:
			entry.Info("command.execute.success", args...)
		case info.Outcome.Interrupted():
			entry.Warn("command.execute.interrupted", append(args, "error", info.Error)...)
		default:
			entry.Error("command.execute.failed", append(args, "error", info.Error)...)
		}
	}
}
