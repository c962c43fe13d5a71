package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	codeValidation = "COMMAND_VALIDATION_FAILED"
	codeCanceled   = "COMMAND_CONTEXT_CANCELED"
	codeTimeout    = "COMMAND_CONTEXT_TIMEOUT"
	codeContext    = "COMMAND_CONTEXT_ERROR"
	codeExecute    = "COMMAND_EXECUTION_FAILED"
)

// wrap tags err with category and code unless a domain mapper already did.
func wrap(err error, category goerrors.Category, message, code string) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, category, message).WithTextCode(code)
}

func wrapValidationError(err error) error {
	return wrap(err, goerrors.CategoryValidation, "command validation failed", codeValidation)
}

func wrapExecuteError(err error) error {
	return wrap(err, goerrors.CategoryCommand, "command execution failed", codeExecute)
}

func wrapContextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return wrap(err, goerrors.CategoryCommand, "command execution cancelled", codeCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return wrap(err, goerrors.CategoryCommand, "command execution deadline exceeded", codeTimeout)
	default:
		return wrap(err, goerrors.CategoryCommand, "command context error", codeContext)
	}
}

// outcomeOf classifies a finished execution. A handler that returns a
// context error counts as interrupted rather than failed.
func outcomeOf(ctx context.Context, err error) Outcome {
	cause := err
	if cause == nil {
		cause = ctx.Err()
	}
	switch {
	case cause == nil:
		return OutcomeSucceeded
	case errors.Is(cause, context.DeadlineExceeded):
		return OutcomeTimedOut
	case errors.Is(cause, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}
