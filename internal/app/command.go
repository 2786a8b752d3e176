package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
)

// Write operations run as a command pipeline:
//
//	VALIDATE  - normalize and check the input, no reads
//	LOAD      - fetch the records the command acts on
//	AUTHORIZE - check the actor against the loaded state
//	APPLY     - perform the write
//	AFTER     - best-effort effects of a committed write (search index,
//	            notifications). Errors are logged and never returned.
//
// AFTER runs on a context detached from the caller's cancellation, so a
// client that disconnects after APPLY still gets its effects.

// CommandStep names a stage of the pipeline.
type CommandStep string

const (
	StepValidate  CommandStep = "validate"
	StepLoad      CommandStep = "load"
	StepAuthorize CommandStep = "authorize"
	StepApply     CommandStep = "apply"
	StepAfter     CommandStep = "after"
)

// CommandError records the step a command failed in.
type CommandError struct {
	Command string
	Step    CommandStep
	Cause   error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Command, e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CommandError) Unwrap() error {
	return e.Cause
}

// Command describes one write operation. Only Apply is required.
type Command[I, S, O any] struct {
	// Name identifies the command in logs and errors.
	Name string

	// Validate may return a normalized copy of the input.
	Validate func(ctx context.Context, input I) (I, error)

	// Load fetches state the command depends on.
	Load func(ctx context.Context, input I) (S, error)

	// Authorize returns a ForbiddenError when the actor may not proceed.
	Authorize func(ctx context.Context, actor domain.Actor, input I, state S) error

	Apply func(ctx context.Context, actor domain.Actor, input I, state S) (O, error)

	After func(ctx context.Context, actor domain.Actor, input I, state S, out O) error
}

// Runner executes commands with shared logging.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger falls back to slog.Default().
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{logger: logger.With(slog.String("component", "app.Runner"))}
}

// Run executes cmd for an authenticated actor.
func Run[I, S, O any](ctx context.Context, r *Runner, cmd Command[I, S, O], actor domain.Actor, input I) (O, error) {
	var zero O

	logger := logging.FromContextOr(ctx, r.logger).With(slog.String("command", cmd.Name), slog.String("actor", actor.UserID))
	start := time.Now()

	err := actor.RequireAuthenticated()
	if err != nil {
		return zero, err
	}

	if cmd.Validate != nil {
		input, err = cmd.Validate(ctx, input)
		if err != nil {
			logger.DebugContext(ctx, "validation failed", slog.Any("error", err))

			return zero, &CommandError{Command: cmd.Name, Step: StepValidate, Cause: err}
		}
	}

	var state S
	if cmd.Load != nil {
		state, err = cmd.Load(ctx, input)
		if err != nil {
			return zero, &CommandError{Command: cmd.Name, Step: StepLoad, Cause: err}
		}
	}

	if cmd.Authorize != nil {
		err = cmd.Authorize(ctx, actor, input, state)
		if err != nil {
			logger.InfoContext(ctx, "command denied", slog.Any("error", err))

			return zero, &CommandError{Command: cmd.Name, Step: StepAuthorize, Cause: err}
		}
	}

	out, err := cmd.Apply(ctx, actor, input, state)
	if err != nil {
		logger.ErrorContext(ctx, "apply failed", slog.Any("error", err))

		return zero, &CommandError{Command: cmd.Name, Step: StepApply, Cause: err}
	}

	if cmd.After != nil {
		afterErr := cmd.After(context.WithoutCancel(ctx), actor, input, state, out)
		if afterErr != nil {
			logger.WarnContext(ctx, "after-commit effects failed", slog.Any("error", afterErr))
		}
	}

	logger.InfoContext(ctx, "command completed", slog.Duration("duration", time.Since(start)))

	return out, nil
}

// FailedStep extracts the pipeline step from a command error.
func FailedStep(err error) (CommandStep, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Step, true
	}

	return "", false
}
