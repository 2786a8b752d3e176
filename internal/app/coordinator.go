package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
	"github.com/jsamuelsen/qa-service/internal/platform/telemetry"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// Coordinator maintains the single-accepted and single-pinned answer per question.
type Coordinator struct {
	questions ports.QuestionRepository
	answers   ports.AnswerRepository
	locker    ports.QuestionLocker
	runner    *Runner
	metrics   *telemetry.QAMetrics
	logger    *slog.Logger
}

// CoordinatorConfig contains the coordinator's dependencies.
type CoordinatorConfig struct {
	Questions ports.QuestionRepository
	Answers   ports.AnswerRepository

	// Locker serializes flag changes per question. Defaults to an in-process KeyedMutex.
	Locker ports.QuestionLocker

	Runner  *Runner
	Metrics *telemetry.QAMetrics
	Logger  *slog.Logger
}

// NewCoordinator creates a coordinator. It panics on missing repositories.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Questions == nil || cfg.Answers == nil {
		panic("app.NewCoordinator: Questions and Answers are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	locker := cfg.Locker
	if locker == nil {
		locker = NewKeyedMutex()
	}

	runner := cfg.Runner
	if runner == nil {
		runner = NewRunner(logger)
	}

	return &Coordinator{
		questions: cfg.Questions,
		answers:   cfg.Answers,
		locker:    locker,
		runner:    runner,
		metrics:   cfg.Metrics,
		logger:    logger.With(slog.String("component", "app.Coordinator")),
	}
}

type flagState struct {
	question *domain.Question
	answer   *domain.Answer
}

// Accept marks the answer as the question's accepted answer, clearing any
// previous one. Only the question's author may accept.
func (c *Coordinator) Accept(ctx context.Context, actor domain.Actor, answerID string) (*domain.Answer, error) {
	return c.setFlag(ctx, actor, answerID, domain.FlagAccepted)
}

// Pin marks the answer as the question's pinned answer, clearing any previous one.
func (c *Coordinator) Pin(ctx context.Context, actor domain.Actor, answerID string) (*domain.Answer, error) {
	return c.setFlag(ctx, actor, answerID, domain.FlagPinned)
}

func (c *Coordinator) setFlag(ctx context.Context, actor domain.Actor, answerID string, flag domain.AnswerFlag) (*domain.Answer, error) {
	return Run(ctx, c.runner, Command[string, flagState, *domain.Answer]{
		Name: flag.Verb() + "_answer",
		Load: func(ctx context.Context, answerID string) (flagState, error) {
			return c.loadActive(ctx, answerID)
		},
		Authorize: func(_ context.Context, actor domain.Actor, _ string, st flagState) error {
			if actor.UserID != st.question.AuthorID {
				return domain.NewForbiddenError(flag.Verb()+" answer",
					fmt.Sprintf("only the question owner can %s answers", flag.Verb()))
			}

			return nil
		},
		Apply: func(ctx context.Context, _ domain.Actor, answerID string, st flagState) (*domain.Answer, error) {
			release, err := c.locker.Lock(ctx, "question:"+st.question.ID)
			if err != nil {
				return nil, fmt.Errorf("locking question: %w", err)
			}
			defer release()

			// State may have changed while waiting for the lock.
			_, err = c.loadActive(ctx, answerID)
			if err != nil {
				return nil, err
			}

			err = c.answers.SetExclusiveFlag(ctx, st.question.ID, answerID, flag)
			if err != nil {
				return nil, fmt.Errorf("setting %s flag: %w", flag, err)
			}

			updated, err := c.answers.GetAnswer(ctx, answerID)
			if err != nil {
				return nil, fmt.Errorf("reloading answer: %w", err)
			}

			c.metrics.AnswerFlagged(ctx, string(flag))
			logging.FromContextOr(ctx, c.logger).InfoContext(ctx, "answer flagged",
				slog.String("flag", string(flag)),
				slog.String("question_id", st.question.ID),
				slog.String("answer_id", answerID),
			)

			return updated, nil
		},
	}, actor, answerID)
}

// loadActive returns the answer and its question, both required to be active.
func (c *Coordinator) loadActive(ctx context.Context, answerID string) (flagState, error) {
	a, err := c.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return flagState{}, err
	}

	err = a.EnsureActive()
	if err != nil {
		return flagState{}, err
	}

	q, err := c.questions.GetQuestion(ctx, a.QuestionID)
	if err != nil {
		return flagState{}, err
	}

	err = q.EnsureActive()
	if err != nil {
		return flagState{}, err
	}

	return flagState{question: q, answer: a}, nil
}
