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

// Cascader soft-deletes content. Deleting an answer deactivates its comments;
// deleting a question leaves its answers as they are.
type Cascader struct {
	questions ports.QuestionRepository
	answers   ports.AnswerRepository
	comments  ports.CommentRepository
	searcher  ports.QuestionSearcher
	runner    *Runner
	metrics   *telemetry.QAMetrics
	logger    *slog.Logger
}

// CascaderConfig contains the cascader's dependencies.
type CascaderConfig struct {
	Questions ports.QuestionRepository
	Answers   ports.AnswerRepository
	Comments  ports.CommentRepository

	// Searcher, when set, drops deleted questions from the search index.
	Searcher ports.QuestionSearcher

	Runner  *Runner
	Metrics *telemetry.QAMetrics
	Logger  *slog.Logger
}

// NewCascader creates a cascader. It panics on missing repositories.
func NewCascader(cfg CascaderConfig) *Cascader {
	if cfg.Questions == nil || cfg.Answers == nil || cfg.Comments == nil {
		panic("app.NewCascader: Questions, Answers and Comments are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runner := cfg.Runner
	if runner == nil {
		runner = NewRunner(logger)
	}

	return &Cascader{
		questions: cfg.Questions,
		answers:   cfg.Answers,
		comments:  cfg.Comments,
		searcher:  cfg.Searcher,
		runner:    runner,
		metrics:   cfg.Metrics,
		logger:    logger.With(slog.String("component", "app.Cascader")),
	}
}

// authorizeDelete lets the author or an admin delete.
func authorizeDelete(kind string) func(context.Context, domain.Actor, string, string) error {
	return func(_ context.Context, actor domain.Actor, _ string, authorID string) error {
		if !actor.CanModerate(authorID) {
			return domain.NewForbiddenError("delete "+kind, "only the author or an admin can delete this "+kind)
		}

		return nil
	}
}

// DeleteQuestion soft-deletes a question.
func (c *Cascader) DeleteQuestion(ctx context.Context, actor domain.Actor, id string) error {
	_, err := Run(ctx, c.runner, Command[string, string, struct{}]{
		Name: "delete_question",
		Load: func(ctx context.Context, id string) (string, error) {
			q, err := c.questions.GetQuestion(ctx, id)
			if err != nil {
				return "", err
			}

			return q.AuthorID, q.EnsureActive()
		},
		Authorize: authorizeDelete("question"),
		Apply: func(ctx context.Context, _ domain.Actor, id string, _ string) (struct{}, error) {
			err := c.questions.DeactivateQuestion(ctx, id)
			if err == nil {
				c.metrics.ContentDeleted(ctx, "question", 0)
			}

			return struct{}{}, err
		},
		After: func(ctx context.Context, _ domain.Actor, id string, _ string, _ struct{}) error {
			if c.searcher == nil {
				return nil
			}

			err := c.searcher.RemoveQuestion(ctx, id)
			if err != nil {
				return fmt.Errorf("removing question from search index: %w", err)
			}

			return nil
		},
	}, actor, id)

	return err
}

// DeleteAnswer soft-deletes an answer and every comment on it.
func (c *Cascader) DeleteAnswer(ctx context.Context, actor domain.Actor, id string) error {
	_, err := Run(ctx, c.runner, Command[string, string, int]{
		Name: "delete_answer",
		Load: func(ctx context.Context, id string) (string, error) {
			a, err := c.answers.GetAnswer(ctx, id)
			if err != nil {
				return "", err
			}

			return a.AuthorID, a.EnsureActive()
		},
		Authorize: authorizeDelete("answer"),
		Apply: func(ctx context.Context, _ domain.Actor, id string, _ string) (int, error) {
			cascaded, err := c.answers.DeactivateAnswer(ctx, id)
			if err != nil {
				return 0, err
			}

			c.metrics.ContentDeleted(ctx, "answer", cascaded)
			logging.FromContextOr(ctx, c.logger).InfoContext(ctx, "answer deleted",
				slog.String("answer_id", id),
				slog.Int("comments_deactivated", cascaded),
			)

			return cascaded, nil
		},
	}, actor, id)

	return err
}

// DeleteComment soft-deletes a comment.
func (c *Cascader) DeleteComment(ctx context.Context, actor domain.Actor, id string) error {
	_, err := Run(ctx, c.runner, Command[string, string, struct{}]{
		Name: "delete_comment",
		Load: func(ctx context.Context, id string) (string, error) {
			cm, err := c.comments.GetComment(ctx, id)
			if err != nil {
				return "", err
			}

			return cm.AuthorID, cm.EnsureActive()
		},
		Authorize: authorizeDelete("comment"),
		Apply: func(ctx context.Context, _ domain.Actor, id string, _ string) (struct{}, error) {
			err := c.comments.DeactivateComment(ctx, id)
			if err == nil {
				c.metrics.ContentDeleted(ctx, "comment", 0)
			}

			return struct{}{}, err
		},
	}, actor, id)

	return err
}
