package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// ContentService creates questions, answers and comments.
type ContentService struct {
	questions  ports.QuestionRepository
	answers    ports.AnswerRepository
	comments   ports.CommentRepository
	users      ports.UserRepository
	searcher   ports.QuestionSearcher
	dispatcher *Dispatcher
	runner     *Runner
	newID      func() string
	now        func() time.Time
	logger     *slog.Logger
}

// ContentServiceConfig contains the content service's dependencies.
type ContentServiceConfig struct {
	Questions ports.QuestionRepository
	Answers   ports.AnswerRepository
	Comments  ports.CommentRepository
	Users     ports.UserRepository

	// Searcher, when set, indexes new questions.
	Searcher ports.QuestionSearcher

	// Dispatcher, when set, notifies authors about new answers and comments.
	Dispatcher *Dispatcher

	Runner *Runner
	Logger *slog.Logger
}

// NewContentService creates a content service. It panics on missing repositories.
func NewContentService(cfg ContentServiceConfig) *ContentService {
	if cfg.Questions == nil || cfg.Answers == nil || cfg.Comments == nil || cfg.Users == nil {
		panic("app.NewContentService: Questions, Answers, Comments and Users are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runner := cfg.Runner
	if runner == nil {
		runner = NewRunner(logger)
	}

	return &ContentService{
		questions:  cfg.Questions,
		answers:    cfg.Answers,
		comments:   cfg.Comments,
		users:      cfg.Users,
		searcher:   cfg.Searcher,
		dispatcher: cfg.Dispatcher,
		runner:     runner,
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "app.ContentService")),
	}
}

// CreateQuestion stores a new question authored by the actor.
func (s *ContentService) CreateQuestion(ctx context.Context, actor domain.Actor, draft domain.QuestionDraft) (*domain.Question, error) {
	return Run(ctx, s.runner, Command[domain.QuestionDraft, struct{}, *domain.Question]{
		Name: "create_question",
		Validate: func(_ context.Context, d domain.QuestionDraft) (domain.QuestionDraft, error) {
			return d.Normalize()
		},
		Apply: func(ctx context.Context, actor domain.Actor, d domain.QuestionDraft, _ struct{}) (*domain.Question, error) {
			q := domain.NewQuestion(s.newID(), actor, d, s.now())

			err := s.questions.CreateQuestion(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("storing question: %w", err)
			}

			return q, nil
		},
		After: func(ctx context.Context, actor domain.Actor, _ domain.QuestionDraft, _ struct{}, q *domain.Question) error {
			s.bumpCounter(ctx, actor, domain.CounterQuestionsAsked)

			if s.searcher == nil {
				return nil
			}

			err := s.searcher.IndexQuestion(ctx, q)
			if err != nil {
				return fmt.Errorf("indexing question: %w", err)
			}

			return nil
		},
	}, actor, draft)
}

type answerInput struct {
	questionID string
	content    string
}

// CreateAnswer stores an answer on an active question and notifies the
// question's author.
func (s *ContentService) CreateAnswer(ctx context.Context, actor domain.Actor, questionID, content string) (*domain.Answer, error) {
	return Run(ctx, s.runner, Command[answerInput, *domain.Question, *domain.Answer]{
		Name: "create_answer",
		Validate: func(_ context.Context, in answerInput) (answerInput, error) {
			return in, domain.ValidateAnswerContent(in.content)
		},
		Load: func(ctx context.Context, in answerInput) (*domain.Question, error) {
			q, err := s.questions.GetQuestion(ctx, in.questionID)
			if err != nil {
				return nil, err
			}

			return q, q.EnsureActive()
		},
		Apply: func(ctx context.Context, actor domain.Actor, in answerInput, q *domain.Question) (*domain.Answer, error) {
			a, err := domain.NewAnswer(s.newID(), q.ID, actor, in.content, s.now())
			if err != nil {
				return nil, err
			}

			err = s.answers.CreateAnswer(ctx, a)
			if err != nil {
				return nil, fmt.Errorf("storing answer: %w", err)
			}

			return a, nil
		},
		After: func(ctx context.Context, actor domain.Actor, _ answerInput, q *domain.Question, a *domain.Answer) error {
			s.bumpCounter(ctx, actor, domain.CounterAnswersGiven)

			if s.dispatcher != nil {
				s.dispatcher.AnswerPosted(ctx, actor, q, a)
			}

			return nil
		},
	}, actor, answerInput{questionID: questionID, content: content})
}

type commentInput struct {
	answerID string
	content  string
}

// CreateComment stores a comment on an active answer and notifies the
// answer's author.
func (s *ContentService) CreateComment(ctx context.Context, actor domain.Actor, answerID, content string) (*domain.Comment, error) {
	return Run(ctx, s.runner, Command[commentInput, *domain.Answer, *domain.Comment]{
		Name: "create_comment",
		Validate: func(_ context.Context, in commentInput) (commentInput, error) {
			return in, domain.ValidateCommentContent(in.content)
		},
		Load: func(ctx context.Context, in commentInput) (*domain.Answer, error) {
			a, err := s.answers.GetAnswer(ctx, in.answerID)
			if err != nil {
				return nil, err
			}

			return a, a.EnsureActive()
		},
		Apply: func(ctx context.Context, actor domain.Actor, in commentInput, a *domain.Answer) (*domain.Comment, error) {
			c, err := domain.NewComment(s.newID(), a.ID, actor, in.content, s.now())
			if err != nil {
				return nil, err
			}

			err = s.comments.CreateComment(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("storing comment: %w", err)
			}

			return c, nil
		},
		After: func(ctx context.Context, actor domain.Actor, _ commentInput, a *domain.Answer, c *domain.Comment) error {
			s.ensureUser(ctx, actor)

			if s.dispatcher != nil {
				s.dispatcher.CommentPosted(ctx, actor, a, c)
			}

			return nil
		},
	}, actor, commentInput{answerID: answerID, content: content})
}

func (s *ContentService) ensureUser(ctx context.Context, actor domain.Actor) {
	err := s.users.EnsureUser(ctx, actor)
	if err != nil {
		logging.FromContextOr(ctx, s.logger).WarnContext(ctx, "recording commenter failed",
			slog.Any("error", err),
		)
	}
}

func (s *ContentService) bumpCounter(ctx context.Context, actor domain.Actor, counter domain.UserCounter) {
	err := s.users.IncrementCounter(ctx, actor, counter)
	if err != nil {
		logging.FromContextOr(ctx, s.logger).WarnContext(ctx, "incrementing author counter failed",
			slog.String("counter", string(counter)),
			slog.Any("error", err),
		)
	}
}
