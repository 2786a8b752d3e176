package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/telemetry"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// VoteResult is the target's tally after a vote.
type VoteResult struct {
	TargetID string
	Kind     domain.TargetKind
	Vote     domain.VoteType
	Up       int
	Down     int
	Score    int
}

// VoteService records votes on questions and answers.
type VoteService struct {
	questions ports.QuestionRepository
	answers   ports.AnswerRepository
	votes     ports.VoteRepository
	runner    *Runner
	metrics   *telemetry.QAMetrics
	logger    *slog.Logger
}

// VoteServiceConfig contains the vote service's dependencies.
type VoteServiceConfig struct {
	Questions ports.QuestionRepository
	Answers   ports.AnswerRepository
	Votes     ports.VoteRepository
	Runner    *Runner
	Metrics   *telemetry.QAMetrics
	Logger    *slog.Logger
}

// NewVoteService creates a vote service. It panics on missing repositories.
func NewVoteService(cfg VoteServiceConfig) *VoteService {
	if cfg.Questions == nil || cfg.Answers == nil || cfg.Votes == nil {
		panic("app.NewVoteService: Questions, Answers and Votes are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runner := cfg.Runner
	if runner == nil {
		runner = NewRunner(logger)
	}

	return &VoteService{
		questions: cfg.Questions,
		answers:   cfg.Answers,
		votes:     cfg.Votes,
		runner:    runner,
		metrics:   cfg.Metrics,
		logger:    logger.With(slog.String("component", "app.VoteService")),
	}
}

type voteInput struct {
	target domain.VoteTarget
	raw    string
	vote   domain.VoteType
}

// VoteQuestion casts the actor's vote on an active question, replacing any
// earlier vote by the same actor.
func (s *VoteService) VoteQuestion(ctx context.Context, actor domain.Actor, questionID, voteType string) (*VoteResult, error) {
	return s.cast(ctx, actor, voteInput{
		target: domain.VoteTarget{Kind: domain.TargetQuestion, ID: questionID},
		raw:    voteType,
	})
}

// VoteAnswer casts the actor's vote on an active answer.
func (s *VoteService) VoteAnswer(ctx context.Context, actor domain.Actor, answerID, voteType string) (*VoteResult, error) {
	return s.cast(ctx, actor, voteInput{
		target: domain.VoteTarget{Kind: domain.TargetAnswer, ID: answerID},
		raw:    voteType,
	})
}

func (s *VoteService) cast(ctx context.Context, actor domain.Actor, in voteInput) (*VoteResult, error) {
	return Run(ctx, s.runner, Command[voteInput, struct{}, *VoteResult]{
		Name: "vote_" + string(in.target.Kind),
		Validate: func(_ context.Context, in voteInput) (voteInput, error) {
			vt, err := domain.ParseVoteType(in.raw)
			if err != nil {
				return in, err
			}

			in.vote = vt

			return in, nil
		},
		Load: func(ctx context.Context, in voteInput) (struct{}, error) {
			return struct{}{}, s.ensureTargetActive(ctx, in.target)
		},
		Apply: func(ctx context.Context, actor domain.Actor, in voteInput, _ struct{}) (*VoteResult, error) {
			tally, err := s.votes.CastVote(ctx, in.target, domain.Vote{UserID: actor.UserID, Type: in.vote})
			if err != nil {
				return nil, err
			}

			s.metrics.VoteCast(ctx, string(in.target.Kind), string(in.vote))

			return &VoteResult{
				TargetID: in.target.ID,
				Kind:     in.target.Kind,
				Vote:     in.vote,
				Up:       tally.Up,
				Down:     tally.Down,
				Score:    tally.Score(),
			}, nil
		},
	}, actor, in)
}

func (s *VoteService) ensureTargetActive(ctx context.Context, target domain.VoteTarget) error {
	switch target.Kind {
	case domain.TargetQuestion:
		q, err := s.questions.GetQuestion(ctx, target.ID)
		if err != nil {
			return err
		}

		return q.EnsureActive()
	case domain.TargetAnswer:
		a, err := s.answers.GetAnswer(ctx, target.ID)
		if err != nil {
			return err
		}

		return a.EnsureActive()
	default:
		return domain.NewValidationError("target", "unknown vote target")
	}
}
