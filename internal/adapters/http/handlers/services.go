package handlers

import (
	"context"

	"github.com/jsamuelsen/qa-service/internal/app"
	"github.com/jsamuelsen/qa-service/internal/domain"
)

// QuestionQueries serves the read side of questions.
type QuestionQueries interface {
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) (*app.QuestionPage, error)
	GetQuestionDetail(ctx context.Context, id string) (*app.QuestionDetail, error)
}

// ContentCreator posts questions, answers and comments.
type ContentCreator interface {
	CreateQuestion(ctx context.Context, actor domain.Actor, draft domain.QuestionDraft) (*domain.Question, error)
	CreateAnswer(ctx context.Context, actor domain.Actor, questionID, content string) (*domain.Answer, error)
	CreateComment(ctx context.Context, actor domain.Actor, answerID, content string) (*domain.Comment, error)
}

// Voter records votes.
type Voter interface {
	VoteQuestion(ctx context.Context, actor domain.Actor, id, voteType string) (*app.VoteResult, error)
	VoteAnswer(ctx context.Context, actor domain.Actor, id, voteType string) (*app.VoteResult, error)
}

// ContentRemover soft-deletes content.
type ContentRemover interface {
	DeleteQuestion(ctx context.Context, actor domain.Actor, id string) error
	DeleteAnswer(ctx context.Context, actor domain.Actor, id string) error
	DeleteComment(ctx context.Context, actor domain.Actor, id string) error
}

// AnswerMarker accepts and pins answers.
type AnswerMarker interface {
	Accept(ctx context.Context, actor domain.Actor, answerID string) (*domain.Answer, error)
	Pin(ctx context.Context, actor domain.Actor, answerID string) (*domain.Answer, error)
}

// AuthorLookup resolves the display summary of a content author.
type AuthorLookup interface {
	Author(ctx context.Context, userID string) domain.AuthorSummary
}

// Notifications reads and acknowledges the caller's notifications.
type Notifications interface {
	List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit int) (*app.NotificationList, error)
	MarkRead(ctx context.Context, actor domain.Actor, id string) error
	MarkAllRead(ctx context.Context, actor domain.Actor) (int, error)
}

// Profiles reads and edits user profiles.
type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, update domain.ProfileUpdate) (*domain.User, error)
}
