// Package ports defines the contracts between the application layer and its
// infrastructure. Adapters implement these interfaces; the app layer depends
// only on them.
package ports

import (
	"context"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

// QuestionRepository stores questions.
//
// Lookups return inactive records too, so callers can tell "deleted" apart
// from "never existed" when they need to; read paths filter on IsActive.
type QuestionRepository interface {
	// CreateQuestion persists a new question.
	CreateQuestion(ctx context.Context, q *domain.Question) error

	// GetQuestion returns the question with its vote tally.
	// Returns domain.ErrNotFound if no question has the id.
	GetQuestion(ctx context.Context, id string) (*domain.Question, error)

	// IncrementViews adds one view to an active question and returns the new count.
	// Returns domain.ErrNotFound if the question is missing or inactive.
	IncrementViews(ctx context.Context, id string) (int64, error)

	// DeactivateQuestion soft-deletes the question. Answers are left untouched.
	// Returns domain.ErrNotFound if the question is missing or already inactive.
	DeactivateQuestion(ctx context.Context, id string) error

	// ListQuestions returns one page of active questions matching the normalized
	// filter, and the total number of matches.
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]*domain.Question, int, error)
}

// AnswerRepository stores answers.
type AnswerRepository interface {
	// CreateAnswer persists the answer and appends it to its question's answer list.
	CreateAnswer(ctx context.Context, a *domain.Answer) error

	// GetAnswer returns the answer with its vote tally.
	// Returns domain.ErrNotFound if no answer has the id.
	GetAnswer(ctx context.Context, id string) (*domain.Answer, error)

	// ListAnswers returns the active answers of a question in creation order.
	ListAnswers(ctx context.Context, questionID string) ([]*domain.Answer, error)

	// SetExclusiveFlag clears flag on every answer of the question, sets it on
	// answerID and points the question's back reference at it, as one write.
	SetExclusiveFlag(ctx context.Context, questionID, answerID string, flag domain.AnswerFlag) error

	// DeactivateAnswer soft-deletes the answer and every comment on it.
	// It returns the number of comments deactivated.
	// Returns domain.ErrNotFound if the answer is missing or already inactive.
	DeactivateAnswer(ctx context.Context, id string) (int, error)
}

// CommentRepository stores comments.
type CommentRepository interface {
	// CreateComment persists the comment and appends it to its answer's comment list.
	CreateComment(ctx context.Context, c *domain.Comment) error

	// GetComment returns domain.ErrNotFound if no comment has the id.
	GetComment(ctx context.Context, id string) (*domain.Comment, error)

	// ListComments returns active comments grouped by answer id, each group in creation order.
	ListComments(ctx context.Context, answerIDs []string) (map[string][]*domain.Comment, error)

	// DeactivateComment soft-deletes a comment.
	// Returns domain.ErrNotFound if the comment is missing or already inactive.
	DeactivateComment(ctx context.Context, id string) error
}

// VoteRepository is the persistent vote ledger.
type VoteRepository interface {
	// CastVote atomically replaces any vote by the same user on the target and
	// returns the target's recomputed tally.
	CastVote(ctx context.Context, target domain.VoteTarget, vote domain.Vote) (domain.VoteTally, error)

	// Ledger returns every vote on the target.
	Ledger(ctx context.Context, target domain.VoteTarget) (domain.VoteLedger, error)
}

// NotificationRepository stores notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error

	// ListNotifications returns the recipient's notifications, newest first.
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*domain.Notification, error)

	// CountUnread counts the recipient's unread notifications.
	CountUnread(ctx context.Context, recipientID string) (int, error)

	// MarkRead sets the read flag. It is idempotent.
	// Returns domain.ErrNotFound if the notification does not belong to the recipient.
	MarkRead(ctx context.Context, recipientID, id string) error

	// MarkAllRead marks every unread notification of the recipient as read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
}

// UserRepository stores user profiles and posting counters.
type UserRepository interface {
	// GetUser returns domain.ErrNotFound if no user has the id.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetUsers returns the users that exist among ids, keyed by id.
	GetUsers(ctx context.Context, ids []string) (map[string]*domain.User, error)

	// IncrementCounter bumps a posting counter, creating the user record from
	// the actor's identity on first use.
	IncrementCounter(ctx context.Context, actor domain.Actor, counter domain.UserCounter) error

	// EnsureUser creates the user record from the actor's identity if it does
	// not exist yet. Existing records are left untouched.
	EnsureUser(ctx context.Context, actor domain.Actor) error

	// UpdateProfile replaces the editable profile fields.
	// Returns domain.ErrNotFound if the user is missing or inactive.
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error)
}

// ContentStore is the full persistence contract of the Q&A core.
type ContentStore interface {
	QuestionRepository
	AnswerRepository
	CommentRepository
	VoteRepository
	NotificationRepository
	UserRepository
}
