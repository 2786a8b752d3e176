package domain

import (
	"fmt"
	"time"
)

// NotificationType classifies what triggered a notification.
type NotificationType string

const (
	NotificationAnswer  NotificationType = "answer"
	NotificationComment NotificationType = "comment"
)

// Notification is addressed to one recipient. Only its read flag changes after creation.
type Notification struct {
	ID          string
	RecipientID string
	SenderID    string
	Type        NotificationType
	Message     string
	QuestionID  string
	AnswerID    string
	IsRead      bool
	CreatedAt   time.Time
}

// AnswerNotification builds the notification for the question's author about a new answer.
// It returns false when the answer author is the question author.
func AnswerNotification(id string, sender Actor, q *Question, a *Answer, now time.Time) (*Notification, bool) {
	if a.AuthorID == q.AuthorID {
		return nil, false
	}

	return &Notification{
		ID:          id,
		RecipientID: q.AuthorID,
		SenderID:    sender.UserID,
		Type:        NotificationAnswer,
		Message:     fmt.Sprintf("%s answered your question: %s", sender.DisplayName(), q.Title),
		QuestionID:  q.ID,
		AnswerID:    a.ID,
		CreatedAt:   now,
	}, true
}

// CommentNotification builds the notification for the answer's author about a new comment.
// It returns false when the comment author is the answer author.
func CommentNotification(id string, sender Actor, a *Answer, c *Comment, now time.Time) (*Notification, bool) {
	if c.AuthorID == a.AuthorID {
		return nil, false
	}

	return &Notification{
		ID:          id,
		RecipientID: a.AuthorID,
		SenderID:    sender.UserID,
		Type:        NotificationComment,
		Message:     sender.DisplayName() + " commented on your answer",
		QuestionID:  a.QuestionID,
		AnswerID:    a.ID,
		CreatedAt:   now,
	}, true
}
