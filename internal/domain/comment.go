package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCommentLength bounds comment content in characters.
const MaxCommentLength = 500

// Comment is a short remark on an answer.
type Comment struct {
	ID        string
	AnswerID  string
	AuthorID  string
	Content   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnsureActive returns a NotFoundError for a soft-deleted comment.
func (c *Comment) EnsureActive() error {
	if !c.IsActive {
		return NewNotFoundError("comment", c.ID)
	}

	return nil
}

// ValidateCommentContent checks a comment body.
func ValidateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return NewValidationError("content", "is required")
	}

	if utf8.RuneCountInString(content) > MaxCommentLength {
		return NewValidationError("content", "must be at most 500 characters")
	}

	return nil
}

// NewComment validates content and builds an active comment.
func NewComment(id, answerID string, author Actor, content string, now time.Time) (*Comment, error) {
	err := ValidateCommentContent(content)
	if err != nil {
		return nil, err
	}

	return &Comment{
		ID:        id,
		AnswerID:  answerID,
		AuthorID:  author.UserID,
		Content:   content,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
