package domain

import (
	"sort"
	"strings"
	"time"
)

// Answer is a reply to a question. At most one answer of a question is
// accepted and at most one is pinned.
type Answer struct {
	ID         string
	QuestionID string
	AuthorID   string
	Content    string
	CommentIDs []string
	IsAccepted bool
	IsPinned   bool
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Tally VoteTally
}

// Score is the derived vote score.
func (a *Answer) Score() int {
	return a.Tally.Score()
}

// EnsureActive returns a NotFoundError for a soft-deleted answer.
func (a *Answer) EnsureActive() error {
	if !a.IsActive {
		return NewNotFoundError("answer", a.ID)
	}

	return nil
}

// ValidateAnswerContent checks an answer body.
func ValidateAnswerContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return NewValidationError("content", "is required")
	}

	return nil
}

// NewAnswer validates content and builds an active answer.
func NewAnswer(id, questionID string, author Actor, content string, now time.Time) (*Answer, error) {
	err := ValidateAnswerContent(content)
	if err != nil {
		return nil, err
	}

	return &Answer{
		ID:         id,
		QuestionID: questionID,
		AuthorID:   author.UserID,
		Content:    content,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AnswerFlag is one of the two exclusive per-question answer markers.
type AnswerFlag string

const (
	FlagAccepted AnswerFlag = "accepted"
	FlagPinned   AnswerFlag = "pinned"
)

// Verb is the operation name used in errors and logs.
func (f AnswerFlag) Verb() string {
	if f == FlagPinned {
		return "pin"
	}

	return "accept"
}

// Apply clears f on every answer and sets it on the answer with targetID.
// The slice is modified in place.
func (f AnswerFlag) Apply(answers []*Answer, targetID string) {
	for _, a := range answers {
		on := a.ID == targetID
		switch f {
		case FlagAccepted:
			a.IsAccepted = on
		case FlagPinned:
			a.IsPinned = on
		}
	}
}

// SortForDisplay orders answers pinned first, then by descending score.
// Ties keep their existing order.
func SortForDisplay(answers []*Answer) {
	sort.SliceStable(answers, func(i, j int) bool {
		if answers[i].IsPinned != answers[j].IsPinned {
			return answers[i].IsPinned
		}

		return answers[i].Score() > answers[j].Score()
	})
}
