package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Question limits.
const (
	MaxTitleLength = 200
	MaxTags        = 5
	MaxTagLength   = 35
)

// Question is a posted question. Tally is derived from the vote ledger on read.
type Question struct {
	ID               string
	Title            string
	Description      string
	Tags             []string
	AuthorID         string
	Views            int64
	AnswerIDs        []string
	AcceptedAnswerID string
	PinnedAnswerID   string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Tally VoteTally
}

// Score is the derived vote score.
func (q *Question) Score() int {
	return q.Tally.Score()
}

// AnswerCount is the number of answers attached to the question, active or not.
func (q *Question) AnswerCount() int {
	return len(q.AnswerIDs)
}

// EnsureActive returns a NotFoundError for a soft-deleted question.
func (q *Question) EnsureActive() error {
	if !q.IsActive {
		return NewNotFoundError("question", q.ID)
	}

	return nil
}

// QuestionDraft is the author-supplied content of a new question.
type QuestionDraft struct {
	Title       string
	Description string
	Tags        []string
}

// Normalize trims the title, normalizes tags and enforces limits.
func (d QuestionDraft) Normalize() (QuestionDraft, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return QuestionDraft{}, NewValidationError("title", "is required")
	}

	if utf8.RuneCountInString(title) > MaxTitleLength {
		return QuestionDraft{}, NewValidationError("title", "must be at most 200 characters")
	}

	if strings.TrimSpace(d.Description) == "" {
		return QuestionDraft{}, NewValidationError("description", "is required")
	}

	tags, err := NormalizeTags(d.Tags)
	if err != nil {
		return QuestionDraft{}, err
	}

	return QuestionDraft{Title: title, Description: d.Description, Tags: tags}, nil
}

// NormalizeTags trims, lowercases and de-duplicates tags, dropping empty ones.
func NormalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))

	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}

		if _, dup := seen[t]; dup {
			continue
		}

		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, NewValidationError("tags", "each tag must be at most 35 characters")
		}

		seen[t] = struct{}{}
		tags = append(tags, t)
	}

	if len(tags) > MaxTags {
		return nil, NewValidationError("tags", "at most 5 tags are allowed")
	}

	return tags, nil
}

// NewQuestion builds an active question from a normalized draft.
func NewQuestion(id string, author Actor, d QuestionDraft, now time.Time) *Question {
	return &Question{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Tags:        d.Tags,
		AuthorID:    author.UserID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
