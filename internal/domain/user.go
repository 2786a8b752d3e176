package domain

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Profile field limits.
const (
	MaxBioLength      = 500
	MaxLocationLength = 100
	MaxWebsiteLength  = 200
)

// User is a registered member. Registration and deactivation belong to the
// account service; this core only reads users, upserts them when they first
// author content, and maintains the posting counters.
type User struct {
	ID             string
	Username       string
	Avatar         string
	Role           Role
	Bio            string
	Location       string
	Website        string
	QuestionsAsked int
	AnswersGiven   int
	Reputation     int
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AuthorSummary is the display projection of a user attached to content.
type AuthorSummary struct {
	ID         string
	Username   string
	Avatar     string
	Reputation int
}

// Summary projects the user onto its display fields.
func (u *User) Summary() AuthorSummary {
	return AuthorSummary{
		ID:         u.ID,
		Username:   u.Username,
		Avatar:     u.Avatar,
		Reputation: u.Reputation,
	}
}

// UnknownAuthor is the summary used when an author record cannot be resolved.
func UnknownAuthor(id string) AuthorSummary {
	return AuthorSummary{ID: id, Username: id}
}

// UserCounter names a posting counter on User.
type UserCounter string

const (
	CounterQuestionsAsked UserCounter = "questions_asked"
	CounterAnswersGiven   UserCounter = "answers_given"
)

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Bio      string
	Location string
	Website  string
}

// Normalize trims fields and validates their bounds.
func (p ProfileUpdate) Normalize() (ProfileUpdate, error) {
	out := ProfileUpdate{
		Bio:      strings.TrimSpace(p.Bio),
		Location: strings.TrimSpace(p.Location),
		Website:  strings.TrimSpace(p.Website),
	}

	if utf8.RuneCountInString(out.Bio) > MaxBioLength {
		return ProfileUpdate{}, NewValidationError("bio", "must be at most 500 characters")
	}

	if utf8.RuneCountInString(out.Location) > MaxLocationLength {
		return ProfileUpdate{}, NewValidationError("location", "must be at most 100 characters")
	}

	if out.Website != "" {
		if len(out.Website) > MaxWebsiteLength {
			return ProfileUpdate{}, NewValidationError("website", "must be at most 200 characters")
		}

		u, err := url.Parse(out.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ProfileUpdate{}, NewValidationError("website", "must be an http or https URL")
		}
	}

	return out, nil
}
