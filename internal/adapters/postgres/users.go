package postgres

import (
	"context"
	"fmt"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

const userColumns = `id, username, avatar, role, bio, location, website,
	questions_asked, answers_given, reputation, is_active, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.Avatar, &role, &u.Bio, &u.Location, &u.Website,
		&u.QuestionsAsked, &u.AnswersGiven, &u.Reputation, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = domain.ParseRole(role)

	return &u, nil
}

// GetUser implements ports.UserRepository.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, lookupError("user", id, "get user", err)
	}

	return u, nil
}

// GetUsers implements ports.UserRepository.
func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, "SELECT "+userColumns+" FROM users WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, storeError("get users", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeError("scan user", err)
		}

		out[u.ID] = u
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("get users", err)
	}

	return out, nil
}

// IncrementCounter implements ports.UserRepository with an upsert, so the
// first post by an unseen identity creates its user row.
func (s *Store) IncrementCounter(ctx context.Context, actor domain.Actor, counter domain.UserCounter) error {
	asked, given, err := counterDeltas(counter)
	if err != nil {
		return domain.NewValidationError("counter", err.Error())
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, username, role, questions_asked, answers_given)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			questions_asked = users.questions_asked + EXCLUDED.questions_asked,
			answers_given   = users.answers_given + EXCLUDED.answers_given,
			updated_at      = now()`,
		actor.UserID, actor.DisplayName(), string(actor.Role), asked, given,
	)

	return storeError("increment "+string(counter), err)
}

// EnsureUser implements ports.UserRepository.
func (s *Store) EnsureUser(ctx context.Context, actor domain.Actor) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		actor.UserID, actor.DisplayName(), string(actor.Role),
	)

	return storeError("ensure user", err)
}

// UpdateProfile implements ports.UserRepository.
func (s *Store) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) (*domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET bio = $2, location = $3, website = $4, updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING `+userColumns,
		userID, p.Bio, p.Location, p.Website,
	))
	if err != nil {
		return nil, lookupError("user", userID, "update profile", err)
	}

	return u, nil
}

func counterDeltas(counter domain.UserCounter) (asked, given int, err error) {
	switch counter {
	case domain.CounterQuestionsAsked:
		return 1, 0, nil
	case domain.CounterAnswersGiven:
		return 0, 1, nil
	default:
		return 0, 0, fmt.Errorf("unknown counter %q", counter)
	}
}
