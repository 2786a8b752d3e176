package postgres

import (
	"context"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

const commentSelect = `SELECT id, answer_id, author_id, content, is_active, created_at, updated_at FROM comments`

func scanComment(row rowScanner) (*domain.Comment, error) {
	var c domain.Comment

	err := row.Scan(&c.ID, &c.AnswerID, &c.AuthorID, &c.Content, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// CreateComment implements ports.CommentRepository.
func (s *Store) CreateComment(ctx context.Context, c *domain.Comment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO comments (id, answer_id, author_id, content, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.AnswerID, c.AuthorID, c.Content, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return parentError("answer", c.AnswerID, "create comment", err)
	}

	return nil
}

// GetComment implements ports.CommentRepository.
func (s *Store) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, commentSelect+" WHERE id = $1", id))
	if err != nil {
		return nil, lookupError("comment", id, "get comment", err)
	}

	return c, nil
}

// ListComments implements ports.CommentRepository.
func (s *Store) ListComments(ctx context.Context, answerIDs []string) (map[string][]*domain.Comment, error) {
	out := make(map[string][]*domain.Comment, len(answerIDs))
	if len(answerIDs) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, commentSelect+" WHERE answer_id = ANY($1) AND is_active ORDER BY seq", answerIDs)
	if err != nil {
		return nil, storeError("list comments", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, storeError("scan comment", err)
		}

		out[c.AnswerID] = append(out[c.AnswerID], c)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("list comments", err)
	}

	return out, nil
}

// DeactivateComment implements ports.CommentRepository.
func (s *Store) DeactivateComment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE comments SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active`, id,
	)
	if err != nil {
		return storeError("deactivate comment", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("comment", id)
	}

	return nil
}
