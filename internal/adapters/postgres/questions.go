package postgres

import (
	"context"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

func scanQuestion(row rowScanner) (*domain.Question, error) {
	var q domain.Question

	err := row.Scan(
		&q.ID, &q.Title, &q.Description, &q.Tags, &q.AuthorID, &q.Views,
		&q.AnswerIDs, &q.AcceptedAnswerID, &q.PinnedAnswerID, &q.IsActive,
		&q.CreatedAt, &q.UpdatedAt, &q.Tally.Up, &q.Tally.Down,
	)
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// CreateQuestion implements ports.QuestionRepository.
func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO questions (id, title, description, tags, author_id, views, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.Title, q.Description, nonNil(q.Tags), q.AuthorID, q.Views, q.IsActive, q.CreatedAt, q.UpdatedAt,
	)

	return storeError("create question", err)
}

// GetQuestion implements ports.QuestionRepository.
func (s *Store) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx, questionSelect+"\nWHERE q.id = $1", id))
	if err != nil {
		return nil, lookupError("question", id, "get question", err)
	}

	return q, nil
}

// IncrementViews implements ports.QuestionRepository.
func (s *Store) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64

	err := s.pool.QueryRow(ctx, `
		UPDATE questions SET views = views + 1
		WHERE id = $1 AND is_active
		RETURNING views`, id,
	).Scan(&views)
	if err != nil {
		return 0, lookupError("question", id, "increment views", err)
	}

	return views, nil
}

// DeactivateQuestion implements ports.QuestionRepository.
func (s *Store) DeactivateQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE questions SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active`, id,
	)
	if err != nil {
		return storeError("deactivate question", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("question", id)
	}

	return nil
}

// ListQuestions implements ports.QuestionRepository.
func (s *Store) ListQuestions(ctx context.Context, f domain.QuestionFilter) ([]*domain.Question, int, error) {
	query := buildListQuery(f)

	var total int
	if err := s.pool.QueryRow(ctx, query.Count, query.CountArgs...).Scan(&total); err != nil {
		return nil, 0, storeError("count questions", err)
	}

	rows, err := s.pool.Query(ctx, query.Page, query.PageArgs...)
	if err != nil {
		return nil, 0, storeError("list questions", err)
	}
	defer rows.Close()

	out := make([]*domain.Question, 0, f.PageSize)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, storeError("scan question", err)
		}

		out = append(out, q)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, storeError("list questions", err)
	}

	return out, total, nil
}
