package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

func scanAnswer(row rowScanner) (*domain.Answer, error) {
	var a domain.Answer

	err := row.Scan(
		&a.ID, &a.QuestionID, &a.AuthorID, &a.Content, &a.CommentIDs,
		&a.IsAccepted, &a.IsPinned, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		&a.Tally.Up, &a.Tally.Down,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// CreateAnswer implements ports.AnswerRepository. The question's answer list
// is derived, so inserting the row is enough.
func (s *Store) CreateAnswer(ctx context.Context, a *domain.Answer) error {
	return s.inTx(ctx, "create answer", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO answers (id, question_id, author_id, content, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.QuestionID, a.AuthorID, a.Content, a.IsActive, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return parentError("question", a.QuestionID, "create answer", err)
		}

		_, err = tx.Exec(ctx, `UPDATE questions SET updated_at = $2 WHERE id = $1`, a.QuestionID, a.CreatedAt)

		return storeError("touch question", err)
	})
}

// GetAnswer implements ports.AnswerRepository.
func (s *Store) GetAnswer(ctx context.Context, id string) (*domain.Answer, error) {
	a, err := scanAnswer(s.pool.QueryRow(ctx, answerSelect+"\nWHERE a.id = $1", id))
	if err != nil {
		return nil, lookupError("answer", id, "get answer", err)
	}

	return a, nil
}

// ListAnswers implements ports.AnswerRepository.
func (s *Store) ListAnswers(ctx context.Context, questionID string) ([]*domain.Answer, error) {
	rows, err := s.pool.Query(ctx, answerSelect+"\nWHERE a.question_id = $1 AND a.is_active\nORDER BY a.seq", questionID)
	if err != nil {
		return nil, storeError("list answers", err)
	}
	defer rows.Close()

	out := make([]*domain.Answer, 0)
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, storeError("scan answer", err)
		}

		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("list answers", err)
	}

	return out, nil
}

// SetExclusiveFlag implements ports.AnswerRepository. The question row is
// locked for the duration, so concurrent writers on one question queue up
// even without an application-level lock.
func (s *Store) SetExclusiveFlag(ctx context.Context, questionID, answerID string, flag domain.AnswerFlag) error {
	answerCol, questionCol, err := flagColumns(flag)
	if err != nil {
		return domain.NewValidationError("flag", err.Error())
	}

	return s.inTx(ctx, "set "+string(flag), func(tx pgx.Tx) error {
		var locked string

		err := tx.QueryRow(ctx, `SELECT id FROM questions WHERE id = $1 FOR UPDATE`, questionID).Scan(&locked)
		if err != nil {
			return lookupError("question", questionID, "lock question", err)
		}

		var owner string

		err = tx.QueryRow(ctx, `SELECT question_id FROM answers WHERE id = $1`, answerID).Scan(&owner)
		if err != nil {
			return lookupError("answer", answerID, "get answer", err)
		}

		if owner != questionID {
			return domain.NewNotFoundError("answer", answerID)
		}

		// Clear before set: the partial unique index allows one flagged row per question.
		_, err = tx.Exec(ctx, fmt.Sprintf(
			`UPDATE answers SET %[1]s = FALSE, updated_at = now() WHERE question_id = $1 AND %[1]s`, answerCol),
			questionID,
		)
		if err != nil {
			return storeError("clear "+string(flag), err)
		}

		_, err = tx.Exec(ctx, fmt.Sprintf(
			`UPDATE answers SET %s = TRUE, updated_at = now() WHERE id = $1`, answerCol),
			answerID,
		)
		if err != nil {
			return storeError("set "+string(flag), err)
		}

		_, err = tx.Exec(ctx, fmt.Sprintf(
			`UPDATE questions SET %s = $2, updated_at = now() WHERE id = $1`, questionCol),
			questionID, answerID,
		)

		return storeError("point question at answer", err)
	})
}

// DeactivateAnswer implements ports.AnswerRepository.
func (s *Store) DeactivateAnswer(ctx context.Context, id string) (int, error) {
	var cascaded int

	err := s.inTx(ctx, "deactivate answer", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE answers SET is_active = FALSE, updated_at = now()
			WHERE id = $1 AND is_active`, id,
		)
		if err != nil {
			return storeError("deactivate answer", err)
		}

		if tag.RowsAffected() == 0 {
			return domain.NewNotFoundError("answer", id)
		}

		tag, err = tx.Exec(ctx, `
			UPDATE comments SET is_active = FALSE, updated_at = now()
			WHERE answer_id = $1 AND is_active`, id,
		)
		if err != nil {
			return storeError("deactivate comments", err)
		}

		cascaded = int(tag.RowsAffected())

		return nil
	})
	if err != nil {
		return 0, err
	}

	return cascaded, nil
}
