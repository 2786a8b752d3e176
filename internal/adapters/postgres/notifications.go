package postgres

import (
	"context"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

// CreateNotification implements ports.NotificationRepository.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, sender_id, type, message, question_id, answer_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.RecipientID, n.SenderID, string(n.Type), n.Message, n.QuestionID, n.AnswerID, n.IsRead, n.CreatedAt,
	)

	return storeError("create notification", err)
}

// ListNotifications implements ports.NotificationRepository. A non-positive
// limit returns everything.
func (s *Store) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_id, sender_id, type, message, question_id, answer_id, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY seq DESC
		LIMIT $3`,
		recipientID, unreadOnly, lim,
	)
	if err != nil {
		return nil, storeError("list notifications", err)
	}
	defer rows.Close()

	out := make([]*domain.Notification, 0)
	for rows.Next() {
		var (
			n     domain.Notification
			ntype string
		)

		err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &ntype, &n.Message, &n.QuestionID, &n.AnswerID, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, storeError("scan notification", err)
		}

		n.Type = domain.NotificationType(ntype)
		out = append(out, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("list notifications", err)
	}

	return out, nil
}

// CountUnread implements ports.NotificationRepository.
func (s *Store) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var n int

	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, recipientID,
	).Scan(&n)
	if err != nil {
		return 0, storeError("count unread", err)
	}

	return n, nil
}

// MarkRead implements ports.NotificationRepository.
func (s *Store) MarkRead(ctx context.Context, recipientID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID,
	)
	if err != nil {
		return storeError("mark read", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("notification", id)
	}

	return nil
}

// MarkAllRead implements ports.NotificationRepository.
func (s *Store) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`, recipientID,
	)
	if err != nil {
		return 0, storeError("mark all read", err)
	}

	return int(tag.RowsAffected()), nil
}
