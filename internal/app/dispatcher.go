package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
	"github.com/jsamuelsen/qa-service/internal/platform/telemetry"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// DefaultNotificationLimit caps notification listings when the caller gives no limit.
const DefaultNotificationLimit = 20

// MaxNotificationLimit is the largest accepted notification listing limit.
const MaxNotificationLimit = 100

// Dispatcher creates notifications for new answers and comments and manages
// their read state.
type Dispatcher struct {
	notifications ports.NotificationRepository
	publishers    []ports.EventPublisher
	metrics       *telemetry.QAMetrics
	newID         func() string
	now           func() time.Time
	logger        *slog.Logger
}

// DispatcherConfig contains the dispatcher's dependencies.
type DispatcherConfig struct {
	Notifications ports.NotificationRepository

	// Publishers receive a NotificationCreated event for every stored
	// notification. May be empty.
	Publishers []ports.EventPublisher

	Metrics *telemetry.QAMetrics
	Logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. It panics without a notification repository.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Notifications == nil {
		panic("app.NewDispatcher: Notifications is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		notifications: cfg.Notifications,
		publishers:    cfg.Publishers,
		metrics:       cfg.Metrics,
		newID:         uuid.NewString,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "app.Dispatcher")),
	}
}

// AnswerPosted notifies the question's author about a new answer. It returns
// the stored notification, or nil when none was created. Failures are logged.
func (d *Dispatcher) AnswerPosted(ctx context.Context, sender domain.Actor, q *domain.Question, a *domain.Answer) *domain.Notification {
	n, ok := domain.AnswerNotification(d.newID(), sender, q, a, d.now())
	if !ok {
		return nil
	}

	return d.deliver(ctx, n)
}

// CommentPosted notifies the answer's author about a new comment.
func (d *Dispatcher) CommentPosted(ctx context.Context, sender domain.Actor, a *domain.Answer, c *domain.Comment) *domain.Notification {
	n, ok := domain.CommentNotification(d.newID(), sender, a, c, d.now())
	if !ok {
		return nil
	}

	return d.deliver(ctx, n)
}

func (d *Dispatcher) deliver(ctx context.Context, n *domain.Notification) *domain.Notification {
	logger := logging.FromContextOr(ctx, d.logger).With(
		slog.String("notification_id", n.ID),
		slog.String("recipient_id", n.RecipientID),
		slog.String("type", string(n.Type)),
	)

	err := d.notifications.CreateNotification(ctx, n)
	if err != nil {
		logger.WarnContext(ctx, "storing notification failed", slog.Any("error", err))

		return nil
	}

	d.metrics.NotificationDispatched(ctx, string(n.Type))

	if len(d.publishers) > 0 {
		event := NotificationCreated{Notification: n}
		fns := make([]func(context.Context) (struct{}, error), len(d.publishers))

		for i, p := range d.publishers {
			fns[i] = func(ctx context.Context) (struct{}, error) {
				return struct{}{}, p.Publish(ctx, event)
			}
		}

		for i, r := range ParallelPartial(ctx, fns...) {
			if r.Err != nil {
				logger.WarnContext(ctx, "publishing notification failed",
					slog.Int("publisher", i),
					slog.Any("error", r.Err),
				)
			}
		}
	}

	logger.DebugContext(ctx, "notification dispatched")

	return n
}

// NotificationList is one page of a user's notifications.
type NotificationList struct {
	Items  []*domain.Notification
	Unread int
}

// List returns the actor's notifications, newest first, with the unread count.
func (d *Dispatcher) List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit int) (*NotificationList, error) {
	err := actor.RequireAuthenticated()
	if err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = DefaultNotificationLimit
	case limit > MaxNotificationLimit:
		limit = MaxNotificationLimit
	}

	items, unread, err := Parallel2(ctx,
		func(ctx context.Context) ([]*domain.Notification, error) {
			return d.notifications.ListNotifications(ctx, actor.UserID, unreadOnly, limit)
		},
		func(ctx context.Context) (int, error) {
			return d.notifications.CountUnread(ctx, actor.UserID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	return &NotificationList{Items: items, Unread: unread}, nil
}

// MarkRead marks one of the actor's notifications as read. Marking an already
// read notification succeeds.
func (d *Dispatcher) MarkRead(ctx context.Context, actor domain.Actor, id string) error {
	err := actor.RequireAuthenticated()
	if err != nil {
		return err
	}

	err = d.notifications.MarkRead(ctx, actor.UserID, id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}

	return nil
}

// MarkAllRead marks every unread notification of the actor and returns how many changed.
func (d *Dispatcher) MarkAllRead(ctx context.Context, actor domain.Actor) (int, error) {
	err := actor.RequireAuthenticated()
	if err != nil {
		return 0, err
	}

	n, err := d.notifications.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}

	logging.FromContextOr(ctx, d.logger).DebugContext(ctx, "notifications marked read", slog.Int("count", n))

	return n, nil
}
