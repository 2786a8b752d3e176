package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QAMetrics counts Q&A domain events. A nil *QAMetrics records nothing.
type QAMetrics struct {
	votesCast               metric.Int64Counter
	answersFlagged          metric.Int64Counter
	notificationsDispatched metric.Int64Counter
	contentDeleted          metric.Int64Counter
}

// NewQAMetrics registers the domain counters on the global meter provider.
func NewQAMetrics() (*QAMetrics, error) {
	meter := otel.Meter(instrumentationName)

	votesCast, err := meter.Int64Counter(
		"qa.votes.cast",
		metric.WithDescription("Votes cast on questions and answers"),
	)
	if err != nil {
		return nil, err
	}

	answersFlagged, err := meter.Int64Counter(
		"qa.answers.flagged",
		metric.WithDescription("Answers accepted or pinned"),
	)
	if err != nil {
		return nil, err
	}

	notificationsDispatched, err := meter.Int64Counter(
		"qa.notifications.dispatched",
		metric.WithDescription("Notifications stored for delivery"),
	)
	if err != nil {
		return nil, err
	}

	contentDeleted, err := meter.Int64Counter(
		"qa.content.deleted",
		metric.WithDescription("Soft-deleted questions, answers and comments"),
	)
	if err != nil {
		return nil, err
	}

	return &QAMetrics{
		votesCast:               votesCast,
		answersFlagged:          answersFlagged,
		notificationsDispatched: notificationsDispatched,
		contentDeleted:          contentDeleted,
	}, nil
}

// VoteCast records one vote.
func (m *QAMetrics) VoteCast(ctx context.Context, targetKind, voteType string) {
	if m == nil {
		return
	}

	m.votesCast.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", targetKind),
		attribute.String("type", voteType),
	))
}

// AnswerFlagged records an accept or pin.
func (m *QAMetrics) AnswerFlagged(ctx context.Context, flag string) {
	if m == nil {
		return
	}

	m.answersFlagged.Add(ctx, 1, metric.WithAttributes(attribute.String("flag", flag)))
}

// NotificationDispatched records a stored notification.
func (m *QAMetrics) NotificationDispatched(ctx context.Context, notificationType string) {
	if m == nil {
		return
	}

	m.notificationsDispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("type", notificationType)))
}

// ContentDeleted records a soft delete; cascaded counts the comments it took with it.
func (m *QAMetrics) ContentDeleted(ctx context.Context, kind string, cascaded int) {
	if m == nil {
		return
	}

	m.contentDeleted.Add(ctx, int64(1+cascaded), metric.WithAttributes(attribute.String("kind", kind)))
}
