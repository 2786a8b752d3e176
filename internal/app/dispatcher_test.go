package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/mocks"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

func TestNewDispatcher_PanicsWithoutRepository(t *testing.T) {
	assert.Panics(t, func() {
		NewDispatcher(DispatcherConfig{Logger: discardLogger()})
	})
}

func TestDispatcher_AnswerNotification(t *testing.T) {
	tests := []struct {
		name      string
		answerer  domain.Actor
		wantCount int
	}{
		{name: "different authors", answerer: bob, wantCount: 1},
		{name: "self answer", answerer: alice, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			q := f.question(t, alice, "Who gets notified?")
			a := f.answer(t, tt.answerer, q.ID)

			got := f.notificationsFor(t, alice)
			require.Len(t, got, tt.wantCount)

			if tt.wantCount == 1 {
				n := got[0]
				assert.Equal(t, domain.NotificationAnswer, n.Type)
				assert.Equal(t, bob.UserID, n.SenderID)
				assert.Equal(t, q.ID, n.QuestionID)
				assert.Equal(t, a.ID, n.AnswerID)
				assert.Equal(t, "bob answered your question: Who gets notified?", n.Message)
				assert.False(t, n.IsRead)
			}
		})
	}
}

func TestDispatcher_CommentNotification(t *testing.T) {
	f := newFixture(t)
	q := f.question(t, alice, "Comments")
	a := f.answer(t, bob, q.ID)

	f.comment(t, bob, a.ID)
	assert.Empty(t, f.notificationsFor(t, bob))

	f.comment(t, carol, a.ID)

	got := f.notificationsFor(t, bob)
	require.Len(t, got, 1)
	assert.Equal(t, domain.NotificationComment, got[0].Type)
	assert.Equal(t, "carol commented on your answer", got[0].Message)
	assert.Equal(t, q.ID, got[0].QuestionID)
	assert.Equal(t, a.ID, got[0].AnswerID)
}

func TestDispatcher_PublishesToEveryPublisher(t *testing.T) {
	first := mocks.NewMockEventPublisher(t)
	second := mocks.NewMockEventPublisher(t)

	isCreated := mock.MatchedBy(func(e ports.Event) bool {
		addressed, ok := e.(ports.AddressedEvent)
		return ok && e.EventType() == EventNotificationCreated && addressed.Recipient() == alice.UserID
	})

	first.EXPECT().Publish(mock.Anything, isCreated).Return(nil).Once()
	second.EXPECT().Publish(mock.Anything, isCreated).
		Return(domain.NewDependencyError("rabbitmq", "publish", errors.New("channel closed"))).
		Once()

	f := newFixture(t, withPublishers(first, second))
	q := f.question(t, alice, "Broadcast")

	_, err := f.content.CreateAnswer(context.Background(), bob, q.ID, "an answer")

	require.NoError(t, err)
	assert.Len(t, f.notificationsFor(t, alice), 1)
}

func TestDispatcher_StoreFailureIsSwallowed(t *testing.T) {
	repo := mocks.NewMockNotificationRepository(t)
	publisher := mocks.NewMockEventPublisher(t)

	repo.EXPECT().CreateNotification(mock.Anything, mock.Anything).
		Return(domain.NewDependencyError("postgres", "insert", errors.New("timeout")))

	d := NewDispatcher(DispatcherConfig{
		Notifications: repo,
		Publishers:    []ports.EventPublisher{publisher},
		Logger:        discardLogger(),
	})

	q := &domain.Question{ID: "q1", AuthorID: alice.UserID, Title: "t"}
	a := &domain.Answer{ID: "a1", QuestionID: "q1", AuthorID: bob.UserID}

	assert.Nil(t, d.AnswerPosted(context.Background(), bob, q, a))
}

func TestDispatcher_List(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "default limit", limit: 0, wantLimit: DefaultNotificationLimit},
		{name: "capped limit", limit: 500, wantLimit: MaxNotificationLimit},
		{name: "explicit limit", limit: 5, wantLimit: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockNotificationRepository(t)
			items := []*domain.Notification{{ID: "n2"}, {ID: "n1"}}

			repo.EXPECT().ListNotifications(mock.Anything, alice.UserID, true, tt.wantLimit).Return(items, nil)
			repo.EXPECT().CountUnread(mock.Anything, alice.UserID).Return(2, nil)

			d := NewDispatcher(DispatcherConfig{Notifications: repo, Logger: discardLogger()})

			got, err := d.List(context.Background(), alice, true, tt.limit)

			require.NoError(t, err)
			assert.Equal(t, items, got.Items)
			assert.Equal(t, 2, got.Unread)
		})
	}
}

func TestDispatcher_ReadState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.question(t, alice, "Read state")

	f.answer(t, bob, q.ID)
	f.answer(t, carol, q.ID)

	notes := f.notificationsFor(t, alice)
	require.Len(t, notes, 2)

	t.Run("mark one read is idempotent", func(t *testing.T) {
		require.NoError(t, f.dispatcher.MarkRead(ctx, alice, notes[0].ID))
		require.NoError(t, f.dispatcher.MarkRead(ctx, alice, notes[0].ID))

		list, err := f.dispatcher.List(ctx, alice, false, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, list.Unread)
	})

	t.Run("someone else's notification is not found", func(t *testing.T) {
		err := f.dispatcher.MarkRead(ctx, bob, notes[1].ID)

		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("mark all read", func(t *testing.T) {
		n, err := f.dispatcher.MarkAllRead(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = f.dispatcher.MarkAllRead(ctx, alice)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.dispatcher.MarkAllRead(ctx, anon)
		assert.True(t, domain.IsUnauthorized(err))
	})
}
