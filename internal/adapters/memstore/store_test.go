package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T) (*Store, *domain.Question, []*domain.Answer) {
	t.Helper()

	s := New()
	ctx := context.Background()

	q := &domain.Question{ID: "q1", Title: "Title", Description: "Body", Tags: []string{"go"}, AuthorID: "alice", IsActive: true, CreatedAt: t0}
	require.NoError(t, s.CreateQuestion(ctx, q))

	answers := make([]*domain.Answer, 3)
	for i, id := range []string{"a1", "a2", "a3"} {
		answers[i] = &domain.Answer{ID: id, QuestionID: "q1", AuthorID: "bob", Content: "c", IsActive: true, CreatedAt: t0}
		require.NoError(t, s.CreateAnswer(ctx, answers[i]))
	}

	return s, q, answers
}

func TestStore_CopiesRecords(t *testing.T) {
	s, q, _ := seed(t)
	ctx := context.Background()

	q.Tags[0] = "mutated"

	got, err := s.GetQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, got.Tags)

	got.AnswerIDs[0] = "mutated"

	again, err := s.GetQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, again.AnswerIDs)
}

func TestStore_DuplicateIDsConflict(t *testing.T) {
	s, q, answers := seed(t)
	ctx := context.Background()

	assert.True(t, domain.IsConflict(s.CreateQuestion(ctx, q)))
	assert.True(t, domain.IsConflict(s.CreateAnswer(ctx, answers[0])))
}

func TestStore_CreateAnswerRequiresQuestion(t *testing.T) {
	s := New()

	err := s.CreateAnswer(context.Background(), &domain.Answer{ID: "a", QuestionID: "missing"})

	assert.True(t, domain.IsNotFound(err))
}

func TestStore_IncrementViews(t *testing.T) {
	s, _, _ := seed(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		views, err := s.IncrementViews(ctx, "q1")
		require.NoError(t, err)
		assert.Equal(t, want, views)
	}

	require.NoError(t, s.DeactivateQuestion(ctx, "q1"))

	_, err := s.IncrementViews(ctx, "q1")
	assert.True(t, domain.IsNotFound(err))

	assert.True(t, domain.IsNotFound(s.DeactivateQuestion(ctx, "q1")))
}

func TestStore_SetExclusiveFlag(t *testing.T) {
	s, _, _ := seed(t)
	ctx := context.Background()

	require.NoError(t, s.SetExclusiveFlag(ctx, "q1", "a1", domain.FlagAccepted))
	require.NoError(t, s.SetExclusiveFlag(ctx, "q1", "a2", domain.FlagPinned))
	require.NoError(t, s.SetExclusiveFlag(ctx, "q1", "a3", domain.FlagAccepted))

	answers, err := s.ListAnswers(ctx, "q1")
	require.NoError(t, err)

	flags := map[string][2]bool{}
	for _, a := range answers {
		flags[a.ID] = [2]bool{a.IsAccepted, a.IsPinned}
	}

	assert.Equal(t, map[string][2]bool{
		"a1": {false, false},
		"a2": {false, true},
		"a3": {true, false},
	}, flags)

	q, err := s.GetQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "a3", q.AcceptedAnswerID)
	assert.Equal(t, "a2", q.PinnedAnswerID)

	t.Run("answer of another question", func(t *testing.T) {
		other := &domain.Question{ID: "q2", AuthorID: "alice", IsActive: true}
		require.NoError(t, s.CreateQuestion(ctx, other))

		err := s.SetExclusiveFlag(ctx, "q2", "a1", domain.FlagAccepted)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestStore_DeactivateAnswerCascades(t *testing.T) {
	s, _, _ := seed(t)
	ctx := context.Background()

	for _, c := range []*domain.Comment{
		{ID: "c1", AnswerID: "a1", AuthorID: "carol", Content: "x", IsActive: true},
		{ID: "c2", AnswerID: "a1", AuthorID: "carol", Content: "y", IsActive: true},
		{ID: "c3", AnswerID: "a2", AuthorID: "carol", Content: "z", IsActive: true},
	} {
		require.NoError(t, s.CreateComment(ctx, c))
	}

	require.NoError(t, s.DeactivateComment(ctx, "c2"))

	n, err := s.DeactivateAnswer(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	grouped, err := s.ListComments(ctx, []string{"a1", "a2"})
	require.NoError(t, err)
	assert.Empty(t, grouped["a1"])
	require.Len(t, grouped["a2"], 1)

	answers, err := s.ListAnswers(ctx, "q1")
	require.NoError(t, err)
	assert.Len(t, answers, 2)

	_, err = s.DeactivateAnswer(ctx, "a1")
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_ListKeepsCreationOrder(t *testing.T) {
	s, _, _ := seed(t)
	ctx := context.Background()

	for _, id := range []string{"c9", "c1", "c5"} {
		require.NoError(t, s.CreateComment(ctx, &domain.Comment{ID: id, AnswerID: "a2", IsActive: true, CreatedAt: t0}))
	}

	answers, err := s.ListAnswers(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "a1", answers[0].ID)
	assert.Equal(t, "a3", answers[2].ID)

	grouped, err := s.ListComments(ctx, []string{"a2"})
	require.NoError(t, err)

	ids := make([]string, 0, 3)
	for _, c := range grouped["a2"] {
		ids = append(ids, c.ID)
	}

	assert.Equal(t, []string{"c9", "c1", "c5"}, ids)
}

func TestStore_Votes(t *testing.T) {
	s, _, _ := seed(t)
	ctx := context.Background()
	target := domain.VoteTarget{Kind: domain.TargetAnswer, ID: "a1"}

	empty, err := s.Ledger(ctx, target)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.CastVote(ctx, target, domain.Vote{UserID: "u1", Type: domain.Upvote})
	require.NoError(t, err)
	_, err = s.CastVote(ctx, target, domain.Vote{UserID: "u2", Type: domain.Upvote})
	require.NoError(t, err)

	tally, err := s.CastVote(ctx, target, domain.Vote{UserID: "u1", Type: domain.Downvote})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteTally{Up: 1, Down: 1}, tally)

	a, err := s.GetAnswer(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, a.Score())

	q, err := s.GetQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, domain.VoteTally{}, q.Tally)
}

func TestStore_Notifications(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, n := range []*domain.Notification{
		{ID: "n1", RecipientID: "alice", CreatedAt: t0},
		{ID: "n2", RecipientID: "alice", CreatedAt: t0},
		{ID: "n3", RecipientID: "bob", CreatedAt: t0},
		{ID: "n4", RecipientID: "alice", CreatedAt: t0},
	} {
		require.NoError(t, s.CreateNotification(ctx, n))
	}

	list, err := s.ListNotifications(ctx, "alice", false, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n4", list[0].ID)
	assert.Equal(t, "n2", list[1].ID)

	assert.True(t, domain.IsNotFound(s.MarkRead(ctx, "bob", "n1")))
	require.NoError(t, s.MarkRead(ctx, "alice", "n1"))

	unread, err := s.ListNotifications(ctx, "alice", true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	count, err := s.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	changed, err := s.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	count, err = s.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_Users(t *testing.T) {
	s := New()
	ctx := context.Background()
	actor := domain.Actor{UserID: "u1", Username: "gopher", Role: domain.RoleAdmin}

	require.NoError(t, s.IncrementCounter(ctx, actor, domain.CounterQuestionsAsked))
	require.NoError(t, s.IncrementCounter(ctx, actor, domain.CounterAnswersGiven))
	require.NoError(t, s.IncrementCounter(ctx, actor, domain.CounterAnswersGiven))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "gopher", u.Username)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, 1, u.QuestionsAsked)
	assert.Equal(t, 2, u.AnswersGiven)

	users, err := s.GetUsers(ctx, []string{"u1", "ghost"})
	require.NoError(t, err)
	assert.Len(t, users, 1)

	updated, err := s.UpdateProfile(ctx, "u1", domain.ProfileUpdate{Bio: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)

	require.NoError(t, s.EnsureUser(ctx, actor))

	kept, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, kept.AnswersGiven, "existing record is left untouched")
	assert.Equal(t, "hello", kept.Bio)

	commenter := domain.Actor{UserID: "u3", Username: "lurker", Role: domain.RoleUser}
	require.NoError(t, s.EnsureUser(ctx, commenter))

	created, err := s.GetUser(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, "lurker", created.Username)
	assert.True(t, created.IsActive)
	assert.Zero(t, created.QuestionsAsked)

	s.PutUser(&domain.User{ID: "u2", IsActive: false})

	_, err = s.UpdateProfile(ctx, "u2", domain.ProfileUpdate{Bio: "x"})
	assert.True(t, domain.IsNotFound(err))
}
