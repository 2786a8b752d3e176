package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/adapters/memstore"
	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	alice = domain.Actor{UserID: "u-alice", Username: "alice", Role: domain.RoleUser}
	bob   = domain.Actor{UserID: "u-bob", Username: "bob", Role: domain.RoleUser}
	carol = domain.Actor{UserID: "u-carol", Username: "carol", Role: domain.RoleUser}
	admin = domain.Actor{UserID: "u-admin", Username: "root", Role: domain.RoleAdmin}
	anon  = domain.Actor{}
)

// stepClock returns strictly increasing times one second apart.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(time.Second)

	return c.t
}

type fixtureOptions struct {
	searcher   ports.QuestionSearcher
	publishers []ports.EventPublisher
	locker     ports.QuestionLocker
	cache      ports.Cache
}

type fixture struct {
	store      *memstore.Store
	content    *ContentService
	votes      *VoteService
	coord      *Coordinator
	cascade    *Cascader
	dispatcher *Dispatcher
	query      *QueryService
	profiles   *ProfileService
}

// newFixture wires every service over one in-memory store.
func newFixture(t *testing.T, opts ...func(*fixtureOptions)) *fixture {
	t.Helper()

	var o fixtureOptions
	for _, opt := range opts {
		opt(&o)
	}

	store := memstore.New()
	logger := discardLogger()
	runner := NewRunner(logger)
	clock := newStepClock()

	dispatcher := NewDispatcher(DispatcherConfig{
		Notifications: store,
		Publishers:    o.publishers,
		Logger:        logger,
	})
	dispatcher.now = clock.Now

	content := NewContentService(ContentServiceConfig{
		Questions:  store,
		Answers:    store,
		Comments:   store,
		Users:      store,
		Searcher:   o.searcher,
		Dispatcher: dispatcher,
		Runner:     runner,
		Logger:     logger,
	})
	content.now = clock.Now

	return &fixture{
		store:      store,
		content:    content,
		dispatcher: dispatcher,
		votes: NewVoteService(VoteServiceConfig{
			Questions: store, Answers: store, Votes: store, Runner: runner, Logger: logger,
		}),
		coord: NewCoordinator(CoordinatorConfig{
			Questions: store, Answers: store, Locker: o.locker, Runner: runner, Logger: logger,
		}),
		cascade: NewCascader(CascaderConfig{
			Questions: store, Answers: store, Comments: store, Searcher: o.searcher, Runner: runner, Logger: logger,
		}),
		query: NewQueryService(QueryServiceConfig{
			Questions: store, Answers: store, Comments: store, Users: store, Searcher: o.searcher, Logger: logger,
		}),
		profiles: NewProfileService(ProfileServiceConfig{
			Users: store, Cache: o.cache, Runner: runner, Logger: logger,
		}),
	}
}

func withSearcher(s ports.QuestionSearcher) func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.searcher = s }
}

func withPublishers(p ...ports.EventPublisher) func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.publishers = p }
}

func withLocker(l ports.QuestionLocker) func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.locker = l }
}

func withCache(c ports.Cache) func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.cache = c }
}

func (f *fixture) question(t *testing.T, author domain.Actor, title string, tags ...string) *domain.Question {
	t.Helper()

	q, err := f.content.CreateQuestion(context.Background(), author, domain.QuestionDraft{
		Title:       title,
		Description: "details about " + title,
		Tags:        tags,
	})
	require.NoError(t, err)

	return q
}

func (f *fixture) answer(t *testing.T, author domain.Actor, questionID string) *domain.Answer {
	t.Helper()

	a, err := f.content.CreateAnswer(context.Background(), author, questionID, "answer by "+author.Username)
	require.NoError(t, err)

	return a
}

func (f *fixture) comment(t *testing.T, author domain.Actor, answerID string) *domain.Comment {
	t.Helper()

	c, err := f.content.CreateComment(context.Background(), author, answerID, "comment by "+author.Username)
	require.NoError(t, err)

	return c
}

func (f *fixture) notificationsFor(t *testing.T, actor domain.Actor) []*domain.Notification {
	t.Helper()

	list, err := f.store.ListNotifications(context.Background(), actor.UserID, false, 100)
	require.NoError(t, err)

	return list
}
