//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/adapters/clients"
	"github.com/jsamuelsen/qa-service/internal/adapters/memstore"
	"github.com/jsamuelsen/qa-service/internal/adapters/search"
	"github.com/jsamuelsen/qa-service/internal/app"
	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
)

func searchIndex(t *testing.T) *search.Index {
	t.Helper()

	url := os.Getenv(envElasticsearch)
	if url == "" {
		t.Skipf("%s not set", envElasticsearch)
	}

	transport, err := clients.NewTransport(clients.Config{
		ServiceName: "elasticsearch",
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     500 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 1,
		},
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	es, err := search.NewClient(config.SearchConfig{Addresses: []string{url}}, transport)
	require.NoError(t, err)

	index := search.NewIndex(es, "qa-it-"+strings.ToLower(uuid.NewString()[:8]), discardLogger())
	require.NoError(t, index.EnsureIndex(context.Background()))
	require.NoError(t, index.EnsureIndex(context.Background()), "creating an existing index is a no-op")
	require.NoError(t, index.Check(context.Background()))

	return index
}

// TestSearch_ListingUsesIndex posts questions through the content service and
// finds them again through the index-backed listing.
func TestSearch_ListingUsesIndex(t *testing.T) {
	index := searchIndex(t)
	s := newStack(memstore.New(), nil, index)
	ctx := context.Background()

	asker := newActor("asker")

	wanted, err := s.content.CreateQuestion(ctx, asker, domain.QuestionDraft{
		Title:       "Goroutine leak in worker pool",
		Description: "Workers never exit after the channel closes",
	})
	require.NoError(t, err)

	_, err = s.content.CreateQuestion(ctx, asker, domain.QuestionDraft{
		Title:       "Formatting dates",
		Description: "Layout strings confuse me",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		page, err := s.query.ListQuestions(ctx, domain.QuestionFilter{Search: "goroutine"})
		return err == nil && len(page.Items) == 1 && page.Items[0].Question.ID == wanted.ID
	}, 5*time.Second, 200*time.Millisecond)

	// Substrings match across word boundaries, ignoring case.
	ids, err := index.SearchQuestionIDs(ctx, "ROUTINE LE", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{wanted.ID}, ids)

	require.NoError(t, s.cascade.DeleteQuestion(ctx, asker, wanted.ID))

	assert.Eventually(t, func() bool {
		ids, err := index.SearchQuestionIDs(ctx, "goroutine", 10)
		return err == nil && len(ids) == 0
	}, 5*time.Second, 200*time.Millisecond)
}

// TestSearch_Reindex rebuilds the index from the store.
func TestSearch_Reindex(t *testing.T) {
	index := searchIndex(t)
	store := memstore.New()
	s := newStack(store, nil, nil)
	ctx := context.Background()

	asker := newActor("asker")
	for _, title := range []string{"Channels and select", "Select with timeout", "Mutex or channel"} {
		_, err := s.content.CreateQuestion(ctx, asker, domain.QuestionDraft{Title: title, Description: "concurrency"})
		require.NoError(t, err)
	}

	n, err := app.Reindex(ctx, store, index, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Eventually(t, func() bool {
		ids, err := index.SearchQuestionIDs(ctx, "select", 10)
		return err == nil && len(ids) == 2
	}, 5*time.Second, 200*time.Millisecond)
}
