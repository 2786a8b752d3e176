package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/config"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name          string
		filter        domain.QuestionFilter
		wantWhere     string
		wantOrder     string
		wantPageArgs  []any
		wantCountArgs []any
	}{
		{
			name:          "defaults",
			filter:        domain.QuestionFilter{Sort: domain.SortNewest, Page: 1, PageSize: 10},
			wantWhere:     "WHERE q.is_active\n",
			wantOrder:     "ORDER BY q.created_at DESC, q.id DESC\nLIMIT $1 OFFSET $2",
			wantPageArgs:  []any{10, 0},
			wantCountArgs: []any{},
		},
		{
			name:          "search escapes wildcards",
			filter:        domain.QuestionFilter{Search: "50%_off", Sort: domain.SortOldest, Page: 2, PageSize: 5},
			wantWhere:     "WHERE q.is_active AND (q.title ILIKE $1 OR q.description ILIKE $1)\n",
			wantOrder:     "ORDER BY q.created_at ASC, q.id ASC\nLIMIT $2 OFFSET $3",
			wantPageArgs:  []any{`%50\%\_off%`, 5, 5},
			wantCountArgs: []any{`%50\%\_off%`},
		},
		{
			name:          "tags and votes",
			filter:        domain.QuestionFilter{Tags: []string{"go", "sql"}, Sort: domain.SortVotes, Page: 1, PageSize: 10},
			wantWhere:     "WHERE q.is_active AND q.tags && $1\n",
			wantOrder:     "ORDER BY (t.up - t.down) DESC, q.created_at DESC, q.id DESC\nLIMIT $2 OFFSET $3",
			wantPageArgs:  []any{[]string{"go", "sql"}, 10, 0},
			wantCountArgs: []any{[]string{"go", "sql"}},
		},
		{
			name: "search index ids with views",
			filter: domain.QuestionFilter{
				Tags: []string{"go"}, IDs: []string{"q1", "q2"}, Sort: domain.SortViews, Page: 3, PageSize: 20,
			},
			wantWhere:     "WHERE q.is_active AND q.tags && $1 AND q.id = ANY($2)\n",
			wantOrder:     "ORDER BY q.views DESC, q.created_at DESC, q.id DESC\nLIMIT $3 OFFSET $4",
			wantPageArgs:  []any{[]string{"go"}, []string{"q1", "q2"}, 20, 40},
			wantCountArgs: []any{[]string{"go"}, []string{"q1", "q2"}},
		},
		{
			name:          "empty id set still constrains",
			filter:        domain.QuestionFilter{IDs: []string{}, Sort: domain.SortNewest, Page: 1, PageSize: 10},
			wantWhere:     "WHERE q.is_active AND q.id = ANY($1)\n",
			wantOrder:     "ORDER BY q.created_at DESC, q.id DESC\nLIMIT $2 OFFSET $3",
			wantPageArgs:  []any{[]string{}, 10, 0},
			wantCountArgs: []any{[]string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := buildListQuery(tt.filter)

			assert.Contains(t, q.Page, tt.wantWhere)
			assert.Contains(t, q.Page, tt.wantOrder)
			assert.Equal(t, tt.wantPageArgs, q.PageArgs)
			assert.ElementsMatch(t, tt.wantCountArgs, q.CountArgs)
			assert.NotContains(t, q.Count, "LIMIT")
			assert.Contains(t, q.Count, "FROM questions q "+tt.wantWhere[:len(tt.wantWhere)-1])
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "plain", escapeLike("plain"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `snake\_case`, escapeLike("snake_case"))
	assert.Equal(t, `C:\\dir`, escapeLike(`C:\dir`))
}

func TestFlagColumns(t *testing.T) {
	answerCol, questionCol, err := flagColumns(domain.FlagAccepted)
	require.NoError(t, err)
	assert.Equal(t, "is_accepted", answerCol)
	assert.Equal(t, "accepted_answer_id", questionCol)

	answerCol, questionCol, err = flagColumns(domain.FlagPinned)
	require.NoError(t, err)
	assert.Equal(t, "is_pinned", answerCol)
	assert.Equal(t, "pinned_answer_id", questionCol)

	_, _, err = flagColumns("starred")
	assert.Error(t, err)
}

func TestCounterDeltas(t *testing.T) {
	asked, given, err := counterDeltas(domain.CounterQuestionsAsked)
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 0}, [2]int{asked, given})

	asked, given, err = counterDeltas(domain.CounterAnswersGiven)
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 1}, [2]int{asked, given})

	_, _, err = counterDeltas("reputation")
	assert.Error(t, err)
}

func TestErrorTranslation(t *testing.T) {
	unique := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "questions_pkey"}
	foreign := &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "answers_question_id_fkey"}
	refused := errors.New("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      error
		errCheck func(error) bool
	}{
		{"nil stays nil", storeError("op", nil), func(err error) bool { return err == nil }},
		{"unique violation is a conflict", storeError("create question", unique), domain.IsConflict},
		{"driver failure is unavailable", storeError("get question", refused), domain.IsUnavailable},
		{"driver failure keeps its cause", storeError("get question", refused), func(err error) bool {
			return errors.Is(err, refused)
		}},
		{"domain errors pass through", storeError("x", domain.NewNotFoundError("answer", "a1")), domain.IsNotFound},
		{"cancellation is not a dependency failure", storeError("get question", context.Canceled), func(err error) bool {
			return errors.Is(err, context.Canceled) && !domain.IsUnavailable(err)
		}},
		{"deadline is not a dependency failure", storeError("list answers", fmt.Errorf("conn: %w", context.DeadlineExceeded)), func(err error) bool {
			return errors.Is(err, context.DeadlineExceeded) && !domain.IsUnavailable(err)
		}},
		{"deadline during lookup is not a miss", lookupError("question", "q1", "get question", context.DeadlineExceeded), func(err error) bool {
			return errors.Is(err, context.DeadlineExceeded) && !domain.IsNotFound(err)
		}},
		{"no rows is not found", lookupError("question", "q1", "get question", pgx.ErrNoRows), domain.IsNotFound},
		{"wrapped no rows is not found", lookupError("user", "u1", "get user", fmt.Errorf("scan: %w", pgx.ErrNoRows)), domain.IsNotFound},
		{"lookup failure is unavailable", lookupError("question", "q1", "get question", refused), domain.IsUnavailable},
		{"missing parent is not found", parentError("question", "q1", "create answer", foreign), domain.IsNotFound},
		{"parent conflict stays conflict", parentError("question", "q1", "create answer", unique), domain.IsConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.errCheck(tt.err), "unexpected error: %v", tt.err)
		})
	}

	var nf *domain.NotFoundError
	require.ErrorAs(t, parentError("answer", "a9", "create comment", foreign), &nf)
	assert.Equal(t, "answer", nf.Entity)
	assert.Equal(t, "a9", nf.ID)
}

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationFS, "migrations")
	require.NoError(t, err)

	t.Cleanup(func() { _ = src.Close() })

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, name, err := src.ReadUp(first)
	require.NoError(t, err)
	t.Cleanup(func() { _ = up.Close() })
	assert.Equal(t, "init", name)

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	_ = down.Close()
}

func TestNewPool_RejectsBadDSN(t *testing.T) {
	_, err := NewPool(context.Background(), testPostgresConfig("://not a dsn"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing postgres dsn")
}

func testPostgresConfig(dsn string) config.PostgresConfig {
	return config.PostgresConfig{DSN: dsn, MaxConns: 2}
}
