package context

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	rc := New(ctx)

	assert.NotNil(t, rc)
	assert.Equal(t, ctx, rc.Context())
}

func TestFromContext_NilContext(t *testing.T) {
	rc := FromContext(nil)
	assert.Nil(t, rc)
}

func TestFromContext_NoRequestContext(t *testing.T) {
	ctx := context.Background()
	rc := FromContext(ctx)
	assert.Nil(t, rc)
}

func TestWithContext_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rc := New(ctx)

	enrichedCtx := WithContext(ctx, rc)
	extracted := FromContext(enrichedCtx)

	assert.Equal(t, rc, extracted)
}

func TestGetOrFetch_CachesValue(t *testing.T) {
	ctx := context.Background()
	rc := New(ctx)

	var callCount int32
	fetchFn := func(_ context.Context) (any, error) {
		atomic.AddInt32(&callCount, 1)
		return "alice", nil
	}

	val1, err := rc.GetOrFetch("user:u1", fetchFn)
	require.NoError(t, err)
	assert.Equal(t, "alice", val1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&callCount))

	val2, err := rc.GetOrFetch("user:u1", fetchFn)
	require.NoError(t, err)
	assert.Equal(t, "alice", val2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&callCount))
}

func TestGetOrFetch_PropagatesError(t *testing.T) {
	ctx := context.Background()
	rc := New(ctx)

	expectedErr := errors.New("fetch failed")
	fetchFn := func(_ context.Context) (any, error) {
		return nil, expectedErr
	}

	val, err := rc.GetOrFetch("user:u1", fetchFn)
	assert.Nil(t, val)
	assert.ErrorIs(t, err, expectedErr)
}

func TestGetOrFetch_DifferentKeys(t *testing.T) {
	ctx := context.Background()
	rc := New(ctx)

	var callCount int32
	fetchFn := func(_ context.Context) (any, error) {
		count := atomic.AddInt32(&callCount, 1)
		return count, nil
	}

	val1, _ := rc.GetOrFetch("user:u1", fetchFn)
	val2, _ := rc.GetOrFetch("user:u2", fetchFn)

	assert.Equal(t, int32(1), val1)
	assert.Equal(t, int32(2), val2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&callCount))
}

func TestGetOrFetch_ErrorNotCached(t *testing.T) {
	rc := New(context.Background())

	calls := 0
	fetchFn := func(_ context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}

		return "bob", nil
	}

	_, err := rc.GetOrFetch("user:u2", fetchFn)
	require.Error(t, err)

	val, err := rc.GetOrFetch("user:u2", fetchFn)
	require.NoError(t, err)
	assert.Equal(t, "bob", val)
	assert.Equal(t, 2, calls)
}

func TestEnsure(t *testing.T) {
	t.Run("attaches when absent", func(t *testing.T) {
		ctx, rc := Ensure(context.Background())

		require.NotNil(t, rc)
		assert.Same(t, rc, FromContext(ctx))
	})

	t.Run("reuses existing", func(t *testing.T) {
		existing := New(context.Background())
		ctx := WithContext(context.Background(), existing)

		got, rc := Ensure(ctx)

		assert.Same(t, existing, rc)
		assert.Equal(t, ctx, got)
	})
}

func TestPrime(t *testing.T) {
	rc := New(context.Background())

	rc.Prime("user:u1", "alice")
	rc.Prime("user:u1", "mallory")

	val, err := rc.GetOrFetch("user:u1", func(context.Context) (any, error) {
		t.Fatal("primed key must not be fetched")
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "alice", val)

	_, ok := rc.Lookup("user:missing")
	assert.False(t, ok)
}

type author struct{ name string }

func TestFetch(t *testing.T) {
	tests := []struct {
		name     string
		prime    any
		fetchErr error
		want     *author
		errCheck func(error) bool
	}{
		{
			name: "fetches and types value",
			want: &author{name: "alice"},
		},
		{
			name:     "propagates fetch error",
			fetchErr: errors.New("boom"),
			errCheck: func(err error) bool { return err.Error() == "boom" },
		},
		{
			name:     "type mismatch",
			prime:    "not an author",
			errCheck: func(err error) bool { return errors.Is(err, ErrTypeMismatch) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := New(context.Background())
			if tt.prime != nil {
				rc.Prime("user:u1", tt.prime)
			}

			got, err := Fetch(rc, "user:u1", func(context.Context) (*author, error) {
				if tt.fetchErr != nil {
					return nil, tt.fetchErr
				}

				return &author{name: "alice"}, nil
			})

			if tt.errCheck != nil {
				require.Error(t, err)
				assert.True(t, tt.errCheck(err))
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
