package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/mocks"
)

func TestNewProfileService_PanicsWithoutUsers(t *testing.T) {
	assert.Panics(t, func() {
		NewProfileService(ProfileServiceConfig{})
	})
}

func TestProfileService_GetProfile(t *testing.T) {
	f := newFixture(t)
	f.store.PutUser(&domain.User{ID: "u1", Username: "active", IsActive: true, Reputation: 12})
	f.store.PutUser(&domain.User{ID: "u2", Username: "banned", IsActive: false})

	tests := []struct {
		name     string
		id       string
		want     string
		errCheck func(error) bool
	}{
		{name: "active user", id: "u1", want: "active"},
		{name: "inactive user", id: "u2", errCheck: domain.IsNotFound},
		{name: "missing user", id: "u3", errCheck: domain.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := f.profiles.GetProfile(context.Background(), tt.id)

			if tt.errCheck != nil {
				require.Error(t, err)
				assert.True(t, tt.errCheck(err), "unexpected error: %v", err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Username)
		})
	}
}

func TestProfileService_Cache(t *testing.T) {
	t.Run("hit skips the store", func(t *testing.T) {
		cache := mocks.NewMockCache(t)
		raw, err := json.Marshal(domain.User{ID: "u1", Username: "cached", IsActive: true})
		require.NoError(t, err)

		cache.EXPECT().Get(mock.Anything, "profile:u1").Return(raw, nil).Once()

		f := newFixture(t, withCache(cache))

		u, err := f.profiles.GetProfile(context.Background(), "u1")

		require.NoError(t, err)
		assert.Equal(t, "cached", u.Username)
	})

	t.Run("miss fills the cache", func(t *testing.T) {
		cache := mocks.NewMockCache(t)
		cache.EXPECT().Get(mock.Anything, "profile:u1").Return(nil, domain.NewNotFoundError("cache key", "profile:u1")).Once()
		cache.EXPECT().Set(mock.Anything, "profile:u1", mock.Anything, 60).Return(nil).Once()

		f := newFixture(t, withCache(cache))
		f.store.PutUser(&domain.User{ID: "u1", Username: "stored", IsActive: true})

		u, err := f.profiles.GetProfile(context.Background(), "u1")

		require.NoError(t, err)
		assert.Equal(t, "stored", u.Username)
	})

	t.Run("cache outage falls through", func(t *testing.T) {
		cache := mocks.NewMockCache(t)
		down := domain.NewDependencyError("redis", "get", errors.New("refused"))
		cache.EXPECT().Get(mock.Anything, mock.Anything).Return(nil, down)
		cache.EXPECT().Set(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(down)

		f := newFixture(t, withCache(cache))
		f.store.PutUser(&domain.User{ID: "u1", Username: "stored", IsActive: true})

		u, err := f.profiles.GetProfile(context.Background(), "u1")

		require.NoError(t, err)
		assert.Equal(t, "stored", u.Username)
	})

	t.Run("update invalidates", func(t *testing.T) {
		cache := mocks.NewMockCache(t)
		cache.EXPECT().Delete(mock.Anything, "profile:"+alice.UserID).Return(nil).Once()

		f := newFixture(t, withCache(cache))
		f.store.PutUser(&domain.User{ID: alice.UserID, Username: "alice", IsActive: true})

		u, err := f.profiles.UpdateProfile(context.Background(), alice, domain.ProfileUpdate{Bio: " gopher "})

		require.NoError(t, err)
		assert.Equal(t, "gopher", u.Bio)
	})
}

func TestProfileService_UpdateProfile(t *testing.T) {
	tests := []struct {
		name     string
		actor    domain.Actor
		update   domain.ProfileUpdate
		errCheck func(error) bool
	}{
		{
			name:   "valid",
			actor:  alice,
			update: domain.ProfileUpdate{Bio: "hi", Location: "Lisbon", Website: "https://example.com"},
		},
		{
			name:     "bio too long",
			actor:    alice,
			update:   domain.ProfileUpdate{Bio: strings.Repeat("x", 501)},
			errCheck: domain.IsValidation,
		},
		{
			name:     "bad website",
			actor:    alice,
			update:   domain.ProfileUpdate{Website: "ftp://example.com"},
			errCheck: domain.IsValidation,
		},
		{
			name:     "unknown user",
			actor:    carol,
			update:   domain.ProfileUpdate{Bio: "hi"},
			errCheck: domain.IsNotFound,
		},
		{
			name:     "anonymous",
			actor:    anon,
			update:   domain.ProfileUpdate{Bio: "hi"},
			errCheck: domain.IsUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.PutUser(&domain.User{ID: alice.UserID, Username: "alice", IsActive: true})

			u, err := f.profiles.UpdateProfile(context.Background(), tt.actor, tt.update)

			if tt.errCheck != nil {
				require.Error(t, err)
				assert.True(t, tt.errCheck(err), "unexpected error: %v", err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.update.Location, u.Location)
			assert.Equal(t, tt.update.Website, u.Website)
		})
	}
}
