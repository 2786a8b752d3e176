package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/platform/logging"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// DefaultProfileTTL is how long a cached profile is served.
const DefaultProfileTTL = 60 * time.Second

// ProfileService reads and edits user profiles.
type ProfileService struct {
	users  ports.UserRepository
	cache  ports.Cache
	ttl    time.Duration
	runner *Runner
	logger *slog.Logger
}

// ProfileServiceConfig contains the profile service's dependencies.
type ProfileServiceConfig struct {
	Users ports.UserRepository

	// Cache, when set, holds serialized profiles for TTL.
	Cache ports.Cache
	TTL   time.Duration

	Runner *Runner
	Logger *slog.Logger
}

// NewProfileService creates a profile service. It panics without a user repository.
func NewProfileService(cfg ProfileServiceConfig) *ProfileService {
	if cfg.Users == nil {
		panic("app.NewProfileService: Users is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}

	runner := cfg.Runner
	if runner == nil {
		runner = NewRunner(logger)
	}

	return &ProfileService{
		users:  cfg.Users,
		cache:  cfg.Cache,
		ttl:    ttl,
		runner: runner,
		logger: logger.With(slog.String("component", "app.ProfileService")),
	}
}

func profileKey(id string) string {
	return "profile:" + id
}

// GetProfile returns an active user's profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	logger := logging.FromContextOr(ctx, s.logger)

	if s.cache != nil {
		u, err := s.cached(ctx, userID)
		switch {
		case err == nil:
			return u, nil
		case !errors.Is(err, domain.ErrNotFound):
			logger.WarnContext(ctx, "profile cache read failed", slog.Any("error", err))
		}
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	if !u.IsActive {
		return nil, domain.NewNotFoundError("user", userID)
	}

	if s.cache != nil {
		raw, err := json.Marshal(u)
		if err == nil {
			err = s.cache.Set(ctx, profileKey(userID), raw, int(s.ttl/time.Second))
		}

		if err != nil {
			logger.WarnContext(ctx, "profile cache write failed", slog.Any("error", err))
		}
	}

	return u, nil
}

func (s *ProfileService) cached(ctx context.Context, userID string) (*domain.User, error) {
	raw, err := s.cache.Get(ctx, profileKey(userID))
	if err != nil {
		return nil, err
	}

	var u domain.User

	err = json.Unmarshal(raw, &u)
	if err != nil {
		return nil, fmt.Errorf("decoding cached profile: %w", err)
	}

	return &u, nil
}

// UpdateProfile replaces the actor's bio, location and website.
func (s *ProfileService) UpdateProfile(ctx context.Context, actor domain.Actor, update domain.ProfileUpdate) (*domain.User, error) {
	return Run(ctx, s.runner, Command[domain.ProfileUpdate, struct{}, *domain.User]{
		Name: "update_profile",
		Validate: func(_ context.Context, p domain.ProfileUpdate) (domain.ProfileUpdate, error) {
			return p.Normalize()
		},
		Apply: func(ctx context.Context, actor domain.Actor, p domain.ProfileUpdate, _ struct{}) (*domain.User, error) {
			return s.users.UpdateProfile(ctx, actor.UserID, p)
		},
		After: func(ctx context.Context, actor domain.Actor, _ domain.ProfileUpdate, _ struct{}, _ *domain.User) error {
			if s.cache == nil {
				return nil
			}

			return s.cache.Delete(ctx, profileKey(actor.UserID))
		},
	}, actor, update)
}
