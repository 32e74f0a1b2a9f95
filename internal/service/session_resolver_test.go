package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinic-portal/config"
	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDatabaseDown = errors.New("database down")

type resolverFixture struct {
	resolver *sessionResolver
	cache    *redisProfileCache
	loader   *fakeLoader
}

func newResolverFixture(t *testing.T, cfg config.SessionConfig, fn func(ctx context.Context, id uuid.UUID) (*entity.Profile, error)) *resolverFixture {
	t.Helper()
	_, client := newTestRedis(t)

	cache := NewProfileCache(client, time.Hour).(*redisProfileCache)
	loader := &fakeLoader{fn: fn}
	resolver := NewSessionResolver(testLogger(), loader, cache, cfg).(*sessionResolver)
	resolver.policy.InitialInterval = time.Millisecond
	resolver.policy.MaxInterval = 2 * time.Millisecond

	return &resolverFixture{resolver: resolver, cache: cache, loader: loader}
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		FreshTTL:      5 * time.Minute,
		StaleTTL:      time.Hour,
		FetchAttempts: 3,
		FetchTimeout:  100 * time.Millisecond,
		Ceiling:       2 * time.Second,
	}
}

func profileWithRole(role entity.Role) *entity.Profile {
	return &entity.Profile{ID: uuid.New(), Email: "user@clinic.test", FullName: "User", Role: role, IsActive: true}
}

// seedStale stores a cache entry that is past its freshness window.
func (f *resolverFixture) seedStale(t *testing.T, profile *entity.Profile) {
	t.Helper()
	f.cache.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
	require.NoError(t, f.cache.Set(context.Background(), profile))
	f.cache.now = time.Now
}

func TestSessionResolver_FreshThenCached(t *testing.T) {
	admin := profileWithRole(entity.RoleAdmin)
	f := newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		return admin, nil
	})

	res := f.resolver.Resolve(context.Background(), admin.ID)
	assert.Equal(t, SessionAuthenticated, res.State)
	assert.Equal(t, SourceFresh, res.Source)
	assert.True(t, res.IsAdmin)
	assert.False(t, res.IsDoctor)
	assert.NoError(t, res.Err)

	res = f.resolver.Resolve(context.Background(), admin.ID)
	assert.Equal(t, SessionAuthenticated, res.State)
	assert.Equal(t, SourceCache, res.Source)
	assert.True(t, res.IsAdmin)
	assert.Equal(t, 1, f.loader.Calls())
}

func TestSessionResolver_StaleCacheTriggersRefetch(t *testing.T) {
	doctor := profileWithRole(entity.RoleDoctor)
	f := newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		return doctor, nil
	})
	f.seedStale(t, doctor)

	res := f.resolver.Resolve(context.Background(), doctor.ID)
	assert.Equal(t, SourceFresh, res.Source)
	assert.True(t, res.IsDoctor)
	assert.Equal(t, 1, f.loader.Calls())
}

func TestSessionResolver_InactiveProfileHasNoPrivileges(t *testing.T) {
	admin := profileWithRole(entity.RoleAdmin)
	admin.IsActive = false
	f := newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		return admin, nil
	})

	res := f.resolver.Resolve(context.Background(), admin.ID)
	assert.Equal(t, SessionAuthenticated, res.State)
	assert.False(t, res.IsAdmin)
	assert.True(t, res.Disabled())
}

func TestSessionResolver_RetriesThenDefault(t *testing.T) {
	userID := uuid.New()
	f := newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		return nil, errDatabaseDown
	})

	res := f.resolver.Resolve(context.Background(), userID)
	assert.Equal(t, SessionDegraded, res.State)
	assert.Equal(t, SourceDefault, res.Source)
	require.NotNil(t, res.Profile)
	assert.Equal(t, userID, res.Profile.ID)
	assert.Equal(t, entity.RoleClient, res.Profile.Role)
	assert.False(t, res.Profile.IsActive)
	assert.False(t, res.IsAdmin)
	assert.False(t, res.IsDoctor)
	assert.False(t, res.Disabled())
	assert.ErrorIs(t, res.Err, errDatabaseDown)
	assert.Equal(t, 3, f.loader.Calls())
}

func TestSessionResolver_TransientFailureRecovers(t *testing.T) {
	doctor := profileWithRole(entity.RoleDoctor)
	var mu sync.Mutex
	failures := 2
	f := newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, errDatabaseDown
		}
		return doctor, nil
	})

	res := f.resolver.Resolve(context.Background(), doctor.ID)
	assert.Equal(t, SessionAuthenticated, res.State)
	assert.Equal(t, SourceFresh, res.Source)
	assert.True(t, res.IsDoctor)
	assert.Equal(t, 3, f.loader.Calls())
}

func TestSessionResolver_StaleFallback(t *testing.T) {
	tests := []struct {
		name            string
		allowStaleRoles bool
		wantAdmin       bool
	}{
		{"stale roles denied by default", false, false},
		{"stale roles allowed by flag", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := profileWithRole(entity.RoleAdmin)
			cfg := testSessionConfig()
			cfg.AllowStaleRoles = tt.allowStaleRoles

			f := newResolverFixture(t, cfg, func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
				return nil, errDatabaseDown
			})
			f.seedStale(t, admin)

			res := f.resolver.Resolve(context.Background(), admin.ID)
			assert.Equal(t, SessionDegraded, res.State)
			assert.Equal(t, SourceStale, res.Source)
			require.NotNil(t, res.Profile)
			assert.Equal(t, admin.Email, res.Profile.Email)
			assert.Equal(t, tt.wantAdmin, res.IsAdmin)
		})
	}
}

func TestSessionResolver_MissingProfileIsAnonymous(t *testing.T) {
	userID := uuid.New()
	f := newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		return nil, nil
	})
	f.seedStale(t, &entity.Profile{ID: userID, Role: entity.RoleAdmin, IsActive: true})

	res := f.resolver.Resolve(context.Background(), userID)
	assert.Equal(t, SessionAnonymous, res.State)
	assert.ErrorIs(t, res.Err, ErrProfileNotFound)
	assert.Nil(t, res.Profile)
	assert.Equal(t, 1, f.loader.Calls(), "not found is not retried")

	cached, err := f.cache.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestSessionResolver_CeilingBoundsResolution(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Ceiling = 100 * time.Millisecond
	cfg.FetchTimeout = time.Second

	f := newResolverFixture(t, cfg, func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	started := time.Now()
	res := f.resolver.Resolve(context.Background(), uuid.New())

	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, SessionFailed, res.State)
	assert.Equal(t, SourceDefault, res.Source)
	assert.False(t, res.IsAdmin)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestSessionResolver_CoalescesConcurrentFetches(t *testing.T) {
	client := profileWithRole(entity.RoleClient)
	release := make(chan struct{})
	f := newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		<-release
		return client, nil
	})

	const callers = 5
	results := make([]Resolution, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.resolver.Resolve(context.Background(), client.ID)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, f.loader.Calls())
	for _, res := range results {
		assert.Equal(t, SessionAuthenticated, res.State)
		assert.Equal(t, client.ID, res.Profile.ID)
	}
}

func TestSessionResolver_Invalidate(t *testing.T) {
	profile := profileWithRole(entity.RoleClient)
	f := newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		return profile, nil
	})

	f.resolver.Resolve(context.Background(), profile.ID)
	require.NoError(t, f.resolver.Invalidate(context.Background(), profile.ID))

	res := f.resolver.Resolve(context.Background(), profile.ID)
	assert.Equal(t, SourceFresh, res.Source)
	assert.Equal(t, 2, f.loader.Calls())
}

func TestSessionResolver_InvalidateDuringFetchIsNotUndone(t *testing.T) {
	profile := profileWithRole(entity.RoleAdmin)
	var f *resolverFixture
	f = newResolverFixture(t, testSessionConfig(), func(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
		before := *profile
		if f.loader.Calls() == 1 {
			// the account is demoted while this read is in flight
			assert.NoError(t, f.resolver.Invalidate(ctx, id))
		}
		return &before, nil
	})

	f.resolver.Resolve(context.Background(), profile.ID)

	cached, err := f.cache.Get(context.Background(), profile.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)

	res := f.resolver.Resolve(context.Background(), profile.ID)
	assert.Equal(t, SourceFresh, res.Source)
	assert.Equal(t, 2, f.loader.Calls())
}

func TestAnonymousResolution(t *testing.T) {
	res := AnonymousResolution()
	assert.Equal(t, SessionAnonymous, res.State)
	assert.Nil(t, res.Profile)
	assert.False(t, res.IsAdmin)
	assert.False(t, res.Disabled())
}
