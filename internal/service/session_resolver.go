package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"clinic-portal/config"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/pkg/backoff"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrProfileNotFound = errors.New("profile not found")

// SessionState is the outcome of resolving the profile behind a session.
type SessionState string

const (
	SessionLoading       SessionState = "loading"
	SessionAuthenticated SessionState = "authenticated"
	SessionAnonymous     SessionState = "anonymous"
	SessionDegraded      SessionState = "degraded"
	SessionFailed        SessionState = "failed"
)

// ProfileSource tells where the resolved profile came from.
type ProfileSource string

const (
	SourceNone    ProfileSource = ""
	SourceCache   ProfileSource = "cache"
	SourceFresh   ProfileSource = "fresh"
	SourceStale   ProfileSource = "stale"
	SourceDefault ProfileSource = "default"
)

// Resolution is the resolved session. IsAdmin and IsDoctor are derived from
// the profile role and are only set when the profile is trusted for authorization.
type Resolution struct {
	State    SessionState
	Source   ProfileSource
	Profile  *entity.Profile
	IsAdmin  bool
	IsDoctor bool
	Err      error
}

// Disabled reports whether a real profile was found and the account is deactivated.
func (r Resolution) Disabled() bool {
	return r.Profile != nil && r.Source != SourceDefault && r.Source != SourceNone && !r.Profile.IsActive
}

// AnonymousResolution is returned for requests without a session.
func AnonymousResolution() Resolution {
	return Resolution{State: SessionAnonymous}
}

// ProfileLoader is the authoritative profile read.
type ProfileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
}

type SessionResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) Resolution
	// Invalidate drops the cached profile so the next Resolve reads the database.
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type sessionResolver struct {
	log             *logrus.Logger
	loader          ProfileLoader
	cache           ProfileCache
	group           singleflight.Group
	generations     sync.Map // uuid.UUID -> *atomic.Uint64, bumped by Invalidate
	policy          backoff.Policy
	freshTTL        time.Duration
	ceiling         time.Duration
	allowStaleRoles bool
	now             func() time.Time
}

func NewSessionResolver(log *logrus.Logger, loader ProfileLoader, cache ProfileCache, cfg config.SessionConfig) SessionResolver {
	policy := backoff.DefaultPolicy()
	if cfg.FetchAttempts > 0 {
		policy.Attempts = cfg.FetchAttempts
	}
	if cfg.FetchTimeout > 0 {
		policy.AttemptTimeout = cfg.FetchTimeout
	}

	ceiling := cfg.Ceiling
	if ceiling <= 0 {
		ceiling = 10 * time.Second
	}

	return &sessionResolver{
		log:             log,
		loader:          loader,
		cache:           cache,
		policy:          policy,
		freshTTL:        cfg.FreshTTL,
		ceiling:         ceiling,
		allowStaleRoles: cfg.AllowStaleRoles,
		now:             time.Now,
	}
}

// Resolve never blocks longer than the configured ceiling and always settles
// on a state other than loading.
func (r *sessionResolver) Resolve(ctx context.Context, userID uuid.UUID) Resolution {
	ctx, cancel := context.WithTimeout(ctx, r.ceiling)
	defer cancel()

	cached, err := r.cache.Get(ctx, userID)
	if err != nil {
		r.log.Warnf("Failed to read cached profile %s: %+v", userID, err)
		cached = nil
	}

	if cached != nil && cached.IsFresh(r.now(), r.freshTTL) {
		profile := cached.Profile
		return r.derive(Resolution{State: SessionAuthenticated, Source: SourceCache, Profile: &profile})
	}

	profile, err := r.fetch(ctx, userID)
	if err == nil {
		return r.derive(Resolution{State: SessionAuthenticated, Source: SourceFresh, Profile: profile})
	}

	if errors.Is(err, ErrProfileNotFound) {
		if cacheErr := r.cache.Invalidate(ctx, userID); cacheErr != nil {
			r.log.Warnf("Failed to invalidate profile %s: %+v", userID, cacheErr)
		}
		return Resolution{State: SessionAnonymous, Err: err}
	}

	r.log.Warnf("Failed to fetch profile %s, falling back: %+v", userID, err)

	if cached != nil {
		stale := cached.Profile
		return r.derive(Resolution{State: SessionDegraded, Source: SourceStale, Profile: &stale, Err: err})
	}

	state := SessionDegraded
	if ctx.Err() != nil {
		state = SessionFailed
	}
	return Resolution{State: state, Source: SourceDefault, Profile: defaultProfile(userID), Err: err}
}

func (r *sessionResolver) Invalidate(ctx context.Context, userID uuid.UUID) error {
	r.generation(userID).Add(1)
	r.group.Forget(userID.String())
	return r.cache.Invalidate(ctx, userID)
}

func (r *sessionResolver) generation(userID uuid.UUID) *atomic.Uint64 {
	v, _ := r.generations.LoadOrStore(userID, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// fetch reads the profile with retries and caches it. Concurrent callers for
// the same user share one in-flight read; each caller still gives up at its
// own deadline.
func (r *sessionResolver) fetch(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	ch := r.group.DoChan(userID.String(), func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.ceiling)
		defer cancel()

		gen := r.generation(userID)
		started := gen.Load()

		profile, err := backoff.Retry(flightCtx, r.policy, func(ctx context.Context) (*entity.Profile, error) {
			profile, err := r.loader.FindByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			if profile == nil {
				return nil, backoff.Permanent(ErrProfileNotFound)
			}
			return profile, nil
		})
		if err != nil {
			return nil, err
		}

		r.store(flightCtx, profile, gen, started)
		return profile, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		profile := *res.Val.(*entity.Profile)
		return &profile, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// store caches a fetched profile unless Invalidate ran since the read began.
// An Invalidate racing the write is caught by the second check.
func (r *sessionResolver) store(ctx context.Context, profile *entity.Profile, gen *atomic.Uint64, started uint64) {
	if gen.Load() != started {
		r.log.Debugf("Discarding profile %s read before invalidation", profile.ID)
		return
	}
	if err := r.cache.Set(ctx, profile); err != nil {
		r.log.Warnf("Failed to cache profile %s: %+v", profile.ID, err)
		return
	}
	if gen.Load() != started {
		if err := r.cache.Invalidate(ctx, profile.ID); err != nil {
			r.log.Warnf("Failed to invalidate profile %s: %+v", profile.ID, err)
		}
	}
}

func (r *sessionResolver) derive(res Resolution) Resolution {
	trusted := res.Source == SourceCache || res.Source == SourceFresh ||
		(res.Source == SourceStale && r.allowStaleRoles)

	if trusted && res.Profile != nil && res.Profile.IsActive {
		res.IsAdmin = res.Profile.IsAdmin()
		res.IsDoctor = res.Profile.IsDoctor()
	}
	return res
}

// defaultProfile is the unprivileged stand-in used when no profile can be read.
func defaultProfile(userID uuid.UUID) *entity.Profile {
	return &entity.Profile{
		ID:       userID,
		Role:     entity.RoleClient,
		IsActive: false,
	}
}
