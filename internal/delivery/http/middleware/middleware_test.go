package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-portal/config"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/service"
	"clinic-portal/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	res service.Resolution
}

func (s *stubResolver) Resolve(ctx context.Context, userID uuid.UUID) service.Resolution {
	res := s.res
	if res.Profile != nil {
		p := *res.Profile
		p.ID = userID
		res.Profile = &p
	}
	return res
}

func (s *stubResolver) Invalidate(ctx context.Context, userID uuid.UUID) error { return nil }

type authHarness struct {
	jwt      *jwt.JWTService
	tokens   service.TokenStore
	resolver *stubResolver
	mw       *AuthMiddleware
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := &authHarness{
		jwt:      jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Minute, RefreshExpiry: time.Hour}),
		tokens:   service.NewTokenStore(client),
		resolver: &stubResolver{},
	}
	h.mw = NewAuthMiddleware(h.jwt, h.tokens, h.resolver, log)
	return h
}

// signIn issues a live access token for a new user.
func (h *authHarness) signIn(t *testing.T) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, tokenID, err := h.jwt.GenerateAccessToken(userID, "user@example.com")
	require.NoError(t, err)
	require.NoError(t, h.tokens.Store(context.Background(), jwt.AccessToken, userID, tokenID, time.Minute))
	return token, userID
}

func authenticated(role entity.Role, active bool) service.Resolution {
	return service.Resolution{
		State:    service.SessionAuthenticated,
		Source:   service.SourceFresh,
		Profile:  &entity.Profile{Role: role, IsActive: active},
		IsAdmin:  active && role == entity.RoleAdmin,
		IsDoctor: active && role == entity.RoleDoctor,
	}
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func serve(handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	h := newAuthHarness(t)
	handler := h.mw.Authenticate(http.HandlerFunc(okHandler))

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(handler, "").Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(handler, "not-a-jwt").Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		token, _, err := h.jwt.GenerateAccessToken(uuid.New(), "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, serve(handler, token).Code)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		userID := uuid.New()
		token, tokenID, err := h.jwt.GenerateRefreshToken(userID, "user@example.com")
		require.NoError(t, err)
		require.NoError(t, h.tokens.Store(context.Background(), jwt.RefreshToken, userID, tokenID, time.Minute))
		assert.Equal(t, http.StatusUnauthorized, serve(handler, token).Code)
	})

	t.Run("deleted profile", func(t *testing.T) {
		h.resolver.res = service.Resolution{State: service.SessionAnonymous, Err: service.ErrProfileNotFound}
		token, _ := h.signIn(t)
		assert.Equal(t, http.StatusUnauthorized, serve(handler, token).Code)
	})

	t.Run("deactivated profile", func(t *testing.T) {
		h.resolver.res = authenticated(entity.RoleAdmin, false)
		token, _ := h.signIn(t)
		assert.Equal(t, http.StatusForbidden, serve(handler, token).Code)
	})

	t.Run("live session reaches handler with actor", func(t *testing.T) {
		h.resolver.res = authenticated(entity.RoleDoctor, true)
		token, userID := h.signIn(t)

		var seen bool
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActorFromContext(r.Context())
			require.True(t, ok)
			assert.Equal(t, userID, actor.ID)
			assert.True(t, actor.IsDoctor)
			assert.False(t, actor.IsAdmin)

			_, ok = GetTokenIDFromContext(r.Context())
			assert.True(t, ok)
			seen = true
		})

		rec := serve(h.mw.Authenticate(inner), token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, seen)
	})
}

func TestOptional(t *testing.T) {
	h := newAuthHarness(t)

	var got service.Resolution
	handler := h.mw.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetResolution(r.Context())
	}))

	serve(handler, "")
	assert.Equal(t, service.SessionAnonymous, got.State)

	serve(handler, "garbage")
	assert.Equal(t, service.SessionAnonymous, got.State)

	h.resolver.res = authenticated(entity.RoleClient, true)
	token, _ := h.signIn(t)
	serve(handler, token)
	assert.Equal(t, service.SessionAuthenticated, got.State)
}

func TestRequireAdminOrDoctor(t *testing.T) {
	h := newAuthHarness(t)
	handler := h.mw.Authenticate(RequireAdminOrDoctor(http.HandlerFunc(okHandler)))

	tests := []struct {
		name string
		res  service.Resolution
		want int
	}{
		{"admin", authenticated(entity.RoleAdmin, true), http.StatusOK},
		{"doctor", authenticated(entity.RoleDoctor, true), http.StatusOK},
		{"client", authenticated(entity.RoleClient, true), http.StatusForbidden},
		{
			"degraded default profile",
			service.Resolution{State: service.SessionDegraded, Source: service.SourceDefault, Profile: &entity.Profile{Role: entity.RoleClient}},
			http.StatusServiceUnavailable,
		},
		{
			"stale admin without privileges",
			service.Resolution{State: service.SessionDegraded, Source: service.SourceStale, Profile: &entity.Profile{Role: entity.RoleAdmin, IsActive: true}},
			http.StatusServiceUnavailable,
		},
		{
			"failed resolution",
			service.Resolution{State: service.SessionFailed, Source: service.SourceDefault, Profile: &entity.Profile{Role: entity.RoleClient}},
			http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.resolver.res = tt.res
			token, _ := h.signIn(t)
			assert.Equal(t, tt.want, serve(handler, token).Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := newAuthHarness(t)
	handler := h.mw.Authenticate(RequireAdmin(http.HandlerFunc(okHandler)))

	h.resolver.res = authenticated(entity.RoleDoctor, true)
	token, _ := h.signIn(t)
	rec := serve(handler, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])

	h.resolver.res = authenticated(entity.RoleAdmin, true)
	token, _ = h.signIn(t)
	assert.Equal(t, http.StatusOK, serve(handler, token).Code)
}

func TestRequireRoleWithoutSession(t *testing.T) {
	rec := serve(RequireAdmin(http.HandlerFunc(okHandler)), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	mw := NewCORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://clinic.example"}})
	handler := mw.Handle(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/contact", nil)
	req.Header.Set("Origin", "https://clinic.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingMiddlewareRecoversPanics(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	handler := NewLoggingMiddleware(log).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddlewareSilentHandler(t *testing.T) {
	log, hook := test.NewNullLogger()

	handler := NewLoggingMiddleware(log).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/slots/1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "request handled", entry.Message)
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}
