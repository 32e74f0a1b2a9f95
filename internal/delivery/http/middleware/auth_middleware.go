package middleware

import (
	"context"
	"net/http"
	"strings"

	"clinic-portal/internal/service"
	"clinic-portal/internal/usecase"
	"clinic-portal/pkg/jwt"
	"clinic-portal/pkg/response"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	TokenIDKey    contextKey = "token_id"
	ResolutionKey contextKey = "resolution"
)

type AuthMiddleware struct {
	jwtService *jwt.JWTService
	tokenStore service.TokenStore
	resolver   service.SessionResolver
	log        *logrus.Logger
}

func NewAuthMiddleware(jwtService *jwt.JWTService, tokenStore service.TokenStore, resolver service.SessionResolver, log *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		tokenStore: tokenStore,
		resolver:   resolver,
		log:        log,
	}
}

// Authenticate rejects requests without a live access token and attaches the
// resolved session to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateTyped(tokenString, jwt.AccessToken)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		live, err := m.tokenStore.Exists(r.Context(), jwt.AccessToken, claims.UserID, claims.TokenID)
		if err != nil {
			m.log.Warnf("Failed to check token %s: %+v", claims.TokenID, err)
			response.ServiceUnavailable(w, "Failed to validate token")
			return
		}
		if !live {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		res := m.resolver.Resolve(r.Context(), claims.UserID)
		if res.State == service.SessionAnonymous {
			response.Unauthorized(w, "Account no longer exists")
			return
		}
		if res.Disabled() {
			response.Forbidden(w, "Account is deactivated")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)
		ctx = context.WithValue(ctx, ResolutionKey, res)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional resolves the session when a valid token is present and otherwise
// continues as anonymous. It never rejects the request.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := service.AnonymousResolution()
		ctx := r.Context()

		if tokenString, ok := bearerToken(r.Header.Get("Authorization")); ok {
			claims, err := m.jwtService.ValidateTyped(tokenString, jwt.AccessToken)
			if err == nil {
				live, err := m.tokenStore.Exists(ctx, jwt.AccessToken, claims.UserID, claims.TokenID)
				if err != nil {
					m.log.Warnf("Failed to check token %s: %+v", claims.TokenID, err)
				}
				if live {
					res = m.resolver.Resolve(ctx, claims.UserID)
					ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
					ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)
				}
			}
		}

		ctx = context.WithValue(ctx, ResolutionKey, res)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}

// GetResolution returns the session resolved for this request.
func GetResolution(ctx context.Context) (service.Resolution, bool) {
	res, ok := ctx.Value(ResolutionKey).(service.Resolution)
	return res, ok
}

// GetActorFromContext returns the authenticated caller.
func GetActorFromContext(ctx context.Context) (usecase.Actor, bool) {
	res, ok := GetResolution(ctx)
	if !ok || res.Profile == nil {
		return usecase.Actor{}, false
	}
	return usecase.ActorFromResolution(res), true
}
