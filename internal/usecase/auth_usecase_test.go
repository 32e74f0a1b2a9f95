package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/service"
	"clinic-portal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	usecase   AuthUsecase
	profiles  *fakeProfileRepo
	tokens    service.TokenStore
	jwt       *jwt.JWTService
	mailer    *fakeMailer
	resolver  *fakeResolver
	auditLogs *fakeAuditRepo
}

func newAuthFixture(t *testing.T, profiles ...entity.Profile) *authFixture {
	f := &authFixture{
		profiles:  newFakeProfileRepo(profiles...),
		tokens:    newTestTokenStore(t),
		jwt:       newTestJWT(),
		mailer:    &fakeMailer{},
		resolver:  &fakeResolver{},
		auditLogs: &fakeAuditRepo{},
	}
	f.usecase = NewAuthUsecase(testLogger(), f.profiles, f.jwt, f.tokens, f.resolver,
		service.NewAuditService(testLogger(), f.auditLogs), f.mailer, "https://clinic.example")
	return f
}

func activeClient(t *testing.T, email, password string) entity.Profile {
	return entity.Profile{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: mustHash(t, password),
		FullName:     "Jane Doe",
		Role:         entity.RoleClient,
		IsActive:     true,
	}
}

func TestAuthUsecase_SignUp(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	profile, err := f.usecase.SignUp(ctx, &dto.SignUpRequest{
		Email:    " Jane@Example.com ",
		Password: "password123",
		FullName: "Jane Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, "client", profile.Role)
	assert.False(t, profile.IsAdmin)
	assert.Equal(t, []string{entity.AuditActionSignUp}, f.auditLogs.Actions())

	_, err = f.usecase.SignUp(ctx, &dto.SignUpRequest{
		Email:    "JANE@example.com",
		Password: "password123",
		FullName: "Another Jane",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestAuthUsecase_SignIn(t *testing.T) {
	client := activeClient(t, "jane@example.com", "password123")
	disabled := activeClient(t, "old@example.com", "password123")
	disabled.IsActive = false

	f := newAuthFixture(t, client, disabled)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		tokens, err := f.usecase.SignIn(ctx, &dto.SignInRequest{Email: "jane@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", tokens.TokenType)

		claims, err := f.jwt.ValidateTyped(tokens.AccessToken, jwt.AccessToken)
		require.NoError(t, err)
		exists, err := f.tokens.Exists(ctx, jwt.AccessToken, client.ID, claims.TokenID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.usecase.SignIn(ctx, &dto.SignInRequest{Email: "jane@example.com", Password: "nope-nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.usecase.SignIn(ctx, &dto.SignInRequest{Email: "ghost@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		_, err := f.usecase.SignIn(ctx, &dto.SignInRequest{Email: "old@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestAuthUsecase_RefreshTokenIsSingleUse(t *testing.T) {
	client := activeClient(t, "jane@example.com", "password123")
	f := newAuthFixture(t, client)
	ctx := context.Background()

	tokens, err := f.usecase.SignIn(ctx, &dto.SignInRequest{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)

	rotated, err := f.usecase.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = f.usecase.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.usecase.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.AccessToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthUsecase_SignOut(t *testing.T) {
	client := activeClient(t, "jane@example.com", "password123")
	f := newAuthFixture(t, client)
	ctx := context.Background()

	tokens, err := f.usecase.SignIn(ctx, &dto.SignInRequest{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)
	access, err := f.jwt.ValidateTyped(tokens.AccessToken, jwt.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.usecase.SignOut(ctx, client.ID, access.TokenID, tokens.RefreshToken))

	exists, err := f.tokens.Exists(ctx, jwt.AccessToken, client.ID, access.TokenID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.usecase.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthUsecase_PasswordReset(t *testing.T) {
	client := activeClient(t, "jane@example.com", "password123")
	f := newAuthFixture(t, client)
	ctx := context.Background()

	t.Run("unknown email sends nothing", func(t *testing.T) {
		require.NoError(t, f.usecase.RequestPasswordReset(ctx, &dto.PasswordResetRequest{Email: "ghost@example.com"}))
		assert.Empty(t, f.mailer.Sent())
	})

	require.NoError(t, f.usecase.RequestPasswordReset(ctx, &dto.PasswordResetRequest{Email: "jane@example.com"}))
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@example.com", sent[0].To)

	token := resetTokenFromEmail(t, sent[0].Text)

	require.NoError(t, f.usecase.UpdatePassword(ctx, &dto.PasswordUpdateRequest{Token: token, Password: "new-password"}))

	_, err := f.usecase.SignIn(ctx, &dto.SignInRequest{Email: "jane@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.usecase.SignIn(ctx, &dto.SignInRequest{Email: "jane@example.com", Password: "new-password"})
	assert.NoError(t, err)

	err = f.usecase.UpdatePassword(ctx, &dto.PasswordUpdateRequest{Token: token, Password: "another-one"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Contains(t, f.resolver.Invalidated(), client.ID)
}

func TestAuthUsecase_PasswordResetMailFailure(t *testing.T) {
	f := newAuthFixture(t, activeClient(t, "jane@example.com", "password123"))
	f.mailer.err = errors.New("relay down")
	ctx := context.Background()

	unknown := f.usecase.RequestPasswordReset(ctx, &dto.PasswordResetRequest{Email: "ghost@example.com"})
	registered := f.usecase.RequestPasswordReset(ctx, &dto.PasswordResetRequest{Email: "jane@example.com"})

	assert.NoError(t, unknown)
	assert.NoError(t, registered)
	assert.Empty(t, f.mailer.Sent())
}

func resetTokenFromEmail(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "https://clinic.example/reset-password?") {
			continue
		}
		link, err := url.Parse(line)
		require.NoError(t, err)
		return link.Query().Get("token")
	}
	t.Fatalf("no reset link in %q", body)
	return ""
}
