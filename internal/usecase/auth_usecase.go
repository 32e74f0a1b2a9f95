package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"clinic-portal/internal/converter"
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/domain/repository"
	"clinic-portal/internal/service"
	"clinic-portal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserNotFound       = errors.New("user not found")
)

type AuthUsecase interface {
	SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.ProfileResponse, error)
	SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.TokenResponse, error)
	SignOut(ctx context.Context, userID uuid.UUID, accessTokenID, refreshToken string) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) error
	UpdatePassword(ctx context.Context, req *dto.PasswordUpdateRequest) error
}

type authUsecase struct {
	log          *logrus.Logger
	profileRepo  repository.ProfileRepository
	jwtService   *jwt.JWTService
	tokenStore   service.TokenStore
	resolver     service.SessionResolver
	auditService service.AuditService
	mailer       service.Mailer
	publicURL    string
}

func NewAuthUsecase(
	log *logrus.Logger,
	profileRepo repository.ProfileRepository,
	jwtService *jwt.JWTService,
	tokenStore service.TokenStore,
	resolver service.SessionResolver,
	auditService service.AuditService,
	mailer service.Mailer,
	publicURL string,
) AuthUsecase {
	return &authUsecase{
		log:          log,
		profileRepo:  profileRepo,
		jwtService:   jwtService,
		tokenStore:   tokenStore,
		resolver:     resolver,
		auditService: auditService,
		mailer:       mailer,
		publicURL:    publicURL,
	}
}

// SignUp creates a client profile. Elevated roles are only granted by an admin.
func (u *authUsecase) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.ProfileResponse, error) {
	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	profile := &entity.Profile{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashedPassword,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         entity.RoleClient,
		IsActive:     true,
	}

	if err := u.profileRepo.Create(ctx, profile); err != nil {
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create profile: %+v", err)
		return nil, err
	}

	u.auditService.LogCreate(ctx, &profile.ID, entity.AuditActionSignUp, "profile", profile.ID.String(), map[string]interface{}{
		"email": profile.Email,
		"role":  profile.Role,
	})

	return converter.ProfileToResponse(profile), nil
}

func (u *authUsecase) SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.TokenResponse, error) {
	profile, err := u.profileRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		u.log.Warnf("Failed to find profile by email: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !profile.IsActive {
		return nil, ErrAccountDisabled
	}

	return u.issueTokens(ctx, profile.ID, profile.Email)
}

func (u *authUsecase) SignOut(ctx context.Context, userID uuid.UUID, accessTokenID, refreshToken string) error {
	if err := u.tokenStore.Revoke(ctx, jwt.AccessToken, userID, accessTokenID); err != nil {
		u.log.Warnf("Failed to revoke access token: %+v", err)
		return err
	}

	if refreshToken == "" {
		return nil
	}

	claims, err := u.jwtService.ValidateTyped(refreshToken, jwt.RefreshToken)
	if err != nil || claims.UserID != userID {
		// Nothing to revoke; the access token is already gone.
		return nil
	}

	if err := u.tokenStore.Revoke(ctx, jwt.RefreshToken, userID, claims.TokenID); err != nil {
		u.log.Warnf("Failed to revoke refresh token: %+v", err)
		return err
	}
	return nil
}

// RefreshToken rotates the pair: the presented refresh token is consumed.
func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := u.jwtService.ValidateTyped(req.RefreshToken, jwt.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	consumed, err := u.tokenStore.Consume(ctx, jwt.RefreshToken, claims.UserID, claims.TokenID)
	if err != nil {
		u.log.Warnf("Failed to consume refresh token: %+v", err)
		return nil, err
	}
	if !consumed {
		return nil, ErrTokenRevoked
	}

	profile, err := u.profileRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		u.log.Warnf("Failed to find profile %s: %+v", claims.UserID, err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	if !profile.IsActive {
		return nil, ErrAccountDisabled
	}

	return u.issueTokens(ctx, profile.ID, profile.Email)
}

// RequestPasswordReset never reveals whether the email belongs to an account.
func (u *authUsecase) RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) error {
	profile, err := u.profileRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		u.log.Warnf("Failed to find profile by email: %+v", err)
		return err
	}
	if profile == nil || !profile.IsActive {
		u.log.Debugf("Password reset requested for unknown or inactive account")
		return nil
	}

	token, tokenID, err := u.jwtService.GenerateResetToken(profile.ID, profile.Email)
	if err != nil {
		u.log.Warnf("Failed to generate reset token: %+v", err)
		return err
	}

	if err := u.tokenStore.Store(ctx, jwt.ResetToken, profile.ID, tokenID, u.jwtService.GetResetExpiry()); err != nil {
		u.log.Warnf("Failed to store reset token: %+v", err)
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", u.publicURL, url.QueryEscape(token))
	minutes := int(u.jwtService.GetResetExpiry() / time.Minute)

	if _, err := u.mailer.Send(ctx, service.Email{
		To:      profile.Email,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>Use the link below to choose a new password. It expires in %d minutes.</p><p><a href="%s">Reset password</a></p>`,
			html.EscapeString(profile.FullName), minutes, html.EscapeString(link),
		),
		Text: fmt.Sprintf("Hello %s,\n\nOpen this link to choose a new password (valid for %d minutes):\n%s\n", profile.FullName, minutes, link),
	}); err != nil {
		u.log.Warnf("Failed to send password reset email: %+v", err)
	}

	return nil
}

// UpdatePassword consumes a reset token, stores the new password and signs
// the user out everywhere.
func (u *authUsecase) UpdatePassword(ctx context.Context, req *dto.PasswordUpdateRequest) error {
	claims, err := u.jwtService.ValidateTyped(req.Token, jwt.ResetToken)
	if err != nil {
		return ErrInvalidToken
	}

	consumed, err := u.tokenStore.Consume(ctx, jwt.ResetToken, claims.UserID, claims.TokenID)
	if err != nil {
		u.log.Warnf("Failed to consume reset token: %+v", err)
		return err
	}
	if !consumed {
		return ErrInvalidToken
	}

	profile, err := u.profileRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		u.log.Warnf("Failed to find profile %s: %+v", claims.UserID, err)
		return err
	}
	if profile == nil {
		return ErrUserNotFound
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return err
	}

	if err := u.profileRepo.UpdatePassword(ctx, profile.ID, hashedPassword); err != nil {
		u.log.Warnf("Failed to update password: %+v", err)
		return err
	}

	if err := u.tokenStore.RevokeAll(ctx, profile.ID); err != nil {
		u.log.Warnf("Failed to revoke tokens after password reset: %+v", err)
	}
	if err := u.resolver.Invalidate(ctx, profile.ID); err != nil {
		u.log.Warnf("Failed to invalidate cached profile: %+v", err)
	}

	u.auditService.LogUpdate(ctx, &profile.ID, entity.AuditActionPasswordReset, "profile", profile.ID.String(), nil, nil)
	return nil
}

func (u *authUsecase) issueTokens(ctx context.Context, userID uuid.UUID, email string) (*dto.TokenResponse, error) {
	accessToken, accessTokenID, err := u.jwtService.GenerateAccessToken(userID, email)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	refreshToken, refreshTokenID, err := u.jwtService.GenerateRefreshToken(userID, email)
	if err != nil {
		u.log.Warnf("Failed to generate refresh token: %+v", err)
		return nil, err
	}

	if err := u.tokenStore.Store(ctx, jwt.AccessToken, userID, accessTokenID, u.jwtService.GetAccessExpiry()); err != nil {
		u.log.Warnf("Failed to store access token in Redis: %+v", err)
		return nil, err
	}

	if err := u.tokenStore.Store(ctx, jwt.RefreshToken, userID, refreshTokenID, u.jwtService.GetRefreshExpiry()); err != nil {
		u.log.Warnf("Failed to store refresh token in Redis: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}
