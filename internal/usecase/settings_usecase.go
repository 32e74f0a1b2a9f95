package usecase

import (
	"context"
	"errors"
	"strings"

	"clinic-portal/internal/converter"
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/domain/repository"
	"clinic-portal/internal/service"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCurrentPassword = errors.New("current password is incorrect")

// SettingsUsecase covers the signed-in user's own account.
type SettingsUsecase interface {
	GetProfile(ctx context.Context, actor Actor) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, actor Actor, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	ChangePassword(ctx context.Context, actor Actor, req *dto.ChangePasswordRequest) error
}

type settingsUsecase struct {
	log          *logrus.Logger
	profileRepo  repository.ProfileRepository
	resolver     service.SessionResolver
	tokenStore   service.TokenStore
	auditService service.AuditService
}

func NewSettingsUsecase(
	log *logrus.Logger,
	profileRepo repository.ProfileRepository,
	resolver service.SessionResolver,
	tokenStore service.TokenStore,
	auditService service.AuditService,
) SettingsUsecase {
	return &settingsUsecase{
		log:          log,
		profileRepo:  profileRepo,
		resolver:     resolver,
		tokenStore:   tokenStore,
		auditService: auditService,
	}
}

func (u *settingsUsecase) GetProfile(ctx context.Context, actor Actor) (*dto.ProfileResponse, error) {
	profile, err := u.find(ctx, actor)
	if err != nil {
		return nil, err
	}
	return converter.ProfileToResponse(profile), nil
}

func (u *settingsUsecase) UpdateProfile(ctx context.Context, actor Actor, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	profile, err := u.find(ctx, actor)
	if err != nil {
		return nil, err
	}
	before := converter.ProfileToResponse(profile)

	profile.FullName = strings.TrimSpace(req.FullName)
	profile.Phone = strings.TrimSpace(req.Phone)

	if err := u.profileRepo.UpdateDetails(ctx, profile.ID, profile.FullName, profile.Phone); err != nil {
		u.log.Warnf("Failed to update profile %s: %+v", profile.ID, err)
		return nil, err
	}

	if err := u.resolver.Invalidate(ctx, profile.ID); err != nil {
		u.log.Warnf("Failed to invalidate cached profile %s: %+v", profile.ID, err)
	}

	after := converter.ProfileToResponse(profile)
	u.auditService.LogUpdate(ctx, actor.Ref(), entity.AuditActionProfileUpdate, "profile", profile.ID.String(), before, after)

	return after, nil
}

// ChangePassword requires the current password and signs the user out of
// every session, including the one making the call.
func (u *settingsUsecase) ChangePassword(ctx context.Context, actor Actor, req *dto.ChangePasswordRequest) error {
	profile, err := u.find(ctx, actor)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCurrentPassword
	}

	hashedPassword, err := hashPassword(req.NewPassword)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return err
	}

	if err := u.profileRepo.UpdatePassword(ctx, profile.ID, hashedPassword); err != nil {
		u.log.Warnf("Failed to update password: %+v", err)
		return err
	}

	if err := u.tokenStore.RevokeAll(ctx, profile.ID); err != nil {
		u.log.Warnf("Failed to revoke tokens after password change: %+v", err)
	}
	u.auditService.LogUpdate(ctx, actor.Ref(), entity.AuditActionPasswordChange, "profile", profile.ID.String(), nil, nil)

	return nil
}

func (u *settingsUsecase) find(ctx context.Context, actor Actor) (*entity.Profile, error) {
	profile, err := u.profileRepo.FindByID(ctx, actor.ID)
	if err != nil {
		u.log.Warnf("Failed to find profile %s: %+v", actor.ID, err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	return profile, nil
}
