package usecase

import (
	"context"
	"errors"

	"clinic-portal/internal/converter"
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/domain/repository"
	"clinic-portal/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidRole      = errors.New("invalid role")
	ErrSelfRoleChange   = errors.New("you cannot change your own role")
	ErrSelfDeactivation = errors.New("you cannot deactivate your own account")
)

type UserUsecase interface {
	ListUsers(ctx context.Context, filter *entity.ProfileFilter) (*dto.UserListResponse, error)
	ChangeRole(ctx context.Context, actor Actor, userID uuid.UUID, req *dto.ChangeRoleRequest) (*dto.ProfileResponse, error)
	SetActive(ctx context.Context, actor Actor, userID uuid.UUID, req *dto.SetActiveRequest) (*dto.ProfileResponse, error)
}

type userUsecase struct {
	log          *logrus.Logger
	profileRepo  repository.ProfileRepository
	doctorRepo   repository.DoctorProfileRepository
	resolver     service.SessionResolver
	tokenStore   service.TokenStore
	auditService service.AuditService
}

func NewUserUsecase(
	log *logrus.Logger,
	profileRepo repository.ProfileRepository,
	doctorRepo repository.DoctorProfileRepository,
	resolver service.SessionResolver,
	tokenStore service.TokenStore,
	auditService service.AuditService,
) UserUsecase {
	return &userUsecase{
		log:          log,
		profileRepo:  profileRepo,
		doctorRepo:   doctorRepo,
		resolver:     resolver,
		tokenStore:   tokenStore,
		auditService: auditService,
	}
}

func (u *userUsecase) ListUsers(ctx context.Context, filter *entity.ProfileFilter) (*dto.UserListResponse, error) {
	profiles, err := u.profileRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find profiles: %+v", err)
		return nil, err
	}

	return &dto.UserListResponse{
		Users: converter.ProfilesToResponses(profiles),
		Total: len(profiles),
	}, nil
}

// ChangeRole updates a user's role. Promoting to doctor also creates the
// doctor profile in the same transaction when the user has none yet.
func (u *userUsecase) ChangeRole(ctx context.Context, actor Actor, userID uuid.UUID, req *dto.ChangeRoleRequest) (*dto.ProfileResponse, error) {
	role := entity.Role(req.Role)
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if actor.ID == userID {
		return nil, ErrSelfRoleChange
	}

	profile, err := u.profileRepo.FindByID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find profile %s: %+v", userID, err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}

	if profile.Role == role {
		return converter.ProfileToResponse(profile), nil
	}

	var doctorProfile *entity.DoctorProfile
	if role == entity.RoleDoctor {
		existing, err := u.doctorRepo.FindByUserID(ctx, userID)
		if err != nil {
			u.log.Warnf("Failed to find doctor profile for %s: %+v", userID, err)
			return nil, err
		}
		if existing == nil {
			doctorProfile = entity.NewDoctorProfileFor(profile)
		}
	}

	if err := u.profileRepo.ChangeRole(ctx, userID, role, doctorProfile); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		u.log.Warnf("Failed to change role of %s: %+v", userID, err)
		return nil, err
	}

	oldRole := profile.Role
	profile.Role = role

	if err := u.resolver.Invalidate(ctx, userID); err != nil {
		u.log.Warnf("Failed to invalidate cached profile %s: %+v", userID, err)
	}
	u.auditService.LogUpdate(ctx, actor.Ref(), entity.AuditActionRoleChange, "profile", userID.String(), oldRole, role)

	return converter.ProfileToResponse(profile), nil
}

// SetActive toggles an account. Deactivation also revokes every token of the user.
func (u *userUsecase) SetActive(ctx context.Context, actor Actor, userID uuid.UUID, req *dto.SetActiveRequest) (*dto.ProfileResponse, error) {
	active := *req.IsActive
	if actor.ID == userID && !active {
		return nil, ErrSelfDeactivation
	}

	profile, err := u.profileRepo.FindByID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find profile %s: %+v", userID, err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}

	if err := u.profileRepo.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		u.log.Warnf("Failed to set active=%v for %s: %+v", active, userID, err)
		return nil, err
	}

	wasActive := profile.IsActive
	profile.IsActive = active

	if !active {
		if err := u.tokenStore.RevokeAll(ctx, userID); err != nil {
			u.log.Warnf("Failed to revoke tokens of %s: %+v", userID, err)
		}
	}
	if err := u.resolver.Invalidate(ctx, userID); err != nil {
		u.log.Warnf("Failed to invalidate cached profile %s: %+v", userID, err)
	}
	u.auditService.LogUpdate(ctx, actor.Ref(), entity.AuditActionActivationToggle, "profile", userID.String(), wasActive, active)

	return converter.ProfileToResponse(profile), nil
}
