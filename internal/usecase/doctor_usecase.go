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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrInvalidFee     = errors.New("consultation fee cannot be negative")
)

type DoctorUsecase interface {
	ListPublicDoctors(ctx context.Context, filter *entity.DoctorFilter) (*dto.PublicDoctorListResponse, error)
	GetPublicDoctor(ctx context.Context, id uuid.UUID) (*dto.PublicDoctorResponse, error)
	ListDoctors(ctx context.Context, filter *entity.DoctorFilter) (*dto.DoctorListResponse, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*dto.DoctorResponse, error)
	UpdateDoctor(ctx context.Context, actor Actor, id uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error)
	GetMyDoctorProfile(ctx context.Context, actor Actor) (*dto.DoctorResponse, error)
	UpdateMyDoctorProfile(ctx context.Context, actor Actor, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error)
}

type doctorUsecase struct {
	log          *logrus.Logger
	doctorRepo   repository.DoctorProfileRepository
	auditService service.AuditService
}

func NewDoctorUsecase(log *logrus.Logger, doctorRepo repository.DoctorProfileRepository, auditService service.AuditService) DoctorUsecase {
	return &doctorUsecase{
		log:          log,
		doctorRepo:   doctorRepo,
		auditService: auditService,
	}
}

// ListPublicDoctors returns active doctors for the marketing pages.
func (u *doctorUsecase) ListPublicDoctors(ctx context.Context, filter *entity.DoctorFilter) (*dto.PublicDoctorListResponse, error) {
	if filter == nil {
		filter = &entity.DoctorFilter{}
	}
	filter.ActiveOnly = true

	doctors, err := u.doctorRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find doctors: %+v", err)
		return nil, err
	}

	return &dto.PublicDoctorListResponse{
		Doctors: converter.DoctorsToPublicResponses(doctors),
		Total:   len(doctors),
	}, nil
}

func (u *doctorUsecase) GetPublicDoctor(ctx context.Context, id uuid.UUID) (*dto.PublicDoctorResponse, error) {
	doctor, err := u.findPublic(ctx, id)
	if err != nil {
		return nil, err
	}
	return converter.DoctorToPublicResponse(doctor), nil
}

// findPublic hides doctors whose account is deactivated or no longer holds the doctor role.
func (u *doctorUsecase) findPublic(ctx context.Context, id uuid.UUID) (*entity.DoctorProfile, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", id, err)
		return nil, err
	}
	if doctor == nil || !doctor.User.IsActive || doctor.User.Role != entity.RoleDoctor {
		return nil, ErrDoctorNotFound
	}
	return doctor, nil
}

func (u *doctorUsecase) ListDoctors(ctx context.Context, filter *entity.DoctorFilter) (*dto.DoctorListResponse, error) {
	doctors, err := u.doctorRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find doctors: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorProfilesToResponses(doctors),
		Total:   len(doctors),
	}, nil
}

func (u *doctorUsecase) GetDoctor(ctx context.Context, id uuid.UUID) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", id, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return converter.DoctorProfileToResponse(doctor), nil
}

// UpdateDoctor lets admins edit any doctor and doctors edit only themselves.
func (u *doctorUsecase) UpdateDoctor(ctx context.Context, actor Actor, id uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", id, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	if !actor.IsAdmin && doctor.UserID != actor.ID {
		return nil, ErrForbidden
	}

	return u.apply(ctx, actor, doctor, req)
}

func (u *doctorUsecase) GetMyDoctorProfile(ctx context.Context, actor Actor) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByUserID(ctx, actor.ID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile for %s: %+v", actor.ID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return converter.DoctorProfileToResponse(doctor), nil
}

func (u *doctorUsecase) UpdateMyDoctorProfile(ctx context.Context, actor Actor, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByUserID(ctx, actor.ID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile for %s: %+v", actor.ID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	return u.apply(ctx, actor, doctor, req)
}

func (u *doctorUsecase) apply(ctx context.Context, actor Actor, doctor *entity.DoctorProfile, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	before := converter.DoctorProfileToResponse(doctor)

	if req.Name != nil {
		doctor.Name = strings.TrimSpace(*req.Name)
	}
	if req.Specialization != nil {
		doctor.Specialization = strings.TrimSpace(*req.Specialization)
	}
	if req.Bio != nil {
		doctor.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.SlotDurationMinutes != nil {
		doctor.SlotDurationMinutes = *req.SlotDurationMinutes
	}
	if req.DefaultCapacity != nil {
		doctor.DefaultCapacity = *req.DefaultCapacity
	}
	if req.ConsultationFee != nil {
		if req.ConsultationFee.IsNegative() {
			return nil, ErrInvalidFee
		}
		doctor.ConsultationFee = *req.ConsultationFee
	}

	if err := u.doctorRepo.Update(ctx, doctor); err != nil {
		u.log.Warnf("Failed to update doctor %s: %+v", doctor.ID, err)
		return nil, err
	}

	after := converter.DoctorProfileToResponse(doctor)
	u.auditService.LogUpdate(ctx, actor.Ref(), entity.AuditActionDoctorUpdate, "doctor_profile", doctor.ID.String(), before, after)

	return after, nil
}
