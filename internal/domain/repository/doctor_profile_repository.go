package repository

import (
	"context"

	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
)

type DoctorProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.DoctorProfile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.DoctorProfile, error)
	FindAll(ctx context.Context, filter *entity.DoctorFilter) ([]entity.DoctorProfile, error)
	Update(ctx context.Context, profile *entity.DoctorProfile) error
}
