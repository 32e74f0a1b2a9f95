package repository

import (
	"context"

	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *entity.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	FindByEmail(ctx context.Context, email string) (*entity.Profile, error)
	FindAll(ctx context.Context, filter *entity.ProfileFilter) ([]entity.Profile, error)
	// UpdateDetails writes the self-service fields only, leaving role and
	// activation to the admin paths.
	UpdateDetails(ctx context.Context, id uuid.UUID, fullName, phone string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// ChangeRole updates the role and, when doctorProfile is non-nil, creates it
	// in the same transaction.
	ChangeRole(ctx context.Context, id uuid.UUID, role entity.Role, doctorProfile *entity.DoctorProfile) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CountByRole(ctx context.Context) (map[entity.Role]int64, error)
}
