package repository

import (
	"context"

	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
)

type ContactSubmissionRepository interface {
	Create(ctx context.Context, submission *entity.ContactSubmission) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ContactSubmission, error)
	// FindAll returns submissions matching filter, newest first.
	FindAll(ctx context.Context, filter *entity.ContactFilter) ([]entity.ContactSubmission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SubmissionStatus) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context) (map[entity.SubmissionStatus]int64, error)
}
