package repository

import (
	"context"

	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	FindByPatientID(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error)
	FindActiveByPatientAndSlot(ctx context.Context, patientID uuid.UUID, slotID int) (*entity.Appointment, error)
	FindAll(ctx context.Context, filter *entity.AppointmentFilter) ([]entity.Appointment, error)
	// UpdateStatus only touches appointments that are not cancelled yet.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AppointmentStatus) (int64, error)
	CountUpcoming(ctx context.Context) (int64, error)
}
