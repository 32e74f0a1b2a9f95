package repository

import (
	"context"

	"clinic-portal/internal/domain/entity"
)

type AvailabilitySlotRepository interface {
	Create(ctx context.Context, slot *entity.AvailabilitySlot) error
	FindByID(ctx context.Context, id int) (*entity.AvailabilitySlot, error)
	FindAll(ctx context.Context, filter *entity.SlotFilter) ([]entity.AvailabilitySlot, error)
	Update(ctx context.Context, slot *entity.AvailabilitySlot) error
	// Delete removes the slot together with its cancelled appointments. Active
	// appointments keep the foreign key and fail the delete.
	Delete(ctx context.Context, id int) (int64, error)
	// CountBooked returns active appointments and the highest queue number issued.
	CountBooked(ctx context.Context, id int) (booked int64, maxQueue int, err error)
}
