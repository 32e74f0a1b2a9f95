package repository

import (
	"context"
	"errors"

	"clinic-portal/internal/domain/entity"
	domainRepo "clinic-portal/internal/domain/repository"

	"gorm.io/gorm"
)

type availabilitySlotRepository struct {
	db *gorm.DB
}

func NewAvailabilitySlotRepository(db *gorm.DB) domainRepo.AvailabilitySlotRepository {
	return &availabilitySlotRepository{db: db}
}

func (r *availabilitySlotRepository) Create(ctx context.Context, slot *entity.AvailabilitySlot) error {
	return r.db.WithContext(ctx).Omit("Doctor").Create(slot).Error
}

func (r *availabilitySlotRepository) FindByID(ctx context.Context, id int) (*entity.AvailabilitySlot, error) {
	var slot entity.AvailabilitySlot
	err := r.db.WithContext(ctx).Preload("Doctor.User").Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

func (r *availabilitySlotRepository) FindAll(ctx context.Context, filter *entity.SlotFilter) ([]entity.AvailabilitySlot, error) {
	var slots []entity.AvailabilitySlot
	query := r.db.WithContext(ctx).Model(&entity.AvailabilitySlot{})

	if filter != nil {
		if filter.DoctorID != nil {
			query = query.Where("doctor_id = ?", *filter.DoctorID)
		}
		if filter.From != nil {
			query = query.Where("slot_date >= ?", *filter.From)
		}
		if filter.To != nil {
			query = query.Where("slot_date <= ?", *filter.To)
		}
	}

	err := query.Preload("Doctor").Order("slot_date ASC, start_time ASC").Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *availabilitySlotRepository) Update(ctx context.Context, slot *entity.AvailabilitySlot) error {
	return r.db.WithContext(ctx).Omit("Doctor", "Appointments").Save(slot).Error
}

func (r *availabilitySlotRepository) Delete(ctx context.Context, id int) (int64, error) {
	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("slot_id = ? AND status = ?", id, entity.AppointmentStatusCancelled).
			Delete(&entity.Appointment{}).Error
		if err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&entity.AvailabilitySlot{})
		rows = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}

func (r *availabilitySlotRepository) CountBooked(ctx context.Context, id int) (int64, int, error) {
	var data struct {
		BookedCount    int64
		MaxQueueNumber int
	}
	err := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Select("COUNT(CASE WHEN status != ? THEN 1 END) as booked_count, COALESCE(MAX(queue_number), 0) as max_queue_number",
			entity.AppointmentStatusCancelled).
		Where("slot_id = ?", id).
		Scan(&data).Error
	if err != nil {
		return 0, 0, err
	}
	return data.BookedCount, data.MaxQueueNumber, nil
}
