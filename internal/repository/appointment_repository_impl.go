package repository

import (
	"context"
	"errors"
	"time"

	"clinic-portal/internal/domain/entity"
	domainRepo "clinic-portal/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) domainRepo.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *entity.Appointment) error {
	return r.db.WithContext(ctx).Omit("Patient", "Slot").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Slot.Doctor").
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByPatientID(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := r.db.WithContext(ctx).
		Preload("Slot.Doctor").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindActiveByPatientAndSlot(ctx context.Context, patientID uuid.UUID, slotID int) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND slot_id = ? AND status != ?", patientID, slotID, entity.AppointmentStatusCancelled).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(ctx context.Context, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	query := r.db.WithContext(ctx).
		Joins("JOIN availability_slots ON availability_slots.id = appointments.slot_id")

	if filter != nil {
		if filter.DoctorID != nil {
			query = query.Where("availability_slots.doctor_id = ?", *filter.DoctorID)
		}
		if filter.Status != "" {
			query = query.Where("appointments.status = ?", filter.Status)
		}
		if filter.From != nil {
			query = query.Where("availability_slots.slot_date >= ?", *filter.From)
		}
		if filter.To != nil {
			query = query.Where("availability_slots.slot_date <= ?", *filter.To)
		}
	}

	err := query.
		Preload("Patient").
		Preload("Slot.Doctor").
		Order("availability_slots.slot_date ASC, availability_slots.start_time ASC, appointments.queue_number ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// UpdateStatus atomically changes status ONLY if the appointment is not cancelled.
// Returns affected rows: 1 = success, 0 = missing or already cancelled (prevents double-cancel race).
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AppointmentStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status != ?", id, entity.AppointmentStatusCancelled).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) CountUpcoming(ctx context.Context) (int64, error) {
	var total int64
	today := time.Now().UTC().Truncate(24 * time.Hour)
	err := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Joins("JOIN availability_slots ON availability_slots.id = appointments.slot_id").
		Where("availability_slots.slot_date >= ? AND appointments.status IN ?", today,
			[]entity.AppointmentStatus{entity.AppointmentStatusPending, entity.AppointmentStatusConfirmed}).
		Count(&total).Error
	return total, err
}
