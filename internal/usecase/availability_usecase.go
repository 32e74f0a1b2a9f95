package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"clinic-portal/internal/converter"
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/domain/repository"
	"clinic-portal/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrSlotNotFound        = errors.New("availability slot not found")
	ErrInvalidSlotDate     = errors.New("invalid slot date format, use YYYY-MM-DD")
	ErrInvalidTimeFormat   = errors.New("invalid time format, use HH:MM")
	ErrInvalidTimeRange    = errors.New("end time must be after start time")
	ErrSlotInPast          = errors.New("slot date is in the past")
	ErrSlotExists          = errors.New("a slot already starts at this time")
	ErrDoctorRequired      = errors.New("doctor_id is required")
	ErrCapacityBelowBooked = errors.New("capacity cannot be lower than the number of booked appointments")
	ErrSlotHasAppointments = errors.New("slot has active appointments")
)

// SlotCapacity tracks remaining places per slot.
type SlotCapacity interface {
	Reserve(ctx context.Context, slot *entity.AvailabilitySlot) (int, error)
	Release(ctx context.Context, slot *entity.AvailabilitySlot) error
	Sync(ctx context.Context, slot *entity.AvailabilitySlot) error
	Remaining(ctx context.Context, slot *entity.AvailabilitySlot) (int, error)
	Drop(ctx context.Context, slotID int) error
}

type AvailabilityUsecase interface {
	CreateSlot(ctx context.Context, actor Actor, req *dto.CreateSlotRequest) (*dto.SlotResponse, error)
	ListSlots(ctx context.Context, actor Actor, filter *entity.SlotFilter) (*dto.SlotListResponse, error)
	GetSlot(ctx context.Context, actor Actor, id int) (*dto.SlotResponse, error)
	UpdateSlot(ctx context.Context, actor Actor, id int, req *dto.UpdateSlotRequest) (*dto.SlotResponse, error)
	DeleteSlot(ctx context.Context, actor Actor, id int) error
	ListOpenSlots(ctx context.Context, doctorID uuid.UUID) (*dto.SlotListResponse, error)
}

type availabilityUsecase struct {
	log          *logrus.Logger
	slotRepo     repository.AvailabilitySlotRepository
	doctorRepo   repository.DoctorProfileRepository
	capacity     SlotCapacity
	auditService service.AuditService
	now          func() time.Time
}

func NewAvailabilityUsecase(
	log *logrus.Logger,
	slotRepo repository.AvailabilitySlotRepository,
	doctorRepo repository.DoctorProfileRepository,
	capacity SlotCapacity,
	auditService service.AuditService,
) AvailabilityUsecase {
	return &availabilityUsecase{
		log:          log,
		slotRepo:     slotRepo,
		doctorRepo:   doctorRepo,
		capacity:     capacity,
		auditService: auditService,
		now:          time.Now,
	}
}

func (u *availabilityUsecase) CreateSlot(ctx context.Context, actor Actor, req *dto.CreateSlotRequest) (*dto.SlotResponse, error) {
	doctor, err := u.targetDoctor(ctx, actor, req.DoctorID)
	if err != nil {
		return nil, err
	}

	slotDate, err := u.parseSlotDate(req.SlotDate)
	if err != nil {
		return nil, err
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	capacity := doctor.DefaultCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	if capacity < 1 {
		capacity = entity.DefaultSlotCapacity
	}

	slot := &entity.AvailabilitySlot{
		DoctorID:  doctor.ID,
		SlotDate:  slotDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Capacity:  capacity,
	}

	if err := u.slotRepo.Create(ctx, slot); err != nil {
		if isDuplicateKeyError(err, "availability_slots") {
			return nil, ErrSlotExists
		}
		u.log.Warnf("Failed to create slot: %+v", err)
		return nil, err
	}

	if err := u.capacity.Sync(ctx, slot); err != nil {
		u.log.Warnf("Failed to sync capacity for slot %d: %+v", slot.ID, err)
	}

	response := converter.SlotToResponse(slot)
	response.Doctor = doctor.Name
	u.auditService.LogCreate(ctx, actor.Ref(), entity.AuditActionSlotCreate, "availability_slot", strconv.Itoa(slot.ID), response)

	response.Remaining = &capacity
	return response, nil
}

// ListSlots lists slots for admins; doctors only ever see their own.
func (u *availabilityUsecase) ListSlots(ctx context.Context, actor Actor, filter *entity.SlotFilter) (*dto.SlotListResponse, error) {
	if filter == nil {
		filter = &entity.SlotFilter{}
	}

	if !actor.IsAdmin {
		own, err := u.ownDoctor(ctx, actor)
		if err != nil {
			return nil, err
		}
		filter.DoctorID = &own.ID
	}

	slots, err := u.slotRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find slots: %+v", err)
		return nil, err
	}

	return &dto.SlotListResponse{
		Slots: u.withRemaining(ctx, slots),
		Total: len(slots),
	}, nil
}

func (u *availabilityUsecase) GetSlot(ctx context.Context, actor Actor, id int) (*dto.SlotResponse, error) {
	slot, err := u.authorizedSlot(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	return &u.withRemaining(ctx, []entity.AvailabilitySlot{*slot})[0], nil
}

func (u *availabilityUsecase) UpdateSlot(ctx context.Context, actor Actor, id int, req *dto.UpdateSlotRequest) (*dto.SlotResponse, error) {
	slot, err := u.authorizedSlot(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	before := converter.SlotToResponse(slot)

	if req.SlotDate != "" {
		slotDate, err := u.parseSlotDate(req.SlotDate)
		if err != nil {
			return nil, err
		}
		slot.SlotDate = slotDate
	}
	if req.StartTime != "" {
		slot.StartTime = req.StartTime
	}
	if req.EndTime != "" {
		slot.EndTime = req.EndTime
	}
	if err := validateTimeRange(converter.ClockTime(slot.StartTime), converter.ClockTime(slot.EndTime)); err != nil {
		return nil, err
	}

	if req.Capacity != nil {
		booked, _, err := u.slotRepo.CountBooked(ctx, slot.ID)
		if err != nil {
			u.log.Warnf("Failed to count appointments for slot %d: %+v", slot.ID, err)
			return nil, err
		}
		if int64(*req.Capacity) < booked {
			return nil, ErrCapacityBelowBooked
		}
		slot.Capacity = *req.Capacity
	}

	if err := u.slotRepo.Update(ctx, slot); err != nil {
		if isDuplicateKeyError(err, "availability_slots") {
			return nil, ErrSlotExists
		}
		u.log.Warnf("Failed to update slot %d: %+v", slot.ID, err)
		return nil, err
	}

	if err := u.capacity.Sync(ctx, slot); err != nil {
		u.log.Warnf("Failed to sync capacity for slot %d: %+v", slot.ID, err)
	}

	after := converter.SlotToResponse(slot)
	u.auditService.LogUpdate(ctx, actor.Ref(), entity.AuditActionSlotUpdate, "availability_slot", strconv.Itoa(slot.ID), before, after)

	return &u.withRemaining(ctx, []entity.AvailabilitySlot{*slot})[0], nil
}

// DeleteSlot refuses to remove a slot that still holds appointments.
func (u *availabilityUsecase) DeleteSlot(ctx context.Context, actor Actor, id int) error {
	slot, err := u.authorizedSlot(ctx, actor, id)
	if err != nil {
		return err
	}

	booked, _, err := u.slotRepo.CountBooked(ctx, slot.ID)
	if err != nil {
		u.log.Warnf("Failed to count appointments for slot %d: %+v", slot.ID, err)
		return err
	}
	if booked > 0 {
		return ErrSlotHasAppointments
	}

	rows, err := u.slotRepo.Delete(ctx, slot.ID)
	if err != nil {
		if isForeignKeyError(err, "appointments") {
			return ErrSlotHasAppointments
		}
		u.log.Warnf("Failed to delete slot %d: %+v", slot.ID, err)
		return err
	}
	if rows == 0 {
		return ErrSlotNotFound
	}

	if err := u.capacity.Drop(ctx, slot.ID); err != nil {
		u.log.Warnf("Failed to drop capacity for slot %d: %+v", slot.ID, err)
	}
	u.auditService.LogDelete(ctx, actor.Ref(), entity.AuditActionSlotDelete, "availability_slot", strconv.Itoa(slot.ID), converter.SlotToResponse(slot))

	return nil
}

// ListOpenSlots returns a doctor's upcoming slots with free places, for booking.
func (u *availabilityUsecase) ListOpenSlots(ctx context.Context, doctorID uuid.UUID) (*dto.SlotListResponse, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil || !doctor.User.IsActive || doctor.User.Role != entity.RoleDoctor {
		return nil, ErrDoctorNotFound
	}

	today := u.now().UTC().Truncate(24 * time.Hour)
	slots, err := u.slotRepo.FindAll(ctx, &entity.SlotFilter{DoctorID: &doctor.ID, From: &today})
	if err != nil {
		u.log.Warnf("Failed to find slots for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	now := u.now()
	upcoming := slots[:0]
	for _, slot := range slots {
		if !slot.IsPast(now) {
			upcoming = append(upcoming, slot)
		}
	}

	responses := u.withRemaining(ctx, upcoming)
	open := responses[:0]
	for _, r := range responses {
		if r.Remaining != nil && *r.Remaining > 0 {
			open = append(open, r)
		}
	}

	return &dto.SlotListResponse{
		Slots: open,
		Total: len(open),
	}, nil
}

// targetDoctor picks the doctor a new slot belongs to: the caller for doctors,
// the requested doctor for admins.
func (u *availabilityUsecase) targetDoctor(ctx context.Context, actor Actor, requested *uuid.UUID) (*entity.DoctorProfile, error) {
	if !actor.IsAdmin {
		return u.ownDoctor(ctx, actor)
	}

	if requested == nil {
		return nil, ErrDoctorRequired
	}
	doctor, err := u.doctorRepo.FindByID(ctx, *requested)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", *requested, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return doctor, nil
}

func (u *availabilityUsecase) ownDoctor(ctx context.Context, actor Actor) (*entity.DoctorProfile, error) {
	if !actor.IsDoctor {
		return nil, ErrForbidden
	}
	doctor, err := u.doctorRepo.FindByUserID(ctx, actor.ID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile for %s: %+v", actor.ID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return doctor, nil
}

func (u *availabilityUsecase) authorizedSlot(ctx context.Context, actor Actor, id int) (*entity.AvailabilitySlot, error) {
	slot, err := u.slotRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find slot %d: %+v", id, err)
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}

	if !actor.IsAdmin {
		own, err := u.ownDoctor(ctx, actor)
		if err != nil {
			return nil, err
		}
		if slot.DoctorID != own.ID {
			return nil, ErrForbidden
		}
	}
	return slot, nil
}

func (u *availabilityUsecase) parseSlotDate(value string) (time.Time, error) {
	slotDate, err := time.Parse(converter.DateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidSlotDate
	}
	if slotDate.Before(u.now().UTC().Truncate(24 * time.Hour)) {
		return time.Time{}, ErrSlotInPast
	}
	return slotDate, nil
}

func (u *availabilityUsecase) withRemaining(ctx context.Context, slots []entity.AvailabilitySlot) []dto.SlotResponse {
	responses := converter.SlotsToResponses(slots)
	for i := range slots {
		remaining, err := u.capacity.Remaining(ctx, &slots[i])
		if err != nil {
			u.log.Warnf("Failed to read capacity for slot %d: %+v", slots[i].ID, err)
			continue
		}
		responses[i].Remaining = &remaining
	}
	return responses
}

func validateTimeRange(start, end string) error {
	startTime, err := time.Parse("15:04", start)
	if err != nil {
		return ErrInvalidTimeFormat
	}
	endTime, err := time.Parse("15:04", end)
	if err != nil {
		return ErrInvalidTimeFormat
	}
	if !endTime.After(startTime) {
		return ErrInvalidTimeRange
	}
	return nil
}
