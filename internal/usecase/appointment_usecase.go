package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
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
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAlreadyBooked        = errors.New("you already have an appointment in this slot")
	ErrAppointmentCancelled = errors.New("appointment is already cancelled")
	ErrAppointmentCompleted = errors.New("completed appointments cannot be cancelled")
	ErrInvalidAppointment   = errors.New("invalid appointment status")
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type AppointmentUsecase interface {
	Book(ctx context.Context, actor Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	ListMine(ctx context.Context, actor Actor) (*dto.AppointmentListResponse, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	List(ctx context.Context, actor Actor, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	slotRepo        repository.AvailabilitySlotRepository
	doctorRepo      repository.DoctorProfileRepository
	capacity        SlotCapacity
	auditService    service.AuditService
	now             func() time.Time
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	slotRepo repository.AvailabilitySlotRepository,
	doctorRepo repository.DoctorProfileRepository,
	capacity SlotCapacity,
	auditService service.AuditService,
) AppointmentUsecase {
	return &appointmentUsecase{
		log:             log,
		appointmentRepo: appointmentRepo,
		slotRepo:        slotRepo,
		doctorRepo:      doctorRepo,
		capacity:        capacity,
		auditService:    auditService,
		now:             time.Now,
	}
}

// Book reserves a place in Redis first and gives it back if the insert fails.
func (u *appointmentUsecase) Book(ctx context.Context, actor Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	slot, err := u.slotRepo.FindByID(ctx, req.SlotID)
	if err != nil {
		u.log.Warnf("Failed to find slot %d: %+v", req.SlotID, err)
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if slot.IsPast(u.now()) {
		return nil, ErrSlotInPast
	}

	existing, err := u.appointmentRepo.FindActiveByPatientAndSlot(ctx, actor.ID, slot.ID)
	if err != nil {
		u.log.Warnf("Failed to check existing appointment: %+v", err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyBooked
	}

	queueNumber, err := u.capacity.Reserve(ctx, slot)
	if err != nil {
		if !errors.Is(err, service.ErrSlotFull) {
			u.log.Warnf("Failed to reserve slot %d: %+v", slot.ID, err)
		}
		return nil, err
	}

	reference, err := newReference(u.now())
	if err != nil {
		u.release(slot)
		return nil, err
	}

	appointment := &entity.Appointment{
		PatientID:   actor.ID,
		SlotID:      slot.ID,
		Reference:   reference,
		QueueNumber: queueNumber,
		Status:      entity.AppointmentStatusPending,
		Notes:       strings.TrimSpace(req.Notes),
	}

	if err := u.appointmentRepo.Create(ctx, appointment); err != nil {
		u.release(slot)
		if isDuplicateKeyError(err, "idx_appointments_active_patient_slot") {
			return nil, ErrAlreadyBooked
		}
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	appointment.Slot = *slot
	response := converter.AppointmentToResponse(appointment)
	u.auditService.LogCreate(ctx, actor.Ref(), entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), response)

	return response, nil
}

func (u *appointmentUsecase) ListMine(ctx context.Context, actor Actor) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindByPatientID(ctx, actor.ID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for %s: %+v", actor.ID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// Cancel is the patient-side cancellation; only the patient who booked may call it.
func (u *appointmentUsecase) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.PatientID != actor.ID {
		return nil, ErrAppointmentNotFound
	}
	if appointment.Status == entity.AppointmentStatusCompleted {
		return nil, ErrAppointmentCompleted
	}

	return u.transition(ctx, actor, appointment, entity.AppointmentStatusCancelled, entity.AuditActionAppointmentCancel)
}

// List returns every appointment for admins and only their own slots for doctors.
func (u *appointmentUsecase) List(ctx context.Context, actor Actor, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	if filter == nil {
		filter = &entity.AppointmentFilter{}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidAppointment
	}

	if !actor.IsAdmin {
		doctor, err := u.ownDoctor(ctx, actor)
		if err != nil {
			return nil, err
		}
		filter.DoctorID = &doctor.ID
	}

	appointments, err := u.appointmentRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) Get(ctx context.Context, actor Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.authorized(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	status := entity.AppointmentStatus(req.Status)
	if !status.Valid() {
		return nil, ErrInvalidAppointment
	}

	appointment, err := u.authorized(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	return u.transition(ctx, actor, appointment, status, entity.AuditActionAppointmentStatus)
}

// transition moves a live appointment to status. Cancelled appointments are final
// and give their place back to the slot.
func (u *appointmentUsecase) transition(ctx context.Context, actor Actor, appointment *entity.Appointment, status entity.AppointmentStatus, action string) (*dto.AppointmentResponse, error) {
	if appointment.IsCancelled() {
		return nil, ErrAppointmentCancelled
	}
	before := converter.AppointmentToResponse(appointment)

	rows, err := u.appointmentRepo.UpdateStatus(ctx, appointment.ID, status)
	if err != nil {
		u.log.Warnf("Failed to update appointment %s: %+v", appointment.ID, err)
		return nil, err
	}
	if rows == 0 {
		// Cancelled concurrently.
		return nil, ErrAppointmentCancelled
	}
	appointment.Status = status

	if status == entity.AppointmentStatusCancelled {
		if err := u.capacity.Release(ctx, &appointment.Slot); err != nil {
			u.log.Warnf("Failed to release slot %d: %+v", appointment.SlotID, err)
		}
	}

	after := converter.AppointmentToResponse(appointment)
	u.auditService.LogUpdate(ctx, actor.Ref(), action, "appointment", appointment.ID.String(), before, after)

	return after, nil
}

func (u *appointmentUsecase) find(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

func (u *appointmentUsecase) authorized(ctx context.Context, actor Actor, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin {
		return appointment, nil
	}

	doctor, err := u.ownDoctor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if appointment.Slot.DoctorID != doctor.ID {
		return nil, ErrForbidden
	}
	return appointment, nil
}

func (u *appointmentUsecase) ownDoctor(ctx context.Context, actor Actor) (*entity.DoctorProfile, error) {
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

// release undoes a reservation after a failed insert. It runs detached so a
// cancelled request still gives the place back.
func (u *appointmentUsecase) release(slot *entity.AvailabilitySlot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := u.capacity.Release(ctx, slot); err != nil {
		u.log.Errorf("Failed to release reservation on slot %d: %+v", slot.ID, err)
	}
}

// newReference builds a booking reference like APT-20260115-K3M9QX.
func newReference(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("APT-%s-%s", now.UTC().Format("20060102"), buf), nil
}
