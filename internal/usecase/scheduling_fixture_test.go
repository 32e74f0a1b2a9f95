package usecase

import (
	"testing"
	"time"

	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// schedulingFixture is a clinic with one admin, two doctors and one client.
type schedulingFixture struct {
	profiles     *fakeProfileRepo
	doctors      *fakeDoctorRepo
	slots        *fakeSlotRepo
	appointments *fakeAppointmentRepo
	capacity     *fakeCapacity
	audit        *fakeAuditRepo

	admin, client       Actor
	house, wilson       Actor
	houseDoc, wilsonDoc entity.DoctorProfile

	availability AvailabilityUsecase
	booking      AppointmentUsecase
	doctorUC     DoctorUsecase
}

func newSchedulingFixture(t *testing.T) *schedulingFixture {
	t.Helper()

	adminProfile := entity.Profile{ID: uuid.New(), Email: "admin@clinic.example", FullName: "Admin", Role: entity.RoleAdmin, IsActive: true}
	clientProfile := entity.Profile{ID: uuid.New(), Email: "jane@example.com", FullName: "Jane Doe", Role: entity.RoleClient, IsActive: true}
	houseProfile := entity.Profile{ID: uuid.New(), Email: "house@clinic.example", FullName: "Greg House", Role: entity.RoleDoctor, IsActive: true}
	wilsonProfile := entity.Profile{ID: uuid.New(), Email: "wilson@clinic.example", FullName: "James Wilson", Role: entity.RoleDoctor, IsActive: true}

	f := &schedulingFixture{
		profiles: newFakeProfileRepo(adminProfile, clientProfile, houseProfile, wilsonProfile),
		capacity: newFakeCapacity(),
		audit:    &fakeAuditRepo{},
		admin:    Actor{ID: adminProfile.ID, IsAdmin: true},
		client:   Actor{ID: clientProfile.ID},
		house:    Actor{ID: houseProfile.ID, IsDoctor: true},
		wilson:   Actor{ID: wilsonProfile.ID, IsDoctor: true},
	}

	f.houseDoc = entity.DoctorProfile{
		ID: uuid.New(), UserID: houseProfile.ID, Name: "Greg House", Specialization: "Diagnostics",
		SlotDurationMinutes: 30, DefaultCapacity: 2, ConsultationFee: decimal.NewFromInt(150),
	}
	f.wilsonDoc = entity.DoctorProfile{
		ID: uuid.New(), UserID: wilsonProfile.ID, Name: "James Wilson", Specialization: "Oncology",
		SlotDurationMinutes: 30, DefaultCapacity: 1, ConsultationFee: decimal.NewFromInt(120),
	}
	f.doctors = newFakeDoctorRepo(f.profiles, f.houseDoc, f.wilsonDoc)
	f.slots = newFakeSlotRepo()
	f.appointments = newFakeAppointmentRepo(f.slots)

	audit := service.NewAuditService(testLogger(), f.audit)
	f.availability = NewAvailabilityUsecase(testLogger(), f.slots, f.doctors, f.capacity, audit)
	f.booking = NewAppointmentUsecase(testLogger(), f.appointments, f.slots, f.doctors, f.capacity, audit)
	f.doctorUC = NewDoctorUsecase(testLogger(), f.doctors, audit)
	return f
}

func (f *schedulingFixture) addSlot(doctor entity.DoctorProfile, daysFromToday, capacity int) *entity.AvailabilitySlot {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return f.slots.put(entity.AvailabilitySlot{
		DoctorID:  doctor.ID,
		SlotDate:  today.AddDate(0, 0, daysFromToday),
		StartTime: "09:00:00",
		EndTime:   "09:30:00",
		Capacity:  capacity,
	})
}

func tomorrow() string {
	return time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
}
