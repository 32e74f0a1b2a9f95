package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"clinic-portal/config"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/service"
	"clinic-portal/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	passwordHashCost = bcrypt.MinCost
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestTokenStore(t *testing.T) service.TokenStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return service.NewTokenStore(client)
}

func newTestJWT() *jwt.JWTService {
	return jwt.NewJWTService(config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
		ResetExpiry:   30 * time.Minute,
	})
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := hashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	return hashed
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// profiles

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*entity.Profile
	doctors  *fakeDoctorRepo

	// afterFind runs once a lookup has returned, to interleave a concurrent writer.
	afterFind func(id uuid.UUID)
}

func newFakeProfileRepo(profiles ...entity.Profile) *fakeProfileRepo {
	repo := &fakeProfileRepo{profiles: map[uuid.UUID]*entity.Profile{}}
	for i := range profiles {
		p := profiles[i]
		repo.profiles[p.ID] = &p
	}
	return repo
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *entity.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if strings.EqualFold(p.Email, profile.Email) {
			return uniqueViolation("idx_profiles_email")
		}
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	cp := *profile
	f.profiles[profile.ID] = &cp
	return nil
}

func (f *fakeProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	f.mu.Lock()
	p, ok := f.profiles[id]
	var cp entity.Profile
	if ok {
		cp = *p
	}
	hook := f.afterFind
	f.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (f *fakeProfileRepo) FindByEmail(ctx context.Context, email string) (*entity.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeProfileRepo) FindAll(ctx context.Context, filter *entity.ProfileFilter) ([]entity.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Profile
	for _, p := range f.profiles {
		if filter != nil && filter.Role != "" && p.Role != filter.Role {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProfileRepo) UpdateDetails(ctx context.Context, id uuid.UUID, fullName, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.FullName = fullName
	p.Phone = phone
	return nil
}

func (f *fakeProfileRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.PasswordHash = passwordHash
	return nil
}

func (f *fakeProfileRepo) ChangeRole(ctx context.Context, id uuid.UUID, role entity.Role, doctorProfile *entity.DoctorProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Role = role
	if doctorProfile != nil && f.doctors != nil {
		f.doctors.add(*doctorProfile)
	}
	return nil
}

func (f *fakeProfileRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.IsActive = active
	return nil
}

func (f *fakeProfileRepo) CountByRole(ctx context.Context) (map[entity.Role]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[entity.Role]int64{}
	for _, p := range f.profiles {
		counts[p.Role]++
	}
	return counts, nil
}

// doctors

type fakeDoctorRepo struct {
	mu       sync.Mutex
	doctors  map[uuid.UUID]*entity.DoctorProfile
	profiles *fakeProfileRepo
}

func newFakeDoctorRepo(profiles *fakeProfileRepo, doctors ...entity.DoctorProfile) *fakeDoctorRepo {
	repo := &fakeDoctorRepo{doctors: map[uuid.UUID]*entity.DoctorProfile{}, profiles: profiles}
	if profiles != nil {
		profiles.doctors = repo
	}
	for _, d := range doctors {
		repo.add(d)
	}
	return repo
}

func (f *fakeDoctorRepo) add(d entity.DoctorProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	f.doctors[d.ID] = &d
}

// withUser mirrors Preload("User").
func (f *fakeDoctorRepo) withUser(d entity.DoctorProfile) entity.DoctorProfile {
	if f.profiles != nil {
		if p, _ := f.profiles.FindByID(context.Background(), d.UserID); p != nil {
			d.User = *p
		}
	}
	return d
}

func (f *fakeDoctorRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.DoctorProfile, error) {
	f.mu.Lock()
	d, ok := f.doctors[id]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	out := f.withUser(*d)
	return &out, nil
}

func (f *fakeDoctorRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.DoctorProfile, error) {
	f.mu.Lock()
	var found *entity.DoctorProfile
	for _, d := range f.doctors {
		if d.UserID == userID {
			found = d
		}
	}
	f.mu.Unlock()
	if found == nil {
		return nil, nil
	}
	out := f.withUser(*found)
	return &out, nil
}

func (f *fakeDoctorRepo) FindAll(ctx context.Context, filter *entity.DoctorFilter) ([]entity.DoctorProfile, error) {
	f.mu.Lock()
	all := make([]entity.DoctorProfile, 0, len(f.doctors))
	for _, d := range f.doctors {
		all = append(all, *d)
	}
	f.mu.Unlock()

	var out []entity.DoctorProfile
	for _, d := range all {
		d = f.withUser(d)
		if filter != nil && filter.ActiveOnly && (!d.User.IsActive || d.User.Role != entity.RoleDoctor) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDoctorRepo) Update(ctx context.Context, profile *entity.DoctorProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *profile
	f.doctors[profile.ID] = &cp
	return nil
}

// contact submissions

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions []entity.ContactSubmission
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *entity.ContactSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}
	f.submissions = append(f.submissions, *submission)
	return nil
}

func (f *fakeSubmissionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.ContactSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.submissions {
		if f.submissions[i].ID == id {
			cp := f.submissions[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSubmissionRepo) FindAll(ctx context.Context, filter *entity.ContactFilter) ([]entity.ContactSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.ContactSubmission
	for _, s := range f.submissions {
		if filter != nil && filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSubmissionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SubmissionStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.submissions {
		if f.submissions[i].ID == id {
			f.submissions[i].Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeSubmissionRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.submissions {
		if f.submissions[i].ID == id {
			f.submissions = append(f.submissions[:i], f.submissions[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeSubmissionRepo) CountByStatus(ctx context.Context) (map[entity.SubmissionStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[entity.SubmissionStatus]int64{}
	for _, s := range f.submissions {
		counts[s.Status]++
	}
	return counts, nil
}

// slots and appointments

type fakeSlotRepo struct {
	mu           sync.Mutex
	nextID       int
	slots        map[int]*entity.AvailabilitySlot
	appointments *fakeAppointmentRepo
}

func newFakeSlotRepo(slots ...entity.AvailabilitySlot) *fakeSlotRepo {
	repo := &fakeSlotRepo{slots: map[int]*entity.AvailabilitySlot{}}
	for _, s := range slots {
		repo.put(s)
	}
	return repo
}

func (f *fakeSlotRepo) put(s entity.AvailabilitySlot) *entity.AvailabilitySlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == 0 {
		f.nextID++
		s.ID = f.nextID
	} else if s.ID > f.nextID {
		f.nextID = s.ID
	}
	f.slots[s.ID] = &s
	return &s
}

func (f *fakeSlotRepo) Create(ctx context.Context, slot *entity.AvailabilitySlot) error {
	f.mu.Lock()
	for _, s := range f.slots {
		if s.DoctorID == slot.DoctorID && s.SlotDate.Equal(slot.SlotDate) && s.StartTime == slot.StartTime {
			f.mu.Unlock()
			return uniqueViolation("availability_slots_doctor_id_slot_date_start_time_key")
		}
	}
	f.mu.Unlock()
	stored := f.put(*slot)
	slot.ID = stored.ID
	return nil
}

func (f *fakeSlotRepo) FindByID(ctx context.Context, id int) (*entity.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSlotRepo) FindAll(ctx context.Context, filter *entity.SlotFilter) ([]entity.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.AvailabilitySlot
	for _, s := range f.slots {
		if filter != nil {
			if filter.DoctorID != nil && s.DoctorID != *filter.DoctorID {
				continue
			}
			if filter.From != nil && s.SlotDate.Before(*filter.From) {
				continue
			}
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSlotRepo) Update(ctx context.Context, slot *entity.AvailabilitySlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *slot
	f.slots[slot.ID] = &cp
	return nil
}

func (f *fakeSlotRepo) Delete(ctx context.Context, id int) (int64, error) {
	if f.appointments != nil {
		f.appointments.mu.Lock()
		for _, a := range f.appointments.appointments {
			if a.SlotID == id && a.Status != entity.AppointmentStatusCancelled {
				f.appointments.mu.Unlock()
				return 0, &pgconn.PgError{Code: "23503", ConstraintName: "appointments_slot_id_fkey"}
			}
		}
		for apptID, a := range f.appointments.appointments {
			if a.SlotID == id {
				delete(f.appointments.appointments, apptID)
			}
		}
		f.appointments.mu.Unlock()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.slots[id]; !ok {
		return 0, nil
	}
	delete(f.slots, id)
	return 1, nil
}

func (f *fakeSlotRepo) CountBooked(ctx context.Context, id int) (int64, int, error) {
	if f.appointments == nil {
		return 0, 0, nil
	}
	f.appointments.mu.Lock()
	defer f.appointments.mu.Unlock()
	var booked int64
	var maxQueue int
	for _, a := range f.appointments.appointments {
		if a.SlotID != id {
			continue
		}
		if a.HoldsCapacity() {
			booked++
		}
		maxQueue = max(maxQueue, a.QueueNumber)
	}
	return booked, maxQueue, nil
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*entity.Appointment
	slots        *fakeSlotRepo
	createErr    error
}

func newFakeAppointmentRepo(slots *fakeSlotRepo) *fakeAppointmentRepo {
	repo := &fakeAppointmentRepo{appointments: map[uuid.UUID]*entity.Appointment{}, slots: slots}
	slots.appointments = repo
	return repo
}

// withSlot mirrors Preload("Slot").
func (f *fakeAppointmentRepo) withSlot(a entity.Appointment) entity.Appointment {
	if s, _ := f.slots.FindByID(context.Background(), a.SlotID); s != nil {
		a.Slot = *s
	}
	return a
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, appointment *entity.Appointment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	cp := *appointment
	cp.Slot = entity.AvailabilitySlot{}
	f.appointments[cp.ID] = &cp
	return nil
}

func (f *fakeAppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	f.mu.Lock()
	a, ok := f.appointments[id]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	out := f.withSlot(*a)
	return &out, nil
}

func (f *fakeAppointmentRepo) FindByPatientID(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	f.mu.Lock()
	var out []entity.Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	f.mu.Unlock()
	for i := range out {
		out[i] = f.withSlot(out[i])
	}
	return out, nil
}

func (f *fakeAppointmentRepo) FindActiveByPatientAndSlot(ctx context.Context, patientID uuid.UUID, slotID int) (*entity.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.PatientID == patientID && a.SlotID == slotID && !a.IsCancelled() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) FindAll(ctx context.Context, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	f.mu.Lock()
	all := make([]entity.Appointment, 0, len(f.appointments))
	for _, a := range f.appointments {
		all = append(all, *a)
	}
	f.mu.Unlock()

	var out []entity.Appointment
	for _, a := range all {
		a = f.withSlot(a)
		if filter != nil {
			if filter.DoctorID != nil && a.Slot.DoctorID != *filter.DoctorID {
				continue
			}
			if filter.Status != "" && a.Status != filter.Status {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AppointmentStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || a.IsCancelled() {
		return 0, nil
	}
	a.Status = status
	return 1, nil
}

func (f *fakeAppointmentRepo) CountUpcoming(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.appointments {
		if a.Status == entity.AppointmentStatusPending || a.Status == entity.AppointmentStatusConfirmed {
			n++
		}
	}
	return n, nil
}

// fakeCapacity keeps remaining places in memory.
type fakeCapacity struct {
	mu        sync.Mutex
	remaining map[int]int
	queue     map[int]int
	released  []int
	dropped   []int
	synced    []int
}

func newFakeCapacity() *fakeCapacity {
	return &fakeCapacity{remaining: map[int]int{}, queue: map[int]int{}}
}

func (f *fakeCapacity) Reserve(ctx context.Context, slot *entity.AvailabilitySlot) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining, ok := f.remaining[slot.ID]
	if !ok {
		remaining = slot.Capacity
	}
	if remaining <= 0 {
		f.remaining[slot.ID] = 0
		return 0, service.ErrSlotFull
	}
	f.remaining[slot.ID] = remaining - 1
	f.queue[slot.ID]++
	return f.queue[slot.ID], nil
}

func (f *fakeCapacity) Release(ctx context.Context, slot *entity.AvailabilitySlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, slot.ID)
	if remaining, ok := f.remaining[slot.ID]; ok {
		f.remaining[slot.ID] = min(remaining+1, slot.Capacity)
	}
	return nil
}

func (f *fakeCapacity) Sync(ctx context.Context, slot *entity.AvailabilitySlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, slot.ID)
	f.remaining[slot.ID] = slot.Capacity
	return nil
}

func (f *fakeCapacity) Remaining(ctx context.Context, slot *entity.AvailabilitySlot) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if remaining, ok := f.remaining[slot.ID]; ok {
		return remaining, nil
	}
	return slot.Capacity, nil
}

func (f *fakeCapacity) Drop(ctx context.Context, slotID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, slotID)
	delete(f.remaining, slotID)
	return nil
}

func (f *fakeCapacity) Released() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.released...)
}

// audit

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []entity.AuditLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, log *entity.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	log.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAuditRepo) FindAll(ctx context.Context) ([]entity.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.AuditLog(nil), f.logs...), nil
}

func (f *fakeAuditRepo) FindByID(ctx context.Context, id int64) (*entity.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.logs {
		if f.logs[i].ID == id {
			cp := f.logs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAuditRepo) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.logs))
	for i, l := range f.logs {
		out[i] = l.Action
	}
	return out
}

// resolver and mailer

type fakeResolver struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (f *fakeResolver) Resolve(ctx context.Context, userID uuid.UUID) service.Resolution {
	return service.AnonymousResolution()
}

func (f *fakeResolver) Invalidate(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, userID)
	return nil
}

func (f *fakeResolver) Invalidated() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.invalidated...)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []service.Email
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, email service.Email) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, email)
	return "msg-1", nil
}

func (f *fakeMailer) Sent() []service.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Email(nil), f.sent...)
}
