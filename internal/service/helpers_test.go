package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"clinic-portal/internal/domain/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeLoader struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
}

func (f *fakeLoader) FindByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, id)
}

func (f *fakeLoader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSlotRepo struct {
	mu       sync.Mutex
	slots    map[int]*entity.AvailabilitySlot
	booked   map[int]int64
	maxQueue map[int]int
}

func newFakeSlotRepo(slots ...entity.AvailabilitySlot) *fakeSlotRepo {
	repo := &fakeSlotRepo{
		slots:    map[int]*entity.AvailabilitySlot{},
		booked:   map[int]int64{},
		maxQueue: map[int]int{},
	}
	for i := range slots {
		slot := slots[i]
		repo.slots[slot.ID] = &slot
	}
	return repo
}

func (f *fakeSlotRepo) Create(ctx context.Context, slot *entity.AvailabilitySlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[slot.ID] = slot
	return nil
}

func (f *fakeSlotRepo) FindByID(ctx context.Context, id int) (*entity.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots[id], nil
}

func (f *fakeSlotRepo) FindAll(ctx context.Context, filter *entity.SlotFilter) ([]entity.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.AvailabilitySlot
	for _, slot := range f.slots {
		if filter != nil && filter.From != nil && slot.SlotDate.Before(*filter.From) {
			continue
		}
		out = append(out, *slot)
	}
	return out, nil
}

func (f *fakeSlotRepo) Update(ctx context.Context, slot *entity.AvailabilitySlot) error {
	return f.Create(ctx, slot)
}

func (f *fakeSlotRepo) Delete(ctx context.Context, id int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.slots[id]; !ok {
		return 0, nil
	}
	delete(f.slots, id)
	return 1, nil
}

func (f *fakeSlotRepo) CountBooked(ctx context.Context, id int) (int64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.booked[id], f.maxQueue[id], nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []entity.AuditLog
	err  error
}

func (f *fakeAuditRepo) Create(ctx context.Context, log *entity.AuditLog) error {
	if f.err != nil {
		return f.err
	}
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
			return &f.logs[i], nil
		}
	}
	return nil, nil
}
