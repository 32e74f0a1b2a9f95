package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/domain/repository"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrSlotFull           = errors.New("slot is fully booked")
	errCapacityNotTracked = errors.New("slot capacity is not tracked")
)

// reserveScript takes one place from KEYS[1] and hands out the next queue
// number from KEYS[2] in a single step. Returns -1 when the slot is full and
// -2 when capacity has not been loaded into Redis yet.
var reserveScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -2
	end
	local remaining = redis.call('DECR', KEYS[1])
	if remaining < 0 then
		redis.call('INCR', KEYS[1])
		return -1
	end
	return redis.call('INCR', KEYS[2])
`)

// releaseScript gives a place back without exceeding the slot capacity in ARGV[1].
var releaseScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -2
	end
	local remaining = redis.call('INCR', KEYS[1])
	if remaining > tonumber(ARGV[1]) then
		redis.call('SET', KEYS[1], ARGV[1], 'KEEPTTL')
		return tonumber(ARGV[1])
	end
	return remaining
`)

const (
	SlotCapacityKeyPrefix = "slot:capacity:"
	SlotQueueKeyPrefix    = "slot:queue:"

	capacitySyncBatchSize = 500
	lockSweepInterval     = 10 * time.Minute
	lockIdleThreshold     = 10 * time.Minute
)

// SlotCapacityService keeps the remaining capacity and the queue counter of
// every upcoming availability slot in Redis. The database stays the source of
// truth: Sync recomputes both counters from appointments.
//
// Reservations run as a Lua script and need no lock. Sync, Release and Drop
// take a per-slot mutex so a resync never interleaves with a release.
type SlotCapacityService struct {
	slotRepo    repository.AvailabilitySlotRepository
	redisClient *redis.Client
	log         *logrus.Logger
	now         func() time.Time

	locks sync.Map // map[int]*slotLock

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

type slotLock struct {
	mu       sync.Mutex
	lastUsed atomic.Int64
}

// NewSlotCapacityService starts a background sweeper for idle locks; call Stop on shutdown.
func NewSlotCapacityService(slotRepo repository.AvailabilitySlotRepository, redisClient *redis.Client, log *logrus.Logger) *SlotCapacityService {
	svc := &SlotCapacityService{
		slotRepo:    slotRepo,
		redisClient: redisClient,
		log:         log,
		now:         time.Now,
		stopChan:    make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.sweepLoop()

	return svc
}

func (s *SlotCapacityService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("SlotCapacityService stopped")
	}
}

// SyncUpcoming loads every slot from today onwards into Redis. Runs before the
// server accepts traffic.
func (s *SlotCapacityService) SyncUpcoming(ctx context.Context) error {
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	started := s.now()
	today := started.UTC().Truncate(24 * time.Hour)

	slots, err := s.slotRepo.FindAll(ctx, &entity.SlotFilter{From: &today})
	if err != nil {
		return fmt.Errorf("list upcoming slots: %w", err)
	}

	for start := 0; start < len(slots); start += capacitySyncBatchSize {
		end := min(start+capacitySyncBatchSize, len(slots))

		pipe := s.redisClient.TxPipeline()
		for i := range slots[start:end] {
			slot := &slots[start+i]
			booked, maxQueue, err := s.slotRepo.CountBooked(ctx, slot.ID)
			if err != nil {
				return fmt.Errorf("count appointments for slot %d: %w", slot.ID, err)
			}
			s.queueCounters(ctx, pipe, slot, booked, maxQueue)
		}

		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("write capacity batch at %d: %w", start, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.log.Infof("Slot capacity synced: %d slots in %v", len(slots), time.Since(started))
	return nil
}

// Sync recomputes the counters of one slot from the database.
func (s *SlotCapacityService) Sync(ctx context.Context, slot *entity.AvailabilitySlot) error {
	lock := s.lockFor(slot.ID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	return s.syncLocked(ctx, slot)
}

func (s *SlotCapacityService) syncLocked(ctx context.Context, slot *entity.AvailabilitySlot) error {
	if slot.IsPast(s.now()) {
		s.log.Debugf("Skipping capacity sync for past slot %d", slot.ID)
		return nil
	}

	booked, maxQueue, err := s.slotRepo.CountBooked(ctx, slot.ID)
	if err != nil {
		return fmt.Errorf("count appointments for slot %d: %w", slot.ID, err)
	}

	pipe := s.redisClient.TxPipeline()
	s.queueCounters(ctx, pipe, slot, booked, maxQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write capacity for slot %d: %w", slot.ID, err)
	}
	return nil
}

func (s *SlotCapacityService) queueCounters(ctx context.Context, pipe redis.Pipeliner, slot *entity.AvailabilitySlot, booked int64, maxQueue int) {
	remaining := max(slot.Capacity-int(booked), 0)
	ttl := s.ttlFor(slot.SlotDate)

	pipe.Set(ctx, capacityKey(slot.ID), remaining, ttl)
	pipe.Set(ctx, queueKey(slot.ID), maxQueue, ttl)
}

// Reserve takes one place in the slot and returns the queue number issued for it.
func (s *SlotCapacityService) Reserve(ctx context.Context, slot *entity.AvailabilitySlot) (int, error) {
	queue, err := s.runReserve(ctx, slot.ID)
	if errors.Is(err, errCapacityNotTracked) {
		if err := s.Sync(ctx, slot); err != nil {
			return 0, err
		}
		queue, err = s.runReserve(ctx, slot.ID)
	}
	if err != nil {
		return 0, err
	}

	s.log.Debugf("Reserved place in slot %d: queue_number=%d", slot.ID, queue)
	return queue, nil
}

func (s *SlotCapacityService) runReserve(ctx context.Context, slotID int) (int, error) {
	result, err := reserveScript.Run(ctx, s.redisClient, []string{capacityKey(slotID), queueKey(slotID)}).Int()
	if err != nil {
		return 0, fmt.Errorf("reserve slot %d: %w", slotID, err)
	}

	switch result {
	case -1:
		return 0, ErrSlotFull
	case -2:
		return 0, errCapacityNotTracked
	}
	return result, nil
}

// Release returns a place after a cancellation. Queue numbers are never reused.
func (s *SlotCapacityService) Release(ctx context.Context, slot *entity.AvailabilitySlot) error {
	lock := s.lockFor(slot.ID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	result, err := releaseScript.Run(ctx, s.redisClient, []string{capacityKey(slot.ID)}, slot.Capacity).Int()
	if err != nil {
		return fmt.Errorf("release slot %d: %w", slot.ID, err)
	}
	if result == -2 {
		// Counters expired or were never loaded; the database already reflects the cancellation.
		return s.syncLocked(ctx, slot)
	}
	return nil
}

// Remaining reports the free places of a slot, loading counters on a miss.
func (s *SlotCapacityService) Remaining(ctx context.Context, slot *entity.AvailabilitySlot) (int, error) {
	remaining, err := s.redisClient.Get(ctx, capacityKey(slot.ID)).Int()
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, err
	}

	if slot.IsPast(s.now()) {
		return 0, nil
	}
	if err := s.Sync(ctx, slot); err != nil {
		return 0, err
	}
	return s.redisClient.Get(ctx, capacityKey(slot.ID)).Int()
}

// Drop forgets the counters of a deleted slot.
func (s *SlotCapacityService) Drop(ctx context.Context, slotID int) error {
	lock := s.lockFor(slotID)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		s.locks.Delete(slotID)
	}()

	if err := s.redisClient.Del(ctx, capacityKey(slotID), queueKey(slotID)).Err(); err != nil {
		return fmt.Errorf("drop counters for slot %d: %w", slotID, err)
	}
	return nil
}

func (s *SlotCapacityService) lockFor(slotID int) *slotLock {
	v, _ := s.locks.LoadOrStore(slotID, &slotLock{})
	lock := v.(*slotLock)
	lock.lastUsed.Store(s.now().Unix())
	return lock
}

func (s *SlotCapacityService) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(lockSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepIdleLocks()
		}
	}
}

func (s *SlotCapacityService) sweepIdleLocks() {
	cutoff := s.now().Add(-lockIdleThreshold).Unix()

	s.locks.Range(func(key, value any) bool {
		lock := value.(*slotLock)
		// A held lock is in use; checking lastUsed under the lock avoids racing a fresh lockFor.
		if lock.mu.TryLock() {
			if lock.lastUsed.Load() < cutoff {
				s.locks.Delete(key)
			}
			lock.mu.Unlock()
		}
		return true
	})
}

// ttlFor keeps counters until the day after the slot.
func (s *SlotCapacityService) ttlFor(slotDate time.Time) time.Duration {
	ttl := slotDate.AddDate(0, 0, 2).Sub(s.now())
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}

func capacityKey(slotID int) string {
	return fmt.Sprintf("%s%d", SlotCapacityKeyPrefix, slotID)
}

func queueKey(slotID int) string {
	return fmt.Sprintf("%s%d", SlotQueueKeyPrefix, slotID)
}
