package leaderschedule

import (
	"math"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"code.kestrelchain.io/kestrel/bank"
	"code.kestrelchain.io/kestrel/types"
)

const (
	// DefaultMaxSchedules bounds how many epoch schedules the cache
	// retains before evicting the oldest.
	DefaultMaxSchedules = 10
	// MaxSchedulesUnlimited disables retention bounds entirely.
	MaxSchedulesUnlimited = math.MaxInt
)

// Cache maps epochs onto their leader schedules, deriving them lazily from
// the stake distribution captured at construction. Retention is bounded
// unless explicitly overridden to unlimited; the oldest epochs go first.
type Cache struct {
	mu            sync.RWMutex
	schedules     *treemap.Map
	maxSchedules  int
	stakes        map[string]uint64
	slotsPerEpoch uint64
}

// NewCacheFromBank derives the cache from the given bank's stake
// distribution, pre-computing the schedule for the bank's own epoch.
func NewCacheFromBank(b *bank.Bank) *Cache {
	c := &Cache{
		schedules:     treemap.NewWith(utils.UInt64Comparator),
		maxSchedules:  DefaultMaxSchedules,
		stakes:        b.Stakes(),
		slotsPerEpoch: b.SlotsPerEpoch(),
	}
	c.ScheduleForEpoch(b.Epoch())
	return c
}

// SetMaxSchedules overrides the retained schedule bound. Values below one
// are ignored.
func (c *Cache) SetMaxSchedules(max int) {
	if max < 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSchedules = max
	c.evictLocked()
}

// MaxSchedules returns the current retention bound.
func (c *Cache) MaxSchedules() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxSchedules
}

// Len returns the number of cached schedules.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schedules.Size()
}

// SlotsPerEpoch returns the epoch length the cache derives schedules for.
func (c *Cache) SlotsPerEpoch() uint64 {
	return c.slotsPerEpoch
}

// ScheduleForEpoch returns the schedule for an epoch, deriving and caching
// it on first use. Nil when the stake distribution is empty.
func (c *Cache) ScheduleForEpoch(epoch types.Epoch) *Schedule {
	c.mu.RLock()
	if v, ok := c.schedules.Get(uint64(epoch)); ok {
		c.mu.RUnlock()
		return v.(*Schedule)
	}
	c.mu.RUnlock()

	sched := New(epoch, c.stakes, c.slotsPerEpoch)
	if sched == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedules.Put(uint64(epoch), sched)
	c.evictLocked()
	return sched
}

// SlotLeader returns the leader for an absolute slot.
func (c *Cache) SlotLeader(slot types.Slot) (string, bool) {
	if c.slotsPerEpoch == 0 {
		return "", false
	}
	epoch := types.Epoch(uint64(slot) / c.slotsPerEpoch)
	sched := c.ScheduleForEpoch(epoch)
	if sched == nil {
		return "", false
	}
	return sched.LeaderAt(uint64(slot) % c.slotsPerEpoch)
}

// evictLocked drops the smallest epochs until the bound holds. Callers hold
// the write lock.
func (c *Cache) evictLocked() {
	for c.schedules.Size() > c.maxSchedules {
		k, _ := c.schedules.Min()
		c.schedules.Remove(k)
	}
}
