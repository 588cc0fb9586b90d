package bank

import (
	"sort"
	"sync"

	"code.kestrelchain.io/kestrel/types"
)

// HardFork is one registered protocol rule change point. Count tracks how
// many times the same slot was registered, registration stays idempotent on
// the set of slots.
type HardFork struct {
	Slot  types.Slot
	Count int
}

// HardForks is the ordered registry of operator declared rule change slots.
// Written by bootstrap overrides, read by replay, hence the lock.
type HardForks struct {
	mu    sync.RWMutex
	forks []HardFork
}

func NewHardForks() *HardForks {
	return &HardForks{}
}

// Register adds a hard fork at the given slot, keeping the registry ordered.
// Registering an already known slot only bumps its count.
func (h *HardForks) Register(slot types.Slot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := sort.Search(len(h.forks), func(i int) bool {
		return h.forks[i].Slot >= slot
	})
	if i < len(h.forks) && h.forks[i].Slot == slot {
		h.forks[i].Count++
		return
	}
	h.forks = append(h.forks, HardFork{})
	copy(h.forks[i+1:], h.forks[i:])
	h.forks[i] = HardFork{Slot: slot, Count: 1}
}

// Forks returns a copy of the registry, ordered by slot.
func (h *HardForks) Forks() []HardFork {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make([]HardFork, len(h.forks))
	copy(cp, h.forks)
	return cp
}

// Contains reports whether a hard fork is registered at the given slot.
func (h *HardForks) Contains(slot types.Slot) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	i := sort.Search(len(h.forks), func(i int) bool {
		return h.forks[i].Slot >= slot
	})
	return i < len(h.forks) && h.forks[i].Slot == slot
}

// Len returns the number of distinct registered slots.
func (h *HardForks) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.forks)
}
