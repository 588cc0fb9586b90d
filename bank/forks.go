package bank

import (
	"errors"
	"sync"

	"code.kestrelchain.io/kestrel/metrics"
	"code.kestrelchain.io/kestrel/types"
)

var (
	ErrUnknownSlot       = errors.New("slot not in fork tree")
	ErrParentNotInForks  = errors.New("parent bank not in fork tree")
	ErrSlotAlreadyExists = errors.New("slot already in fork tree")
)

// Forks owns the set of all live banks and designates exactly one as the
// current root. Every bank inserted after bootstrap descends from the root,
// so the drop notification callback installed on the root propagates without
// reinstallation.
type Forks struct {
	mu    sync.RWMutex
	banks map[types.Slot]*Bank
	root  types.Slot
}

// NewForks creates the fork tree around its initial root bank.
func NewForks(root *Bank) *Forks {
	f := &Forks{
		banks: map[types.Slot]*Bank{
			root.Slot(): root,
		},
		root: root.Slot(),
	}
	metrics.ForkBanksSet(1)
	metrics.RootSlotSet(uint64(f.root))
	return f
}

// Insert adds a bank to the tree. Its parent must already be live.
func (f *Forks) Insert(b *Bank) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.banks[b.Slot()]; ok {
		return ErrSlotAlreadyExists
	}
	parent := b.Parent()
	if parent == nil {
		return ErrParentNotInForks
	}
	if _, ok := f.banks[parent.Slot()]; !ok {
		return ErrParentNotInForks
	}
	f.banks[b.Slot()] = b
	metrics.ForkBanksSet(len(f.banks))
	return nil
}

// Get returns the live bank at the given slot.
func (f *Forks) Get(slot types.Slot) (*Bank, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.banks[slot]
	return b, ok
}

// Root returns the current root bank.
func (f *Forks) Root() *Bank {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.banks[f.root]
}

// RootSlot returns the current root slot.
func (f *Forks) RootSlot() types.Slot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.root
}

// Banks returns a copy of the live bank set.
func (f *Forks) Banks() map[types.Slot]*Bank {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cp := make(map[types.Slot]*Bank, len(f.banks))
	for s, b := range f.banks {
		cp[s] = b
	}
	return cp
}

// Len returns the number of live banks.
func (f *Forks) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.banks)
}

// SetRoot re-roots the tree at the given slot and prunes every bank that
// does not descend from the new root. Each pruned bank emits exactly one
// drop notification; nothing is reclaimed in place.
func (f *Forks) SetRoot(slot types.Slot) error {
	f.mu.Lock()
	newRoot, ok := f.banks[slot]
	if !ok {
		f.mu.Unlock()
		return ErrUnknownSlot
	}
	var pruned []*Bank
	for s, b := range f.banks {
		if s == slot || descendsFrom(b, newRoot) {
			continue
		}
		delete(f.banks, s)
		pruned = append(pruned, b)
	}
	f.root = slot
	metrics.ForkBanksSet(len(f.banks))
	metrics.RootSlotSet(uint64(slot))
	f.mu.Unlock()

	// notify outside the tree lock, senders must not wait on it
	for _, b := range pruned {
		b.notifyDrop()
	}
	return nil
}

func descendsFrom(b, ancestor *Bank) bool {
	for p := b.Parent(); p != nil; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}
