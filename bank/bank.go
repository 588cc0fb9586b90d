package bank

import (
	"encoding/binary"

	"code.kestrelchain.io/kestrel/accounts"
	"code.kestrelchain.io/kestrel/crypto"
	"code.kestrelchain.io/kestrel/types"
)

// Bank is one slot's materialized execution state. Banks form a tree through
// their parent back-reference; the fork tree owns every live bank.
type Bank struct {
	slot   types.Slot
	parent *Bank
	hash   types.Hash

	db            *accounts.DB
	stakes        map[string]uint64
	slotsPerEpoch uint64
	hardForks     *HardForks

	// set once on the root at bootstrap, before any concurrent fork tree
	// mutation, and inherited by every descendant at creation
	dropCallback accounts.DropCallback
}

// New creates a parentless bank, the product of either genesis processing or
// a snapshot restore.
func New(db *accounts.DB, slot types.Slot, stakes map[string]uint64, slotsPerEpoch uint64) *Bank {
	cp := make(map[string]uint64, len(stakes))
	for k, v := range stakes {
		cp[k] = v
	}
	return &Bank{
		slot:          slot,
		db:            db,
		stakes:        cp,
		slotsPerEpoch: slotsPerEpoch,
		hardForks:     NewHardForks(),
	}
}

// NewFromParent creates the bank for a descendant slot. The drop callback,
// account store reference and stake distribution are inherited, hard fork
// registrations carry over.
func NewFromParent(parent *Bank, slot types.Slot) *Bank {
	b := New(parent.db, slot, parent.stakes, parent.slotsPerEpoch)
	b.parent = parent
	b.hardForks = parent.hardForks
	b.dropCallback = parent.dropCallback
	return b
}

func (b *Bank) Slot() types.Slot {
	return b.slot
}

func (b *Bank) Parent() *Bank {
	return b.parent
}

func (b *Bank) Hash() types.Hash {
	return b.hash
}

// Freeze seals the bank contents and computes its hash.
func (b *Bank) Freeze() {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(b.slot))
	binary.BigEndian.PutUint64(buf[8:], b.slotsPerEpoch)
	parentHash := types.Hash{}
	if b.parent != nil {
		parentHash = b.parent.hash
	}
	b.hash = crypto.HashOf(parentHash.Bytes(), buf[:])
}

// SetHash restores a hash computed elsewhere, e.g. read back from a
// snapshot archive.
func (b *Bank) SetHash(h types.Hash) {
	b.hash = h
}

func (b *Bank) DB() *accounts.DB {
	return b.db
}

func (b *Bank) SlotsPerEpoch() uint64 {
	return b.slotsPerEpoch
}

// Epoch returns the epoch this bank's slot belongs to.
func (b *Bank) Epoch() types.Epoch {
	return b.EpochOf(b.slot)
}

// EpochOf maps any slot onto its epoch.
func (b *Bank) EpochOf(slot types.Slot) types.Epoch {
	if b.slotsPerEpoch == 0 {
		return 0
	}
	return types.Epoch(uint64(slot) / b.slotsPerEpoch)
}

// FirstSlotOfEpoch returns the first slot of the given epoch.
func (b *Bank) FirstSlotOfEpoch(epoch types.Epoch) types.Slot {
	return types.Slot(uint64(epoch) * b.slotsPerEpoch)
}

// Stakes returns a copy of the stake distribution backing leader schedule
// derivation.
func (b *Bank) Stakes() map[string]uint64 {
	cp := make(map[string]uint64, len(b.stakes))
	for k, v := range b.stakes {
		cp[k] = v
	}
	return cp
}

func (b *Bank) HardForks() *HardForks {
	return b.hardForks
}

// SetDropCallback installs the drop notification callback. Only ever called
// on the root bank at bootstrap; descendants inherit it structurally.
func (b *Bank) SetDropCallback(cb accounts.DropCallback) {
	b.dropCallback = cb
}

// notifyDrop reports this bank's removal from the fork tree. Called exactly
// once per removed bank.
func (b *Bank) notifyDrop() {
	if b.dropCallback != nil {
		b.dropCallback(b.slot)
	}
}
