package snapshot

import (
	"code.kestrelchain.io/kestrel/types"
)

// SlotHash is a (slot, content hash) pair identifying one archive.
type SlotHash struct {
	Slot types.Slot
	Hash types.Hash
}

// IncrementalDescriptor identifies an incremental snapshot together with the
// exact full snapshot it was derived from. An incremental is only valid
// relative to its base.
type IncrementalDescriptor struct {
	SlotHash
	Base SlotHash
}

// Descriptor captures what the node booted from: the full snapshot, plus the
// incremental chained onto it when one was used.
type Descriptor struct {
	Full        SlotHash
	Incremental *IncrementalDescriptor
}

// NewDescriptor builds a descriptor from the archives actually restored.
func NewDescriptor(full FullArchiveInfo, incremental *IncrementalArchiveInfo) *Descriptor {
	d := &Descriptor{
		Full: SlotHash{Slot: full.Slot, Hash: full.Hash},
	}
	if incremental != nil {
		d.Incremental = &IncrementalDescriptor{
			SlotHash: SlotHash{Slot: incremental.Slot, Hash: incremental.Hash},
			Base:     d.Full,
		}
	}
	return d
}

// BootSlot returns the slot the restored bank starts at.
func (d *Descriptor) BootSlot() types.Slot {
	if d.Incremental != nil {
		return d.Incremental.Slot
	}
	return d.Full.Slot
}
