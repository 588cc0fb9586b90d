package accounts

import (
	"sync"

	"code.kestrelchain.io/kestrel/types"
)

// droppedSlotsQueue is an unbounded multi-producer single-consumer queue of
// slot identifiers. Senders never block, which matters because banks are
// dropped from replay threads that must not wait on store maintenance.
type droppedSlotsQueue struct {
	mu     sync.Mutex
	notify *sync.Cond
	slots  []types.Slot
	closed bool
}

// DroppedSlotsSender is the producer end of the pruned bank channel.
type DroppedSlotsSender struct {
	q *droppedSlotsQueue
}

// DroppedSlotsReceiver is the consumer end of the pruned bank channel. It
// must be drained by the same thread that performs other store maintenance.
type DroppedSlotsReceiver struct {
	q *droppedSlotsQueue
}

// UnboundedDroppedSlots creates the pruned bank channel pair.
func UnboundedDroppedSlots() (DroppedSlotsSender, DroppedSlotsReceiver) {
	q := &droppedSlotsQueue{}
	q.notify = sync.NewCond(&q.mu)
	return DroppedSlotsSender{q: q}, DroppedSlotsReceiver{q: q}
}

// Send enqueues a dropped slot. Returns false if the receiver was closed.
func (s DroppedSlotsSender) Send(slot types.Slot) bool {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	if s.q.closed {
		return false
	}
	s.q.slots = append(s.q.slots, slot)
	s.q.notify.Signal()
	return true
}

// Recv blocks until a slot is available or the channel is closed. The second
// return value is false once the channel is closed and fully drained.
func (r DroppedSlotsReceiver) Recv() (types.Slot, bool) {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	for len(r.q.slots) == 0 && !r.q.closed {
		r.q.notify.Wait()
	}
	if len(r.q.slots) == 0 {
		return 0, false
	}
	slot := r.q.slots[0]
	r.q.slots = r.q.slots[1:]
	return slot, true
}

// TryRecv returns the next slot without blocking.
func (r DroppedSlotsReceiver) TryRecv() (types.Slot, bool) {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	if len(r.q.slots) == 0 {
		return 0, false
	}
	slot := r.q.slots[0]
	r.q.slots = r.q.slots[1:]
	return slot, true
}

// Len returns the number of queued slots.
func (r DroppedSlotsReceiver) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.slots)
}

// Close marks the channel closed. Queued slots can still be drained,
// subsequent sends are rejected.
func (r DroppedSlotsReceiver) Close() {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	r.q.closed = true
	r.q.notify.Broadcast()
}
