package bank_test

import (
	"sync"
	"testing"

	"code.kestrelchain.io/kestrel/bank"
	"code.kestrelchain.io/kestrel/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForks(t *testing.T) {
	t.Run("New fork tree holds exactly the root", testForksNewHoldsRoot)
	t.Run("Insert requires a live parent", testForksInsertRequiresLiveParent)
	t.Run("Insert rejects duplicate slots", testForksInsertRejectsDuplicateSlots)
	t.Run("Set root keeps the new root and its descendants", testForksSetRootKeepsDescendants)
	t.Run("Set root notifies exactly once per pruned bank", testForksSetRootNotifiesOncePerPrunedBank)
	t.Run("Set root rejects unknown slots", testForksSetRootRejectsUnknownSlots)
	t.Run("Descendants inherit the root drop callback", testForksDescendantsInheritDropCallback)
}

func newTestRoot(t *testing.T, slot types.Slot) *bank.Bank {
	t.Helper()
	return bank.New(nil, slot, map[string]uint64{"v1": 100}, 32)
}

func testForksNewHoldsRoot(t *testing.T) {
	root := newTestRoot(t, 10)
	forks := bank.NewForks(root)

	require.Equal(t, 1, forks.Len())
	assert.Equal(t, root, forks.Root())
	assert.Equal(t, types.Slot(10), forks.RootSlot())

	got, ok := forks.Get(10)
	require.True(t, ok)
	assert.Equal(t, root, got)
}

func testForksInsertRequiresLiveParent(t *testing.T) {
	root := newTestRoot(t, 0)
	forks := bank.NewForks(root)

	orphanParent := bank.NewFromParent(root, 1)
	orphan := bank.NewFromParent(orphanParent, 2)

	// parent at slot 1 was never inserted
	err := forks.Insert(orphan)
	require.ErrorIs(t, err, bank.ErrParentNotInForks)

	require.NoError(t, forks.Insert(orphanParent))
	require.NoError(t, forks.Insert(orphan))
	assert.Equal(t, 3, forks.Len())
}

func testForksInsertRejectsDuplicateSlots(t *testing.T) {
	root := newTestRoot(t, 0)
	forks := bank.NewForks(root)

	require.NoError(t, forks.Insert(bank.NewFromParent(root, 1)))
	err := forks.Insert(bank.NewFromParent(root, 1))
	require.ErrorIs(t, err, bank.ErrSlotAlreadyExists)
}

func testForksSetRootKeepsDescendants(t *testing.T) {
	root := newTestRoot(t, 0)
	forks := bank.NewForks(root)

	// two competing lineages off the root
	a1 := bank.NewFromParent(root, 1)
	a2 := bank.NewFromParent(a1, 2)
	b1 := bank.NewFromParent(root, 3)
	b2 := bank.NewFromParent(b1, 4)
	for _, b := range []*bank.Bank{a1, a2, b1, b2} {
		require.NoError(t, forks.Insert(b))
	}

	require.NoError(t, forks.SetRoot(3))

	assert.Equal(t, types.Slot(3), forks.RootSlot())
	assert.Equal(t, 2, forks.Len())

	_, ok := forks.Get(1)
	assert.False(t, ok)
	_, ok = forks.Get(2)
	assert.False(t, ok)
	_, ok = forks.Get(4)
	assert.True(t, ok)
}

func testForksSetRootNotifiesOncePerPrunedBank(t *testing.T) {
	root := newTestRoot(t, 0)

	var mu sync.Mutex
	dropped := map[types.Slot]int{}
	root.SetDropCallback(func(slot types.Slot) {
		mu.Lock()
		dropped[slot]++
		mu.Unlock()
	})

	forks := bank.NewForks(root)
	a1 := bank.NewFromParent(root, 1)
	b1 := bank.NewFromParent(root, 2)
	b2 := bank.NewFromParent(b1, 5)
	for _, b := range []*bank.Bank{a1, b1, b2} {
		require.NoError(t, forks.Insert(b))
	}

	require.NoError(t, forks.SetRoot(5))

	// the old root, the losing fork and the new root's parent each drop once
	assert.Equal(t, map[types.Slot]int{0: 1, 1: 1, 2: 1}, dropped)

	// rooting again at the same slot drops nothing further
	require.NoError(t, forks.SetRoot(5))
	assert.Equal(t, map[types.Slot]int{0: 1, 1: 1, 2: 1}, dropped)
}

func testForksSetRootRejectsUnknownSlots(t *testing.T) {
	root := newTestRoot(t, 0)
	forks := bank.NewForks(root)

	err := forks.SetRoot(42)
	require.ErrorIs(t, err, bank.ErrUnknownSlot)
	assert.Equal(t, types.Slot(0), forks.RootSlot())
}

func testForksDescendantsInheritDropCallback(t *testing.T) {
	root := newTestRoot(t, 0)

	var dropped []types.Slot
	root.SetDropCallback(func(slot types.Slot) {
		dropped = append(dropped, slot)
	})

	forks := bank.NewForks(root)

	// children created after the callback was installed inherit it
	child := bank.NewFromParent(root, 1)
	grandChild := bank.NewFromParent(child, 2)
	require.NoError(t, forks.Insert(child))
	require.NoError(t, forks.Insert(grandChild))

	require.NoError(t, forks.SetRoot(2))
	assert.ElementsMatch(t, []types.Slot{0, 1}, dropped)
}
