package leaderschedule

import (
	"math/rand"
	"sort"

	"code.kestrelchain.io/kestrel/types"
)

// ConsecutiveLeaderSlots is how many consecutive slots a leader keeps before
// rotation.
const ConsecutiveLeaderSlots = 4

// Schedule is the leader rotation for one epoch: one producing identity per
// slot, derived deterministically from a stake distribution.
type Schedule struct {
	epoch   types.Epoch
	leaders []string
}

// staker orders identities for deterministic weighted selection.
type staker struct {
	identity string
	stake    uint64
}

// New derives the schedule for an epoch. The same (epoch, stakes,
// slotsPerEpoch) always yields the same schedule on every node. Returns nil
// when no stake exists, there is nobody to lead.
func New(epoch types.Epoch, stakes map[string]uint64, slotsPerEpoch uint64) *Schedule {
	if slotsPerEpoch == 0 {
		return nil
	}
	stakers := make([]staker, 0, len(stakes))
	var total uint64
	for id, stake := range stakes {
		if stake == 0 {
			continue
		}
		stakers = append(stakers, staker{identity: id, stake: stake})
		total += stake
	}
	if total == 0 {
		return nil
	}
	// highest stake first, identity as tie break, so the cumulative walk
	// below is identical on every node
	sort.Slice(stakers, func(i, j int) bool {
		if stakers[i].stake != stakers[j].stake {
			return stakers[i].stake > stakers[j].stake
		}
		return stakers[i].identity < stakers[j].identity
	})

	rnd := rand.New(rand.NewSource(int64(epoch)))
	leaders := make([]string, slotsPerEpoch)
	for slot := uint64(0); slot < slotsPerEpoch; slot += ConsecutiveLeaderSlots {
		leader := pick(stakers, total, rnd)
		for i := slot; i < slot+ConsecutiveLeaderSlots && i < slotsPerEpoch; i++ {
			leaders[i] = leader
		}
	}
	return &Schedule{
		epoch:   epoch,
		leaders: leaders,
	}
}

func pick(stakers []staker, total uint64, rnd *rand.Rand) string {
	r := rnd.Uint64() % total
	var acc uint64
	for _, s := range stakers {
		acc += s.stake
		if r < acc {
			return s.identity
		}
	}
	// unreachable, total is the sum of all stakes
	return stakers[len(stakers)-1].identity
}

func (s *Schedule) Epoch() types.Epoch {
	return s.epoch
}

// LeaderAt returns the leader for the given slot offset within the epoch.
func (s *Schedule) LeaderAt(offset uint64) (string, bool) {
	if offset >= uint64(len(s.leaders)) {
		return "", false
	}
	return s.leaders[offset], true
}

// Leaders returns the full rotation, one identity per slot.
func (s *Schedule) Leaders() []string {
	cp := make([]string, len(s.leaders))
	copy(cp, s.leaders)
	return cp
}
