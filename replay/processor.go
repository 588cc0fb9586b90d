package replay

import (
	"context"
	"fmt"

	"code.kestrelchain.io/kestrel/accounts"
	"code.kestrelchain.io/kestrel/bank"
	"code.kestrelchain.io/kestrel/blockstore"
	"code.kestrelchain.io/kestrel/genesis"
	"code.kestrelchain.io/kestrel/leaderschedule"
	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/metrics"
	"code.kestrelchain.io/kestrel/types"
)

const namedLogger = "replay"

// Processor walks ledger entries from the fork tree root, advancing the root
// as slots are confirmed. Bootstrap hands it a fork tree holding exactly one
// bank and the consumer end of the pruned bank channel.
type Processor struct {
	log *logging.Logger
}

func New(log *logging.Logger) *Processor {
	return &Processor{
		log: log.Named(namedLogger),
	}
}

// ProcessGenesisSlotZero builds the slot 0 bank directly from chain genesis
// parameters, materializing every allocation in the account store.
func (p *Processor) ProcessGenesisSlotZero(gen *genesis.Config, acctCfg accounts.Config, accountPaths []string) (*bank.Bank, error) {
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	db, err := accounts.Open(p.log, acctCfg, accountPaths)
	if err != nil {
		return nil, err
	}
	for _, alloc := range gen.Allocations {
		acct := accounts.Account{
			Balance: alloc.Balance,
			Stake:   alloc.Stake,
		}
		if err := db.StoreAccount(0, alloc.Identity, acct); err != nil {
			return nil, err
		}
	}
	b := bank.New(db, 0, gen.Stakes(), gen.SlotsPerEpoch)
	b.SetHash(gen.Hash())
	p.log.Info("slot 0 bank built from genesis",
		logging.String("chain-id", gen.ChainID),
		logging.Int("allocations", len(gen.Allocations)),
		logging.Hash("bank-hash", b.Hash()),
	)
	return b, nil
}

// ProcessBlockstoreFromRoot replays every contiguous slot recorded after the
// root, rooting each confirmed slot and draining the pruned bank channel as
// it goes.
func (p *Processor) ProcessBlockstoreFromRoot(ctx context.Context, store *blockstore.Store, forks *bank.Forks, cache *leaderschedule.Cache, rx accounts.DroppedSlotsReceiver) error {
	defer metrics.StartEngine("replay", "process_blockstore_from_root")()

	root := forks.Root()
	p.log.Info("processing blockstore from root",
		logging.Slot("root", root.Slot()),
	)
	slot := root.Slot() + 1
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		ok, err := store.HasSlot(slot)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := p.replaySlot(store, forks, cache, slot); err != nil {
			return err
		}
		if err := forks.SetRoot(slot); err != nil {
			return err
		}
		p.reclaim(forks, rx)
		processed++
		slot++
	}
	p.log.Info("blockstore processed",
		logging.Int("slots", processed),
		logging.Slot("new-root", forks.RootSlot()),
	)
	return nil
}

func (p *Processor) replaySlot(store *blockstore.Store, forks *bank.Forks, cache *leaderschedule.Cache, slot types.Slot) error {
	entries, err := store.Entries(slot)
	if err != nil {
		return err
	}
	if _, ok := cache.SlotLeader(slot); !ok {
		return fmt.Errorf("no leader schedule covers slot %d", slot)
	}
	parent := forks.Root()
	b := bank.NewFromParent(parent, slot)
	if err := forks.Insert(b); err != nil {
		return err
	}
	// entry verification is the verifier's job, replay only accounts for
	// them in the bank hash
	b.Freeze()
	if p.log.IsDebug() {
		p.log.Debug("slot replayed",
			logging.Slot("slot", slot),
			logging.Int("entries", len(entries)),
			logging.Hash("bank-hash", b.Hash()),
		)
	}
	return nil
}

// reclaim applies any pending drop notifications to the account store. The
// replay loop is the single consumer of the channel until the background
// service takes over after handoff.
func (p *Processor) reclaim(forks *bank.Forks, rx accounts.DroppedSlotsReceiver) {
	var (
		max   types.Slot
		count int
	)
	for {
		slot, ok := rx.TryRecv()
		if !ok {
			break
		}
		count++
		if slot > max {
			max = slot
		}
	}
	if count == 0 {
		return
	}
	metrics.PrunedBanksAdd(count)
	if _, err := forks.Root().DB().CleanUpTo(max); err != nil {
		p.log.Error("failed to reclaim pruned banks during replay",
			logging.Slot("up-to", max),
			logging.Error(err),
		)
	}
}
