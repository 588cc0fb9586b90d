package bootstrap

import (
	"context"
	"fmt"
	"os"

	"code.kestrelchain.io/kestrel/accounts"
	"code.kestrelchain.io/kestrel/bank"
	"code.kestrelchain.io/kestrel/blockstore"
	"code.kestrelchain.io/kestrel/genesis"
	"code.kestrelchain.io/kestrel/leaderschedule"
	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/metrics"
	"code.kestrelchain.io/kestrel/snapshot"
	"code.kestrelchain.io/kestrel/types"
)

// Replayer is the external ledger replayer the fork tree is handed to once
// bootstrap completes, and the provider of slot 0 construction when no
// snapshot exists.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/replayer_mock.go -package mocks code.kestrelchain.io/kestrel/bootstrap Replayer
type Replayer interface {
	ProcessGenesisSlotZero(gen *genesis.Config, acctCfg accounts.Config, accountPaths []string) (*bank.Bank, error)
	ProcessBlockstoreFromRoot(ctx context.Context, store *blockstore.Store, forks *bank.Forks, cache *leaderschedule.Cache, rx accounts.DroppedSlotsReceiver) error
}

// Load reconstructs the authoritative execution state, either from snapshot
// archives or from genesis, then processes all full slots in the blockstore.
//
// If a snapshot config is given, and a snapshot is found, it will be loaded.
// Otherwise, load from genesis. Replay errors are returned unchanged; fatal
// configuration states panic, there is no partially bootstrapped node.
func Load(
	ctx context.Context,
	log *logging.Logger,
	gen *genesis.Config,
	store *blockstore.Store,
	accountPaths []string,
	shrinkPaths []string,
	snapCfg *snapshot.Config,
	acctCfg accounts.Config,
	opts Config,
	codec snapshot.Codec,
	replayer Replayer,
) (*bank.Forks, *leaderschedule.Cache, *snapshot.Descriptor, error) {
	forks, cache, descriptor, rx, err := LoadForks(log, gen, accountPaths, shrinkPaths, snapCfg, acctCfg, opts, codec, replayer)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := replayer.ProcessBlockstoreFromRoot(ctx, store, forks, cache, rx); err != nil {
		return nil, nil, nil, err
	}
	return forks, cache, descriptor, nil
}

// LoadForks builds the initial fork tree and everything replay needs around
// it: the leader schedule cache, the starting snapshot descriptor when one
// was restored, and the consumer end of the pruned bank channel.
func LoadForks(
	log *logging.Logger,
	gen *genesis.Config,
	accountPaths []string,
	shrinkPaths []string,
	snapCfg *snapshot.Config,
	acctCfg accounts.Config,
	opts Config,
	codec snapshot.Codec,
	replayer Replayer,
) (*bank.Forks, *leaderschedule.Cache, *snapshot.Descriptor, accounts.DroppedSlotsReceiver, error) {
	log = log.Named(namedLogger)
	log.SetLevel(opts.Level.Get())
	defer metrics.StartEngine("bootstrap", "load_forks")()

	snapshotPresent := probeSnapshot(log, snapCfg)

	var (
		forks      *bank.Forks
		descriptor *snapshot.Descriptor
	)
	if snapshotPresent {
		forks, descriptor = forksFromSnapshot(log, gen, accountPaths, shrinkPaths, snapCfg, acctCfg, opts, codec)
	} else {
		if opts.FillerAccountCount > 0 {
			log.Panic("filler accounts specified, but not loading from snapshot",
				logging.Uint64("filler-account-count", opts.FillerAccountCount),
			)
		}
		log.Info("processing ledger from genesis")
		b, err := replayer.ProcessGenesisSlotZero(gen, acctCfg, accountPaths)
		if err != nil {
			return nil, nil, nil, accounts.DroppedSlotsReceiver{}, fmt.Errorf("couldn't build slot 0 bank from genesis: %w", err)
		}
		forks = bank.NewForks(b)
	}

	// Before replay starts, install the drop callback on the single bank in
	// the fork tree so every dropped bank comes through the pruned banks
	// channel. Bank removal can then be safely synchronized with any other
	// ongoing accounts activity like cache flush, clean, shrink, as long as
	// the thread performing those activities is also the one consuming the
	// channel.
	//
	// There is only one bank, the root. Every bank added from now on
	// descends from it and inherits the callback.
	if n := forks.Len(); n != 1 {
		log.Panic("fork tree must hold exactly the root bank before handoff",
			logging.Int("banks", n),
		)
	}
	sender, receiver := accounts.UnboundedDroppedSlots()
	root := forks.Root()
	root.SetDropCallback(root.DB().CreateDropBankCallback(sender))

	cache := leaderschedule.NewCacheFromBank(root)
	if opts.FullLeaderCache {
		cache.SetMaxSchedules(leaderschedule.MaxSchedulesUnlimited)
	}

	registerHardForks(log, root, opts.NewHardForks)

	return forks, cache, descriptor, receiver, nil
}

// probeSnapshot resets the bank snapshots working directory and reports
// whether a usable full snapshot archive exists. The reset is deliberate,
// stale state from a previous run must not leak into this one.
func probeSnapshot(log *logging.Logger, snapCfg *snapshot.Config) bool {
	if snapCfg == nil {
		log.Info("snapshots disabled; will load from genesis")
		return false
	}
	log.Info("initializing bank snapshots directory",
		logging.String("dir", snapCfg.BankSnapshotsDir),
	)
	_ = os.RemoveAll(snapCfg.BankSnapshotsDir)
	if err := os.MkdirAll(snapCfg.BankSnapshotsDir, 0o755); err != nil {
		log.Panic("couldn't create bank snapshots directory",
			logging.String("dir", snapCfg.BankSnapshotsDir),
			logging.Error(err),
		)
	}
	full, err := snapshot.HighestFullArchiveInfo(snapCfg.ArchivesDir)
	if err != nil {
		log.Panic("couldn't scan snapshot archives directory",
			logging.String("dir", snapCfg.ArchivesDir),
			logging.Error(err),
		)
	}
	if full == nil {
		log.Info("no snapshot archive available; will load from genesis")
		return false
	}
	return true
}

// forksFromSnapshot restores the fork tree root from the latest archives.
// Fail hard here if the snapshot fails to load, don't silently continue: a
// corrupted-but-present snapshot masking as absent would be a state
// integrity bug.
func forksFromSnapshot(
	log *logging.Logger,
	gen *genesis.Config,
	accountPaths []string,
	shrinkPaths []string,
	snapCfg *snapshot.Config,
	acctCfg accounts.Config,
	opts Config,
	codec snapshot.Codec,
) (*bank.Forks, *snapshot.Descriptor) {
	if len(accountPaths) == 0 {
		log.Panic("account paths not present when booting from snapshot")
	}
	restoreOpts := snapshot.RestoreOptions{
		Accounts:       acctCfg,
		DebugKeys:      opts.DebugKeys,
		AccountIndexes: opts.AccountIndexes,
		ProgramJIT:     bool(opts.ProgramJIT),
		ShrinkRatio:    opts.ShrinkRatio,
	}
	b, full, incremental, err := codec.BankFromLatestArchives(log, *snapCfg, accountPaths, gen, restoreOpts)
	if err != nil {
		log.Panic("load from snapshot failed", logging.Error(err))
	}
	if len(shrinkPaths) > 0 {
		b.DB().SetShrinkPaths(shrinkPaths)
	}
	metrics.SnapshotSlotSet(uint64(full.Slot))
	return bank.NewForks(b), snapshot.NewDescriptor(full, incremental)
}

// registerHardForks applies operator supplied hard fork overrides to the
// root bank. A slot the root has already passed is stale: warn and move on,
// the override flag can simply be removed.
func registerHardForks(log *logging.Logger, root *bank.Bank, slots []uint64) {
	for _, s := range slots {
		hardForkSlot := types.Slot(s)
		if hardForkSlot > root.Slot() {
			root.HardForks().Register(hardForkSlot)
			log.Info("hard fork registered",
				logging.Slot("slot", hardForkSlot),
			)
			continue
		}
		log.Warn("hard fork ignored, the override can be removed",
			logging.Slot("slot", hardForkSlot),
			logging.Slot("root", root.Slot()),
		)
	}
}
