package bootstrap_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"code.kestrelchain.io/kestrel/accounts"
	"code.kestrelchain.io/kestrel/bank"
	"code.kestrelchain.io/kestrel/bootstrap"
	"code.kestrelchain.io/kestrel/bootstrap/mocks"
	"code.kestrelchain.io/kestrel/crypto"
	"code.kestrelchain.io/kestrel/genesis"
	"code.kestrelchain.io/kestrel/leaderschedule"
	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/snapshot"
	smocks "code.kestrelchain.io/kestrel/snapshot/mocks"
	"code.kestrelchain.io/kestrel/types"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	ctrl     *gomock.Controller
	log      *logging.Logger
	gen      *genesis.Config
	codec    *smocks.MockCodec
	replayer *mocks.MockReplayer
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return &testFixture{
		ctrl:     ctrl,
		log:      logging.NewTestLogger(),
		gen:      genesis.DefaultConfig(),
		codec:    smocks.NewMockCodec(ctrl),
		replayer: mocks.NewMockReplayer(ctrl),
	}
}

// snapshotConfigWithArchive lays out a snapshot directory holding one full
// archive name so the probe finds a restore candidate.
func snapshotConfigWithArchive(t *testing.T, slot types.Slot) *snapshot.Config {
	t.Helper()
	base := t.TempDir()
	cfg := &snapshot.Config{
		BankSnapshotsDir: filepath.Join(base, "pending"),
		ArchivesDir:      filepath.Join(base, "archives"),
	}
	require.NoError(t, os.MkdirAll(cfg.ArchivesDir, 0o755))
	name := snapshot.FullArchiveName(slot, crypto.Hash([]byte("archive")))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ArchivesDir, name), []byte("x"), 0o644))
	return cfg
}

func emptySnapshotConfig(t *testing.T) *snapshot.Config {
	t.Helper()
	base := t.TempDir()
	return &snapshot.Config{
		BankSnapshotsDir: filepath.Join(base, "pending"),
		ArchivesDir:      filepath.Join(base, "archives"),
	}
}

func TestLoadForks(t *testing.T) {
	t.Run("Disabled snapshots load from genesis", testLoadForksDisabledSnapshotsLoadFromGenesis)
	t.Run("No archive falls back to genesis", testLoadForksNoArchiveFallsBackToGenesis)
	t.Run("Snapshot restore skips genesis processing", testLoadForksSnapshotRestoreSkipsGenesis)
	t.Run("Restored incremental is pinned to its base", testLoadForksIncrementalPinnedToBase)
	t.Run("Genesis processing failure surfaces", testLoadForksGenesisFailureSurfaces)
	t.Run("Snapshot working directory is reset", testLoadForksSnapshotWorkingDirReset)
	t.Run("Drop callback feeds the returned channel", testLoadForksDropCallbackFeedsChannel)
	t.Run("Full leader cache lifts retention bounds", testLoadForksFullLeaderCacheUnbounded)
	t.Run("Hard forks apply only beyond the root", testLoadForksHardForksOnlyBeyondRoot)
	t.Run("Filler accounts without snapshot panic", testLoadForksFillerAccountsWithoutSnapshotPanic)
	t.Run("Missing account paths with snapshot panic", testLoadForksMissingAccountPathsPanic)
	t.Run("Snapshot restore failure panics", testLoadForksSnapshotRestoreFailurePanics)
}

func testLoadForksDisabledSnapshotsLoadFromGenesis(t *testing.T) {
	f := newFixture(t)

	rootBank := bank.New(nil, 0, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	f.replayer.EXPECT().
		ProcessGenesisSlotZero(f.gen, gomock.Any(), gomock.Any()).
		Times(1).
		Return(rootBank, nil)

	forks, cache, descriptor, _, err := bootstrap.LoadForks(
		f.log, f.gen, nil, nil, nil,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.NoError(t, err)

	assert.Nil(t, descriptor)
	require.Equal(t, 1, forks.Len())
	assert.Equal(t, rootBank, forks.Root())
	require.NotNil(t, cache)
	assert.Equal(t, leaderschedule.DefaultMaxSchedules, cache.MaxSchedules())
}

func testLoadForksNoArchiveFallsBackToGenesis(t *testing.T) {
	f := newFixture(t)
	snapCfg := emptySnapshotConfig(t)

	rootBank := bank.New(nil, 0, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	f.replayer.EXPECT().
		ProcessGenesisSlotZero(f.gen, gomock.Any(), gomock.Any()).
		Times(1).
		Return(rootBank, nil)

	forks, _, descriptor, _, err := bootstrap.LoadForks(
		f.log, f.gen, []string{t.TempDir()}, nil, snapCfg,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.NoError(t, err)

	assert.Nil(t, descriptor)
	assert.Equal(t, types.Slot(0), forks.RootSlot())
}

func testLoadForksSnapshotRestoreSkipsGenesis(t *testing.T) {
	f := newFixture(t)
	snapCfg := snapshotConfigWithArchive(t, 500)

	restored := bank.New(nil, 500, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	full := snapshot.FullArchiveInfo{Slot: 500, Hash: crypto.Hash([]byte("full"))}
	f.codec.EXPECT().
		BankFromLatestArchives(gomock.Any(), *snapCfg, gomock.Any(), f.gen, gomock.Any()).
		Times(1).
		Return(restored, full, nil, nil)

	forks, cache, descriptor, _, err := bootstrap.LoadForks(
		f.log, f.gen, []string{t.TempDir()}, nil, snapCfg,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.NoError(t, err)

	require.NotNil(t, descriptor)
	assert.Equal(t, types.Slot(500), descriptor.BootSlot())
	assert.Nil(t, descriptor.Incremental)
	assert.Equal(t, types.Slot(500), forks.RootSlot())
	require.NotNil(t, cache)
	// the cache is seeded from the restored bank's stake distribution
	assert.Equal(t, f.gen.SlotsPerEpoch, cache.SlotsPerEpoch())
}

func testLoadForksIncrementalPinnedToBase(t *testing.T) {
	f := newFixture(t)
	snapCfg := snapshotConfigWithArchive(t, 500)

	restored := bank.New(nil, 580, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	full := snapshot.FullArchiveInfo{Slot: 500, Hash: crypto.Hash([]byte("full"))}
	inc := &snapshot.IncrementalArchiveInfo{BaseSlot: 500, Slot: 580, Hash: crypto.Hash([]byte("inc"))}
	f.codec.EXPECT().
		BankFromLatestArchives(gomock.Any(), *snapCfg, gomock.Any(), f.gen, gomock.Any()).
		Times(1).
		Return(restored, full, inc, nil)

	_, _, descriptor, _, err := bootstrap.LoadForks(
		f.log, f.gen, []string{t.TempDir()}, nil, snapCfg,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.NoError(t, err)

	require.NotNil(t, descriptor)
	require.NotNil(t, descriptor.Incremental)
	assert.Equal(t, descriptor.Full, descriptor.Incremental.Base)
	assert.Equal(t, types.Slot(580), descriptor.BootSlot())
}

func testLoadForksGenesisFailureSurfaces(t *testing.T) {
	f := newFixture(t)

	genErr := errors.New("accounts dir not writable")
	f.replayer.EXPECT().
		ProcessGenesisSlotZero(f.gen, gomock.Any(), gomock.Any()).
		Times(1).
		Return(nil, genErr)

	_, _, _, _, err := bootstrap.LoadForks(
		f.log, f.gen, nil, nil, nil,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.ErrorIs(t, err, genErr)
}

func testLoadForksSnapshotWorkingDirReset(t *testing.T) {
	f := newFixture(t)
	snapCfg := emptySnapshotConfig(t)

	// stale state from a previous run
	require.NoError(t, os.MkdirAll(snapCfg.BankSnapshotsDir, 0o755))
	stale := filepath.Join(snapCfg.BankSnapshotsDir, "stale-state")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	rootBank := bank.New(nil, 0, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	f.replayer.EXPECT().
		ProcessGenesisSlotZero(f.gen, gomock.Any(), gomock.Any()).
		Times(1).
		Return(rootBank, nil)

	_, _, _, _, err := bootstrap.LoadForks(
		f.log, f.gen, []string{t.TempDir()}, nil, snapCfg,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
	// the working directory itself was recreated empty
	entries, readErr := os.ReadDir(snapCfg.BankSnapshotsDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func testLoadForksDropCallbackFeedsChannel(t *testing.T) {
	f := newFixture(t)

	db, err := accounts.Open(f.log, accounts.NewDefaultConfig(), []string{t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rootBank := bank.New(db, 0, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	f.replayer.EXPECT().
		ProcessGenesisSlotZero(f.gen, gomock.Any(), gomock.Any()).
		Times(1).
		Return(rootBank, nil)

	forks, _, _, rx, err := bootstrap.LoadForks(
		f.log, f.gen, nil, nil, nil,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.NoError(t, err)

	// advancing the root drops the old one into the channel
	child := bank.NewFromParent(forks.Root(), 1)
	require.NoError(t, forks.Insert(child))
	require.NoError(t, forks.SetRoot(1))

	slot, ok := rx.TryRecv()
	require.True(t, ok)
	assert.Equal(t, types.Slot(0), slot)
}

func testLoadForksFullLeaderCacheUnbounded(t *testing.T) {
	f := newFixture(t)

	rootBank := bank.New(nil, 0, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	f.replayer.EXPECT().
		ProcessGenesisSlotZero(f.gen, gomock.Any(), gomock.Any()).
		Times(1).
		Return(rootBank, nil)

	opts := bootstrap.NewDefaultConfig()
	opts.FullLeaderCache = true

	_, cache, _, _, err := bootstrap.LoadForks(
		f.log, f.gen, nil, nil, nil,
		accounts.NewDefaultConfig(), opts,
		f.codec, f.replayer,
	)
	require.NoError(t, err)
	assert.Equal(t, leaderschedule.MaxSchedulesUnlimited, cache.MaxSchedules())
}

func testLoadForksHardForksOnlyBeyondRoot(t *testing.T) {
	f := newFixture(t)
	snapCfg := snapshotConfigWithArchive(t, 500)

	restored := bank.New(nil, 500, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	full := snapshot.FullArchiveInfo{Slot: 500, Hash: crypto.Hash([]byte("full"))}
	f.codec.EXPECT().
		BankFromLatestArchives(gomock.Any(), *snapCfg, gomock.Any(), f.gen, gomock.Any()).
		Times(1).
		Return(restored, full, nil, nil)

	opts := bootstrap.NewDefaultConfig()
	// one already passed, one exactly at the root, one ahead
	opts.NewHardForks = []uint64{100, 500, 900}

	forks, _, _, _, err := bootstrap.LoadForks(
		f.log, f.gen, []string{t.TempDir()}, nil, snapCfg,
		accounts.NewDefaultConfig(), opts,
		f.codec, f.replayer,
	)
	require.NoError(t, err)

	hf := forks.Root().HardForks()
	assert.Equal(t, 1, hf.Len())
	assert.True(t, hf.Contains(900))
	assert.False(t, hf.Contains(100))
	assert.False(t, hf.Contains(500))
}

func testLoadForksFillerAccountsWithoutSnapshotPanic(t *testing.T) {
	f := newFixture(t)

	opts := bootstrap.NewDefaultConfig()
	opts.FillerAccountCount = 1000

	require.Panics(t, func() {
		bootstrap.LoadForks(
			f.log, f.gen, nil, nil, nil,
			accounts.NewDefaultConfig(), opts,
			f.codec, f.replayer,
		)
	})
}

func testLoadForksMissingAccountPathsPanic(t *testing.T) {
	f := newFixture(t)
	snapCfg := snapshotConfigWithArchive(t, 500)

	require.Panics(t, func() {
		bootstrap.LoadForks(
			f.log, f.gen, nil, nil, snapCfg,
			accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
			f.codec, f.replayer,
		)
	})
}

func testLoadForksSnapshotRestoreFailurePanics(t *testing.T) {
	f := newFixture(t)
	snapCfg := snapshotConfigWithArchive(t, 500)

	f.codec.EXPECT().
		BankFromLatestArchives(gomock.Any(), *snapCfg, gomock.Any(), f.gen, gomock.Any()).
		Times(1).
		Return(nil, snapshot.FullArchiveInfo{}, nil, errors.New("archive truncated"))

	require.Panics(t, func() {
		bootstrap.LoadForks(
			f.log, f.gen, []string{t.TempDir()}, nil, snapCfg,
			accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
			f.codec, f.replayer,
		)
	})
}

func TestLoad(t *testing.T) {
	t.Run("Replays the blockstore after building the fork tree", testLoadReplaysBlockstore)
	t.Run("Replay errors pass through unchanged", testLoadReplayErrorsPassThrough)
}

func testLoadReplaysBlockstore(t *testing.T) {
	f := newFixture(t)

	rootBank := bank.New(nil, 0, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	f.replayer.EXPECT().
		ProcessGenesisSlotZero(f.gen, gomock.Any(), gomock.Any()).
		Times(1).
		Return(rootBank, nil)
	f.replayer.EXPECT().
		ProcessBlockstoreFromRoot(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Times(1).
		Return(nil)

	forks, cache, descriptor, err := bootstrap.Load(
		context.Background(), f.log, f.gen, nil, nil, nil, nil,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.NoError(t, err)
	assert.Nil(t, descriptor)
	assert.NotNil(t, cache)
	assert.Equal(t, types.Slot(0), forks.RootSlot())
}

func testLoadReplayErrorsPassThrough(t *testing.T) {
	f := newFixture(t)

	replayErr := errors.New("entry batch does not verify")
	rootBank := bank.New(nil, 0, f.gen.Stakes(), f.gen.SlotsPerEpoch)
	f.replayer.EXPECT().
		ProcessGenesisSlotZero(f.gen, gomock.Any(), gomock.Any()).
		Times(1).
		Return(rootBank, nil)
	f.replayer.EXPECT().
		ProcessBlockstoreFromRoot(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Times(1).
		Return(replayErr)

	_, _, _, err := bootstrap.Load(
		context.Background(), f.log, f.gen, nil, nil, nil, nil,
		accounts.NewDefaultConfig(), bootstrap.NewDefaultConfig(),
		f.codec, f.replayer,
	)
	require.ErrorIs(t, err, replayErr)
}
