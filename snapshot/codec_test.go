package snapshot_test

import (
	"os"
	"testing"

	"code.kestrelchain.io/kestrel/accounts"
	"code.kestrelchain.io/kestrel/crypto"
	"code.kestrelchain.io/kestrel/genesis"
	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/snapshot"
	"code.kestrelchain.io/kestrel/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveCodec(t *testing.T) {
	t.Run("Restore from a full archive", testCodecRestoreFromFullArchive)
	t.Run("Restore applies the chained incremental", testCodecRestoreAppliesIncremental)
	t.Run("No archive is an error", testCodecNoArchiveIsAnError)
	t.Run("Tampered archive content is rejected", testCodecTamperedArchiveRejected)
	t.Run("Foreign chain archives are rejected", testCodecForeignChainRejected)
	t.Run("Shrink ratio override reaches the restored store", testCodecShrinkRatioOverride)
}

func testGenesis() *genesis.Config {
	gen := genesis.DefaultConfig()
	gen.ChainID = "kestrel-test"
	return gen
}

func testCodecRestoreFromFullArchive(t *testing.T) {
	dir := t.TempDir()
	codec := snapshot.ArchiveCodec{}

	stakes := map[string]uint64{"v1": 80, "v2": 20}
	accts := map[string]accounts.Account{
		"alice": {Balance: 1000, Stake: 80},
		"bob":   {Balance: 500},
	}
	bankHash := crypto.Hash([]byte("bank-at-200"))
	full, err := codec.WriteFullArchiveManifest(dir, "kestrel-test", 200, bankHash, 32, stakes, accts)
	require.NoError(t, err)

	cfg := snapshot.NewDefaultConfig()
	cfg.ArchivesDir = dir

	b, gotFull, gotInc, err := codec.BankFromLatestArchives(
		logging.NewTestLogger(), cfg, []string{t.TempDir()}, testGenesis(), snapshot.RestoreOptions{
			Accounts: accounts.NewDefaultConfig(),
		})
	require.NoError(t, err)
	defer b.DB().Close()

	assert.Equal(t, full, gotFull)
	assert.Nil(t, gotInc)
	assert.Equal(t, types.Slot(200), b.Slot())
	assert.Equal(t, bankHash, b.Hash())
	assert.Equal(t, uint64(32), b.SlotsPerEpoch())
	assert.Equal(t, stakes, b.Stakes())

	got, ok, err := b.DB().Account("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), got.Balance)
}

func testCodecRestoreAppliesIncremental(t *testing.T) {
	dir := t.TempDir()
	codec := snapshot.ArchiveCodec{}

	_, err := codec.WriteFullArchiveManifest(dir, "kestrel-test", 100, crypto.Hash([]byte("full")), 32,
		map[string]uint64{"v1": 100},
		map[string]accounts.Account{"alice": {Balance: 10}},
	)
	require.NoError(t, err)

	// the incremental moves alice forward and adds carol
	inc, err := codec.WriteIncrementalArchiveManifest(dir, "kestrel-test", 100, 180, crypto.Hash([]byte("inc")), 32,
		map[string]uint64{"v1": 100},
		map[string]accounts.Account{"alice": {Balance: 99}, "carol": {Balance: 7}},
	)
	require.NoError(t, err)

	// an incremental for some other full snapshot must be ignored
	_, err = codec.WriteIncrementalArchiveManifest(dir, "kestrel-test", 90, 400, crypto.Hash([]byte("other")), 32,
		map[string]uint64{"v1": 100},
		map[string]accounts.Account{"mallory": {Balance: 1 << 60}},
	)
	require.NoError(t, err)

	cfg := snapshot.NewDefaultConfig()
	cfg.ArchivesDir = dir

	b, _, gotInc, err := codec.BankFromLatestArchives(
		logging.NewTestLogger(), cfg, []string{t.TempDir()}, testGenesis(), snapshot.RestoreOptions{
			Accounts: accounts.NewDefaultConfig(),
		})
	require.NoError(t, err)
	defer b.DB().Close()

	require.NotNil(t, gotInc)
	assert.Equal(t, inc, *gotInc)
	assert.Equal(t, types.Slot(180), b.Slot())

	got, ok, err := b.DB().Account("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(99), got.Balance)

	_, ok, err = b.DB().Account("mallory")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testCodecNoArchiveIsAnError(t *testing.T) {
	cfg := snapshot.NewDefaultConfig()
	cfg.ArchivesDir = t.TempDir()

	_, _, _, err := snapshot.ArchiveCodec{}.BankFromLatestArchives(
		logging.NewTestLogger(), cfg, []string{t.TempDir()}, testGenesis(), snapshot.RestoreOptions{
			Accounts: accounts.NewDefaultConfig(),
		})
	require.ErrorIs(t, err, snapshot.ErrNoFullArchive)
}

func testCodecTamperedArchiveRejected(t *testing.T) {
	dir := t.TempDir()
	codec := snapshot.ArchiveCodec{}

	full, err := codec.WriteFullArchiveManifest(dir, "kestrel-test", 100, crypto.Hash([]byte("full")), 32,
		map[string]uint64{"v1": 100},
		map[string]accounts.Account{"alice": {Balance: 10}},
	)
	require.NoError(t, err)

	// rewrite the archive with different content under the same name
	other, err := codec.WriteFullArchiveManifest(t.TempDir(), "kestrel-test", 100, crypto.Hash([]byte("evil")), 32,
		map[string]uint64{"v1": 100},
		map[string]accounts.Account{"alice": {Balance: 1 << 60}},
	)
	require.NoError(t, err)
	buf, err := os.ReadFile(other.Path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(full.Path, buf, 0o644))

	cfg := snapshot.NewDefaultConfig()
	cfg.ArchivesDir = dir

	_, _, _, err = codec.BankFromLatestArchives(
		logging.NewTestLogger(), cfg, []string{t.TempDir()}, testGenesis(), snapshot.RestoreOptions{
			Accounts: accounts.NewDefaultConfig(),
		})
	require.ErrorIs(t, err, snapshot.ErrArchiveHashMismatch)
}

func testCodecForeignChainRejected(t *testing.T) {
	dir := t.TempDir()
	codec := snapshot.ArchiveCodec{}

	_, err := codec.WriteFullArchiveManifest(dir, "some-other-chain", 100, crypto.Hash([]byte("full")), 32,
		map[string]uint64{"v1": 100},
		map[string]accounts.Account{},
	)
	require.NoError(t, err)

	cfg := snapshot.NewDefaultConfig()
	cfg.ArchivesDir = dir

	_, _, _, err = codec.BankFromLatestArchives(
		logging.NewTestLogger(), cfg, []string{t.TempDir()}, testGenesis(), snapshot.RestoreOptions{
			Accounts: accounts.NewDefaultConfig(),
		})
	require.ErrorIs(t, err, snapshot.ErrChainMismatch)
}

func testCodecShrinkRatioOverride(t *testing.T) {
	dir := t.TempDir()
	codec := snapshot.ArchiveCodec{}

	_, err := codec.WriteFullArchiveManifest(dir, "kestrel-test", 100, crypto.Hash([]byte("full")), 32,
		map[string]uint64{"v1": 100},
		map[string]accounts.Account{},
	)
	require.NoError(t, err)

	cfg := snapshot.NewDefaultConfig()
	cfg.ArchivesDir = dir

	b, _, _, err := codec.BankFromLatestArchives(
		logging.NewTestLogger(), cfg, []string{t.TempDir()}, testGenesis(), snapshot.RestoreOptions{
			Accounts:    accounts.NewDefaultConfig(),
			ShrinkRatio: 0.5,
		})
	require.NoError(t, err)
	defer b.DB().Close()

	assert.Equal(t, 0.5, b.DB().ShrinkRatio)
}
