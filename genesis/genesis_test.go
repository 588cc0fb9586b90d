package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"code.kestrelchain.io/kestrel/genesis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenesisConfig(t *testing.T) {
	t.Run("Default config validates", testGenesisDefaultConfigValidates)
	t.Run("Validation catches bad parameters", testGenesisValidationCatchesBadParameters)
	t.Run("Stakes exclude zero stake allocations", testGenesisStakesExcludeZeroStake)
	t.Run("Hash is independent of allocation order", testGenesisHashIndependentOfOrder)
	t.Run("Save and load round trip", testGenesisSaveLoadRoundTrip)
	t.Run("Loading rejects invalid files", testGenesisLoadingRejectsInvalidFiles)
}

func testGenesisDefaultConfigValidates(t *testing.T) {
	require.NoError(t, genesis.DefaultConfig().Validate())
}

func testGenesisValidationCatchesBadParameters(t *testing.T) {
	gen := genesis.DefaultConfig()
	gen.SlotsPerEpoch = 0
	require.ErrorIs(t, gen.Validate(), genesis.ErrZeroSlotsPerEpoch)

	gen = genesis.DefaultConfig()
	gen.Allocations = nil
	require.ErrorIs(t, gen.Validate(), genesis.ErrNoAllocations)

	gen = genesis.DefaultConfig()
	gen.Allocations = append(gen.Allocations, gen.Allocations[0])
	require.ErrorIs(t, gen.Validate(), genesis.ErrDuplicateAllocation)
}

func testGenesisStakesExcludeZeroStake(t *testing.T) {
	gen := &genesis.Config{
		ChainID:       "test",
		SlotsPerEpoch: 32,
		Allocations: []genesis.Allocation{
			{Identity: "staker", Balance: 100, Stake: 10},
			{Identity: "holder", Balance: 100},
		},
	}

	stakes := gen.Stakes()
	require.Len(t, stakes, 1)
	assert.Equal(t, uint64(10), stakes["staker"])
}

func testGenesisHashIndependentOfOrder(t *testing.T) {
	a := &genesis.Config{
		ChainID:       "test",
		SlotsPerEpoch: 32,
		Allocations: []genesis.Allocation{
			{Identity: "one", Balance: 1},
			{Identity: "two", Balance: 2},
		},
	}
	b := &genesis.Config{
		ChainID:       "test",
		SlotsPerEpoch: 32,
		Allocations: []genesis.Allocation{
			{Identity: "two", Balance: 2},
			{Identity: "one", Balance: 1},
		},
	}

	assert.Equal(t, a.Hash(), b.Hash())

	b.ChainID = "other"
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func testGenesisSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := genesis.DefaultConfig()

	require.NoError(t, want.SaveToFile(dir))

	got, err := genesis.LoadFromFile(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want.Hash(), got.Hash())
}

func testGenesisLoadingRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := genesis.LoadFromFile(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "genesis.json"), []byte("{not json"), 0o644))
	_, err = genesis.LoadFromFile(dir)
	require.Error(t, err)

	gen := genesis.DefaultConfig()
	gen.SlotsPerEpoch = 0
	require.NoError(t, gen.SaveToFile(dir))
	_, err = genesis.LoadFromFile(dir)
	require.ErrorIs(t, err, genesis.ErrZeroSlotsPerEpoch)
}
