package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"code.kestrelchain.io/kestrel/crypto"
	"code.kestrelchain.io/kestrel/types"
)

const fileName = "genesis.json"

var (
	ErrNoAllocations      = errors.New("genesis has no account allocations")
	ErrZeroSlotsPerEpoch  = errors.New("genesis slots per epoch must be non zero")
	ErrDuplicateAllocation = errors.New("duplicate genesis allocation identity")
)

// Allocation is one account funded at genesis. Stake, when non zero, enters
// the leader schedule derivation.
type Allocation struct {
	Identity string `json:"identity"`
	Balance  uint64 `json:"balance"`
	Stake    uint64 `json:"stake"`
}

// Config holds the static chain genesis parameters the slot 0 bank is built
// from.
type Config struct {
	ChainID       string       `json:"chain_id"`
	CreationTime  time.Time    `json:"creation_time"`
	SlotsPerEpoch uint64       `json:"slots_per_epoch"`
	Allocations   []Allocation `json:"allocations"`
}

// DefaultConfig returns a minimal single-staker genesis, used by init and
// tests.
func DefaultConfig() *Config {
	return &Config{
		ChainID:       "kestrel-local",
		CreationTime:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SlotsPerEpoch: 32,
		Allocations: []Allocation{
			{Identity: "a0b1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1", Balance: 1_000_000_000, Stake: 500_000},
		},
	}
}

// Validate checks the parameters are usable for slot 0 construction.
func (c *Config) Validate() error {
	if c.SlotsPerEpoch == 0 {
		return ErrZeroSlotsPerEpoch
	}
	if len(c.Allocations) == 0 {
		return ErrNoAllocations
	}
	seen := make(map[string]struct{}, len(c.Allocations))
	for _, a := range c.Allocations {
		if _, ok := seen[a.Identity]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateAllocation, a.Identity)
		}
		seen[a.Identity] = struct{}{}
	}
	return nil
}

// Stakes returns the genesis stake distribution.
func (c *Config) Stakes() map[string]uint64 {
	stakes := make(map[string]uint64)
	for _, a := range c.Allocations {
		if a.Stake > 0 {
			stakes[a.Identity] = a.Stake
		}
	}
	return stakes
}

// Hash returns the content hash of the genesis parameters. Allocation order
// does not affect it.
func (c *Config) Hash() types.Hash {
	cp := *c
	cp.Allocations = make([]Allocation, len(c.Allocations))
	copy(cp.Allocations, c.Allocations)
	sort.Slice(cp.Allocations, func(i, j int) bool {
		return cp.Allocations[i].Identity < cp.Allocations[j].Identity
	})
	buf, err := json.Marshal(&cp)
	if err != nil {
		// Config marshals by construction
		panic(err)
	}
	return crypto.Hash(buf)
}

// LoadFromFile reads and validates genesis.json from dir.
func LoadFromFile(dir string) (*Config, error) {
	buf, err := os.ReadFile(filePath(dir))
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := json.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse genesis file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToFile writes genesis.json into dir.
func (c *Config) SaveToFile(dir string) error {
	buf, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath(dir), buf, 0o644)
}

func filePath(dir string) string {
	return filepath.Join(dir, fileName)
}
