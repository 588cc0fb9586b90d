package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"code.kestrelchain.io/kestrel/accounts"
	"code.kestrelchain.io/kestrel/bank"
	"code.kestrelchain.io/kestrel/crypto"
	"code.kestrelchain.io/kestrel/genesis"
	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/types"
)

const manifestVersion = 1

var (
	ErrNoFullArchive           = errors.New("no full snapshot archive found")
	ErrArchiveHashMismatch     = errors.New("archive content does not match its hash")
	ErrArchiveSlotMismatch     = errors.New("archive content does not match its slot")
	ErrIncrementalBaseMismatch = errors.New("incremental archive not derived from this full snapshot")
	ErrChainMismatch           = errors.New("archive was produced for a different chain")
	ErrUnsupportedManifest     = errors.New("unsupported archive manifest version")
)

// RestoreOptions carries bootstrap options that influence how a bank is
// rebuilt from archives.
type RestoreOptions struct {
	Accounts accounts.Config

	// DebugKeys are account identities whose restored state is logged.
	DebugKeys []string
	// AccountIndexes are secondary index names to enable on the store.
	AccountIndexes []string
	// ProgramJIT toggles the just-in-time program compilation path of the
	// runtime the restored bank will execute under.
	ProgramJIT bool
	// ShrinkRatio, when non zero, overrides the store's configured value
	// log GC threshold.
	ShrinkRatio float64
}

// Codec turns snapshot archives back into a bank.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/codec_mock.go -package mocks code.kestrelchain.io/kestrel/snapshot Codec
type Codec interface {
	BankFromLatestArchives(log *logging.Logger, cfg Config, accountPaths []string, gen *genesis.Config, opts RestoreOptions) (*bank.Bank, FullArchiveInfo, *IncrementalArchiveInfo, error)
}

// manifest is the uncompressed archive payload. The hash in the archive file
// name is the content hash of these bytes.
type manifest struct {
	Version       int                         `json:"version"`
	ChainID       string                      `json:"chain_id"`
	Slot          types.Slot                  `json:"slot"`
	BankHash      types.Hash                  `json:"bank_hash"`
	SlotsPerEpoch uint64                      `json:"slots_per_epoch"`
	Stakes        map[string]uint64           `json:"stakes"`
	BaseSlot      *types.Slot                 `json:"base_slot,omitempty"`
	Accounts      map[string]accounts.Account `json:"accounts"`
}

// ArchiveCodec is the production Codec: gzip compressed JSON manifests,
// content addressed through the archive file name.
type ArchiveCodec struct{}

// BankFromLatestArchives restores a bank from the most recent full archive
// and, when one is chained to it, the most recent compatible incremental
// archive. Any inconsistency is an error, there is no fallback.
func (c ArchiveCodec) BankFromLatestArchives(log *logging.Logger, cfg Config, accountPaths []string, gen *genesis.Config, opts RestoreOptions) (*bank.Bank, FullArchiveInfo, *IncrementalArchiveInfo, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	full, err := HighestFullArchiveInfo(cfg.ArchivesDir)
	if err != nil {
		return nil, FullArchiveInfo{}, nil, err
	}
	if full == nil {
		return nil, FullArchiveInfo{}, nil, ErrNoFullArchive
	}
	fullMan, err := readManifest(full.Path, full.Hash, full.Slot)
	if err != nil {
		return nil, FullArchiveInfo{}, nil, fmt.Errorf("full archive %s: %w", full.Path, err)
	}
	if fullMan.ChainID != gen.ChainID {
		return nil, FullArchiveInfo{}, nil, fmt.Errorf("%w: archive %q, genesis %q", ErrChainMismatch, fullMan.ChainID, gen.ChainID)
	}

	incremental, err := HighestIncrementalArchiveInfo(cfg.ArchivesDir, full.Slot)
	if err != nil {
		return nil, FullArchiveInfo{}, nil, err
	}
	var incMan *manifest
	if incremental != nil {
		m, err := readManifest(incremental.Path, incremental.Hash, incremental.Slot)
		if err != nil {
			return nil, FullArchiveInfo{}, nil, fmt.Errorf("incremental archive %s: %w", incremental.Path, err)
		}
		if m.BaseSlot == nil || *m.BaseSlot != full.Slot {
			return nil, FullArchiveInfo{}, nil, ErrIncrementalBaseMismatch
		}
		incMan = m
	}

	acctCfg := opts.Accounts
	if opts.ShrinkRatio > 0 {
		acctCfg.ShrinkRatio = opts.ShrinkRatio
	}
	db, err := accounts.Open(log, acctCfg, accountPaths)
	if err != nil {
		return nil, FullArchiveInfo{}, nil, err
	}
	if len(opts.AccountIndexes) > 0 {
		log.Info("account indexes enabled", logging.Strings("indexes", opts.AccountIndexes))
	}

	if err := materialize(db, full.Slot, fullMan.Accounts); err != nil {
		return nil, FullArchiveInfo{}, nil, err
	}
	restored := fullMan
	if incMan != nil {
		if err := materialize(db, incremental.Slot, incMan.Accounts); err != nil {
			return nil, FullArchiveInfo{}, nil, err
		}
		restored = incMan
	}
	for _, key := range opts.DebugKeys {
		acct, ok, err := db.Account(key)
		if err != nil {
			return nil, FullArchiveInfo{}, nil, err
		}
		log.Info("debug key restored",
			logging.String("identity", key),
			logging.Bool("present", ok),
			logging.Uint64("balance", acct.Balance),
		)
	}

	b := bank.New(db, restored.Slot, restored.Stakes, restored.SlotsPerEpoch)
	b.SetHash(restored.BankHash)
	log.Info("bank restored from snapshot archives",
		logging.Slot("slot", b.Slot()),
		logging.Hash("bank-hash", b.Hash()),
		logging.Bool("incremental", incMan != nil),
		logging.Bool("program-jit", opts.ProgramJIT),
	)
	return b, *full, incremental, nil
}

// WriteFullArchive serializes a bank into a full archive in dir. The account
// set is read from the bank's store.
func (c ArchiveCodec) WriteFullArchive(dir, chainID string, b *bank.Bank) (FullArchiveInfo, error) {
	accts, err := b.DB().Accounts()
	if err != nil {
		return FullArchiveInfo{}, err
	}
	m := &manifest{
		Version:       manifestVersion,
		ChainID:       chainID,
		Slot:          b.Slot(),
		BankHash:      b.Hash(),
		SlotsPerEpoch: b.SlotsPerEpoch(),
		Stakes:        b.Stakes(),
		Accounts:      accts,
	}
	return writeFull(dir, m)
}

// WriteFullArchiveManifest writes a full archive from explicit contents,
// without needing a live bank. Used by tests and tooling.
func (c ArchiveCodec) WriteFullArchiveManifest(dir, chainID string, slot types.Slot, bankHash types.Hash, slotsPerEpoch uint64, stakes map[string]uint64, accts map[string]accounts.Account) (FullArchiveInfo, error) {
	m := &manifest{
		Version:       manifestVersion,
		ChainID:       chainID,
		Slot:          slot,
		BankHash:      bankHash,
		SlotsPerEpoch: slotsPerEpoch,
		Stakes:        stakes,
		Accounts:      accts,
	}
	return writeFull(dir, m)
}

// WriteIncrementalArchiveManifest writes an incremental archive chained to
// the full snapshot at base.
func (c ArchiveCodec) WriteIncrementalArchiveManifest(dir, chainID string, base, slot types.Slot, bankHash types.Hash, slotsPerEpoch uint64, stakes map[string]uint64, accts map[string]accounts.Account) (IncrementalArchiveInfo, error) {
	m := &manifest{
		Version:       manifestVersion,
		ChainID:       chainID,
		Slot:          slot,
		BankHash:      bankHash,
		SlotsPerEpoch: slotsPerEpoch,
		Stakes:        stakes,
		BaseSlot:      &base,
		Accounts:      accts,
	}
	buf, hash, err := encodeManifest(m)
	if err != nil {
		return IncrementalArchiveInfo{}, err
	}
	name := IncrementalArchiveName(base, slot, hash)
	path := filepath.Join(dir, name)
	if err := writeArchiveFile(path, buf); err != nil {
		return IncrementalArchiveInfo{}, err
	}
	return IncrementalArchiveInfo{Path: path, BaseSlot: base, Slot: slot, Hash: hash}, nil
}

func writeFull(dir string, m *manifest) (FullArchiveInfo, error) {
	buf, hash, err := encodeManifest(m)
	if err != nil {
		return FullArchiveInfo{}, err
	}
	name := FullArchiveName(m.Slot, hash)
	path := filepath.Join(dir, name)
	if err := writeArchiveFile(path, buf); err != nil {
		return FullArchiveInfo{}, err
	}
	return FullArchiveInfo{Path: path, Slot: m.Slot, Hash: hash}, nil
}

func encodeManifest(m *manifest) ([]byte, types.Hash, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, types.Hash{}, err
	}
	return buf, crypto.Hash(buf), nil
}

func writeArchiveFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(content); err != nil {
		f.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readManifest(path string, wantHash types.Hash, wantSlot types.Slot) (*manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	buf, err := io.ReadAll(gz)
	if err != nil {
		return nil, err
	}
	if got := crypto.Hash(buf); got != wantHash {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrArchiveHashMismatch, wantHash, got)
	}
	m := &manifest{}
	if err := json.NewDecoder(bytes.NewReader(buf)).Decode(m); err != nil {
		return nil, err
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedManifest, m.Version)
	}
	if m.Slot != wantSlot {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrArchiveSlotMismatch, wantSlot, m.Slot)
	}
	return m, nil
}

func materialize(db *accounts.DB, slot types.Slot, accts map[string]accounts.Account) error {
	for key, acct := range accts {
		if err := db.StoreAccount(slot, key, acct); err != nil {
			return err
		}
	}
	return nil
}
