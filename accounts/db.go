package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v2"

	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/types"
)

var (
	// ErrNoAccountPaths is returned when the store is opened without a
	// single directory to materialize accounts into.
	ErrNoAccountPaths = errors.New("no account paths given")

	accountPrefix = []byte("acct:")
	journalPrefix = []byte("slot:")
)

// Account is one ledger account as held by the store.
type Account struct {
	Balance uint64 `json:"balance"`
	Stake   uint64 `json:"stake"`
	Data    []byte `json:"data,omitempty"`
}

// DropCallback is invoked with the slot of every bank removed from the fork
// tree. Installed once on the root bank at bootstrap and inherited by every
// descendant.
type DropCallback func(types.Slot)

// DB is the account store facade. It holds the balances and data referenced
// by banks. Writes are journaled per slot so reclamation of a dropped bank
// can be deferred to the background service.
type DB struct {
	Config

	log   *logging.Logger
	db    *badger.DB
	paths []string

	mu          sync.Mutex
	shrinkPaths []string
}

// Open opens the account store at the first of the given paths. The
// remaining paths are kept so shrinking can be redirected later.
func Open(log *logging.Logger, cfg Config, paths []string) (*DB, error) {
	if len(paths) == 0 {
		return nil, ErrNoAccountPaths
	}
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	opts := badger.DefaultOptions(paths[0]).
		WithLogger(log)
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("couldn't open accounts database: %w", err)
	}
	return &DB{
		Config: cfg,
		log:    log,
		db:     bdb,
		paths:  paths,
	}, nil
}

// ReloadConf reloads the configuration for the accounts store.
func (d *DB) ReloadConf(cfg Config) {
	d.log.Info("reloading configuration")
	if d.log.GetLevel() != cfg.Level.Get() {
		d.log.Info("updating log level",
			logging.String("old", d.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		d.log.SetLevel(cfg.Level.Get())
	}
	d.Config = cfg
}

// Paths returns the directories the store was opened with.
func (d *DB) Paths() []string {
	return d.paths
}

// SetShrinkPaths redirects shrink output to the given directories.
func (d *DB) SetShrinkPaths(paths []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shrinkPaths = paths
	d.log.Info("shrink paths set", logging.Strings("paths", paths))
}

// ShrinkPaths returns the configured shrink directories, if any.
func (d *DB) ShrinkPaths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shrinkPaths
}

// CreateDropBankCallback returns the callback to install on the root bank.
// Every dropped bank reports its slot through the given sender, nothing is
// reclaimed in place.
func (d *DB) CreateDropBankCallback(sender DroppedSlotsSender) DropCallback {
	return func(slot types.Slot) {
		if !sender.Send(slot) {
			d.log.Warn("dropped bank not enqueued, channel closed",
				logging.Slot("slot", slot),
			)
		}
	}
}

func accountKey(key string) []byte {
	return append(accountPrefix, key...)
}

func journalKey(slot types.Slot, key string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", journalPrefix, slot, key))
}

// StoreAccount writes an account at the given slot. The write is recorded in
// the per slot journal so CleanUpTo can reclaim it once the slot is dropped
// or rooted past.
func (d *DB) StoreAccount(slot types.Slot, key string, acct Account) error {
	buf, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(accountKey(key), buf); err != nil {
			return err
		}
		return txn.Set(journalKey(slot, key), nil)
	})
}

// Account reads the latest value for the given key.
func (d *DB) Account(key string) (Account, bool, error) {
	var acct Account
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &acct)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	return acct, true, nil
}

// Accounts returns every account currently held, keyed by identity. Used by
// the snapshot producer side.
func (d *DB) Accounts() (map[string]Account, error) {
	out := map[string]Account{}
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(accountPrefix); it.ValidForPrefix(accountPrefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(accountPrefix):])
			var acct Account
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &acct)
			}); err != nil {
				return err
			}
			out[key] = acct
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Flush forces the store to sync to disk.
func (d *DB) Flush() error {
	return d.db.Sync()
}

// CleanUpTo removes journal entries for all slots at or below the given
// slot. Latest account values are untouched. Must only be called from the
// thread that consumes the dropped slots channel.
func (d *DB) CleanUpTo(slot types.Slot) (int, error) {
	// keys sort lexicographically, the zero padded slot makes the first
	// journal key of slot+1 an exclusive upper bound
	bound := fmt.Sprintf("%s%020d:", journalPrefix, slot+1)
	removed := 0
	err := d.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		var stale [][]byte
		for it.Seek(journalPrefix); it.ValidForPrefix(journalPrefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if strings.Compare(string(k), bound) >= 0 {
				break
			}
			stale = append(stale, k)
		}
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, err
	}
	return removed, nil
}

// Shrink runs a value log garbage collection pass.
func (d *DB) Shrink() error {
	if d.ShrinkRatio <= 0 {
		return nil
	}
	err := d.db.RunValueLogGC(d.ShrinkRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		// nothing to reclaim
		return nil
	}
	return err
}

// Close closes the underlying store.
func (d *DB) Close() error {
	return d.db.Close()
}
