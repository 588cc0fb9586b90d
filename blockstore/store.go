package blockstore

import (
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/types"
)

var (
	ErrSlotNotFound = errors.New("slot not in blockstore")

	entryPrefix = []byte("entries:")
)

// Store is the append-only ledger record store: entries per slot, read by
// the replayer after bootstrap hands the fork tree over.
type Store struct {
	Config

	log   *logging.Logger
	db    *leveldb.DB
	cache *lru.Cache
}

// Open opens the blockstore at path.
func Open(log *logging.Logger, cfg Config, path string) (*Store, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't open blockstore: %w", err)
	}
	size := cfg.EntryCacheSize
	if size < 1 {
		size = 1
	}
	cache, err := lru.New(size)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		Config: cfg,
		log:    log,
		db:     db,
		cache:  cache,
	}, nil
}

func slotKey(slot types.Slot) []byte {
	return []byte(fmt.Sprintf("%s%020d", entryPrefix, slot))
}

// PutEntries stores the entry batch for a slot.
func (s *Store) PutEntries(slot types.Slot, entries [][]byte) error {
	buf, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := s.db.Put(slotKey(slot), buf, nil); err != nil {
		return err
	}
	s.cache.Add(slot, entries)
	return nil
}

// Entries returns the entry batch for a slot.
func (s *Store) Entries(slot types.Slot) ([][]byte, error) {
	if v, ok := s.cache.Get(slot); ok {
		return v.([][]byte), nil
	}
	buf, err := s.db.Get(slotKey(slot), nil)
	if errors.Is(err, ldberrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, err
	}
	var entries [][]byte
	if err := json.Unmarshal(buf, &entries); err != nil {
		return nil, err
	}
	s.cache.Add(slot, entries)
	return entries, nil
}

// HasSlot reports whether entries exist for the slot.
func (s *Store) HasSlot(slot types.Slot) (bool, error) {
	if s.cache.Contains(slot) {
		return true, nil
	}
	return s.db.Has(slotKey(slot), nil)
}

// MaxSlot returns the highest slot with entries, false when the store is
// empty.
func (s *Store) MaxSlot() (types.Slot, bool, error) {
	it := s.db.NewIterator(util.BytesPrefix(entryPrefix), nil)
	defer it.Release()
	if !it.Last() {
		return 0, false, it.Error()
	}
	var slot types.Slot
	if _, err := fmt.Sscanf(string(it.Key()), string(entryPrefix)+"%d", &slot); err != nil {
		return 0, false, err
	}
	return slot, true, it.Error()
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}
