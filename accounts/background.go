package accounts

import (
	"context"
	"sync"
	"time"

	"code.kestrelchain.io/kestrel/logging"
	"code.kestrelchain.io/kestrel/metrics"
	"code.kestrelchain.io/kestrel/types"
)

// BackgroundService is the single consumer of the dropped slots channel. It
// serializes reclamation of pruned banks with flush, clean and shrink passes
// on the store. Correctness relies on there being exactly one of these per
// store, not on locking inside the store.
type BackgroundService struct {
	log *logging.Logger
	db  *DB
	rx  DroppedSlotsReceiver

	cfunc context.CancelFunc
	done  chan struct{}
	once  sync.Once
}

// NewBackgroundService wires the maintenance loop to the store and the
// consumer end of the pruned bank channel.
func NewBackgroundService(log *logging.Logger, db *DB, rx DroppedSlotsReceiver) *BackgroundService {
	return &BackgroundService{
		log:  log.Named("accounts.background"),
		db:   db,
		rx:   rx,
		done: make(chan struct{}),
	}
}

// Start launches the maintenance loop.
func (s *BackgroundService) Start(ctx context.Context) {
	ctx, s.cfunc = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop shuts the loop down, draining any slots still queued first.
func (s *BackgroundService) Stop() {
	s.once.Do(func() {
		s.rx.Close()
		if s.cfunc != nil {
			s.cfunc()
		}
		<-s.done
	})
}

func (s *BackgroundService) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.db.MaintenanceInterval.Get())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case <-ticker.C:
			s.reclaimDropped()
			if err := s.db.Flush(); err != nil {
				s.log.Error("accounts flush failed", logging.Error(err))
			}
			if err := s.db.Shrink(); err != nil {
				s.log.Error("accounts shrink failed", logging.Error(err))
			}
		}
	}
}

// reclaimDropped consumes every queued dropped slot and cleans the journal
// up to the highest of them.
func (s *BackgroundService) reclaimDropped() {
	var (
		max   types.Slot
		count int
	)
	for {
		slot, ok := s.rx.TryRecv()
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
	removed, err := s.db.CleanUpTo(max)
	if err != nil {
		s.log.Error("failed to clean dropped banks",
			logging.Slot("up-to", max),
			logging.Error(err),
		)
		return
	}
	if s.log.IsDebug() {
		s.log.Debug("reclaimed dropped banks",
			logging.Int("banks", count),
			logging.Int("journal-entries", removed),
			logging.Slot("up-to", max),
		)
	}
}

func (s *BackgroundService) drain() {
	s.reclaimDropped()
	for {
		slot, ok := s.rx.TryRecv()
		if !ok {
			return
		}
		if _, err := s.db.CleanUpTo(slot); err != nil {
			s.log.Error("failed to clean dropped bank on shutdown",
				logging.Slot("slot", slot),
				logging.Error(err),
			)
		}
	}
}
