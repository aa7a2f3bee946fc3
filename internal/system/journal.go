package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/authority/internal/core/event"
	coresys "github.com/l1jgo/authority/internal/core/system"
	"github.com/l1jgo/authority/internal/persist"
)

// JournalWriter stores a batch of journal entries atomically.
type JournalWriter interface {
	Write(ctx context.Context, entries []persist.JournalEntry) error
}

// maxJournalBacklog bounds the buffer while the writer keeps failing.
const maxJournalBacklog = 4096

// JournalSystem records session events as they are published and writes
// them in batches every interval ticks. A failed batch stays buffered and is
// retried with the next one. Phase 3 (Persist).
type JournalSystem struct {
	bus      *event.Bus
	writer   JournalWriter
	session  string
	log      *zap.Logger
	subs     []event.Subscription
	buf      []persist.JournalEntry
	clock    func() uint64
	interval int
	elapsed  int
	timeout  time.Duration
	dropped  int
}

// NewJournalSystem subscribes to the bus at once, so it must be built before
// the first player is created to see the boot-time master election. clock
// stamps each entry with the tick it was recorded in; pass the runner's Ticks.
func NewJournalSystem(bus *event.Bus, writer JournalWriter, session string, intervalTicks int, clock func() uint64, log *zap.Logger) *JournalSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	s := &JournalSystem{
		bus:      bus,
		writer:   writer,
		session:  session,
		log:      log,
		clock:    clock,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
	s.subs = append(s.subs,
		event.Subscribe(bus, func(e event.PlayerJoined) {
			s.record(persist.JournalEntry{Kind: "player_joined", Player: int32(e.Player.ID), Detail: e.Player.DisplayName})
		}),
		event.Subscribe(bus, func(e event.PlayerLeft) {
			s.record(persist.JournalEntry{Kind: "player_left", Player: int32(e.Player.ID), Detail: e.Player.DisplayName})
		}),
		event.Subscribe(bus, func(e event.MasterChanged) {
			s.record(persist.JournalEntry{Kind: "master_changed", Player: int32(e.Next), Other: int32(e.Previous)})
		}),
		event.Subscribe(bus, func(e event.OwnershipChanged) {
			s.record(persist.JournalEntry{Kind: "ownership_changed", Player: int32(e.Owner), Entity: e.Entity.String()})
		}),
		event.Subscribe(bus, func(event.SessionReady) {
			s.record(persist.JournalEntry{Kind: "session_ready"})
		}),
	)
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) {
	s.elapsed++
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.Flush(ctx)
}

func (s *JournalSystem) record(e persist.JournalEntry) {
	e.Session = s.session
	e.Tick = s.clock()
	if len(s.buf) >= maxJournalBacklog {
		s.buf = s.buf[1:]
		s.dropped++
	}
	s.buf = append(s.buf, e)
}

// Flush writes everything buffered. Called by Update and once more at
// shutdown.
func (s *JournalSystem) Flush(ctx context.Context) {
	if s.dropped > 0 {
		s.log.Warn("journal backlog full, oldest entries dropped", zap.Int("dropped", s.dropped))
		s.dropped = 0
	}
	if len(s.buf) == 0 {
		return
	}
	if err := s.writer.Write(ctx, s.buf); err != nil {
		s.log.Error("journal write failed", zap.Int("pending", len(s.buf)), zap.Error(err))
		return
	}
	s.log.Debug("journal written", zap.Int("entries", len(s.buf)))
	s.buf = s.buf[:0]
}

// Pending returns the number of buffered entries.
func (s *JournalSystem) Pending() int { return len(s.buf) }

// Close unsubscribes from the bus. Buffered entries are kept for a final
// Flush.
func (s *JournalSystem) Close() {
	for _, sub := range s.subs {
		s.bus.Unsubscribe(sub)
	}
	s.subs = nil
}
