package system

import (
	"context"
	"fmt"
	"time"

	"github.com/stridepath/server/internal/config"
	"github.com/stridepath/server/internal/core/event"
	coresys "github.com/stridepath/server/internal/core/system"
	"github.com/stridepath/server/internal/persist"
	"go.uber.org/zap"
)

const (
	journalTimeout = 5 * time.Second
	pruneInterval  = time.Hour
	// backlogBatches caps how many batches are kept while the store is down.
	backlogBatches = 8
)

// JournalWriter is the store ability events are flushed to.
type JournalWriter interface {
	Append(ctx context.Context, entries []persist.JournalEntry) error
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// JournalReader returns an actor's newest journal entries, newest first.
type JournalReader interface {
	Recent(ctx context.Context, actor string, limit int) ([]persist.JournalEntry, error)
}

// JournalSystem records every ability change and flushes them in batches.
// Phase 5 (Persist).
type JournalSystem struct {
	writer     JournalWriter
	cfg        config.JournalConfig
	log        *zap.Logger
	buf        []persist.JournalEntry
	elapsed    time.Duration
	sincePrune time.Duration
	dropped    int
}

// NewJournalSystem subscribes to ability changes on bus. A nil writer keeps
// the journal in the log only.
func NewJournalSystem(bus *event.Bus, writer JournalWriter, cfg config.JournalConfig, log *zap.Logger) *JournalSystem {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}
	s := &JournalSystem{writer: writer, cfg: cfg, log: log}
	event.Subscribe(bus, s.record)
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) record(ev event.AbilityChanged) {
	s.buf = append(s.buf, persist.NewJournalEntry(ev.Actor, ev.Change, ev.At))
	if limit := s.cfg.BatchSize * backlogBatches; len(s.buf) > limit {
		over := len(s.buf) - limit
		s.buf = append(s.buf[:0], s.buf[over:]...)
		s.dropped += over
	}
}

// Buffered returns the number of entries waiting to be flushed.
func (s *JournalSystem) Buffered() int { return len(s.buf) }

func (s *JournalSystem) Update(dt time.Duration) {
	s.elapsed += dt
	s.sincePrune += dt
	if len(s.buf) >= s.cfg.BatchSize || (s.elapsed >= s.cfg.FlushInterval && len(s.buf) > 0) {
		s.elapsed = 0
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		s.Flush(ctx)
		cancel()
	}
	if s.writer != nil && s.cfg.Retention > 0 && s.sincePrune >= pruneInterval {
		s.sincePrune = 0
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		n, err := s.writer.Prune(ctx, time.Now().Add(-s.cfg.Retention))
		if err != nil {
			s.log.Warn("journal prune failed", zap.Error(err))
			return
		}
		if n > 0 {
			s.log.Info("journal pruned", zap.Int64("rows", n))
		}
	}
}

// Flush writes every buffered entry. Entries stay buffered when the write
// fails and are retried on the next flush.
func (s *JournalSystem) Flush(ctx context.Context) error {
	if s.dropped > 0 {
		s.log.Warn("journal backlog overflow, oldest entries dropped", zap.Int("dropped", s.dropped))
		s.dropped = 0
	}
	if len(s.buf) == 0 {
		return nil
	}
	if s.writer == nil {
		for _, e := range s.buf {
			s.log.Debug("journal",
				zap.String("actor", e.Actor),
				zap.String("kind", e.Kind),
				zap.String("ability", e.Key),
				zap.String("by", e.Instigator))
		}
		s.buf = s.buf[:0]
		return nil
	}
	for len(s.buf) > 0 {
		n := min(len(s.buf), s.cfg.BatchSize)
		if err := s.writer.Append(ctx, s.buf[:n]); err != nil {
			s.log.Error("journal flush failed", zap.Int("pending", len(s.buf)), zap.Error(err))
			return err
		}
		s.buf = append(s.buf[:0], s.buf[n:]...)
	}
	return nil
}

// Recent returns actor's newest entries, newest first: still-buffered entries
// before stored ones when the writer can read back.
func (s *JournalSystem) Recent(ctx context.Context, actor string, limit int) ([]persist.JournalEntry, error) {
	out := make([]persist.JournalEntry, 0, limit)
	for i := len(s.buf) - 1; i >= 0 && len(out) < limit; i-- {
		if s.buf[i].Actor == actor {
			out = append(out, s.buf[i])
		}
	}
	r, ok := s.writer.(JournalReader)
	if !ok || len(out) >= limit {
		return out, nil
	}
	stored, err := r.Recent(ctx, actor, limit-len(out))
	if err != nil {
		return out, fmt.Errorf("read journal: %w", err)
	}
	return append(out, stored...), nil
}
