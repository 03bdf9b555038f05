package service

// sweeper.go runs periodic maintenance:
//  1. Evict sessions idle for longer than the session TTL
//  2. Purge load history older than the retention period
//
// It is long-running and stops when its context is cancelled. Failures are
// logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig configures the maintenance loop.
type SweepConfig struct {
	Interval         time.Duration // How often to run (default: 5m)
	HistoryRetention time.Duration // Keep load history this long; 0 keeps it forever
}

// StartSweeper blocks, running one sweep immediately and then every Interval
// until ctx is cancelled.
func (s *Service) StartSweeper(ctx context.Context, cfg SweepConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}

	slog.Info("session sweeper started",
		"interval", cfg.Interval.String(),
		"session_ttl", s.opts.SessionTTL.String(),
		"history_retention", cfg.HistoryRetention.String(),
	)

	s.sweep(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx, cfg)
		}
	}
}

// sweep performs one eviction + purge cycle.
func (s *Service) sweep(ctx context.Context, cfg SweepConfig) {
	start := time.Now()

	evicted := s.EvictIdle(s.now().Add(-s.opts.SessionTTL))
	if evicted > 0 {
		slog.Info("evicted idle sessions", "sessions_evicted", evicted)
	}

	if cfg.HistoryRetention > 0 {
		purged, err := s.store.PurgeLoads(ctx, s.now().Add(-cfg.HistoryRetention))
		if err != nil {
			slog.Error("history purge failed", "error", err)
		} else if purged > 0 {
			slog.Info("purged load history", "records_purged", purged)
		}
	}

	slog.Debug("sweep completed", "duration_ms", time.Since(start).Milliseconds())
}

// EvictIdle drops sessions not seen since cutoff and returns how many were
// removed. Sessions with a load in flight are kept.
func (s *Service) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.loading() || !sess.idleSince().Before(cutoff) {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}
