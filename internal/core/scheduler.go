package core

// scheduler.go runs background maintenance for the in-memory workspaces.
//
// The sweeper drops sessions idle for longer than the configured timeout. It
// is long-running and context-aware for graceful shutdown.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often idle sessions are checked.
const DefaultSweepInterval = time.Minute

// StartSessionSweeper removes idle sessions every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started",
		"interval", interval,
		"idle_timeout", s.opts.SessionIdle,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := s.SweepIdle(); n > 0 {
				slog.Info("expired idle sessions",
					"sessions_removed", n,
					"sessions_live", s.SessionCount(),
				)
			}
		}
	}
}

// SweepIdle removes sessions not touched within the idle timeout and
// returns how many were removed.
func (s *Service) SweepIdle() int {
	cutoff := s.now().Add(-s.opts.SessionIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
