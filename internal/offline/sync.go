package offline

import (
	"context"
	"log/slog"
)

// Invalidator marks every cached query stale.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Syncer replays the queue and refreshes cached data when connectivity returns.
type Syncer struct {
	Queue *Queue
	Cache Invalidator // optional
	Log   *slog.Logger
}

// Sync drains the queue then invalidates all cached queries.
func (s *Syncer) Sync(ctx context.Context) DrainStats {
	stats := s.Queue.Drain(ctx)
	if stats.Skipped || s.Cache == nil {
		return stats
	}
	if err := s.Cache.InvalidateAll(ctx); err != nil {
		s.Log.Warn("refreshing cached queries after sync", "error", err)
	}
	return stats
}

// OnReconnect returns a connectivity subscriber that syncs on every
// transition to online.
func (s *Syncer) OnReconnect(ctx context.Context) func(online bool) {
	return func(online bool) {
		if online {
			s.Sync(ctx)
		}
	}
}
