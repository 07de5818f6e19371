package store

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically drops records past the configured maximum age. It
// only ever deletes, so a concurrent read races benignly: at worst it
// observes not-found after the sweep.
type Sweeper struct {
	store    HoleCardStore
	maxAge   time.Duration
	interval time.Duration
	done     chan struct{}
}

func NewSweeper(store HoleCardStore, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := s.store.DeleteOlderThan(context.Background(), s.maxAge)
				if err != nil {
					slog.Error("Retention sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Retention sweep removed expired hole cards", "deleted", deleted)
				}
			case <-s.done:
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.done)
}
