package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const maxConcurrentRefreshes = 4

// Scheduler sweeps every seeded port in the background so markets keep
// moving even when nobody is looking at them.
type Scheduler struct {
	engine         *Engine
	sem            *semaphore.Weighted
	updateInterval time.Duration
}

func NewScheduler(engine *Engine, updateInterval time.Duration) *Scheduler {
	return &Scheduler{
		engine:         engine,
		sem:            semaphore.NewWeighted(maxConcurrentRefreshes),
		updateInterval: updateInterval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.updateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.sweep(ctx); err != nil {
					slog.Error("Market refresh sweep failed",
						slog.String("type", "error"),
						slog.Any("error", err))
				}
			}
		}
	}()
}

func (s *Scheduler) sweep(ctx context.Context) error {
	ports, err := s.engine.markets.GetPorts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ports: %w", err)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, port := range ports {
		port := port
		g.Go(func() error {
			if err := s.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)
			return s.refreshIfStale(gctx, port.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Debug("Market refresh sweep finished",
		slog.Int("ports", len(ports)),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) refreshIfStale(ctx context.Context, portID int64) error {
	e := s.engine
	entity := fmt.Sprintf("port%d", portID)

	oldest, ok, err := e.markets.OldestUpdatedAt(ctx, portID)
	if err != nil {
		return err
	}
	if !ok {
		// Never visited; seeding stays lazy.
		return nil
	}

	ttl := time.Duration(e.cfg.Int64For(ctx, "market.refresh_ttl_seconds", entity, 600, 30, 86400)) * time.Second
	if time.Since(oldest) <= ttl {
		return nil
	}

	lockKey := fmt.Sprintf("market:refresh:%d", portID)
	if !e.locks.TryAcquire(lockKey, refreshLockTTL) {
		return nil
	}
	defer e.locks.Release(lockKey)

	items, err := e.markets.GetItemsByPort(ctx, portID)
	if err != nil {
		return err
	}
	return e.refreshPort(ctx, items, entity)
}
