package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Purger удаляет ключи идемпотентности старше заданного момента.
type Purger interface {
	PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error)
}

// Sweeper периодически чистит устаревшие ключи идемпотентности.
type Sweeper struct {
	purger   Purger
	logger   *zap.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewSweeper(purger Purger, logger *zap.Logger, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		purger:   purger,
		logger:   logger,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting idempotency sweeper",
		zap.Duration("interval", s.interval), zap.Duration("ttl", s.ttl))

	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Sweeper) Stop() {
	s.logger.Info("Stopping idempotency sweeper...")
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	s.logger.Info("Idempotency sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep делает один проход; ошибка только логируется, следующий тик попробует снова.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.ttl)
	n, err := s.purger.PurgeIdempotencyKeys(ctx, cutoff)
	if err != nil {
		s.logger.Error("sweeper error", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Purged idempotency keys", zap.Int64("count", n), zap.Time("older_than", cutoff))
	}
}
