// Package duty implements the schedule and attendance reconciliation
// engine: validated shift writes, incremental crediting of duty time,
// deterministic ledger rebuilds and fairness statistics.
//
// All state lives in the store. Writes scoped to one hero are serialized
// by a compare-and-set on the hero revision; losers are retried a bounded
// number of times.
package duty

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/directory"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/metrics"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"go.uber.org/zap"
)

const (
	defaultAttempts    = 3
	defaultConcurrency = 4
	defaultSyncTimeout = 10 * time.Second
	backoffBase        = 50 * time.Millisecond
)

type Engine struct {
	store       *store.Store
	directory   directory.Syncer
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	backoff     func(attempt int) time.Duration
	attempts    int
	concurrency int
	syncTimeout time.Duration

	// heroRead runs inside write transactions right after the hero row is
	// read. Tests use it to interleave a concurrent writer.
	heroRead func(ctx context.Context, tx *store.Store, hero *models.Hero) error
}

type Option func(*Engine)

func WithDirectory(syncer directory.Syncer) Option {
	return func(e *Engine) {
		e.directory = syncer
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the wall clock used for hero creation, stats and
// manual triggers.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithBackoff overrides the delay between conflicting attempts.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(e *Engine) {
		e.backoff = backoff
	}
}

func WithAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.attempts = n
		}
	}
}

// WithConcurrency bounds how many heroes are processed in parallel by
// Reconcile and RecalculateAll.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithSyncTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.syncTimeout = d
		}
	}
}

func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		directory:   directory.Nop{},
		logger:      zap.NewNop(),
		now:         time.Now,
		backoff:     jitterBackoff,
		attempts:    defaultAttempts,
		concurrency: defaultConcurrency,
		syncTimeout: defaultSyncTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock truncated to whole seconds.
func (e *Engine) Now() time.Time {
	return truncate(e.now())
}

func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// retry runs fn until it stops failing with a revision conflict or the
// attempts are used up, in which case the conflict is returned.
func (e *Engine) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		err = fn()
		if !errors.Is(err, store.ErrRevisionConflict) {
			return err
		}
		e.metrics.Conflict(op)
		if attempt == e.attempts {
			break
		}
		delay := e.backoff(attempt)
		e.logger.Debug("revision conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func (e *Engine) afterHeroRead(ctx context.Context, tx *store.Store, hero *models.Hero) error {
	if e.heroRead == nil {
		return nil
	}
	return e.heroRead(ctx, tx, hero)
}

// jitterBackoff doubles the base delay per attempt and adds up to one base
// of random jitter.
func jitterBackoff(attempt int) time.Duration {
	delay := backoffBase << (attempt - 1)
	return delay + time.Duration(rand.Int63n(int64(backoffBase))) //nolint:gosec // non-crypto retry jitter
}
