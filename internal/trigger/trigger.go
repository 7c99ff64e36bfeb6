// Package trigger runs a job once a day at a fixed UTC time of day.
package trigger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const day = 24 * time.Hour

// Job is invoked with the instant the trigger fired.
type Job func(ctx context.Context, now time.Time) error

type Daily struct {
	at     time.Duration
	job    Job
	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	running sync.WaitGroup
}

type Option func(*Daily)

func WithClock(now func() time.Time) Option {
	return func(d *Daily) {
		d.now = now
	}
}

// NewDaily schedules job at the offset at from UTC midnight. Nothing runs
// until Start is called.
func NewDaily(at time.Duration, job Job, logger *zap.Logger, opts ...Option) *Daily {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daily{
		at:     at % day,
		job:    job,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the first trigger instant strictly after from.
func (d *Daily) Next(from time.Time) time.Time {
	from = from.UTC()
	next := from.Truncate(day).Add(d.at)
	if !next.After(from) {
		next = next.Add(day)
	}
	return next
}

func (d *Daily) Start() {
	d.schedule()
}

func (d *Daily) schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil && d.timer.Stop() {
		d.running.Done()
	}

	now := d.now()
	next := d.Next(now)
	d.logger.Info("next reconciliation scheduled", zap.Time("at", next))
	d.running.Add(1)
	d.timer = time.AfterFunc(next.Sub(now), func() {
		defer d.running.Done()
		// schedule next run
		defer d.schedule()
		if err := d.job(d.ctx, d.now()); err != nil {
			d.logger.Error("scheduled job failed", zap.Error(err))
		}
	})
}

// Stop cancels the pending run and waits for a running job to return.
func (d *Daily) Stop() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil && d.timer.Stop() {
		// the callback will never run
		d.running.Done()
	}
	d.mu.Unlock()
	d.cancel()
	d.running.Wait()
}
