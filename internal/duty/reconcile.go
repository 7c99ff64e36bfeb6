package duty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/metrics"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	outcomeCredited = "credited"
	outcomeNoOp     = "noop"
	outcomeConflict = "conflict"
	outcomeFailed   = "failed"
)

type ReconciliationReport struct {
	RunID  string               `json:"run_id"`
	Now    time.Time            `json:"now"`
	Heroes []HeroReconciliation `json:"heroes"`
}

// HeroReconciliation is the outcome for one hero. Err is set when the
// ledger was not updated; DirectorySyncErr never affects the ledger.
type HeroReconciliation struct {
	Hero             string           `json:"hero"`
	From             time.Time        `json:"from"`
	To               time.Time        `json:"to"`
	Credited         map[string]int64 `json:"credited_seconds,omitempty"`
	Holder           string           `json:"holder,omitempty"`
	NoOp             bool             `json:"no_op"`
	Err              error            `json:"-"`
	DirectorySyncErr error            `json:"-"`
}

// Failed reports whether any hero failed to update its ledger.
func (r *ReconciliationReport) Failed() []HeroReconciliation {
	var failed []HeroReconciliation
	for _, h := range r.Heroes {
		if h.Err != nil {
			failed = append(failed, h)
		}
	}
	return failed
}

// Reconcile credits duty time up to now for every hero and pushes each
// hero's current holder to the directory. Heroes are independent: a
// failure is recorded in that hero's entry and does not stop the others.
// The returned error is only set when the heroes could not be listed.
func (e *Engine) Reconcile(ctx context.Context, now time.Time) (*ReconciliationReport, error) {
	now = truncate(now)
	report := &ReconciliationReport{
		RunID: uuid.NewString(),
		Now:   now,
	}
	logger := e.logger.With(zap.String("run", report.RunID))

	names, err := e.store.ListHeroNames(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	report.Heroes = make([]HeroReconciliation, len(names))

	tally := metrics.NewTally()
	var group errgroup.Group
	group.SetLimit(e.concurrency)
	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			started := time.Now()
			result := e.reconcileHero(ctx, name, now, logger)
			report.Heroes[i] = result

			outcome := outcomeCredited
			switch {
			case errors.Is(result.Err, ErrReconcileConflict):
				outcome = outcomeConflict
			case result.Err != nil:
				outcome = outcomeFailed
			case result.NoOp:
				outcome = outcomeNoOp
			}
			tally.Count(outcome)
			if result.DirectorySyncErr != nil {
				tally.Count("directory_sync_failed")
			}
			e.metrics.Reconciled(outcome, time.Since(started))
			return nil
		})
	}
	_ = group.Wait()

	tally.Log(logger, "reconciliation finished", zap.Time("now", now), zap.Int("heroes", len(names)))
	return report, nil
}

func (e *Engine) reconcileHero(ctx context.Context, name string, now time.Time, logger *zap.Logger) HeroReconciliation {
	result := HeroReconciliation{Hero: name, To: now}
	nowUnix := now.Unix()

	err := e.retry(ctx, "reconcile", func() error {
		result.NoOp = false
		result.Credited = nil
		return e.store.WithTx(ctx, func(tx *store.Store) error {
			hero, err := tx.GetHero(ctx, name)
			if err != nil {
				return heroErr(name, err)
			}
			from := hero.ReconciledUntil()
			result.From = from
			if !from.Before(now) {
				result.NoOp = true
				return nil
			}

			credits, err := creditWindow(ctx, tx, name, from.Unix(), nowUnix)
			if err != nil {
				return err
			}
			if err := e.afterHeroRead(ctx, tx, hero); err != nil {
				return err
			}
			// claim the window first so a lost race writes nothing
			if err := tx.AdvanceWatermark(ctx, name, hero.Revision, nowUnix); err != nil {
				return err
			}
			for _, member := range credits.Members() {
				credit := credits[member]
				if err := tx.Credit(ctx, name, member, credit.Seconds, credit.First, credit.Last); err != nil {
					return err
				}
			}
			if err := tx.StampLedger(ctx, name, nowUnix); err != nil {
				return err
			}

			result.Credited = make(map[string]int64, len(credits))
			for member, credit := range credits {
				result.Credited[member] = credit.Seconds
			}
			return nil
		})
	})
	if errors.Is(err, store.ErrRevisionConflict) {
		err = fmt.Errorf("%w: %s", ErrReconcileConflict, name)
	}
	if err != nil {
		result.Err = storageErr(err)
		result.Credited = nil
		logger.Error("reconciliation failed", zap.String("hero", name), zap.Error(result.Err))
		return result
	}
	for member, seconds := range result.Credited {
		e.metrics.Credited(name, seconds)
		logger.Debug("credited duty time",
			zap.String("hero", name),
			zap.String("member", member),
			zap.Int64("seconds", seconds))
	}

	// The directory is re-derived from the schedule on every run, so a
	// failed push heals on the next tick.
	holder, err := e.currentHolder(ctx, e.store, name, nowUnix)
	if err != nil {
		result.DirectorySyncErr = fmt.Errorf("%w: %w", ErrDirectorySyncFailed, storageErr(err))
	} else {
		result.Holder = holder
		syncCtx, cancel := context.WithTimeout(ctx, e.syncTimeout)
		err = e.directory.SetHolder(syncCtx, name, holder)
		cancel()
		if err != nil {
			result.DirectorySyncErr = fmt.Errorf("%w: %w", ErrDirectorySyncFailed, err)
		}
	}
	if result.DirectorySyncErr != nil {
		e.metrics.DirectorySyncFailed()
		logger.Warn("directory sync failed",
			zap.String("hero", name),
			zap.String("holder", holder),
			zap.Error(result.DirectorySyncErr))
	}
	return result
}

// creditWindow attributes the duty time of [from, to). The shift running
// at from started earlier and still counts; the first shift at or after
// to bounds an open-ended last shift.
func creditWindow(ctx context.Context, tx *store.Store, hero string, from, to int64) (Attribution, error) {
	running, err := tx.ShiftBefore(ctx, hero, from)
	if err != nil {
		return nil, err
	}
	window, err := tx.ShiftsBetween(ctx, hero, from, to)
	if err != nil {
		return nil, err
	}
	next, err := tx.ShiftAtOrAfter(ctx, hero, to)
	if err != nil {
		return nil, err
	}
	shifts := window
	if running != nil {
		shifts = append([]models.Shift{*running}, window...)
	}
	return attribute(shifts, next, from, to), nil
}

func (e *Engine) currentShift(ctx context.Context, st *store.Store, hero string, at int64) (*models.Shift, error) {
	latest, err := st.ShiftBefore(ctx, hero, at+1)
	if err != nil {
		return nil, err
	}
	return covering(latest, at), nil
}

func (e *Engine) currentHolder(ctx context.Context, st *store.Store, hero string, at int64) (string, error) {
	shift, err := e.currentShift(ctx, st, hero, at)
	if err != nil || shift == nil {
		return "", err
	}
	return shift.Member, nil
}
