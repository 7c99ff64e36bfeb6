package duty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type LedgerSnapshot struct {
	Hero    string                   `json:"hero"`
	AsOf    time.Time                `json:"as_of"`
	Entries []models.DutyLedgerEntry `json:"entries"`
}

// Total returns the sum of accumulated seconds in the snapshot.
func (s *LedgerSnapshot) Total() int64 {
	var total int64
	for _, entry := range s.Entries {
		total += entry.AccumulatedSeconds
	}
	return total
}

type RecalculationReport struct {
	AsOf   time.Time           `json:"as_of"`
	Heroes []HeroRecalculation `json:"heroes"`
}

type HeroRecalculation struct {
	Hero     string          `json:"hero"`
	Snapshot *LedgerSnapshot `json:"snapshot,omitempty"`
	Err      error           `json:"-"`
}

// Recalculate rebuilds the hero's ledger from its entire shift history up
// to asOf and moves the watermark to asOf. The result depends only on the
// stored shifts and asOf. Members that no longer earn any time keep a
// zeroed row.
func (e *Engine) Recalculate(ctx context.Context, hero string, asOf time.Time) (*LedgerSnapshot, error) {
	asOf = truncate(asOf)
	asOfUnix := asOf.Unix()

	var snapshot *LedgerSnapshot
	err := e.retry(ctx, "recalculate", func() error {
		return e.store.WithTx(ctx, func(tx *store.Store) error {
			h, err := tx.GetHero(ctx, hero)
			if err != nil {
				return heroErr(hero, err)
			}
			shifts, err := tx.ShiftsBefore(ctx, hero, asOfUnix)
			if err != nil {
				return err
			}
			next, err := tx.ShiftAtOrAfter(ctx, hero, asOfUnix)
			if err != nil {
				return err
			}
			previous, err := tx.LedgerEntries(ctx, hero)
			if err != nil {
				return err
			}

			if err := e.afterHeroRead(ctx, tx, h); err != nil {
				return err
			}
			credits := attribute(shifts, next, beginningOfTime, asOfUnix)
			entries := rebuildLedger(hero, credits, previous, asOfUnix)

			if err := tx.AdvanceWatermark(ctx, hero, h.Revision, asOfUnix); err != nil {
				return err
			}
			if err := tx.ReplaceLedger(ctx, hero, entries); err != nil {
				return err
			}
			snapshot = &LedgerSnapshot{Hero: hero, AsOf: asOf, Entries: entries}
			return nil
		})
	})
	if errors.Is(err, store.ErrRevisionConflict) {
		err = fmt.Errorf("%w: %s", ErrReconcileConflict, hero)
	}
	if err != nil {
		e.metrics.Recalculated(outcomeFailed)
		return nil, storageErr(err)
	}
	e.metrics.Recalculated("rebuilt")
	e.logger.Info("ledger recalculated",
		zap.String("hero", hero),
		zap.Time("as_of", asOf),
		zap.Int("members", len(snapshot.Entries)),
		zap.Int64("seconds", snapshot.Total()))
	return snapshot, nil
}

func rebuildLedger(hero string, credits Attribution, previous []models.DutyLedgerEntry, asOf int64) []models.DutyLedgerEntry {
	entries := make([]models.DutyLedgerEntry, 0, len(credits)+len(previous))
	for _, member := range credits.Members() {
		credit := credits[member]
		entries = append(entries, models.DutyLedgerEntry{
			Hero:               hero,
			Member:             member,
			AccumulatedSeconds: credit.Seconds,
			LastReconciledAt:   asOf,
			FirstDutyAt:        credit.First,
			LastDutyAt:         credit.Last,
		})
	}
	for _, entry := range previous {
		if _, ok := credits[entry.Member]; ok {
			continue
		}
		entries = append(entries, models.DutyLedgerEntry{
			Hero:             hero,
			Member:           entry.Member,
			LastReconciledAt: asOf,
		})
	}
	return entries
}

// RecalculateAll runs Recalculate for every hero independently.
func (e *Engine) RecalculateAll(ctx context.Context, asOf time.Time) (*RecalculationReport, error) {
	asOf = truncate(asOf)
	names, err := e.store.ListHeroNames(ctx)
	if err != nil {
		return nil, storageErr(err)
	}

	report := &RecalculationReport{
		AsOf:   asOf,
		Heroes: make([]HeroRecalculation, len(names)),
	}
	var group errgroup.Group
	group.SetLimit(e.concurrency)
	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			snapshot, err := e.Recalculate(ctx, name, asOf)
			report.Heroes[i] = HeroRecalculation{Hero: name, Snapshot: snapshot, Err: err}
			return nil
		})
	}
	_ = group.Wait()
	return report, nil
}
