package duty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"go.uber.org/zap"
)

// ShiftProposal asserts that Member is on duty for Hero from Start. A nil
// End leaves the shift open until the next shift starts.
type ShiftProposal struct {
	Hero   string
	Member string
	Start  time.Time
	End    *time.Time
}

func (p ShiftProposal) shift() (*models.Shift, error) {
	start := truncate(p.Start)
	shift := &models.Shift{
		Hero:      p.Hero,
		StartTime: start.Unix(),
		Member:    p.Member,
	}
	if p.End != nil {
		end := truncate(*p.End)
		if !end.After(start) {
			return nil, fmt.Errorf("%w: shift must end after it starts", ErrInvalidInput)
		}
		endUnix := end.Unix()
		shift.EndTime = &endUnix
	}
	return shift, nil
}

// ProposeShift validates and stores a shift. Re-submitting an identical
// shift is a silent no-op. No ledger rows are touched here.
func (e *Engine) ProposeShift(ctx context.Context, proposal ShiftProposal) (*models.Shift, error) {
	candidate, err := proposal.shift()
	if err != nil {
		return nil, err
	}

	var stored *models.Shift
	err = e.retry(ctx, "propose", func() error {
		return e.store.WithTx(ctx, func(tx *store.Store) error {
			var err error
			stored, err = e.proposeTx(ctx, tx, candidate)
			return err
		})
	})
	if errors.Is(err, store.ErrRevisionConflict) {
		return nil, fmt.Errorf("%w: concurrent schedule writes for %s", ErrOverlap, proposal.Hero)
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return stored, nil
}

func (e *Engine) proposeTx(ctx context.Context, tx *store.Store, candidate *models.Shift) (*models.Shift, error) {
	hero, err := tx.GetHero(ctx, candidate.Hero)
	if err != nil {
		return nil, heroErr(candidate.Hero, err)
	}
	if !hero.HasMember(candidate.Member) {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnknownMember, candidate.Member, hero.Name)
	}

	existing, err := tx.GetShift(ctx, candidate.Hero, candidate.StartTime)
	switch {
	case err == nil && existing.SamePayload(candidate):
		return existing, nil
	case err == nil:
		return nil, fmt.Errorf("%w: %s already has a shift starting %s", ErrOverlap, hero.Name, existing.Start().Format(time.RFC3339))
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	watermark := hero.ReconciledUntil()
	if candidate.Start().Before(watermark) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrPastWrite, candidate.Start().Format(time.RFC3339), watermark.Format(time.RFC3339))
	}

	prev, err := tx.ShiftBefore(ctx, hero.Name, candidate.StartTime)
	if err != nil {
		return nil, err
	}
	// an open-ended predecessor is cut short by the new shift
	if prev != nil && prev.EndTime != nil && *prev.EndTime > candidate.StartTime {
		return nil, fmt.Errorf("%w: shift starting %s runs until %s", ErrOverlap,
			prev.Start().Format(time.RFC3339), time.Unix(*prev.EndTime, 0).UTC().Format(time.RFC3339))
	}
	next, err := tx.ShiftAtOrAfter(ctx, hero.Name, candidate.StartTime)
	if err != nil {
		return nil, err
	}
	if next != nil && candidate.EndTime != nil && *candidate.EndTime > next.StartTime {
		return nil, fmt.Errorf("%w: shift starting %s begins before this one ends", ErrOverlap,
			next.Start().Format(time.RFC3339))
	}

	if err := e.afterHeroRead(ctx, tx, hero); err != nil {
		return nil, err
	}
	if err := tx.TouchRevision(ctx, hero.Name, hero.Revision); err != nil {
		return nil, err
	}
	if err := tx.CreateShift(ctx, candidate); err != nil {
		return nil, err
	}
	e.logger.Info("shift stored",
		zap.String("hero", hero.Name),
		zap.String("member", candidate.Member),
		zap.Time("start", candidate.Start()))
	return candidate, nil
}

// DeleteShift removes a shift that has not been credited yet.
func (e *Engine) DeleteShift(ctx context.Context, hero string, start time.Time) error {
	startUnix := truncate(start).Unix()
	err := e.retry(ctx, "delete-shift", func() error {
		return e.store.WithTx(ctx, func(tx *store.Store) error {
			h, err := tx.GetHero(ctx, hero)
			if err != nil {
				return heroErr(hero, err)
			}
			if startUnix < h.ReconciledUntil().Unix() {
				return fmt.Errorf("%w: cannot delete a credited shift", ErrPastWrite)
			}
			if err := tx.TouchRevision(ctx, hero, h.Revision); err != nil {
				return err
			}
			deleted, err := tx.DeleteShift(ctx, hero, startUnix)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%w: %s at %s", ErrUnknownShift, hero, time.Unix(startUnix, 0).UTC().Format(time.RFC3339))
			}
			return nil
		})
	})
	if errors.Is(err, store.ErrRevisionConflict) {
		return fmt.Errorf("%w: concurrent schedule writes for %s", ErrOverlap, hero)
	}
	return storageErr(err)
}

// Schedule lists the hero's shifts starting in [from, to). Zero bounds are
// open.
func (e *Engine) Schedule(ctx context.Context, hero string, from, to time.Time) ([]models.Shift, error) {
	if _, err := e.store.GetHero(ctx, hero); err != nil {
		return nil, heroErr(hero, err)
	}
	lo, hi := int64(beginningOfTime), int64(endOfTime)
	if !from.IsZero() {
		lo = from.Unix()
	}
	if !to.IsZero() {
		hi = to.Unix()
	}
	shifts, err := e.store.ShiftsBetween(ctx, hero, lo, hi)
	return shifts, storageErr(err)
}
