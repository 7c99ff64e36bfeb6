package duty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"go.uber.org/zap"
)

type HeroSpec struct {
	Name     string
	Members  []string
	Channel  string
	Metadata map[string]string
}

// CreateHero registers a new hero. Its watermark starts at the creation
// instant, so no shift may ever be placed before it.
func (e *Engine) CreateHero(ctx context.Context, spec HeroSpec) (*models.Hero, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: hero name is empty", ErrInvalidInput)
	}
	now := e.Now()
	hero := &models.Hero{
		Name:      name,
		Members:   models.NormalizeMembers(spec.Members),
		Channel:   spec.Channel,
		Metadata:  spec.Metadata,
		Watermark: now.Unix(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateHero(ctx, hero); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrHeroExists, name)
		}
		return nil, storageErr(err)
	}
	e.logger.Info("hero created", zap.String("hero", name), zap.Int("members", len(hero.Members)))
	return hero, nil
}

func (e *Engine) GetHero(ctx context.Context, name string) (*models.Hero, error) {
	hero, err := e.store.GetHero(ctx, name)
	if err != nil {
		return nil, heroErr(name, err)
	}
	return hero, nil
}

func (e *Engine) ListHeroes(ctx context.Context) ([]models.Hero, error) {
	heroes, err := e.store.ListHeroes(ctx)
	return heroes, storageErr(err)
}

func (e *Engine) AddMember(ctx context.Context, name, member string) (*models.Hero, error) {
	if member == "" {
		return nil, fmt.Errorf("%w: member is empty", ErrInvalidInput)
	}
	return e.updateMembers(ctx, name, func(members []string) ([]string, error) {
		return models.NormalizeMembers(append(members, member)), nil
	})
}

// RemoveMember drops member from the hero. Ledger rows of the member are
// kept so past duty stays auditable.
func (e *Engine) RemoveMember(ctx context.Context, name, member string) (*models.Hero, error) {
	return e.updateMembers(ctx, name, func(members []string) ([]string, error) {
		out := make([]string, 0, len(members))
		for _, m := range members {
			if m != member {
				out = append(out, m)
			}
		}
		if len(out) == len(members) {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnknownMember, member, name)
		}
		return out, nil
	})
}

func (e *Engine) updateMembers(ctx context.Context, name string, change func([]string) ([]string, error)) (*models.Hero, error) {
	var updated *models.Hero
	err := e.retry(ctx, "members", func() error {
		hero, err := e.store.GetHero(ctx, name)
		if err != nil {
			return heroErr(name, err)
		}
		members, err := change(hero.Members)
		if err != nil {
			return err
		}
		if err := e.store.SetMembers(ctx, name, hero.Revision, members); err != nil {
			if errors.Is(err, store.ErrRevisionConflict) {
				return err
			}
			return storageErr(err)
		}
		hero.Members = members
		hero.Revision++
		updated = hero
		return nil
	})
	if errors.Is(err, store.ErrRevisionConflict) {
		return nil, fmt.Errorf("%w: members of %s changed concurrently", ErrReconcileConflict, name)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteHero removes the hero with all of its shifts and ledger rows. The
// children go first so an interrupted delete can simply be repeated; a
// second sweep catches rows written while the hero row still existed.
func (e *Engine) DeleteHero(ctx context.Context, name string) error {
	_, err := e.store.GetHero(ctx, name)
	heroMissing := errors.Is(err, store.ErrNotFound)
	if err != nil && !heroMissing {
		return storageErr(err)
	}

	var removed int64
	for sweep := 0; sweep < e.attempts; sweep++ {
		shifts, err := e.store.DeleteShifts(ctx, name)
		if err != nil {
			return storageErr(err)
		}
		entries, err := e.store.DeleteLedger(ctx, name)
		if err != nil {
			return storageErr(err)
		}
		deleted, err := e.store.DeleteHero(ctx, name)
		if err != nil {
			return storageErr(err)
		}
		removed += shifts + entries
		if deleted {
			removed++
		}
		if shifts == 0 && entries == 0 && !deleted {
			break
		}
	}

	if heroMissing && removed == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownHero, name)
	}
	e.logger.Info("hero deleted", zap.String("hero", name), zap.Int64("rows", removed))
	return nil
}
