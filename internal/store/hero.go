package store

import (
	"context"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateHero(ctx context.Context, hero *models.Hero) error {
	result := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(hero)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetHero(ctx context.Context, name string) (*models.Hero, error) {
	var hero models.Hero
	if err := s.conn(ctx).First(&hero, "name = ?", name).Error; err != nil {
		return nil, notFound(err)
	}
	return &hero, nil
}

func (s *Store) ListHeroes(ctx context.Context) ([]models.Hero, error) {
	var heroes []models.Hero
	if err := s.conn(ctx).Order("name").Find(&heroes).Error; err != nil {
		return nil, err
	}
	return heroes, nil
}

func (s *Store) ListHeroNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.conn(ctx).Model(&models.Hero{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// SetMembers replaces the member set if the hero is still at revision.
func (s *Store) SetMembers(ctx context.Context, name string, revision int64, members []string) error {
	return s.compareAndSet(ctx, name, revision, []string{"members"}, models.Hero{Members: members})
}

// AdvanceWatermark moves the ledger watermark if the hero is still at
// revision.
func (s *Store) AdvanceWatermark(ctx context.Context, name string, revision int64, watermark int64) error {
	return s.compareAndSet(ctx, name, revision, []string{"watermark"}, models.Hero{Watermark: watermark})
}

// TouchRevision claims the hero for a schedule write without changing any
// other column.
func (s *Store) TouchRevision(ctx context.Context, name string, revision int64) error {
	return s.compareAndSet(ctx, name, revision, nil, models.Hero{})
}

func (s *Store) compareAndSet(ctx context.Context, name string, revision int64, columns []string, values models.Hero) error {
	values.Revision = revision + 1
	result := s.conn(ctx).
		Model(&models.Hero{}).
		Where("name = ? AND revision = ?", name, revision).
		Select(append(columns, "revision")).
		Updates(&values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRevisionConflict
	}
	return nil
}

// DeleteHero removes the hero row only. Callers delete owned shifts and
// ledger rows first.
func (s *Store) DeleteHero(ctx context.Context, name string) (bool, error) {
	result := s.conn(ctx).Delete(&models.Hero{}, "name = ?", name)
	return result.RowsAffected > 0, result.Error
}
