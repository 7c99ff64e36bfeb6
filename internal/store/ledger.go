package store

import (
	"context"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
)

func (s *Store) LedgerEntries(ctx context.Context, hero string) ([]models.DutyLedgerEntry, error) {
	var entries []models.DutyLedgerEntry
	err := s.conn(ctx).Where("hero = ?", hero).Order("member").Find(&entries).Error
	return entries, err
}

// Credit adds seconds to a member's ledger entry, creating it on first
// credit, and widens its duty bounds to [first, last].
func (s *Store) Credit(ctx context.Context, hero, member string, seconds, first, last int64) error {
	var entries []models.DutyLedgerEntry
	if err := s.conn(ctx).Where("hero = ? AND member = ?", hero, member).Limit(1).Find(&entries).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return s.conn(ctx).Create(&models.DutyLedgerEntry{
			Hero:               hero,
			Member:             member,
			AccumulatedSeconds: seconds,
			FirstDutyAt:        first,
			LastDutyAt:         last,
		}).Error
	}

	entry := entries[0]
	entry.AccumulatedSeconds += seconds
	if entry.FirstDutyAt == 0 || first < entry.FirstDutyAt {
		entry.FirstDutyAt = first
	}
	if last > entry.LastDutyAt {
		entry.LastDutyAt = last
	}
	return s.conn(ctx).
		Model(&models.DutyLedgerEntry{}).
		Where("hero = ? AND member = ?", hero, member).
		Select("accumulated_seconds", "first_duty_at", "last_duty_at").
		Updates(&entry).Error
}

// StampLedger records the watermark on every ledger row of the hero.
func (s *Store) StampLedger(ctx context.Context, hero string, watermark int64) error {
	return s.conn(ctx).
		Model(&models.DutyLedgerEntry{}).
		Where("hero = ?", hero).
		Update("last_reconciled_at", watermark).Error
}

// ReplaceLedger overwrites all ledger rows of the hero with entries.
func (s *Store) ReplaceLedger(ctx context.Context, hero string, entries []models.DutyLedgerEntry) error {
	if _, err := s.DeleteLedger(ctx, hero); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return s.conn(ctx).Create(&entries).Error
}

func (s *Store) DeleteLedger(ctx context.Context, hero string) (int64, error) {
	result := s.conn(ctx).Delete(&models.DutyLedgerEntry{}, "hero = ?", hero)
	return result.RowsAffected, result.Error
}
