package store

import (
	"context"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
)

func (s *Store) GetShift(ctx context.Context, hero string, start int64) (*models.Shift, error) {
	var shift models.Shift
	if err := s.conn(ctx).First(&shift, "hero = ? AND start_time = ?", hero, start).Error; err != nil {
		return nil, notFound(err)
	}
	return &shift, nil
}

// ShiftBefore returns the latest shift starting strictly before t, or nil.
func (s *Store) ShiftBefore(ctx context.Context, hero string, t int64) (*models.Shift, error) {
	var shifts []models.Shift
	err := s.conn(ctx).
		Where("hero = ? AND start_time < ?", hero, t).
		Order("start_time DESC").
		Limit(1).
		Find(&shifts).Error
	if err != nil || len(shifts) == 0 {
		return nil, err
	}
	return &shifts[0], nil
}

// ShiftAtOrAfter returns the earliest shift starting at or after t, or nil.
func (s *Store) ShiftAtOrAfter(ctx context.Context, hero string, t int64) (*models.Shift, error) {
	var shifts []models.Shift
	err := s.conn(ctx).
		Where("hero = ? AND start_time >= ?", hero, t).
		Order("start_time ASC").
		Limit(1).
		Find(&shifts).Error
	if err != nil || len(shifts) == 0 {
		return nil, err
	}
	return &shifts[0], nil
}

// ShiftsBetween returns the shifts starting in [from, to) in chronological
// order.
func (s *Store) ShiftsBetween(ctx context.Context, hero string, from, to int64) ([]models.Shift, error) {
	var shifts []models.Shift
	err := s.conn(ctx).
		Where("hero = ? AND start_time >= ? AND start_time < ?", hero, from, to).
		Order("start_time ASC").
		Find(&shifts).Error
	return shifts, err
}

// ShiftsBefore returns every shift starting before t in chronological order.
func (s *Store) ShiftsBefore(ctx context.Context, hero string, t int64) ([]models.Shift, error) {
	var shifts []models.Shift
	err := s.conn(ctx).
		Where("hero = ? AND start_time < ?", hero, t).
		Order("start_time ASC").
		Find(&shifts).Error
	return shifts, err
}

func (s *Store) CreateShift(ctx context.Context, shift *models.Shift) error {
	return s.conn(ctx).Create(shift).Error
}

func (s *Store) DeleteShift(ctx context.Context, hero string, start int64) (bool, error) {
	result := s.conn(ctx).Delete(&models.Shift{}, "hero = ? AND start_time = ?", hero, start)
	return result.RowsAffected > 0, result.Error
}

func (s *Store) DeleteShifts(ctx context.Context, hero string) (int64, error) {
	result := s.conn(ctx).Delete(&models.Shift{}, "hero = ?", hero)
	return result.RowsAffected, result.Error
}
