package store

import (
	"context"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"gorm.io/gorm/clause"
)

// RecordLogin creates the user on first sight and stamps the login time.
func (s *Store) RecordLogin(ctx context.Context, email string, at int64) (*models.User, error) {
	user := models.User{Email: email, LastLogin: &at}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_login", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, email)
}

func (s *Store) GetUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) SetSeenReleaseNotes(ctx context.Context, email, notes string) (*models.User, error) {
	result := s.conn(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("seen_release_notes", notes)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, email)
}
