package models

import "time"

type User struct {
	Email            string    `gorm:"primaryKey" json:"email"`
	LastLogin        *int64    `json:"last_login,omitempty"` // unix seconds
	SeenReleaseNotes string    `json:"seen_release_notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MigrateModels lists every table managed by AutoMigrate.
var MigrateModels = []any{
	&Hero{},
	&Shift{},
	&DutyLedgerEntry{},
	&User{},
}
