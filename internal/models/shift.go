package models

import (
	"time"
)

// Shift is keyed by (hero, start_time). A nil EndTime means the shift
// lasts until the next shift of the same hero starts.
type Shift struct {
	Hero      string `gorm:"primaryKey" json:"hero"`
	StartTime int64  `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Member    string `gorm:"index;not null" json:"member"`
	EndTime   *int64 `json:"-"`
}

func (Shift) TableName() string {
	return "shifts"
}

func (s *Shift) Start() time.Time {
	return time.Unix(s.StartTime, 0).UTC()
}

// End returns the explicit end of the shift and whether one is set.
func (s *Shift) End() (time.Time, bool) {
	if s.EndTime == nil {
		return time.Time{}, false
	}
	return time.Unix(*s.EndTime, 0).UTC(), true
}

// SamePayload reports whether other asserts the same assignment for the
// same slot.
func (s *Shift) SamePayload(other *Shift) bool {
	if s.Hero != other.Hero || s.StartTime != other.StartTime || s.Member != other.Member {
		return false
	}
	if s.EndTime == nil || other.EndTime == nil {
		return s.EndTime == nil && other.EndTime == nil
	}
	return *s.EndTime == *other.EndTime
}
