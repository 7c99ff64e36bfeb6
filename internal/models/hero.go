package models

import (
	"slices"
	"time"
)

type Hero struct {
	Name      string            `gorm:"primaryKey" json:"name"`
	Members   []string          `gorm:"serializer:json" json:"members"`
	Channel   string            `json:"channel,omitempty"`
	Metadata  map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`
	Watermark int64             `json:"watermark"` // unix seconds, duty time credited up to here
	Revision  int64             `gorm:"not null;default:0" json:"revision"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (Hero) TableName() string {
	return "heroes"
}

// HasMember reports whether member is part of the hero's member set.
func (h *Hero) HasMember(member string) bool {
	_, found := slices.BinarySearch(h.Members, member)
	return found
}

// ReconciledUntil returns the ledger watermark, falling back to the
// creation instant for heroes that were never reconciled.
func (h *Hero) ReconciledUntil() time.Time {
	if h.Watermark > 0 {
		return time.Unix(h.Watermark, 0).UTC()
	}
	return h.CreatedAt.UTC().Truncate(time.Second)
}

// NormalizeMembers sorts and de-duplicates a member list.
func NormalizeMembers(members []string) []string {
	out := slices.Clone(members)
	slices.Sort(out)
	return slices.Compact(out)
}
