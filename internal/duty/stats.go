package duty

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
)

type MemberDuty struct {
	Member      string        `json:"member"`
	Seconds     int64         `json:"seconds"`
	Duration    time.Duration `json:"-"`
	FirstDutyAt int64         `json:"first_duty_at,omitempty"`
	LastDutyAt  int64         `json:"last_duty_at,omitempty"`
}

type HeroStats struct {
	Hero      string        `json:"hero"`
	Watermark time.Time     `json:"watermark"`
	Ranking   []MemberDuty  `json:"ranking"`
	Current   *models.Shift `json:"current,omitempty"`
}

// Stats ranks the hero's members by accumulated duty time, longest first,
// ties broken by member. It also reports the shift running right now.
func (e *Engine) Stats(ctx context.Context, hero string) (*HeroStats, error) {
	h, err := e.store.GetHero(ctx, hero)
	if err != nil {
		return nil, heroErr(hero, err)
	}
	entries, err := e.store.LedgerEntries(ctx, hero)
	if err != nil {
		return nil, storageErr(err)
	}
	current, err := e.currentShift(ctx, e.store, hero, e.Now().Unix())
	if err != nil {
		return nil, storageErr(err)
	}

	return &HeroStats{
		Hero:      hero,
		Watermark: h.ReconciledUntil(),
		Ranking:   rank(entries),
		Current:   current,
	}, nil
}

func rank(entries []models.DutyLedgerEntry) []MemberDuty {
	ranking := make([]MemberDuty, 0, len(entries))
	for _, entry := range entries {
		ranking = append(ranking, MemberDuty{
			Member:      entry.Member,
			Seconds:     entry.AccumulatedSeconds,
			Duration:    time.Duration(entry.AccumulatedSeconds) * time.Second,
			FirstDutyAt: entry.FirstDutyAt,
			LastDutyAt:  entry.LastDutyAt,
		})
	}
	slices.SortFunc(ranking, func(a, b MemberDuty) int {
		if c := cmp.Compare(b.Seconds, a.Seconds); c != 0 {
			return c
		}
		return cmp.Compare(a.Member, b.Member)
	})
	return ranking
}
