package duty

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateHero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hero, err := f.engine.CreateHero(ctx, HeroSpec{
		Name:     " support ",
		Members:  []string{"b", "a", "b"},
		Metadata: map[string]string{"team": "infra"},
	})
	require.NoError(t, err)
	assert.Equal(t, "support", hero.Name)
	assert.Equal(t, []string{"a", "b"}, hero.Members)
	assert.Equal(t, t0, hero.ReconciledUntil())

	_, err = f.engine.CreateHero(ctx, HeroSpec{Name: "support"})
	assert.ErrorIs(t, err, ErrHeroExists)
	_, err = f.engine.CreateHero(ctx, HeroSpec{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	stored, err := f.engine.GetHero(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, "infra", stored.Metadata["team"])

	heroes, err := f.engine.ListHeroes(ctx)
	require.NoError(t, err)
	assert.Len(t, heroes, 1)
}

func TestMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hero(t, "support", "a")

	hero, err := f.engine.AddMember(ctx, "support", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, hero.Members)

	hero, err = f.engine.AddMember(ctx, "support", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, hero.Members)

	_, err = f.engine.RemoveMember(ctx, "support", "c")
	assert.ErrorIs(t, err, ErrUnknownMember)
	_, err = f.engine.AddMember(ctx, "ops", "a")
	assert.ErrorIs(t, err, ErrUnknownHero)

	hero, err = f.engine.RemoveMember(ctx, "support", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, hero.Members)

	_, err = f.engine.ProposeShift(ctx, proposal("support", "a", time.Hour, 0))
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestRemovedMemberKeepsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hero(t, "support", "a", "b")
	f.shift(t, "support", "a", 0, 8*time.Hour)

	_, err := f.engine.Reconcile(ctx, t0.Add(12*time.Hour))
	require.NoError(t, err)
	_, err = f.engine.RemoveMember(ctx, "support", "a")
	require.NoError(t, err)

	stats, err := f.engine.Stats(ctx, "support")
	require.NoError(t, err)
	require.Len(t, stats.Ranking, 1)
	assert.Equal(t, "a", stats.Ranking[0].Member)
	assert.Equal(t, 8*time.Hour, stats.Ranking[0].Duration)
}

func TestDeleteHeroCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hero(t, "support", "a")
	f.hero(t, "ops", "a")
	f.shift(t, "support", "a", 0, 0)
	f.shift(t, "ops", "a", 0, 0)

	_, err := f.engine.Reconcile(ctx, t0.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteHero(ctx, "support"))

	_, err = f.engine.Stats(ctx, "support")
	assert.ErrorIs(t, err, ErrUnknownHero)
	assert.Empty(t, f.ledger(t, "support"))
	shifts, err := f.store.ShiftsBefore(ctx, "support", t0.Add(24*time.Hour).Unix())
	require.NoError(t, err)
	assert.Empty(t, shifts)

	assert.ErrorIs(t, f.engine.DeleteHero(ctx, "support"), ErrUnknownHero)

	// other heroes are untouched
	assert.Equal(t, map[string]time.Duration{"a": time.Hour}, f.ledger(t, "ops"))
}

func TestDeleteHeroRemovesOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// rows left behind by an interrupted delete
	require.NoError(t, f.store.Credit(ctx, "support", "a", 60, t0.Unix(), t0.Unix()+60))

	require.NoError(t, f.engine.DeleteHero(ctx, "support"))
	assert.Empty(t, f.ledger(t, "support"))
}
