package duty

import (
	"context"
	"testing"
	"time"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculateIsDeterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hero(t, "support", "a", "b")
	f.shift(t, "support", "a", 0, 0)
	f.shift(t, "support", "b", 5*time.Hour, 0)

	asOf := t0.Add(8 * time.Hour)
	first, err := f.engine.Recalculate(ctx, "support", asOf)
	require.NoError(t, err)
	second, err := f.engine.Recalculate(ctx, "support", asOf.Add(999*time.Millisecond))
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("recalculation is not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, []models.DutyLedgerEntry{
		{Hero: "support", Member: "a", AccumulatedSeconds: 5 * 3600, LastReconciledAt: asOf.Unix(), FirstDutyAt: t0.Unix(), LastDutyAt: t0.Add(5 * time.Hour).Unix()},
		{Hero: "support", Member: "b", AccumulatedSeconds: 3 * 3600, LastReconciledAt: asOf.Unix(), FirstDutyAt: t0.Add(5 * time.Hour).Unix(), LastDutyAt: asOf.Unix()},
	}, first.Entries)

	hero, err := f.engine.GetHero(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, asOf, hero.ReconciledUntil())
}

func TestRecalculateRepairsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hero(t, "support", "a", "b")
	f.shift(t, "support", "a", 0, 0)

	_, err := f.engine.Reconcile(ctx, t0.Add(2*time.Hour))
	require.NoError(t, err)
	// corrupt the ledger: extra time for a, a stray row for b
	require.NoError(t, f.store.Credit(ctx, "support", "a", 100, t0.Unix(), t0.Unix()))
	require.NoError(t, f.store.Credit(ctx, "support", "b", 100, t0.Unix(), t0.Unix()))

	snapshot, err := f.engine.Recalculate(ctx, "support", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(7200), snapshot.Total())
	assert.Equal(t, map[string]time.Duration{"a": 2 * time.Hour, "b": 0}, f.ledger(t, "support"))
}

func TestRecalculateIgnoresWatermark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hero(t, "support", "a")
	f.shift(t, "support", "a", 0, 0)

	_, err := f.engine.Reconcile(ctx, t0.Add(10*time.Hour))
	require.NoError(t, err)

	// rewinding is allowed and only counts time before asOf
	snapshot, err := f.engine.Recalculate(ctx, "support", t0.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4*3600), snapshot.Total())

	report, err := f.engine.Reconcile(ctx, t0.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 6 * 3600}, report.Heroes[0].Credited)
	assert.Equal(t, map[string]time.Duration{"a": 10 * time.Hour}, f.ledger(t, "support"))
}

func TestRecalculateUnknownHero(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Recalculate(context.Background(), "ops", t0)
	assert.ErrorIs(t, err, ErrUnknownHero)
}

func TestRecalculateAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hero(t, "support", "a")
	f.hero(t, "ops", "b")
	f.shift(t, "support", "a", 0, 0)
	f.shift(t, "ops", "b", time.Hour, 0)

	report, err := f.engine.RecalculateAll(ctx, t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, report.Heroes, 2)

	totals := make(map[string]int64)
	for _, result := range report.Heroes {
		require.NoError(t, result.Err)
		totals[result.Hero] = result.Snapshot.Total()
	}
	assert.Equal(t, map[string]int64{"support": 3 * 3600, "ops": 2 * 3600}, totals)
}
