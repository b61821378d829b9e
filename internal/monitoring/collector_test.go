package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azretail/chainscan/internal/model"
	"github.com/azretail/chainscan/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeRuns struct {
	runs []model.Run
	err  error
}

func (f *fakeRuns) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	if filter.Limit > 0 && len(f.runs) > filter.Limit {
		return f.runs[:filter.Limit], nil
	}
	return f.runs, nil
}

func newTestCollector(runs ...model.Run) *Collector {
	c := NewCollector(&fakeRuns{runs: runs})
	c.now = func() time.Time { return testNow }
	return c
}

func scrapeRun(id string, age time.Duration, status model.RunStatus, stored map[model.Chain]int) model.Run {
	r := model.Run{
		ID:        id,
		Kind:      model.RunKindScrape,
		Status:    status,
		CreatedAt: testNow.Add(-age),
		Result:    &model.RunResult{},
	}
	for _, c := range model.Chains() {
		if n, ok := stored[c]; ok {
			r.Result.Sources = append(r.Result.Sources, model.SourceSummary{Chain: c, Extracted: n, Stored: n})
		}
	}
	if status == model.RunStatusFailed {
		r.Result.Error = "scrape oba: no listings found"
	}
	return r
}

func TestCollect_CountsWithinWindow(t *testing.T) {
	c := newTestCollector(
		model.Run{ID: "m1", Kind: model.RunKindMerge, Status: model.RunStatusRunning, CreatedAt: testNow.Add(-time.Hour)},
		scrapeRun("s3", 2*time.Hour, model.RunStatusFailed, nil),
		scrapeRun("s2", 3*time.Hour, model.RunStatusComplete, map[model.Chain]int{model.ChainOBA: 10}),
		model.Run{ID: "a1", Kind: model.RunKindAnalyze, Status: model.RunStatusComplete, CreatedAt: testNow.Add(-4 * time.Hour)},
		scrapeRun("old", 48*time.Hour, model.RunStatusFailed, nil),
	)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.Total)
	assert.Equal(t, 2, snap.Complete)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 1, snap.Running)
	assert.InDelta(t, 1.0/3.0, snap.FailRate, 0.0001)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, testNow, snap.CollectedAt)

	assert.Equal(t, "s3", snap.LastScrapeID)
	assert.True(t, snap.LastScrapeFailed)
	assert.Contains(t, snap.LastScrapeError, "no listings")
}

func TestCollect_SourceHealth(t *testing.T) {
	c := newTestCollector(
		scrapeRun("s3", time.Hour, model.RunStatusComplete, map[model.Chain]int{model.ChainOBA: 12, model.ChainBravo: 30}),
		scrapeRun("s2", 2*time.Hour, model.RunStatusComplete, map[model.Chain]int{model.ChainOBA: 40}),
		scrapeRun("s1", 3*time.Hour, model.RunStatusComplete, map[model.Chain]int{model.ChainOBA: 39, model.ChainBravo: 31}),
	)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.False(t, snap.LastScrapeFailed)

	require.Len(t, snap.Sources, 2)
	bravo, oba := snap.Sources[0], snap.Sources[1]
	assert.Equal(t, model.ChainBravo, bravo.Chain)
	assert.Equal(t, 30, bravo.Latest)
	assert.Equal(t, 31, bravo.Previous)
	assert.Equal(t, 2, bravo.Scrapes)

	assert.Equal(t, model.ChainOBA, oba.Chain)
	assert.Equal(t, 12, oba.Latest)
	assert.Equal(t, 40, oba.Previous)
	assert.Equal(t, 3, oba.Scrapes)
	assert.InDelta(t, -0.7, oba.Change(), 0.0001)
	assert.InDelta(t, 100.0, oba.PassRate, 0.0001)
}

func TestCollect_Empty(t *testing.T) {
	snap, err := newTestCollector().Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.FailRate)
	assert.Empty(t, snap.LastScrapeID)
	assert.Empty(t, snap.Sources)
}

func TestCollect_StoreError(t *testing.T) {
	c := NewCollector(&fakeRuns{err: errors.New("db down")})
	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}

func TestSourceHealthChange_NoPrevious(t *testing.T) {
	assert.Zero(t, SourceHealth{Latest: 5}.Change())
}
