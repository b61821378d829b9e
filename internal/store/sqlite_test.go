package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/sync/errgroup"

	"github.com/azretail/chainscan/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleStores() []model.StoreRecord {
	return []model.StoreRecord{
		{
			Chain:        model.ChainBravo,
			Seq:          0,
			Name:         model.Value("Bravo Gənclik Mall"),
			Address:      model.Value("Bakı, Fətəli Xan Xoyski pr. 14"),
			City:         "Bakı",
			Latitude:     40.3777,
			Longitude:    49.892,
			Phone:        model.Value("*8080"),
			Hours:        model.Value(""),
			SourceFormat: model.FormatDecimal,
			Extra: map[string]model.Field{
				"type":        model.Value("Hiper"),
				"category_id": model.Value("2237"),
			},
		},
		{
			Chain:        model.ChainBravo,
			Seq:          1,
			Name:         model.Value("Bravo Xırdalan"),
			Address:      model.Value("Xırdalan"),
			City:         "Xırdalan",
			Latitude:     40.4481,
			Longitude:    49.7569,
			Phone:        model.Value(""),
			Hours:        model.Value(""),
			SourceFormat: model.FormatMapLink,
		},
	}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunKindScrape)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	result := &model.RunResult{
		Sources: []model.SourceSummary{{Chain: model.ChainOBA, Extracted: 10, Dropped: 1, Stored: 9}},
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, result))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunKindScrape, got.Kind)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Sources, 1)
	assert.Equal(t, 9, got.Result.Sources[0].Stored)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunKindMerge)
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, &model.RunResult{Error: "missing source table for TAM"}))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "missing source table for TAM", got.Result.Error)
}

func TestSQLite_UnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	err = st.CompleteRun(ctx, "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	scrape, err := st.CreateRun(ctx, model.RunKindScrape)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, model.RunKindAnalyze)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, scrape.ID, &model.RunResult{}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scrapes, err := st.ListRuns(ctx, RunFilter{Kind: model.RunKindScrape})
	require.NoError(t, err)
	require.Len(t, scrapes, 1)
	assert.Equal(t, scrape.ID, scrapes[0].ID)

	running, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, model.RunKindAnalyze, running[0].Kind)
	assert.Nil(t, running[0].Result)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_SaveStores(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunKindScrape)
	require.NoError(t, err)

	require.NoError(t, st.SaveStores(ctx, run.ID, model.ChainBravo, sampleStores()))
	// saving again replaces rather than duplicates
	require.NoError(t, st.SaveStores(ctx, run.ID, model.ChainBravo, sampleStores()))

	counts, err := st.CountStores(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[model.Chain]int{model.ChainBravo: 2}, counts)

	var name, hours sql.NullString
	var extra string
	row := st.db.QueryRowContext(ctx,
		`SELECT name, hours, extra FROM stores WHERE run_id = ? AND chain = ? AND seq = 0`,
		run.ID, string(model.ChainBravo))
	require.NoError(t, row.Scan(&name, &hours, &extra))
	assert.Equal(t, "Bravo Gənclik Mall", name.String)
	assert.True(t, hours.Valid, "collected but empty hours is not NULL")
	assert.Equal(t, "", hours.String)
	assert.JSONEq(t, `{"type":"Hiper","category_id":"2237"}`, extra)
}

func TestSQLite_SaveStores_NotCollectedIsNull(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunKindScrape)
	require.NoError(t, err)

	rec := model.StoreRecord{
		Chain:        model.ChainOBA,
		Name:         model.Value("OBA Nərimanov"),
		Address:      model.Value("Təbriz küç. 12"),
		City:         "Bakı",
		Latitude:     40.409264,
		Longitude:    49.867092,
		SourceFormat: model.FormatDecimal,
	}
	require.NoError(t, st.SaveStores(ctx, run.ID, model.ChainOBA, []model.StoreRecord{rec}))

	var phone sql.NullString
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT phone FROM stores WHERE run_id = ?`, run.ID).Scan(&phone))
	assert.False(t, phone.Valid)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"data/x.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		sqliteDSN("data/x.db"))
	assert.Contains(t, sqliteDSN("file:x.db?mode=rwc"), "file:x.db?mode=rwc&_pragma=busy_timeout(5000)")
}

func TestSQLite_SaveStoresConcurrent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunKindScrape)
	require.NoError(t, err)

	const perChain = 2000
	g, gctx := errgroup.WithContext(ctx)
	for _, chain := range model.Chains() {
		g.Go(func() error {
			recs := make([]model.StoreRecord, perChain)
			for i := range recs {
				recs[i] = model.StoreRecord{
					Chain:        chain,
					Seq:          i,
					Name:         model.Value(fmt.Sprintf("%s %d", chain, i)),
					City:         "Bakı",
					Latitude:     40.4,
					Longitude:    49.8,
					SourceFormat: model.FormatDecimal,
				}
			}
			return st.SaveStores(gctx, run.ID, chain, recs)
		})
	}
	require.NoError(t, g.Wait())

	counts, err := st.CountStores(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, counts, len(model.Chains()))
	for _, chain := range model.Chains() {
		assert.Equal(t, perChain, counts[chain], chain)
	}
}
