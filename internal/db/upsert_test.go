package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "stores",
		Columns:      []string{"run_id", "seq"},
		ConflictKeys: []string{"run_id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "stores",
		ConflictKeys: []string{"run_id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "stores",
		Columns: []string{"run_id", "seq"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_stores" \(LIKE "stores"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_stores"}, []string{"run_id", "seq", "name"}).
		WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("run_id", "seq"\) DO UPDATE SET "name" = EXCLUDED."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "stores",
		Columns:      []string{"run_id", "seq", "name"},
		ConflictKeys: []string{"run_id", "seq"},
	}, [][]any{{"r", 0, "a"}, {"r", 1, "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_DeleteWhereFailsRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "stores" WHERE run_id = \$1`).
		WithArgs("r").
		WillReturnError(fmt.Errorf("lock timeout"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "stores",
		Columns:      []string{"run_id", "seq"},
		ConflictKeys: []string{"run_id", "seq"},
		DeleteWhere:  `run_id = $1`,
		DeleteArgs:   []any{"r"},
	}, [][]any{{"r", 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear stores")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFails(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_stores"}, []string{"run_id", "seq"}).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "stores",
		Columns:      []string{"run_id", "seq"},
		ConflictKeys: []string{"run_id", "seq"},
	}, [][]any{{"r", 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fill temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, `"stores"`, identifier("stores").Sanitize())
	assert.Equal(t, `"chainscan"."stores"`, identifier("chainscan.stores").Sanitize())
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"run_id", "chain", "seq"`, quoteAndJoin([]string{"run_id", "chain", "seq"}))
}
