package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azretail/chainscan/internal/model"
)

func TestSourceColumns(t *testing.T) {
	t.Parallel()

	cols := SourceColumns([]string{model.ColName, model.ColAddress}, []string{"type"})
	assert.Equal(t, []string{"chain", "name", "address", "city", "latitude", "longitude", "source_format", "type"}, cols)
}

func TestFromRecords_ExtractionOrder(t *testing.T) {
	t.Parallel()

	recs := []model.StoreRecord{
		{Chain: model.ChainTam, Seq: 2, Name: model.Value("c"), Latitude: 40.1, Longitude: 49.1},
		{Chain: model.ChainTam, Seq: 0, Name: model.Value("a"), Latitude: 40.2, Longitude: 49.2},
		{Chain: model.ChainTam, Seq: 1, Name: model.NotCollected(), Latitude: 40.3, Longitude: 49.3},
	}
	tbl := FromRecords(model.ChainTam, SourceColumns([]string{model.ColName}, nil), recs)

	nameCol := tbl.Index(model.ColName)
	assert.Equal(t, "a", tbl.Rows[0][nameCol])
	assert.Equal(t, "", tbl.Rows[1][nameCol])
	assert.Equal(t, "c", tbl.Rows[2][nameCol])
	assert.Equal(t, "40.2", tbl.Rows[0][tbl.Index(model.ColLatitude)])
}

func TestRecords_RoundTrip(t *testing.T) {
	t.Parallel()

	merged := &Table{
		Columns: append(model.CoreColumns(), "type"),
		Rows: [][]string{
			{"BRAVO", "Bravo Gənclik", "Fətəli Xan Xoyski 111", "Bakı", "", "08:00-23:00", "40.4001", "49.8512", "decimal", "Hiper"},
			{"OBA", "Oba 17", "", "Sumqayıt", marker, marker, "40.59", "49.67", "map_link", marker},
		},
	}
	recs, err := merged.Records(marker)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, model.ChainBravo, recs[0].Chain)
	assert.True(t, recs[0].Phone.Empty())
	assert.Equal(t, "Hiper", recs[0].Extra["type"].String())
	assert.InDelta(t, 40.4001, recs[0].Latitude, 1e-9)

	assert.Equal(t, model.ChainOBA, recs[1].Chain)
	assert.False(t, recs[1].Phone.Collected())
	assert.True(t, recs[1].Address.Empty())
	assert.False(t, recs[1].Extra["type"].Collected())
	assert.Equal(t, model.FormatMapLink, recs[1].SourceFormat)
}

func TestRecords_BadInput(t *testing.T) {
	t.Parallel()

	bad := &Table{Columns: model.CoreColumns(), Rows: [][]string{{"MEGA", "", "", "", "", "", "40", "49", ""}}}
	_, err := bad.Records(marker)
	assert.ErrorContains(t, err, "unknown chain")

	bad.Rows[0][0] = "OBA"
	bad.Rows[0][6] = "north"
	_, err = bad.Records(marker)
	assert.ErrorContains(t, err, "latitude")

	_, err = (&Table{Columns: []string{"name"}}).Records(marker)
	assert.ErrorContains(t, err, "no latitude")
}

func TestCSV_RoundTripAndErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tbl := &Table{
		Chain:   model.ChainRahat,
		Columns: []string{"name", "address"},
		Rows:    [][]string{{"Rahat Market", "Nizami küç., \"Port Baku\""}},
	}
	path := filepath.Join(dir, "nested", "rahat.csv")
	require.NoError(t, WriteCSV(path, tbl))

	got, err := ReadCSV(context.Background(), path, model.ChainRahat)
	require.NoError(t, err)
	assert.Equal(t, tbl, got)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ReadCSV(context.Background(), empty, "")
	assert.ErrorContains(t, err, "is empty")

	_, err = ReadCSV(context.Background(), filepath.Join(dir, "nope.csv"), "")
	require.Error(t, err)

	assert.Error(t, WriteCSV(path, &Table{Columns: []string{"a", "a"}}))
}
