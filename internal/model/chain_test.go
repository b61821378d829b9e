package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainsPriorityOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Chain{ChainBravo, ChainAraz, ChainRahat, ChainOBA, ChainTam}, Chains())
	for i, c := range Chains() {
		assert.Equal(t, i, c.Priority())
	}
	assert.Equal(t, -1, Chain("MEGA").Priority())
}

func TestParseChain(t *testing.T) {
	t.Parallel()

	c, err := ParseChain(" oba ")
	require.NoError(t, err)
	assert.Equal(t, ChainOBA, c)
	assert.Equal(t, "oba", c.Slug())

	_, err = ParseChain("mega")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chain")
}

func TestStoreRecordFieldByColumn(t *testing.T) {
	t.Parallel()

	r := StoreRecord{
		Name:  Value("Bravo Gənclik"),
		Phone: NotCollected(),
		Extra: map[string]Field{"type": Value("Hiper")},
	}
	assert.Equal(t, "Bravo Gənclik", r.FieldByColumn(ColName).String())
	assert.False(t, r.FieldByColumn(ColPhone).Collected())
	assert.Equal(t, "Hiper", r.FieldByColumn("type").String())
	assert.False(t, r.FieldByColumn("category_id").Collected())
}

func TestSourceSummaryPassRate(t *testing.T) {
	t.Parallel()

	assert.Zero(t, SourceSummary{}.PassRate())
	assert.InDelta(t, 75.0, SourceSummary{Extracted: 4, Stored: 3}.PassRate(), 0.001)
}
