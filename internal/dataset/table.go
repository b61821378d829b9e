// Package dataset holds store tables: the per-chain tables written by the
// scrapers and the merged table the analysis reads.
package dataset

import (
	"slices"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/model"
)

// Table is a rectangular set of string cells with named columns.
type Table struct {
	Chain   model.Chain // empty for the merged table
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	return slices.Index(t.Columns, col)
}

// Validate checks that every row has one cell per column and that column
// names are unique.
func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return eris.Errorf("dataset: duplicate column %q", c)
		}
		seen[c] = true
	}
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return eris.Errorf("dataset: row %d has %d cells, want %d", i+1, len(r), len(t.Columns))
		}
	}
	return nil
}

// SourceColumns returns the column order of a per-chain table: the core
// columns the chain collects followed by its extra columns.
func SourceColumns(collected []string, extras []string) []string {
	has := make(map[string]bool, len(collected))
	for _, c := range collected {
		has[c] = true
	}
	var cols []string
	for _, c := range model.CoreColumns() {
		switch c {
		case model.ColName, model.ColAddress, model.ColPhone, model.ColHours:
			if !has[c] {
				continue
			}
		}
		cols = append(cols, c)
	}
	return append(cols, extras...)
}

// FromRecords renders stored records as a per-chain table. Records are
// written in extraction order.
func FromRecords(chain model.Chain, columns []string, records []model.StoreRecord) *Table {
	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	t := &Table{Chain: chain, Columns: slices.Clone(columns)}
	for _, r := range sorted {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellOf(r, col)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func cellOf(r model.StoreRecord, col string) string {
	switch col {
	case model.ColChain:
		return string(r.Chain)
	case model.ColCity:
		return r.City
	case model.ColLatitude:
		return formatCoord(r.Latitude)
	case model.ColLongitude:
		return formatCoord(r.Longitude)
	case model.ColSourceFormat:
		return string(r.SourceFormat)
	default:
		// the column belongs to this chain, so a missing value is blank
		return r.FieldByColumn(col).String()
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Records parses a table back into store records. Cells equal to marker
// become not-collected fields. Rows with unparseable coordinates are an error.
func (t *Table) Records(marker string) ([]model.StoreRecord, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	idx := func(col string) int { return t.Index(col) }
	latI, lonI := idx(model.ColLatitude), idx(model.ColLongitude)
	if latI < 0 || lonI < 0 {
		return nil, eris.New("dataset: table has no latitude/longitude columns")
	}
	chainI, cityI, fmtI := idx(model.ColChain), idx(model.ColCity), idx(model.ColSourceFormat)

	out := make([]model.StoreRecord, 0, len(t.Rows))
	for n, row := range t.Rows {
		r := model.StoreRecord{
			Chain: t.Chain,
			Seq:   n,
			Extra: map[string]model.Field{},
		}
		if chainI >= 0 {
			c, err := model.ParseChain(row[chainI])
			if err != nil {
				return nil, eris.Wrapf(err, "dataset: row %d", n+1)
			}
			r.Chain = c
		}
		var err error
		if r.Latitude, err = strconv.ParseFloat(row[latI], 64); err != nil {
			return nil, eris.Wrapf(err, "dataset: row %d latitude", n+1)
		}
		if r.Longitude, err = strconv.ParseFloat(row[lonI], 64); err != nil {
			return nil, eris.Wrapf(err, "dataset: row %d longitude", n+1)
		}
		if cityI >= 0 && row[cityI] != marker {
			r.City = row[cityI]
		}
		if fmtI >= 0 && row[fmtI] != marker {
			r.SourceFormat = model.SourceFormat(row[fmtI])
		}

		for i, col := range t.Columns {
			f := model.ParseCell(row[i], marker)
			switch col {
			case model.ColChain, model.ColCity, model.ColLatitude, model.ColLongitude, model.ColSourceFormat:
			case model.ColName:
				r.Name = f
			case model.ColAddress:
				r.Address = f
			case model.ColPhone:
				r.Phone = f
			case model.ColHours:
				r.Hours = f
			default:
				r.Extra[col] = f
			}
		}
		out = append(out, r)
	}
	return out, nil
}
