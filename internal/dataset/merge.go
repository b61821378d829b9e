package dataset

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/model"
)

// MissingSourceError reports per-chain tables that merge needs but cannot find.
type MissingSourceError struct {
	Chains []model.Chain
}

func (e *MissingSourceError) Error() string {
	names := make([]string, len(e.Chains))
	for i, c := range e.Chains {
		names[i] = string(c)
	}
	return "dataset: missing source table for " + strings.Join(names, ", ")
}

// LoadSources reads the per-chain tables for every chain in order from dir.
// Missing files are collected into a single MissingSourceError.
func LoadSources(ctx context.Context, dir string, order []model.Chain) (map[model.Chain]*Table, error) {
	tables := make(map[model.Chain]*Table, len(order))
	var missing []model.Chain
	for _, c := range order {
		path := SourcePath(dir, c)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, c)
			continue
		}
		t, err := ReadCSV(ctx, path, c)
		if err != nil {
			return nil, err
		}
		tables[c] = t
	}
	if len(missing) > 0 {
		return nil, &MissingSourceError{Chains: missing}
	}
	return tables, nil
}

// Merge unions per-chain tables into one table. The column order is the
// core columns followed by extra columns in order of first appearance across
// chains in priority order. Rows follow chain priority, then each table's own
// row order. Cells for columns a chain never collects hold marker. Merge
// never mutates its inputs.
func Merge(tables map[model.Chain]*Table, order []model.Chain, marker string) (*Table, error) {
	var missing []model.Chain
	for _, c := range order {
		if tables[c] == nil {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingSourceError{Chains: missing}
	}

	columns := model.CoreColumns()
	for _, c := range order {
		for _, col := range tables[c].Columns {
			if !slices.Contains(columns, col) {
				columns = append(columns, col)
			}
		}
	}

	merged := &Table{Columns: columns}
	for _, c := range order {
		t := tables[c]
		if err := t.Validate(); err != nil {
			return nil, eris.Wrapf(err, "dataset: %s table", c)
		}
		src := make([]int, len(columns))
		for i, col := range columns {
			src[i] = t.Index(col)
		}
		for _, row := range t.Rows {
			out := make([]string, len(columns))
			for i, j := range src {
				switch {
				case columns[i] == model.ColChain:
					out[i] = string(c)
				case j < 0:
					out[i] = marker
				default:
					out[i] = row[j]
				}
			}
			merged.Rows = append(merged.Rows, out)
		}
	}
	return merged, nil
}
