package dataset

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/model"
)

// WriteCSV writes t to path with a header row. The file is written to a
// temporary name and renamed, so readers never see a partial table.
func WriteCSV(path string, t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir for %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "dataset: create temp file for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "dataset: write header")
	}
	if err := w.WriteAll(t.Rows); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "dataset: write rows")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "dataset: close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "dataset: rename to %s", path)
	}
	return nil
}

// ReadCSV loads a table written by WriteCSV. chain labels the table and may
// be empty for the merged table.
func ReadCSV(ctx context.Context, path string, chain model.Chain) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rows, err := fetcher.CollectCSV(ctx, f, fetcher.CSVOptions{HasHeader: true, HeaderCh: headerCh})
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	t := &Table{Chain: chain, Rows: rows}
	select {
	case t.Columns = <-headerCh:
	default:
		return nil, eris.Errorf("dataset: %s is empty", path)
	}
	if err := t.Validate(); err != nil {
		return nil, eris.Wrapf(err, "dataset: %s", path)
	}
	return t, nil
}

// SourcePath is where the per-chain table for c lives inside dir.
func SourcePath(dir string, c model.Chain) string {
	return filepath.Join(dir, c.Slug()+".csv")
}
