package analysis

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/azretail/chainscan/internal/model"
)

// WorkbookFile is the summary workbook's file name inside the reports dir.
const WorkbookFile = "summary.xlsx"

// Sheet names in the summary workbook.
const (
	SheetChains       = "Chains"
	SheetCities       = "Cities"
	SheetCompleteness = "Completeness"
	SheetStores       = "Stores"
)

func renderWorkbook(_ context.Context, m *Market, o Options) (string, string, error) {
	path := filepath.Join(o.ReportsDir, WorkbookFile)
	if err := WriteWorkbook(path, m); err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%d chains, %d cities, %d stores", len(m.Chains), len(m.Cities), len(m.Records)), path, nil
}

// WriteWorkbook saves chain, city, completeness and store sheets to path.
func WriteWorkbook(path string, m *Market) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SheetChains)
	if err != nil {
		return eris.Wrap(err, "analysis: add chains sheet")
	}
	header(sheet, "Chain", "Stores", "Share %", "Cities", "Stores per city")
	for _, cs := range m.Chains {
		row := sheet.AddRow()
		row.AddCell().SetString(string(cs.Chain))
		row.AddCell().SetInt(cs.Stores)
		row.AddCell().SetFloat(cs.Share)
		row.AddCell().SetInt(cs.Cities)
		row.AddCell().SetFloat(round1(cs.StoresPerCity))
	}

	sheet, err = f.AddSheet(SheetCities)
	if err != nil {
		return eris.Wrap(err, "analysis: add cities sheet")
	}
	header(sheet, "City", "Stores", "Chains", "Dominant", "Dominant share %", "HHI",
		"Intensity", "Opportunity", "Population (k)", "Stores per 10k")
	for _, c := range m.Cities {
		row := sheet.AddRow()
		row.AddCell().SetString(c.City)
		row.AddCell().SetInt(c.Stores)
		row.AddCell().SetInt(c.Chains)
		row.AddCell().SetString(string(c.Dominant))
		row.AddCell().SetFloat(round1(c.DominantShare))
		row.AddCell().SetInt(c.HHI)
		row.AddCell().SetFloat(round1(c.Intensity()))
		row.AddCell().SetFloat(c.Opportunity())
		row.AddCell().SetFloat(c.Population)
		row.AddCell().SetFloat(round1(c.PerTenThousand()))
	}

	sheet, err = f.AddSheet(SheetCompleteness)
	if err != nil {
		return eris.Wrap(err, "analysis: add completeness sheet")
	}
	header(sheet, "Chain", "Column", "Collected %", "Filled %")
	for _, cs := range m.Chains {
		for _, col := range m.Optional {
			c := cs.Completeness[col]
			row := sheet.AddRow()
			row.AddCell().SetString(string(cs.Chain))
			row.AddCell().SetString(col)
			row.AddCell().SetFloat(c.Collected)
			row.AddCell().SetFloat(c.Filled)
		}
	}

	sheet, err = f.AddSheet(SheetStores)
	if err != nil {
		return eris.Wrap(err, "analysis: add stores sheet")
	}
	header(sheet, m.Columns...)
	for _, r := range m.Records {
		row := sheet.AddRow()
		for _, col := range m.Columns {
			switch col {
			case model.ColLatitude:
				row.AddCell().SetFloat(r.Latitude)
			case model.ColLongitude:
				row.AddCell().SetFloat(r.Longitude)
			default:
				row.AddCell().SetString(storeCell(r, col))
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "analysis: save %s", path)
	}
	return nil
}

func header(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, n := range names {
		cell := row.AddCell()
		cell.SetString(n)
		cell.GetStyle().Font.Bold = true
	}
}

// storeCell renders a text column. Not-collected fields are left blank.
func storeCell(r model.StoreRecord, col string) string {
	switch col {
	case model.ColChain:
		return string(r.Chain)
	case model.ColCity:
		return r.City
	case model.ColSourceFormat:
		return string(r.SourceFormat)
	default:
		return r.FieldByColumn(col).String()
	}
}
