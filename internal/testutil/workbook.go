// Package testutil builds workbook fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet fixture
type Sheet struct {
	Name string
	Rows [][]any
}

// Workbook builds an xlsx workbook in memory with the sheets in tab order
func Workbook(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				t.Fatalf("failed to rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("failed to create sheet %s: %v", sheet.Name, err)
		}

		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			values := row
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				t.Fatalf("failed to set row %d of %s: %v", r+1, sheet.Name, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	return buf.Bytes()
}

// WriteWorkbook saves a workbook fixture as dir/name and returns its path
func WriteWorkbook(t testing.TB, dir, name string, sheets ...Sheet) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Workbook(t, sheets...), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Q1Sheets is a two-sheet sales workbook. Jan starts with a title row so its header is on
// row 2 (0-based), Feb has its header on row 0.
func Q1Sheets() []Sheet {
	return []Sheet{
		{
			Name: "Jan",
			Rows: [][]any{
				{"Q1 sales report"},
				{"generated nightly"},
				{"Region", "Units", "Revenue"},
				{"North", 10, 1200.5},
				{"South", 7, 830},
			},
		},
		{
			Name: "Feb",
			Rows: [][]any{
				{"Region", "Units"},
				{"East", 3},
				{"West", 5},
			},
		},
	}
}

// DataSheet is a single-sheet workbook with its header on the first row
func DataSheet() Sheet {
	return Sheet{
		Name: "Sheet1",
		Rows: [][]any{
			{"Name", "Age", "City"},
			{"Alice", 30, "New York"},
			{"Bob", 25, "Boston"},
			{"Charlie", 35, "Chicago"},
		},
	}
}
