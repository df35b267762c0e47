//go:build ignore

// Writes sample workbooks for trying the CLI by hand:
//
//	go run testdata/create_test_file.go
package main

import (
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"github.com/fuabioo/xlreport/internal/testutil"
)

func main() {
	samples := []struct {
		path   string
		sheets []testutil.Sheet
	}{
		{"testdata/Q1.xlsx", testutil.Q1Sheets()},
		{"testdata/data.xlsx", []testutil.Sheet{testutil.DataSheet()}},
	}

	for _, s := range samples {
		if err := save(s.path, s.sheets); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Created", s.path, "with", len(s.sheets), "sheet(s)")
	}
}

func save(path string, sheets []testutil.Sheet) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Fatal(err)
		}
	}()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}

		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := row
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				return err
			}
		}
	}

	// Set the first sheet as active
	f.SetActiveSheet(0)

	return f.SaveAs(path)
}
