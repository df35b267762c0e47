package xlsx

import "fmt"

// Table is a worksheet interpreted with a chosen header row
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// BuildTable interprets grid using the 0-based headerRow as column names.
//
// Rows above the header are dropped, blank rows below it are skipped and every data row is
// padded or clipped to the column count. Blank header cells are named after their column
// letter ("Column C").
func BuildTable(grid [][]string, headerRow int) (*Table, error) {
	if headerRow < 0 || headerRow >= len(grid) {
		return nil, fmt.Errorf("%w: row %d of %d", ErrInvalidHeaderRow, headerRow, len(grid))
	}

	data := grid[headerRow+1:]
	width := len(grid[headerRow])
	for _, row := range data {
		width = max(width, len(row))
	}

	columns := make([]string, width)
	for i := range columns {
		if i < len(grid[headerRow]) && !isBlank(grid[headerRow][i]) {
			columns[i] = grid[headerRow][i]
		} else {
			columns[i] = "Column " + ColumnNumberToName(i+1)
		}
	}

	rows := make([][]string, 0, len(data))
	for _, row := range data {
		if blankRow(row) {
			continue
		}
		rows = append(rows, FitRow(row, width))
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// FitRow returns a copy of row padded with empty cells or clipped to width
func FitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func blankRow(row []string) bool {
	for _, v := range row {
		if !isBlank(v) {
			return false
		}
	}
	return true
}
