package service

import (
	"errors"
	"fmt"
)

// ErrInvalidEdit is returned when an edit does not fit the grid it is applied to
var ErrInvalidEdit = errors.New("invalid edit")

// EditKind names one kind of grid change
type EditKind string

const (
	EditInsertRow    EditKind = "insert_row"
	EditDeleteRow    EditKind = "delete_row"
	EditInsertColumn EditKind = "insert_column"
	EditDeleteColumn EditKind = "delete_column"
	EditSetCell      EditKind = "set_cell"
	EditReplaceRows  EditKind = "replace_rows"
)

// Edit is one change to a sheet grid. Indexes refer to the grid as left by the edits
// recorded before it.
//
// EditReplaceRows swaps the first Row rows for Rows; a negative Row replaces the whole grid.
type Edit struct {
	Kind   EditKind   `json:"kind" yaml:"kind"`
	Row    int        `json:"row,omitempty" yaml:"row,omitempty"`
	Column int        `json:"column,omitempty" yaml:"column,omitempty"`
	Value  string     `json:"value,omitempty" yaml:"value,omitempty"`
	Cells  []string   `json:"cells,omitempty" yaml:"cells,omitempty"`
	Rows   [][]string `json:"rows,omitempty" yaml:"rows,omitempty"`
}

// CommitRequest is what a sheet is processed with: the header row and the edits made to
// its preview, in order
type CommitRequest struct {
	HeaderRow int    `json:"header_row" yaml:"header_row"`
	Edits     []Edit `json:"edits,omitempty" yaml:"edits,omitempty"`
}

// Apply changes grid in place and returns it. Rows are reallocated as needed, so callers
// that share grid must pass a copy.
func (e Edit) Apply(grid [][]string) ([][]string, error) {
	switch e.Kind {
	case EditInsertRow:
		if e.Row < 0 || e.Row > len(grid) {
			return nil, fmt.Errorf("%w: insert row %d into %d rows", ErrInvalidEdit, e.Row, len(grid))
		}
		grid = append(grid, nil)
		copy(grid[e.Row+1:], grid[e.Row:])
		grid[e.Row] = append([]string{}, e.Cells...)

	case EditDeleteRow:
		if e.Row < 0 || e.Row >= len(grid) {
			return nil, fmt.Errorf("%w: delete row %d of %d", ErrInvalidEdit, e.Row, len(grid))
		}
		grid = append(grid[:e.Row], grid[e.Row+1:]...)

	case EditInsertColumn:
		if e.Column < 0 {
			return nil, fmt.Errorf("%w: insert column %d", ErrInvalidEdit, e.Column)
		}
		for i, row := range grid {
			for len(row) < e.Column {
				row = append(row, "")
			}
			row = append(row, "")
			copy(row[e.Column+1:], row[e.Column:])
			row[e.Column] = e.Value
			grid[i] = row
		}

	case EditDeleteColumn:
		if e.Column < 0 {
			return nil, fmt.Errorf("%w: delete column %d", ErrInvalidEdit, e.Column)
		}
		for i, row := range grid {
			if e.Column < len(row) {
				grid[i] = append(row[:e.Column], row[e.Column+1:]...)
			}
		}

	case EditSetCell:
		if e.Row < 0 || e.Row >= len(grid) || e.Column < 0 {
			return nil, fmt.Errorf("%w: cell (%d, %d) of %d rows", ErrInvalidEdit, e.Row, e.Column, len(grid))
		}
		row := grid[e.Row]
		for len(row) <= e.Column {
			row = append(row, "")
		}
		row[e.Column] = e.Value
		grid[e.Row] = row

	case EditReplaceRows:
		n := len(grid)
		if e.Row >= 0 {
			n = min(e.Row, len(grid))
		}
		out := make([][]string, 0, len(e.Rows)+len(grid)-n)
		for _, row := range e.Rows {
			out = append(out, append([]string{}, row...))
		}
		grid = append(out, grid[n:]...)

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEdit, e.Kind)
	}
	return grid, nil
}

// ApplyEdits returns a copy of grid with edits applied in order. grid itself is not modified.
func ApplyEdits(grid [][]string, edits []Edit) ([][]string, error) {
	out := make([][]string, len(grid))
	for i, row := range grid {
		out[i] = append([]string{}, row...)
	}
	for i, e := range edits {
		var err error
		if out, err = e.Apply(out); err != nil {
			return nil, fmt.Errorf("edit %d: %w", i+1, err)
		}
	}
	return out, nil
}
