package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEdits(t *testing.T) {
	base := [][]string{{"a", "b"}, {"c"}, {"d", "e"}}

	tests := []struct {
		name  string
		edits []Edit
		want  [][]string
	}{
		{"insert row", []Edit{{Kind: EditInsertRow, Row: 1, Cells: []string{"x"}}}, [][]string{{"a", "b"}, {"x"}, {"c"}, {"d", "e"}}},
		{"append row", []Edit{{Kind: EditInsertRow, Row: 3}}, [][]string{{"a", "b"}, {"c"}, {"d", "e"}, {}}},
		{"delete row", []Edit{{Kind: EditDeleteRow, Row: 0}}, [][]string{{"c"}, {"d", "e"}}},
		{"insert column pads", []Edit{{Kind: EditInsertColumn, Column: 2, Value: "z"}}, [][]string{{"a", "b", "z"}, {"c", "", "z"}, {"d", "e", "z"}}},
		{"delete column", []Edit{{Kind: EditDeleteColumn, Column: 1}}, [][]string{{"a"}, {"c"}, {"d"}}},
		{"set cell pads", []Edit{{Kind: EditSetCell, Row: 1, Column: 2, Value: "v"}}, [][]string{{"a", "b"}, {"c", "", "v"}, {"d", "e"}}},
		{"replace prefix", []Edit{{Kind: EditReplaceRows, Row: 2, Rows: [][]string{{"h"}}}}, [][]string{{"h"}, {"d", "e"}}},
		{"replace all", []Edit{{Kind: EditReplaceRows, Row: -1, Rows: [][]string{{"h"}, {"1"}}}}, [][]string{{"h"}, {"1"}}},
		{
			"edits apply in order",
			[]Edit{{Kind: EditDeleteRow, Row: 0}, {Kind: EditSetCell, Row: 0, Column: 0, Value: "C"}},
			[][]string{{"C"}, {"d", "e"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyEdits(base, tt.edits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, [][]string{{"a", "b"}, {"c"}, {"d", "e"}}, base, "input grid is not modified")
		})
	}
}

func TestApplyEditsRejectsOutOfRange(t *testing.T) {
	grid := [][]string{{"a"}}

	for _, e := range []Edit{
		{Kind: EditInsertRow, Row: 2},
		{Kind: EditDeleteRow, Row: 1},
		{Kind: EditInsertColumn, Column: -1},
		{Kind: EditDeleteColumn, Column: -1},
		{Kind: EditSetCell, Row: 1},
		{Kind: "rename"},
	} {
		_, err := ApplyEdits(grid, []Edit{e})
		assert.ErrorIs(t, err, ErrInvalidEdit, "%+v", e)
	}
}
