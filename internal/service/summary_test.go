package service

import (
	"testing"

	"github.com/fuabioo/xlreport/internal/xlsx"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	table := &xlsx.Table{
		Columns: []string{"Region", "Units", "Notes"},
		Rows: [][]string{
			{"North", "10", ""},
			{"South", "-2.5", ""},
			{"East", "n/a", ""},
		},
	}

	got := Summarize(table)

	assert.Equal(t, "3 rows x 3 columns\n"+
		"Region: 3 values\n"+
		"Units: 3 values\n"+
		"Notes: empty", got)
}

func TestSummarizeNumeric(t *testing.T) {
	table := &xlsx.Table{
		Columns: []string{"Units"},
		Rows:    [][]string{{"10"}, {"-2.5"}, {" 4 "}},
	}

	assert.Equal(t, "3 rows x 1 columns\nUnits: 3 numeric values, mean 3.8333333333333335, min -2.5, max 10",
		Summarize(table))
}

func TestChartSeries(t *testing.T) {
	table := &xlsx.Table{
		Columns: []string{"Region", "Units"},
		Rows: [][]string{
			{"North", "10"},
			{"", "4"},
			{"South", "lots"},
			{"East", " 3.5 "},
		},
	}

	assert.Equal(t, []ChartPoint{
		{Label: "North", Value: 10},
		{Label: "East", Value: 3.5},
	}, ChartSeries(table))

	assert.Empty(t, ChartSeries(&xlsx.Table{Columns: []string{"only"}}))
}
