package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fuabioo/xlreport/internal/xlsx"
)

// Summarize describes a table: its size, then one line per column with either numeric
// statistics or the count of text values.
func Summarize(table *xlsx.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rows x %d columns", len(table.Rows), len(table.Columns))

	for col, name := range table.Columns {
		var (
			count, numeric int
			sum            float64
			lo, hi         float64
		)
		for _, row := range table.Rows {
			v := strings.TrimSpace(row[col])
			if v == "" {
				continue
			}
			count++
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			if numeric == 0 || n < lo {
				lo = n
			}
			if numeric == 0 || n > hi {
				hi = n
			}
			numeric++
			sum += n
		}

		b.WriteString("\n")
		switch {
		case count == 0:
			fmt.Fprintf(&b, "%s: empty", name)
		case numeric == count:
			fmt.Fprintf(&b, "%s: %d numeric values, mean %s, min %s, max %s",
				name, count, formatNumber(sum/float64(numeric)), formatNumber(lo), formatNumber(hi))
		default:
			fmt.Fprintf(&b, "%s: %d values", name, count)
		}
	}
	return b.String()
}

// ChartSeries pairs the first column (label) with the second (value).
// Rows without a label or with a non-numeric value are dropped.
func ChartSeries(table *xlsx.Table) []ChartPoint {
	if len(table.Columns) < 2 {
		return []ChartPoint{}
	}

	points := make([]ChartPoint, 0, len(table.Rows))
	for _, row := range table.Rows {
		label := strings.TrimSpace(row[0])
		if label == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			continue
		}
		points = append(points, ChartPoint{Label: label, Value: v})
	}
	return points
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
