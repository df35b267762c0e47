package xlsx

import (
	"strconv"
	"strings"
)

// rowShape counts filled and text cells of one row
type rowShape struct {
	filled int
	text   int
}

func shapeOf(row []string) rowShape {
	var s rowShape
	for _, v := range row {
		if isBlank(v) {
			continue
		}
		s.filled++
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			s.text++
		}
	}
	return s
}

// SuggestHeaderRow guesses which 0-based row of a preview holds the column headers.
//
// The first row that is almost as wide as the widest row, holds only text and has data
// below it wins. Title rows and notes above a table are skipped that way. Otherwise the
// first widest row is used. The second result is false when the preview has no filled cell.
func SuggestHeaderRow(rows [][]string) (int, bool) {
	shapes := make([]rowShape, len(rows))
	widest := 0
	for i, row := range rows {
		shapes[i] = shapeOf(row)
		widest = max(widest, shapes[i].filled)
	}
	if widest == 0 {
		return 0, false
	}

	// 80% of the widest row, rounded up
	threshold := (widest*4 + 4) / 5

	lastFilled := -1
	for i, s := range shapes {
		if s.filled > 0 {
			lastFilled = i
		}
	}

	for i, s := range shapes {
		if s.filled >= threshold && s.text == s.filled && i < lastFilled {
			return i, true
		}
	}
	for i, s := range shapes {
		if s.filled == widest {
			return i, true
		}
	}
	return 0, true
}
