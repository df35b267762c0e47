package xlsx

import (
	"errors"
	"strings"
)

// Error types
var (
	ErrSheetNotFound    = errors.New("sheet not found")
	ErrFileNotFound     = errors.New("file not found")
	ErrInvalidFormat    = errors.New("invalid xlsx format")
	ErrEmptyWorkbook    = errors.New("no sheets found in workbook")
	ErrFileTooLarge     = errors.New("file exceeds size limit")
	ErrFileExists       = errors.New("file already exists")
	ErrInvalidHeaderRow = errors.New("header row outside sheet")
)

// MaxSheetNameLength is the longest sheet name Excel accepts
const MaxSheetNameLength = 31

// Row is one worksheet row as raw cell text.
// Number is 1-based like the worksheet; Values is trimmed of trailing blanks.
type Row struct {
	Number int      `json:"row"`
	Values []string `json:"values"`
}

// ColumnNumberToName converts a 1-based column number to a column name
func ColumnNumberToName(col int) string {
	name := ""
	for col > 0 {
		col-- // Adjust for 1-based
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

// isBlank reports whether a cell holds only whitespace
func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}
