// Package service implements the spreadsheet service the ingestion orchestrator talks to:
// sheet discovery, bounded previews with a header-row suggestion, and processing a sheet
// into columns, rows, a summary and a chart series.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// File is an uploaded workbook. Data is shared read-only by every request of an import.
type File struct {
	Name string
	Data []byte

	digestOnce sync.Once
	digest     string
}

// NewFile wraps workbook bytes under their display name
func NewFile(name string, data []byte) *File {
	return &File{Name: name, Data: data}
}

// Digest returns the hex SHA-256 of the file contents
func (f *File) Digest() string {
	f.digestOnce.Do(func() {
		sum := sha256.Sum256(f.Data)
		f.digest = hex.EncodeToString(sum[:])
	})
	return f.digest
}

// ChartPoint is one bar of a report chart
type ChartPoint struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// Processed is a sheet interpreted with a header row
type Processed struct {
	Columns []string     `json:"columns" yaml:"columns"`
	Rows    [][]string   `json:"rows" yaml:"rows"`
	Summary string       `json:"summary" yaml:"summary"`
	Chart   []ChartPoint `json:"chart_data" yaml:"chart_data"`
}

// Preview is the top of a sheet with the service's header-row guess.
// SuggestedHeaderRow is nil when no guess could be made.
type Preview struct {
	Rows               [][]string `json:"preview_rows" yaml:"preview_rows"`
	SuggestedHeaderRow *int       `json:"suggested_header_row_index,omitempty" yaml:"suggested_header_row_index,omitempty"`
}

// Discovery describes a workbook's sheets.
// A one-sheet workbook comes back processed in Single (with its name in SheetName) and,
// when the service can provide it, the raw head of the sheet in Preview. Otherwise
// SheetNames lists every sheet in tab order.
type Discovery struct {
	SheetName  string     `json:"sheet_name,omitempty" yaml:"sheet_name,omitempty"`
	Single     *Processed `json:"single_sheet,omitempty" yaml:"single_sheet,omitempty"`
	Preview    *Preview   `json:"preview,omitempty" yaml:"preview,omitempty"`
	SheetNames []string   `json:"sheet_names,omitempty" yaml:"sheet_names,omitempty"`
}
