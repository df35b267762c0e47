package mcp

const (
	// MaxOutputBytes is the maximum size of JSON output (5MB)
	MaxOutputBytes = 5 * 1024 * 1024

	// MaxRowValues is the maximum number of cells accepted for one inserted row
	MaxRowValues = 1000

	// MaxCellLength is the maximum length of a single edited cell value
	MaxCellLength = 32767
)
