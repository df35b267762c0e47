package output

import (
	"fmt"
	"io"
)

// Print writes a document to w in the specified format
func Print(w io.Writer, result any, format string) error {
	out, err := FormatSingle(format, result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	fmt.Fprint(w, string(out))
	return nil
}

// PrintTables writes tables to w in the specified format
func PrintTables(w io.Writer, tables []Table, format string) error {
	out, err := FormatTables(format, tables)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	fmt.Fprint(w, string(out))
	return nil
}
