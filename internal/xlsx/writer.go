package xlsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SaveFileAtomic saves the file atomically using temp file + rename.
// This prevents corruption if the process is interrupted.
func SaveFileAtomic(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tmpPath := filepath.Join(dir, filepath.Base(path)+".tmp")

	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file %s: %w", tmpPath, err)
	}

	if err := f.Write(tmpFile); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file %s: %w", tmpPath, err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s to %s: %w", tmpPath, path, err)
	}

	return nil
}

// ExportTable writes a table to a new single-sheet workbook at path.
// Cells that parse as numbers or booleans are written typed, everything else as text.
func ExportTable(path, sheet string, table *Table, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	name := SanitizeSheetName(sheet)
	if name != "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("failed to name sheet %q: %w", name, err)
		}
	}

	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = typedValue(v)
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return SaveFileAtomic(f, path)
}

// SanitizeSheetName strips characters Excel rejects in sheet names and clips the length
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.Trim(name, "'"))
	if runes := []rune(name); len(runes) > MaxSheetNameLength {
		name = string(runes[:MaxSheetNameLength])
	}
	if strings.TrimSpace(name) == "" {
		return "Sheet1"
	}
	return name
}

// typedValue converts cell text to the value excelize should store
func typedValue(v string) any {
	t := strings.TrimSpace(v)
	if t == "" {
		return v
	}
	// keep codes such as "007" as text
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		if strconv.FormatInt(n, 10) != t {
			return v
		}
		return n
	}
	if n, err := strconv.ParseFloat(t, 64); err == nil {
		return n
	}
	switch strings.ToLower(t) {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}
