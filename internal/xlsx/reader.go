package xlsx

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadFile loads a workbook from disk into memory, refusing files over maxSize bytes.
// A maxSize of 0 disables the check.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFormat, path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d bytes",
			ErrFileTooLarge, path, info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// OpenBytes opens a workbook held in memory and returns the excelize handle
func OpenBytes(data []byte) (*excelize.File, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFormat)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return f, nil
}

// GetSheets returns a list of all sheet names in the workbook, in tab order
func GetSheets(f *excelize.File) ([]string, error) {
	if f == nil {
		return nil, fmt.Errorf("file handle is nil")
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	return sheets, nil
}

// ResolveSheetName returns the actual sheet name (with correct casing) or the first sheet
// when sheet is empty
func ResolveSheetName(f *excelize.File, sheet string) (string, error) {
	sheets, err := GetSheets(f)
	if err != nil {
		return "", err
	}
	if sheet == "" {
		return sheets[0], nil
	}

	for _, s := range sheets {
		if s == sheet {
			return s, nil
		}
	}
	for _, s := range sheets {
		if strings.EqualFold(s, sheet) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
}
