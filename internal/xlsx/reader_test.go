package xlsx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fuabioo/xlreport/internal/testutil"
)

func salesWorkbook(t *testing.T) []byte {
	return testutil.Workbook(t,
		testutil.Sheet{Name: "Jan", Rows: [][]any{
			{"Q1 sales report"},
			{"Region", "Units", "Revenue"},
			{"North", 10, 1200.5},
			{"South", 7, 830},
		}},
		testutil.Sheet{Name: "Feb", Rows: [][]any{
			{"Region", "Units"},
			{"East", 3},
		}},
	)
}

func TestOpenBytes(t *testing.T) {
	f, err := OpenBytes(salesWorkbook(t))
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	defer f.Close()

	if _, err := OpenBytes(nil); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat for empty input, got %v", err)
	}
	if _, err := OpenBytes([]byte("not a zip archive")); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat for garbage input, got %v", err)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q1.xlsx")
	data := salesWorkbook(t)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFile(path, 0)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != len(data) {
		t.Errorf("ReadFile returned %d bytes, want %d", len(got), len(data))
	}

	if _, err := ReadFile(path, 10); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.xlsx"), 0); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
	if _, err := ReadFile(dir, 0); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat for a directory, got %v", err)
	}
}

func TestGetSheets(t *testing.T) {
	f, err := OpenBytes(salesWorkbook(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets, err := GetSheets(f)
	if err != nil {
		t.Fatalf("GetSheets failed: %v", err)
	}
	if len(sheets) != 2 || sheets[0] != "Jan" || sheets[1] != "Feb" {
		t.Errorf("GetSheets = %v, want [Jan Feb]", sheets)
	}

	if _, err := GetSheets(nil); err == nil {
		t.Error("expected error for nil handle")
	}
}

func TestResolveSheetName(t *testing.T) {
	f, err := OpenBytes(salesWorkbook(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{"", "Jan", nil},
		{"Feb", "Feb", nil},
		{"feb", "Feb", nil},
		{"Mar", "", ErrSheetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ResolveSheetName(f, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ResolveSheetName(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveSheetName(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ResolveSheetName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadRows(t *testing.T) {
	f, err := OpenBytes(salesWorkbook(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx := context.Background()

	all, err := ReadRows(ctx, f, "Jan", 0)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("ReadRows returned %d rows, want 4", len(all))
	}
	if all[1][0] != "Region" || all[2][1] != "10" {
		t.Errorf("unexpected grid contents: %v", all)
	}

	head, err := ReadRows(ctx, f, "Jan", 2)
	if err != nil {
		t.Fatalf("ReadRows with limit failed: %v", err)
	}
	if len(head) != 2 {
		t.Errorf("ReadRows with limit 2 returned %d rows", len(head))
	}

	if _, err := ReadRows(ctx, f, "Nope", 0); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestReadRowsCancelled(t *testing.T) {
	f, err := OpenBytes(salesWorkbook(t))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ReadRows(ctx, f, "Jan", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
