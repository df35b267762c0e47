package service

import (
	"context"
	"fmt"

	"github.com/fuabioo/xlreport/internal/cache"
	"github.com/fuabioo/xlreport/internal/ctxlog"
	"github.com/fuabioo/xlreport/internal/xlsx"
)

const (
	defaultPreviewRows  = 20
	defaultCacheEntries = 32
)

type gridKey struct {
	digest string
	sheet  string
}

// Local is an in-process spreadsheet service backed by excelize.
// Full sheet grids are cached per (file digest, sheet) so that previews and commits of the
// same import parse each sheet once.
type Local struct {
	previewRows int
	grids       *cache.LRU[gridKey, [][]string]
}

// Option configures a Local service
type Option func(*Local)

// WithPreviewRows sets how many rows a preview returns
func WithPreviewRows(n int) Option {
	return func(l *Local) {
		if n > 0 {
			l.previewRows = n
		}
	}
}

// WithCacheEntries sets how many parsed sheets are kept
func WithCacheEntries(n int) Option {
	return func(l *Local) {
		l.grids = cache.New[gridKey, [][]string](n)
	}
}

// NewLocal creates a Local service
func NewLocal(opts ...Option) *Local {
	l := &Local{
		previewRows: defaultPreviewRows,
		grids:       cache.New[gridKey, [][]string](defaultCacheEntries),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PreviewRows returns the configured preview size
func (l *Local) PreviewRows() int {
	return l.previewRows
}

// Discover lists the sheets of a workbook. A single-sheet workbook is previewed and
// processed with its suggested header row right away.
func (l *Local) Discover(ctx context.Context, file *File) (*Discovery, error) {
	f, err := xlsx.OpenBytes(file.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer f.Close()

	sheets, err := xlsx.GetSheets(f)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets of %s: %w", file.Name, err)
	}

	ctxlog.FromContext(ctx).Debug("workbook discovered", "file", file.Name, "sheets", len(sheets))

	if len(sheets) > 1 {
		return &Discovery{SheetNames: sheets}, nil
	}

	grid, err := l.loadGrid(ctx, file, sheets[0], func() ([][]string, error) {
		return xlsx.ReadRows(ctx, f, sheets[0], 0)
	})
	if err != nil {
		return nil, err
	}

	preview := l.preview(grid)
	var processed *Processed
	if len(grid) == 0 {
		processed = &Processed{Columns: []string{}, Rows: [][]string{}, Summary: Summarize(&xlsx.Table{})}
	} else {
		header := 0
		if preview.SuggestedHeaderRow != nil {
			header = *preview.SuggestedHeaderRow
		}
		processed, err = process(grid, header)
		if err != nil {
			return nil, err
		}
	}
	return &Discovery{SheetName: sheets[0], Single: processed, Preview: preview}, nil
}

// PreviewSheet returns the first rows of a sheet with a header-row suggestion
func (l *Local) PreviewSheet(ctx context.Context, file *File, sheet string) (*Preview, error) {
	grid, err := l.grid(ctx, file, sheet)
	if err != nil {
		return nil, err
	}
	return l.preview(grid), nil
}

func (l *Local) preview(grid [][]string) *Preview {
	n := min(len(grid), l.previewRows)
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = append([]string{}, grid[i]...)
	}

	preview := &Preview{Rows: rows}
	if idx, ok := xlsx.SuggestHeaderRow(rows); ok {
		preview.SuggestedHeaderRow = &idx
	}
	return preview
}

// CommitSheet processes the whole sheet. The request's edits are replayed over the full
// grid first, so its header row indexes the same rows the edited preview showed.
func (l *Local) CommitSheet(ctx context.Context, file *File, sheet string, req CommitRequest) (*Processed, error) {
	grid, err := l.grid(ctx, file, sheet)
	if err != nil {
		return nil, err
	}
	if len(req.Edits) > 0 {
		if grid, err = ApplyEdits(grid, req.Edits); err != nil {
			return nil, fmt.Errorf("failed to apply edits to %s: %w", sheet, err)
		}
		ctxlog.FromContext(ctx).Debug("edits applied", "file", file.Name, "sheet", sheet, "edits", len(req.Edits))
	}
	return process(grid, req.HeaderRow)
}

func (l *Local) grid(ctx context.Context, file *File, sheet string) ([][]string, error) {
	return l.loadGrid(ctx, file, sheet, func() ([][]string, error) {
		f, err := xlsx.OpenBytes(file.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
		}
		defer f.Close()

		resolved, err := xlsx.ResolveSheetName(f, sheet)
		if err != nil {
			return nil, err
		}
		return xlsx.ReadRows(ctx, f, resolved, 0)
	})
}

// loadGrid returns the cached grid for (file, sheet) or loads and caches it
func (l *Local) loadGrid(ctx context.Context, file *File, sheet string, load func() ([][]string, error)) ([][]string, error) {
	key := gridKey{digest: file.Digest(), sheet: sheet}
	if grid, ok := l.grids.Get(key); ok {
		ctxlog.FromContext(ctx).Debug("sheet cache hit", "file", file.Name, "sheet", sheet)
		return grid, nil
	}

	grid, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheet, file.Name, err)
	}
	l.grids.Set(key, grid)
	return grid, nil
}

func process(grid [][]string, headerRow int) (*Processed, error) {
	table, err := xlsx.BuildTable(grid, headerRow)
	if err != nil {
		return nil, err
	}
	return &Processed{
		Columns: table.Columns,
		Rows:    table.Rows,
		Summary: Summarize(table),
		Chart:   ChartSeries(table),
	}, nil
}
