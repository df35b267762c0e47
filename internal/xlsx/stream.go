package xlsx

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RowResult wraps a row with potential error for channel-based streaming
type RowResult struct {
	Row *Row
	Err error
}

// StreamRows streams rows from the top of a sheet.
// If limit is 0, streams to end of sheet. The channel closes when done or when ctx is
// cancelled.
func StreamRows(ctx context.Context, f *excelize.File, sheet string, limit int) (<-chan RowResult, error) {
	resolvedSheet, err := ResolveSheetName(f, sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.Rows(resolvedSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open row iterator: %w", err)
	}

	ch := make(chan RowResult)

	go func() {
		defer close(ch)
		defer rows.Close()

		send := func(r RowResult) bool {
			select {
			case ch <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		rowNum := 0
		for rows.Next() {
			rowNum++
			if limit > 0 && rowNum > limit {
				return
			}

			cols, err := rows.Columns()
			if err != nil {
				send(RowResult{Err: fmt.Errorf("error reading row %d: %w", rowNum, err)})
				return
			}

			values := make([]string, len(cols))
			copy(values, cols)
			if !send(RowResult{Row: &Row{Number: rowNum, Values: values}}) {
				return
			}
		}

		if err := rows.Error(); err != nil {
			send(RowResult{Err: fmt.Errorf("row iteration error: %w", err)})
		}
	}()

	return ch, nil
}

// CollectRows drains a row channel into a grid
func CollectRows(ctx context.Context, ch <-chan RowResult) ([][]string, error) {
	var grid [][]string
	for result := range ch {
		if result.Err != nil {
			return nil, result.Err
		}
		if result.Row == nil {
			continue
		}
		grid = append(grid, result.Row.Values)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return grid, nil
}

// ReadRows is a convenience function that streams and collects up to limit rows
func ReadRows(ctx context.Context, f *excelize.File, sheet string, limit int) ([][]string, error) {
	ch, err := StreamRows(ctx, f, sheet, limit)
	if err != nil {
		return nil, err
	}
	return CollectRows(ctx, ch)
}
