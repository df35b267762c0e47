package ingest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/fuabioo/xlreport/internal/service"
)

// EditSession is a working copy of one pending sheet's preview. Changes stay in the
// session until the Orchestrator commits it; cancelling leaves the sheet untouched.
type EditSession struct {
	mu     sync.Mutex
	target *PendingSheet
	sheet  string
	grid   [][]string
	header int
	edits  []service.Edit
	dirty  bool
	closed bool
}

func newEditSession(target *PendingSheet) *EditSession {
	return &EditSession{
		target: target,
		sheet:  target.Name,
		grid:   cloneGrid(target.PreviewRows),
		header: target.SelectedHeaderRow,
	}
}

// Sheet returns the name of the sheet being edited
func (s *EditSession) Sheet() string {
	return s.sheet
}

// Grid returns a copy of the working grid
func (s *EditSession) Grid() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneGrid(s.grid)
}

// HeaderRow returns the working header row index
func (s *EditSession) HeaderRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

// Dirty reports whether the working copy was changed since the session opened
func (s *EditSession) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Closed reports whether the session was committed or cancelled
func (s *EditSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// InsertRow inserts cells as a new row before index at. at == len(grid) appends.
func (s *EditSession) InsertRow(at int, cells []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditSessionClosed
	}
	if at < 0 || at > len(s.grid) {
		return fmt.Errorf("%w: row %d, grid has %d rows", ErrEditOutOfRange, at, len(s.grid))
	}

	hadRows := len(s.grid) > 0
	if err := s.applyLocked(service.Edit{Kind: service.EditInsertRow, Row: at, Cells: slices.Clone(cells)}); err != nil {
		return err
	}
	if hadRows && at <= s.header {
		s.header++
	}
	return nil
}

// DeleteRow removes the row at index at
func (s *EditSession) DeleteRow(at int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditSessionClosed
	}
	if at < 0 || at >= len(s.grid) {
		return fmt.Errorf("%w: row %d, grid has %d rows", ErrEditOutOfRange, at, len(s.grid))
	}

	if err := s.applyLocked(service.Edit{Kind: service.EditDeleteRow, Row: at}); err != nil {
		return err
	}
	switch {
	case at < s.header:
		s.header--
	case s.header >= len(s.grid):
		s.header = len(s.grid) - 1
	}
	if s.header < 0 {
		s.header = 0
	}
	return nil
}

// InsertColumn inserts value at column index at in every row. Rows shorter than at
// are padded with empty cells first.
func (s *EditSession) InsertColumn(at int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditSessionClosed
	}
	width := s.width()
	if at < 0 || at > width {
		return fmt.Errorf("%w: column %d, grid has %d columns", ErrEditOutOfRange, at, width)
	}
	return s.applyLocked(service.Edit{Kind: service.EditInsertColumn, Column: at, Value: value})
}

// DeleteColumn removes column at from every row that has it
func (s *EditSession) DeleteColumn(at int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditSessionClosed
	}
	width := s.width()
	if at < 0 || at >= width {
		return fmt.Errorf("%w: column %d, grid has %d columns", ErrEditOutOfRange, at, width)
	}
	return s.applyLocked(service.Edit{Kind: service.EditDeleteColumn, Column: at})
}

// SetHeaderRow moves the working header row
func (s *EditSession) SetHeaderRow(row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditSessionClosed
	}
	if row < 0 || row >= len(s.grid) {
		return fmt.Errorf("%w: row %d, grid has %d rows", ErrHeaderRowOutOfRange, row, len(s.grid))
	}
	s.header = row
	s.dirty = true
	return nil
}

// SetCell overwrites one cell, padding the row if needed
func (s *EditSession) SetCell(row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrEditSessionClosed
	}
	if row < 0 || row >= len(s.grid) || col < 0 {
		return fmt.Errorf("%w: cell (%d, %d)", ErrEditOutOfRange, row, col)
	}
	return s.applyLocked(service.Edit{Kind: service.EditSetCell, Row: row, Column: col, Value: value})
}

// applyLocked changes the working grid and records the edit so the service can replay
// it over the whole sheet on confirm
func (s *EditSession) applyLocked(e service.Edit) error {
	grid, err := e.Apply(s.grid)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEditOutOfRange, err)
	}
	s.grid = grid
	s.edits = append(s.edits, e)
	s.dirty = true
	return nil
}

func (s *EditSession) width() int {
	w := 0
	for _, row := range s.grid {
		w = max(w, len(row))
	}
	return w
}

func (s *EditSession) snapshot() ([][]string, int, []service.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, nil, ErrEditSessionClosed
	}
	return cloneGrid(s.grid), s.header, slices.Clone(s.edits), nil
}

func (s *EditSession) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
