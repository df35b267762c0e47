package ingest

import (
	"slices"

	"github.com/fuabioo/xlreport/internal/service"
)

// PendingSheet is a worksheet that has been previewed but not yet committed
type PendingSheet struct {
	Name               string     `json:"sheet_name" yaml:"sheet_name"`
	PreviewRows        [][]string `json:"preview_rows" yaml:"preview_rows"`
	SuggestedHeaderRow int        `json:"suggested_header_row_index" yaml:"suggested_header_row_index"`
	SelectedHeaderRow  int        `json:"selected_header_row" yaml:"selected_header_row"`
	Edited             bool       `json:"edited" yaml:"edited"`

	// edits turn the sheet as the service reads it into PreviewRows plus the rest of the sheet
	edits []service.Edit
}

func (p *PendingSheet) clone() PendingSheet {
	c := *p
	c.PreviewRows = cloneGrid(p.PreviewRows)
	c.edits = slices.Clone(p.edits)
	return c
}

// Store holds the pending sheets of the active import keyed by sheet name.
// It is not safe for concurrent use; the Orchestrator serializes access.
type Store struct {
	order   []string
	known   map[string]struct{}
	entries map[string]*PendingSheet
}

// NewStore creates a store listing sheets in the given discovery order
func NewStore(order []string) *Store {
	s := &Store{
		known:   make(map[string]struct{}, len(order)),
		entries: make(map[string]*PendingSheet, len(order)),
	}
	for _, name := range order {
		s.remember(name)
	}
	return s
}

func (s *Store) remember(name string) {
	if _, ok := s.known[name]; ok {
		return
	}
	s.known[name] = struct{}{}
	s.order = append(s.order, name)
}

// Upsert sets the entry for name. Names outside the discovery order are listed after it,
// in insertion order.
func (s *Store) Upsert(name string, p *PendingSheet) {
	p.Name = name
	s.remember(name)
	s.entries[name] = p
}

// Get returns the live entry for name
func (s *Store) Get(name string) (*PendingSheet, bool) {
	p, ok := s.entries[name]
	return p, ok
}

// Remove deletes the entry for name and reports whether it existed
func (s *Store) Remove(name string) bool {
	if _, ok := s.entries[name]; !ok {
		return false
	}
	delete(s.entries, name)
	return true
}

// ListPending returns copies of all entries in discovery order
func (s *Store) ListPending() []PendingSheet {
	out := make([]PendingSheet, 0, len(s.entries))
	for _, name := range s.order {
		if p, ok := s.entries[name]; ok {
			out = append(out, p.clone())
		}
	}
	return out
}

// Len returns the number of pending sheets
func (s *Store) Len() int {
	return len(s.entries)
}

func cloneGrid(g [][]string) [][]string {
	if g == nil {
		return nil
	}
	out := make([][]string, len(g))
	for i, row := range g {
		out[i] = append([]string{}, row...)
	}
	return out
}
