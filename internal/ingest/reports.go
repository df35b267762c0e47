package ingest

import (
	"fmt"
	"time"

	"github.com/fuabioo/xlreport/internal/service"
)

// Report is the processed result of one confirmed sheet
type Report struct {
	ID              string               `json:"id" yaml:"id"`
	DisplayName     string               `json:"display_name" yaml:"display_name"`
	SourceFile      string               `json:"source_file" yaml:"source_file"`
	SheetName       string               `json:"sheet_name" yaml:"sheet_name"`
	HeaderRow       int                  `json:"header_row" yaml:"header_row"`
	Columns         []string             `json:"columns" yaml:"columns"`
	Rows            [][]string           `json:"rows" yaml:"rows"`
	Summary         string               `json:"summary" yaml:"summary"`
	Chart           []service.ChartPoint `json:"chart" yaml:"chart"`
	SummaryExpanded bool                 `json:"summary_expanded" yaml:"summary_expanded"`
	ChartExpanded   bool                 `json:"chart_expanded" yaml:"chart_expanded"`
	CreatedAt       time.Time            `json:"created_at" yaml:"created_at"`
}

func (r *Report) clone() Report {
	c := *r
	c.Columns = append([]string{}, r.Columns...)
	c.Rows = cloneGrid(r.Rows)
	c.Chart = append([]service.ChartPoint{}, r.Chart...)
	return c
}

// Reports is the ordered collection of confirmed reports. Ids that were removed
// are never accepted again. Not safe for concurrent use.
type Reports struct {
	items   []*Report
	byID    map[string]*Report
	retired map[string]struct{}
}

func NewReports() *Reports {
	return &Reports{
		byID:    make(map[string]*Report),
		retired: make(map[string]struct{}),
	}
}

// Append adds a copy of r at the end of the collection
func (c *Reports) Append(r Report) error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrDuplicateReport)
	}
	if _, ok := c.byID[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateReport, r.ID)
	}
	if _, ok := c.retired[r.ID]; ok {
		return fmt.Errorf("%w: %s was removed", ErrDuplicateReport, r.ID)
	}

	stored := r.clone()
	c.items = append(c.items, &stored)
	c.byID[r.ID] = &stored
	return nil
}

// Get returns a copy of the report with the given id
func (c *Reports) Get(id string) (Report, bool) {
	r, ok := c.byID[id]
	if !ok {
		return Report{}, false
	}
	return r.clone(), true
}

// Remove deletes the report and retires its id
func (c *Reports) Remove(id string) bool {
	r, ok := c.byID[id]
	if !ok {
		return false
	}
	delete(c.byID, id)
	c.retired[id] = struct{}{}
	for i, item := range c.items {
		if item == r {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	return true
}

// List returns copies of all reports in confirmation order
func (c *Reports) List() []Report {
	out := make([]Report, 0, len(c.items))
	for _, r := range c.items {
		out = append(out, r.clone())
	}
	return out
}

// ToggleSummary flips the summary visibility and returns the new value
func (c *Reports) ToggleSummary(id string) (bool, error) {
	r, ok := c.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	r.SummaryExpanded = !r.SummaryExpanded
	return r.SummaryExpanded, nil
}

// ToggleChart flips the chart visibility and returns the new value
func (c *Reports) ToggleChart(id string) (bool, error) {
	r, ok := c.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	r.ChartExpanded = !r.ChartExpanded
	return r.ChartExpanded, nil
}

func (c *Reports) Len() int {
	return len(c.items)
}
