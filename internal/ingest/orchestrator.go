// Package ingest coordinates importing a workbook: discovering its sheets, holding their
// previews until the user picks a header row, and turning confirmed sheets into reports.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fuabioo/xlreport/internal/service"
	"github.com/fuabioo/xlreport/internal/xlsx"
)

// Client is the spreadsheet service used by the Orchestrator
type Client interface {
	Discover(ctx context.Context, file *service.File) (*service.Discovery, error)
	PreviewSheet(ctx context.Context, file *service.File, sheet string) (*service.Preview, error)
	CommitSheet(ctx context.Context, file *service.File, sheet string, req service.CommitRequest) (*service.Processed, error)
}

// DefaultExtensions are the workbook formats accepted by StartImport
var DefaultExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}

const (
	DefaultPreviewConcurrency = 4
	DefaultPreviewLimit       = 20
)

var zipSignature = []byte("PK\x03\x04")

// ImportHandle describes the active import
type ImportHandle struct {
	ID         string           `json:"id" yaml:"id"`
	FileName   string           `json:"file_name" yaml:"file_name"`
	SheetNames []string         `json:"sheet_names" yaml:"sheet_names"`
	Failures   map[string]error `json:"-" yaml:"-"`
	Settled    bool             `json:"settled" yaml:"settled"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
}

type workbookImport struct {
	id         string
	file       *service.File
	fileName   string
	sheetNames []string
	failures   map[string]error
	arrived    int
	settled    bool
	startedAt  time.Time
}

func (imp *workbookImport) handle() *ImportHandle {
	return &ImportHandle{
		ID:         imp.id,
		FileName:   imp.fileName,
		SheetNames: slices.Clone(imp.sheetNames),
		Failures:   maps.Clone(imp.failures),
		Settled:    imp.settled,
		StartedAt:  imp.startedAt,
	}
}

type inflightKey struct {
	importID string
	sheet    string
}

// Orchestrator owns the pending sheets, the edit session and the report collection.
// All state changes happen under one mutex that is never held across a Client call.
type Orchestrator struct {
	client       Client
	logger       *slog.Logger
	concurrency  int
	previewLimit int
	extensions   []string
	now          func() time.Time
	newID        func() string

	mu       sync.Mutex
	current  *workbookImport
	store    *Store
	edit     *EditSession
	inflight map[inflightKey]struct{}
	reports  *Reports
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPreviewConcurrency bounds the number of sheet previews requested at once
func WithPreviewConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithPreviewLimit bounds the preview synthesized for a single-sheet workbook
func WithPreviewLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.previewLimit = n
		}
	}
}

func WithAcceptedExtensions(exts ...string) Option {
	return func(o *Orchestrator) {
		o.extensions = o.extensions[:0]
		for _, ext := range exts {
			o.extensions = append(o.extensions, strings.ToLower(ext))
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithIDGenerator replaces the uuid v7 generator used for imports and reports
func WithIDGenerator(next func() string) Option {
	return func(o *Orchestrator) {
		o.newID = next
	}
}

// New creates an Orchestrator backed by client
func New(client Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:       client,
		logger:       slog.Default(),
		concurrency:  DefaultPreviewConcurrency,
		previewLimit: DefaultPreviewLimit,
		extensions:   slices.Clone(DefaultExtensions),
		now:          time.Now,
		newID:        newUUID,
		store:        NewStore(nil),
		inflight:     make(map[inflightKey]struct{}),
		reports:      NewReports(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// StartImport validates file, discovers its sheets and fetches a preview of each one.
// It returns once every preview has arrived or failed.
func (o *Orchestrator) StartImport(ctx context.Context, file *service.File) (*ImportHandle, error) {
	if err := o.validateFile(file); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.current != nil {
		name, pending := o.current.fileName, o.store.Len()
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s still has %d pending sheets", ErrImportInProgress, name, pending)
	}
	imp := &workbookImport{
		id:        o.newID(),
		file:      file,
		fileName:  file.Name,
		failures:  make(map[string]error),
		startedAt: o.now(),
	}
	o.current = imp
	o.store = NewStore(nil)
	o.mu.Unlock()

	logger := o.logger.With("import", imp.id, "file", file.Name)
	logger.Info("import started", "bytes", len(file.Data))

	disc, err := o.client.Discover(ctx, file)
	if err != nil {
		o.abandon(imp)
		if errors.Is(err, xlsx.ErrInvalidFormat) || errors.Is(err, xlsx.ErrEmptyWorkbook) {
			return nil, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
		}
		return nil, &ServiceError{Op: "discover", File: file.Name, Err: err}
	}

	if disc.Single != nil {
		return o.settleSingle(imp, disc, logger)
	}

	if len(disc.SheetNames) == 0 {
		o.abandon(imp)
		return nil, &ServiceError{Op: "discover", File: file.Name, Err: errors.New("workbook has no sheets")}
	}

	o.mu.Lock()
	if o.current != imp {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: import %s was cancelled", ErrStaleResponse, imp.id)
	}
	imp.sheetNames = slices.Clone(disc.SheetNames)
	o.store = NewStore(imp.sheetNames)
	o.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for _, name := range imp.sheetNames {
		g.Go(func() error {
			preview, err := o.client.PreviewSheet(ctx, file, name)
			o.applyPreview(imp, name, preview, err, logger)
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != imp {
		return nil, fmt.Errorf("%w: import %s was cancelled", ErrStaleResponse, imp.id)
	}
	imp.settled = true

	if imp.arrived == 0 {
		errs := make([]error, 0, len(imp.failures))
		for _, name := range imp.sheetNames {
			if err, ok := imp.failures[name]; ok {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
		o.dropLocked()
		logger.Warn("every sheet preview failed", "sheets", len(imp.sheetNames))
		return nil, &ServiceError{Op: "preview", File: file.Name, Err: errors.Join(errs...)}
	}

	h := imp.handle()
	logger.Info("import previews settled", "pending", o.store.Len(), "failed", len(imp.failures))
	o.releaseIfResolvedLocked()
	return h, nil
}

// settleSingle turns a one-sheet discovery into its pending sheet. The raw preview is used
// when the service sent one; otherwise the processed table is shown as the preview and
// recorded as a replacement of the whole sheet so confirm reads the same rows.
func (o *Orchestrator) settleSingle(imp *workbookImport, disc *service.Discovery, logger *slog.Logger) (*ImportHandle, error) {
	name := disc.SheetName
	if name == "" {
		name = "Sheet1"
	}

	var pending *PendingSheet
	if disc.Preview != nil {
		pending = newPendingSheet(disc.Preview, o.previewLimit)
	} else {
		table := make([][]string, 0, len(disc.Single.Rows)+1)
		table = append(table, slices.Clone(disc.Single.Columns))
		for _, row := range disc.Single.Rows {
			table = append(table, slices.Clone(row))
		}
		pending = &PendingSheet{
			PreviewRows: cloneGrid(table[:min(len(table), o.previewLimit)]),
			edits:       []service.Edit{{Kind: service.EditReplaceRows, Row: -1, Rows: table}},
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != imp {
		return nil, fmt.Errorf("%w: import %s was cancelled", ErrStaleResponse, imp.id)
	}
	imp.sheetNames = []string{name}
	imp.arrived = 1
	imp.settled = true
	o.store = NewStore(imp.sheetNames)
	o.store.Upsert(name, pending)

	logger.Info("single sheet workbook", "sheet", name, "columns", len(disc.Single.Columns))
	return imp.handle(), nil
}

// newPendingSheet copies a preview, clipped to limit rows, with its suggestion clamped
// into range
func newPendingSheet(preview *service.Preview, limit int) *PendingSheet {
	rows := preview.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	suggested := 0
	if s := preview.SuggestedHeaderRow; s != nil && *s >= 0 && *s < len(rows) {
		suggested = *s
	}
	return &PendingSheet{
		PreviewRows:        cloneGrid(rows),
		SuggestedHeaderRow: suggested,
		SelectedHeaderRow:  suggested,
	}
}

func (o *Orchestrator) applyPreview(imp *workbookImport, name string, preview *service.Preview, err error, logger *slog.Logger) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != imp {
		logger.Debug("discarding stale preview", "sheet", name)
		return
	}
	if err == nil && preview == nil {
		err = errors.New("empty preview response")
	}
	if err != nil {
		imp.failures[name] = err
		logger.Warn("sheet preview failed", "sheet", name, "error", err)
		return
	}
	if _, exists := o.store.Get(name); exists {
		logger.Debug("duplicate preview ignored", "sheet", name)
		return
	}

	p := newPendingSheet(preview, 0)
	o.store.Upsert(name, p)
	imp.arrived++
	logger.Debug("sheet preview ready", "sheet", name, "rows", len(p.PreviewRows), "suggested_header", p.SuggestedHeaderRow)
}

func (o *Orchestrator) validateFile(file *service.File) error {
	if file == nil || len(file.Data) == 0 {
		return fmt.Errorf("%w: file is empty", ErrUnreadableFile)
	}
	ext := strings.ToLower(filepath.Ext(file.Name))
	if !slices.Contains(o.extensions, ext) {
		return fmt.Errorf("%w: %s is not a workbook (accepted: %s)", ErrUnreadableFile, file.Name, strings.Join(o.extensions, " "))
	}
	if !bytes.HasPrefix(file.Data, zipSignature) {
		return fmt.Errorf("%w: %s is not an xlsx archive", ErrUnreadableFile, file.Name)
	}
	return nil
}

// abandon drops imp if it is still the current import
func (o *Orchestrator) abandon(imp *workbookImport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == imp {
		o.dropLocked()
	}
}

func (o *Orchestrator) dropLocked() {
	if o.edit != nil {
		o.edit.close()
		o.edit = nil
	}
	if o.current != nil {
		o.current.file = nil
	}
	o.current = nil
	o.store = NewStore(nil)
}

// releaseIfResolvedLocked ends the import once its previews settled and nothing is pending
func (o *Orchestrator) releaseIfResolvedLocked() {
	imp := o.current
	if imp == nil || !imp.settled || o.store.Len() > 0 {
		return
	}
	o.logger.Info("import finished", "import", imp.id, "file", imp.fileName)
	o.dropLocked()
}

// SelectHeaderRow records which preview row holds the column names
func (o *Orchestrator) SelectHeaderRow(sheet string, row int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.pendingLocked(sheet)
	if err != nil {
		return err
	}
	if o.confirmingLocked(sheet) {
		return fmt.Errorf("%w: %s", ErrConfirmInFlight, sheet)
	}
	if row < 0 || row >= len(p.PreviewRows) {
		return fmt.Errorf("%w: row %d, %s has %d preview rows", ErrHeaderRowOutOfRange, row, sheet, len(p.PreviewRows))
	}
	p.SelectedHeaderRow = row
	return nil
}

func (o *Orchestrator) pendingLocked(sheet string) (*PendingSheet, error) {
	if o.current == nil {
		return nil, fmt.Errorf("%w: %s (no active import)", ErrSheetNotFound, sheet)
	}
	p, ok := o.store.Get(sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	return p, nil
}

// confirmingLocked reports whether a confirm of sheet in the current import is waiting on
// the service
func (o *Orchestrator) confirmingLocked(sheet string) bool {
	if o.current == nil {
		return false
	}
	_, busy := o.inflight[inflightKey{importID: o.current.id, sheet: sheet}]
	return busy
}

// BeginEdit opens an edit session on a pending sheet. Only one session can be open;
// asking again for the same sheet returns the open session.
func (o *Orchestrator) BeginEdit(sheet string) (*EditSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.pendingLocked(sheet)
	if err != nil {
		return nil, err
	}
	if o.confirmingLocked(sheet) {
		return nil, fmt.Errorf("%w: %s", ErrConfirmInFlight, sheet)
	}
	if o.edit != nil {
		if o.edit.target == p {
			return o.edit, nil
		}
		return nil, fmt.Errorf("%w: %s is open", ErrAlreadyEditing, o.edit.Sheet())
	}
	o.edit = newEditSession(p)
	o.logger.Debug("edit session opened", "sheet", sheet)
	return o.edit, nil
}

// CommitEdit replaces the edited sheet's preview and header row and closes the session.
// A grid other than the session's own working copy replaces the previewed rows as a whole.
func (o *Orchestrator) CommitEdit(grid [][]string, header int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.edit == nil {
		return ErrNoEditSession
	}
	working, _, edits, err := o.edit.snapshot()
	if err != nil {
		return err
	}
	if !slices.EqualFunc(grid, working, slices.Equal[[]string]) {
		edits = []service.Edit{{Kind: service.EditReplaceRows, Row: len(o.edit.target.PreviewRows), Rows: cloneGrid(grid)}}
	}
	_, err = o.commitEditLocked(grid, header, edits)
	return err
}

// CommitCurrentEdit commits the open session's own working copy and returns the updated
// pending sheet
func (o *Orchestrator) CommitCurrentEdit() (*PendingSheet, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.edit == nil {
		return nil, ErrNoEditSession
	}
	grid, header, edits, err := o.edit.snapshot()
	if err != nil {
		return nil, err
	}
	return o.commitEditLocked(grid, header, edits)
}

func (o *Orchestrator) commitEditLocked(grid [][]string, header int, edits []service.Edit) (*PendingSheet, error) {
	target := o.edit.target
	if o.confirmingLocked(target.Name) {
		return nil, fmt.Errorf("%w: %s", ErrConfirmInFlight, target.Name)
	}
	if header < 0 || header >= len(grid) {
		return nil, fmt.Errorf("%w: row %d, grid has %d rows", ErrHeaderRowOutOfRange, header, len(grid))
	}

	target.PreviewRows = cloneGrid(grid)
	target.SelectedHeaderRow = header
	if len(edits) > 0 {
		target.edits = append(target.edits, edits...)
		target.Edited = true
	}
	o.edit.close()
	o.edit = nil
	o.logger.Debug("edit session committed", "sheet", target.Name, "rows", len(grid), "header", header, "edits", len(edits))

	out := target.clone()
	return &out, nil
}

// CancelEdit discards the open session
func (o *Orchestrator) CancelEdit() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.edit == nil {
		return ErrNoEditSession
	}
	o.edit.close()
	o.edit = nil
	return nil
}

// ConfirmSheet processes a pending sheet with its selected header row and moves it
// into the report collection. A failed service call leaves the sheet pending as it was.
func (o *Orchestrator) ConfirmSheet(ctx context.Context, sheet string) (*Report, error) {
	o.mu.Lock()
	p, err := o.pendingLocked(sheet)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	imp := o.current
	key := inflightKey{importID: imp.id, sheet: sheet}
	if _, busy := o.inflight[key]; busy {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrConfirmInFlight, sheet)
	}
	if p.SelectedHeaderRow < 0 || p.SelectedHeaderRow >= len(p.PreviewRows) {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s has %d preview rows", ErrHeaderRowRequired, sheet, len(p.PreviewRows))
	}
	if o.edit != nil && o.edit.target == p && o.edit.Dirty() {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: commit or cancel the edit of %s first", ErrUnresolvedEdit, sheet)
	}
	o.inflight[key] = struct{}{}
	file := imp.file
	header := p.SelectedHeaderRow
	req := service.CommitRequest{HeaderRow: header, Edits: slices.Clone(p.edits)}
	o.mu.Unlock()

	logger := o.logger.With("import", imp.id, "file", file.Name, "sheet", sheet)
	logger.Debug("confirming sheet", "header_row", header, "edits", len(req.Edits))

	processed, err := o.client.CommitSheet(ctx, file, sheet, req)
	if err == nil && processed == nil {
		err = errors.New("empty commit response")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, key)

	if current, ok := o.store.Get(sheet); o.current != imp || !ok || current != p {
		logger.Info("discarding stale commit response")
		return nil, fmt.Errorf("%w: %s", ErrStaleResponse, sheet)
	}
	if err != nil {
		logger.Warn("sheet commit failed", "error", err)
		return nil, &ServiceError{Op: "commit", File: file.Name, Sheet: sheet, Err: err}
	}

	report := o.newReport(file.Name, sheet, header, processed)
	if err := o.reports.Append(report); err != nil {
		return nil, err
	}
	o.store.Remove(sheet)
	if o.edit != nil && o.edit.target == p {
		o.edit.close()
		o.edit = nil
	}
	logger.Info("sheet confirmed", "report", report.ID, "rows", len(report.Rows))
	o.releaseIfResolvedLocked()

	out := report.clone()
	return &out, nil
}

func (o *Orchestrator) newReport(fileName, sheet string, header int, processed *service.Processed) Report {
	columns := slices.Clone(processed.Columns)
	if columns == nil {
		columns = []string{}
	}
	rows := make([][]string, len(processed.Rows))
	for i, row := range processed.Rows {
		rows[i] = xlsx.FitRow(row, len(columns))
	}
	chart := slices.Clone(processed.Chart)
	if chart == nil {
		chart = []service.ChartPoint{}
	}
	return Report{
		ID:          o.newID(),
		DisplayName: fmt.Sprintf("%s - %s", fileName, sheet),
		SourceFile:  fileName,
		SheetName:   sheet,
		HeaderRow:   header,
		Columns:     columns,
		Rows:        rows,
		Summary:     processed.Summary,
		Chart:       chart,
		CreatedAt:   o.now(),
	}
}

// RemovePendingSheet drops a sheet from the import without processing it
func (o *Orchestrator) RemovePendingSheet(sheet string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.pendingLocked(sheet)
	if err != nil {
		return err
	}
	if o.edit != nil && o.edit.target == p {
		o.edit.close()
		o.edit = nil
	}
	o.store.Remove(sheet)
	o.logger.Info("pending sheet removed", "import", o.current.id, "sheet", sheet)
	o.releaseIfResolvedLocked()
	return nil
}

// CancelImport abandons the active import with everything still pending.
// Responses still in flight for it are discarded when they arrive.
func (o *Orchestrator) CancelImport() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return ErrNoActiveImport
	}
	o.logger.Info("import cancelled", "import", o.current.id, "pending", o.store.Len())
	o.dropLocked()
	return nil
}

// RemoveReport deletes a report. Removal is irreversible and must be confirmed.
func (o *Orchestrator) RemoveReport(id string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("%w: report %s", ErrConfirmationRequired, id)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.reports.Remove(id) {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	o.logger.Info("report removed", "report", id)
	return nil
}

func (o *Orchestrator) ToggleSummary(id string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reports.ToggleSummary(id)
}

func (o *Orchestrator) ToggleChart(id string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reports.ToggleChart(id)
}

// ExportReport writes a report's table to a new workbook at path
func (o *Orchestrator) ExportReport(id, path string, overwrite bool) error {
	r, ok := o.Report(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	table := &xlsx.Table{Columns: r.Columns, Rows: r.Rows}
	if err := xlsx.ExportTable(path, r.DisplayName, table, overwrite); err != nil {
		return fmt.Errorf("failed to export report %s: %w", id, err)
	}
	return nil
}

// ActiveImport returns the current import, if any
func (o *Orchestrator) ActiveImport() (*ImportHandle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil, false
	}
	return o.current.handle(), true
}

// Pending returns copies of the pending sheets in discovery order
func (o *Orchestrator) Pending() []PendingSheet {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.ListPending()
}

func (o *Orchestrator) PendingSheet(name string) (PendingSheet, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.store.Get(name)
	if !ok {
		return PendingSheet{}, false
	}
	return p.clone(), true
}

func (o *Orchestrator) CurrentEdit() (*EditSession, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.edit, o.edit != nil
}

func (o *Orchestrator) Reports() []Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reports.List()
}

func (o *Orchestrator) Report(id string) (Report, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reports.Get(id)
}
