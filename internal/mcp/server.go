// Package mcp exposes the import workflow as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fuabioo/xlreport/internal/config"
	"github.com/fuabioo/xlreport/internal/ingest"
	"github.com/fuabioo/xlreport/internal/service"
	"github.com/fuabioo/xlreport/internal/xlsx"
)

// Server wraps the MCP server and the orchestrator behind it
type Server struct {
	mcpServer *server.MCPServer
	orch      *ingest.Orchestrator
	cfg       *config.Config
}

// New creates a new MCP server with all tools registered
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.AllowedPaths) > 0 {
		InitAllowedPaths(cfg.AllowedPaths)
	}

	svc := service.NewLocal(
		service.WithPreviewRows(cfg.PreviewRows),
		service.WithCacheEntries(cfg.CacheEntries),
	)
	orch := ingest.New(svc,
		ingest.WithLogger(logger),
		ingest.WithPreviewConcurrency(cfg.PreviewConcurrency),
		ingest.WithPreviewLimit(cfg.PreviewRows),
	)

	s := server.NewMCPServer(
		"xlreport",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{mcpServer: s, orch: orch, cfg: cfg}
	srv.registerTools()

	return srv
}

// Run starts the MCP server on stdio
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	// import lifecycle
	s.mcpServer.AddTool(mcp.NewTool("start_import",
		mcp.WithDescription("Start importing an Excel workbook. Every sheet is previewed and waits for a header row to be confirmed"),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to xlsx file")),
	), s.handleStartImport)

	s.mcpServer.AddTool(mcp.NewTool("cancel_import",
		mcp.WithDescription("Abandon the active import and every sheet still pending"),
	), s.handleCancelImport)

	// pending sheets
	s.mcpServer.AddTool(mcp.NewTool("list_pending",
		mcp.WithDescription("List the sheets waiting for confirmation with their suggested and selected header rows"),
	), s.handleListPending)

	s.mcpServer.AddTool(mcp.NewTool("show_pending",
		mcp.WithDescription("Show the preview rows of a pending sheet"),
		mcp.WithString("sheet", mcp.Required(), mcp.Description("Sheet name")),
	), s.handleShowPending)

	s.mcpServer.AddTool(mcp.NewTool("select_header_row",
		mcp.WithDescription("Select which preview row holds the column names"),
		mcp.WithString("sheet", mcp.Required(), mcp.Description("Sheet name")),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Preview row index (0-based)")),
	), s.handleSelectHeaderRow)

	s.mcpServer.AddTool(mcp.NewTool("confirm_sheet",
		mcp.WithDescription("Process a pending sheet with its selected header row and add it to the reports"),
		mcp.WithString("sheet", mcp.Required(), mcp.Description("Sheet name")),
	), s.handleConfirmSheet)

	s.mcpServer.AddTool(mcp.NewTool("remove_pending_sheet",
		mcp.WithDescription("Drop a pending sheet without processing it"),
		mcp.WithString("sheet", mcp.Required(), mcp.Description("Sheet name")),
	), s.handleRemovePendingSheet)

	// edit session
	s.mcpServer.AddTool(mcp.NewTool("begin_edit",
		mcp.WithDescription("Open an edit session on a pending sheet's preview (one session at a time)"),
		mcp.WithString("sheet", mcp.Required(), mcp.Description("Sheet name")),
	), s.handleBeginEdit)

	s.mcpServer.AddTool(mcp.NewTool("show_edit",
		mcp.WithDescription("Show the working grid and header row of the open edit session"),
	), s.handleShowEdit)

	s.mcpServer.AddTool(mcp.NewTool("edit_insert_row",
		mcp.WithDescription("Insert a row into the working grid"),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Row index to insert before (0-based, equal to the row count appends)")),
		// values will be passed as JSON array via BindArguments
	), s.handleEditInsertRow)

	s.mcpServer.AddTool(mcp.NewTool("edit_delete_row",
		mcp.WithDescription("Delete a row from the working grid"),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Row index (0-based)")),
	), s.handleEditDeleteRow)

	s.mcpServer.AddTool(mcp.NewTool("edit_insert_column",
		mcp.WithDescription("Insert a column into every row of the working grid"),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Column index to insert before (0-based)")),
		mcp.WithString("value", mcp.Description("Value for the new cells (default: empty)")),
	), s.handleEditInsertColumn)

	s.mcpServer.AddTool(mcp.NewTool("edit_delete_column",
		mcp.WithDescription("Delete a column from every row of the working grid"),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Column index (0-based)")),
	), s.handleEditDeleteColumn)

	s.mcpServer.AddTool(mcp.NewTool("edit_set_header",
		mcp.WithDescription("Set the working header row"),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Row index (0-based)")),
	), s.handleEditSetHeader)

	s.mcpServer.AddTool(mcp.NewTool("edit_set_cell",
		mcp.WithDescription("Overwrite one cell of the working grid"),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Row index (0-based)")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Column index (0-based)")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value")),
	), s.handleEditSetCell)

	s.mcpServer.AddTool(mcp.NewTool("commit_edit",
		mcp.WithDescription("Replace the sheet's preview and header row with the working copy and close the session"),
	), s.handleCommitEdit)

	s.mcpServer.AddTool(mcp.NewTool("cancel_edit",
		mcp.WithDescription("Close the edit session, discarding its changes"),
	), s.handleCancelEdit)

	// reports
	s.mcpServer.AddTool(mcp.NewTool("list_reports",
		mcp.WithDescription("List confirmed reports"),
	), s.handleListReports)

	s.mcpServer.AddTool(mcp.NewTool("show_report",
		mcp.WithDescription("Show a report's table, plus its summary and chart when expanded"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Report id")),
	), s.handleShowReport)

	s.mcpServer.AddTool(mcp.NewTool("toggle_summary",
		mcp.WithDescription("Expand or collapse a report's summary"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Report id")),
	), s.handleToggleSummary)

	s.mcpServer.AddTool(mcp.NewTool("toggle_chart",
		mcp.WithDescription("Expand or collapse a report's chart"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Report id")),
	), s.handleToggleChart)

	s.mcpServer.AddTool(mcp.NewTool("remove_report",
		mcp.WithDescription("Remove a report permanently. Requires confirm=true"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Report id")),
		mcp.WithBoolean("confirm", mcp.Description("Confirm the irreversible removal (default: false)")),
	), s.handleRemoveReport)

	s.mcpServer.AddTool(mcp.NewTool("export_report",
		mcp.WithDescription("Save a report's table as a new xlsx workbook"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Report id")),
		mcp.WithString("file", mcp.Required(), mcp.Description("Destination xlsx path")),
		mcp.WithBoolean("overwrite", mcp.Description("Allow overwriting existing file (default: false)")),
	), s.handleExportReport)
}

type pendingSummary struct {
	Sheet              string `json:"sheet_name"`
	PreviewRows        int    `json:"preview_rows"`
	SuggestedHeaderRow int    `json:"suggested_header_row_index"`
	SelectedHeaderRow  int    `json:"selected_header_row"`
	Editing            bool   `json:"editing,omitempty"`
}

type editView struct {
	Sheet     string     `json:"sheet_name"`
	HeaderRow int        `json:"header_row"`
	Dirty     bool       `json:"dirty"`
	Grid      [][]string `json:"grid"`
}

type reportSummary struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	Columns         int    `json:"columns"`
	Rows            int    `json:"rows"`
	SummaryExpanded bool   `json:"summary_expanded"`
	ChartExpanded   bool   `json:"chart_expanded"`
}

type reportView struct {
	ID          string               `json:"id"`
	DisplayName string               `json:"display_name"`
	HeaderRow   int                  `json:"header_row"`
	Columns     []string             `json:"columns"`
	Rows        [][]string           `json:"rows"`
	Summary     string               `json:"summary,omitempty"`
	Chart       []service.ChartPoint `json:"chart,omitempty"`
}

// Tool handlers

func (s *Server) handleStartImport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file := request.GetString("file", "")

	validPath, err := ValidateFilePath(file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := CheckFileSize(validPath, s.cfg.MaxFileSize); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := xlsx.ReadFile(validPath, s.cfg.MaxFileSize)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	h, err := s.orch.StartImport(ctx, service.NewFile(filepath.Base(validPath), data))
	if err != nil {
		return errorResult(err)
	}

	failures := make(map[string]string, len(h.Failures))
	for sheet, ferr := range h.Failures {
		failures[sheet] = ferr.Error()
	}
	return jsonResult(map[string]any{
		"import_id":   h.ID,
		"file_name":   h.FileName,
		"sheet_names": h.SheetNames,
		"failures":    failures,
		"pending":     s.pendingSummaries(),
	})
}

func (s *Server) handleCancelImport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.orch.CancelImport(); err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"cancelled": true})
}

func (s *Server) handleListPending(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.pendingSummaries())
}

func (s *Server) pendingSummaries() []pendingSummary {
	var editing string
	if session, ok := s.orch.CurrentEdit(); ok {
		editing = session.Sheet()
	}

	pending := s.orch.Pending()
	out := make([]pendingSummary, 0, len(pending))
	for _, p := range pending {
		out = append(out, pendingSummary{
			Sheet:              p.Name,
			PreviewRows:        len(p.PreviewRows),
			SuggestedHeaderRow: p.SuggestedHeaderRow,
			SelectedHeaderRow:  p.SelectedHeaderRow,
			Editing:            p.Name == editing,
		})
	}
	return out
}

func (s *Server) handleShowPending(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sheet := request.GetString("sheet", "")

	p, ok := s.orch.PendingSheet(sheet)
	if !ok {
		return errorResult(fmt.Errorf("%w: %s", ingest.ErrSheetNotFound, sheet))
	}
	return jsonResult(p)
}

func (s *Server) handleSelectHeaderRow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sheet := request.GetString("sheet", "")
	row := request.GetInt("row", -1)

	if err := s.orch.SelectHeaderRow(sheet, row); err != nil {
		return errorResult(err)
	}
	p, _ := s.orch.PendingSheet(sheet)
	return jsonResult(pendingSummary{
		Sheet:              p.Name,
		PreviewRows:        len(p.PreviewRows),
		SuggestedHeaderRow: p.SuggestedHeaderRow,
		SelectedHeaderRow:  p.SelectedHeaderRow,
	})
}

func (s *Server) handleConfirmSheet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sheet := request.GetString("sheet", "")

	report, err := s.orch.ConfirmSheet(ctx, sheet)
	if errors.Is(err, ingest.ErrStaleResponse) {
		return jsonResult(map[string]any{"discarded": true, "reason": err.Error()})
	}
	if err != nil {
		return errorResult(err)
	}

	_, active := s.orch.ActiveImport()
	return jsonResult(map[string]any{
		"report":        summarizeReport(*report),
		"import_active": active,
	})
}

func (s *Server) handleRemovePendingSheet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sheet := request.GetString("sheet", "")

	if err := s.orch.RemovePendingSheet(sheet); err != nil {
		return errorResult(err)
	}
	_, active := s.orch.ActiveImport()
	return jsonResult(map[string]any{"removed": sheet, "import_active": active})
}

func (s *Server) handleBeginEdit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sheet := request.GetString("sheet", "")

	session, err := s.orch.BeginEdit(sheet)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(viewEdit(session))
}

func (s *Server) handleShowEdit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withEdit(func(*ingest.EditSession) error { return nil })
}

func (s *Server) handleEditInsertRow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	row := request.GetInt("row", -1)

	var args struct {
		Values []string `json:"values"`
	}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse values: %v", err)), nil
	}
	if len(args.Values) > MaxRowValues {
		return mcp.NewToolResultError(fmt.Sprintf("too many values: %d exceeds limit of %d", len(args.Values), MaxRowValues)), nil
	}

	return s.withEdit(func(session *ingest.EditSession) error {
		return session.InsertRow(row, args.Values)
	})
}

func (s *Server) handleEditDeleteRow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	row := request.GetInt("row", -1)
	return s.withEdit(func(session *ingest.EditSession) error {
		return session.DeleteRow(row)
	})
}

func (s *Server) handleEditInsertColumn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	column := request.GetInt("column", -1)
	value := request.GetString("value", "")
	if len(value) > MaxCellLength {
		return mcp.NewToolResultError(fmt.Sprintf("value too long: %d exceeds limit of %d", len(value), MaxCellLength)), nil
	}
	return s.withEdit(func(session *ingest.EditSession) error {
		return session.InsertColumn(column, value)
	})
}

func (s *Server) handleEditDeleteColumn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	column := request.GetInt("column", -1)
	return s.withEdit(func(session *ingest.EditSession) error {
		return session.DeleteColumn(column)
	})
}

func (s *Server) handleEditSetHeader(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	row := request.GetInt("row", -1)
	return s.withEdit(func(session *ingest.EditSession) error {
		return session.SetHeaderRow(row)
	})
}

func (s *Server) handleEditSetCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	row := request.GetInt("row", -1)
	column := request.GetInt("column", -1)
	value := request.GetString("value", "")
	if len(value) > MaxCellLength {
		return mcp.NewToolResultError(fmt.Sprintf("value too long: %d exceeds limit of %d", len(value), MaxCellLength)), nil
	}
	return s.withEdit(func(session *ingest.EditSession) error {
		return session.SetCell(row, column, value)
	})
}

// withEdit applies fn to the open edit session and returns the resulting working copy
func (s *Server) withEdit(fn func(*ingest.EditSession) error) (*mcp.CallToolResult, error) {
	session, ok := s.orch.CurrentEdit()
	if !ok {
		return errorResult(ingest.ErrNoEditSession)
	}
	if err := fn(session); err != nil {
		return errorResult(err)
	}
	return jsonResult(viewEdit(session))
}

func viewEdit(session *ingest.EditSession) editView {
	return editView{
		Sheet:     session.Sheet(),
		HeaderRow: session.HeaderRow(),
		Dirty:     session.Dirty(),
		Grid:      session.Grid(),
	}
}

func (s *Server) handleCommitEdit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.orch.CommitCurrentEdit()
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(p)
}

func (s *Server) handleCancelEdit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.orch.CancelEdit(); err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"cancelled": true})
}

func (s *Server) handleListReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reports := s.orch.Reports()
	out := make([]reportSummary, 0, len(reports))
	for _, r := range reports {
		out = append(out, summarizeReport(r))
	}
	return jsonResult(out)
}

func summarizeReport(r ingest.Report) reportSummary {
	return reportSummary{
		ID:              r.ID,
		DisplayName:     r.DisplayName,
		Columns:         len(r.Columns),
		Rows:            len(r.Rows),
		SummaryExpanded: r.SummaryExpanded,
		ChartExpanded:   r.ChartExpanded,
	}
}

func (s *Server) handleShowReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")

	r, ok := s.orch.Report(id)
	if !ok {
		return errorResult(fmt.Errorf("%w: %s", ingest.ErrReportNotFound, id))
	}

	view := reportView{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		HeaderRow:   r.HeaderRow,
		Columns:     r.Columns,
		Rows:        r.Rows,
	}
	if r.SummaryExpanded {
		view.Summary = r.Summary
	}
	if r.ChartExpanded {
		view.Chart = r.Chart
	}
	return jsonResult(view)
}

func (s *Server) handleToggleSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")

	expanded, err := s.orch.ToggleSummary(id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"id": id, "summary_expanded": expanded})
}

func (s *Server) handleToggleChart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")

	expanded, err := s.orch.ToggleChart(id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"id": id, "chart_expanded": expanded})
}

func (s *Server) handleRemoveReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	confirm := request.GetBool("confirm", false)

	if err := s.orch.RemoveReport(id, confirm); err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"removed": id})
}

func (s *Server) handleExportReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	file := request.GetString("file", "")
	overwrite := request.GetBool("overwrite", false)

	validPath, err := ValidateWritePath(file, overwrite)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.orch.ExportReport(id, validPath, overwrite); err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"id": id, "file": validPath})
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("JSON encoding error: %v", err)), nil
	}

	// Check output size limit
	if len(data) > MaxOutputBytes {
		return mcp.NewToolResultError(fmt.Sprintf("Output too large (%d bytes, max %d bytes).", len(data), MaxOutputBytes)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}
