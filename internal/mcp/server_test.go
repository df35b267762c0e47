package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fuabioo/xlreport/internal/config"
	"github.com/fuabioo/xlreport/internal/testutil"
)

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// newTestServer returns a server restricted to a fresh temp dir holding Q1.xlsx
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	originalPaths := AllowedBasePaths
	t.Cleanup(func() { AllowedBasePaths = originalPaths })

	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "Q1.xlsx", testutil.Q1Sheets()...)

	cfg := config.Default()
	cfg.AllowedPaths = []string{dir}
	return New(cfg, nil), dir
}

func createMockRequest(tool string, params map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = params
	return req
}

func call(t *testing.T, handler toolHandler, params map[string]any) (string, bool) {
	t.Helper()

	result, err := handler(context.Background(), createMockRequest("test", params))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatal("handler returned empty result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text, result.IsError
}

func mustCall(t *testing.T, handler toolHandler, params map[string]any, out any) {
	t.Helper()

	text, isError := call(t, handler, params)
	if isError {
		t.Fatalf("tool failed: %s", text)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("failed to decode %s: %v", text, err)
		}
	}
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	if srv.mcpServer == nil {
		t.Error("mcpServer is nil")
	}
	if srv.orch == nil {
		t.Error("orchestrator is nil")
	}
}

func TestImportAndConfirmFlow(t *testing.T) {
	srv, dir := newTestServer(t)

	var started struct {
		SheetNames []string         `json:"sheet_names"`
		Pending    []pendingSummary `json:"pending"`
	}
	mustCall(t, srv.handleStartImport, map[string]any{"file": filepath.Join(dir, "Q1.xlsx")}, &started)

	if strings.Join(started.SheetNames, ",") != "Jan,Feb" {
		t.Fatalf("sheet_names = %v", started.SheetNames)
	}
	if len(started.Pending) != 2 || started.Pending[0].SuggestedHeaderRow != 2 {
		t.Fatalf("pending = %+v", started.Pending)
	}

	if _, isError := call(t, srv.handleStartImport, map[string]any{"file": filepath.Join(dir, "Q1.xlsx")}); !isError {
		t.Error("second import should be rejected while sheets are pending")
	}

	if text, isError := call(t, srv.handleSelectHeaderRow, map[string]any{"sheet": "Jan", "row": 9}); !isError {
		t.Errorf("out of range header row accepted: %s", text)
	}

	var confirmed struct {
		Report       reportSummary `json:"report"`
		ImportActive bool          `json:"import_active"`
	}
	mustCall(t, srv.handleConfirmSheet, map[string]any{"sheet": "Jan"}, &confirmed)
	if confirmed.Report.DisplayName != "Q1.xlsx - Jan" {
		t.Errorf("display_name = %q", confirmed.Report.DisplayName)
	}
	if confirmed.Report.Rows != 2 || confirmed.Report.Columns != 3 {
		t.Errorf("report shape = %+v", confirmed.Report)
	}
	if !confirmed.ImportActive {
		t.Error("import should stay active while Feb is pending")
	}

	if _, isError := call(t, srv.handleConfirmSheet, map[string]any{"sheet": "Jan"}); !isError {
		t.Error("confirming Jan twice should fail")
	}

	var pending []pendingSummary
	mustCall(t, srv.handleListPending, nil, &pending)
	if len(pending) != 1 || pending[0].Sheet != "Feb" {
		t.Errorf("pending after confirm = %+v", pending)
	}

	var reports []reportSummary
	mustCall(t, srv.handleListReports, nil, &reports)
	if len(reports) != 1 {
		t.Fatalf("reports = %+v", reports)
	}
	id := reports[0].ID

	var view reportView
	mustCall(t, srv.handleShowReport, map[string]any{"id": id}, &view)
	if view.Summary != "" || view.Chart != nil {
		t.Error("summary and chart should be collapsed by default")
	}

	mustCall(t, srv.handleToggleSummary, map[string]any{"id": id}, nil)
	mustCall(t, srv.handleToggleChart, map[string]any{"id": id}, nil)
	mustCall(t, srv.handleShowReport, map[string]any{"id": id}, &view)
	if !strings.HasPrefix(view.Summary, "2 rows x 3 columns") {
		t.Errorf("summary = %q", view.Summary)
	}
	if len(view.Chart) != 2 || view.Chart[0].Label != "North" || view.Chart[0].Value != 10 {
		t.Errorf("chart = %+v", view.Chart)
	}

	if _, isError := call(t, srv.handleRemoveReport, map[string]any{"id": id}); !isError {
		t.Error("removal without confirm should fail")
	}
	mustCall(t, srv.handleRemoveReport, map[string]any{"id": id, "confirm": true}, nil)
	if _, isError := call(t, srv.handleShowReport, map[string]any{"id": id}); !isError {
		t.Error("removed report still visible")
	}

	var removed struct {
		ImportActive bool `json:"import_active"`
	}
	mustCall(t, srv.handleRemovePendingSheet, map[string]any{"sheet": "Feb"}, &removed)
	if removed.ImportActive {
		t.Error("import should end once nothing is pending")
	}
}

func TestEditTools(t *testing.T) {
	srv, dir := newTestServer(t)
	mustCall(t, srv.handleStartImport, map[string]any{"file": filepath.Join(dir, "Q1.xlsx")}, nil)

	if _, isError := call(t, srv.handleShowEdit, nil); !isError {
		t.Error("show_edit without a session should fail")
	}

	var view editView
	mustCall(t, srv.handleBeginEdit, map[string]any{"sheet": "Feb"}, &view)
	if view.Sheet != "Feb" || view.HeaderRow != 0 || view.Dirty {
		t.Fatalf("begin_edit = %+v", view)
	}

	if _, isError := call(t, srv.handleBeginEdit, map[string]any{"sheet": "Jan"}); !isError {
		t.Error("second edit session should be rejected")
	}

	mustCall(t, srv.handleEditInsertRow, map[string]any{"row": 0, "values": []any{"February"}}, &view)
	if view.HeaderRow != 1 || !view.Dirty {
		t.Errorf("after insert = %+v", view)
	}

	mustCall(t, srv.handleEditInsertColumn, map[string]any{"column": 0, "value": "#"}, &view)
	mustCall(t, srv.handleEditSetCell, map[string]any{"row": 1, "column": 0, "value": "Id"}, &view)
	mustCall(t, srv.handleEditDeleteColumn, map[string]any{"column": 2}, &view)
	if got := strings.Join(view.Grid[1], ","); got != "Id,Region" {
		t.Errorf("header row = %q", got)
	}

	if _, isError := call(t, srv.handleConfirmSheet, map[string]any{"sheet": "Feb"}); !isError {
		t.Error("confirm with unsaved edits should fail")
	}

	var committed struct {
		PreviewRows       [][]string `json:"preview_rows"`
		SelectedHeaderRow int        `json:"selected_header_row"`
	}
	mustCall(t, srv.handleCommitEdit, nil, &committed)
	if committed.SelectedHeaderRow != 1 || committed.PreviewRows[0][1] != "February" {
		t.Errorf("committed = %+v", committed)
	}
	if _, isError := call(t, srv.handleCommitEdit, nil); !isError {
		t.Error("commit_edit without a session should fail")
	}

	// the report is built from the edited grid, not the raw sheet
	var confirmed struct {
		Report reportSummary `json:"report"`
	}
	mustCall(t, srv.handleConfirmSheet, map[string]any{"sheet": "Feb"}, &confirmed)
	var feb reportView
	mustCall(t, srv.handleShowReport, map[string]any{"id": confirmed.Report.ID}, &feb)
	if got := strings.Join(feb.Columns, ","); got != "Id,Region" {
		t.Errorf("report columns = %q", got)
	}
	if len(feb.Rows) != 2 || strings.Join(feb.Rows[0], ",") != "#,East" {
		t.Errorf("report rows = %v", feb.Rows)
	}

	mustCall(t, srv.handleBeginEdit, map[string]any{"sheet": "Jan"}, nil)
	mustCall(t, srv.handleEditDeleteRow, map[string]any{"row": 0}, &view)
	if view.HeaderRow != 1 {
		t.Errorf("header after delete = %d", view.HeaderRow)
	}
	mustCall(t, srv.handleCancelEdit, nil, nil)

	var jan struct {
		PreviewRows       [][]string `json:"preview_rows"`
		SelectedHeaderRow int        `json:"selected_header_row"`
	}
	mustCall(t, srv.handleShowPending, map[string]any{"sheet": "Jan"}, &jan)
	if len(jan.PreviewRows) != 5 || jan.SelectedHeaderRow != 2 {
		t.Errorf("cancelled edit changed Jan: %+v", jan)
	}

	mustCall(t, srv.handleCancelImport, nil, nil)
	if _, isError := call(t, srv.handleCancelImport, nil); !isError {
		t.Error("cancel without import should fail")
	}
}

func TestExportReport(t *testing.T) {
	srv, dir := newTestServer(t)
	mustCall(t, srv.handleStartImport, map[string]any{"file": filepath.Join(dir, "Q1.xlsx")}, nil)

	var confirmed struct {
		Report reportSummary `json:"report"`
	}
	mustCall(t, srv.handleConfirmSheet, map[string]any{"sheet": "Feb"}, &confirmed)

	dest := filepath.Join(dir, "feb.xlsx")
	params := map[string]any{"id": confirmed.Report.ID, "file": dest}
	mustCall(t, srv.handleExportReport, params, nil)
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("export not written: %v", err)
	}

	if text, isError := call(t, srv.handleExportReport, params); !isError || !strings.Contains(text, "already exists") {
		t.Errorf("export over existing file: %s", text)
	}

	params["overwrite"] = true
	mustCall(t, srv.handleExportReport, params, nil)
}

func TestStartImportRejectsPaths(t *testing.T) {
	srv, dir := newTestServer(t)

	outside := t.TempDir()
	testutil.WriteWorkbook(t, outside, "secret.xlsx", testutil.DataSheet())

	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		file    string
		wantMsg string
	}{
		{"outside allowed dir", filepath.Join(outside, "secret.xlsx"), "access denied"},
		{"traversal", filepath.Join(dir, "..", filepath.Base(outside), "secret.xlsx"), "access denied"},
		{"missing", filepath.Join(dir, "missing.xlsx"), "file not found"},
		{"not a workbook", notes, "unreadable spreadsheet file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError := call(t, srv.handleStartImport, map[string]any{"file": tt.file})
			if !isError {
				t.Fatalf("expected error, got %s", text)
			}
			if !strings.Contains(text, tt.wantMsg) {
				t.Errorf("error %q does not contain %q", text, tt.wantMsg)
			}
		})
	}
}

func TestJsonResult(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		isError bool
	}{
		{name: "simple string slice", input: []string{"a", "b", "c"}},
		{name: "map", input: map[string]string{"key": "value"}},
		{name: "nil", input: nil},
		{name: "unencodable", input: make(chan int), isError: true},
		{name: "too large", input: strings.Repeat("x", MaxOutputBytes), isError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := jsonResult(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError != tt.isError {
				t.Errorf("IsError = %v, want %v", result.IsError, tt.isError)
			}
		})
	}
}
