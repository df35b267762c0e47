package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fuabioo/xlreport/internal/ctxlog"
	"github.com/fuabioo/xlreport/internal/ingest"
	"github.com/fuabioo/xlreport/internal/output"
	"github.com/fuabioo/xlreport/internal/xlsx"
)

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Confirm sheets of a workbook and print the resulting reports",
	Long: `Import previews every sheet, applies the header rows given with --header (the suggested
row otherwise) and confirms each remaining sheet into a report.

Examples:
  xlreport import Q1.xlsx
  xlreport import Q1.xlsx --sheet Jan --header Jan=2
  xlreport import Q1.xlsx --skip Notes --export ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		only, err := cmd.Flags().GetStringArray("sheet")
		if err != nil {
			return fmt.Errorf("failed to get sheet flag: %w", err)
		}
		skip, err := cmd.Flags().GetStringArray("skip")
		if err != nil {
			return fmt.Errorf("failed to get skip flag: %w", err)
		}
		headerSpecs, err := cmd.Flags().GetStringArray("header")
		if err != nil {
			return fmt.Errorf("failed to get header flag: %w", err)
		}
		exportDir, err := cmd.Flags().GetString("export")
		if err != nil {
			return fmt.Errorf("failed to get export flag: %w", err)
		}
		overwrite, err := cmd.Flags().GetBool("overwrite")
		if err != nil {
			return fmt.Errorf("failed to get overwrite flag: %w", err)
		}

		headers, err := parseHeaderSpecs(headerSpecs)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		logger := ctxlog.FromContext(ctx)

		orch, h, err := startImport(cmd, args[0])
		if err != nil {
			return err
		}
		for _, name := range only {
			if !slices.Contains(h.SheetNames, name) {
				_ = orch.CancelImport()
				return fmt.Errorf("--sheet %s: %w", name, xlsx.ErrSheetNotFound)
			}
		}

		var drop []string
		for _, p := range orch.Pending() {
			excluded := len(only) > 0 && !slices.Contains(only, p.Name)
			if excluded || slices.Contains(skip, p.Name) {
				drop = append(drop, p.Name)
			}
		}
		if err := dropSheets(orch, drop); err != nil {
			return err
		}
		for sheet, row := range headers {
			if err := orch.SelectHeaderRow(sheet, row); err != nil {
				_ = orch.CancelImport()
				return fmt.Errorf("--header %s=%d: %w", sheet, row, err)
			}
		}

		var failed []error
		for _, p := range orch.Pending() {
			if _, err := orch.ConfirmSheet(ctx, p.Name); err != nil {
				logger.Warn("sheet not imported", "sheet", p.Name, "error", err)
				failed = append(failed, err)
			}
		}

		reports := orch.Reports()
		if exportDir != "" {
			if err := exportReports(orch, reports, ResolveFilePath(GetBasepathFromCmd(cmd), exportDir), overwrite); err != nil {
				return err
			}
		}

		if err := printReports(reports); err != nil {
			return err
		}
		return errors.Join(failed...)
	},
}

// parseHeaderSpecs parses Sheet=N pairs. The last '=' separates the row so sheet
// names may contain '='.
func parseHeaderSpecs(specs []string) (map[string]int, error) {
	headers := make(map[string]int, len(specs))
	for _, spec := range specs {
		i := strings.LastIndex(spec, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid --header %q: expected Sheet=N", spec)
		}
		row, err := strconv.Atoi(spec[i+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid --header %q: row must be a number", spec)
		}
		headers[spec[:i]] = row
	}
	return headers, nil
}

// dropSheets removes sheets from the import. The whole import is cancelled when one of
// them cannot be removed.
func dropSheets(orch *ingest.Orchestrator, names []string) error {
	for _, name := range names {
		if err := orch.RemovePendingSheet(name); err != nil {
			_ = orch.CancelImport()
			return fmt.Errorf("failed to drop sheet %s: %w", name, err)
		}
	}
	return nil
}

func exportReports(orch *ingest.Orchestrator, reports []ingest.Report, dir string, overwrite bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	for _, r := range reports {
		if err := orch.ExportReport(r.ID, filepath.Join(dir, exportFileName(r)), overwrite); err != nil {
			return err
		}
	}
	return nil
}

// exportFileName is "<workbook stem>-<sheet>.xlsx"
func exportFileName(r ingest.Report) string {
	stem := strings.TrimSuffix(r.SourceFile, filepath.Ext(r.SourceFile))
	return fmt.Sprintf("%s-%s.xlsx", stem, xlsx.SanitizeSheetName(r.SheetName))
}

func printReports(reports []ingest.Report) error {
	if !outputFormat().Tabular() {
		return output.Print(os.Stdout, reports, string(outputFormat()))
	}

	tables := make([]output.Table, 0, len(reports))
	for _, r := range reports {
		tables = append(tables, output.Table{Title: r.DisplayName, Columns: r.Columns, Rows: r.Rows})
	}
	return output.PrintTables(os.Stdout, tables, string(outputFormat()))
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringArray("sheet", nil, "Only import this sheet (repeatable)")
	importCmd.Flags().StringArray("skip", nil, "Do not import this sheet (repeatable)")
	importCmd.Flags().StringArray("header", nil, "Header row for a sheet as Sheet=N, 0-based (repeatable)")
	importCmd.Flags().String("export", "", "Also save each report as an xlsx file in this directory")
	importCmd.Flags().Bool("overwrite", false, "Allow overwriting existing export files")
}
