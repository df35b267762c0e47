package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fuabioo/xlreport/internal/ingest"
	"github.com/fuabioo/xlreport/internal/output"
	"github.com/fuabioo/xlreport/internal/xlsx"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file.xlsx> [sheet]",
	Short: "Show the first rows of each sheet and the suggested header row",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, err := startImport(cmd, args[0])
		if err != nil {
			return err
		}

		pending := orch.Pending()
		if len(args) == 2 {
			p, ok := orch.PendingSheet(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", ingest.ErrSheetNotFound, args[1])
			}
			pending = []ingest.PendingSheet{p}
		}

		if !outputFormat().Tabular() {
			return output.Print(os.Stdout, pending, string(outputFormat()))
		}

		tables := make([]output.Table, 0, len(pending))
		for _, p := range pending {
			tables = append(tables, previewTable(p))
		}
		return output.PrintTables(os.Stdout, tables, string(outputFormat()))
	},
}

// previewTable lays a preview out like a spreadsheet: row indexes down the
// first column and column letters across the top
func previewTable(p ingest.PendingSheet) output.Table {
	width := 0
	for _, row := range p.PreviewRows {
		width = max(width, len(row))
	}

	columns := make([]string, 0, width+1)
	columns = append(columns, "#")
	for i := 1; i <= width; i++ {
		columns = append(columns, xlsx.ColumnNumberToName(i))
	}

	rows := make([][]string, 0, len(p.PreviewRows))
	for i, row := range p.PreviewRows {
		rows = append(rows, append([]string{strconv.Itoa(i)}, xlsx.FitRow(row, width)...))
	}

	return output.Table{
		Title:   fmt.Sprintf("%s (suggested header row %d)", p.Name, p.SuggestedHeaderRow),
		Columns: columns,
		Rows:    rows,
	}
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
