package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fuabioo/xlreport/internal/output"
)

type sheetInfo struct {
	Sheet              string `json:"sheet" yaml:"sheet"`
	SuggestedHeaderRow *int   `json:"suggested_header_row,omitempty" yaml:"suggested_header_row,omitempty"`
	PreviewRows        int    `json:"preview_rows" yaml:"preview_rows"`
	Error              string `json:"error,omitempty" yaml:"error,omitempty"`
}

var sheetsCmd = &cobra.Command{
	Use:   "sheets <file.xlsx>",
	Short: "List the sheets of a workbook with their suggested header rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, h, err := startImport(cmd, args[0])
		if err != nil {
			return err
		}

		infos := make([]sheetInfo, 0, len(h.SheetNames))
		for _, name := range h.SheetNames {
			info := sheetInfo{Sheet: name}
			if p, ok := orch.PendingSheet(name); ok {
				suggested := p.SuggestedHeaderRow
				info.SuggestedHeaderRow = &suggested
				info.PreviewRows = len(p.PreviewRows)
			} else if ferr, failed := h.Failures[name]; failed {
				info.Error = ferr.Error()
			}
			infos = append(infos, info)
		}

		if !outputFormat().Tabular() {
			return output.Print(os.Stdout, infos, string(outputFormat()))
		}

		table := output.Table{Columns: []string{"sheet", "suggested_header_row", "preview_rows", "error"}}
		for _, info := range infos {
			suggested := ""
			if info.SuggestedHeaderRow != nil {
				suggested = strconv.Itoa(*info.SuggestedHeaderRow)
			}
			table.Rows = append(table.Rows, []string{info.Sheet, suggested, strconv.Itoa(info.PreviewRows), info.Error})
		}
		return output.PrintTables(os.Stdout, []output.Table{table}, string(outputFormat()))
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}
