package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fuabioo/xlreport/internal/ctxlog"
	"github.com/fuabioo/xlreport/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server (stdio)",
	Long:  `Run xlreport as a Model Context Protocol server using stdio transport.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		allowedPaths, err := cmd.Flags().GetStringSlice("allowed-paths")
		if err != nil {
			return fmt.Errorf("failed to get allowed-paths flag: %w", err)
		}

		cfg := *settings
		if len(allowedPaths) > 0 {
			// CLI flag takes precedence over config and XLREPORT_ALLOWED_PATHS
			cfg.AllowedPaths = allowedPaths
		}

		srv := mcp.New(&cfg, ctxlog.FromContext(cmd.Context()))
		return srv.Run()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringSlice("allowed-paths", nil,
		"Directories to allow file access (comma-separated, e.g. --allowed-paths /tmp,/data)")
}
