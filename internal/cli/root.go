package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/fuabioo/xlreport/internal/config"
	"github.com/fuabioo/xlreport/internal/ctxlog"
	"github.com/fuabioo/xlreport/internal/output"
)

var (
	formatFlag   string
	configFlag   string
	logLevelFlag string

	// settings is loaded before every command runs
	settings = config.Default()
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "xlreport",
	Short: "xlreport - turn spreadsheet sheets into reports",
	Long: `xlreport imports Excel workbooks sheet by sheet. Each sheet is previewed with a
suggested header row; confirmed sheets become reports with a summary and a chart series.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, date string) error {

	// Build version string with commit and date
	versionStr := version
	if versionStr == "" {
		versionStr = "dev"
	}
	if commit != "" {
		versionStr += fmt.Sprintf(" (commit: %s)", commit)
	}
	if date != "" {
		versionStr += fmt.Sprintf(" built: %s", date)
	}

	return fang.Execute(ctx, rootCmd,
		fang.WithVersion(versionStr),
	)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "", "Output format (json, yaml, csv, tsv; default from config: json)")
	rootCmd.PersistentFlags().StringP("basepath", "b", "", "Base directory for relative file paths (env: "+config.EnvBasepath+")")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadSettings layers defaults, the config file, the environment and flags, then
// installs the logger in the command context
func loadSettings(cmd *cobra.Command) error {
	path := configFlag
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if formatFlag != "" {
		cfg.Format = formatFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := output.ParseFormat(cfg.Format); err != nil {
		return err
	}
	settings = cfg

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	return nil
}

// outputFormat returns the effective output format
func outputFormat() output.Format {
	f, _ := output.ParseFormat(settings.Format)
	return f
}
