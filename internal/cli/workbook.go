package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fuabioo/xlreport/internal/ctxlog"
	"github.com/fuabioo/xlreport/internal/ingest"
	"github.com/fuabioo/xlreport/internal/service"
	"github.com/fuabioo/xlreport/internal/xlsx"
)

// readWorkbook loads the file named on the command line
func readWorkbook(cmd *cobra.Command, arg string) (*service.File, error) {
	path := ResolveFilePath(GetBasepathFromCmd(cmd), arg)
	data, err := xlsx.ReadFile(path, settings.MaxFileSize)
	if err != nil {
		return nil, err
	}
	return service.NewFile(filepath.Base(path), data), nil
}

func newOrchestrator(ctx context.Context) *ingest.Orchestrator {
	svc := service.NewLocal(
		service.WithPreviewRows(settings.PreviewRows),
		service.WithCacheEntries(settings.CacheEntries),
	)
	return ingest.New(svc,
		ingest.WithLogger(ctxlog.FromContext(ctx)),
		ingest.WithPreviewConcurrency(settings.PreviewConcurrency),
		ingest.WithPreviewLimit(settings.PreviewRows),
	)
}

// startImport reads the workbook and previews all of its sheets
func startImport(cmd *cobra.Command, arg string) (*ingest.Orchestrator, *ingest.ImportHandle, error) {
	file, err := readWorkbook(cmd, arg)
	if err != nil {
		return nil, nil, err
	}

	orch := newOrchestrator(cmd.Context())
	h, err := orch.StartImport(cmd.Context(), file)
	if err != nil {
		return nil, nil, err
	}
	return orch, h, nil
}
