package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/core"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/extract"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/hyper"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/logging"
)

type extractFlags struct {
	outDir        string
	workbook      string
	schemas       []string
	suffixPattern string
	hyperd        string
	hyperEndpoint string
	tableTimeout  time.Duration
	jsonOutput    bool
	logLevel      string
}

func newExtractCmd() *cobra.Command {
	var f extractFlags

	cmd := &cobra.Command{
		Use:   "extract <archive.twbx>",
		Short: "Export every eligible table of the archive's extract",
		Long: `extract unpacks a .twbx archive, opens its .hyper extract and writes one
CSV per table of the exported schemas to --out. Tables of other schemas are
listed as skipped. A table that fails is reported and does not stop the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.outDir, "out", "o", ".", "directory the CSV files are written to")
	flags.StringVarP(&f.workbook, "workbook", "w", "", "workbook name used in file names (default: archive name)")
	flags.StringSliceVar(&f.schemas, "schemas", []string{extract.DefaultExportSchema}, "schemas whose tables are exported")
	flags.StringVar(&f.suffixPattern, "suffix-pattern", "", "regular expression for the suffix stripped from table names")
	flags.StringVar(&f.hyperd, "hyperd", hyper.DefaultBinary, "path of the hyperd executable")
	flags.StringVar(&f.hyperEndpoint, "hyper-endpoint", "", "host:port of a running Hyper server; no process is started")
	flags.DurationVar(&f.tableTimeout, "table-timeout", 10*time.Minute, "maximum time spent exporting one table (0 disables)")
	flags.BoolVar(&f.jsonOutput, "json", false, "print the manifest as JSON")
	flags.StringVar(&f.logLevel, "log-level", "warn", "log level written to stderr")
	return cmd
}

func runExtract(ctx context.Context, archive string, f extractFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(archive); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	workbook := f.workbook
	if workbook == "" {
		workbook = core.WorkbookName(archive)
	}

	cleaner, err := extract.NewNameCleaner(f.suffixPattern)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, f.logLevel, "text")

	var spinner *pterm.SpinnerPrinter
	if !f.jsonOutput {
		spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Extracting %s", workbook))
	}

	events := logging.NewEventLogger(logger)
	observer := extract.ObserverFunc(func(ctx context.Context, ev extract.Event) {
		events.Observe(ctx, ev)
		if spinner != nil && ev.Kind == extract.EventExport {
			spinner.UpdateText(fmt.Sprintf("Exported %s.%s (%d rows)", ev.Schema, ev.Table, ev.Rows))
		}
	})

	engine := hyper.NewEngine(hyper.Config{
		BinaryPath: f.hyperd,
		Endpoint:   f.hyperEndpoint,
	})
	reader := extract.NewReader(engine, extract.Options{
		ExportSchemas: f.schemas,
		Cleaner:       cleaner,
		TableTimeout:  f.tableTimeout,
		Observer:      observer,
	})

	outDir, err := filepath.Abs(f.outDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	unpackDir, err := os.MkdirTemp("", "twbx2csv-")
	if err != nil {
		return fmt.Errorf("create unpack dir: %w", err)
	}
	defer os.RemoveAll(unpackDir)

	manifest, err := extract.NewPipeline(reader).Extract(ctx, archive, unpackDir, outDir, workbook)
	if err != nil {
		if spinner != nil {
			spinner.Fail(core.FormatUserError(err))
		}
		return err
	}

	if f.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)
	}

	summary := fmt.Sprintf("%d of %d tables exported to %s", manifest.ExportedCount(), len(manifest.Tables), outDir)
	switch {
	case spinner == nil:
		pterm.Println(summary)
	case manifest.FailedCount() > 0:
		spinner.Warning(summary)
	default:
		spinner.Success(summary)
	}
	if len(manifest.Tables) > 0 {
		if err := pterm.DefaultTable.WithHasHeader().WithData(tableData(manifest)).Render(); err != nil {
			return err
		}
	}
	if n := manifest.FailedCount(); n > 0 {
		return fmt.Errorf("%d table(s) failed to export", n)
	}
	return nil
}

// tableData lays out the manifest as table rows, header first.
func tableData(m *extract.Manifest) [][]string {
	data := [][]string{{"Schema", "Table", "Status", "File"}}
	for _, e := range m.Tables {
		status := "exported"
		switch {
		case e.Skipped:
			status = "skipped"
		case e.Error != "":
			status = "failed: " + e.Error
		case !e.Exported:
			status = "not exported"
		}
		data = append(data, []string{e.Schema, e.Table, status, e.CSVFilename})
	}
	return data
}
