package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/partsync/partsync/internal/batch"
	"github.com/partsync/partsync/internal/browser"
	"github.com/partsync/partsync/internal/config"
	"github.com/partsync/partsync/internal/model"
	"github.com/partsync/partsync/internal/pricehistory"
	"github.com/partsync/partsync/internal/report"
	"github.com/partsync/partsync/internal/server"
	"github.com/partsync/partsync/internal/validate"
)

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [record-id]...",
		Short: "Update a list of records unattended",
		Long: `Batch processes record ids strictly sequentially: for each id it opens
the vendor page, waits for the scrape result, validates it, and commits only
updates that pass every rule including the hard price-change ceiling
(|change| <= 15%). Items that fail are skipped and reported; nothing stops
the run except Ctrl-C, which takes effect at the next item boundary.

Examples:
  # Update three records
  partsync batch 100-4122 100-8871 200-1040

  # Read record ids from a file (one per line, # comments)
  partsync batch --list ids.txt

  # Write a markdown report
  partsync batch --list ids.txt --markdown --output reports/run.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runBatchCmd,
	}

	cmd.Flags().StringP("list", "L", "",
		"File with record ids, one per line")
	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr,
		"Coordinator listen address")
	cmd.Flags().StringP("store", "s", "",
		"Record store path (default: partsync data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .partsync in current or home directory)")
	cmd.Flags().DurationP("wait", "w", config.DefaultScrapeWait,
		"How long to wait for each scrape result")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runBatchCmd executes the batch command.
func runBatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ids, err := collectIDs(cmd, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no record ids given: pass them as arguments or via --list")
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	recordStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = recordStore.Close() }()

	vendors := vendorTable(cfg)
	engine := validate.NewEngine(vendors,
		validate.WithLogger(logger),
		validate.WithChangeLimit(cfg.BatchChangeLimit),
		validate.WithAlertThresholds(cfg.AlertIncrease, cfg.AlertDecrease),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coordinator := server.NewCoordinator(cfg,
		server.WithLogger(logger),
		server.WithMetrics(server.NewMetrics()),
	)

	orchestrator := batch.New(
		coordinator,
		recordStore,
		engine,
		pricehistory.NewWithThreshold(cfg.HistoryThreshold),
		vendors,
		browser.NewExecOpener(),
		batch.WithLogger(logger),
		batch.WithScrapeWait(cfg.ScrapeWait),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coordinator.Start(gctx)
	})

	var runErr error
	g.Go(func() error {
		defer stop()
		run := orchestrator.Run(gctx, ids)
		runErr = writeRunReport(cmd, run)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return runErr
}

// collectIDs merges positional record ids with the --list file contents,
// preserving order: list file first, then arguments.
func collectIDs(cmd *cobra.Command, args []string) ([]string, error) {
	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}

	var ids []string
	if listPath != "" {
		f, err := os.Open(listPath) //nolint:gosec // User-provided list path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to open id list: %w", err)
		}
		defer func() { _ = f.Close() }()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			ids = append(ids, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read id list: %w", err)
		}
	}

	for _, arg := range args {
		if id := strings.TrimSpace(arg); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// writeRunReport renders the run in the selected format to stdout and, when
// --output is set, to the report file as well.
func writeRunReport(cmd *cobra.Command, run *model.BatchRun) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if asJSON && asMarkdown {
		return fmt.Errorf("--json and --markdown are mutually exclusive")
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	newWriter := func(w io.Writer) report.Writer {
		switch {
		case asJSON:
			return report.NewJSONWriter(w, report.WithPrettyPrint())
		case asMarkdown:
			return report.NewMarkdownWriter(w)
		default:
			return report.NewSimpleWriter(w)
		}
	}

	writers := []report.Writer{newWriter(cmd.OutOrStdout())}
	if outputPath != "" {
		f, err := report.CreateOutputFile(outputPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		writers = append(writers, newWriter(f))
	}

	if _, err := report.NewMultiWriter(writers...).Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
