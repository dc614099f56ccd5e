package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/partsync/partsync/internal/browser"
	"github.com/partsync/partsync/internal/config"
	"github.com/partsync/partsync/internal/model"
	"github.com/partsync/partsync/internal/pricehistory"
	"github.com/partsync/partsync/internal/server"
	"github.com/partsync/partsync/internal/store"
	"github.com/partsync/partsync/internal/validate"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Update one record interactively",
		Long: `Update looks up a record, opens its vendor product page for the scraper
extension, waits for the scraped result, and shows the proposed changes.

Price movements at or past the alert thresholds (+20% / -10%) are flagged
but never block: you decide. Validation findings (description mismatch,
part number mismatch) are shown the same way and can be overridden.

Examples:
  # Update one record with confirmation
  partsync update 100-4122

  # Commit without prompting
  partsync update 100-4122 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: runUpdateCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr,
		"Coordinator listen address")
	cmd.Flags().StringP("store", "s", "",
		"Record store path (default: partsync data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .partsync in current or home directory)")
	cmd.Flags().DurationP("wait", "w", config.DefaultScrapeWait,
		"How long to wait for the scrape result")
	cmd.Flags().BoolP("yes", "y", false,
		"Commit without asking for confirmation")

	return cmd
}

// runUpdateCmd executes the update command.
func runUpdateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	recordStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = recordStore.Close() }()

	skipConfirm, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coordinator := server.NewCoordinator(cfg,
		server.WithLogger(logger),
		server.WithMetrics(server.NewMetrics()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coordinator.Start(gctx)
	})
	g.Go(func() error {
		defer stop()
		return updateRecord(gctx, cmd, updateDeps{
			cfg:         cfg,
			coordinator: coordinator,
			store:       recordStore,
			opener:      browser.NewExecOpener(),
			logger:      logger,
			skipConfirm: skipConfirm,
			recordID:    args[0],
		})
	})
	return g.Wait()
}

// updateDeps bundles the collaborators of the interactive flow.
type updateDeps struct {
	cfg         *config.Config
	coordinator *server.Coordinator
	store       store.RecordStore
	opener      browser.Opener
	logger      *slog.Logger
	skipConfirm bool
	recordID    string
}

// updateRecord drives one interactive record update.
func updateRecord(ctx context.Context, cmd *cobra.Command, deps updateDeps) error {
	out := cmd.OutOrStdout()
	vendors := vendorTable(deps.cfg)
	engine := validate.NewEngine(vendors,
		validate.WithLogger(deps.logger),
		validate.WithChangeLimit(deps.cfg.BatchChangeLimit),
		validate.WithAlertThresholds(deps.cfg.AlertIncrease, deps.cfg.AlertDecrease),
	)

	record, err := deps.store.Find(ctx, deps.recordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no record found for id %s", deps.recordID)
		}
		return err
	}

	if !vendors.IsAuto(record.Vendor) {
		fmt.Fprintf(out, "Vendor %q is not auto-scraped; update this record manually.\n", record.Vendor)
		return nil
	}

	url, err := vendors.ProductURL(record.Vendor, record.VendorPartNumber)
	if err != nil {
		return err
	}

	sess := deps.coordinator.OpenSession(record.ID, record.Vendor, url)
	defer deps.coordinator.FinishSession(sess.ID)

	fmt.Fprintf(out, "Opening %s\n", url)
	if err := deps.opener.Open(ctx, url+"#partsync-session="+sess.ID); err != nil {
		return err
	}

	entry, err := deps.coordinator.AwaitResult(ctx, sess.ID, deps.cfg.ScrapeWait)
	if err != nil {
		if errors.Is(err, server.ErrAwaitTimeout) {
			return fmt.Errorf("no scrape result within %s; is the extension installed and the page loaded?", deps.cfg.ScrapeWait)
		}
		return err
	}

	result := engine.ValidateInteractive(record, entry)
	printProposal(out, record, result)

	switch engine.Alert(result) {
	case validate.AlertIncrease:
		fmt.Fprintf(out, "\nALERT: price increased %.2f%%\n", result.ChangePercent)
	case validate.AlertDecrease:
		fmt.Fprintf(out, "\nALERT: price decreased %.2f%%\n", result.ChangePercent)
	}

	if result.Updated == nil {
		fmt.Fprintln(out, "\nNothing to commit: no usable price was scraped.")
		return nil
	}

	if !deps.skipConfirm {
		ok, err := confirm(cmd.InOrStdin(), out, "Commit this update?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted; record unchanged.")
			return nil
		}
	}

	pricehistory.NewWithThreshold(deps.cfg.HistoryThreshold).
		Apply(result.Updated, record, result.ChangePercent, result.HasChange)

	if err := deps.store.Upsert(ctx, result.Updated); err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("record store is open elsewhere; close it and retry: %w", err)
		}
		return err
	}

	fmt.Fprintf(out, "Committed %s: %s -> %s\n", record.ID, record.UnitPrice, result.Updated.UnitPrice)
	return nil
}

// printProposal shows the scraped values next to the current record.
func printProposal(out io.Writer, record *model.Record, result model.ValidationResult) {
	fmt.Fprintf(out, "\nRecord %s (%s)\n", record.ID, record.Vendor)

	if result.Verdict == model.VerdictSkipped {
		fmt.Fprintf(out, "WARNING: %s\n", result.Reason)
	}

	if result.Updated == nil {
		return
	}

	rows := []struct{ name, current, proposed string }{
		{"Description", record.Description, result.Updated.Description},
		{"MFR Part #", record.MfrPartNumber, result.Updated.MfrPartNumber},
		{"Unit", record.Unit, result.Updated.Unit},
		{"Unit Price", record.UnitPrice, result.Updated.UnitPrice},
	}
	for _, row := range rows {
		marker := " "
		if row.current != row.proposed {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s %-12s %-30q -> %q\n", marker, row.name, row.current, row.proposed)
	}
	if result.HasChange {
		fmt.Fprintf(out, "  Change: %+.2f%%\n", result.ChangePercent)
	}
}

// confirm asks a yes/no question on the terminal. Only an explicit yes
// commits.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "\n%s [y/N]: ", question)

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
