package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/partsync/partsync/internal/config"
	"github.com/partsync/partsync/internal/log"
	"github.com/partsync/partsync/internal/store"
	"github.com/partsync/partsync/internal/vendor"
)

// NewRootCmd creates the root command for partsync.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partsync",
		Short: "Keep a parts pricing record store in sync with vendor pages",
		Long: `partsync coordinates a browser extension that scrapes vendor product
pages with the canonical parts pricing record store. Scraped results are
validated (description, part number, unit, price-change rules) before any
update is committed.

Interactive mode updates one record with the human in the loop. Batch mode
runs unattended over a list of record ids under a hard price-change ceiling.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewUpdateCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra flags and the config file.
// Flag-provided values take precedence over file values over defaults.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	if f := cmd.Flags().Lookup("listen"); f != nil {
		cfg.ListenAddr = f.Value.String()
	}
	if f := cmd.Flags().Lookup("store"); f != nil {
		cfg.StorePath = f.Value.String()
	}
	if f := cmd.Flags().Lookup("config"); f != nil {
		cfg.ConfigFilePath = f.Value.String()
	}
	if f := cmd.Flags().Lookup("wait"); f != nil && f.Changed {
		wait, err := cmd.Flags().GetDuration("wait")
		if err != nil {
			return nil, err
		}
		cfg.ScrapeWait = wait
	}

	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && cfg.ConfigFilePath == "" {
				return cfg, nil
			}
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.Apply(file)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger builds the process logger with scraped-value truncation.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewLogger(os.Stderr, verbose)
}

// vendorTable builds the vendor table from built-ins plus config overrides.
func vendorTable(cfg *config.Config) *vendor.Table {
	if cfg.File != nil {
		return vendor.NewTable(cfg.File.Vendors)
	}
	return vendor.NewTable(nil)
}

// openStore opens the record store: sqlite at the configured path, or the
// XDG data directory default.
func openStore(cfg *config.Config) (store.RecordStore, error) {
	path := cfg.StorePath
	if path == "" {
		path = filepath.Join(config.XDGDataDir(), "partsync.db")
	}
	s, err := store.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	return s, nil
}
