package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The timing values follow the behavior the browser extension is built
// against; changing them requires a matching extension change.
const (
	// DefaultListenAddr is the coordinator's listen address. The system is
	// designed for a trusted local-only deployment, so we bind loopback
	// rather than all interfaces.
	DefaultListenAddr = "127.0.0.1:5000"

	// DefaultQueueCapacity bounds the result queue. Fifty entries is far
	// more than one consumer works through in a session; beyond that the
	// oldest results are stale anyway and eviction is the right outcome.
	DefaultQueueCapacity = 50

	// DefaultSessionTTL is how long a scrape session may stay open without
	// reaching Closed before it is expired. Thirty minutes covers a
	// user who wanders off mid-review without letting abandoned tabs pin
	// registry memory forever.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultScrapeWait is how long a consumer waits for a session's result
	// before giving up on the item. Vendor pages normally scrape within a
	// few seconds; 15 seconds absorbs slow loads without stalling a batch
	// run on an unresponsive page.
	DefaultScrapeWait = 15 * time.Second

	// DefaultResultPollInterval is how often a blocked consumer re-checks
	// the queue for its session's result.
	DefaultResultPollInterval = 250 * time.Millisecond

	// DefaultStatsInterval is how often serve mode logs coordinator
	// statistics. Session expiry itself is TTL-driven inside the registry.
	DefaultStatsInterval = time.Minute

	// DefaultBatchChangeLimit is the hard price-change ceiling, in percent,
	// for unattended batch commits. A change of exactly this magnitude
	// still commits; anything beyond it is skipped.
	DefaultBatchChangeLimit = 15.0

	// DefaultAlertIncrease and DefaultAlertDecrease are the asymmetric
	// interactive-mode alert thresholds, in percent. Interactive alerts
	// never block; the human decides.
	DefaultAlertIncrease = 20.0
	DefaultAlertDecrease = -10.0

	// DefaultHistoryThreshold is the minimum absolute change, in percent,
	// that triggers a price history append.
	DefaultHistoryThreshold = 1.0

	// AppName is the application name used for XDG directory paths.
	AppName = "partsync"
)

// Config holds all configuration options for partsync.
// This struct is designed to be populated from CLI flags and the config
// file, then passed through the application via dependency injection.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ServerConfig, BatchConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit.
type Config struct {
	// ListenAddr is the coordinator HTTP server's listen address.
	ListenAddr string

	// QueueCapacity bounds the result queue (drop-oldest on overflow).
	QueueCapacity int

	// SessionTTL is the scrape session time-to-live.
	SessionTTL time.Duration

	// ScrapeWait is the bounded per-item wait for a scrape result.
	ScrapeWait time.Duration

	// ResultPollInterval is the queue re-check cadence while waiting.
	ResultPollInterval time.Duration

	// StatsInterval is the cadence of the serve-mode stats log.
	StatsInterval time.Duration

	// BatchChangeLimit is the unattended-commit price change ceiling in
	// percent of absolute change.
	BatchChangeLimit float64

	// AlertIncrease and AlertDecrease are the interactive alert thresholds
	// in percent. Increases at or above AlertIncrease and decreases at or
	// below AlertDecrease are flagged for the human.
	AlertIncrease float64
	AlertDecrease float64

	// HistoryThreshold is the minimum absolute change percent that rolls
	// the old price into the record's history.
	HistoryThreshold float64

	// StorePath is the sqlite record store path. Empty means the XDG data
	// directory default.
	StorePath string

	// Verbose enables slog.LevelDebug output. When false, only info and
	// above are logged.
	Verbose bool

	// ConfigFilePath is the explicit config file path, when the user gave
	// one. Empty means search the usual locations.
	ConfigFilePath string

	// File holds the loaded config file contents (vendor URL overrides and
	// coordinator settings). Populated by LoadConfigFile.
	File *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero (timeouts, thresholds,
// capacities). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		ListenAddr:         DefaultListenAddr,
		QueueCapacity:      DefaultQueueCapacity,
		SessionTTL:         DefaultSessionTTL,
		ScrapeWait:         DefaultScrapeWait,
		ResultPollInterval: DefaultResultPollInterval,
		StatsInterval:      DefaultStatsInterval,
		BatchChangeLimit:   DefaultBatchChangeLimit,
		AlertIncrease:      DefaultAlertIncrease,
		AlertDecrease:      DefaultAlertDecrease,
		HistoryThreshold:   DefaultHistoryThreshold,
	}
}

// XDGDataDir returns the XDG data directory for partsync.
// On Linux: ~/.local/share/partsync
// On macOS: ~/Library/Application Support/partsync
// On Windows: %LOCALAPPDATA%\partsync
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for partsync.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return ErrNoListenAddr
	}
	if c.QueueCapacity <= 0 {
		return ErrInvalidQueueCapacity
	}
	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}
	if c.ScrapeWait <= 0 {
		return ErrInvalidScrapeWait
	}
	if c.BatchChangeLimit <= 0 {
		return ErrInvalidChangeLimit
	}
	if c.AlertIncrease <= 0 || c.AlertDecrease >= 0 {
		return ErrInvalidAlertThresholds
	}
	return nil
}
