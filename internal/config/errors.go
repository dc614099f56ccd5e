package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoListenAddr is returned when the coordinator listen address is empty.
	ErrNoListenAddr = errors.New("no listen address: set --listen or the listen key in .partsync")

	// ErrInvalidQueueCapacity is returned when the queue capacity is not positive.
	// A zero-capacity queue could never admit a scrape result.
	ErrInvalidQueueCapacity = errors.New("invalid queue capacity: must be positive")

	// ErrInvalidSessionTTL is returned when the session TTL is not positive.
	// A zero TTL would expire every session before its result arrives.
	ErrInvalidSessionTTL = errors.New("invalid session TTL: must be positive")

	// ErrInvalidScrapeWait is returned when the scrape wait is not positive.
	// A zero wait would time out every item immediately.
	ErrInvalidScrapeWait = errors.New("invalid scrape wait: must be positive")

	// ErrInvalidChangeLimit is returned when the batch price-change ceiling
	// is not positive. The ceiling is the safety rail for unattended runs;
	// disabling it is not supported.
	ErrInvalidChangeLimit = errors.New("invalid batch change limit: must be positive")

	// ErrInvalidAlertThresholds is returned when the interactive alert
	// thresholds do not bracket zero (increase must be positive, decrease
	// negative).
	ErrInvalidAlertThresholds = errors.New("invalid alert thresholds: increase must be positive and decrease negative")
)
