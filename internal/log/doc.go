// Package log provides slog handler helpers for partsync.
//
// Scraped payloads routinely carry multi-kilobyte description text and the
// coordinator logs them at debug level for troubleshooting, so the package
// wraps the standard text/JSON handlers with a TruncatingHandler that caps
// oversized string attribute values before they hit the terminal.
package log
