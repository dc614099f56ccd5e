// Package store defines the record store contract and provides two
// implementations: an in-memory store for tests and interactive trials, and
// a SQLite-backed store for real deployments. The coordinator treats the
// store as a single-writer resource; updates happen one record at a time and
// a locked store is reported to the caller rather than retried.
package store
