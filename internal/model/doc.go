// Package model defines the core data structures used throughout partsync.
//
// This package contains the following main types:
//   - Record: A canonical pricing record as stored in the record store
//   - Session: One browser tab's scraping engagement, tracked until closed
//   - QueueEntry: One delivered-but-not-yet-consumed scrape result
//   - ValidationResult: The outcome of validating a scrape against a record
//   - BatchRun: The aggregate outcome of an unattended multi-record run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (session, queue, validate, batch, server,
// report) need to use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for the coordinator HTTP
// API and report output.
package model
