// Package main provides the entry point for the partsync CLI.
//
// partsync keeps a parts pricing record store in sync with vendor product
// pages. A browser extension scrapes the pages and posts the results to a
// local coordinator server; partsync validates them and commits safe
// updates, one record at a time or over an unattended batch.
//
// Usage:
//
//	partsync update <record-id>
//	partsync batch <record-id>... [--list file]
//	partsync serve
//
// See --help for all available options.
package main

// main is the entry point for partsync.
func main() {
	Execute()
}
