// Package server implements the coordinator: the HTTP boundary the scraper
// extension talks to, plus the session registry, result queue, and
// close-signal broker behind it. One Coordinator instance owns all of that
// state with an explicit Start/Stop lifecycle, so tests can run several
// isolated coordinators side by side.
package server
