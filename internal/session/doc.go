// Package session tracks scrape sessions from the moment the coordinator
// opens a vendor product page until the browser extension confirms the tab
// closed. Sessions expire automatically after a TTL so an extension that
// never reports back cannot leak state across a long-running process.
package session
