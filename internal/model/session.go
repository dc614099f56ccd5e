package model

import (
	"sync/atomic"
	"time"
)

// SessionState represents where a scrape session is in its lifecycle.
//
// Design decision: We use iota-based constants rather than string constants
// so monotonicity can be enforced with a simple ordering comparison. The
// String() method provides human-readable output for logs.
type SessionState int

const (
	// SessionRegistered means the tab has been opened and the session id
	// issued, but no result has arrived yet.
	SessionRegistered SessionState = iota

	// SessionAwaitingResult means a consumer is actively waiting on this
	// session's result (batch mode sets this while blocked on the queue).
	SessionAwaitingResult

	// SessionDelivered means the scraper agent posted a result for this
	// session and it was admitted to the queue.
	SessionDelivered

	// SessionCloseRequested means the consumer is done with the session and
	// the tab should close on its next poll.
	SessionCloseRequested

	// SessionClosed means the agent confirmed the tab closed.
	SessionClosed

	// SessionExpired means the session exceeded its TTL without closing and
	// was removed from the registry.
	SessionExpired
)

// String returns a human-readable representation of the session state.
func (s SessionState) String() string {
	switch s {
	case SessionRegistered:
		return "registered"
	case SessionAwaitingResult:
		return "awaiting_result"
	case SessionDelivered:
		return "delivered"
	case SessionCloseRequested:
		return "close_requested"
	case SessionClosed:
		return "closed"
	case SessionExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session tracks one browser tab engaged in scraping one record.
// Exactly one Session exists per open tab; the session registry owns all
// Session values and enforces monotonic state transitions.
type Session struct {
	// ID is the opaque unique identifier assigned at registration.
	ID string `json:"sessionId"`

	// RecordID is the record this tab is scraping for.
	RecordID string `json:"recordId"`

	// Vendor is the vendor whose page the tab has open.
	Vendor string `json:"vendor"`

	// URL is the vendor product page URL the tab was opened to.
	URL string `json:"url"`

	// OpenedAt is when the session was registered. Sessions older than the
	// registry TTL that never reached Closed are expired.
	OpenedAt time.Time `json:"openedAt"`

	// state is the current lifecycle state, held atomically: the registry's
	// TTL reaper reads and writes it from its own goroutine, concurrently
	// with consumer-driven transitions. The zero value is SessionRegistered.
	state atomic.Int32
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// SetState records a lifecycle state unconditionally. Callers that must not
// regress a concurrent transition use CompareAndSwapState instead.
func (s *Session) SetState(state SessionState) {
	s.state.Store(int32(state))
}

// CompareAndSwapState moves the session from one state to another, reporting
// whether the swap happened. A transition racing a TTL expiry resolves to
// exactly one winner.
func (s *Session) CompareAndSwapState(from, to SessionState) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// QueueEntry is one delivered scrape result awaiting consumption.
// Ownership transfers from the result queue to the consumer on dequeue.
type QueueEntry struct {
	// SessionID binds the entry to the session whose tab produced it.
	SessionID string `json:"sessionId"`

	// RecordID is the record the scrape was requested for.
	RecordID string `json:"recordId"`

	// Vendor is the vendor the agent scraped.
	Vendor string `json:"vendor"`

	// Fields maps scraped field names (description, price, unit, mfrNumber,
	// brand, partNumber, qty) to raw string values. Fields the agent could
	// not locate carry NotFoundSentinel.
	Fields map[string]string `json:"fields"`

	// CapturedAt is when the coordinator accepted the result.
	CapturedAt time.Time `json:"capturedAt"`
}

// Field returns the named scraped field, or NotFoundSentinel when the agent
// did not report it at all. Absent and not-found fields are equivalent to
// every downstream consumer.
func (e *QueueEntry) Field(name string) string {
	if v, ok := e.Fields[name]; ok {
		return v
	}
	return NotFoundSentinel
}
