package broker

import (
	"log/slog"
	"sync"
)

// Broker tracks which sessions have been asked to close their tab.
//
// Design decision: ShouldClose consumes the signal (true at most once per
// session) because the extension treats a true response as a command to
// close the tab immediately. If two polls both saw true, a retried poll
// after the tab closed would target a fresh tab reusing the session id.
type Broker struct {
	mu      sync.Mutex
	pending map[string]struct{}
	logger  *slog.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger used for signal events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

// New creates an empty close-signal broker.
func New(opts ...Option) *Broker {
	b := &Broker{
		pending: make(map[string]struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RequestClose marks the session's tab for closing. Requesting an already
// pending session is a no-op, so the consumer can re-request safely.
func (b *Broker) RequestClose(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[sessionID] = struct{}{}
}

// ShouldClose reports whether the session's tab should close, consuming the
// signal. Only the first call after a RequestClose returns true.
func (b *Broker) ShouldClose(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pending[sessionID]; !ok {
		return false
	}
	delete(b.pending, sessionID)

	b.logger.Debug("close signal delivered", slog.String("session", sessionID))
	return true
}

// Forget drops any pending signal for the session. Called when a session
// expires so the map cannot grow with signals nobody will ever poll for.
func (b *Broker) Forget(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, sessionID)
}

// Pending returns the number of undelivered close signals.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
