package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/partsync/partsync/internal/model"
)

// maxSessions bounds the registry size. The coordinator drives one session
// at a time during batch runs and a handful during interactive use, so the
// bound exists only to keep the expirable cache finite.
const maxSessions = 1024

// Registry tracks live scrape sessions keyed by session id.
//
// Design decision: We build on an expirable LRU cache rather than a plain
// map with a sweeper goroutine because:
//  1. TTL eviction and the size bound come for free
//  2. The eviction callback gives us a single place to record expiry
//  3. Lookups of expired sessions fail immediately instead of waiting for
//     the next sweep tick
//
// The cache's reaper goroutine invokes the eviction callback while holding
// only the cache's internal lock, so session state lives in an atomic on
// the Session itself; mu serializes the registry's own map operations.
type Registry struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *model.Session]
	logger   *slog.Logger

	// draining suppresses expiry handling while Purge empties the cache on
	// shutdown, where evicting live sessions is expected.
	draining atomic.Bool

	// onExpire is invoked for every session evicted by TTL or capacity,
	// after its state is set to Expired. Used by the coordinator to count
	// expirations. May be nil.
	onExpire func(*model.Session)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithExpireHook sets a callback invoked when a session expires.
func WithExpireHook(fn func(*model.Session)) Option {
	return func(r *Registry) {
		r.onExpire = fn
	}
}

// NewRegistry creates a session registry whose sessions expire ttl after
// registration.
func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.sessions = expirable.NewLRU(maxSessions, r.evicted, ttl)
	return r
}

// evicted is the LRU eviction callback. It fires for TTL expiry, capacity
// pressure, explicit Remove calls, and Purge. Removals that already left the
// tracked lifecycle (Closed) and shutdown purges are not expiries; anything
// else is marked Expired with a compare-and-swap so a consumer transition
// racing the reaper resolves to one winner.
func (r *Registry) evicted(id string, sess *model.Session) {
	if r.draining.Load() {
		return
	}

	for {
		cur := sess.State()
		if cur == model.SessionClosed || cur == model.SessionExpired {
			return
		}
		if sess.CompareAndSwapState(cur, model.SessionExpired) {
			break
		}
	}

	r.logger.Warn("session expired without close confirmation",
		slog.String("session", id),
		slog.String("record", sess.RecordID),
		slog.String("vendor", sess.Vendor),
	)
	if r.onExpire != nil {
		r.onExpire(sess)
	}
}

// Register creates a new session for a record scrape and returns it. The
// session starts in the Registered state; a consumer that blocks on the
// result moves it to AwaitingResult via MarkAwaiting.
func (r *Registry) Register(recordID, vendor, url string) *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := &model.Session{
		ID:       uuid.NewString(),
		RecordID: recordID,
		Vendor:   vendor,
		URL:      url,
		OpenedAt: time.Now(),
	}
	r.sessions.Add(sess.ID, sess)

	r.logger.Debug("session registered",
		slog.String("session", sess.ID),
		slog.String("record", recordID),
		slog.String("vendor", vendor),
	)
	return sess
}

// Get returns the session with the given id, or ErrSessionNotFound if it is
// unknown or has expired.
func (r *Registry) Get(id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// MarkAwaiting records that a consumer is blocked waiting on the session's
// result. The result may legitimately arrive before the consumer starts
// waiting, so a session already past Registered is left alone.
func (r *Registry) MarkAwaiting(id string) error {
	err := r.advance(id, model.SessionAwaitingResult)
	if errors.Is(err, ErrInvalidTransition) {
		return nil
	}
	return err
}

// MarkDelivered records that the extension's scrape result for the session
// has been accepted into the result queue.
func (r *Registry) MarkDelivered(id string) error {
	return r.advance(id, model.SessionDelivered)
}

// RequestClose records that the coordinator has asked the extension to close
// the session's tab. Requesting close twice is harmless.
func (r *Registry) RequestClose(id string) error {
	return r.advance(id, model.SessionCloseRequested)
}

// MarkClosed records the extension's confirmation that the tab closed, and
// removes the session from the registry.
func (r *Registry) MarkClosed(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.SetState(model.SessionClosed)
	r.sessions.Remove(id)

	r.logger.Debug("session closed",
		slog.String("session", id),
		slog.String("record", sess.RecordID),
	)
	return nil
}

// advance moves a session to a later lifecycle state. Moving to the same or
// an earlier state returns ErrInvalidTransition, keeping transitions
// monotonic even when the extension re-sends a request. The swap is retried
// when the TTL reaper expires the session mid-transition.
func (r *Registry) advance(id string, to model.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	for {
		cur := sess.State()
		if to <= cur {
			// Repeated close requests are idempotent rather than an error.
			if to == model.SessionCloseRequested && cur == model.SessionCloseRequested {
				return nil
			}
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, to)
		}
		if sess.CompareAndSwapState(cur, to) {
			return nil
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Len()
}

// Purge drops all live sessions without treating them as expired. Used on
// coordinator shutdown, where evicting open sessions is the expected
// outcome rather than a TTL overrun worth warning about.
func (r *Registry) Purge() {
	r.draining.Store(true)
	defer r.draining.Store(false)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.Purge()
}
