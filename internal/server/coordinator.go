package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/partsync/partsync/internal/broker"
	"github.com/partsync/partsync/internal/config"
	"github.com/partsync/partsync/internal/model"
	"github.com/partsync/partsync/internal/queue"
	"github.com/partsync/partsync/internal/session"
)

// ErrAwaitTimeout is returned by AwaitResult when no result arrived for the
// session within the bounded wait. Batch mode maps it to the per-item
// "scraping timeout" error; it never aborts a run.
var ErrAwaitTimeout = errors.New("timed out waiting for scrape result")

// Coordinator owns the session registry, result queue, and close-signal
// broker, and serves the HTTP boundary the scraper extension talks to.
//
// Design decision: All coordination state lives on one instance with an
// explicit lifecycle instead of in package globals. Commands construct a
// Coordinator, run it for the duration of their flow, and stop it; tests run
// isolated instances in parallel.
type Coordinator struct {
	registry *session.Registry
	queue    *queue.Queue
	broker   *broker.Broker
	metrics  *Metrics
	logger   *slog.Logger

	addr         string
	pollInterval time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics collector. Nil disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator creates a coordinator from validated configuration.
func NewCoordinator(cfg *config.Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:       slog.Default(),
		addr:         cfg.ListenAddr,
		pollInterval: cfg.ResultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.broker = broker.New(broker.WithLogger(c.logger))
	c.registry = session.NewRegistry(cfg.SessionTTL,
		session.WithLogger(c.logger),
		session.WithExpireHook(func(sess *model.Session) {
			c.broker.Forget(sess.ID)
			c.metrics.SessionExpired()
		}),
	)
	c.queue = queue.New(cfg.QueueCapacity,
		queue.WithLogger(c.logger),
		queue.WithDropHook(func(*model.QueueEntry) {
			c.metrics.QueueEviction()
		}),
	)
	return c
}

// Start serves the HTTP boundary until ctx is cancelled, then shuts down
// gracefully and purges live sessions. Suitable for running in an errgroup.
func (c *Coordinator) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              c.addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("coordinator listening", slog.String("addr", c.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("coordinator shutdown: %w", err)
		}
		c.registry.Purge()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("coordinator serve: %w", err)
	}
}

// OpenSession registers a scrape session for a record.
func (c *Coordinator) OpenSession(recordID, vendorName, url string) *model.Session {
	return c.registry.Register(recordID, vendorName, url)
}

// AwaitResult polls the queue for the entry bound to the session, for at
// most wait. Returns ErrAwaitTimeout when nothing arrived in time.
func (c *Coordinator) AwaitResult(ctx context.Context, sessionID string, wait time.Duration) (*model.QueueEntry, error) {
	if err := c.registry.MarkAwaiting(sessionID); err != nil {
		c.logger.Debug("awaiting result for unavailable session",
			slog.String("session", sessionID),
			slog.String("error", err.Error()),
		)
	}

	started := time.Now()
	deadline := started.Add(wait)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if entry, ok := c.queue.PopSession(sessionID); ok {
			c.metrics.SetQueueDepth(c.queue.Len())
			c.metrics.ObserveScrapeWait(time.Since(started).Seconds())
			return entry, nil
		}
		if time.Now().After(deadline) {
			c.metrics.ObserveScrapeWait(time.Since(started).Seconds())
			return nil, fmt.Errorf("%w: session %s after %s", ErrAwaitTimeout, sessionID, wait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// FinishSession marks the consumer done with a session: the tab is asked to
// close on its next poll. Safe to call for unknown or expired sessions.
func (c *Coordinator) FinishSession(sessionID string) {
	if err := c.registry.RequestClose(sessionID); err != nil {
		c.logger.Warn("close request on unavailable session",
			slog.String("session", sessionID),
			slog.String("error", err.Error()),
		)
	}
	c.broker.RequestClose(sessionID)
}

// Dequeue removes and returns the oldest buffered result, for the consumer
// boundary. ok is false when the queue is empty. Entries whose session has
// expired are stale; they are dropped with a warning and the next entry is
// returned instead.
func (c *Coordinator) Dequeue() (*model.QueueEntry, bool) {
	for {
		entry, ok := c.queue.Pop()
		if !ok {
			return nil, false
		}
		c.metrics.SetQueueDepth(c.queue.Len())

		if _, err := c.registry.Get(entry.SessionID); err != nil {
			c.logger.Warn("dropping stale result for expired session",
				slog.String("session", entry.SessionID),
				slog.String("record", entry.RecordID),
			)
			continue
		}
		return entry, true
	}
}

// Submit admits a scrape result to the queue and marks its session
// delivered. An unknown session is logged, not fatal: the extension may
// deliver after the session expired, and the stale entry is dropped at
// dequeue time.
func (c *Coordinator) Submit(entry *model.QueueEntry) {
	c.queue.Push(entry)
	c.metrics.SetQueueDepth(c.queue.Len())
	c.metrics.ResultReceived()

	if err := c.registry.MarkDelivered(entry.SessionID); err != nil {
		c.logger.Warn("result delivered for unavailable session",
			slog.String("session", entry.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

// notifyClosed records the extension's confirmation that a tab closed.
// Best-effort: confirmations for unknown sessions (manual tab close, expiry,
// the extension's own poll give-up) are expected and only logged.
func (c *Coordinator) notifyClosed(sessionID string) {
	c.broker.Forget(sessionID)
	if err := c.registry.MarkClosed(sessionID); err != nil {
		c.logger.Debug("close confirmation for unavailable session",
			slog.String("session", sessionID),
		)
	}
}

// RecordVerdict counts a validation outcome on the /metrics endpoint.
// Category is the item's terminal state name.
func (c *Coordinator) RecordVerdict(category string) {
	c.metrics.Verdict(category)
}

// Sessions returns the number of live sessions.
func (c *Coordinator) Sessions() int {
	return c.registry.Len()
}
