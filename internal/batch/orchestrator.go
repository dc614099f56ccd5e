package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/partsync/partsync/internal/browser"
	"github.com/partsync/partsync/internal/model"
	"github.com/partsync/partsync/internal/pricehistory"
	"github.com/partsync/partsync/internal/server"
	"github.com/partsync/partsync/internal/store"
	"github.com/partsync/partsync/internal/validate"
	"github.com/partsync/partsync/internal/vendor"
)

// ReasonScrapeTimeout marks items whose scrape result never arrived within
// the bounded wait.
const ReasonScrapeTimeout = "scraping timeout"

// Orchestrator runs batch updates over an ordered sequence of record ids.
type Orchestrator struct {
	coordinator *server.Coordinator
	store       store.RecordStore
	engine      *validate.Engine
	history     *pricehistory.Accumulator
	vendors     *vendor.Table
	opener      browser.Opener
	logger      *slog.Logger

	// scrapeWait bounds how long one item may wait for its result.
	scrapeWait time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithScrapeWait overrides the per-item result wait.
func WithScrapeWait(wait time.Duration) Option {
	return func(o *Orchestrator) {
		o.scrapeWait = wait
	}
}

// New creates a batch orchestrator. All collaborators are required; the
// opener is an interface so tests drive the run without a browser.
func New(
	coordinator *server.Coordinator,
	recordStore store.RecordStore,
	engine *validate.Engine,
	history *pricehistory.Accumulator,
	vendors *vendor.Table,
	opener browser.Opener,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		coordinator: coordinator,
		store:       recordStore,
		engine:      engine,
		history:     history,
		vendors:     vendors,
		opener:      opener,
		logger:      slog.Default(),
		scrapeWait:  15 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes the record ids in order and returns the run audit. Per-item
// failures never abort the run; ctx cancellation is honored at item
// boundaries only, so a started item always reaches a terminal state.
func (o *Orchestrator) Run(ctx context.Context, ids []string) *model.BatchRun {
	run := &model.BatchRun{StartedAt: time.Now()}

	for _, id := range ids {
		if ctx.Err() != nil {
			run.Cancelled = true
			o.logger.Info("batch run cancelled",
				slog.Int("processed", len(run.Items)),
				slog.Int("remaining", len(ids)-len(run.Items)),
			)
			break
		}
		run.Add(o.processItem(ctx, id))
	}

	run.FinishedAt = time.Now()
	o.logger.Info("batch run finished",
		slog.Int("updated", run.Tally.Updated),
		slog.Int("skipped", run.Tally.Skipped),
		slog.Int("errors", run.Tally.Errors),
		slog.Int("not_found", run.Tally.NotFound),
		slog.Bool("cancelled", run.Cancelled),
	)
	return run
}

// processItem takes one record id to its terminal state.
func (o *Orchestrator) processItem(ctx context.Context, id string) model.ItemResult {
	started := time.Now()
	item := model.ItemResult{RecordID: id}

	defer func() {
		item.Elapsed = time.Since(started)
		o.coordinator.RecordVerdict(item.State.String())
		o.logger.Info("batch item finished",
			slog.String("record", id),
			slog.String("state", item.State.String()),
			slog.String("reason", item.Reason),
		)
	}()

	record, err := o.store.Find(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			item.State = model.ItemNotFound
			return item
		}
		item.State = model.ItemError
		item.Reason = err.Error()
		return item
	}
	item.Vendor = record.Vendor

	if reason, skip := o.engine.PreFilter(record.ID, record.Vendor); skip {
		item.State = model.ItemSkipped
		item.Reason = reason
		return item
	}

	// Manual vendors cannot be scraped; decide before opening anything.
	if !o.vendors.IsAuto(record.Vendor) {
		item.State = model.ItemSkipped
		item.Reason = validate.ReasonManualVendor
		return item
	}

	url, err := o.vendors.ProductURL(record.Vendor, record.VendorPartNumber)
	if err != nil {
		item.State = model.ItemError
		item.Reason = err.Error()
		return item
	}

	sess := o.coordinator.OpenSession(record.ID, record.Vendor, url)
	// However the item ends, the tab gets its close signal.
	defer o.coordinator.FinishSession(sess.ID)

	// The session id travels in the URL fragment: the extension reads it
	// there to bind its result, and fragments never reach the vendor server.
	openURL := url + "#partsync-session=" + sess.ID
	if err := o.opener.Open(ctx, openURL); err != nil {
		item.State = model.ItemError
		item.Reason = err.Error()
		return item
	}

	entry, err := o.coordinator.AwaitResult(ctx, sess.ID, o.scrapeWait)
	if err != nil {
		item.State = model.ItemError
		if errors.Is(err, server.ErrAwaitTimeout) {
			item.Reason = ReasonScrapeTimeout
		} else {
			item.Reason = err.Error()
		}
		return item
	}

	result := o.engine.Validate(record, entry)
	item.OldPrice = result.OldPrice
	item.NewPrice = result.NewPrice
	item.ChangePercent = result.ChangePercent

	switch result.Verdict {
	case model.VerdictUpdated:
		o.history.Apply(result.Updated, record, result.ChangePercent, result.HasChange)
		if err := o.store.Upsert(ctx, result.Updated); err != nil {
			item.State = model.ItemError
			item.Reason = err.Error()
			return item
		}
		item.State = model.ItemCommitted
	case model.VerdictSkipped:
		item.State = model.ItemSkipped
		item.Reason = result.Reason
	case model.VerdictNotFound:
		item.State = model.ItemNotFound
	default:
		item.State = model.ItemError
		item.Reason = result.Reason
	}
	return item
}
