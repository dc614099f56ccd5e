package batch

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/partsync/partsync/internal/config"
	"github.com/partsync/partsync/internal/model"
	"github.com/partsync/partsync/internal/pricehistory"
	"github.com/partsync/partsync/internal/server"
	"github.com/partsync/partsync/internal/store"
	"github.com/partsync/partsync/internal/validate"
	"github.com/partsync/partsync/internal/vendor"
)

// scriptedAgent plays the browser extension: when a tab opens, it reads the
// session id from the URL fragment and posts the scripted fields for the
// part number in the URL. Parts with no script never respond, like a vendor
// page that fails to load.
type scriptedAgent struct {
	coordinator *server.Coordinator
	fields      map[string]map[string]string
}

func (a *scriptedAgent) Open(_ context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	sessionID := strings.TrimPrefix(u.Fragment, "partsync-session=")

	// Grainger URLs look like /product/<part>/.
	part := strings.Trim(strings.TrimPrefix(u.Path, "/product/"), "/")
	f, ok := a.fields[part]
	if !ok {
		return nil
	}

	a.coordinator.Submit(&model.QueueEntry{
		SessionID:  sessionID,
		Vendor:     "grainger",
		Fields:     f,
		CapturedAt: time.Now(),
	})
	return nil
}

type fixture struct {
	orchestrator *Orchestrator
	store        *store.MemoryStore
	agent        *scriptedAgent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.NewConfig()
	cfg.ResultPollInterval = 5 * time.Millisecond
	coordinator := server.NewCoordinator(cfg, server.WithLogger(logger))

	memStore := store.NewMemoryStore()
	vendors := vendor.NewTable(nil)
	engine := validate.NewEngine(vendors,
		validate.WithLogger(logger),
		validate.WithClock(func() time.Time { return time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC) }),
	)
	agent := &scriptedAgent{coordinator: coordinator, fields: make(map[string]map[string]string)}

	o := New(coordinator, memStore, engine, pricehistory.New(), vendors, agent,
		WithLogger(logger),
		WithScrapeWait(500*time.Millisecond),
	)
	return &fixture{orchestrator: o, store: memStore, agent: agent}
}

func (f *fixture) seed(t *testing.T, id, part, price string) {
	t.Helper()
	err := f.store.Upsert(context.Background(), &model.Record{
		ID:               id,
		MfrPartNumber:    "WX-100",
		Description:      "Widget",
		Unit:             "ea",
		Vendor:           "grainger",
		VendorPartNumber: part,
		UnitPrice:        price,
		Date:             "01/15/2026",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (f *fixture) script(part string, fields map[string]string) {
	merged := map[string]string{
		"description": "Widget Premium",
		"unit":        "ea",
		"mfrNumber":   "3M WX-100",
	}
	for k, v := range fields {
		merged[k] = v
	}
	f.agent.fields[part] = merged
}

func TestOrchestrator_Run_CommitsSafeUpdate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "A1", "1ABC2", "10.00")
	f.script("1ABC2", map[string]string{"price": "$10.50"})

	run := f.orchestrator.Run(context.Background(), []string{"A1"})

	if run.Tally != (model.Tally{Updated: 1}) {
		t.Fatalf("tally = %+v, want 1 updated", run.Tally)
	}
	item := run.Items[0]
	if item.State != model.ItemCommitted || item.ChangePercent != 5.0 {
		t.Errorf("item = %+v, want committed at +5%%", item)
	}

	got, err := f.store.Find(context.Background(), "A1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.UnitPrice != "10.50" {
		t.Errorf("stored UnitPrice = %q, want 10.50", got.UnitPrice)
	}
	if got.PriceHistory != "Date: 01/15/2026 Price: 10.00" {
		t.Errorf("stored PriceHistory = %q", got.PriceHistory)
	}
	if got.LastPrice != "10.00" {
		t.Errorf("stored LastPrice = %q, want 10.00", got.LastPrice)
	}
}

func TestOrchestrator_Run_CeilingBlocksLargeChange(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "A1", "1ABC2", "10.00")
	f.script("1ABC2", map[string]string{"price": "$14.00"})

	run := f.orchestrator.Run(context.Background(), []string{"A1"})

	if run.Tally != (model.Tally{Skipped: 1}) {
		t.Fatalf("tally = %+v, want 1 skipped", run.Tally)
	}
	if run.Items[0].Reason != validate.ReasonChangeOverLimit {
		t.Errorf("reason = %q, want price change exceeds limit", run.Items[0].Reason)
	}

	got, err := f.store.Find(context.Background(), "A1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.UnitPrice != "10.00" {
		t.Errorf("record mutated on skip: UnitPrice = %q", got.UnitPrice)
	}
}

func TestOrchestrator_Run_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	run := f.orchestrator.Run(context.Background(), []string{"MISSING"})

	if run.Tally != (model.Tally{NotFound: 1}) {
		t.Errorf("tally = %+v, want 1 not found", run.Tally)
	}
}

func TestOrchestrator_Run_ManualVendorSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.store.Upsert(context.Background(), &model.Record{
		ID: "M1", Vendor: "fastenal", VendorPartNumber: "F1", UnitPrice: "5.00",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	run := f.orchestrator.Run(context.Background(), []string{"M1"})
	if run.Tally != (model.Tally{Skipped: 1}) {
		t.Fatalf("tally = %+v, want 1 skipped", run.Tally)
	}
	if run.Items[0].Reason != validate.ReasonManualVendor {
		t.Errorf("reason = %q, want manual vendor", run.Items[0].Reason)
	}
}

func TestOrchestrator_Run_HyphenPreFilter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.store.Upsert(context.Background(), &model.Record{
		ID: "VUVG-L10", Vendor: "festo", VendorPartNumber: "8000123", UnitPrice: "5.00",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	run := f.orchestrator.Run(context.Background(), []string{"VUVG-L10"})
	if run.Tally != (model.Tally{Skipped: 1}) {
		t.Fatalf("tally = %+v, want 1 skipped", run.Tally)
	}
	if run.Items[0].Reason != validate.ReasonHyphenatedID {
		t.Errorf("reason = %q, want hyphen pre-filter", run.Items[0].Reason)
	}
}

func TestOrchestrator_Run_TimeoutDoesNotHangRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "A1", "PART1", "10.00")
	f.seed(t, "A2", "PART2", "10.00") // no script: never responds
	f.seed(t, "A3", "PART3", "10.00")
	f.script("PART1", map[string]string{"price": "$10.10"})
	f.script("PART3", map[string]string{"price": "$10.20"})

	run := f.orchestrator.Run(context.Background(), []string{"A1", "A2", "A3"})

	if run.Tally.Errors != 1 || run.Tally.Updated != 2 {
		t.Fatalf("tally = %+v, want 2 updated / 1 error", run.Tally)
	}
	if run.Items[1].RecordID != "A2" || run.Items[1].Reason != ReasonScrapeTimeout {
		t.Errorf("item 2 = %+v, want scraping timeout", run.Items[1])
	}
	if run.Cancelled {
		t.Error("run must complete, not cancel, on a per-item timeout")
	}
}

func TestOrchestrator_Run_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "A1", "1ABC2", "10.00")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := f.orchestrator.Run(ctx, []string{"A1", "A2"})
	if !run.Cancelled {
		t.Error("run should report cancellation")
	}
	if len(run.Items) != 0 {
		t.Errorf("items = %d, want 0 when cancelled before the first item", len(run.Items))
	}
}
