package model

import "time"

// ItemState is the terminal per-item state of one batch item.
type ItemState int

const (
	// ItemCommitted means the item validated as Updated and the store
	// upsert succeeded.
	ItemCommitted ItemState = iota

	// ItemSkipped means a validation rule rejected the item.
	ItemSkipped

	// ItemError means an infrastructure fault (scrape timeout, store
	// locked, IO error) terminated the item.
	ItemError

	// ItemNotFound means the record id does not exist in the store.
	ItemNotFound
)

// String returns a human-readable representation of the item state.
func (s ItemState) String() string {
	switch s {
	case ItemCommitted:
		return "committed"
	case ItemSkipped:
		return "skipped"
	case ItemError:
		return "error"
	case ItemNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ItemResult is the audit entry for one record id processed in a batch run.
type ItemResult struct {
	// RecordID is the id this item processed.
	RecordID string `json:"recordId"`

	// Vendor is the record's vendor, when the record was found.
	Vendor string `json:"vendor,omitempty"`

	// State is the terminal per-item state.
	State ItemState `json:"state"`

	// Reason explains skipped and errored items.
	Reason string `json:"reason,omitempty"`

	// OldPrice and NewPrice are the prices involved, when known.
	OldPrice float64 `json:"oldPrice,omitempty"`
	NewPrice float64 `json:"newPrice,omitempty"`

	// ChangePercent is the computed change, when computable.
	ChangePercent float64 `json:"changePercent,omitempty"`

	// Elapsed is how long the item took end to end.
	Elapsed time.Duration `json:"elapsed"`
}

// Tally aggregates per-verdict counts for a batch run. All four categories
// are always present in reports, even when zero.
type Tally struct {
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
	NotFound int `json:"notFound"`
}

// Total returns the number of items counted.
func (t Tally) Total() int {
	return t.Updated + t.Skipped + t.Errors + t.NotFound
}

// BatchRun is the full outcome of one unattended run: the ordered item audit
// list plus the aggregate tally.
type BatchRun struct {
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Items holds one audit entry per submitted record id, in submission
	// order. Cancelled runs carry entries only for items that started.
	Items []ItemResult `json:"items"`

	// Tally is the aggregate count per terminal state.
	Tally Tally `json:"tally"`

	// Cancelled reports whether the run stopped at an item boundary due to
	// cancellation rather than running to completion.
	Cancelled bool `json:"cancelled"`
}

// Add appends an item result and updates the tally.
func (b *BatchRun) Add(item ItemResult) {
	b.Items = append(b.Items, item)
	switch item.State {
	case ItemCommitted:
		b.Tally.Updated++
	case ItemSkipped:
		b.Tally.Skipped++
	case ItemError:
		b.Tally.Errors++
	case ItemNotFound:
		b.Tally.NotFound++
	}
}
