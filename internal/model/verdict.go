package model

// Verdict is the terminal classification of one validated scrape result.
//
// Design decision: Validation failures are modeled as verdicts, not errors.
// A skipped item is a first-class outcome reported to the caller; only
// infrastructure faults (store unreachable, scrape timeout) surface as the
// Error verdict, and nothing short of explicit cancellation aborts a run.
type Verdict int

const (
	// VerdictUpdated means every applicable rule passed and the record was
	// (or may safely be) committed.
	VerdictUpdated Verdict = iota

	// VerdictSkipped means a validation rule rejected the automated commit.
	// The reason names the failed rule.
	VerdictSkipped

	// VerdictError means an infrastructure fault prevented a decision:
	// scrape timeout, record store locked, or an IO failure.
	VerdictError

	// VerdictNotFound means no record exists for the requested id.
	VerdictNotFound
)

// String returns a human-readable representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictUpdated:
		return "updated"
	case VerdictSkipped:
		return "skipped"
	case VerdictError:
		return "error"
	case VerdictNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ValidationResult is the outcome of running one queue entry against one
// current record.
type ValidationResult struct {
	// Verdict is the terminal classification.
	Verdict Verdict `json:"verdict"`

	// Reason explains Skipped and Error verdicts in free text.
	Reason string `json:"reason,omitempty"`

	// OldPrice and NewPrice are the parsed prices when both were available.
	OldPrice float64 `json:"oldPrice,omitempty"`
	NewPrice float64 `json:"newPrice,omitempty"`

	// ChangePercent is (new-old)/old*100 rounded to two decimals. It is
	// only meaningful when HasChange is true; a zero or missing old price
	// leaves it undefined and fails the item before it is computed.
	ChangePercent float64 `json:"changePercent,omitempty"`

	// HasChange reports whether ChangePercent was computable.
	HasChange bool `json:"hasChange,omitempty"`

	// Updated is the staged record for VerdictUpdated: the current record
	// with the scraped fields applied. Nil for every other verdict.
	Updated *Record `json:"-"`
}
