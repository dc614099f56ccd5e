package pricehistory

import (
	"fmt"
	"math"

	"github.com/partsync/partsync/internal/model"
)

// DefaultThreshold is the minimum |change percent| that triggers a history
// append. Sub-percent drift would bloat the history string with noise.
const DefaultThreshold = 1.0

// Accumulator applies history bookkeeping to staged records.
//
// The accumulator never prunes: history is append-only and unbounded, and
// the record store owns its persistence.
type Accumulator struct {
	threshold float64
}

// New creates an accumulator with the default one-percent threshold.
func New() *Accumulator {
	return &Accumulator{threshold: DefaultThreshold}
}

// NewWithThreshold creates an accumulator with a custom threshold.
// Thresholds at or below zero record every change.
func NewWithThreshold(threshold float64) *Accumulator {
	return &Accumulator{threshold: threshold}
}

// Apply rolls the price being replaced into the staged record's history when
// the change is at or past the threshold. prev is the record as currently
// stored; staged already carries the new price and date. Returns true when a
// history entry was appended.
func (a *Accumulator) Apply(staged, prev *model.Record, changePercent float64, hasChange bool) bool {
	if !hasChange || math.Abs(changePercent) < a.threshold {
		return false
	}
	if prev.UnitPrice == "" || prev.UnitPrice == model.NotFoundSentinel {
		return false
	}

	entry := fmt.Sprintf("Date: %s Price: %s", prev.Date, prev.UnitPrice)
	if prev.PriceHistory != "" {
		staged.PriceHistory = prev.PriceHistory + ", " + entry
	} else {
		staged.PriceHistory = entry
	}

	staged.LastPrice = prev.UnitPrice
	staged.LastDate = prev.Date
	return true
}
