package validate

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/partsync/partsync/internal/model"
	"github.com/partsync/partsync/internal/vendor"
)

// Rule rejection reasons. These travel into batch reports and logs, so they
// are fixed strings rather than formatted messages.
const (
	ReasonManualVendor    = "manual vendor"
	ReasonLegacyRecord    = "legacy record"
	ReasonHyphenatedID    = "hyphenated id for hyphen-sensitive vendor"
	ReasonDescMismatch    = "description mismatch"
	ReasonPartMismatch    = "part number mismatch"
	ReasonUnitMismatch    = "unit mismatch"
	ReasonPriceNotFound   = "price not found"
	ReasonNoCurrentPrice  = "current price unavailable"
	ReasonChangeOverLimit = "price change exceeds limit"
)

// Alert classifies an interactive-mode price movement against the asymmetric
// alert thresholds. Alerts never block a commit; they exist so the human can
// be asked before confirming.
type Alert int

const (
	// AlertNone means the change is inside both thresholds.
	AlertNone Alert = iota

	// AlertIncrease means the price rose at or past the increase threshold.
	AlertIncrease

	// AlertDecrease means the price fell at or past the decrease threshold.
	AlertDecrease
)

// Engine runs the validation rule pipeline.
//
// Design decision: The engine is pure: it never touches the record store,
// the session registry, or the clock beyond stamping the staged record's
// date. Side effects (commit, history append, close signal) belong to the
// caller, so the same engine serves both batch and interactive flows.
type Engine struct {
	vendors *vendor.Table
	logger  *slog.Logger

	// changeLimit is the batch ceiling on |change_percent|. A change of
	// exactly changeLimit passes; anything beyond is rejected.
	changeLimit float64

	// alertIncrease and alertDecrease are the interactive thresholds.
	alertIncrease float64
	alertDecrease float64

	// now stamps staged records; replaceable in tests.
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for rule failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithChangeLimit overrides the batch price-change ceiling (percent).
func WithChangeLimit(limit float64) Option {
	return func(e *Engine) {
		e.changeLimit = limit
	}
}

// WithAlertThresholds overrides the interactive alert thresholds. increase
// is positive, decrease negative.
func WithAlertThresholds(increase, decrease float64) Option {
	return func(e *Engine) {
		e.alertIncrease = increase
		e.alertDecrease = decrease
	}
}

// WithClock overrides the clock used to date staged records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a validation engine over the given vendor table.
func NewEngine(vendors *vendor.Table, opts ...Option) *Engine {
	e := &Engine{
		vendors:       vendors,
		logger:        slog.Default(),
		changeLimit:   15.0,
		alertIncrease: 20.0,
		alertDecrease: -10.0,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PreFilter reports whether an id must be excluded from processing before
// any lookup happens. Hyphenated ids are excluded only for hyphen-sensitive
// vendors, whose catalogs use hyphens as meaningful separators.
func (e *Engine) PreFilter(id, vendorName string) (string, bool) {
	if vendor.IsHyphenSensitive(vendorName) && strings.Contains(id, "-") {
		return ReasonHyphenatedID, true
	}
	return "", false
}

// Validate runs the batch rule pipeline for one record/result pair. A nil
// record yields VerdictNotFound. The pipeline short-circuits on the first
// failing rule; when every applicable rule passes the result carries the
// staged record ready for upsert.
func (e *Engine) Validate(record *model.Record, entry *model.QueueEntry) model.ValidationResult {
	return e.run(record, entry, true)
}

// ValidateInteractive runs the pipeline without the price-change ceiling.
// The human reviewing the update decides; use Alert to classify the change
// against the alert thresholds. Because the human may override a Skipped
// determination, the scraped values are staged whenever a price was
// parsable, regardless of verdict.
func (e *Engine) ValidateInteractive(record *model.Record, entry *model.QueueEntry) model.ValidationResult {
	result := e.run(record, entry, false)
	if result.Verdict != model.VerdictSkipped || record == nil {
		return result
	}

	scrape := vendor.ParseEntry(entry)
	newPrice, ok := ParsePrice(scrape.Price)
	if !ok {
		return result
	}

	result.NewPrice = newPrice
	if oldPrice, haveOld := ParsePrice(record.UnitPrice); haveOld {
		result.OldPrice = oldPrice
		if change, defined := ChangePercent(oldPrice, newPrice); defined {
			result.ChangePercent = change
			result.HasChange = true
		}
	}
	result.Updated = e.stage(record, scrape, result)
	return result
}

func (e *Engine) run(record *model.Record, entry *model.QueueEntry, enforceLimit bool) model.ValidationResult {
	if record == nil {
		return model.ValidationResult{Verdict: model.VerdictNotFound}
	}

	if !e.vendors.IsAuto(record.Vendor) {
		return e.skip(record, ReasonManualVendor)
	}
	if record.Legacy != "" {
		return e.skip(record, ReasonLegacyRecord)
	}

	scrape := vendor.ParseEntry(entry)

	if !descriptionsMatch(record.Description, scrape.Description) {
		return e.skip(record, ReasonDescMismatch)
	}

	if !vendor.IsPartNumberExempt(record.Vendor) {
		if !foldEqual(record.MfrPartNumber, scrape.MfrNumber) {
			return e.skip(record, ReasonPartMismatch)
		}
	}

	if !unitsMatch(record.Unit, scrape.Unit) {
		return e.skip(record, ReasonUnitMismatch)
	}

	newPrice, ok := ParsePrice(scrape.Price)
	if !ok {
		return e.skip(record, ReasonPriceNotFound)
	}

	result := model.ValidationResult{
		Verdict:  model.VerdictUpdated,
		NewPrice: newPrice,
	}

	oldPrice, haveOld := ParsePrice(record.UnitPrice)
	if haveOld {
		result.OldPrice = oldPrice
		if change, defined := ChangePercent(oldPrice, newPrice); defined {
			result.ChangePercent = change
			result.HasChange = true
		}
	}

	if enforceLimit {
		if !result.HasChange {
			return e.skip(record, ReasonNoCurrentPrice)
		}
		if math.Abs(result.ChangePercent) > e.changeLimit {
			res := e.skip(record, ReasonChangeOverLimit)
			res.OldPrice = result.OldPrice
			res.NewPrice = result.NewPrice
			res.ChangePercent = result.ChangePercent
			res.HasChange = true
			return res
		}
	}

	result.Updated = e.stage(record, scrape, result)
	return result
}

// Alert classifies a validated change against the interactive thresholds.
func (e *Engine) Alert(result model.ValidationResult) Alert {
	if !result.HasChange {
		return AlertNone
	}
	if result.ChangePercent >= e.alertIncrease {
		return AlertIncrease
	}
	if result.ChangePercent <= e.alertDecrease {
		return AlertDecrease
	}
	return AlertNone
}

// stage builds the record as it should be written: the current record with
// the scraped fields applied and the change bookkeeping stamped.
func (e *Engine) stage(record *model.Record, scrape vendor.Scrape, result model.ValidationResult) *model.Record {
	staged := record.Clone()

	if scrape.Description != model.NotFoundSentinel && scrape.Description != "" {
		staged.Description = scrape.Description
	}
	if scrape.MfrNumber != model.NotFoundSentinel && scrape.MfrNumber != "" {
		staged.MfrPartNumber = scrape.MfrNumber
	}
	if scrape.Brand != model.NotFoundSentinel && scrape.Brand != "" {
		staged.Mfr = scrape.Brand
	}
	if scrape.Unit != model.NotFoundSentinel && scrape.Unit != "" {
		staged.Unit = scrape.Unit
	}
	staged.Qty = scrape.Qty
	staged.UnitPrice = fmt.Sprintf("%.2f", result.NewPrice)
	if result.HasChange {
		staged.ChangePercent = result.ChangePercent
	}
	staged.Date = e.now().Format("01/02/2006")
	return staged
}

func (e *Engine) skip(record *model.Record, reason string) model.ValidationResult {
	e.logger.Debug("validation rejected automated commit",
		slog.String("record", record.ID),
		slog.String("vendor", record.Vendor),
		slog.String("reason", reason),
	)
	return model.ValidationResult{Verdict: model.VerdictSkipped, Reason: reason}
}

var folder = cases.Fold()

// foldEqual compares two strings case-insensitively using Unicode case
// folding, after trimming surrounding whitespace.
func foldEqual(a, b string) bool {
	return folder.String(strings.TrimSpace(a)) == folder.String(strings.TrimSpace(b))
}

// normalizeText case-folds and collapses all whitespace runs to single
// spaces, so scraped text with odd spacing still compares cleanly.
func normalizeText(s string) string {
	return folder.String(strings.Join(strings.Fields(s), " "))
}

// descriptionsMatch applies the tolerant description rule: after folding and
// whitespace normalization, one side must contain the other. A missing
// scraped description never matches.
func descriptionsMatch(current, scraped string) bool {
	if scraped == model.NotFoundSentinel || scraped == "" {
		return false
	}
	a := normalizeText(current)
	b := normalizeText(scraped)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// unitsMatch applies the unit rule: pass when either side is unavailable,
// otherwise require a case-insensitive match.
func unitsMatch(current, scraped string) bool {
	if current == "" || current == model.NotFoundSentinel {
		return true
	}
	if scraped == "" || scraped == model.NotFoundSentinel {
		return true
	}
	return foldEqual(current, scraped)
}
