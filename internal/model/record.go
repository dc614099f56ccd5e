package model

// NotFoundSentinel is the literal string the scraper agent uses for fields
// it could not locate on the vendor page. It travels through the queue and
// the validation engine unmodified, so every comparison against scraped
// fields must treat it as "value unavailable" rather than a real value.
const NotFoundSentinel = "Not Found"

// Record is a canonical pricing record owned by the record store.
//
// The field set mirrors the record store's column layout: identity and
// sourcing fields first, then pricing, then the price-history bookkeeping
// fields maintained by the price history accumulator.
type Record struct {
	// ID is the internal part identifier used to look up the record.
	ID string `json:"id"`

	// MfrPartNumber is the manufacturer's part number.
	MfrPartNumber string `json:"mfrPartNumber"`

	// Mfr is the manufacturer (brand) name.
	Mfr string `json:"mfr"`

	// Description is the catalog description of the part.
	Description string `json:"description"`

	// Qty is the package quantity (e.g. 10 for a pack of 10).
	Qty int `json:"qty"`

	// Unit is the unit of sale (e.g. "each", "pk", "pair").
	Unit string `json:"unit"`

	// Vendor is the vendor this record is sourced from.
	Vendor string `json:"vendor"`

	// VendorPartNumber is the vendor's own part identifier, used to build
	// the vendor product page URL.
	VendorPartNumber string `json:"vendorPartNumber"`

	// Legacy marks records no longer actively sourced. Legacy records carry
	// no live price and are skipped by automated updates.
	Legacy string `json:"legacy,omitempty"`

	// UnitPrice is the current unit price as a decimal string. A string is
	// used because the record store preserves the value as entered and some
	// records carry non-numeric markers (empty, "Legacy").
	UnitPrice string `json:"unitPrice"`

	// ChangePercent is the percent change recorded at the last update.
	ChangePercent float64 `json:"changePercent"`

	// Date is the date of the current price, formatted MM/DD/YYYY.
	Date string `json:"date"`

	// LastPrice and LastDate hold the previous price and its date, rolled
	// over by the price history accumulator when a significant change lands.
	LastPrice string `json:"lastPrice,omitempty"`
	LastDate  string `json:"lastDate,omitempty"`

	// PriceHistory is the append-only serialized history sequence in
	// "Date: <date> Price: <price>" form, comma-joined oldest first.
	PriceHistory string `json:"priceHistory,omitempty"`
}

// Clone returns a copy of the record. Callers that stage changes before an
// upsert work on a clone so a failed commit never mutates the cached record.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}
