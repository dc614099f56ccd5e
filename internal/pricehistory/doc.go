// Package pricehistory maintains the per-record price time series. When a
// committed update moves the price by at least one percent, the previous
// price and its date roll into the record's append-only history string and
// the last-price bookkeeping fields. Smaller movements update the price
// without leaving a history trace.
package pricehistory
