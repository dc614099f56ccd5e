// Package batch drives unattended multi-record update runs. Items are
// processed strictly sequentially: the scraping browser and the record store
// are both single-resource, so parallel items would race for both. Every
// item reaches a terminal state; only explicit cancellation, observed at
// item boundaries, stops a run early.
package batch
