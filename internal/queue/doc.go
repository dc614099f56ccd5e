// Package queue provides the bounded FIFO buffer that holds scrape results
// between arrival from the browser extension and consumption by the record
// store writer. The queue never blocks a producer: when full, the oldest
// entry is dropped to make room, favoring fresh results over stale ones.
package queue
