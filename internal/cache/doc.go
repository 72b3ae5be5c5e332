// Package cache provides the trader-side view of the inventory. The FIFO
// cache keeps an approximate local copy that is kept in step with the other
// traders through sequence-numbered deltas, applied in order per source and
// buffered when they arrive early. Authoritative buys and sells are always
// delegated to the backend store.
package cache
