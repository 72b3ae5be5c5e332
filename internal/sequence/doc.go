// Package sequence provides the per-source sequence tracker used to order
// and deduplicate updates. Both the inventory store and every replicated
// cache keep their own tracker, learning sequence numbers from the requests
// and messages they process.
package sequence
