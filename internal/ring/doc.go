// Package ring implements the logical ring of peer ids used by the trader
// election. It gives the successor order a peer walks when forwarding an
// election, and the helpers that turn a completed traversal path (the tags)
// into a trader set and a coordinator forwarding route.
package ring
