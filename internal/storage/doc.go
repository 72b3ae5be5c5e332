// Package storage provides the authoritative inventory store and its
// durable collaborators. The store gates every mutation by a per-source
// sequence number so retried requests are applied at most once, and writes
// the full inventory through a Persister before a mutation becomes visible.
package storage
