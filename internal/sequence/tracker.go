package sequence

import (
	"fmt"
	"sort"
	"strings"
)

// Tracker maps a source peer id to the last sequence number applied from it.
// Entries only move forward. Thread-safe operations should be handled by the
// caller.
type Tracker map[int32]int64

// New creates an empty tracker.
func New() Tracker {
	return make(Tracker)
}

// Get returns the last applied sequence number for source, or 0 if none.
func (t Tracker) Get(source int32) int64 {
	return t[source]
}

// Next returns the sequence number that would be applied next for source.
func (t Tracker) Next(source int32) int64 {
	return t[source] + 1
}

// Seen reports whether seq has already been applied for source.
func (t Tracker) Seen(source int32, seq int64) bool {
	return seq <= t[source]
}

// IsNext reports whether seq is exactly the next expected one for source.
func (t Tracker) IsNext(source int32, seq int64) bool {
	return seq == t[source]+1
}

// Advance records seq for source if it is ahead of the current value.
// Returns false if seq would move the entry backwards or leave it unchanged.
func (t Tracker) Advance(source int32, seq int64) bool {
	if seq <= t[source] {
		return false
	}
	t[source] = seq
	return true
}

// Copy creates a deep copy of the tracker.
func (t Tracker) Copy() Tracker {
	c := New()
	for k, v := range t {
		c[k] = v
	}
	return c
}

// String returns a deterministic representation, sorted by source id.
func (t Tracker) String() string {
	if len(t) == 0 {
		return "{}"
	}

	sources := make([]int32, 0, len(t))
	for k := range t {
		sources = append(sources, k)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("%d:%d", s, t[s]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
