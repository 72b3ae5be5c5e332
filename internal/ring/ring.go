package ring

import (
	"fmt"
	"slices"

	"tradingpost/internal/market"
)

// Ring is the fixed set of peer ids 0..size-1 arranged in id order.
type Ring struct {
	size int
}

// New creates a ring of size peers.
func New(size int) Ring {
	if size < 0 {
		size = 0
	}
	return Ring{size: size}
}

// Size returns the number of peers on the ring.
func (r Ring) Size() int {
	return r.size
}

// Successors returns the other peers in the order self forwards to them:
// self+1, self+2, ... wrapping around. self itself is never included.
func (r Ring) Successors(self int32) []int32 {
	if r.size <= 1 {
		return []int32{}
	}
	out := make([]int32, 0, r.size-1)
	for i := 1; i < r.size; i++ {
		out = append(out, int32((int(self)+i)%r.size))
	}
	return out
}

// Contains reports whether id is on the ring.
func (r Ring) Contains(id int32) bool {
	return id >= 0 && int(id) < r.size
}

// Position returns the index into traders that id should contact. It spreads
// peers over the trader set deterministically. Returns 0 for an empty set.
func Position(id int32, traders []int32) int {
	if len(traders) == 0 {
		return 0
	}
	return int(id) % len(traders)
}

// Index returns the position of id in tags, or -1.
func Index(tags []int32, id int32) int {
	return slices.Index(tags, id)
}

// Visited reports whether id is already part of the traversal path.
func Visited(tags []int32, id int32) bool {
	return Index(tags, id) >= 0
}

// Append returns a new path with id appended. tags is not modified.
func Append(tags []int32, id int32) []int32 {
	out := make([]int32, len(tags), len(tags)+1)
	copy(out, tags)
	return append(out, id)
}

// Participants returns the unique ids of tags in ascending order.
func Participants(tags []int32) []int32 {
	out := slices.Clone(tags)
	slices.Sort(out)
	return slices.Compact(out)
}

// TopN returns the n largest participants in ascending order. It fails with
// market.ErrInvalidElectionSize when n is not between 1 and the number of
// participants.
func TopN(tags []int32, n int) ([]int32, error) {
	participants := Participants(tags)
	if n < 1 || n > len(participants) {
		return nil, fmt.Errorf("%w: n=%d participants=%d", market.ErrInvalidElectionSize, n, len(participants))
	}
	return slices.Clone(participants[len(participants)-n:]), nil
}

// Route returns the ids after self in tags, in path order. These are the
// peers self forwards a coordinator message to, the first one that answers
// carrying it further. Returns nil when self is last or absent.
func Route(tags []int32, self int32) []int32 {
	idx := Index(tags, self)
	if idx < 0 || idx == len(tags)-1 {
		return nil
	}
	return slices.Clone(tags[idx+1:])
}
