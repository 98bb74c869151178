// Package rq implements the range-query provider: the coordinator that
// binds the bundle container (package bundle), a global clock, and a
// per-process announcement table into the two-phase update protocol and
// range-query traversal API a host ordered-set calls into (spec sections
// 4.2-4.4, components C2-C4).
package rq

import (
	"sync/atomic"

	"github.com/jacnel/bundledrefs/bundle"
	"github.com/jacnel/bundledrefs/diag"
)

// Clock is the single monotonic counter that issues update linearization
// timestamps (spec section 4.3, component C3). The zero value is not
// usable; construct with NewClock.
type Clock struct {
	value atomic.Uint64
	log   diag.Logger
}

// NewClock returns a Clock initialized to MinTimestamp, matching the
// original's curr_timestamp_ = BUNDLE_MIN_TIMESTAMP. log may be nil; it is
// only ever consulted on the (practically unreachable) overflow guard in
// Next.
func NewClock() *Clock {
	c := &Clock{}
	c.value.Store(uint64(bundle.MinTimestamp))
	return c
}

// Next assigns and returns a new, strictly increasing timestamp to the
// calling update. It corresponds to curr_timestamp_.fetch_add(1), with the
// Go convention of returning the post-increment value (so the very first
// Next() on a fresh Clock returns MinTimestamp+1, matching the first
// update after the clock starts at MinTimestamp with no updates yet).
// Aborts (spec section 7, "clock overflow") rather than silently wrapping
// past the reserved pending/max sentinels.
func (c *Clock) Next() bundle.Timestamp {
	ts := bundle.Timestamp(c.value.Add(1))
	if ts >= bundle.MaxTimestamp {
		diag.Abort(c.log, `clock overflow: ran out of 64-bit timestamp space`, ts)
	}
	return ts
}

// Load returns the clock's current value without advancing it: this is
// what a range query captures as its snapshot timestamp in start_traversal.
func (c *Clock) Load() bundle.Timestamp {
	return bundle.Timestamp(c.value.Load())
}
