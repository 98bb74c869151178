// Package bundle implements the per-node bundle container (the C1 component
// of the bundle subsystem): a concurrent, append-mostly log mapping
// linearization timestamps to host-node successor references, in two
// interchangeable representations.
//
// A bundle is never consulted directly by end users; it is driven by a
// rq.Provider on behalf of a host ordered-set implementation (see the
// lazylist package for one such host).
package bundle

// Timestamp is a monotonic linearization point. Zero and the two extreme
// values are reserved sentinels (below); all other values are assigned by
// a rq.Clock in increasing order.
type Timestamp uint64

const (
	// NullTimestamp marks an empty announcement slot, or "no timestamp".
	NullTimestamp Timestamp = 0

	// MinTimestamp is the first value a Clock issues.
	MinTimestamp Timestamp = 1

	// MaxTimestamp is the largest ordinary timestamp; used as an "infinity"
	// bound (e.g. "no oldest active reader").
	MaxTimestamp Timestamp = 1<<63 - 2

	// PendingTimestamp marks an entry whose successor has been installed
	// but whose linearization point has not yet been published.
	PendingTimestamp Timestamp = 1<<63 - 1
)

// Pending reports whether ts is the reserved pending marker.
func (ts Timestamp) Pending() bool { return ts == PendingTimestamp }
