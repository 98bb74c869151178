package bundle

// Interface is the contract a bundle container offers to a rq.Provider and,
// transitively, to a host ordered-set (the BundleInterface<Node> of spec
// section 6). N is a non-owning reference to a host node.
//
// Implementations: Linked (a singly-linked log) and Circular (a growable
// ring buffer). Both satisfy identical semantics under concurrent Lookup
// with any single concurrent Prepare/Finalize pair and any single
// concurrent Reclaim; see the invariants documented on each type.
type Interface[N any] interface {
	// Prepare reserves a new newest entry with the pending timestamp and
	// the given successor. At most one Prepare may be outstanding at a
	// time; the host's per-node lock discipline is relied upon to enforce
	// this (Prepare itself does not take a lock).
	Prepare(succ N)

	// Finalize publishes ts on the most recently Prepare'd entry. ts must
	// be strictly greater than the timestamp of the next-older entry.
	// Finalize without a preceding Prepare, or finalizing an already
	// finalized entry, is an invariant violation (see the diag package).
	Finalize(ts Timestamp)

	// Lookup returns the successor that was current as of ts: the
	// successor of the newest non-pending entry whose timestamp is <= ts.
	// The second return value is false if the bundle holds no such entry
	// (which cannot happen for any ts >= the oldest active reader's
	// timestamp, per invariant I3/I4).
	Lookup(ts Timestamp) (succ N, ok bool)

	// Reclaim drops entries strictly older than the newest entry dominated
	// by oldestActive, always retaining at least one entry. A NullTimestamp
	// argument means "no active readers": reclaim down to just the newest
	// entry.
	Reclaim(oldestActive Timestamp)

	// Size is a best-effort, non-linearizable entry count, for diagnostics.
	Size() int
}
