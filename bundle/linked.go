package bundle

import (
	"sync/atomic"

	"github.com/jacnel/bundledrefs/diag"
)

// linkedEntry is one node of a Linked bundle's singly-linked log, newest
// entry first. The tail sentinel has ts == NullTimestamp and is never
// reclaimed.
type linkedEntry[N any] struct {
	ts   atomic.Uint64 // Timestamp, or PendingTimestamp while unfinalized
	succ N
	next atomic.Pointer[linkedEntry[N]]
}

// Linked is the linked-list representation of a bundle (spec section 4.1,
// "Linked representation"): a singly-linked list from head (newest) to a
// sentinel tail, grounded directly on bundle/linked_bundle.h.
//
// Prepare CAS-swings the head to a new pending entry; Finalize releases the
// entry's timestamp; Lookup spins on a pending head, then walks next until
// it finds an entry whose timestamp dominates the query; Reclaim unlinks
// everything older than the newest entry dominated by the oldest active
// reader.
type Linked[N any] struct {
	head atomic.Pointer[linkedEntry[N]]
	tail *linkedEntry[N]
	log  diag.Logger
}

// NewLinked constructs an empty Linked bundle: just the tail sentinel, with
// no real entries yet. The host's first update on the owning node is
// expected to Prepare+Finalize the first real entry (per the bundle
// lifecycle in spec section 3). log may be nil.
func NewLinked[N any](log diag.Logger) *Linked[N] {
	l := &Linked[N]{log: log}
	tail := &linkedEntry[N]{}
	tail.ts.Store(uint64(NullTimestamp))
	l.tail = tail
	l.head.Store(tail)
	return l
}

func (l *Linked[N]) Prepare(succ N) {
	entry := &linkedEntry[N]{succ: succ}
	entry.ts.Store(uint64(PendingTimestamp))
	var b backoff
	for {
		expected := l.head.Load()
		if Timestamp(expected.ts.Load()) == PendingTimestamp {
			// A concurrent prepare/finalize is in flight; the host's
			// per-node lock discipline means this can only be our own
			// prior, un-finalized prepare.
			diag.Abort(l.log, `prepare called with an unfinalized pending entry already at the head`, l)
		}
		entry.next.Store(expected)
		if l.head.CompareAndSwap(expected, entry) {
			return
		}
		b.wait()
	}
}

func (l *Linked[N]) Finalize(ts Timestamp) {
	head := l.head.Load()
	if Timestamp(head.ts.Load()) != PendingTimestamp {
		diag.Abort(l.log, `finalize called without a pending entry`, l)
	}
	head.ts.Store(uint64(ts)) // release: ts.Load by a concurrent Lookup acquires this
}

func (l *Linked[N]) Lookup(ts Timestamp) (succ N, ok bool) {
	curr := l.head.Load()
	var b backoff
	for Timestamp(curr.ts.Load()) == PendingTimestamp {
		b.wait()
	}
	for curr != l.tail && Timestamp(curr.ts.Load()) > ts {
		curr = curr.next.Load()
	}
	if curr == l.tail {
		var zero N
		return zero, false
	}
	return curr.succ, true
}

func (l *Linked[N]) Reclaim(oldestActive Timestamp) {
	pred := l.head.Load()
	if Timestamp(pred.ts.Load()) == PendingTimestamp {
		pred = pred.next.Load()
	}
	curr := pred.next.Load()
	if pred == l.tail || curr == l.tail {
		return // nothing to do
	}

	if oldestActive == NullTimestamp || Timestamp(pred.ts.Load()) <= oldestActive {
		pred.next.Store(l.tail)
		return
	}

	for curr != l.tail && Timestamp(curr.ts.Load()) > oldestActive {
		pred = curr
		curr = curr.next.Load()
	}
	if curr == l.tail {
		return
	}
	// curr is the entry that satisfies oldestActive; it becomes the new
	// last entry (I4: always retain at least one dominating entry).
	pred = curr
	curr = curr.next.Load()
	pred.next.Store(l.tail)
	// curr..tail (exclusive) are now unreachable and may be dropped.
}

func (l *Linked[N]) Size() int {
	n := 0
	for curr := l.head.Load(); curr != l.tail; curr = curr.next.Load() {
		n++
	}
	return n
}
