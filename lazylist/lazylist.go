// Package lazylist implements a lock-coupled, lazily-synchronized sorted
// linked set (Heller, Herlihy, Luchangco, Moir, Scherer, Shavit, "A Lazy
// Concurrent List-Based Set Algorithm", OPODIS 2005), retrofitted with
// bundled range queries (spec section 8, component C5): every node carries
// a bundle.Interface recording each successor it has ever had, so a range
// query can traverse a single consistent snapshot without blocking
// concurrent inserts or removes.
package lazylist

import (
	"github.com/jacnel/bundledrefs/bundle"
	"github.com/jacnel/bundledrefs/diag"
	"github.com/jacnel/bundledrefs/rq"
	"golang.org/x/exp/constraints"
)

// KV is one key/value pair returned by RangeQuery.
type KV[K any, V any] struct {
	Key   K
	Value V
}

// LazyList is a bundled lazy-list set over ordered keys K, holding values V.
// Two sentinel nodes, keyed at the KeyMin/KeyMax passed to New, bracket the
// list and are never logically removed.
type LazyList[K constraints.Ordered, V any] struct {
	head     *node[K, V]
	tail     *node[K, V]
	provider *rq.Provider[*node[K, V]]
}

// New constructs an empty LazyList supporting numProcesses concurrent
// callers (each must pass a distinct tid, in [0, numProcesses), to Insert,
// Remove, and RangeQuery). keyMin and keyMax must bound every key ever
// inserted, matching the original's KEY_MIN/KEY_MAX sentinels.
func New[K constraints.Ordered, V any](numProcesses int, keyMin, keyMax K, cfg rq.Config, log diag.Logger) *LazyList[K, V] {
	l := &LazyList[K, V]{}
	l.provider = rq.NewProvider[*node[K, V]](numProcesses, cfg, l, gcRecordManager[*node[K, V]]{}, log)

	var zero V
	l.tail = newNode[K, V](keyMax, zero, nil)
	l.tail.bundle = l.provider.NewBundle()
	l.tail.bundle.Prepare(nil)
	l.tail.bundle.Finalize(bundle.MinTimestamp)

	l.head = newNode[K, V](keyMin, zero, l.tail)
	l.head.bundle = l.provider.NewBundle()
	l.head.bundle.Prepare(l.tail)
	l.head.bundle.Finalize(bundle.MinTimestamp)

	l.provider.StartCleanup()
	return l
}

// Close stops the background sweeper, if one was started.
func (l *LazyList[K, V]) Close() {
	l.provider.StopCleanup()
}

func (l *LazyList[K, V]) validateLinks(pred, curr *node[K, V]) bool {
	return !pred.marked.Load() && !curr.marked.Load() && pred.next.Load() == curr
}

// Contains reports whether key is present, and its value if so. Lock-free:
// it only follows next pointers and never blocks on a held lock.
func (l *LazyList[K, V]) Contains(key K) (V, bool) {
	curr := l.head
	for curr.key < key {
		curr = curr.next.Load()
	}
	if curr.key == key && !curr.marked.Load() {
		return *curr.val.Load(), true
	}
	var zero V
	return zero, false
}

// Insert adds key/val, replacing any existing value for key. It returns the
// previous value and true if key was already present.
func (l *LazyList[K, V]) Insert(tid int, key K, val V) (V, bool) {
	return l.doInsert(tid, key, val, false)
}

// InsertIfAbsent adds key/val only if key is not already present. It
// returns the current value for key and false if key was already present
// (val is discarded in that case), or the zero value and true if the
// insert happened.
func (l *LazyList[K, V]) InsertIfAbsent(tid int, key K, val V) (V, bool) {
	prev, existed := l.doInsert(tid, key, val, true)
	return prev, !existed
}

func (l *LazyList[K, V]) doInsert(tid int, key K, val V, onlyIfAbsent bool) (V, bool) {
	for {
		pred := l.head
		curr := pred.next.Load()
		for curr.key < key {
			pred = curr
			curr = curr.next.Load()
		}

		pred.lock.Lock()
		if !l.validateLinks(pred, curr) {
			pred.lock.Unlock()
			continue
		}

		if curr.key == key {
			if curr.marked.Load() {
				pred.lock.Unlock()
				continue
			}
			prev := *curr.val.Load()
			if onlyIfAbsent {
				pred.lock.Unlock()
				return prev, true
			}
			curr.lock.Lock()
			curr.val.Store(&val)
			curr.lock.Unlock()
			pred.lock.Unlock()
			return prev, true
		}

		newnode := newNode[K, V](key, val, curr)
		newnode.bundle = l.provider.NewBundle()

		bundles := []bundle.Interface[*node[K, V]]{pred.bundle, newnode.bundle}
		succs := []*node[K, V]{newnode, curr}
		l.provider.PrepareBundles(bundles, succs)
		ts := l.provider.LinearizeUpdate(tid, func(bundle.Timestamp) {
			pred.next.Store(newnode)
		})
		l.provider.FinalizeBundles(bundles, ts)

		pred.lock.Unlock()
		var zero V
		return zero, false
	}
}

// Remove logically then physically removes key, returning its value and
// true if it was present.
func (l *LazyList[K, V]) Remove(tid int, key K) (V, bool) {
	for {
		pred := l.head
		curr := pred.next.Load()
		for curr.key < key {
			pred = curr
			curr = curr.next.Load()
		}

		if curr.key != key {
			var zero V
			return zero, false
		}

		curr.lock.Lock()
		pred.lock.Lock()
		if !l.validateLinks(pred, curr) {
			curr.lock.Unlock()
			pred.lock.Unlock()
			continue
		}

		val := *curr.val.Load()
		next := curr.next.Load()

		bundles := []bundle.Interface[*node[K, V]]{pred.bundle}
		succs := []*node[K, V]{next}
		l.provider.PrepareBundles(bundles, succs)
		ts := l.provider.LinearizeUpdate(tid, func(bundle.Timestamp) {
			curr.marked.Store(true)
		})
		l.provider.FinalizeBundles(bundles, ts)

		pred.next.Store(next)
		l.provider.PhysicalDeletionSucceeded(tid, []*node[K, V]{curr})

		curr.lock.Unlock()
		pred.lock.Unlock()
		return val, true
	}
}

// RangeQuery returns every live key/value pair with key in [lo, hi], as of
// a single linearization point between the call and return (spec section
// 8). It retries the whole traversal if reclamation outpaces it; that race
// is expected to be rare (StartTraversal's announcement excludes it from
// the reclaimable set) and never returns a partial result.
func (l *LazyList[K, V]) RangeQuery(tid int, lo, hi K) []KV[K, V] {
	for {
		ts := l.provider.StartTraversal(tid)

		pred := l.head
		curr := pred.next.Load()
		for curr.key < lo {
			pred = curr
			curr = curr.next.Load()
		}

		var results []KV[K, V]
		cur, ok := pred.bundle.Lookup(ts)
		// A bundled snapshot is defined solely by the successor chain
		// recorded at ts; a node's current marked bit reflects its present
		// logical state, not its state as of ts, so it is ignored here
		// (mirrors bundle_lazylist.h's getKeys: "ignore marked").
		for ok && cur != nil && cur.key <= hi {
			results = append(results, KV[K, V]{Key: cur.key, Value: *cur.val.Load()})
			cur, ok = cur.bundle.Lookup(ts)
		}

		l.provider.EndTraversal(tid)

		if ok {
			return results
		}
	}
}

// Sweep implements rq.Host: it visits every bundle reachable from head via
// the current (possibly stale, but always forward-progressing) next chain.
func (l *LazyList[K, V]) Sweep(visit func(bundle.Interface[*node[K, V]])) {
	for n := l.head; n != nil; n = n.next.Load() {
		visit(n.bundle)
	}
}

// Stats is a diagnostic snapshot of bundle occupancy across the list:
// reachable node count, and the largest and mean bundle sizes observed.
// Best-effort and non-linearizable, like bundle.Interface.Size itself.
type Stats struct {
	Nodes          int
	MaxBundleSize  int
	MeanBundleSize float64
}

// Stats walks the list once, computing Stats. Grounded on
// bundle_lazylist.h's getBundleStatsString, minus the string formatting.
func (l *LazyList[K, V]) Stats() Stats {
	var s Stats
	var total int
	for n := l.head; n != nil; n = n.next.Load() {
		s.Nodes++
		size := n.bundle.Size()
		total += size
		if size > s.MaxBundleSize {
			s.MaxBundleSize = size
		}
	}
	if s.Nodes > 0 {
		s.MeanBundleSize = float64(total) / float64(s.Nodes)
	}
	return s
}
