package bundle

import (
	"sync/atomic"

	"github.com/jacnel/bundledrefs/diag"
)

// circState bits, composed into a single atomic word that doubles as a tiny
// coordinator between Prepare, Reclaim, Lookup (the only operation that
// increments rqs) and grow. Grounded on bundle/circular_bundle.h's
// NORMAL/PENDING/RESIZE/RECLAIM/RQ state machine (spec section 4.4); RQ is
// tracked here by the rqs counter itself rather than a separate state bit,
// so grow (which sets stateResize) and Lookup (which increments rqs) can be
// ordered against each other without a window where a reader is in flight
// but invisible to a concurrent grow.
type circState uint32

const (
	stateNormal  circState = 0
	statePending circState = 1 << 0
	stateResize  circState = 1 << 1
	stateReclaim circState = 1 << 2
)

// defaultInitialCapacity is the circular representation's starting entry
// array size (spec section 6, "initial_capacity ... default 5").
const defaultInitialCapacity = 5

type circEntry[N any] struct {
	succ N
	ts   Timestamp
}

// circBuf is the entry array, swapped wholesale on grow so that a Lookup in
// flight can keep reading a consistent, never-mutated-in-place snapshot.
type circBuf[N any] struct {
	entries  []circEntry[N]
	capacity int
}

// Circular is the array-backed representation of a bundle (spec section
// 4.1, "Circular representation"): a power-of-two entry array addressed by
// base/curr indices modulo capacity, plus a state word used as a tiny
// coordinator. Grounded on bundle/circular_bundle.h, with the grow() index
// skew named in spec.md's Open Questions fixed (entries are relocated to a
// canonical [0, size) prefix and base is reset to 0).
//
// The ring-buffer technique (power-of-two capacity, mask-based indexing,
// grow-by-doubling) follows the same shape as catrate's ringBuffer, adapted
// from a plain value ring to one holding (timestamp, successor) pairs
// behind a lock-free state machine instead of catrate's single-writer
// mutex.
type Circular[N any] struct {
	state atomic.Uint32 // circState bits
	base  atomic.Int64  // index of oldest entry
	curr  atomic.Int64  // index of newest entry; -1 means empty (no entry yet)
	rqs   atomic.Int32  // count of in-flight Lookup calls

	buf atomic.Pointer[circBuf[N]]

	log diag.Logger
}

// NewCircular constructs an empty Circular bundle with the given initial
// capacity (rounded up to the next power of two; <= 0 uses the default of
// 5, per spec section 6).
func NewCircular[N any](initialCapacity int, log diag.Logger) *Circular[N] {
	if initialCapacity <= 0 {
		initialCapacity = defaultInitialCapacity
	}
	cap := nextPow2(initialCapacity)
	c := &Circular[N]{log: log}
	c.curr.Store(-1)
	c.buf.Store(&circBuf[N]{entries: make([]circEntry[N], cap), capacity: cap})
	return c
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (c *Circular[N]) Prepare(succ N) {
	var b backoff
	for {
		s := c.state.Load()
		if circState(s)&statePending != 0 {
			b.wait()
			continue
		}
		if !c.state.CompareAndSwap(s, s|uint32(statePending)) {
			b.wait()
			continue
		}
		break
	}
	// Locked (effectively): we hold the PENDING bit.

	buf := c.buf.Load()
	curr := c.curr.Load()
	base := c.base.Load()
	next := wrap(curr+1, buf.capacity)
	if next == wrap(base, buf.capacity) && curr >= 0 {
		buf = c.grow(buf)
		curr = c.curr.Load()
		next = wrap(curr+1, buf.capacity)
	}
	buf.entries[next] = circEntry[N]{succ: succ, ts: PendingTimestamp}
}

// grow doubles capacity, relocating the live entries [base, curr] to a
// canonical [0, size) prefix of the new array and resetting base/curr
// accordingly — the fix for the index-skew bug spec.md's Open Questions
// flags in the original grow().
//
// Callers must hold the PENDING bit; grow additionally waits out any
// concurrent reclaimer/reader before swapping the backing array, then
// returns the new buffer.
func (c *Circular[N]) grow(old *circBuf[N]) *circBuf[N] {
	var b backoff
	for {
		s := c.state.Load()
		if circState(s)&stateReclaim != 0 {
			b.wait()
			continue
		}
		if !c.state.CompareAndSwap(s, s|uint32(stateResize)) {
			b.wait()
			continue
		}
		break
	}
	// stateResize is now visible to every Lookup that checks it after this
	// point, and any Lookup that incremented rqs before this point retracts
	// itself once it observes the bit (see Lookup). Either way rqs drains
	// to zero.
	for c.rqs.Load() != 0 {
		b.wait()
	}

	base := c.base.Load()
	curr := c.curr.Load()
	size := 0
	if curr >= base {
		size = int(curr-base) + 1
	} else if curr >= 0 {
		size = int(int64(old.capacity)-base) + int(curr) + 1
	}

	next := &circBuf[N]{entries: make([]circEntry[N], old.capacity*2), capacity: old.capacity * 2}
	for i := 0; i < size; i++ {
		next.entries[i] = old.entries[wrap(base+int64(i), old.capacity)]
	}

	c.buf.Store(next)
	c.base.Store(0)
	if size > 0 {
		c.curr.Store(int64(size - 1))
	} else {
		c.curr.Store(-1)
	}

	for {
		s := c.state.Load()
		if c.state.CompareAndSwap(s, s&^uint32(stateResize)) {
			break
		}
	}
	return next
}

func (c *Circular[N]) Finalize(ts Timestamp) {
	if circState(c.state.Load())&statePending == 0 {
		diag.Abort(c.log, `finalize called without a pending entry`, c)
	}
	buf := c.buf.Load()
	curr := c.curr.Load()
	next := wrap(curr+1, buf.capacity)
	if buf.entries[next].ts != PendingTimestamp {
		diag.Abort(c.log, `finalize observed a non-pending slot`, c)
	}
	buf.entries[next].ts = ts
	c.curr.Store(wrap(curr+1, buf.capacity))

	for {
		s := c.state.Load()
		if c.state.CompareAndSwap(s, s&^uint32(statePending)) {
			break
		}
	}
}

func (c *Circular[N]) Lookup(ts Timestamp) (succ N, ok bool) {
	var b backoff
	for {
		if circState(c.state.Load())&stateResize != 0 {
			b.wait()
			continue
		}
		c.rqs.Add(1)
		// A grow that set stateResize between our check above and this
		// increment would otherwise miss us and swap the buffer out from
		// under this call; retract and retry if that happened.
		if circState(c.state.Load())&stateResize != 0 {
			c.rqs.Add(-1)
			b.wait()
			continue
		}
		break
	}

	buf := c.buf.Load()
	curr := c.curr.Load()
	base := c.base.Load()
	end := base
	i := curr
	if end > i {
		i += int64(buf.capacity)
	}

	found := false
	for ; i >= end; i-- {
		e := buf.entries[wrap(i, buf.capacity)]
		if e.ts != PendingTimestamp && e.ts <= ts {
			succ = e.succ
			found = true
			break
		}
	}

	c.rqs.Add(-1)
	return succ, found
}

func (c *Circular[N]) Reclaim(oldestActive Timestamp) {
	var b backoff
	for {
		s := c.state.Load()
		if circState(s)&stateResize != 0 {
			b.wait()
			continue
		}
		if !c.state.CompareAndSwap(s, s|uint32(stateReclaim)) {
			b.wait()
			continue
		}
		break
	}

	buf := c.buf.Load()
	curr := c.curr.Load()
	base := c.base.Load()
	end := base
	i := curr
	if end > i {
		i += int64(buf.capacity)
	}

	newBase := base
	for ; i >= end; i-- {
		idx := wrap(i, buf.capacity)
		ts := buf.entries[idx].ts
		if ts != PendingTimestamp && (oldestActive == NullTimestamp || ts <= oldestActive) {
			// Entries are append-only in timestamp order, so walking from
			// newest to oldest hits the newest dominating entry first:
			// that one becomes the new base (I4), and anything strictly
			// older than it is now unreachable and reclaimable.
			newBase = idx
			break
		}
	}
	c.base.Store(newBase)

	for {
		s := c.state.Load()
		if c.state.CompareAndSwap(s, s&^uint32(stateReclaim)) {
			break
		}
	}
}

func (c *Circular[N]) Size() int {
	buf := c.buf.Load()
	curr := c.curr.Load()
	base := c.base.Load()
	if curr < 0 {
		return 0
	}
	if base > curr {
		return (buf.capacity - int(base)) + int(curr) + 1
	}
	return int(curr-base) + 1
}

func wrap(i int64, capacity int) int64 {
	c := int64(capacity)
	return ((i % c) + c) % c
}
