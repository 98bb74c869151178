package rq

import (
	"sync/atomic"

	"github.com/jacnel/bundledrefs/bundle"
)

// cacheLinePad is sized to keep adjacent slots from false-sharing under
// concurrent StartTraversal/EndTraversal/OldestActive traffic; the original
// aligns and sizes the whole per-thread struct to __THREAD_DATA_SIZE for the
// same reason (spec section 4.2: "Each slot is padded to its own cache
// line").
const cacheLinePad = 64

type announceSlot struct {
	linTime atomic.Uint64
	flag    atomic.Bool
	_       [cacheLinePad]byte
}

// AnnouncementTable is the process-indexed table advertising each reader's
// captured linearization timestamp (spec section 4.2, component C2). One
// slot per process, allocated up front in NewAnnouncementTable.
type AnnouncementTable struct {
	slots []announceSlot
}

// NewAnnouncementTable allocates a table with one slot per process, all
// initially inactive (NullTimestamp).
func NewAnnouncementTable(numProcesses int) *AnnouncementTable {
	return &AnnouncementTable{slots: make([]announceSlot, numProcesses)}
}

// StartTraversal publishes the reader's snapshot timestamp (the clock's
// current value) and returns it. The three-store sequence (flag up, time,
// flag down) lets OldestActive observe a coherent (time) pair despite it
// not being a single word, per spec section 4.2.
func (t *AnnouncementTable) StartTraversal(i int, clk *Clock) bundle.Timestamp {
	s := &t.slots[i]
	s.flag.Store(true)
	ts := clk.Load()
	s.linTime.Store(uint64(ts))
	s.flag.Store(false)
	return ts
}

// EndTraversal withdraws process i's announcement.
func (t *AnnouncementTable) EndTraversal(i int) {
	t.slots[i].linTime.Store(uint64(bundle.NullTimestamp))
}

// OldestActive scans every slot and returns the smallest active snapshot
// timestamp, or NullTimestamp if no reader is active. Used by reclamation
// to determine which bundle entries are safe to drop.
func (t *AnnouncementTable) OldestActive() bundle.Timestamp {
	oldest := bundle.MaxTimestamp
	var b backoff
	for i := range t.slots {
		s := &t.slots[i]
		for s.flag.Load() {
			b.wait()
		}
		ts := bundle.Timestamp(s.linTime.Load())
		if ts != bundle.NullTimestamp && ts < oldest {
			oldest = ts
		}
	}
	if oldest == bundle.MaxTimestamp {
		return bundle.NullTimestamp
	}
	return oldest
}
