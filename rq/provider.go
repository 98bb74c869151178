package rq

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jacnel/bundledrefs/bundle"
	"github.com/jacnel/bundledrefs/diag"
)

// Host is the narrow surface a background sweeper needs from the ordered
// set: a way to visit every reachable bundle. A host that never calls
// StartCleanup may pass nil.
type Host[N any] interface {
	// Sweep calls visit once per reachable bundle. Implementations
	// typically walk the node graph from a fixed entry point.
	Sweep(visit func(bundle.Interface[N]))
}

// RecordManager is the external collaborator responsible for safe memory
// reclamation of whole host nodes (spec section 1, "out of scope"). Provider
// only forwards retired nodes to it; see the lazylist package's
// gcRecordManager for why a real implementation is usually unnecessary in
// Go.
type RecordManager[N any] interface {
	Retire(tid int, nodes []N)
}

// relaxState tracks one process's progress through a timestamp-relaxation
// window (spec section 4.3).
type relaxState struct {
	count   atomic.Uint64
	lastTs  atomic.Uint64
	primed  atomic.Bool
	_       [cacheLinePad]byte
}

// Provider is the RQ provider / coordinator (spec section 4.4, component
// C4): it binds a Clock, an AnnouncementTable, and a set of bundles behind
// the two-phase update protocol and the traversal API a host calls.
type Provider[N any] struct {
	cfg    Config
	clock  *Clock
	table  *AnnouncementTable
	host   Host[N]
	recmgr RecordManager[N]
	log    diag.Logger

	relax []relaxState // one per process, only used if cfg.TimestampRelaxation > 0

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	wg      sync.WaitGroup
}

// NewProvider constructs a Provider for numProcesses concurrent threads.
// host may be nil if CleanupMode is never CleanupBackground; recmgr may be
// nil if the host does not need physical-deletion notifications.
func NewProvider[N any](numProcesses int, cfg Config, host Host[N], recmgr RecordManager[N], log diag.Logger) *Provider[N] {
	cfg = cfg.withDefaults()
	p := &Provider[N]{
		cfg:    cfg,
		clock:  NewClock(),
		table:  NewAnnouncementTable(numProcesses),
		host:   host,
		recmgr: recmgr,
		log:    log,
	}
	p.clock.log = log
	if cfg.TimestampRelaxation > 0 {
		p.relax = make([]relaxState, numProcesses)
	}
	return p
}

// InitThread and DeinitThread are no-ops retained for parity with the
// original's initThread/deinitThread (spec section 6); Go's goroutines need
// no per-thread registration, so these exist purely as a stable interface
// seam for hosts migrating from the C++ API.
func (p *Provider[N]) InitThread(int)   {}
func (p *Provider[N]) DeinitThread(int) {}

// DeinitBundle is a no-op retained for parity with the original's
// deinit_bundle (spec section 6): under Go's garbage collector a bundle
// needs no explicit teardown once its host node is unreachable, but hosts
// migrating from the C++ API can still call this at the same point they
// used to.
func (p *Provider[N]) DeinitBundle(bundle.Interface[N]) {}

// NewBundle constructs a bundle.Interface bound to a fresh host node, using
// whichever representation Config selected (spec section 4.4, init_bundle).
func (p *Provider[N]) NewBundle() bundle.Interface[N] {
	switch p.cfg.Representation {
	case RepresentationCircular:
		return bundle.NewCircular[N](p.cfg.InitialCapacity, p.log)
	default:
		return bundle.NewLinked[N](p.log)
	}
}

// PrepareBundles calls Prepare(succs[k]) on every non-nil bundles[k] (spec
// section 4.4, phase 1 of the two-phase update protocol). Nil entries are
// skipped, allowing callers to pass a fixed-size array with trailing unused
// slots (mirroring the original's null-terminated bundle arrays).
func (p *Provider[N]) PrepareBundles(bundles []bundle.Interface[N], succs []N) {
	if len(bundles) > p.cfg.MaxBundlesPerUpdate {
		diag.Abort(p.log, `prepare_bundles called with more bundles than MaxBundlesPerUpdate`, bundles)
	}
	for i, b := range bundles {
		if b == nil {
			continue
		}
		b.Prepare(succs[i])
	}
}

// LinearizeUpdate assigns a new linearization timestamp and invokes store
// with it — store is expected to perform the host's ordinary linearizing
// write (e.g. an atomic pointer store), per spec section 4.4 phase 2. This
// generalizes the original's `*lin_addr = new_val` out-parameter into a
// closure, which is the idiomatic Go shape for "run this store under the
// timestamp I just reserved" (see DESIGN.md).
func (p *Provider[N]) LinearizeUpdate(tid int, store func(ts bundle.Timestamp)) bundle.Timestamp {
	ts := p.nextTimestamp(tid)
	store(ts)
	return ts
}

func (p *Provider[N]) nextTimestamp(tid int) bundle.Timestamp {
	if p.cfg.TimestampRelaxation == 0 {
		return p.clock.Next()
	}

	rs := &p.relax[tid]
	if !rs.primed.Load() {
		rs.lastTs.Store(uint64(p.clock.Load()))
		rs.primed.Store(true)
	}

	n := rs.count.Add(1)
	if n%p.cfg.TimestampRelaxation == 0 {
		ts := p.clock.Next()
		rs.lastTs.Store(uint64(ts))
		return ts
	}
	return bundle.Timestamp(rs.lastTs.Load())
}

// FinalizeBundles publishes ts on every non-nil bundle (phase 3), then, if
// CleanupMode is CleanupInline, reclaims each one against the current
// oldest active reader.
func (p *Provider[N]) FinalizeBundles(bundles []bundle.Interface[N], ts bundle.Timestamp) {
	for _, b := range bundles {
		if b == nil {
			continue
		}
		b.Finalize(ts)
		if p.cfg.CleanupMode == CleanupInline {
			b.Reclaim(p.table.OldestActive())
		}
	}
}

// StartTraversal publishes process i's snapshot timestamp and returns it.
func (p *Provider[N]) StartTraversal(i int) bundle.Timestamp {
	return p.table.StartTraversal(i, p.clock)
}

// EndTraversal withdraws process i's announcement.
func (p *Provider[N]) EndTraversal(i int) {
	p.table.EndTraversal(i)
}

// OldestActiveTimestamp exposes AnnouncementTable.OldestActive for hosts
// that want to reclaim outside of FinalizeBundles (e.g. a manual sweep).
func (p *Provider[N]) OldestActiveTimestamp() bundle.Timestamp {
	return p.table.OldestActive()
}

// PhysicalDeletionSucceeded forwards nodes that have been physically
// unlinked to the record manager, if one was configured.
func (p *Provider[N]) PhysicalDeletionSucceeded(tid int, nodes []N) {
	if p.recmgr != nil {
		p.recmgr.Retire(tid, nodes)
	}
}

// StartCleanup launches the background sweeper goroutine, if
// CleanupMode is CleanupBackground. It is a no-op otherwise, or if already
// running. Grounded on catrate's Limiter.worker: a ticker-driven loop,
// gated by a CompareAndSwap so a second StartCleanup is harmless.
func (p *Provider[N]) StartCleanup() {
	if p.cfg.CleanupMode != CleanupBackground || p.host == nil {
		return
	}
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.wg.Add(1)
	go p.cleanupLoop()
}

func (p *Provider[N]) cleanupLoop() {
	defer p.wg.Done()
	defer close(p.doneCh)

	ticker := time.NewTicker(p.cfg.BackgroundSleepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweepOnce()
		case <-p.stopCh:
			p.sweepOnce() // final sweep, per spec section 5 ("Cancellation")
			return
		}
	}
}

func (p *Provider[N]) sweepOnce() {
	oldest := p.table.OldestActive()
	p.host.Sweep(func(b bundle.Interface[N]) {
		b.Reclaim(oldest)
	})
}

// StopCleanup joins the background sweeper, performing one final sweep
// first. A no-op if the sweeper was never started.
func (p *Provider[N]) StopCleanup() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	<-p.doneCh
	p.wg.Wait()
}
