package rq

import "time"

// Representation selects which bundle.Interface implementation Provider
// constructs for new bundles (spec section 9, "Dynamic dispatch between
// representations ... chosen at build time").
type Representation int

const (
	// RepresentationLinked selects bundle.Linked.
	RepresentationLinked Representation = iota
	// RepresentationCircular selects bundle.Circular.
	RepresentationCircular
)

// CleanupMode selects how stale bundle entries are reclaimed (spec section
// 6, "cleanup_mode").
type CleanupMode int

const (
	// CleanupOff performs no reclamation; the host must eventually drive
	// Reclaim itself (e.g. via a manual sweep before shutdown).
	CleanupOff CleanupMode = iota
	// CleanupInline reclaims each touched bundle immediately after every
	// FinalizeBundles call.
	CleanupInline
	// CleanupBackground runs a single sweeper goroutine that periodically
	// reclaims every reachable bundle.
	CleanupBackground
)

// Config collects the tuning constants spec section 6 lists as
// "compile-time or config struct", replacing the original's preprocessor
// flags (BUNDLE_CIRCULAR_BUNDLE | BUNDLE_CLEANUP | ... ). Zero-value fields
// take the defaults documented below, following the same
// zero-means-default convention as the teacher's BatcherConfig.
type Config struct {
	// Representation selects the bundle implementation. Default:
	// RepresentationLinked.
	Representation Representation

	// CleanupMode selects the reclamation policy. Default (zero value):
	// CleanupOff.
	CleanupMode CleanupMode

	// InitialCapacity is the circular representation's starting entry
	// array size; ignored for RepresentationLinked. Default: 5.
	InitialCapacity int

	// MaxBundlesPerUpdate bounds how many bundles a single update may
	// touch (PrepareBundles/FinalizeBundles slice length); used only for
	// validation. Default: 4.
	MaxBundlesPerUpdate int

	// TimestampRelaxation, if > 0, makes the clock bump only every N
	// updates per process, reusing the last-observed value otherwise
	// (spec section 4.3). 0 disables relaxation.
	TimestampRelaxation uint64

	// BackgroundSleepInterval is the sweeper's poll period, used only when
	// CleanupMode is CleanupBackground. Default: 10ms.
	BackgroundSleepInterval time.Duration
}

// withDefaults returns a copy of c with zero (or negative) fields replaced
// by defaults, once, at construction (mirroring the teacher's NewBatcher).
// Because BackgroundSleepInterval is defaulted first, the background-cleanup
// check below never panics for any input.
func (c Config) withDefaults() Config {
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = 5
	}
	if c.MaxBundlesPerUpdate <= 0 {
		c.MaxBundlesPerUpdate = 4
	}
	if c.BackgroundSleepInterval <= 0 {
		c.BackgroundSleepInterval = 10 * time.Millisecond
	}
	if c.CleanupMode == CleanupBackground && c.BackgroundSleepInterval <= 0 {
		panic(`rq: background cleanup requires a positive BackgroundSleepInterval`)
	}
	return c
}
