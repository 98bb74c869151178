// Package diag provides the abort-with-diagnostic behavior required by the
// bundle subsystem's error handling design: every invariant violation is a
// programming error with no recoverable path, so it is logged (if a logger
// is configured) and the process is aborted via panic, with a dump of the
// offending state.
package diag

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/joeycumines/logiface"
)

// Logger is the structured logger accepted by bundle/rq constructors. It is
// optional: a nil Logger disables the log line but Abort still panics.
type Logger = *logiface.Logger[logiface.Event]

// Abort logs msg (with a spew dump of state as a field, if log is non-nil)
// at error level, then panics with the same information. Callers use this
// for the violations they detect: Linked.Prepare over an unfinalized pending
// head, Finalize without a pending entry (both representations),
// PrepareBundles with more bundles than MaxBundlesPerUpdate, and clock
// overflow. Reclaim does not check live entries for a pending marker, and
// Circular.Prepare waits on an unfinalized pending entry rather than
// aborting.
func Abort(log Logger, msg string, state any) {
	dump := spew.Sdump(state)
	if log != nil {
		log.Err().Str(`component`, `bundledrefs`).Str(`dump`, dump).Log(msg)
	}
	panic(fmt.Sprintf("bundledrefs: %s\n%s", msg, dump))
}
