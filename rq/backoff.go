package rq

import "runtime"

// backoff is a simpler counterpart of bundle's spin/yield helper: it calls
// runtime.Gosched on every wait and has no pause-hint spin phase first.
// Every spin loop here waits out a single reader's three-store publication
// (spec section 5, "Suspension points").
type backoff struct{ n int }

func (b *backoff) wait() {
	b.n++
	runtime.Gosched()
}
