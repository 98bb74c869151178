package bundle

import (
	"runtime"
	"sync/atomic"
)

// spinLimit bounds how many pause-hint iterations a backoff spends spinning
// on a relaxed atomic load before it starts yielding the processor via
// runtime.Gosched, per the design notes ("short bounded backoff: pause-hint,
// then yield after K iterations").
const spinLimit = 32

// backoff is a tiny spin/yield helper used everywhere a reader must wait out
// a concurrent Prepare/Finalize or resize window. Every spin loop in this
// package is bounded by a single concurrent update's prepare->finalize
// window (or a single resize), so no sleep-based fallback is needed: a
// bounded number of iterations is always enough progress to make forward
// headway without pegging a core.
type backoff struct{ n int }

func (b *backoff) wait() {
	b.n++
	if b.n <= spinLimit {
		// A relaxed atomic load is Go's closest stand-in for a PAUSE
		// hint: it costs a real memory operation the compiler cannot
		// elide, without surrendering the P the way Gosched does.
		var hint atomic.Int32
		hint.Load()
		return
	}
	runtime.Gosched()
}
