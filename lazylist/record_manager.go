package lazylist

// gcRecordManager is a rq.RecordManager that does nothing: physically
// unlinked nodes stay reachable only through in-flight bundle entries
// (invariant I3), and once no bundle references them Go's garbage
// collector reclaims them itself. The original's RecManager exists to give
// the record-based reclamation scheme (hazard pointers, epoch-based
// reclamation, ...) a place to defer frees to until no thread can still
// dereference a retired node; Go's GC already provides that guarantee for
// the whole-node case, so there is nothing left for this type to do.
type gcRecordManager[N any] struct{}

func (gcRecordManager[N]) Retire(tid int, nodes []N) {}
