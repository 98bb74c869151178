package lazylist

import (
	"sync"
	"sync/atomic"

	"github.com/jacnel/bundledrefs/bundle"
)

// node is the host ordered-set's element type (spec section 8, component
// C5): a sorted singly-linked list node carrying a lock for the lazy
// synchronization protocol (Heller et al., "A Lazy Concurrent List-Based Set
// Algorithm") and a bundle recording every successor it has ever had.
type node[K any, V any] struct {
	key    K
	val    atomic.Pointer[V]
	next   atomic.Pointer[node[K, V]]
	lock   sync.Mutex
	marked atomic.Bool
	bundle bundle.Interface[*node[K, V]]
}

func newNode[K any, V any](key K, val V, next *node[K, V]) *node[K, V] {
	n := &node[K, V]{key: key}
	n.val.Store(&val)
	n.next.Store(next)
	return n
}
