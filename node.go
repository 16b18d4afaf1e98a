package lazylist

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// lockNode is a list cell of LockCouplingSet. marked, replacing and next are
// written only while mu is held; unlocked readers see possibly stale values,
// so the fields are atomics to keep those reads race free.
type lockNode[T any, K constraints.Ordered] struct {
	key  K
	item T
	kind nodeKind

	mu        sync.Mutex
	marked    atomic.Bool
	replacing atomic.Bool
	next      atomic.Pointer[lockNode[T, K]]
}

func newLockNode[T any, K constraints.Ordered](item T, key K) *lockNode[T, K] {
	return &lockNode[T, K]{key: key, item: item, kind: kindItem}
}

func newLockSentinels[T any, K constraints.Ordered]() (*lockNode[T, K], *lockNode[T, K]) {
	head := &lockNode[T, K]{kind: kindHead}
	tail := &lockNode[T, K]{kind: kindTail}
	head.next.Store(tail)
	return head, tail
}

func (n *lockNode[T, K]) below(key K) bool   { return below(n.kind, n.key, key) }
func (n *lockNode[T, K]) matches(key K) bool { return matches(n.kind, n.key, key) }

// markedRef is an immutable successor/mark pair. A node's pair is replaced
// as a whole, never mutated, so one pointer CAS updates both fields.
type markedRef[T any, K constraints.Ordered] struct {
	next   *freeNode[T, K]
	marked bool
}

// freeNode is a list cell of LockFreeSet.
type freeNode[T any, K constraints.Ordered] struct {
	key  K
	item T
	kind nodeKind
	ref  atomic.Pointer[markedRef[T, K]]
}

func newFreeNode[T any, K constraints.Ordered](item T, key K, next *freeNode[T, K]) *freeNode[T, K] {
	n := &freeNode[T, K]{key: key, item: item, kind: kindItem}
	n.ref.Store(&markedRef[T, K]{next: next})
	return n
}

func newFreeSentinels[T any, K constraints.Ordered]() (*freeNode[T, K], *freeNode[T, K]) {
	tail := &freeNode[T, K]{kind: kindTail}
	tail.ref.Store(&markedRef[T, K]{})
	head := &freeNode[T, K]{kind: kindHead}
	head.ref.Store(&markedRef[T, K]{next: tail})
	return head, tail
}

func (n *freeNode[T, K]) below(key K) bool   { return below(n.kind, n.key, key) }
func (n *freeNode[T, K]) matches(key K) bool { return matches(n.kind, n.key, key) }

// load returns the successor and the mark of n as one consistent pair.
func (n *freeNode[T, K]) load() (*freeNode[T, K], bool) {
	r := n.ref.Load()
	return r.next, r.marked
}

// cas installs (next, mark) if the current pair is (expNext, expMark).
func (n *freeNode[T, K]) cas(expNext, next *freeNode[T, K], expMark, mark bool) bool {
	cur := n.ref.Load()
	if cur.next != expNext || cur.marked != expMark {
		return false
	}
	if expNext == next && expMark == mark {
		return true
	}
	return n.ref.CompareAndSwap(cur, &markedRef[T, K]{next: next, marked: mark})
}
