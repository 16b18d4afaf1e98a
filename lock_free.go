package lazylist

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"
)

// LockFreeSet is a concurrent ordered set that never blocks. Every node
// carries its successor and its deletion mark as one atomically swapped
// pair, so a node cannot gain a successor once it is marked. Deletion
// marks the victim (the linearization point) and then tries to unlink it;
// tombstones left behind are unlinked by later traversals.
//
// Unlinked nodes are reclaimed by the garbage collector once no goroutine
// still references them, and nodes are never reused.
type LockFreeSet[T any, K constraints.Ordered] struct {
	key     KeyFunc[T, K]
	head    *freeNode[T, K]
	tail    *freeNode[T, K]
	metrics *metrics
	log     *logrus.Entry
}

var _ Set[int, int] = (*LockFreeSet[int, int])(nil)

// NewLockFreeSet returns an empty set ordered by key. It panics with
// ErrNilKeyFunc if key is nil.
func NewLockFreeSet[T any, K constraints.Ordered](key KeyFunc[T, K], opts ...Option) *LockFreeSet[T, K] {
	if key == nil {
		panic(ErrNilKeyFunc)
	}
	cfg := newConfig(opts)
	head, tail := newFreeSentinels[T, K]()
	return &LockFreeSet[T, K]{
		key:     key,
		head:    head,
		tail:    tail,
		metrics: newMetrics(newRNG(), cfg.metrics),
		log:     cfg.log.WithField("set", "lock-free"),
	}
}

// NewLockFreeSetFrom returns a set populated with items. It fails with
// ErrTooFewItems when items holds fewer than MinSeedItems entries.
func NewLockFreeSetFrom[T any, K constraints.Ordered](key KeyFunc[T, K], items []T, opts ...Option) (*LockFreeSet[T, K], error) {
	if key == nil {
		return nil, ErrNilKeyFunc
	}
	s := NewLockFreeSet(key, opts...)
	if err := seed[T, K](s, items); err != nil {
		return nil, err
	}
	return s, nil
}

// NewIntLockFreeSet returns an empty set of ints keyed by their value.
func NewIntLockFreeSet(opts ...Option) *LockFreeSet[int, int] {
	return NewLockFreeSet(Identity[int](), opts...)
}

// Contains reports whether an unmarked node carries the key of item. It
// performs no CAS.
func (s *LockFreeSet[T, K]) Contains(item T) bool {
	key := s.key(item)
	curr, _ := s.head.load()
	for curr.below(key) {
		curr, _ = curr.load()
	}
	_, marked := curr.load()
	return curr.matches(key) && !marked
}

// Insert adds item and reports whether its key was absent.
func (s *LockFreeSet[T, K]) Insert(item T) bool {
	key := s.key(item)
	for {
		pred, curr := s.find(key)
		if curr.matches(key) {
			return false
		}
		n := newFreeNode(item, key, curr)
		if pred.cas(curr, n, false, false) {
			s.metrics.incCASSuccess()
			s.metrics.addLen(1)
			return true
		}
		s.metrics.incCASRetry()
	}
}

// Delete removes the item with the key of item and reports whether it was
// present.
func (s *LockFreeSet[T, K]) Delete(item T) bool {
	key := s.key(item)
	for {
		pred, curr := s.find(key)
		if !curr.matches(key) {
			return false
		}
		succ, _ := curr.load()
		if !curr.cas(succ, succ, false, true) {
			s.metrics.incCASRetry()
			continue
		}
		s.metrics.incCASSuccess()
		s.metrics.addLen(-1)

		if afterLogicalDeleteHook != nil {
			afterLogicalDeleteHook(curr)
		}

		// A failed unlink leaves the tombstone for a later find.
		if pred.cas(curr, succ, false, false) {
			s.metrics.incSnip()
		} else if s.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			s.log.WithField("key", key).Trace("tombstone left for traversal")
		}
		return true
	}
}

// Replace deletes oldItem and inserts newItem, the lower key first, and
// reports whether either had an effect. The pair is not atomic. When both
// items share a key it behaves as Insert(newItem).
func (s *LockFreeSet[T, K]) Replace(oldItem, newItem T) bool {
	oldKey, newKey := s.key(oldItem), s.key(newItem)
	switch {
	case oldKey == newKey:
		return s.Insert(newItem)
	case oldKey < newKey:
		deleted := s.Delete(oldItem)
		inserted := s.Insert(newItem)
		return deleted || inserted
	default:
		inserted := s.Insert(newItem)
		deleted := s.Delete(oldItem)
		return deleted || inserted
	}
}

// Len returns the advisory number of live items.
func (s *LockFreeSet[T, K]) Len() int64 {
	return s.metrics.len()
}

// Stats returns the current counters.
func (s *LockFreeSet[T, K]) Stats() Stats {
	return s.metrics.stats()
}

// Iterator returns an iterator positioned before the first item.
func (s *LockFreeSet[T, K]) Iterator() *Iterator[T, K] {
	return newIterator(s.cursor(nil))
}

// SeekGE returns an iterator positioned at the first item whose key is
// greater than or equal to key. The iterator is valid iff such an item was
// observed.
func (s *LockFreeSet[T, K]) SeekGE(key K) *Iterator[T, K] {
	pred, _ := s.find(key)
	return newIterator(s.cursor(pred)).seekGE(key)
}

func (s *LockFreeSet[T, K]) cursor(start *freeNode[T, K]) func() (T, K, bool) {
	cur := start
	return func() (T, K, bool) {
		next := s.advanceFrom(cur)
		if next == nil {
			var zeroT T
			var zeroK K
			return zeroT, zeroK, false
		}
		cur = next
		return next.item, next.key, true
	}
}

// Snapshot returns the live items in ascending key order.
func (s *LockFreeSet[T, K]) Snapshot() []T {
	return collect(s.Iterator())
}

// String renders the keys of the snapshot separated by spaces.
func (s *LockFreeSet[T, K]) String() string {
	return render(s.Iterator())
}
