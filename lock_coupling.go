package lazylist

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"
)

// LockCouplingSet is a concurrent ordered set with per-node mutexes.
// Traversals are optimistic and lock free; a mutation locks the
// predecessor and then the current node of its window, validates that the
// window is still adjacent and live, and retries from head otherwise.
// Deletion marks the node before unlinking it, so unlocked readers never
// mistake a removed node for a live one.
type LockCouplingSet[T any, K constraints.Ordered] struct {
	key     KeyFunc[T, K]
	head    *lockNode[T, K]
	tail    *lockNode[T, K]
	metrics *metrics
	log     *logrus.Entry
}

var _ Set[int, int] = (*LockCouplingSet[int, int])(nil)

// NewLockCouplingSet returns an empty set ordered by key. It panics with
// ErrNilKeyFunc if key is nil.
func NewLockCouplingSet[T any, K constraints.Ordered](key KeyFunc[T, K], opts ...Option) *LockCouplingSet[T, K] {
	if key == nil {
		panic(ErrNilKeyFunc)
	}
	cfg := newConfig(opts)
	head, tail := newLockSentinels[T, K]()
	return &LockCouplingSet[T, K]{
		key:     key,
		head:    head,
		tail:    tail,
		metrics: newMetrics(newRNG(), cfg.metrics),
		log:     cfg.log.WithField("set", "lock-coupling"),
	}
}

// NewLockCouplingSetFrom returns a set populated with items. It fails with
// ErrTooFewItems when items holds fewer than MinSeedItems entries.
func NewLockCouplingSetFrom[T any, K constraints.Ordered](key KeyFunc[T, K], items []T, opts ...Option) (*LockCouplingSet[T, K], error) {
	if key == nil {
		return nil, ErrNilKeyFunc
	}
	s := NewLockCouplingSet(key, opts...)
	if err := seed[T, K](s, items); err != nil {
		return nil, err
	}
	return s, nil
}

// NewIntLockCouplingSet returns an empty set of ints keyed by their value.
func NewIntLockCouplingSet(opts ...Option) *LockCouplingSet[int, int] {
	return NewLockCouplingSet(Identity[int](), opts...)
}

// validate reports whether pred and curr are still adjacent and live. The
// strict form also rejects nodes claimed by an in-flight Replace; plain
// Insert and Delete use it so they never mutate a claimed window.
func validate[T any, K constraints.Ordered](pred, curr *lockNode[T, K], strict bool) bool {
	if pred.marked.Load() || curr.marked.Load() || pred.next.Load() != curr {
		return false
	}
	if strict && (pred.replacing.Load() || curr.replacing.Load()) {
		return false
	}
	return true
}

// lockWindow finds the window for key and returns it locked and validated.
func (s *LockCouplingSet[T, K]) lockWindow(key K, strict bool) (pred, curr *lockNode[T, K]) {
	for {
		pred, curr = s.find(key)
		if afterWindowHook != nil {
			afterWindowHook(pred, curr)
		}

		pred.mu.Lock()
		curr.mu.Lock()
		if validate(pred, curr, strict) {
			return pred, curr
		}
		curr.mu.Unlock()
		pred.mu.Unlock()
		s.metrics.incValidationFailure()
	}
}

func unlockWindow[T any, K constraints.Ordered](pred, curr *lockNode[T, K]) {
	curr.mu.Unlock()
	pred.mu.Unlock()
}

// Contains reports whether an item with the key of item is present. It takes
// no locks; a node that is tombstoned or still claimed by a Replace does not
// count as present.
func (s *LockCouplingSet[T, K]) Contains(item T) bool {
	key := s.key(item)
	_, curr := s.find(key)
	return curr.matches(key) && !curr.marked.Load() && !curr.replacing.Load()
}

// Insert adds item and reports whether its key was absent.
func (s *LockCouplingSet[T, K]) Insert(item T) bool {
	_, ok := s.insert(item, s.key(item), false)
	return ok
}

// insert links a node for item. Inside a Replace the node is created
// claimed, and the regular validation is used. It returns the created node.
func (s *LockCouplingSet[T, K]) insert(item T, key K, inReplace bool) (*lockNode[T, K], bool) {
	pred, curr := s.lockWindow(key, !inReplace)
	defer unlockWindow(pred, curr)

	if curr.matches(key) {
		return nil, false
	}
	n := newLockNode(item, key)
	n.replacing.Store(inReplace)
	n.next.Store(curr)
	pred.next.Store(n)
	s.metrics.addLen(1)
	return n, true
}

// Delete removes the item with the key of item and reports whether it was
// present.
func (s *LockCouplingSet[T, K]) Delete(item T) bool {
	return s.delete(s.key(item), false)
}

func (s *LockCouplingSet[T, K]) delete(key K, inReplace bool) bool {
	pred, curr := s.lockWindow(key, !inReplace)
	defer unlockWindow(pred, curr)

	if !curr.matches(key) {
		return false
	}
	curr.marked.Store(true)
	pred.next.Store(curr.next.Load())
	s.metrics.addLen(-1)
	return true
}

// Len returns the advisory number of live items.
func (s *LockCouplingSet[T, K]) Len() int64 {
	return s.metrics.len()
}

// Stats returns the current counters.
func (s *LockCouplingSet[T, K]) Stats() Stats {
	return s.metrics.stats()
}

// Iterator returns an iterator positioned before the first item.
func (s *LockCouplingSet[T, K]) Iterator() *Iterator[T, K] {
	return newIterator(s.cursor(nil))
}

// SeekGE returns an iterator positioned at the first item whose key is
// greater than or equal to key. The iterator is valid iff such an item was
// observed.
func (s *LockCouplingSet[T, K]) SeekGE(key K) *Iterator[T, K] {
	pred, _ := s.find(key)
	return newIterator(s.cursor(pred)).seekGE(key)
}

func (s *LockCouplingSet[T, K]) cursor(start *lockNode[T, K]) func() (T, K, bool) {
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
func (s *LockCouplingSet[T, K]) Snapshot() []T {
	return collect(s.Iterator())
}

// String renders the keys of the snapshot separated by spaces.
func (s *LockCouplingSet[T, K]) String() string {
	return render(s.Iterator())
}
