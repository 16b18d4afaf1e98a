package lazylist

// find walks from head to the window bracketing key: pred orders before key
// and curr is the first node that does not. It takes no locks and performs
// no validation; callers validate the window after locking it.
func (s *LockCouplingSet[T, K]) find(key K) (pred, curr *lockNode[T, K]) {
	pred = s.head
	curr = pred.next.Load()
	for curr.below(key) {
		pred = curr
		curr = curr.next.Load()
	}
	return pred, curr
}

// advanceFrom returns the first unmarked item node after start, or nil once
// the tail is reached.
func (s *LockCouplingSet[T, K]) advanceFrom(start *lockNode[T, K]) *lockNode[T, K] {
	if start == nil {
		start = s.head
	}
	for next := start.next.Load(); next != nil; next = next.next.Load() {
		if next.kind == kindTail {
			return nil
		}
		if !next.marked.Load() {
			return next
		}
	}
	return nil
}

// find returns the window bracketing key, unlinking every tombstone it
// passes. When a snip loses its CAS the traversal restarts from head.
func (s *LockFreeSet[T, K]) find(key K) (pred, curr *freeNode[T, K]) {
retry:
	for {
		pred = s.head
		curr, _ = pred.load()
		for {
			succ, marked := curr.load()
			for marked {
				if !pred.cas(curr, succ, false, false) {
					s.metrics.incCASRetry()
					continue retry
				}
				s.metrics.incSnip()
				curr = succ
				succ, marked = curr.load()
			}
			if !curr.below(key) {
				return pred, curr
			}
			pred = curr
			curr = succ
		}
	}
}

// advanceFrom returns the first unmarked item node after start, or nil once
// the tail is reached. It reads only and leaves tombstones to find.
func (s *LockFreeSet[T, K]) advanceFrom(start *freeNode[T, K]) *freeNode[T, K] {
	if start == nil {
		start = s.head
	}
	next, _ := start.load()
	for next != nil {
		if next.kind == kindTail {
			return nil
		}
		succ, marked := next.load()
		if !marked {
			return next
		}
		next = succ
	}
	return nil
}
