package lazylist

// Replace deletes oldItem and inserts newItem as two separate structural
// operations and reports whether either had an effect. The operation on the
// lower key runs first so that concurrent Replace calls acquire node locks
// in one global order. Between the halves an observer may see neither key.
//
// The node inserted for newItem is claimed until Replace returns: Contains
// does not report it and plain Insert/Delete do not touch its window. When
// both items share a key only the insertion half runs, so replacing a
// present item with itself returns false and changes nothing.
func (s *LockCouplingSet[T, K]) Replace(oldItem, newItem T) bool {
	oldKey, newKey := s.key(oldItem), s.key(newItem)

	var (
		created  *lockNode[T, K]
		inserted bool
		deleted  bool
	)
	switch {
	case oldKey == newKey:
		created, inserted = s.insert(newItem, newKey, true)
	case oldKey < newKey:
		deleted = s.delete(oldKey, true)
		created, inserted = s.insert(newItem, newKey, true)
	default:
		created, inserted = s.insert(newItem, newKey, true)
		deleted = s.delete(oldKey, true)
	}

	if betweenReplacePhasesHook != nil {
		betweenReplacePhasesHook()
	}

	if created != nil {
		s.release(created)
	}
	return deleted || inserted
}

// release clears the claim on n under the locks of its window. If n was
// removed in the meantime (only another Replace can do that) there is
// nothing left to release.
func (s *LockCouplingSet[T, K]) release(n *lockNode[T, K]) {
	for {
		if n.marked.Load() {
			s.abandon(n)
			return
		}
		pred, curr := s.find(n.key)
		if curr != n {
			continue
		}

		pred.mu.Lock()
		curr.mu.Lock()
		if !validate(pred, curr, false) {
			unlockWindow(pred, curr)
			s.metrics.incValidationFailure()
			continue
		}
		n.replacing.Store(false)
		unlockWindow(pred, curr)
		return
	}
}

func (s *LockCouplingSet[T, K]) abandon(n *lockNode[T, K]) {
	s.metrics.incReplaceAbandoned()
	s.log.WithField("key", n.key).Debug("replace target removed before release")
}
