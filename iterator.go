package lazylist

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// Iterator provides a forward-only, unsynchronized view over a set. It may
// or may not observe mutations that race with it, but it always yields
// live items in strictly ascending key order.
type Iterator[T any, K constraints.Ordered] struct {
	advance func() (T, K, bool)
	item    T
	key     K
	valid   bool
}

func newIterator[T any, K constraints.Ordered](advance func() (T, K, bool)) *Iterator[T, K] {
	return &Iterator[T, K]{advance: advance}
}

// Valid reports whether the iterator currently points at an item.
func (it *Iterator[T, K]) Valid() bool {
	if it == nil {
		return false
	}
	return it.valid
}

// Item returns the item at the iterator's current position.
// It should only be called when Valid reports true.
func (it *Iterator[T, K]) Item() T {
	var zero T
	if it == nil || !it.valid {
		return zero
	}
	return it.item
}

// Key returns the key at the iterator's current position.
// It should only be called when Valid reports true.
func (it *Iterator[T, K]) Key() K {
	var zero K
	if it == nil || !it.valid {
		return zero
	}
	return it.key
}

// Next advances the iterator and reports whether it moved to an item. If the
// iterator was not valid prior to the call, it advances to the first item.
func (it *Iterator[T, K]) Next() bool {
	if it == nil || it.advance == nil {
		return false
	}
	for {
		item, key, ok := it.advance()
		if !ok {
			it.invalidate()
			it.advance = nil
			return false
		}
		// A node linked behind the cursor after it moved must not make the
		// sequence go backwards.
		if it.valid && key <= it.key {
			continue
		}
		it.item, it.key, it.valid = item, key, true
		return true
	}
}

// seekGE moves the iterator to the first item whose key is at least key.
func (it *Iterator[T, K]) seekGE(key K) *Iterator[T, K] {
	for it.Next() {
		if it.key >= key {
			break
		}
	}
	return it
}

func (it *Iterator[T, K]) invalidate() {
	var zeroT T
	var zeroK K
	it.item, it.key, it.valid = zeroT, zeroK, false
}

func collect[T any, K constraints.Ordered](it *Iterator[T, K]) []T {
	var items []T
	for it.Next() {
		items = append(items, it.Item())
	}
	return items
}

func render[T any, K constraints.Ordered](it *Iterator[T, K]) string {
	var sb strings.Builder
	for it.Next() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, it.Key())
	}
	return sb.String()
}
