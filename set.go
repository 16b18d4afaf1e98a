// Package lazylist provides concurrent ordered sets of keyed items backed by
// singly linked lists. Two synchronization strategies are available:
// LockCouplingSet uses per-node mutexes with optimistic traversal and lazy
// deletion, LockFreeSet uses compare-and-swap over a successor/mark pair.
package lazylist

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"
)

// MinSeedItems is the smallest population accepted by the seeded constructors.
const MinSeedItems = 1

var (
	// ErrTooFewItems is returned by the seeded constructors when they are
	// given fewer than MinSeedItems items.
	ErrTooFewItems = errors.New("lazylist: too few seed items")
	// ErrNilKeyFunc is returned when a set is built without a key function.
	ErrNilKeyFunc = errors.New("lazylist: nil key function")
)

// KeyFunc derives the ordering key of an item. It must be deterministic:
// the same item always yields the same key.
type KeyFunc[T any, K constraints.Ordered] func(item T) K

// Identity returns a KeyFunc for sets whose items are their own keys.
func Identity[K constraints.Ordered]() KeyFunc[K, K] {
	return func(item K) K { return item }
}

// Set is the operation surface shared by both strategies. Every method is
// safe for concurrent use without external synchronization.
type Set[T any, K constraints.Ordered] interface {
	// Contains reports whether an item with the key of item is present.
	// It never blocks and may miss concurrent mutations.
	Contains(item T) bool

	// Insert adds item. It returns false if its key is already present.
	Insert(item T) bool

	// Delete removes the item with the key of item. It returns false if the
	// key is absent.
	Delete(item T) bool

	// Replace deletes oldItem and inserts newItem. It returns true if either
	// half had an effect. The pair is not atomic.
	Replace(oldItem, newItem T) bool

	// Len returns the advisory number of live items.
	Len() int64

	// Snapshot returns the live items in ascending key order. It is not
	// linearizable and is meant for diagnostics and tests.
	Snapshot() []T

	// Iterator returns an iterator positioned before the first item.
	Iterator() *Iterator[T, K]

	// SeekGE returns an iterator positioned at the first item whose key is
	// greater than or equal to key.
	SeekGE(key K) *Iterator[T, K]

	// Stats returns the current counters.
	Stats() Stats

	// String renders the snapshot keys separated by single spaces.
	String() string
}

// Option configures a set at construction time.
type Option func(*config)

type config struct {
	log     *logrus.Entry
	metrics bool
}

func newConfig(opts []Option) config {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := config{
		log:     logrus.NewEntry(discard),
		metrics: true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger sets the entry used for the rare events a set reports.
func WithLogger(log *logrus.Entry) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics enables or disables the contention counters. The size
// counter is always maintained.
func WithMetrics(enabled bool) Option {
	return func(c *config) { c.metrics = enabled }
}

// nodeKind distinguishes the sentinels from item nodes so that every value
// of K remains usable as a key.
type nodeKind int8

const (
	kindHead nodeKind = iota - 1
	kindItem
	kindTail
)

// below reports whether a node with the given kind and key orders before key.
func below[K constraints.Ordered](kind nodeKind, nodeKey, key K) bool {
	switch kind {
	case kindHead:
		return true
	case kindTail:
		return false
	default:
		return nodeKey < key
	}
}

// matches reports whether a node with the given kind and key carries key.
func matches[K constraints.Ordered](kind nodeKind, nodeKey, key K) bool {
	return kind == kindItem && nodeKey == key
}

// seed inserts items into s, failing when there are too few of them.
func seed[T any, K constraints.Ordered](s Set[T, K], items []T) error {
	if len(items) < MinSeedItems {
		return ErrTooFewItems
	}
	for _, item := range items {
		s.Insert(item)
	}
	return nil
}
