// Package seqset implements a single-goroutine ordered set backed by a skip
// list. It is the sequential reference model that concurrent sets are
// checked against: replaying the same operations on a SkipList gives the
// results a serial execution would produce.
package seqset

import (
	"errors"
	"math/bits"
	randv2 "math/rand/v2"

	"golang.org/x/exp/constraints"
)

const float64Unit = 1.0 / (1 << 53)

// ErrKeyNotFound is returned by Get when the key is absent.
var ErrKeyNotFound = errors.New("seqset: key not found")

// Config holds configuration for the SkipList.
type Config struct {
	// maxLevel is the maximum height of the skip list
	maxLevel uint

	// p is probability for level promotion
	p float64

	seed1, seed2 uint64
	seeded       bool
}

// Option mutates a Config.
type Option func(*Config)

// WithMaxLevel sets the maximum height of the skip list.
func WithMaxLevel(level uint) Option {
	return func(c *Config) {
		if level > 0 {
			c.maxLevel = level
		}
	}
}

// WithP sets the probability for level promotion.
func WithP(p float64) Option {
	return func(c *Config) {
		if p > 0 && p < 1 {
			c.p = p
		}
	}
}

// WithSeed makes level generation deterministic.
func WithSeed(seed uint64) Option {
	return func(c *Config) {
		c.seed1, c.seed2, c.seeded = seed, seed^0x9e3779b97f4a7c15, true
	}
}

type node[K constraints.Ordered, V any] struct {
	key      K
	value    V
	forwards []*node[K, V]
}

// SkipList is an ordered map from K to V. It is not safe for concurrent use.
type SkipList[K constraints.Ordered, V any] struct {
	head   *node[K, V]
	level  uint
	length int
	config Config
	rng    randv2.Source
}

// New returns an empty SkipList.
func New[K constraints.Ordered, V any](opts ...Option) *SkipList[K, V] {
	cfg := Config{maxLevel: 16, p: 0.5}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.seeded {
		cfg.seed1, cfg.seed2 = randv2.Uint64(), randv2.Uint64()
	}
	return &SkipList[K, V]{
		head:   &node[K, V]{forwards: make([]*node[K, V], cfg.maxLevel)},
		level:  1,
		config: cfg,
		rng:    randv2.NewPCG(cfg.seed1, cfg.seed2),
	}
}

// seek fills update with the rightmost node below key on every level and
// returns the first node at or after key on the bottom level.
func (l *SkipList[K, V]) seek(key K, update []*node[K, V]) *node[K, V] {
	x := l.head
	for i := int(l.level) - 1; i >= 0; i-- {
		for x.forwards[i] != nil && x.forwards[i].key < key {
			x = x.forwards[i]
		}
		if update != nil {
			update[i] = x
		}
	}
	return x.forwards[0]
}

// Put stores value under key and reports whether the key was newly added.
// An existing key keeps its position and gets the new value.
func (l *SkipList[K, V]) Put(key K, value V) bool {
	update := make([]*node[K, V], l.config.maxLevel)
	if x := l.seek(key, update); x != nil && x.key == key {
		x.value = value
		return false
	}

	lvl := l.randomLevel()
	if lvl > l.level {
		for i := l.level; i < lvl; i++ {
			update[i] = l.head
		}
		l.level = lvl
	}
	n := &node[K, V]{key: key, value: value, forwards: make([]*node[K, V], lvl)}
	for i := uint(0); i < lvl; i++ {
		n.forwards[i] = update[i].forwards[i]
		update[i].forwards[i] = n
	}
	l.length++
	return true
}

// Insert stores value under key only if key is absent and reports whether
// it did so.
func (l *SkipList[K, V]) Insert(key K, value V) bool {
	if l.Has(key) {
		return false
	}
	return l.Put(key, value)
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (l *SkipList[K, V]) Get(key K) (V, error) {
	if x := l.seek(key, nil); x != nil && x.key == key {
		return x.value, nil
	}
	var zero V
	return zero, ErrKeyNotFound
}

// Has reports whether key is present.
func (l *SkipList[K, V]) Has(key K) bool {
	x := l.seek(key, nil)
	return x != nil && x.key == key
}

// Remove deletes key and reports whether it was present.
func (l *SkipList[K, V]) Remove(key K) bool {
	update := make([]*node[K, V], l.config.maxLevel)
	x := l.seek(key, update)
	if x == nil || x.key != key {
		return false
	}
	for i := 0; i < len(x.forwards); i++ {
		if update[i].forwards[i] != x {
			break
		}
		update[i].forwards[i] = x.forwards[i]
	}
	for l.level > 1 && l.head.forwards[l.level-1] == nil {
		l.level--
	}
	l.length--
	return true
}

// Len returns the number of keys.
func (l *SkipList[K, V]) Len() int {
	return l.length
}

// Ascend calls fn for every entry in ascending key order until fn returns false.
func (l *SkipList[K, V]) Ascend(fn func(key K, value V) bool) {
	for x := l.head.forwards[0]; x != nil; x = x.forwards[0] {
		if !fn(x.key, x.value) {
			return
		}
	}
}

// Keys returns all keys in ascending order.
func (l *SkipList[K, V]) Keys() []K {
	keys := make([]K, 0, l.length)
	l.Ascend(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns all values in ascending key order.
func (l *SkipList[K, V]) Values() []V {
	values := make([]V, 0, l.length)
	l.Ascend(func(_ K, value V) bool {
		values = append(values, value)
		return true
	})
	return values
}

func (l *SkipList[K, V]) randomLevel() uint {
	lvl := uint(1)
	maxLevel := l.config.maxLevel
	if maxLevel <= 1 {
		return lvl
	}

	if l.config.p == 0.5 {
		zeros := uint(bits.TrailingZeros64(l.rng.Uint64()))
		if zeros > maxLevel-1 {
			zeros = maxLevel - 1
		}
		return lvl + zeros
	}

	for lvl < maxLevel {
		if float64(l.rng.Uint64()>>11)*float64Unit >= l.config.p {
			break
		}
		lvl++
	}
	return lvl
}
