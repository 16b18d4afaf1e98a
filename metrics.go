package lazylist

import (
	"math/bits"
	"runtime"
	"sync/atomic"
)

// Stats is a point-in-time copy of a set's counters.
type Stats struct {
	// Len is the advisory number of live items.
	Len int64
	// ValidationFailures counts lock-coupling windows rejected after locking.
	ValidationFailures int64
	// CASRetries counts failed lock-free link, mark and unlink attempts.
	CASRetries int64
	// CASSuccesses counts successful lock-free inserts and logical deletes.
	CASSuccesses int64
	// Snips counts tombstones unlinked by traversals.
	Snips int64
	// ReplaceAbandoned counts replace calls whose new node was removed
	// before its claim could be released.
	ReplaceAbandoned int64
}

type metricShard struct {
	length             atomic.Int64
	validationFailures atomic.Int64
	casRetries         atomic.Int64
	casSuccesses       atomic.Int64
	snips              atomic.Int64
	replaceAbandoned   atomic.Int64
	// Pad to cache line size to prevent false sharing.
	_ [16]byte
}

type metrics struct {
	shards  []metricShard
	mask    uint32
	rng     *RNG
	enabled bool
}

func newMetrics(rng *RNG, enabled bool) *metrics {
	shardCount := 1
	if rng != nil {
		shardCount = nextPowerOfTwo(max(runtime.GOMAXPROCS(0), 1))
	}
	return &metrics{
		shards:  make([]metricShard, shardCount),
		mask:    uint32(shardCount - 1),
		rng:     rng,
		enabled: enabled,
	}
}

func nextPowerOfTwo(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

func (m *metrics) shard() *metricShard {
	if len(m.shards) == 1 || m.rng == nil {
		return &m.shards[0]
	}
	idx := uint32(m.rng.nextRandom64()) & m.mask
	return &m.shards[idx]
}

func (m *metrics) addLen(d int64) {
	m.shard().length.Add(d)
}

func (m *metrics) incValidationFailure() {
	if m.enabled {
		m.shard().validationFailures.Add(1)
	}
}

func (m *metrics) incCASRetry() {
	if m.enabled {
		m.shard().casRetries.Add(1)
	}
}

func (m *metrics) incCASSuccess() {
	if m.enabled {
		m.shard().casSuccesses.Add(1)
	}
}

func (m *metrics) incSnip() {
	if m.enabled {
		m.shard().snips.Add(1)
	}
}

func (m *metrics) incReplaceAbandoned() {
	if m.enabled {
		m.shard().replaceAbandoned.Add(1)
	}
}

func (m *metrics) len() int64 {
	var total int64
	for i := range m.shards {
		total += m.shards[i].length.Load()
	}
	return total
}

func (m *metrics) stats() Stats {
	var s Stats
	for i := range m.shards {
		sh := &m.shards[i]
		s.Len += sh.length.Load()
		s.ValidationFailures += sh.validationFailures.Load()
		s.CASRetries += sh.casRetries.Load()
		s.CASSuccesses += sh.casSuccesses.Load()
		s.Snips += sh.snips.Load()
		s.ReplaceAbandoned += sh.replaceAbandoned.Load()
	}
	return s
}
