package seqset

import (
	"math"
	randv2 "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubRandSource struct {
	values []uint64
	idx    int
}

func (s *stubRandSource) Uint64() uint64 {
	if len(s.values) == 0 {
		return 0
	}
	if s.idx >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	value := s.values[s.idx]
	s.idx++
	return value
}

func TestSkipList_PutGetRemove(t *testing.T) {
	t.Parallel()
	l := New[int, string](WithSeed(7))

	require.True(t, l.Put(5, "five"))
	require.True(t, l.Put(1, "one"))
	require.True(t, l.Put(3, "three"))
	require.False(t, l.Put(3, "THREE"))
	require.Equal(t, 3, l.Len())

	v, err := l.Get(3)
	require.NoError(t, err)
	require.Equal(t, "THREE", v)

	_, err = l.Get(4)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.True(t, l.Remove(1))
	require.False(t, l.Remove(1))
	require.False(t, l.Has(1))
	require.Equal(t, []int{3, 5}, l.Keys())
	require.Equal(t, []string{"THREE", "five"}, l.Values())
}

func TestSkipList_InsertDoesNotOverwrite(t *testing.T) {
	t.Parallel()
	l := New[int, int]()

	require.True(t, l.Insert(2, 20))
	require.False(t, l.Insert(2, 21))
	v, err := l.Get(2)
	require.NoError(t, err)
	require.Equal(t, 20, v)
}

func TestSkipList_KeysStayOrdered(t *testing.T) {
	t.Parallel()
	l := New[int, struct{}](WithSeed(42))
	r := randv2.New(randv2.NewPCG(1, 2))
	model := make(map[int]bool)

	for i := 0; i < 5000; i++ {
		k := r.IntN(256)
		if r.IntN(3) == 0 {
			require.Equal(t, model[k], l.Remove(k))
			delete(model, k)
			continue
		}
		require.Equal(t, !model[k], l.Put(k, struct{}{}))
		model[k] = true
	}

	keys := l.Keys()
	require.Len(t, keys, len(model))
	require.Equal(t, len(model), l.Len())
	for i := 1; i < len(keys); i++ {
		require.Less(t, keys[i-1], keys[i])
	}
}

func TestSkipList_AscendStopsEarly(t *testing.T) {
	t.Parallel()
	l := New[int, int]()
	for i := 0; i < 10; i++ {
		l.Put(i, i*i)
	}

	var seen []int
	l.Ascend(func(k, v int) bool {
		seen = append(seen, v)
		return k < 3
	})
	require.Equal(t, []int{0, 1, 4, 9}, seen)
}

func TestSkipList_randomLevelDistribution(t *testing.T) {
	t.Parallel()
	l := New[int, int](WithSeed(1))

	const sampleSize = 1 << 15
	maxLevel := l.config.maxLevel
	counts := make([]int, int(maxLevel))
	for i := 0; i < sampleSize; i++ {
		counts[int(l.randomLevel()-1)]++
	}

	for level := uint(1); level <= maxLevel; level++ {
		expected := math.Pow(l.config.p, float64(level-1))
		if level < maxLevel {
			expected *= 1 - l.config.p
		}
		actual := float64(counts[level-1]) / sampleSize
		if math.Abs(expected-actual) > 0.02 {
			t.Errorf("level %d: expected %.4f, got %.4f", level, expected, actual)
		}
	}
}

func TestSkipList_randomLevelTrailingZeros(t *testing.T) {
	t.Parallel()
	l := New[int, int](WithMaxLevel(4))
	l.rng = &stubRandSource{values: []uint64{1, 1 << 1, 1 << 4, 0}}

	levels := []uint{l.randomLevel(), l.randomLevel(), l.randomLevel(), l.randomLevel()}
	require.Equal(t, []uint{1, 2, 4, 4}, levels)
}

func TestSkipList_randomLevelWithCustomProbability(t *testing.T) {
	t.Parallel()
	l := New[int, int](WithMaxLevel(5), WithP(0.25))
	l.rng = &stubRandSource{values: []uint64{0, 0, 0, 1 << 63}}

	require.Equal(t, uint(4), l.randomLevel())
}

func TestSkipList_randomLevelMaxLevelOne(t *testing.T) {
	t.Parallel()
	l := New[int, int](WithMaxLevel(1))
	l.rng = &stubRandSource{values: []uint64{1 << 10}}

	require.Equal(t, uint(1), l.randomLevel())
}
