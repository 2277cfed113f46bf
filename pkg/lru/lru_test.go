package lru

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pmkol/ringlist/pkg/alloc"
	"github.com/pmkol/ringlist/pkg/list"
)

func keysOf[K comparable, V any](q *LRU[K, V]) []K {
	var ks []K
	for kv := range q.l.All() {
		ks = append(ks, kv.key)
	}
	return ks
}

func Test_LRU(t *testing.T) {
	var evicted []int
	q := NewLRU[int, string](3, func(key int, _ string) {
		evicted = append(evicted, key)
	})

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Add(i, "v"))
	}
	require.Equal(t, []int{1, 2, 3}, keysOf(q))

	v, ok := q.Get(1)
	require.True(t, ok)
	require.Equal(t, "v", v)
	require.Equal(t, []int{2, 3, 1}, keysOf(q))

	require.NoError(t, q.Add(4, "w"))
	require.Equal(t, []int{2}, evicted)
	require.Equal(t, []int{3, 1, 4}, keysOf(q))
	_, ok = q.Get(2)
	require.False(t, ok)

	require.NoError(t, q.Add(3, "x"))
	require.Equal(t, []int{1, 4, 3}, keysOf(q))
	v, _ = q.Get(3)
	require.Equal(t, "x", v)

	q.Del(4)
	q.Del(100)
	require.Equal(t, []int{2, 4}, evicted)
	require.Equal(t, 2, q.Len())

	k, v, ok := q.PopOldest()
	require.True(t, ok)
	require.Equal(t, 1, k)
	require.Equal(t, "v", v)
	require.Equal(t, 1, q.Len())
}

func Test_LRUClean(t *testing.T) {
	q := NewLRU[int, int](16, nil)
	for i := 0; i < 16; i++ {
		require.NoError(t, q.Add(i, i))
	}
	removed := q.Clean(func(_ int, v int) bool { return v%2 == 0 })
	require.Equal(t, 8, removed)
	require.Equal(t, []int{1, 3, 5, 7, 9, 11, 13, 15}, keysOf(q))

	for q.Len() > 0 {
		q.PopOldest()
	}
	_, _, ok := q.PopOldest()
	require.False(t, ok)
}

func Test_LRUAllocation(t *testing.T) {
	tr := alloc.NewTracking(nil)
	lim := alloc.NewLimited(tr, 0, 2)
	q := NewLRU[string, int](4, nil, list.WithAllocator(alloc.New[KV[string, int]](lim)))

	require.NoError(t, q.Add("a", 1))
	require.NoError(t, q.Add("b", 2))
	require.ErrorIs(t, q.Add("c", 3), alloc.ErrOutOfMemory)
	require.Equal(t, 2, q.Len())
	_, ok := q.Get("c")
	require.False(t, ok)

	// Updates never allocate.
	require.NoError(t, q.Add("a", 10))
	v, _ := q.Get("a")
	require.Equal(t, 10, v)

	q.Release()
	require.Zero(t, q.Len())
	require.Zero(t, tr.Live())
}

func Test_LRUReuseDoesNotAllocate(t *testing.T) {
	tr := alloc.NewTracking(nil)
	q := NewLRU[int, int](8, nil, list.WithAllocator(alloc.New[KV[int, int]](tr)))
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.Add(i, i))
	}
	require.Equal(t, 8, q.Len())
	require.EqualValues(t, 8, tr.Stats().Reserves)
}
