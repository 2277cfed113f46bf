package concurrent_lru

import (
	"strconv"
	"sync"
	"testing"

	"github.com/pmkol/ringlist/pkg/alloc"
	"github.com/pmkol/ringlist/pkg/list"
)

func Test_ShardedLRU(t *testing.T) {
	c := NewShardedLRU[int](4, 16, nil)
	for i := 0; i < 256; i++ {
		key := strconv.Itoa(i)
		if err := c.Add(key, i); err != nil {
			t.Fatal(err)
		}
		v, ok := c.Get(key)
		if !ok || v != i {
			t.Fatal("cache kv mismatched")
		}
	}
	if c.Len() > 64 {
		t.Fatal("cache overflow")
	}

	removed := c.Clean(func(_ string, v int) bool { return v%2 == 0 })
	if c.Len()+removed > 64 {
		t.Fatal("clean removed more than it reported")
	}
	c.Del("255")
	if _, ok := c.Get("255"); ok {
		t.Fatal("deleted key still present")
	}
}

func Test_ShardedLRU_race(t *testing.T) {
	tr := alloc.NewTracking(nil)
	c := NewShardedLRU[int](8, 32, nil, list.WithAllocator(alloc.New[Entry[string, int]](tr, alloc.WithPool())))

	wg := sync.WaitGroup{}
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 256; i++ {
				key := strconv.Itoa(i)
				if err := c.Add(key, i); err != nil {
					t.Error(err)
					return
				}
				_, _ = c.Get(key)
				c.Clean(func(_ string, _ int) bool { return false })
			}
		}()
	}
	wg.Wait()

	if tr.Live() != c.Len() {
		t.Fatalf("live nodes %d != entries %d", tr.Live(), c.Len())
	}
	c.Release()
	if tr.Live() != 0 {
		t.Fatal("nodes leaked after release")
	}
}

func Test_ConcurrentLRU(t *testing.T) {
	c := NewConcurrentLRU[int, int](2, nil)
	_ = c.Add(1, 1)
	_ = c.Add(2, 2)
	_ = c.Add(3, 3)
	if _, ok := c.Get(1); ok {
		t.Fatal("oldest entry was not evicted")
	}
	c.Del(2)
	if c.Len() != 1 {
		t.Fatal()
	}
	if n := c.Clean(func(int, int) bool { return true }); n != 1 {
		t.Fatalf("want 1 removed, got %d", n)
	}
}
