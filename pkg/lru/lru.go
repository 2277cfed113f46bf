package lru

import (
	"fmt"

	"github.com/pmkol/ringlist/pkg/list"
)

// LRU is a fixed size least recently used cache. The oldest entry is at
// the front of l. It is not safe for concurrent use.
type LRU[K comparable, V any] struct {
	maxSize int
	onEvict func(key K, v V)

	l *list.List[KV[K, V]]
	m map[K]list.Iterator[KV[K, V]]
}

type KV[K comparable, V any] struct {
	key K
	v   V
}

// NewLRU panics if maxSize is not positive. opts configure the backing
// list, e.g. its allocator.
func NewLRU[K comparable, V any](maxSize int, onEvict func(key K, v V), opts ...list.Option[KV[K, V]]) *LRU[K, V] {
	if maxSize <= 0 {
		panic(fmt.Sprintf("LRU: invalid max size: %d", maxSize))
	}

	return &LRU[K, V]{
		maxSize: maxSize,
		onEvict: onEvict,
		l:       list.New(opts...),
		m:       make(map[K]list.Iterator[KV[K, V]], maxSize),
	}
}

// Add inserts or updates key. It only fails if a new entry is needed and
// the list can not allocate it, in which case q is unchanged.
func (q *LRU[K, V]) Add(key K, v V) error {
	// Update existing
	if e, ok := q.m[key]; ok {
		e.Value().v = v
		q.moveToBack(e)
		return nil
	}

	// Reuse the oldest entry if full, no allocation
	if q.l.Len() >= q.maxSize {
		e := q.l.Begin()
		kv := e.Value()

		if q.onEvict != nil {
			q.onEvict(kv.key, kv.v)
		}

		delete(q.m, kv.key)
		kv.key = key
		kv.v = v

		q.m[key] = e
		q.moveToBack(e)
		return nil
	}

	e, err := q.l.Insert(q.l.CEnd(), KV[K, V]{key: key, v: v})
	if err != nil {
		return err
	}
	q.m[key] = e
	return nil
}

func (q *LRU[K, V]) moveToBack(e list.Iterator[KV[K, V]]) {
	q.l.Splice(q.l.CEnd(), e.Const())
}

func (q *LRU[K, V]) Get(key K) (v V, ok bool) {
	e, ok := q.m[key]
	if !ok {
		return
	}
	q.moveToBack(e)
	return e.Value().v, true
}

func (q *LRU[K, V]) Del(key K) {
	e, ok := q.m[key]
	if !ok {
		return
	}
	q.delElem(e)
}

func (q *LRU[K, V]) PopOldest() (key K, v V, ok bool) {
	if q.l.Empty() {
		return
	}

	kv := q.l.Front()
	q.l.PopFront()
	delete(q.m, kv.key)
	return kv.key, kv.v, true
}

// Clean removes every entry f returns true for.
func (q *LRU[K, V]) Clean(f func(key K, v V) bool) (removed int) {
	for e := q.l.Begin(); !e.Equal(q.l.End()); {
		kv := *e.Value()
		if f(kv.key, kv.v) {
			e = q.delElem(e)
			removed++
			continue
		}
		e.Inc()
	}
	return
}

func (q *LRU[K, V]) Len() int {
	return q.l.Len()
}

// Release drops every entry and returns the list storage to its
// allocator. onEvict is not called.
func (q *LRU[K, V]) Release() {
	q.l.Clear()
	clear(q.m)
}

func (q *LRU[K, V]) delElem(e list.Iterator[KV[K, V]]) list.Iterator[KV[K, V]] {
	kv := *e.Value()
	next := q.l.Erase(e.Const())
	delete(q.m, kv.key)

	if q.onEvict != nil {
		q.onEvict(kv.key, kv.v)
	}
	return next
}
