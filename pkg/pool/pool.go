package pool

import (
	"reflect"
	"sync"
)

// Pool is a typed free list of objects on top of sync.Pool.
type Pool[T any] struct {
	p sync.Pool
}

func New[T any]() *Pool[T] {
	return &Pool[T]{
		p: sync.Pool{
			New: func() any {
				return new(T)
			},
		},
	}
}

var registry sync.Map // reflect.Type -> *Pool[T]

// For returns the process wide pool for T.
func For[T any]() *Pool[T] {
	t := reflect.TypeFor[T]()
	if p, ok := registry.Load(t); ok {
		return p.(*Pool[T])
	}
	p, _ := registry.LoadOrStore(t, New[T]())
	return p.(*Pool[T])
}

// Get returns a zeroed *T from the pool.
func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

// Put zeroes v and returns it to the pool.
// After calling Put, the caller MUST NOT access v.
func (p *Pool[T]) Put(v *T) {
	var zero T
	*v = zero
	p.p.Put(v)
}
