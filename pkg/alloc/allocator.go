// Package alloc provides allocators for containers that want to control
// where their storage comes from and how much of it they may take.
//
// An Allocator[T] is a small value, it is cheap to copy and compare. The
// storage itself is accounted by a Resource, which is shared by every
// allocator rebound from the same one.
package alloc

import (
	"reflect"

	"github.com/pmkol/ringlist/pkg/pool"
)

// Traits controls how containers propagate allocators when they are copied.
type Traits struct {
	// PropagateOnCopyAssignment makes the destination of a copy assignment
	// adopt the source's allocator. Otherwise the destination keeps its own.
	PropagateOnCopyAssignment bool

	// SelectOnCopy picks the resource of a copy-constructed container.
	// nil means the copy shares the source's resource.
	SelectOnCopy func(Resource) Resource
}

type Option func(a *options)

type options struct {
	traits Traits
	pooled bool
}

func WithPropagateOnCopyAssignment(b bool) Option {
	return func(o *options) {
		o.traits.PropagateOnCopyAssignment = b
	}
}

func WithSelectOnCopy(f func(Resource) Resource) Option {
	return func(o *options) {
		o.traits.SelectOnCopy = f
	}
}

// WithPool serves single object allocations from a per-type sync.Pool.
// They are still accounted against the Resource.
func WithPool() Option {
	return func(o *options) {
		o.pooled = true
	}
}

// Allocator allocates storage for values of type T.
// The zero value allocates from Heap.
type Allocator[T any] struct {
	res    Resource
	traits Traits
	pooled bool
}

func New[T any](res Resource, opts ...Option) Allocator[T] {
	o := new(options)
	for _, opt := range opts {
		opt(o)
	}
	return Allocator[T]{
		res:    res,
		traits: o.traits,
		pooled: o.pooled,
	}
}

// Rebind returns an allocator for U that shares a's resource and traits.
func Rebind[U, T any](a Allocator[T]) Allocator[U] {
	return Allocator[U]{
		res:    a.res,
		traits: a.traits,
		pooled: a.pooled,
	}
}

func (a Allocator[T]) Resource() Resource {
	if a.res == nil {
		return Heap()
	}
	return a.res
}

func (a Allocator[T]) Traits() Traits {
	return a.traits
}

func (a Allocator[T]) Pooled() bool {
	return a.pooled
}

// Equal reports whether storage allocated by a can be deallocated by b.
func (a Allocator[T]) Equal(b Allocator[T]) bool {
	return a.Resource() == b.Resource() && a.pooled == b.pooled
}

// SelectOnCopy returns the allocator a copy of a container using a
// should be built with.
func (a Allocator[T]) SelectOnCopy() Allocator[T] {
	if f := a.traits.SelectOnCopy; f != nil {
		c := a
		c.res = f(a.Resource())
		return c
	}
	return a
}

func (a Allocator[T]) objSize() uintptr {
	return reflect.TypeFor[T]().Size()
}

// Allocate reserves storage for n zeroed, contiguous objects and returns
// a pointer to the first one. The error wraps ErrOutOfMemory if the
// resource refuses the reservation.
func (a Allocator[T]) Allocate(n int) (*T, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := a.Resource().Reserve(a.objSize(), n); err != nil {
		return nil, err
	}
	if n == 1 {
		if a.pooled {
			return pool.For[T]().Get(), nil
		}
		return new(T), nil
	}
	return &make([]T, n)[0], nil
}

// Deallocate releases storage. p and n must match a prior Allocate
// on an equal allocator.
func (a Allocator[T]) Deallocate(p *T, n int) {
	if p == nil || n <= 0 {
		return
	}
	if n == 1 && a.pooled {
		pool.For[T]().Put(p)
	}
	a.Resource().Release(a.objSize(), n)
}

// Construct initializes the object at p with v.
func (a Allocator[T]) Construct(p *T, v T) {
	*p = v
}

// Destroy tears down the object at p without releasing its storage.
// References held by the object are dropped.
func (a Allocator[T]) Destroy(p *T) {
	var zero T
	*p = zero
}
