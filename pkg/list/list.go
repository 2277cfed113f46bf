// Package list implements a doubly linked list whose nodes come from a
// pluggable allocator.
//
// The nodes form a ring anchored by a sentinel embedded in the List, so
// insertion and removal at either end never special-case the boundaries.
// Every operation that allocates either succeeds or leaves the list exactly
// as it was; bulk constructors that fail return no list and release every
// node they had built.
//
// A List is not safe for concurrent use. It must not be copied after first
// use, use Clone or Assign instead.
package list

import (
	"iter"

	"github.com/pmkol/ringlist/pkg/alloc"
)

// Cloner is implemented by values that need a deep copy. Every copy the
// list makes of such a value goes through Clone. A Clone error aborts the
// operation like an allocation failure does.
type Cloner[T any] interface {
	Clone() (T, error)
}

func copyValue[T any](v T) (T, error) {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v, nil
}

func zeroValue[T any](int) (T, error) {
	var zero T
	return zero, nil
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// List is a doubly linked list. The zero value is an empty list that
// allocates from alloc.Heap.
type List[T any] struct {
	_ noCopy

	root  node[T] // sentinel
	alloc alloc.Allocator[T]
	nodes alloc.Allocator[node[T]]
	len   int
}

type Option[T any] func(l *List[T])

// WithAllocator sets the allocator. Nodes are allocated from a rebound
// copy of it.
func WithAllocator[T any](a alloc.Allocator[T]) Option[T] {
	return func(l *List[T]) {
		l.alloc = a
		l.nodes = alloc.Rebind[node[T]](a)
	}
}

// New returns an empty list.
func New[T any](opts ...Option[T]) *List[T] {
	l := new(List[T])
	for _, opt := range opts {
		opt(l)
	}
	l.root.reset()
	return l
}

// NewFilled returns a list of count copies of value.
func NewFilled[T any](count int, value T, opts ...Option[T]) (*List[T], error) {
	l := New(opts...)
	n, err := build(l.nodes, &l.root, count, func(int) (T, error) {
		return copyValue(value)
	})
	if err != nil {
		return nil, err
	}
	l.len = n
	return l, nil
}

// NewSized returns a list of count zero values.
func NewSized[T any](count int, opts ...Option[T]) (*List[T], error) {
	l := New(opts...)
	n, err := build(l.nodes, &l.root, count, zeroValue[T])
	if err != nil {
		return nil, err
	}
	l.len = n
	return l, nil
}

// Of returns a list holding copies of values, in order.
func Of[T any](values []T, opts ...Option[T]) (*List[T], error) {
	l := New(opts...)
	n, err := build(l.nodes, &l.root, len(values), func(i int) (T, error) {
		return copyValue(values[i])
	})
	if err != nil {
		return nil, err
	}
	l.len = n
	return l, nil
}

// Clone returns a deep copy of l. The copy's allocator is chosen by
// l's allocator SelectOnCopy policy.
func (l *List[T]) Clone() (*List[T], error) {
	l.lazyInit()
	c := New(WithAllocator(l.alloc.SelectOnCopy()))
	n, err := buildFrom(c.nodes, &c.root, &l.root)
	if err != nil {
		return nil, err
	}
	c.len = n
	return c, nil
}

// Assign replaces the contents of l with copies of other's elements.
// If other's allocator propagates on copy assignment, l adopts it.
//
// The replacement is built completely before l is touched. If it fails,
// l is unchanged and the error is returned.
func (l *List[T]) Assign(other *List[T]) error {
	if l == other {
		return nil
	}
	l.lazyInit()
	other.lazyInit()

	a := l.alloc
	if other.alloc.Traits().PropagateOnCopyAssignment {
		a = other.alloc
	}
	na := alloc.Rebind[node[T]](a)

	var tmp node[T]
	n, err := buildFrom(na, &tmp, &other.root)
	if err != nil {
		return err
	}

	l.release()
	if n > 0 {
		l.root.setNext(tmp.next)
		l.root.setPrev(tmp.prev)
		tmp.next.setPrev(&l.root)
		tmp.prev.setNext(&l.root)
	}
	l.alloc = a
	l.nodes = na
	l.len = n
	return nil
}

// Clear destroys and deallocates every element.
func (l *List[T]) Clear() {
	l.lazyInit()
	l.release()
}

func (l *List[T]) release() {
	for n := l.root.next; n != &l.root; {
		next := n.next
		l.deleteNode(n)
		n = next
	}
	l.root.reset()
	l.len = 0
}

func (l *List[T]) lazyInit() {
	if l.root.next == nil {
		l.root.reset()
	}
}

// Allocator returns the element allocator in use.
func (l *List[T]) Allocator() alloc.Allocator[T] {
	return l.alloc
}

func (l *List[T]) Empty() bool {
	return l.len == 0
}

func (l *List[T]) Len() int {
	return l.len
}

func (l *List[T]) mustNotBeEmpty(op string) {
	if l.len == 0 {
		panic("list: " + op + " on empty list")
	}
}

// Front returns the first element. l must not be empty.
func (l *List[T]) Front() T {
	return *l.FrontPtr()
}

// Back returns the last element. l must not be empty.
func (l *List[T]) Back() T {
	return *l.BackPtr()
}

func (l *List[T]) FrontPtr() *T {
	l.mustNotBeEmpty("Front")
	return &l.root.next.value
}

func (l *List[T]) BackPtr() *T {
	l.mustNotBeEmpty("Back")
	return &l.root.prev.value
}

func (l *List[T]) newNode(prev, next *node[T], v T) (*node[T], error) {
	p, err := l.nodes.Allocate(1)
	if err != nil {
		return nil, err
	}
	cv, err := copyValue(v)
	if err != nil {
		l.nodes.Deallocate(p, 1)
		return nil, err
	}
	l.nodes.Construct(p, node[T]{prev: prev, next: next, value: cv})
	return p, nil
}

func (l *List[T]) deleteNode(n *node[T]) {
	l.nodes.Destroy(n)
	l.nodes.Deallocate(n, 1)
}

// insert links a new node holding a copy of v in front of at.
func (l *List[T]) insert(at *node[T], v T) (*node[T], error) {
	n, err := l.newNode(at.prev, at, v)
	if err != nil {
		return nil, err
	}
	at.prev.setNext(n)
	at.setPrev(n)
	l.len++
	return n, nil
}

func (l *List[T]) remove(n *node[T]) {
	n.unlink()
	l.deleteNode(n)
	l.len--
}

func (l *List[T]) PushBack(v T) error {
	l.lazyInit()
	_, err := l.insert(&l.root, v)
	return err
}

func (l *List[T]) PushFront(v T) error {
	l.lazyInit()
	_, err := l.insert(l.root.next, v)
	return err
}

// PopBack removes the last element. l must not be empty.
func (l *List[T]) PopBack() {
	l.mustNotBeEmpty("PopBack")
	l.remove(l.root.prev)
}

// PopFront removes the first element. l must not be empty.
func (l *List[T]) PopFront() {
	l.mustNotBeEmpty("PopFront")
	l.remove(l.root.next)
}

// Insert inserts a copy of v in front of pos and returns an iterator to it.
// pos must be an iterator of l.
func (l *List[T]) Insert(pos ConstIterator[T], v T) (Iterator[T], error) {
	l.lazyInit()
	n, err := l.insert(pos.n, v)
	if err != nil {
		return Iterator[T]{}, err
	}
	return Iterator[T]{n: n}, nil
}

// Erase removes the element at pos and returns an iterator to the element
// that followed it. pos must be a dereferenceable iterator of l.
func (l *List[T]) Erase(pos ConstIterator[T]) Iterator[T] {
	if pos.n == &l.root {
		panic("list: Erase of end iterator")
	}
	next := pos.n.next
	l.remove(pos.n)
	return Iterator[T]{n: next}
}

// Splice moves the element at it in front of pos. Both must be iterators
// of l. Nothing is allocated and no iterator is invalidated.
func (l *List[T]) Splice(pos, it ConstIterator[T]) {
	if it.n == &l.root {
		panic("list: Splice of end iterator")
	}
	if it.n == pos.n || it.n.next == pos.n {
		return
	}
	it.n.unlink()
	it.n.linkBefore(pos.n)
}

// All returns a sequence over the elements from front to back.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		l.lazyInit()
		for n := l.root.next; n != &l.root; n = n.next {
			if !yield(n.value) {
				return
			}
		}
	}
}

// Backward returns a sequence over the elements from back to front.
func (l *List[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		l.lazyInit()
		for n := l.root.prev; n != &l.root; n = n.prev {
			if !yield(n.value) {
				return
			}
		}
	}
}

// Values returns a snapshot of the elements from front to back.
func (l *List[T]) Values() []T {
	s := make([]T, 0, l.len)
	for v := range l.All() {
		s = append(s, v)
	}
	return s
}
