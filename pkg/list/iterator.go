package list

// Iterator is a bidirectional cursor over a List. It stays valid until the
// element it points to is removed.
//
// Value must not be called on the end iterator.
type Iterator[T any] struct {
	n *node[T]
}

// ConstIterator is a read-only Iterator. An Iterator converts to a
// ConstIterator with Const, the other way is not possible.
type ConstIterator[T any] struct {
	n *node[T]
}

func (l *List[T]) Begin() Iterator[T] {
	l.lazyInit()
	return Iterator[T]{n: l.root.next}
}

func (l *List[T]) End() Iterator[T] {
	l.lazyInit()
	return Iterator[T]{n: &l.root}
}

func (l *List[T]) CBegin() ConstIterator[T] {
	return l.Begin().Const()
}

func (l *List[T]) CEnd() ConstIterator[T] {
	return l.End().Const()
}

// Inc moves it to the next position.
func (it *Iterator[T]) Inc() *Iterator[T] {
	it.n = it.n.next
	return it
}

// Dec moves it to the previous position.
func (it *Iterator[T]) Dec() *Iterator[T] {
	it.n = it.n.prev
	return it
}

// PostInc moves it forward and returns its old position.
func (it *Iterator[T]) PostInc() Iterator[T] {
	old := *it
	it.Inc()
	return old
}

// PostDec moves it backward and returns its old position.
func (it *Iterator[T]) PostDec() Iterator[T] {
	old := *it
	it.Dec()
	return old
}

// Advance moves it by n positions, backward if n is negative.
// It takes O(|n|) steps.
func (it *Iterator[T]) Advance(n int) *Iterator[T] {
	it.n = step(it.n, n)
	return it
}

func (it Iterator[T]) Add(n int) Iterator[T] {
	return Iterator[T]{n: step(it.n, n)}
}

func (it Iterator[T]) Sub(n int) Iterator[T] {
	return Iterator[T]{n: step(it.n, -n)}
}

func (it Iterator[T]) Equal(o Iterator[T]) bool {
	return it.n == o.n
}

// Value returns a pointer to the element at it.
func (it Iterator[T]) Value() *T {
	return &it.n.value
}

func (it Iterator[T]) Const() ConstIterator[T] {
	return ConstIterator[T]{n: it.n}
}

func (it *ConstIterator[T]) Inc() *ConstIterator[T] {
	it.n = it.n.next
	return it
}

func (it *ConstIterator[T]) Dec() *ConstIterator[T] {
	it.n = it.n.prev
	return it
}

func (it *ConstIterator[T]) PostInc() ConstIterator[T] {
	old := *it
	it.Inc()
	return old
}

func (it *ConstIterator[T]) PostDec() ConstIterator[T] {
	old := *it
	it.Dec()
	return old
}

func (it *ConstIterator[T]) Advance(n int) *ConstIterator[T] {
	it.n = step(it.n, n)
	return it
}

func (it ConstIterator[T]) Add(n int) ConstIterator[T] {
	return ConstIterator[T]{n: step(it.n, n)}
}

func (it ConstIterator[T]) Sub(n int) ConstIterator[T] {
	return ConstIterator[T]{n: step(it.n, -n)}
}

func (it ConstIterator[T]) Equal(o ConstIterator[T]) bool {
	return it.n == o.n
}

// Value returns a copy of the element at it.
func (it ConstIterator[T]) Value() T {
	return it.n.value
}

// ReverseIterator walks a List from back to front. It wraps an Iterator
// one past the element it refers to, so RBegin wraps End.
type ReverseIterator[T any] struct {
	base Iterator[T]
}

type ConstReverseIterator[T any] struct {
	base ConstIterator[T]
}

func (l *List[T]) RBegin() ReverseIterator[T] {
	return ReverseIterator[T]{base: l.End()}
}

func (l *List[T]) REnd() ReverseIterator[T] {
	return ReverseIterator[T]{base: l.Begin()}
}

func (l *List[T]) CRBegin() ConstReverseIterator[T] {
	return ConstReverseIterator[T]{base: l.CEnd()}
}

func (l *List[T]) CREnd() ConstReverseIterator[T] {
	return ConstReverseIterator[T]{base: l.CBegin()}
}

// Base returns the underlying forward iterator.
func (it ReverseIterator[T]) Base() Iterator[T] {
	return it.base
}

func (it *ReverseIterator[T]) Inc() *ReverseIterator[T] {
	it.base.Dec()
	return it
}

func (it *ReverseIterator[T]) Dec() *ReverseIterator[T] {
	it.base.Inc()
	return it
}

func (it *ReverseIterator[T]) PostInc() ReverseIterator[T] {
	old := *it
	it.Inc()
	return old
}

func (it *ReverseIterator[T]) PostDec() ReverseIterator[T] {
	old := *it
	it.Dec()
	return old
}

func (it *ReverseIterator[T]) Advance(n int) *ReverseIterator[T] {
	it.base.Advance(-n)
	return it
}

func (it ReverseIterator[T]) Add(n int) ReverseIterator[T] {
	return ReverseIterator[T]{base: it.base.Sub(n)}
}

func (it ReverseIterator[T]) Sub(n int) ReverseIterator[T] {
	return ReverseIterator[T]{base: it.base.Add(n)}
}

func (it ReverseIterator[T]) Equal(o ReverseIterator[T]) bool {
	return it.base.Equal(o.base)
}

func (it ReverseIterator[T]) Value() *T {
	return &it.base.n.prev.value
}

func (it ReverseIterator[T]) Const() ConstReverseIterator[T] {
	return ConstReverseIterator[T]{base: it.base.Const()}
}

func (it ConstReverseIterator[T]) Base() ConstIterator[T] {
	return it.base
}

func (it *ConstReverseIterator[T]) Inc() *ConstReverseIterator[T] {
	it.base.Dec()
	return it
}

func (it *ConstReverseIterator[T]) Dec() *ConstReverseIterator[T] {
	it.base.Inc()
	return it
}

func (it *ConstReverseIterator[T]) PostInc() ConstReverseIterator[T] {
	old := *it
	it.Inc()
	return old
}

func (it *ConstReverseIterator[T]) PostDec() ConstReverseIterator[T] {
	old := *it
	it.Dec()
	return old
}

func (it *ConstReverseIterator[T]) Advance(n int) *ConstReverseIterator[T] {
	it.base.Advance(-n)
	return it
}

func (it ConstReverseIterator[T]) Add(n int) ConstReverseIterator[T] {
	return ConstReverseIterator[T]{base: it.base.Sub(n)}
}

func (it ConstReverseIterator[T]) Sub(n int) ConstReverseIterator[T] {
	return ConstReverseIterator[T]{base: it.base.Add(n)}
}

func (it ConstReverseIterator[T]) Equal(o ConstReverseIterator[T]) bool {
	return it.base.Equal(o.base)
}

func (it ConstReverseIterator[T]) Value() T {
	return it.base.n.prev.value
}
