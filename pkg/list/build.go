package list

import (
	"github.com/pmkol/ringlist/pkg/alloc"
)

// builder grows a chain of nodes behind a sentinel. The chain is not a ring
// until commit: the newest node's next is nil and the sentinel's prev is
// stale.
type builder[T any] struct {
	na   alloc.Allocator[node[T]]
	root *node[T]
	last *node[T] // rollback frontier
	n    int
}

func (b *builder[T]) init(na alloc.Allocator[node[T]], root *node[T]) {
	b.na = na
	b.root = root
	b.last = root
	b.n = 0
	root.setPrev(root)
	root.setNext(nil)
}

// add allocates one node, links it after the frontier and constructs its
// value from mk. A node whose value could not be made is deallocated
// without being destroyed.
func (b *builder[T]) add(mk func() (T, error)) error {
	p, err := b.na.Allocate(1)
	if err != nil {
		return err
	}
	b.last.setNext(p)
	v, err := mk()
	if err != nil {
		b.last.setNext(nil)
		b.na.Deallocate(p, 1)
		return err
	}
	b.na.Construct(p, node[T]{prev: b.last, value: v})
	b.last = p
	b.n++
	return nil
}

// commit closes the ring and returns the number of nodes in it.
func (b *builder[T]) commit() int {
	b.last.setNext(b.root)
	b.root.setPrev(b.last)
	return b.n
}

// rollback walks back from the frontier and releases every node, newest
// first. root is left as an empty ring.
func (b *builder[T]) rollback() {
	for cur := b.last; cur != b.root; {
		prev := cur.prev
		b.na.Destroy(cur)
		b.na.Deallocate(cur, 1)
		prev.setNext(nil)
		cur = prev
	}
	b.last = b.root
	b.n = 0
	b.root.reset()
}

// build runs count steps of mk into a fresh chain under root. On the
// first failure everything built so far is rolled back and the error is
// returned unchanged.
func build[T any](na alloc.Allocator[node[T]], root *node[T], count int, mk func(i int) (T, error)) (int, error) {
	var b builder[T]
	b.init(na, root)
	for i := 0; i < count; i++ {
		if err := b.add(func() (T, error) { return mk(i) }); err != nil {
			b.rollback()
			return 0, err
		}
	}
	return b.commit(), nil
}

// buildFrom copies the ring anchored at src into a fresh chain under root.
func buildFrom[T any](na alloc.Allocator[node[T]], root *node[T], src *node[T]) (int, error) {
	var b builder[T]
	b.init(na, root)
	for n := src.next; n != src; n = n.next {
		if err := b.add(func() (T, error) { return copyValue(n.value) }); err != nil {
			b.rollback()
			return 0, err
		}
	}
	return b.commit(), nil
}
