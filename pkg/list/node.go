package list

// node is a member of the ring. The sentinel is a node as well, its value
// slot is never read.
type node[T any] struct {
	prev, next *node[T]
	value      T
}

func (n *node[T]) setPrev(p *node[T]) { n.prev = p }
func (n *node[T]) setNext(p *node[T]) { n.next = p }

// reset makes n a ring of its own.
func (n *node[T]) reset() {
	n.prev = n
	n.next = n
}

// unlink joins n's neighbors. n keeps its stale links.
func (n *node[T]) unlink() {
	n.prev.setNext(n.next)
	n.next.setPrev(n.prev)
}

// linkBefore inserts n in front of at.
func (n *node[T]) linkBefore(at *node[T]) {
	n.prev = at.prev
	n.next = at
	at.prev.setNext(n)
	at.setPrev(n)
}

// step follows count links, next for a positive count and prev for a
// negative one.
func step[T any](n *node[T], count int) *node[T] {
	for ; count > 0; count-- {
		n = n.next
	}
	for ; count < 0; count++ {
		n = n.prev
	}
	return n
}
