package workload

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/pmkol/ringlist/pkg/alloc"
	"github.com/pmkol/ringlist/pkg/concurrent_lru"
	"github.com/pmkol/ringlist/pkg/list"
)

const ctxCheckInterval = 1024

func newRand(seed uint64, worker int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(worker)))
}

// listWorker owns one list and is its only user.
type listWorker struct {
	args  *Args
	rng   *rand.Rand
	a     alloc.Allocator[int64]
	tr    *alloc.Tracking
	count func(op, result string)
	stats stats
}

func (w *listWorker) run(ctx context.Context) error {
	l := list.New(list.WithAllocator(w.a))
	for i := 0; i < w.args.Initial; i++ {
		if err := l.PushBack(w.rng.Int64()); err != nil {
			if !errors.Is(err, alloc.ErrOutOfMemory) {
				return err
			}
			w.stats.oom++
			break
		}
	}

	for i := 0; i < w.args.Ops; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		op := w.args.Mix.pick(w.rng.IntN(w.args.Mix.total()))
		if err := w.step(l, op); err != nil {
			return err
		}
		if (i+1)%w.args.VerifyEvery == 0 {
			if err := verify(l); err != nil {
				return err
			}
		}
	}
	if err := verify(l); err != nil {
		return err
	}

	l.Clear()
	w.stats.alloc = w.tr.Stats()
	if live := w.tr.Live(); live != 0 {
		return violation("%d nodes leaked after clear", live)
	}
	return nil
}

func (w *listWorker) step(l *list.List[int64], op string) error {
	switch op {
	case opPushBack, opPushFront:
		n := l.Len()
		v := w.rng.Int64()
		var err error
		if op == opPushBack {
			err = l.PushBack(v)
		} else {
			err = l.PushFront(v)
		}
		if err != nil {
			return w.failed(op, err, l.Len() == n)
		}
		if op == opPushBack && l.Back() != v || op == opPushFront && l.Front() != v {
			return violation("%s did not place the value at the end", op)
		}

	case opPopBack, opPopFront:
		// Popping an empty list is a contract violation, never do it.
		if l.Empty() {
			w.stats.skipped++
			w.count(op, "skipped")
			return nil
		}
		n := l.Len()
		if op == opPopBack {
			l.PopBack()
		} else {
			l.PopFront()
		}
		if l.Len() != n-1 {
			return violation("%s: size %d after popping from %d", op, l.Len(), n)
		}

	case opClone:
		c, err := l.Clone()
		if err != nil {
			return w.failed(op, err, true)
		}
		same := slices.Equal(c.Values(), l.Values())
		c.Clear()
		if !same {
			return violation("clone differs from its source")
		}

	case opAssign:
		src, err := list.NewFilled(w.rng.IntN(8), w.rng.Int64(), list.WithAllocator(w.a))
		if err != nil {
			return w.failed(op, err, true)
		}
		want := src.Values()
		before := l.Values()
		err = l.Assign(src)
		src.Clear()
		if err != nil {
			return w.failed(op, err, slices.Equal(before, l.Values()))
		}
		if !slices.Equal(want, l.Values()) {
			return violation("assign produced a different sequence")
		}

	case opIterate:
		if err := verify(l); err != nil {
			return err
		}
	}

	w.stats.ops[op]++
	w.count(op, "ok")
	return nil
}

// failed accounts an operation that returned err. Only allocation
// failures that left the list intact are acceptable.
func (w *listWorker) failed(op string, err error, intact bool) error {
	if !errors.Is(err, alloc.ErrOutOfMemory) {
		return err
	}
	if !intact {
		return violation("%s failed with %v and modified the list", op, err)
	}
	w.stats.oom++
	w.count(op, "oom")
	return nil
}

// verify walks l with every kind of iterator and checks that they agree
// with each other and with Len.
func verify(l *list.List[int64]) error {
	var fwd []int64
	for it := l.CBegin(); !it.Equal(l.CEnd()); it.Inc() {
		fwd = append(fwd, it.Value())
		if len(fwd) > l.Len() {
			return violation("forward walk is longer than size %d", l.Len())
		}
	}
	if len(fwd) != l.Len() {
		return violation("forward walk visited %d elements, size is %d", len(fwd), l.Len())
	}

	rev := make([]int64, 0, len(fwd))
	for it := l.CRBegin(); !it.Equal(l.CREnd()); it.Inc() {
		rev = append(rev, it.Value())
		if len(rev) > l.Len() {
			return violation("reverse walk is longer than size %d", l.Len())
		}
	}
	slices.Reverse(rev)
	if !slices.Equal(fwd, rev) {
		return violation("reverse walk is not the reverse of the forward walk")
	}
	if !slices.Equal(fwd, l.Values()) {
		return violation("sequence and iterator walks differ")
	}
	return nil
}

type lruWorker struct {
	args  *Args
	rng   *rand.Rand
	c     *concurrent_lru.ShardedLRU[int64]
	count func(op, result string)
	stats stats
}

func newLRU(args *Args, shards int, res alloc.Resource) *concurrent_lru.ShardedLRU[int64] {
	a := alloc.New[concurrent_lru.Entry[string, int64]](res, allocOpts(args)...)
	return concurrent_lru.NewShardedLRU[int64](shards, max(args.LRUSize/shards, 1), nil, list.WithAllocator(a))
}

func (w *lruWorker) run(ctx context.Context) error {
	keySpace := w.args.LRUSize * 2
	for i := 0; i < w.args.Ops; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		op := w.args.Mix.pick(w.rng.IntN(w.args.Mix.total()))
		key := strconv.Itoa(w.rng.IntN(keySpace))
		switch op {
		case opPushBack, opPushFront:
			if err := w.c.Add(key, int64(i)); err != nil {
				if !errors.Is(err, alloc.ErrOutOfMemory) {
					return err
				}
				w.stats.oom++
				w.count(op, "oom")
				continue
			}
		case opPopBack, opPopFront:
			w.c.Del(key)
		default:
			w.c.Get(key)
		}
		w.stats.ops[op]++
		w.count(op, "ok")
	}
	return nil
}
