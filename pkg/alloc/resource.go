package alloc

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfMemory is returned (possibly wrapped) by every Resource that
// cannot satisfy a reservation.
var ErrOutOfMemory = errors.New("out of memory")

// Resource is the type-erased backend behind an Allocator. It only accounts
// for storage, the Go runtime does the actual allocation.
// size is the size of one object, n the number of objects.
//
// A Resource may be shared by allocators on different goroutines, so
// implementations must be safe for concurrent use.
type Resource interface {
	Reserve(size uintptr, n int) error
	Release(size uintptr, n int)
}

type heap struct{}

func (heap) Reserve(uintptr, int) error { return nil }
func (heap) Release(uintptr, int) {}

// Heap returns the default resource. It never fails.
func Heap() Resource {
	return heap{}
}

// Limited is a Resource with a fixed budget. A zero limit means unlimited.
type Limited struct {
	parent     Resource
	maxBytes   uint64
	maxObjects int

	m       sync.Mutex
	bytes   uint64
	objects int
}

func NewLimited(parent Resource, maxBytes uint64, maxObjects int) *Limited {
	if parent == nil {
		parent = Heap()
	}
	return &Limited{
		parent:     parent,
		maxBytes:   maxBytes,
		maxObjects: maxObjects,
	}
}

func (l *Limited) Reserve(size uintptr, n int) error {
	b := uint64(size) * uint64(n)

	l.m.Lock()
	defer l.m.Unlock()
	if l.maxBytes > 0 && l.bytes+b > l.maxBytes {
		return fmt.Errorf("byte budget %d exhausted, %w", l.maxBytes, ErrOutOfMemory)
	}
	if l.maxObjects > 0 && l.objects+n > l.maxObjects {
		return fmt.Errorf("object budget %d exhausted, %w", l.maxObjects, ErrOutOfMemory)
	}
	if err := l.parent.Reserve(size, n); err != nil {
		return err
	}
	l.bytes += b
	l.objects += n
	return nil
}

func (l *Limited) Release(size uintptr, n int) {
	l.m.Lock()
	l.bytes -= uint64(size) * uint64(n)
	l.objects -= n
	l.m.Unlock()
	l.parent.Release(size, n)
}

// Stats is a snapshot of a Tracking resource.
type Stats struct {
	LiveObjects    int    `yaml:"live_objects"`
	LiveBytes      uint64 `yaml:"live_bytes"`
	PeakObjects    int    `yaml:"peak_objects"`
	Reserves       uint64 `yaml:"reserves"`
	Releases       uint64 `yaml:"releases"`
	FailedReserves uint64 `yaml:"failed_reserves"`
}

// Tracking counts everything that passes through it.
type Tracking struct {
	parent Resource

	m sync.Mutex
	s Stats
}

func NewTracking(parent Resource) *Tracking {
	if parent == nil {
		parent = Heap()
	}
	return &Tracking{parent: parent}
}

func (t *Tracking) Reserve(size uintptr, n int) error {
	err := t.parent.Reserve(size, n)

	t.m.Lock()
	defer t.m.Unlock()
	if err != nil {
		t.s.FailedReserves++
		return err
	}
	t.s.Reserves++
	t.s.LiveObjects += n
	t.s.LiveBytes += uint64(size) * uint64(n)
	if t.s.LiveObjects > t.s.PeakObjects {
		t.s.PeakObjects = t.s.LiveObjects
	}
	return nil
}

func (t *Tracking) Release(size uintptr, n int) {
	t.m.Lock()
	t.s.Releases++
	t.s.LiveObjects -= n
	t.s.LiveBytes -= uint64(size) * uint64(n)
	t.m.Unlock()
	t.parent.Release(size, n)
}

func (t *Tracking) Stats() Stats {
	t.m.Lock()
	defer t.m.Unlock()
	return t.s
}

// Live returns the number of objects reserved and not yet released.
func (t *Tracking) Live() int {
	t.m.Lock()
	defer t.m.Unlock()
	return t.s.LiveObjects
}

// Faulty fails exactly one reservation: the failAt-th one (1-based).
// Reservations before and after it are passed to the parent.
type Faulty struct {
	parent Resource
	failAt int

	m     sync.Mutex
	count int
}

func NewFaulty(parent Resource, failAt int) *Faulty {
	if parent == nil {
		parent = Heap()
	}
	return &Faulty{parent: parent, failAt: failAt}
}

func (f *Faulty) Reserve(size uintptr, n int) error {
	f.m.Lock()
	f.count++
	hit := f.count == f.failAt
	f.m.Unlock()
	if hit {
		return fmt.Errorf("injected failure at reservation #%d, %w", f.failAt, ErrOutOfMemory)
	}
	return f.parent.Reserve(size, n)
}

func (f *Faulty) Release(size uintptr, n int) {
	f.parent.Release(size, n)
}

// Count returns how many reservations have been attempted.
func (f *Faulty) Count() int {
	f.m.Lock()
	defer f.m.Unlock()
	return f.count
}
