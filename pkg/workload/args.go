package workload

import (
	"fmt"
)

const (
	KindList = "list"
	KindLRU  = "lru"
)

const (
	opPushBack  = "push_back"
	opPushFront = "push_front"
	opPopBack   = "pop_back"
	opPopFront  = "pop_front"
	opClone     = "clone"
	opAssign    = "assign"
	opIterate   = "iterate"
)

// Mix holds the relative weights of the operations a worker performs.
// For the lru kind, push weights are Add, pop weights are Del and
// iterate is Get.
type Mix struct {
	PushBack  int `yaml:"push_back"`
	PushFront int `yaml:"push_front"`
	PopBack   int `yaml:"pop_back"`
	PopFront  int `yaml:"pop_front"`
	Clone     int `yaml:"clone"`
	Assign    int `yaml:"assign"`
	Iterate   int `yaml:"iterate"`
}

var defaultMix = Mix{
	PushBack:  30,
	PushFront: 20,
	PopBack:   20,
	PopFront:  20,
	Clone:     2,
	Assign:    3,
	Iterate:   5,
}

func (m Mix) weights() []weight {
	return []weight{
		{opPushBack, m.PushBack},
		{opPushFront, m.PushFront},
		{opPopBack, m.PopBack},
		{opPopFront, m.PopFront},
		{opClone, m.Clone},
		{opAssign, m.Assign},
		{opIterate, m.Iterate},
	}
}

type weight struct {
	op string
	w  int
}

func (m Mix) total() int {
	t := 0
	for _, w := range m.weights() {
		t += w.w
	}
	return t
}

// pick maps n in [0, total) to an operation.
func (m Mix) pick(n int) string {
	for _, w := range m.weights() {
		if n < w.w {
			return w.op
		}
		n -= w.w
	}
	return opIterate
}

// AllocArgs configures the allocator of every list of a worker.
// Zero limits mean unlimited.
type AllocArgs struct {
	LimitBytes   uint64 `yaml:"limit_bytes"`
	LimitObjects int    `yaml:"limit_objects"`
	FailAt       int    `yaml:"fail_at"`
	Pooled       bool   `yaml:"pooled"`
	Propagate    bool   `yaml:"propagate"`
}

type Args struct {
	Tag         string    `yaml:"tag"`
	Kind        string    `yaml:"kind"`
	Workers     int       `yaml:"workers"`
	Ops         int       `yaml:"ops"`
	Initial     int       `yaml:"initial"`
	Seed        uint64    `yaml:"seed"`
	VerifyEvery int       `yaml:"verify_every"`
	LRUSize     int       `yaml:"lru_size"`
	Mix         *Mix      `yaml:"mix"`
	Alloc       AllocArgs `yaml:"alloc"`
}

// init fills defaults and validates a.
func (a *Args) init() error {
	if len(a.Tag) == 0 {
		return fmt.Errorf("workload tag is empty")
	}
	switch a.Kind {
	case "":
		a.Kind = KindList
	case KindList, KindLRU:
	default:
		return fmt.Errorf("unknown workload kind %q", a.Kind)
	}
	if a.Workers <= 0 {
		a.Workers = 1
	}
	if a.Ops < 0 || a.Initial < 0 {
		return fmt.Errorf("negative ops or initial size")
	}
	if a.VerifyEvery <= 0 {
		a.VerifyEvery = 64
	}
	if a.LRUSize <= 0 {
		a.LRUSize = 1024
	}
	if a.Mix == nil {
		m := defaultMix
		a.Mix = &m
	}
	for _, w := range a.Mix.weights() {
		if w.w < 0 {
			return fmt.Errorf("negative weight for %s", w.op)
		}
	}
	if a.Mix.total() <= 0 {
		return fmt.Errorf("operation mix has no positive weight")
	}
	return nil
}
