package workload

import (
	"gopkg.in/yaml.v3"

	"github.com/pmkol/ringlist/pkg/alloc"
)

// Report summarizes one run of a workload.
type Report struct {
	Tag         string            `yaml:"tag"`
	Kind        string            `yaml:"kind"`
	Workers     int               `yaml:"workers"`
	Ops         map[string]uint64 `yaml:"ops"`
	Skipped     uint64            `yaml:"skipped"`
	OutOfMemory uint64            `yaml:"out_of_memory"`
	Alloc       alloc.Stats       `yaml:"alloc"`
	Duration    string            `yaml:"duration"`
}

type stats struct {
	ops     map[string]uint64
	skipped uint64
	oom     uint64
	alloc   alloc.Stats
}

func newStats() stats {
	return stats{ops: make(map[string]uint64)}
}

func newReport(args *Args) *Report {
	return &Report{
		Tag:     args.Tag,
		Kind:    args.Kind,
		Workers: args.Workers,
		Ops:     make(map[string]uint64),
	}
}

func (r *Report) merge(s *stats) {
	for op, n := range s.ops {
		r.Ops[op] += n
	}
	r.Skipped += s.skipped
	r.OutOfMemory += s.oom
	r.mergeAlloc(s.alloc)
}

func (r *Report) mergeAlloc(a alloc.Stats) {
	r.Alloc.LiveObjects += a.LiveObjects
	r.Alloc.LiveBytes += a.LiveBytes
	r.Alloc.PeakObjects = max(r.Alloc.PeakObjects, a.PeakObjects)
	r.Alloc.Reserves += a.Reserves
	r.Alloc.Releases += a.Releases
	r.Alloc.FailedReserves += a.FailedReserves
}

// TotalOps returns the number of operations that were executed.
func (r *Report) TotalOps() uint64 {
	var n uint64
	for _, v := range r.Ops {
		n += v
	}
	return n
}

func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}
