// Package workload drives lists and LRUs with seeded random operation
// mixes and checks their invariants while doing so.
package workload

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pmkol/ringlist/pkg/alloc"
)

// ErrInvariant is returned when a container is observed in a state it
// must never be in.
var ErrInvariant = errors.New("invariant violated")

func violation(format string, args ...any) error {
	return fmt.Errorf("%w, %s", ErrInvariant, fmt.Sprintf(format, args...))
}

type Runner struct {
	logger *zap.Logger
	meters *alloc.Meters
	ops    *prometheus.CounterVec
}

// NewRunner registers the workload and allocator metrics to reg.
// reg may be nil.
func NewRunner(lg *zap.Logger, reg prometheus.Registerer) (*Runner, error) {
	meters, err := alloc.NewMeters(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register allocator metrics, %w", err)
	}
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workload_ops_total",
		Help: "The total number of executed operations",
	}, []string{"tag", "op", "result"})
	if reg != nil {
		if err := reg.Register(ops); err != nil {
			return nil, fmt.Errorf("failed to register workload metrics, %w", err)
		}
	}
	return &Runner{
		logger: lg,
		meters: meters,
		ops:    ops,
	}, nil
}

// Run executes args once. The report is returned even if a worker failed.
func (r *Runner) Run(ctx context.Context, args *Args) (*Report, error) {
	if err := args.init(); err != nil {
		return nil, err
	}

	start := time.Now()
	rep := newReport(args)
	var err error
	switch args.Kind {
	case KindLRU:
		err = r.runLRU(ctx, args, rep)
	default:
		err = r.runList(ctx, args, rep)
	}
	rep.Duration = time.Since(start).String()

	r.logger.Info(
		"workload finished",
		zap.String("tag", args.Tag),
		zap.String("kind", args.Kind),
		zap.Uint64("ops", rep.TotalOps()),
		zap.Uint64("out_of_memory", rep.OutOfMemory),
		zap.String("duration", rep.Duration),
		zap.Error(err),
	)
	if err != nil {
		return rep, fmt.Errorf("workload %s failed, %w", args.Tag, err)
	}
	return rep, nil
}

// resource builds the resource chain for one allocator user. The Tracking
// layer is returned for leak checks.
func (r *Runner) resource(args *Args, name string) (*alloc.Tracking, alloc.Resource) {
	res := alloc.Heap()
	if a := args.Alloc; a.LimitBytes > 0 || a.LimitObjects > 0 {
		res = alloc.NewLimited(res, a.LimitBytes, a.LimitObjects)
	}
	if args.Alloc.FailAt > 0 {
		res = alloc.NewFaulty(res, args.Alloc.FailAt)
	}
	tr := alloc.NewTracking(res)
	return tr, r.meters.Wrap(tr, name)
}

func allocOpts(args *Args) []alloc.Option {
	opts := []alloc.Option{alloc.WithPropagateOnCopyAssignment(args.Alloc.Propagate)}
	if args.Alloc.Pooled {
		opts = append(opts, alloc.WithPool())
	}
	return opts
}

func (r *Runner) counter(tag string) func(op, result string) {
	return func(op, result string) {
		r.ops.WithLabelValues(tag, op, result).Inc()
	}
}

func (r *Runner) runList(ctx context.Context, args *Args, rep *Report) error {
	var m sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < args.Workers; i++ {
		tr, res := r.resource(args, fmt.Sprintf("%s/%d", args.Tag, i))
		w := &listWorker{
			args:  args,
			rng:   newRand(args.Seed, i),
			a:     alloc.New[int64](res, allocOpts(args)...),
			tr:    tr,
			count: r.counter(args.Tag),
			stats: newStats(),
		}
		g.Go(func() error {
			err := w.run(ctx)
			m.Lock()
			rep.merge(&w.stats)
			m.Unlock()
			if err != nil {
				return fmt.Errorf("worker #%d, %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) runLRU(ctx context.Context, args *Args, rep *Report) error {
	tr, res := r.resource(args, args.Tag)
	shards := 1 << bits.Len(uint(args.Workers-1))
	c := newLRU(args, shards, res)

	var m sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < args.Workers; i++ {
		w := &lruWorker{
			args:  args,
			rng:   newRand(args.Seed, i),
			c:     c,
			count: r.counter(args.Tag),
			stats: newStats(),
		}
		g.Go(func() error {
			err := w.run(gCtx)
			m.Lock()
			rep.merge(&w.stats)
			m.Unlock()
			return err
		})
	}
	err := g.Wait()

	if err == nil && tr.Live() != c.Len() {
		err = violation("lru holds %d entries but %d nodes are live", c.Len(), tr.Live())
	}
	c.Release()
	rep.mergeAlloc(tr.Stats())
	if err == nil && tr.Live() != 0 {
		err = violation("%d nodes leaked after release", tr.Live())
	}
	return err
}
