package workload

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newTestRunner(t *testing.T) (*Runner, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	r, err := NewRunner(zap.NewNop(), reg)
	require.NoError(t, err)
	return r, reg
}

func Test_ArgsInit(t *testing.T) {
	a := &Args{Tag: "t"}
	require.NoError(t, a.init())
	assert.Equal(t, KindList, a.Kind)
	assert.Equal(t, 1, a.Workers)
	assert.Equal(t, defaultMix, *a.Mix)

	require.Error(t, (&Args{}).init())
	require.Error(t, (&Args{Tag: "t", Kind: "tree"}).init())
	require.Error(t, (&Args{Tag: "t", Mix: &Mix{}}).init())
	require.Error(t, (&Args{Tag: "t", Mix: &Mix{PushBack: 1, PopBack: -1}}).init())
}

func Test_MixPick(t *testing.T) {
	m := Mix{PushBack: 2, PopFront: 1, Iterate: 1}
	got := make([]string, 0, m.total())
	for n := 0; n < m.total(); n++ {
		got = append(got, m.pick(n))
	}
	require.Equal(t, []string{opPushBack, opPushBack, opPopFront, opIterate}, got)
}

func Test_RunList(t *testing.T) {
	r, reg := newTestRunner(t)
	rep, err := r.Run(context.Background(), &Args{
		Tag:     "list",
		Workers: 4,
		Ops:     4000,
		Initial: 32,
		Seed:    7,
		Alloc:   AllocArgs{Pooled: true},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4*4000, rep.TotalOps()+rep.Skipped)
	assert.Zero(t, rep.OutOfMemory)
	assert.Zero(t, rep.Alloc.LiveObjects)
	assert.Equal(t, rep.Alloc.Reserves, rep.Alloc.Releases)

	n := testutil.ToFloat64(r.ops.WithLabelValues("list", opPushBack, "ok"))
	assert.EqualValues(t, rep.Ops[opPushBack], n)
	assert.NotZero(t, testutil.CollectAndCount(reg, "alloc_reserves_total"))
}

func Test_RunListUnderPressure(t *testing.T) {
	r, _ := newTestRunner(t)
	rep, err := r.Run(context.Background(), &Args{
		Tag:     "pressure",
		Workers: 2,
		Ops:     3000,
		Initial: 64,
		Seed:    3,
		Mix: &Mix{
			PushBack:  10,
			PushFront: 10,
			PopBack:   2,
			Clone:     3,
			Assign:    3,
			Iterate:   1,
		},
		Alloc: AllocArgs{LimitObjects: 48, Propagate: true},
	})
	require.NoError(t, err)
	assert.NotZero(t, rep.OutOfMemory)
	assert.NotZero(t, rep.Alloc.FailedReserves)
	assert.Zero(t, rep.Alloc.LiveObjects)
}

func Test_RunListFaultInjection(t *testing.T) {
	r, _ := newTestRunner(t)
	for failAt := 1; failAt < 40; failAt += 7 {
		rep, err := r.Run(context.Background(), &Args{
			Tag:     "faulty",
			Ops:     200,
			Initial: 16,
			Seed:    uint64(failAt),
			Alloc:   AllocArgs{FailAt: failAt},
		})
		require.NoError(t, err, "failAt %d", failAt)
		assert.EqualValues(t, 1, rep.OutOfMemory)
		assert.Zero(t, rep.Alloc.LiveObjects)
	}
}

func Test_RunLRU(t *testing.T) {
	r, _ := newTestRunner(t)
	rep, err := r.Run(context.Background(), &Args{
		Tag:     "lru",
		Kind:    KindLRU,
		Workers: 3,
		Ops:     2000,
		LRUSize: 64,
		Alloc:   AllocArgs{LimitObjects: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Workers)
	assert.NotZero(t, rep.OutOfMemory)
	assert.Zero(t, rep.Alloc.LiveObjects)
}

func Test_RunCanceled(t *testing.T) {
	r, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, &Args{Tag: "c", Ops: 10})
	require.ErrorIs(t, err, context.Canceled)
}

func Test_ReportYAML(t *testing.T) {
	rep := &Report{Tag: "x", Kind: KindList, Ops: map[string]uint64{opPushBack: 3}}
	b, err := rep.YAML()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(b, &got))
	assert.Equal(t, "x", got["tag"])
	assert.Equal(t, map[string]any{opPushBack: 3}, got["ops"])
}
