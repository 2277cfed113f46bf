package coremain

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pmkol/ringlist/mlog"
	"github.com/pmkol/ringlist/pkg/workload"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func Test_loadConfig(t *testing.T) {
	dir := t.TempDir()
	sub := writeFile(t, dir, "sub.yaml", `
workloads:
  - tag: from_sub
    kind: lru
    lru_size: 32
`)
	main := writeFile(t, dir, "config.yaml", `
log:
  level: warn
api:
  http: 127.0.0.1:0
soak:
  interval: 250ms
  rounds: 3
include:
  - `+sub+`
workloads:
  - tag: main
    workers: 2
    ops: 100
    mix:
      push_back: 3
      pop_front: 1
    alloc:
      limit_objects: 64
      pooled: true
`)

	cfg, fileUsed, err := loadFullConfig(main)
	require.NoError(t, err)
	assert.Equal(t, main, fileUsed)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:0", cfg.API.HTTP)
	assert.Equal(t, 250*time.Millisecond, cfg.Soak.Interval)
	assert.Equal(t, 3, cfg.Soak.Rounds)

	require.Len(t, cfg.Workloads, 2)
	assert.Equal(t, "from_sub", cfg.Workloads[0].Tag)
	assert.Equal(t, workload.KindLRU, cfg.Workloads[0].Kind)
	assert.Equal(t, 32, cfg.Workloads[0].LRUSize)

	w := cfg.Workloads[1]
	assert.Equal(t, "main", w.Tag)
	assert.Equal(t, 2, w.Workers)
	require.NotNil(t, w.Mix)
	assert.Equal(t, workload.Mix{PushBack: 3, PopFront: 1}, *w.Mix)
	assert.Equal(t, workload.AllocArgs{LimitObjects: 64, Pooled: true}, w.Alloc)
}

func Test_loadConfig_unknownKey(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", `
workloads:
  - tag: a
    no_such_key: 1
`)
	_, _, err := loadConfig(p)
	assert.Error(t, err)
}

func Test_mergeInclude_depth(t *testing.T) {
	dir := t.TempDir()
	self := filepath.Join(dir, "loop.yaml")
	writeFile(t, dir, "loop.yaml", "include:\n  - "+self+"\n")

	cfg, fileUsed, err := loadConfig(self)
	require.NoError(t, err)
	err = mergeInclude(cfg, 0, []string{fileUsed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum include depth")
}

func Test_checkWorkloads(t *testing.T) {
	assert.Error(t, checkWorkloads(nil))
	assert.Error(t, checkWorkloads([]workload.Args{{}}))
	assert.Error(t, checkWorkloads([]workload.Args{{Tag: "a"}, {Tag: "a"}}))
	assert.NoError(t, checkWorkloads([]workload.Args{{Tag: "a"}, {Tag: "b"}}))
}

func readReports(t *testing.T, p string) []workload.Report {
	t.Helper()
	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()

	var reps []workload.Report
	dec := yaml.NewDecoder(f)
	for {
		var rep workload.Report
		err := dec.Decode(&rep)
		if errors.Is(err, io.EOF) {
			return reps
		}
		require.NoError(t, err)
		reps = append(reps, rep)
	}
}

func Test_RunRinglist(t *testing.T) {
	report := filepath.Join(t.TempDir(), "report.yaml")
	cfg := &Config{
		Log: mlog.LogConfig{Level: "error"},
		Soak: SoakConfig{
			Interval:   time.Millisecond,
			Rounds:     3,
			ReportFile: report,
		},
		Workloads: []workload.Args{
			{Tag: "l", Ops: 300, Initial: 8, Workers: 2},
			{Tag: "c", Kind: workload.KindLRU, Ops: 300, LRUSize: 16},
		},
	}
	require.NoError(t, RunRinglist(cfg))

	reps := readReports(t, report)
	require.Len(t, reps, 6)
	for i, rep := range reps {
		assert.Equal(t, cfg.Workloads[i%2].Tag, rep.Tag)
		assert.Zero(t, rep.Alloc.LiveObjects)
		assert.NotZero(t, rep.TotalOps())
	}
}

func Test_Ringlist_failure(t *testing.T) {
	cfg := &Config{
		Log:       mlog.LogConfig{Level: "error"},
		Workloads: []workload.Args{{Tag: "bad", Kind: "no_such_kind"}},
	}
	r, err := NewRinglist(cfg)
	require.NoError(t, err)
	r.Start()
	err = r.Wait()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad"))
}

func Test_Ringlist_Reload(t *testing.T) {
	cfg := &Config{
		Log:       mlog.LogConfig{Level: "error"},
		Soak:      SoakConfig{Interval: time.Hour},
		Workloads: []workload.Args{{Tag: "a", Ops: 10}},
	}
	r, err := NewRinglist(cfg)
	require.NoError(t, err)
	r.out = io.Discard

	assert.Error(t, r.Reload(&Config{}))
	require.NoError(t, r.Reload(&Config{
		Soak:      SoakConfig{Interval: time.Minute, Rounds: 2},
		Workloads: []workload.Args{{Tag: "b"}, {Tag: "c"}},
	}))
	soak, wls := r.snapshot()
	assert.Equal(t, time.Minute, soak.Interval)
	assert.Equal(t, 2, soak.Rounds)
	require.Len(t, wls, 2)
	assert.Equal(t, "b", wls[0].Tag)

	r.Start()
	r.GetSafeClose().SendCloseSignal(nil)
	assert.NoError(t, r.Wait())
}

func Test_Ringlist_httpAPI(t *testing.T) {
	cfg := &Config{
		Log:       mlog.LogConfig{Level: "error"},
		Workloads: []workload.Args{{Tag: "a", Ops: 50}},
	}
	r, err := NewRinglist(cfg)
	require.NoError(t, err)
	r.out = io.Discard
	defer func() {
		r.GetSafeClose().SendCloseSignal(nil)
		assert.NoError(t, r.Wait())
	}()

	require.NoError(t, r.runRound(context.Background(), 1, cfg.Workloads))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.GetHTTPAPIMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/reports/a")
	require.Equal(t, http.StatusOK, w.Code)
	var rep workload.Report
	require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, "a", rep.Tag)
	assert.NotZero(t, rep.TotalOps())

	assert.Equal(t, http.StatusNotFound, get("/reports/b").Code)

	w = get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ringlist_workload_ops_total")
	assert.Contains(t, w.Body.String(), "ringlist_alloc_reserves_total")
}
