package coremain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pmkol/ringlist/mlog"
	"github.com/pmkol/ringlist/pkg/cache/mem_cache"
	"github.com/pmkol/ringlist/pkg/pool"
	"github.com/pmkol/ringlist/pkg/safe_close"
	"github.com/pmkol/ringlist/pkg/workload"
)

type Ringlist struct {
	logger *zap.Logger
	runner *workload.Runner

	httpAddr      string
	httpAPIMux    *http.ServeMux
	httpAPIServer *http.Server

	metricsReg *prometheus.Registry

	sc *safe_close.SafeClose

	outM    sync.Mutex
	out     io.Writer
	outFile *os.File

	reports   *mem_cache.MemCache
	reportTTL time.Duration

	m         sync.Mutex
	soak      SoakConfig
	workloads []workload.Args
}

// NewRinglist builds a runner from cfg. Nothing is started until Start.
func NewRinglist(cfg *Config) (*Ringlist, error) {
	lg, err := mlog.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	if err := checkWorkloads(cfg.Workloads); err != nil {
		return nil, err
	}

	r := &Ringlist{
		logger:     lg,
		httpAddr:   cfg.API.HTTP,
		httpAPIMux: http.NewServeMux(),
		metricsReg: newMetricsReg(),
		sc:         safe_close.NewSafeClose(),
		out:        os.Stdout,
		reportTTL:  cfg.API.reportTTL(),
		soak:       cfg.Soak,
		workloads:  cfg.Workloads,
	}

	r.runner, err = workload.NewRunner(lg, r.GetMetricsReg())
	if err != nil {
		return nil, err
	}

	if rf := cfg.Soak.ReportFile; len(rf) > 0 {
		f, err := os.OpenFile(rf, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open report file: %w", err)
		}
		r.out, r.outFile = f, f
	}
	r.reports = mem_cache.NewMemCache(1024, time.Minute)

	r.httpAPIMux.HandleFunc("/reports/", r.serveReport)
	r.httpAPIMux.Handle("/metrics", promhttp.HandlerFor(r.metricsReg, promhttp.HandlerOpts{}))
	r.httpAPIMux.HandleFunc("/debug/pprof/", pprof.Index)
	r.httpAPIMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.httpAPIMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.httpAPIMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.httpAPIMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return r, nil
}

// RunRinglist runs cfg in the foreground until all rounds are done,
// a workload fails or the process is interrupted.
func RunRinglist(cfg *Config) error {
	r, err := NewRinglist(cfg)
	if err != nil {
		return err
	}
	r.handleSignals()
	r.Start()
	return r.Wait()
}

func checkWorkloads(wls []workload.Args) error {
	if len(wls) == 0 {
		return errors.New("no workload is configured")
	}
	dupTag := make(map[string]struct{})
	for i, a := range wls {
		if len(a.Tag) == 0 {
			return fmt.Errorf("workload #%d has no tag", i)
		}
		if _, dup := dupTag[a.Tag]; dup {
			return fmt.Errorf("duplicated workload tag %s", a.Tag)
		}
		dupTag[a.Tag] = struct{}{}
	}
	return nil
}

// Start starts the api server and the workload loop.
func (r *Ringlist) Start() {
	if len(r.httpAddr) > 0 {
		r.httpAPIServer = &http.Server{
			Addr:    r.httpAddr,
			Handler: r.httpAPIMux,
		}
		r.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
			defer done()
			errChan := make(chan error, 1)
			go func() {
				r.logger.Info("starting api http server", zap.String("addr", r.httpAddr))
				errChan <- r.httpAPIServer.ListenAndServe()
			}()
			select {
			case err := <-errChan:
				r.sc.SendCloseSignal(err)
			case <-closeSignal:
				r.httpAPIServer.Close()
			}
		})
	}
	r.sc.Attach(r.soakLoop)
}

// Wait blocks until r is closed and returns the error that closed it.
func (r *Ringlist) Wait() error {
	<-r.sc.ReceiveCloseSignal()
	r.sc.Done()
	r.sc.CloseWait()
	r.reports.Close()
	if r.outFile != nil {
		if err := r.outFile.Close(); err != nil {
			r.logger.Warn("failed to close report file", zap.Error(err))
		}
	}
	return r.sc.Err()
}

// Reload replaces the workloads and soak settings. The running round is
// not interrupted, the next one uses the new settings.
func (r *Ringlist) Reload(cfg *Config) error {
	if err := checkWorkloads(cfg.Workloads); err != nil {
		return err
	}
	r.m.Lock()
	defer r.m.Unlock()
	r.workloads = cfg.Workloads
	r.soak.Interval = cfg.Soak.Interval
	r.soak.Rounds = cfg.Soak.Rounds
	r.logger.Info("workloads reloaded", zap.Int("workloads", len(cfg.Workloads)))
	return nil
}

func (r *Ringlist) snapshot() (SoakConfig, []workload.Args) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.soak, r.workloads
}

func (r *Ringlist) handleSignals() {
	r.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(c)
		select {
		case sig := <-c:
			r.logger.Info("signal received, exiting", zap.Stringer("signal", sig))
			r.sc.SendCloseSignal(nil)
		case <-closeSignal:
		}
	})
}

func (r *Ringlist) soakLoop(done func(), closeSignal <-chan struct{}) {
	defer done()
	ctx, cancel := r.sc.Context(context.Background())
	defer cancel()

	var timer *time.Timer
	defer func() { pool.ReleaseTimer(timer) }()

	for round := 1; ; round++ {
		soak, wls := r.snapshot()
		if err := r.runRound(ctx, round, wls); err != nil {
			if ctx.Err() == nil {
				r.sc.SendCloseSignal(err)
			}
			return
		}

		if soak.lastRound(round) {
			r.logger.Info("all rounds finished", zap.Int("rounds", round))
			if r.httpAPIServer == nil {
				r.sc.SendCloseSignal(nil)
			}
			return
		}

		if timer == nil {
			timer = pool.GetTimer(soak.Interval)
		} else {
			pool.ResetAndDrainTimer(timer, soak.Interval)
		}
		select {
		case <-timer.C:
		case <-closeSignal:
			return
		}
	}
}

func (r *Ringlist) runRound(ctx context.Context, round int, wls []workload.Args) error {
	r.logger.Debug("starting round", zap.Int("round", round))
	for i := range wls {
		args := wls[i]
		rep, err := r.runner.Run(ctx, &args)
		if rep != nil {
			if werr := r.writeReport(round, rep); werr != nil {
				r.logger.Warn("failed to write report", zap.String("tag", args.Tag), zap.Error(werr))
			}
		}
		if err != nil {
			return fmt.Errorf("round %d, workload %s, %w", round, args.Tag, err)
		}
	}
	return nil
}

func (r *Ringlist) writeReport(round int, rep *workload.Report) error {
	b, err := rep.YAML()
	if err != nil {
		return err
	}
	if err := r.reports.Store(rep.Tag, b, time.Now().Add(r.reportTTL)); err != nil {
		return fmt.Errorf("failed to cache report, %w", err)
	}

	r.outM.Lock()
	defer r.outM.Unlock()
	_, err = fmt.Fprintf(r.out, "---\n# round %d\n%s", round, b)
	return err
}

// serveReport writes the latest report of the workload named by the
// last path element.
func (r *Ringlist) serveReport(w http.ResponseWriter, req *http.Request) {
	tag := strings.TrimPrefix(req.URL.Path, "/reports/")
	b, stored, ok := r.reports.Get(tag)
	if !ok {
		http.Error(w, "no report for "+tag, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Last-Modified", stored.UTC().Format(http.TimeFormat))
	w.Write(b)
}

func (r *Ringlist) GetSafeClose() *safe_close.SafeClose {
	return r.sc
}

func (r *Ringlist) GetMetricsReg() prometheus.Registerer {
	return prometheus.WrapRegistererWithPrefix("ringlist_", r.metricsReg)
}

func (r *Ringlist) GetHTTPAPIMux() *http.ServeMux {
	return r.httpAPIMux
}

func newMetricsReg() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}
