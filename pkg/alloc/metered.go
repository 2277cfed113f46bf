package alloc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Meters holds the Prometheus collectors shared by every Metered resource
// created from it. Each Metered resource is one "resource" label value.
type Meters struct {
	reserves  *prometheus.CounterVec
	releases  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	liveBytes *prometheus.GaugeVec
	liveObjs  *prometheus.GaugeVec
}

// NewMeters registers the allocator metrics to reg. reg may be nil.
func NewMeters(reg prometheus.Registerer) (*Meters, error) {
	labels := []string{"resource"}
	m := &Meters{
		reserves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_reserves_total",
			Help: "The total number of successful reservations",
		}, labels),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_releases_total",
			Help: "The total number of releases",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alloc_failures_total",
			Help: "The total number of failed reservations",
		}, labels),
		liveBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alloc_live_bytes",
			Help: "Bytes currently reserved",
		}, labels),
		liveObjs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alloc_live_objects",
			Help: "Objects currently reserved",
		}, labels),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.reserves, m.releases, m.failures, m.liveBytes, m.liveObjs} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Wrap returns parent with its traffic exported under name.
func (m *Meters) Wrap(parent Resource, name string) *Metered {
	if parent == nil {
		parent = Heap()
	}
	return &Metered{
		parent:    parent,
		reserves:  m.reserves.WithLabelValues(name),
		releases:  m.releases.WithLabelValues(name),
		failures:  m.failures.WithLabelValues(name),
		liveBytes: m.liveBytes.WithLabelValues(name),
		liveObjs:  m.liveObjs.WithLabelValues(name),
	}
}

// Metered exports the traffic of a Resource as Prometheus metrics.
type Metered struct {
	parent Resource

	reserves  prometheus.Counter
	releases  prometheus.Counter
	failures  prometheus.Counter
	liveBytes prometheus.Gauge
	liveObjs  prometheus.Gauge
}

func (m *Metered) Reserve(size uintptr, n int) error {
	if err := m.parent.Reserve(size, n); err != nil {
		m.failures.Inc()
		return err
	}
	m.reserves.Inc()
	m.liveBytes.Add(float64(uint64(size) * uint64(n)))
	m.liveObjs.Add(float64(n))
	return nil
}

func (m *Metered) Release(size uintptr, n int) {
	m.releases.Inc()
	m.liveBytes.Sub(float64(uint64(size) * uint64(n)))
	m.liveObjs.Sub(float64(n))
	m.parent.Release(size, n)
}
