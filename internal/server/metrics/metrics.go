// Package metrics exposes the Prometheus collectors of the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	KiB = float64(1024)
	MiB = float64(1024 * KiB)
)

// Recorder is what the services report into. Nop satisfies it for tests.
type Recorder interface {
	APICall(op, result string)
	ObjectStored(kind string, size int)
	ImagesCascaded(n int)
	StorageUp(up bool)
}

// Metrics owns a private registry so several instances can coexist.
type Metrics struct {
	registry *prometheus.Registry

	apiCalls   *prometheus.CounterVec
	objectSize *prometheus.HistogramVec
	cascaded   prometheus.Counter
	storageUp  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gemdeck_api_calls_total",
				Help: "Number of API invocations",
			},
			[]string{"op", "result"},
		),
		objectSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gemdeck_object_size_bytes",
				Help: "Sizes of stored objects",
				Buckets: []float64{
					KiB,
					64 * KiB,
					512 * KiB,
					MiB,
					4 * MiB,
					16 * MiB,
				},
			},
			[]string{"kind"},
		),
		cascaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gemdeck_cascade_image_deletes_total",
				Help: "Number of images removed together with their document",
			},
		),
		storageUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gemdeck_storage_up",
				Help: "1 when the last storage probe succeeded",
			},
		),
	}

	m.registry.MustRegister(
		m.apiCalls,
		m.objectSize,
		m.cascaded,
		m.storageUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) APICall(op, result string) {
	m.apiCalls.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObjectStored(kind string, size int) {
	m.objectSize.WithLabelValues(kind).Observe(float64(size))
}

func (m *Metrics) ImagesCascaded(n int) {
	m.cascaded.Add(float64(n))
}

func (m *Metrics) StorageUp(up bool) {
	if up {
		m.storageUp.Set(1)
	} else {
		m.storageUp.Set(0)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type Nop struct{}

func (Nop) APICall(string, string)   {}
func (Nop) ObjectStored(string, int) {}
func (Nop) ImagesCascaded(int)       {}
func (Nop) StorageUp(bool)           {}
