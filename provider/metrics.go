package provider

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocknative/walletprovider/metrics"
)

type EngineMetrics struct {
	Requests *prometheus.CounterVec
	Timing   *prometheus.HistogramVec
}

func (e *Engine) initMetrics() {
	e.m.Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletprovider",
		Subsystem: "engine",
		Name:      "requests",
		Help:      "Number of requests that went through the handler chain.",
	}, []string{"method", "result"})

	e.m.Timing = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walletprovider",
		Subsystem: "engine",
		Name:      "duration",
		Help:      "Duration of requests per method, including nested requests.",
	}, []string{"method"})
}

func (e *Engine) AttachMetrics(m *metrics.Metrics) {
	m.Register(e.m.Requests)
	m.Register(e.m.Timing)
}
