package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocknative/walletprovider/metrics"
)

type APIMetrics struct {
	ApiReqCounter *prometheus.CounterVec
	ApiReqTiming  *prometheus.HistogramVec
	ApiReqElCount *prometheus.HistogramVec
}

func (api *API) initMetrics() {
	api.m.ApiReqCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletprovider",
		Subsystem: "api",
		Name:      "reqcount",
		Help:      "Number of requests.",
	}, []string{"endpoint", "code", "message"})

	api.m.ApiReqTiming = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walletprovider",
		Subsystem: "api",
		Name:      "duration",
		Help:      "Duration of requests per endpoint",
	}, []string{"endpoint"})

	api.m.ApiReqElCount = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walletprovider",
		Subsystem: "api",
		Name:      "reqElCount",
		Help:      "Number of elements in a request",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	}, []string{"endpoint"})
}

func (api *API) AttachMetrics(m *metrics.Metrics) {
	m.Register(api.m.ApiReqCounter)
	m.Register(api.m.ApiReqTiming)
	m.Register(api.m.ApiReqElCount)
}
