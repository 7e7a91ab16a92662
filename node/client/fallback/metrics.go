package fallback

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocknative/walletprovider/metrics"
)

type Metrics struct {
	ServedFrom *prometheus.CounterVec
}

func (fb *Fallback) initMetrics() {
	fb.m.ServedFrom = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletprovider",
		Subsystem: "nodeclient",
		Name:      "requestSource",
		Help:      "Number of node calls by transport type and result",
	}, []string{"kind", "node", "result"})
}

func (fb *Fallback) AttachMetrics(m *metrics.Metrics) {
	m.Register(fb.m.ServedFrom)
}
