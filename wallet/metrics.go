package wallet

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocknative/walletprovider/metrics"
)

type WalletMetrics struct {
	Signatures *prometheus.CounterVec
	SignTiming *prometheus.HistogramVec
}

func (w *Wallet) initMetrics() {
	w.m.Signatures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletprovider",
		Subsystem: "wallet",
		Name:      "signatures",
		Help:      "Number of signer invocations per method and result.",
	}, []string{"method", "result"})

	w.m.SignTiming = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walletprovider",
		Subsystem: "wallet",
		Name:      "signDuration",
		Help:      "Duration of signer calls.",
	}, []string{"method"})
}

func (w *Wallet) AttachMetrics(m *metrics.Metrics) {
	m.Register(w.m.Signatures)
	m.Register(w.m.SignTiming)
}
