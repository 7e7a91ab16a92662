package node

import (
	"context"
	"fmt"
	"time"

	"github.com/lthibault/log"
	"github.com/prometheus/client_golang/prometheus"
	uberatomic "go.uber.org/atomic"

	"github.com/blocknative/walletprovider/metrics"
	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/structs"
)

// Caller is implemented by node clients, usually a fallback.Fallback.
type Caller interface {
	Call(ctx context.Context, req structs.Request) (structs.Response, error)
}

// Handler is the terminal element of the chain. It answers every request by
// forwarding it to a node.
type Handler struct {
	c       Caller
	timeout *uberatomic.Duration
	l       log.Logger
	m       HandlerMetrics
}

func NewHandler(l log.Logger, c Caller, timeout time.Duration) *Handler {
	h := &Handler{
		c:       c,
		timeout: uberatomic.NewDuration(timeout),
		l:       l.WithField("module", "nodeHandler"),
	}
	h.initMetrics()
	return h
}

func (h *Handler) HandleRequest(ctx context.Context, req structs.Request) provider.Outcome {
	if timeout := h.timeout.Load(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	timer := prometheus.NewTimer(h.m.Timing.WithLabelValues(req.Method))
	resp, err := h.c.Call(ctx, req)
	timer.ObserveDuration()

	if err != nil {
		h.l.With(req).WithError(err).Warn("node call failed")
		return provider.EndWithError(err)
	}
	return provider.EndWithResponse(resp)
}

// OnConfigChange applies a new node call timeout.
func (h *Handler) OnConfigChange(c structs.OldNew) error {
	if c.Name != "Timeout" {
		return nil
	}
	timeout, ok := c.New.(time.Duration)
	if !ok {
		return fmt.Errorf("unexpected type %T for %s", c.New, c.Name)
	}
	h.timeout.Store(timeout)
	return nil
}

type HandlerMetrics struct {
	Timing *prometheus.HistogramVec
}

func (h *Handler) initMetrics() {
	h.m.Timing = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walletprovider",
		Subsystem: "node",
		Name:      "callDuration",
		Help:      "Duration of node calls per method.",
	}, []string{"method"})
}

func (h *Handler) AttachMetrics(m *metrics.Metrics) {
	m.Register(h.m.Timing)
}
