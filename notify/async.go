package notify

import (
	"context"
	"sync"

	"github.com/lthibault/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocknative/walletprovider/metrics"
	"github.com/blocknative/walletprovider/structs"
)

// Async hands notifications to a slow observer from a background worker.
// When the queue is full the notification is dropped, the caller never waits.
type Async struct {
	name  string
	obs   Observer
	queue chan structs.TransactionReady

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	l log.Logger
	m AsyncMetrics
}

func NewAsync(l log.Logger, name string, obs Observer, queueSize int) *Async {
	a := &Async{
		name:  name,
		obs:   obs,
		queue: make(chan structs.TransactionReady, queueSize),
		done:  make(chan struct{}),
		l:     l.With(log.F{"module": "notify", "sink": name}),
	}
	a.initMetrics()

	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) TransactionReady(_ context.Context, ev structs.TransactionReady) {
	select {
	case <-a.done:
		return
	default:
	}

	select {
	case a.queue <- ev:
		a.m.Events.WithLabelValues(a.name, "queued").Inc()
	default:
		a.m.Events.WithLabelValues(a.name, "dropped").Inc()
		a.l.With(log.F{"to": ev.To}).Warn("notification queue full, dropping")
	}
}

func (a *Async) run() {
	defer a.wg.Done()

	for {
		select {
		case ev := <-a.queue:
			a.obs.TransactionReady(context.Background(), ev)
		case <-a.done:
			return
		}
	}
}

// Close stops the worker. Queued notifications are discarded.
func (a *Async) Close() {
	a.once.Do(func() { close(a.done) })
	a.wg.Wait()
}

type AsyncMetrics struct {
	Events *prometheus.CounterVec
}

func (a *Async) initMetrics() {
	a.m.Events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletprovider",
		Subsystem: "notify",
		Name:      "events",
		Help:      "Notifications per sink and outcome.",
	}, []string{"sink", "result"})
}

func (a *Async) AttachMetrics(m *metrics.Metrics) {
	m.Register(a.m.Events)
}
