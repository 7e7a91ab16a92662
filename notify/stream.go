//go:generate mockgen -destination=./mocks/mocks.go -package=mocks github.com/blocknative/walletprovider/notify PubSub,Observer

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocknative/walletprovider/metrics"
	"github.com/blocknative/walletprovider/notify/transport"
	"github.com/blocknative/walletprovider/structs"
)

const TransactionReadyTopic = "/wallet/transaction/ready"

type PubSub interface {
	Publish(ctx context.Context, topic string, data []byte) error
	Subscribe(ctx context.Context, topic string) <-chan []byte
}

// Stream shares notifications between provider instances. Every instance
// publishes what its own wallet emits and replays what the others emit to
// its local observers.
type Stream struct {
	ID             uuid.UUID
	PublishTimeout time.Duration

	ps PubSub
	l  log.Logger
	m  StreamMetrics
}

func NewStream(l log.Logger, ps PubSub, publishTimeout time.Duration) *Stream {
	s := &Stream{
		ID:             uuid.New(),
		PublishTimeout: publishTimeout,
		ps:             ps,
	}
	s.l = l.With(log.F{
		"module":   "notify",
		"sink":     "stream",
		"instance": s.ID.String(),
	})
	s.initMetrics()
	return s
}

func (s *Stream) TransactionReady(ctx context.Context, ev structs.TransactionReady) {
	timer := prometheus.NewTimer(s.m.Timing.WithLabelValues("publish"))
	defer timer.ObserveDuration()

	b, err := s.encode(ev)
	if err != nil {
		s.l.WithError(err).Error("failed to encode notification")
		return
	}

	if s.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.PublishTimeout)
		defer cancel()
	}

	if err := s.ps.Publish(ctx, TransactionReadyTopic, b); err != nil {
		s.m.Messages.WithLabelValues("publish", "error").Inc()
		s.l.WithError(err).Warn("failed to publish notification")
		return
	}
	s.m.Messages.WithLabelValues("publish", "ok").Inc()
}

func (s *Stream) encode(ev structs.TransactionReady) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return transport.Encode(transport.Message{
		Source:   s.ID,
		Encoding: transport.TransactionReadyJSON,
		Payload:  payload,
	})
}

// Run forwards notifications published by other instances to local until ctx
// is done or the subscription closes.
func (s *Stream) Run(ctx context.Context, local Observer) error {
	sub := s.ps.Subscribe(ctx, TransactionReadyTopic)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-sub:
			if !ok {
				return ctx.Err()
			}
			if err := s.handle(ctx, b, local); err != nil {
				s.m.Messages.WithLabelValues("receive", "error").Inc()
				s.l.WithError(err).Warn("failed to handle subscription event")
			}
		}
	}
}

func (s *Stream) handle(ctx context.Context, b []byte, local Observer) error {
	msg, err := transport.Decode(b)
	if err != nil {
		return err
	}
	if msg.Source == s.ID {
		return nil
	}

	var ev structs.TransactionReady
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	s.m.Messages.WithLabelValues("receive", "ok").Inc()
	s.l.With(msg).Debug("handled subscription event")
	local.TransactionReady(ctx, ev)
	return nil
}

type StreamMetrics struct {
	Messages *prometheus.CounterVec
	Timing   *prometheus.HistogramVec
}

func (s *Stream) initMetrics() {
	s.m.Messages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletprovider",
		Subsystem: "stream",
		Name:      "messages",
		Help:      "Number of stream messages per direction and result.",
	}, []string{"direction", "result"})

	s.m.Timing = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walletprovider",
		Subsystem: "stream",
		Name:      "timing",
		Help:      "Duration of stream operations.",
	}, []string{"function"})
}

func (s *Stream) AttachMetrics(m *metrics.Metrics) {
	m.Register(s.m.Messages)
	m.Register(s.m.Timing)
}
