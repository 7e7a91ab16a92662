package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/lthibault/log"
	"github.com/r3labs/sse/v2"

	"github.com/blocknative/walletprovider/structs"
)

const (
	SSEStream             = "transactions"
	EventTransactionReady = "transactionReady"
)

// SSE publishes notifications as server-sent events.
type SSE struct {
	srv  *sse.Server
	once sync.Once
	l    log.Logger
}

func NewSSE(l log.Logger) *SSE {
	srv := sse.New()
	srv.AutoReplay = false
	srv.CreateStream(SSEStream)

	return &SSE{
		srv: srv,
		l:   l.With(log.F{"module": "notify", "sink": "sse"}),
	}
}

func (s *SSE) TransactionReady(_ context.Context, ev structs.TransactionReady) {
	b, err := json.Marshal(ev)
	if err != nil {
		s.l.WithError(err).Error("failed to encode event")
		return
	}
	s.srv.Publish(SSEStream, &sse.Event{
		Event: []byte(EventTransactionReady),
		Data:  b,
	})
}

// ServeHTTP streams events to a subscriber until it disconnects.
func (s *SSE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("stream") == "" {
		q.Set("stream", SSEStream)
		r.URL.RawQuery = q.Encode()
	}
	s.srv.ServeHTTP(w, r)
}

// Close ends every open subscription. It is safe to call more than once.
func (s *SSE) Close() {
	s.once.Do(s.srv.Close)
}
