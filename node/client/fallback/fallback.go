package fallback

import (
	"context"
	"errors"
	"sync"

	"github.com/lthibault/log"

	"github.com/blocknative/walletprovider/node/client"
	"github.com/blocknative/walletprovider/structs"
)

// Fallback tries rpc clients first, then websocket, then plain http. The next
// client is only tried when the previous one is missing or unreachable.
type Fallback struct {
	lock        sync.RWMutex
	clientsRPC  []client.Client
	clientsWS   []client.Client
	clientsHTTP []client.Client
	m           Metrics

	l log.Logger
}

func NewFallback(l log.Logger) *Fallback {
	f := &Fallback{
		l: l.WithField("module", "fallback"),
	}
	f.initMetrics()
	return f
}

func (f *Fallback) IsSet() bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.clientsWS)+len(f.clientsHTTP)+len(f.clientsRPC) > 0
}

func (f *Fallback) AddClient(cli client.Client) {
	f.lock.Lock()
	defer f.lock.Unlock()

	switch cli.Kind() {
	case "ws":
		f.clientsWS = addClient(f.clientsWS, cli)
	case "http":
		f.clientsHTTP = addClient(f.clientsHTTP, cli)
	case "rpc":
		f.clientsRPC = addClient(f.clientsRPC, cli)
	}
}

func (f *Fallback) RemoveClient(kind string, id string) {
	f.lock.Lock()
	defer f.lock.Unlock()

	switch kind {
	case "ws":
		f.clientsWS = removeClient(f.clientsWS, id)
	case "http":
		f.clientsHTTP = removeClient(f.clientsHTTP, id)
	case "rpc":
		f.clientsRPC = removeClient(f.clientsRPC, id)
	}
}

func addClient(cSlice []client.Client, cli client.Client) []client.Client {
	for _, c := range cSlice {
		if c.ID() == cli.ID() {
			return cSlice
		}
	}
	return append(cSlice, cli)
}

func removeClient(cSlice []client.Client, id string) []client.Client {
	for i, c := range cSlice {
		if c.ID() == id {
			out := make([]client.Client, 0, len(cSlice)-1)
			out = append(out, cSlice[:i]...)
			return append(out, cSlice[i+1:]...)
		}
	}
	return cSlice
}

func (f *Fallback) clients() []client.Client {
	f.lock.RLock()
	defer f.lock.RUnlock()

	all := make([]client.Client, 0, len(f.clientsRPC)+len(f.clientsWS)+len(f.clientsHTTP))
	all = append(all, f.clientsRPC...)
	all = append(all, f.clientsWS...)
	return append(all, f.clientsHTTP...)
}

func (f *Fallback) Call(ctx context.Context, req structs.Request) (resp structs.Response, err error) {
	clients := f.clients()
	if len(clients) == 0 {
		f.m.ServedFrom.WithLabelValues("none", "", "notfound").Inc()
		return resp, client.ErrNotFound
	}

	var keepTrying bool
	for _, c := range clients {
		resp, err, keepTrying = f.call(ctx, c, req)
		if !keepTrying {
			return resp, err
		}
	}

	f.m.ServedFrom.WithLabelValues("all", "all", "fatal").Inc()
	return resp, err
}

func (f *Fallback) call(ctx context.Context, c client.Client, req structs.Request) (resp structs.Response, err error, keepTrying bool) {
	if ctx.Err() != nil {
		f.m.ServedFrom.WithLabelValues(c.Kind(), "", "ctx").Inc()
		return resp, ctx.Err(), false
	}

	resp, err = c.Call(ctx, req)
	if err == nil {
		f.m.ServedFrom.WithLabelValues(c.Kind(), c.ID(), "ok").Inc()
		return resp, nil, false
	}

	if !(errors.Is(err, client.ErrNotFound) || errors.Is(err, client.ErrConnectionFailure)) {
		f.m.ServedFrom.WithLabelValues(c.Kind(), c.ID(), "error").Inc()
		return resp, err, false
	}

	f.l.With(log.F{
		"node":   c.ID(),
		"method": req.Method,
	}).WithError(err).Warn("node call fallback")
	f.m.ServedFrom.WithLabelValues(c.Kind(), c.ID(), "fallback").Inc()
	return resp, err, true
}
