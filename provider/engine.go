//go:generate mockgen -destination=./mocks/mocks.go -package=mocks github.com/blocknative/walletprovider/provider Dispatcher

package provider

import (
	"context"
	"encoding/json"

	"github.com/lthibault/log"
	"github.com/prometheus/client_golang/prometheus"
	uberatomic "go.uber.org/atomic"

	"github.com/blocknative/walletprovider/structs"
)

// Dispatcher sends a request through the middleware chain and returns the
// single correlated response. Handlers that need to issue auxiliary requests
// receive a Dispatcher when they are constructed.
type Dispatcher interface {
	Dispatch(ctx context.Context, partial structs.Request) (structs.Response, error)
}

// Engine is the ordered handler chain. Handlers are registered during setup;
// once the first request is served the chain is read-only and may be shared
// by any number of concurrent requests.
type Engine struct {
	handlers []Handler
	sealed   *uberatomic.Bool

	l log.Logger
	m EngineMetrics
}

func NewEngine(l log.Logger) *Engine {
	e := &Engine{
		sealed: uberatomic.NewBool(false),
		l:      l.WithField("module", "engine"),
	}
	e.initMetrics()
	return e
}

// AddHandler appends h to the end of the chain.
func (e *Engine) AddHandler(h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if e.sealed.Load() {
		return ErrEngineSealed
	}
	e.handlers = append(e.handlers, h)
	return nil
}

// Len returns the number of registered handlers.
func (e *Engine) Len() int {
	return len(e.handlers)
}

// Send walks the chain with req. The returned response is always usable: on
// failure it carries the JSON-RPC error object and err holds the original
// error reported by the handler.
func (e *Engine) Send(ctx context.Context, req structs.Request) (resp structs.Response, err error) {
	e.sealed.Store(true)

	timer := prometheus.NewTimer(e.m.Timing.WithLabelValues(req.Method))
	defer timer.ObserveDuration()

	current := req
	for i, h := range e.handlers {
		out := h.HandleRequest(ctx, current)

		if modified, ok := out.Request(); ok {
			current = modified
			continue
		}

		if !out.Answered() {
			continue
		}

		if err = out.Err(); err != nil {
			e.m.Requests.WithLabelValues(req.Method, "error").Inc()
			e.l.With(log.F{
				"method":  req.Method,
				"id":      req.ID,
				"handler": i,
			}).WithError(err).Debug("request failed")
			return structs.NewErrorResponse(req.ID, ToRPCError(err)), err
		}

		resp, err = toResponse(req.ID, out.Result())
		if err != nil {
			e.m.Requests.WithLabelValues(req.Method, "error").Inc()
			return structs.NewErrorResponse(req.ID, ToRPCError(err)), err
		}
		e.m.Requests.WithLabelValues(req.Method, "ok").Inc()
		return resp, nil
	}

	e.m.Requests.WithLabelValues(req.Method, "unhandled").Inc()
	e.l.With(req).Warn("request not handled by any handler")
	return structs.NewErrorResponse(req.ID, ErrUnhandled), ErrUnhandled
}

// Dispatch normalizes partial and sends it through the chain. Chain failures
// are returned as *DispatchError.
func (e *Engine) Dispatch(ctx context.Context, partial structs.Request) (structs.Response, error) {
	req := NormalizePayload(partial)
	resp, err := e.Send(ctx, req)
	if err != nil {
		return resp, &DispatchError{Method: req.Method, Err: err}
	}
	return resp, nil
}

func toResponse(id int64, result any) (structs.Response, error) {
	if raw, ok := result.(json.RawMessage); ok {
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		return structs.Response{ID: id, VersionTag: structs.Version, Result: raw}, nil
	}
	return structs.NewResult(id, result)
}
