//go:generate mockgen -destination=./mocks/mocks.go -package=mocks github.com/blocknative/walletprovider/api Sender,RateLimitter

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lthibault/log"
	"github.com/prometheus/client_golang/prometheus"
	uberatomic "go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/structs"
)

// Router paths
const (
	PathRPC    = "/"
	PathStatus = "/status"
	PathEvents = "/events"
)

const batchWorkers = 8

var (
	ErrEmptyBatch    = &structs.RPCError{Code: structs.CodeInvalidRequest, Message: "empty batch"}
	ErrBatchTooLarge = &structs.RPCError{Code: structs.CodeInvalidRequest, Message: "batch too large"}
	ErrTooManyCalls  = &structs.RPCError{Code: structs.CodeLimitExceeded, Message: "too many calls"}
	ErrParse         = &structs.RPCError{Code: structs.CodeParseError, Message: "parse error"}
	ErrBodyTooLarge  = &structs.RPCError{Code: structs.CodeParseError, Message: "request body too large"}
)

// Sender is the handler chain, usually a provider.Engine.
type Sender interface {
	Send(ctx context.Context, req structs.Request) (structs.Response, error)
}

type RateLimitter interface {
	Allow(ctx context.Context, key string) error
}

type API struct {
	l      log.Logger
	s      Sender
	lim    RateLimitter
	events http.Handler

	maxBatchSize *uberatomic.Int64
	maxBodySize  *uberatomic.Int64

	m *APIMetrics
}

// NewApi serves s over HTTP. lim and events are optional.
func NewApi(l log.Logger, s Sender, lim RateLimitter, events http.Handler, maxBatchSize int, maxBodySize int64) (a *API) {
	a = &API{
		l:            l.WithField("module", "api"),
		s:            s,
		lim:          lim,
		events:       events,
		maxBatchSize: uberatomic.NewInt64(int64(maxBatchSize)),
		maxBodySize:  uberatomic.NewInt64(maxBodySize),
		m:            &APIMetrics{},
	}
	a.initMetrics()
	return a
}

func (a *API) AttachToHandler(m *http.ServeMux) {
	router := mux.NewRouter()
	router.Use(mux.CORSMethodMiddleware(router), withLogger(a.l))

	router.HandleFunc(PathStatus, status).Methods(http.MethodGet)
	if a.events != nil {
		router.Handle(PathEvents, a.events).Methods(http.MethodGet)
	}

	rpc := withDrainBody()(withContentType("application/json")(http.HandlerFunc(a.rpc)))
	router.Handle(PathRPC, rpc).Methods(http.MethodPost)

	m.Handle("/", router)
}

func (a *API) OnConfigChange(c structs.OldNew) (err error) {
	switch c.Name {
	case "MaxBatchSize":
		if i, ok := c.New.(int); ok {
			a.maxBatchSize.Store(int64(i))
		}
	case "MaxBodySize":
		if i, ok := c.New.(int64); ok {
			a.maxBodySize.Store(i)
		}
	}
	return nil
}

func status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

// rpcRequest is a request as it arrives on the wire. The id is kept raw so
// that string and null ids are echoed back unchanged.
type rpcRequest struct {
	ID      json.RawMessage `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// notification reports a request sent without an id member. It is executed
// but never answered.
func (r rpcRequest) notification() bool {
	return len(r.ID) == 0 && r.Method != ""
}

type rpcResponse struct {
	ID      json.RawMessage   `json:"id"`
	JSONRPC string            `json:"jsonrpc"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *structs.RPCError `json:"error,omitempty"`
}

var nullID = json.RawMessage("null")

func errorResponse(id json.RawMessage, rerr *structs.RPCError) rpcResponse {
	if len(id) == 0 {
		id = nullID
	}
	return rpcResponse{ID: id, JSONRPC: structs.Version, Error: rerr}
}

func (a *API) rpc(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(a.m.ApiReqTiming.WithLabelValues("rpc"))
	defer timer.ObserveDuration()

	if a.lim != nil {
		if err := a.lim.Allow(r.Context(), remoteHost(r)); err != nil {
			a.m.ApiReqCounter.WithLabelValues("rpc", "429", "rate limit").Inc()
			writeError(w, http.StatusTooManyRequests, ErrTooManyCalls)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBodySize.Load()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.m.ApiReqCounter.WithLabelValues("rpc", "413", "body size").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, ErrBodyTooLarge)
			return
		}
		a.m.ApiReqCounter.WithLabelValues("rpc", "400", "body read").Inc()
		writeError(w, http.StatusBadRequest, ErrParse)
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		a.batch(r.Context(), w, body)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.m.ApiReqCounter.WithLabelValues("rpc", "400", "input decoding").Inc()
		writeError(w, http.StatusBadRequest, ErrParse)
		return
	}

	resp := a.handle(r.Context(), req)
	if req.notification() {
		a.m.ApiReqCounter.WithLabelValues("rpc", "204", "").Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	a.m.ApiReqCounter.WithLabelValues("rpc", "200", "").Inc()
	writeJSON(w, resp)
}

func (a *API) batch(ctx context.Context, w http.ResponseWriter, body []byte) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		a.m.ApiReqCounter.WithLabelValues("batch", "400", "input decoding").Inc()
		writeError(w, http.StatusBadRequest, ErrParse)
		return
	}

	if len(raws) == 0 {
		a.m.ApiReqCounter.WithLabelValues("batch", "400", "empty").Inc()
		writeError(w, http.StatusBadRequest, ErrEmptyBatch)
		return
	}
	if limit := a.maxBatchSize.Load(); limit > 0 && int64(len(raws)) > limit {
		a.m.ApiReqCounter.WithLabelValues("batch", "400", "size").Inc()
		writeError(w, http.StatusBadRequest, ErrBatchTooLarge)
		return
	}
	a.m.ApiReqElCount.WithLabelValues("batch").Observe(float64(len(raws)))

	var (
		out    = make([]rpcResponse, len(raws))
		answer = make([]bool, len(raws))
	)

	var g errgroup.Group
	g.SetLimit(batchWorkers)
	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			var req rpcRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				out[i] = errorResponse(nil, &structs.RPCError{
					Code:    structs.CodeInvalidRequest,
					Message: "invalid request",
				})
				answer[i] = true
				return nil
			}
			out[i] = a.handle(ctx, req)
			answer[i] = !req.notification()
			return nil
		})
	}
	_ = g.Wait()

	replies := make([]rpcResponse, 0, len(out))
	for i := range out {
		if answer[i] {
			replies = append(replies, out[i])
		}
	}

	// a batch made only of notifications gets no body at all
	if len(replies) == 0 {
		a.m.ApiReqCounter.WithLabelValues("batch", "204", "").Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	a.m.ApiReqCounter.WithLabelValues("batch", "200", "").Inc()
	writeJSON(w, replies)
}

func (a *API) handle(ctx context.Context, in rpcRequest) rpcResponse {
	id := in.ID
	if len(id) == 0 {
		id = nullID
	}

	if in.JSONRPC != "" && in.JSONRPC != structs.Version {
		return errorResponse(id, &structs.RPCError{
			Code:    structs.CodeInvalidRequest,
			Message: fmt.Sprintf("unsupported jsonrpc version %q", in.JSONRPC),
		})
	}
	if in.Method == "" {
		return errorResponse(id, &structs.RPCError{
			Code:    structs.CodeInvalidRequest,
			Message: "method missing",
		})
	}

	params, err := decodeParams(in.Params)
	if err != nil {
		return errorResponse(id, &structs.RPCError{
			Code:    structs.CodeInvalidParams,
			Message: err.Error(),
		})
	}

	req := provider.NormalizePayload(structs.Request{
		ID:     internalID(id),
		Method: in.Method,
		Params: params,
	})

	resp, err := a.s.Send(ctx, req)
	if err != nil {
		a.l.With(req).WithError(err).Debug("request failed")
	}

	out := rpcResponse{
		ID:      id,
		JSONRPC: structs.Version,
		Result:  resp.Result,
		Error:   resp.Error,
	}
	if out.Error == nil && len(out.Result) == 0 {
		out.Result = nullID
	}
	return out
}

// internalID returns the caller's numeric id, or a fresh one when the caller
// used a string or no id at all.
func internalID(id json.RawMessage) int64 {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && n != 0 {
		return n
	}
	return provider.RandomID()
}

func decodeParams(raw json.RawMessage) ([]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullID) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var params []any
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
		return params, nil
	case '{':
		var param map[string]any
		if err := json.Unmarshal(raw, &param); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
		return []any{param}, nil
	}
	return nil, errors.New("params must be an array or an object")
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, rerr *structs.RPCError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse(nil, rerr))
}
