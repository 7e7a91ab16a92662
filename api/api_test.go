package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lthibault/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/blocknative/walletprovider/api"
	"github.com/blocknative/walletprovider/api/mocks"
	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/structs"
)

var logger = log.New(log.WithWriter(io.Discard))

const (
	TestMaxBatch = 3
	TestMaxBody  = 1 << 16
)

type wireResponse struct {
	ID     json.RawMessage   `json:"id"`
	Result json.RawMessage   `json:"result"`
	Error  *structs.RPCError `json:"error"`
}

func serve(t *testing.T, a *api.API, method, body string) *httptest.ResponseRecorder {
	t.Helper()

	m := http.NewServeMux()
	a.AttachToHandler(m)

	req := httptest.NewRequest(method, api.PathRPC, strings.NewReader(body))
	w := httptest.NewRecorder()
	m.ServeHTTP(w, req)
	return w
}

func echo(_ context.Context, req structs.Request) (structs.Response, error) {
	return structs.NewResult(req.ID, req.Method)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	a := api.NewApi(logger, nil, nil, nil, TestMaxBatch, TestMaxBody)
	m := http.NewServeMux()
	a.AttachToHandler(m)

	req := httptest.NewRequest(http.MethodGet, api.PathStatus, nil)
	w := httptest.NewRecorder()
	m.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(api.HeaderRequestID))
}

func TestSingleRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := mocks.NewMockSender(ctrl)
	s.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req structs.Request) (structs.Response, error) {
			require.EqualValues(t, 7, req.ID)
			require.Equal(t, structs.Version, req.VersionTag)
			require.Equal(t, "eth_chainId", req.Method)
			require.NotNil(t, req.Params)
			return structs.NewResult(req.ID, "0x1")
		})

	a := api.NewApi(logger, s, nil, nil, TestMaxBatch, TestMaxBody)
	w := serve(t, a, http.MethodPost, `{"jsonrpc":"2.0","id":7,"method":"eth_chainId"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.JSONEq(t, `7`, string(resp.ID))
	require.JSONEq(t, `"0x1"`, string(resp.Result))
	require.Nil(t, resp.Error)
}

func TestStringID(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := mocks.NewMockSender(ctrl)
	s.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req structs.Request) (structs.Response, error) {
			require.NotZero(t, req.ID)
			return structs.NewResult(req.ID, nil)
		})

	a := api.NewApi(logger, s, nil, nil, TestMaxBatch, TestMaxBody)
	w := serve(t, a, http.MethodPost, `{"jsonrpc":"2.0","id":"abc","method":"eth_getTransactionByHash","params":["0x01"]}`)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.JSONEq(t, `"abc"`, string(resp.ID))
	require.JSONEq(t, `null`, string(resp.Result))
}

func TestErrorResponse(t *testing.T) {
	t.Parallel()

	e := provider.NewEngine(logger)
	require.NoError(t, e.AddHandler(provider.HandlerFunc(func(context.Context, structs.Request) provider.Outcome {
		return provider.EndWithError(&structs.RPCError{Code: 4200, Message: "METHOD_NOT_SUPPORTED"})
	})))

	a := api.NewApi(logger, e, nil, nil, TestMaxBatch, TestMaxBody)
	w := serve(t, a, http.MethodPost, `{"jsonrpc":"2.0","id":1,"method":"eth_sign","params":["0x1","0x2"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, 4200, resp.Error.Code)
	require.Equal(t, "METHOD_NOT_SUPPORTED", resp.Error.Message)
}

func TestInvalidRequests(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := mocks.NewMockSender(ctrl)
	a := api.NewApi(logger, s, nil, nil, TestMaxBatch, TestMaxBody)

	for name, tc := range map[string]struct {
		body   string
		status int
		code   int
	}{
		"parse error":    {`{"jsonrpc":`, http.StatusBadRequest, structs.CodeParseError},
		"empty batch":    {`[]`, http.StatusBadRequest, structs.CodeInvalidRequest},
		"batch too big":  {`[{},{},{},{}]`, http.StatusBadRequest, structs.CodeInvalidRequest},
		"missing method": {`{"jsonrpc":"2.0","id":1}`, http.StatusOK, structs.CodeInvalidRequest},
		"bad version":    {`{"jsonrpc":"1.0","id":1,"method":"eth_chainId"}`, http.StatusOK, structs.CodeInvalidRequest},
		"bad params":     {`{"jsonrpc":"2.0","id":1,"method":"eth_chainId","params":"x"}`, http.StatusOK, structs.CodeInvalidParams},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			w := serve(t, a, http.MethodPost, tc.body)
			require.Equal(t, tc.status, w.Code)

			var resp wireResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			require.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestBodyTooLarge(t *testing.T) {
	t.Parallel()

	a := api.NewApi(logger, nil, nil, nil, TestMaxBatch, 16)
	w := serve(t, a, http.MethodPost, `{"jsonrpc":"2.0","id":1,"method":"eth_chainId"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBatch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := mocks.NewMockSender(ctrl)
	s.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(echo).Times(2)

	a := api.NewApi(logger, s, nil, nil, TestMaxBatch, TestMaxBody)
	w := serve(t, a, http.MethodPost, `[
		{"jsonrpc":"2.0","id":1,"method":"eth_chainId"},
		5,
		{"jsonrpc":"2.0","id":3,"method":"eth_accounts"}
	]`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []wireResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 3)

	require.JSONEq(t, `1`, string(resp[0].ID))
	require.JSONEq(t, `"eth_chainId"`, string(resp[0].Result))

	require.JSONEq(t, `null`, string(resp[1].ID))
	require.Equal(t, structs.CodeInvalidRequest, resp[1].Error.Code)

	require.JSONEq(t, `3`, string(resp[2].ID))
	require.JSONEq(t, `"eth_accounts"`, string(resp[2].Result))
}

func TestBatchNotifications(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := mocks.NewMockSender(ctrl)
	s.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(echo).Times(3)

	a := api.NewApi(logger, s, nil, nil, TestMaxBatch, TestMaxBody)
	w := serve(t, a, http.MethodPost, `[
		{"jsonrpc":"2.0","method":"eth_chainId"},
		{"jsonrpc":"2.0","id":null,"method":"net_version"},
		{"jsonrpc":"2.0","id":"x","method":"eth_accounts"}
	]`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []wireResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	require.JSONEq(t, `null`, string(resp[0].ID))
	require.JSONEq(t, `"net_version"`, string(resp[0].Result))
	require.JSONEq(t, `"x"`, string(resp[1].ID))
	require.JSONEq(t, `"eth_accounts"`, string(resp[1].Result))
}

func TestNotificationsOnly(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := mocks.NewMockSender(ctrl)
	s.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(echo).Times(3)

	a := api.NewApi(logger, s, nil, nil, TestMaxBatch, TestMaxBody)

	w := serve(t, a, http.MethodPost, `[
		{"jsonrpc":"2.0","method":"eth_chainId"},
		{"jsonrpc":"2.0","method":"net_version"}
	]`)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.Bytes())

	w = serve(t, a, http.MethodPost, `{"jsonrpc":"2.0","method":"eth_chainId"}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.Bytes())
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := mocks.NewMockSender(ctrl)
	lim := mocks.NewMockRateLimitter(ctrl)
	lim.EXPECT().Allow(gomock.Any(), "192.0.2.1").Return(api.ErrTooManyCalls)

	a := api.NewApi(logger, s, lim, nil, TestMaxBatch, TestMaxBody)
	w := serve(t, a, http.MethodPost, `{"jsonrpc":"2.0","id":1,"method":"eth_chainId"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, structs.CodeLimitExceeded, resp.Error.Code)
}

func TestLimitter(t *testing.T) {
	t.Parallel()

	c, err := lru.New[string, *rate.Limiter](16)
	require.NoError(t, err)

	l := api.NewLimitter(1, 1, c)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "a"))
	require.ErrorIs(t, l.Allow(ctx, "a"), api.ErrTooManyCalls)
	require.NoError(t, l.Allow(ctx, "b"))

	require.NoError(t, l.OnConfigChange(structs.OldNew{Name: "RateLimit", New: 0}))
	require.Zero(t, c.Len())
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Allow(ctx, "a"))
	}

	require.Error(t, l.OnConfigChange(structs.OldNew{Name: "Burst", New: "10"}))
}

func TestMaxBatchReload(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := mocks.NewMockSender(ctrl)
	s.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(echo).Times(4)

	a := api.NewApi(logger, s, nil, nil, TestMaxBatch, TestMaxBody)
	body := `[{"id":1,"method":"a"},{"id":2,"method":"b"},{"id":3,"method":"c"},{"id":4,"method":"d"}]`

	require.Equal(t, http.StatusBadRequest, serve(t, a, http.MethodPost, body).Code)

	require.NoError(t, a.OnConfigChange(structs.OldNew{Name: "MaxBatchSize", New: 10}))
	require.Equal(t, http.StatusOK, serve(t, a, http.MethodPost, body).Code)
}
