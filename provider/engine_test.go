package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/lthibault/log"
	"github.com/stretchr/testify/require"

	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/structs"
)

var logger = log.New(log.WithWriter(io.Discard))

func answer(method string, result any) provider.Handler {
	return provider.HandlerFunc(func(_ context.Context, req structs.Request) provider.Outcome {
		if req.Method != method {
			return provider.Next()
		}
		return provider.End(result)
	})
}

func TestEngineOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	record := func(name string) provider.Handler {
		return provider.HandlerFunc(func(_ context.Context, _ structs.Request) provider.Outcome {
			calls = append(calls, name)
			return provider.Next()
		})
	}

	e := provider.NewEngine(logger)
	require.NoError(t, e.AddHandler(record("first")))
	require.NoError(t, e.AddHandler(record("second")))
	require.NoError(t, e.AddHandler(answer("net_version", "1")))
	require.NoError(t, e.AddHandler(record("never")))

	resp, err := e.Send(context.Background(), provider.NormalizePayload(structs.Request{Method: "net_version"}))
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, calls)
	require.JSONEq(t, `"1"`, string(resp.Result))
	require.Nil(t, resp.Error)
}

func TestEngineUnhandled(t *testing.T) {
	t.Parallel()

	e := provider.NewEngine(logger)
	require.NoError(t, e.AddHandler(answer("eth_accounts", []string{})))

	resp, err := e.Send(context.Background(), structs.Request{ID: 7, Method: "net_version"})
	require.ErrorIs(t, err, provider.ErrUnhandled)
	require.EqualValues(t, 7, resp.ID)
	require.Equal(t, structs.CodeMethodNotFound, resp.Error.Code)
}

func TestEngineModifiedRequest(t *testing.T) {
	t.Parallel()

	e := provider.NewEngine(logger)
	require.NoError(t, e.AddHandler(provider.HandlerFunc(func(_ context.Context, req structs.Request) provider.Outcome {
		req.Params = append(req.Params, "latest")
		return provider.NextWith(req)
	})))
	require.NoError(t, e.AddHandler(provider.HandlerFunc(func(_ context.Context, req structs.Request) provider.Outcome {
		return provider.End(req.Params)
	})))

	resp, err := e.Send(context.Background(), structs.Request{ID: 3, Method: "eth_getBalance", Params: []any{"0xabc"}})
	require.NoError(t, err)
	require.EqualValues(t, 3, resp.ID)
	require.JSONEq(t, `["0xabc","latest"]`, string(resp.Result))
}

func TestEngineErrorKeepsIdentity(t *testing.T) {
	t.Parallel()

	errDevice := errors.New("device rejected")
	e := provider.NewEngine(logger)
	require.NoError(t, e.AddHandler(provider.HandlerFunc(func(_ context.Context, _ structs.Request) provider.Outcome {
		return provider.EndWithError(errDevice)
	})))

	resp, err := e.Dispatch(context.Background(), structs.Request{Method: "eth_sign"})
	require.ErrorIs(t, err, errDevice)

	var derr *provider.DispatchError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, "eth_sign", derr.Method)
	require.Equal(t, structs.CodeServerError, resp.Error.Code)
	require.Empty(t, resp.Result)
}

func TestEngineSealed(t *testing.T) {
	t.Parallel()

	e := provider.NewEngine(logger)
	require.ErrorIs(t, e.AddHandler(nil), provider.ErrNilHandler)
	require.NoError(t, e.AddHandler(answer("net_version", "1")))

	_, err := e.Send(context.Background(), structs.Request{Method: "net_version"})
	require.NoError(t, err)
	require.ErrorIs(t, e.AddHandler(answer("eth_chainId", "0x1")), provider.ErrEngineSealed)
	require.Equal(t, 1, e.Len())
}

func TestEngineReentrantDispatch(t *testing.T) {
	t.Parallel()

	e := provider.NewEngine(logger)
	// outer handler asks the same chain for the gas price before answering
	require.NoError(t, e.AddHandler(provider.HandlerFunc(func(ctx context.Context, req structs.Request) provider.Outcome {
		if req.Method != "outer" {
			return provider.Next()
		}
		resp, err := e.Dispatch(ctx, structs.Request{Method: "eth_gasPrice"})
		if err != nil {
			return provider.EndWithError(err)
		}
		var price string
		if err := resp.DecodeResult(&price); err != nil {
			return provider.EndWithError(err)
		}
		return provider.End("price:" + price)
	})))
	require.NoError(t, e.AddHandler(answer("eth_gasPrice", "0x3b9aca00")))

	var wg sync.WaitGroup
	results := make([]string, 16)
	errs := make([]error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := e.Dispatch(context.Background(), structs.Request{Method: "outer"})
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = json.Unmarshal(resp.Result, &results[i])
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "price:0x3b9aca00", results[i])
	}
}

func TestEndWithResponse(t *testing.T) {
	t.Parallel()

	rerr := &structs.RPCError{Code: -32000, Message: "nonce too low"}
	out := provider.EndWithResponse(structs.Response{ID: 1, Error: rerr})
	require.True(t, out.Answered())
	require.Equal(t, rerr, out.Err())

	out = provider.EndWithResponse(structs.Response{ID: 1, Result: json.RawMessage(`"0x1"`)})
	require.NoError(t, out.Err())
	require.Equal(t, json.RawMessage(`"0x1"`), out.Result())
}
