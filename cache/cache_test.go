package cache_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/lthibault/log"
	"github.com/stretchr/testify/require"

	"github.com/blocknative/walletprovider/cache"
	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/structs"
)

var logger = log.New(log.WithWriter(io.Discard))

const blockHash = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"

type counting struct {
	calls   map[string]int
	results map[string]json.RawMessage
}

func (c *counting) HandleRequest(_ context.Context, req structs.Request) provider.Outcome {
	c.calls[req.Method]++
	if r, ok := c.results[req.Method]; ok {
		return provider.End(r)
	}
	return provider.EndWithError(&structs.RPCError{Code: -32000, Message: "boom"})
}

func newCounting() *counting {
	return &counting{
		calls: make(map[string]int),
		results: map[string]json.RawMessage{
			"eth_chainId":               json.RawMessage(`"0x1"`),
			"eth_blockNumber":           json.RawMessage(`"0x10"`),
			"eth_getTransactionReceipt": json.RawMessage(`null`),
			"eth_getTransactionByHash":  json.RawMessage(`{"hash":"0x1","blockHash":null}`),
			"eth_getCode":               json.RawMessage(`"0x6080"`),
		},
	}
}

func TestCacheHit(t *testing.T) {
	t.Parallel()

	next := newCounting()
	c, err := cache.NewCache(logger, next, 10, time.Minute)
	require.NoError(t, err)

	e := provider.NewEngine(logger)
	require.NoError(t, e.AddHandler(c))

	for i := 0; i < 3; i++ {
		resp, err := e.Dispatch(context.Background(), structs.Request{Method: "eth_chainId"})
		require.NoError(t, err)
		require.JSONEq(t, `"0x1"`, string(resp.Result))

		_, err = e.Dispatch(context.Background(), structs.Request{Method: "eth_blockNumber"})
		require.NoError(t, err)
	}

	require.Equal(t, 1, next.calls["eth_chainId"])
	require.Equal(t, 3, next.calls["eth_blockNumber"])
	require.Equal(t, 1, c.Len())
}

func TestCacheSkipsUnsettledResults(t *testing.T) {
	t.Parallel()

	next := newCounting()
	c, err := cache.NewCache(logger, next, 10, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		c.HandleRequest(ctx, structs.Request{Method: "eth_getTransactionReceipt", Params: []any{blockHash}})
		c.HandleRequest(ctx, structs.Request{Method: "eth_getTransactionByHash", Params: []any{blockHash}})
		c.HandleRequest(ctx, structs.Request{Method: "eth_getCode", Params: []any{"0x01", "latest"}})
		c.HandleRequest(ctx, structs.Request{Method: "web3_clientVersion"})
	}
	require.Equal(t, 2, next.calls["eth_getTransactionReceipt"])
	require.Equal(t, 2, next.calls["eth_getTransactionByHash"])
	require.Equal(t, 2, next.calls["eth_getCode"])
	require.Equal(t, 2, next.calls["web3_clientVersion"])

	c.HandleRequest(ctx, structs.Request{Method: "eth_getCode", Params: []any{"0x01", blockHash}})
	c.HandleRequest(ctx, structs.Request{Method: "eth_getCode", Params: []any{"0x01", blockHash}})
	require.Equal(t, 3, next.calls["eth_getCode"])
	require.Equal(t, 1, c.Len())
}

func TestCacheTTL(t *testing.T) {
	t.Parallel()

	next := newCounting()
	c, err := cache.NewCache(logger, next, 10, time.Minute)
	require.NoError(t, err)
	require.NoError(t, c.OnConfigChange(structs.OldNew{Name: "TTL", New: time.Duration(0)}))

	ctx := context.Background()
	c.HandleRequest(ctx, structs.Request{Method: "eth_chainId"})
	c.HandleRequest(ctx, structs.Request{Method: "eth_chainId"})
	require.Equal(t, 2, next.calls["eth_chainId"])

	require.Error(t, c.OnConfigChange(structs.OldNew{Name: "TTL", New: "1m"}))
}

func TestCacheable(t *testing.T) {
	t.Parallel()

	require.True(t, cache.Cacheable(structs.Request{Method: "net_version"}))
	require.False(t, cache.Cacheable(structs.Request{Method: "eth_sendRawTransaction"}))
	require.False(t, cache.Cacheable(structs.Request{Method: "eth_getCode", Params: []any{"0x01"}}))

	mined := json.RawMessage(`{"hash":"0x1","blockHash":"` + blockHash + `"}`)
	require.True(t, cache.CacheableResult(structs.Request{Method: "eth_getTransactionByHash"}, mined))
	require.False(t, cache.CacheableResult(structs.Request{Method: "eth_getBlockByHash"}, json.RawMessage("null")))
}
