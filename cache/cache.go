// Package cache answers permanently cacheable node requests from memory.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lthibault/log"
	"github.com/prometheus/client_golang/prometheus"
	uberatomic "go.uber.org/atomic"

	"github.com/blocknative/walletprovider/metrics"
	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/structs"
)

const blockHashLen = 66

type entry struct {
	result  json.RawMessage
	expires time.Time
}

// Cache wraps the terminal handler and remembers the results of requests
// whose answer can never change.
type Cache struct {
	next provider.Handler
	c    *lru.Cache[string, entry]
	ttl  *uberatomic.Duration

	l log.Logger
	m Metrics
}

func NewCache(l log.Logger, next provider.Handler, size int, ttl time.Duration) (*Cache, error) {
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}

	ca := &Cache{
		next: next,
		c:    c,
		ttl:  uberatomic.NewDuration(ttl),
		l:    l.WithField("module", "cache"),
	}
	ca.initMetrics()
	return ca, nil
}

func (ca *Cache) HandleRequest(ctx context.Context, req structs.Request) provider.Outcome {
	if !Cacheable(req) {
		return ca.next.HandleRequest(ctx, req)
	}

	key, err := cacheKey(req)
	if err != nil {
		return ca.next.HandleRequest(ctx, req)
	}

	if e, ok := ca.c.Get(key); ok {
		if time.Now().Before(e.expires) {
			ca.m.Lookups.WithLabelValues(req.Method, "hit").Inc()
			return provider.End(e.result)
		}
		ca.c.Remove(key)
	}
	ca.m.Lookups.WithLabelValues(req.Method, "miss").Inc()

	out := ca.next.HandleRequest(ctx, req)
	if !out.Answered() || out.Err() != nil {
		return out
	}

	result, err := rawResult(out.Result())
	if err != nil {
		ca.l.With(req).WithError(err).Debug("result not cacheable")
		return out
	}

	if CacheableResult(req, result) {
		ca.c.Add(key, entry{result: result, expires: time.Now().Add(ca.ttl.Load())})
	}
	return out
}

func (ca *Cache) Len() int {
	return ca.c.Len()
}

func (ca *Cache) Purge() {
	ca.c.Purge()
}

// OnConfigChange applies a new entry lifetime to entries stored from now on.
func (ca *Cache) OnConfigChange(c structs.OldNew) error {
	if c.Name != "TTL" {
		return nil
	}
	ttl, ok := c.New.(time.Duration)
	if !ok {
		return fmt.Errorf("unexpected type %T for %s", c.New, c.Name)
	}
	ca.ttl.Store(ttl)
	return nil
}

// Cacheable reports whether the result of req can be kept forever.
func Cacheable(req structs.Request) bool {
	switch req.Method {
	case "eth_chainId", "net_version", "web3_clientVersion",
		"eth_getBlockByHash", "eth_getTransactionByHash", "eth_getTransactionReceipt":
		return true
	case "eth_getCode":
		block, ok := req.StringParam(1)
		return ok && len(block) == blockHashLen
	}
	return false
}

// CacheableResult rejects results that are still expected to change, such as
// pending transactions and missing receipts.
func CacheableResult(req structs.Request, result json.RawMessage) bool {
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return false
	}

	if req.Method == "eth_getTransactionByHash" {
		var tx struct {
			BlockHash *string `json:"blockHash"`
		}
		if err := json.Unmarshal(result, &tx); err != nil || tx.BlockHash == nil {
			return false
		}
	}
	return true
}

func cacheKey(req structs.Request) (string, error) {
	params, err := json.Marshal(req.Params)
	if err != nil {
		return "", err
	}
	return req.Method + ":" + string(params), nil
}

func rawResult(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}

type Metrics struct {
	Lookups *prometheus.CounterVec
}

func (ca *Cache) initMetrics() {
	ca.m.Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletprovider",
		Subsystem: "cache",
		Name:      "lookups",
		Help:      "Cache lookups per method and outcome.",
	}, []string{"method", "result"})
}

func (ca *Cache) AttachMetrics(m *metrics.Metrics) {
	m.Register(ca.m.Lookups)
}
