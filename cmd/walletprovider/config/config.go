package config

import (
	"errors"
	"sync"
	"time"

	"github.com/blocknative/walletprovider/structs"
)

const (
	SignerHD     = "hd"
	SignerRemote = "remote"

	JournalNone     = "none"
	JournalBadger   = "badger"
	JournalRedis    = "redis"
	JournalPostgres = "postgres"
)

// Config holds every tunable of the provider. Each section maps onto an ini
// section of the same name, each field onto a key.
type Config struct {
	ExternalHttp *HTTPConfig    `config:"external_http"`
	InternalHttp *HTTPConfig    `config:"internal_http"`
	Wallet       *WalletConfig  `config:"wallet"`
	Node         *NodeConfig    `config:"node"`
	Cache        *CacheConfig   `config:"cache"`
	Api          *ApiConfig     `config:"api"`
	Journal      *JournalConfig `config:"journal"`
	Notify       *NotifyConfig  `config:"notify"`
}

type HTTPConfig struct {
	Address      string        `config:"address"`
	ReadTimeout  time.Duration `config:"read_timeout"`
	WriteTimeout time.Duration `config:"write_timeout"`
	IdleTimeout  time.Duration `config:"idle_timeout"`

	*Subscribers
}

var DefaultHTTPConfig = HTTPConfig{
	ReadTimeout:  5 * time.Second,
	WriteTimeout: 30 * time.Second,
	IdleTimeout:  5 * time.Second,
}

type WalletConfig struct {
	// Signer selects the signing authority, hd or remote.
	Signer          string        `config:"signer"`
	RemoteSignerURL string        `config:"remote_signer_url"`
	SignerTimeout   time.Duration `config:"signer_timeout"`
	ChainID         uint64        `config:"chain_id"`
	BasePath        string        `config:"base_path"`
	NumAddresses    int           `config:"num_addresses"`
	DisabledMethods []string      `config:"disabled_methods"`

	*Subscribers
}

var DefaultWalletConfig = WalletConfig{
	Signer:        SignerHD,
	SignerTimeout: time.Minute,
	ChainID:       1,
	BasePath:      "44'/60'/0'/0",
	NumAddresses:  10,
}

type NodeConfig struct {
	RPCURL    string        `config:"rpc_url"`
	WsURLs    []string      `config:"ws_urls"`
	HTTPURL   string        `config:"http_url"`
	WsRetry   bool          `config:"ws_retry"`
	Timeout   time.Duration `config:"timeout"`
	WsTimeout time.Duration `config:"ws_timeout"`

	*Subscribers
}

var DefaultNodeConfig = NodeConfig{
	WsRetry:   true,
	Timeout:   10 * time.Second,
	WsTimeout: 5 * time.Second,
}

type CacheConfig struct {
	Enabled bool          `config:"enabled"`
	Size    int           `config:"size"`
	TTL     time.Duration `config:"ttl"`

	*Subscribers
}

var DefaultCacheConfig = CacheConfig{
	Enabled: true,
	Size:    10_000,
	TTL:     time.Hour,
}

type ApiConfig struct {
	RateLimit        int   `config:"rate_limit"`
	Burst            int   `config:"burst"`
	LimiterCacheSize int   `config:"limiter_cache_size"`
	MaxBatchSize     int   `config:"max_batch_size"`
	MaxBodySize      int64 `config:"max_body_size"`

	*Subscribers
}

var DefaultApiConfig = ApiConfig{
	RateLimit:        50,
	Burst:            100,
	LimiterCacheSize: 1_000,
	MaxBatchSize:     100,
	MaxBodySize:      5 << 20,
}

type JournalConfig struct {
	Backend     string        `config:"backend"`
	Dir         string        `config:"dir"`
	RedisURI    string        `config:"redis_uri"`
	PostgresURL string        `config:"postgres_url"`
	TTL         time.Duration `config:"ttl"`

	*Subscribers
}

var DefaultJournalConfig = JournalConfig{
	Backend: JournalNone,
	Dir:     "/data/walletprovider",
	TTL:     30 * 24 * time.Hour,
}

type NotifyConfig struct {
	QueueSize      int           `config:"queue_size"`
	SSE            bool          `config:"sse"`
	RedisURI       string        `config:"redis_uri"`
	PublishTimeout time.Duration `config:"publish_timeout"`

	*Subscribers
}

var DefaultNotifyConfig = NotifyConfig{
	QueueSize:      1_000,
	SSE:            true,
	PublishTimeout: time.Second,
}

// Subscribers holds the listeners of a single section.
type Subscribers struct {
	mu        sync.Mutex
	listeners []structs.ConfigChangeListener
}

func (s *Subscribers) SubscribeForUpdates(l structs.ConfigChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Propagate hands a changed value to every listener of the section.
func (s *Subscribers) Propagate(c structs.OldNew) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	listeners := append([]structs.ConfigChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	var errs []error
	for _, l := range listeners {
		if err := l.OnConfigChange(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func DefaultConfig() *Config {
	c := &Config{
		ExternalHttp: section(DefaultHTTPConfig),
		InternalHttp: section(DefaultHTTPConfig),
		Wallet:       section(DefaultWalletConfig),
		Node:         section(DefaultNodeConfig),
		Cache:        section(DefaultCacheConfig),
		Api:          section(DefaultApiConfig),
		Journal:      section(DefaultJournalConfig),
		Notify:       section(DefaultNotifyConfig),
	}
	c.ExternalHttp.Address = "0.0.0.0:8545"
	c.InternalHttp.Address = "0.0.0.0:19545"
	c.ExternalHttp.Subscribers = &Subscribers{}
	c.InternalHttp.Subscribers = &Subscribers{}
	c.Wallet.Subscribers = &Subscribers{}
	c.Node.Subscribers = &Subscribers{}
	c.Cache.Subscribers = &Subscribers{}
	c.Api.Subscribers = &Subscribers{}
	c.Journal.Subscribers = &Subscribers{}
	c.Notify.Subscribers = &Subscribers{}
	return c
}

func section[T any](v T) *T {
	return &v
}
