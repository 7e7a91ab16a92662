package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lthibault/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/blocknative/walletprovider/api"
	"github.com/blocknative/walletprovider/api/inner"
	"github.com/blocknative/walletprovider/cache"
	"github.com/blocknative/walletprovider/cmd/walletprovider/config"
	fileS "github.com/blocknative/walletprovider/cmd/walletprovider/config/source/file"
	"github.com/blocknative/walletprovider/journal"
	trBadger "github.com/blocknative/walletprovider/journal/transport/badger"
	trPostgres "github.com/blocknative/walletprovider/journal/transport/postgres"
	dsRedis "github.com/blocknative/walletprovider/journal/transport/redis"
	"github.com/blocknative/walletprovider/metrics"
	"github.com/blocknative/walletprovider/node"
	"github.com/blocknative/walletprovider/node/client/fallback"
	"github.com/blocknative/walletprovider/notify"
	redisStream "github.com/blocknative/walletprovider/notify/transport/redis"
	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/signer/hd"
	"github.com/blocknative/walletprovider/signer/remote"
	"github.com/blocknative/walletprovider/wallet"
)

const (
	version          = "v0.1.0"
	shutdownTimeout  = 10 * time.Second
	journalSweepTick = time.Hour
)

func main() {
	app := cli.NewApp()
	app.Name = "walletprovider"
	app.Version = version
	app.Usage = "JSON-RPC provider with an embedded wallet"
	app.Description = "Answers account and signing methods locally and forwards everything else to Ethereum nodes"
	app.Flags = flags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	termSig := make(chan os.Signal, 2)
	signal.Notify(termSig, syscall.SIGTERM, syscall.SIGINT)
	go waitForSignal(cancel, termSig)

	reloadSig := make(chan os.Signal, 2)
	signal.Notify(reloadSig, syscall.SIGHUP)

	logger := newLogger(logOptions{
		level:  c.String(flagLogLevel.Name),
		format: c.String(flagLogFormat.Name),
	}, os.Stdout)

	cfg := config.NewConfigManager(fileS.NewSource(c.String(flagConfig.Name)))
	if c.String(flagConfig.Name) != "" {
		if err := cfg.Load(); err != nil {
			return fmt.Errorf("failed loading config file: %w", err)
		}
		go reloadConfigSignal(reloadSig, cfg, logger)
	}
	applyFlags(c, cfg.Config)

	m := metrics.NewMetrics()
	g, gctx := errgroup.WithContext(ctx)

	terminal, err := initNodes(gctx, logger, m, cfg.Config)
	if err != nil {
		return err
	}

	signer, err := initSigner(gctx, logger, c, cfg.Wallet)
	if err != nil {
		return err
	}

	j, closeJournal, err := initJournal(gctx, g, logger, m, cfg.Journal)
	if err != nil {
		return err
	}
	defer closeJournal()

	obs, events, closeNotify := initNotify(gctx, g, logger, m, cfg.Notify)
	defer closeNotify()

	enabled, err := wallet.NewEnabledMethods(cfg.Wallet.DisabledMethods...)
	if err != nil {
		return err
	}
	cfg.Wallet.SubscribeForUpdates(enabled)

	engine := provider.NewEngine(logger)
	engine.AttachMetrics(m)

	var walletJournal wallet.Journal
	if j != nil {
		walletJournal = j
	}
	w := wallet.NewWallet(logger, engine, signer, obs, walletJournal, enabled)
	w.AttachMetrics(m)

	if err := engine.AddHandler(w); err != nil {
		return err
	}
	if err := engine.AddHandler(terminal); err != nil {
		return err
	}

	limitterCache, err := lru.New[string, *rate.Limiter](cfg.Api.LimiterCacheSize)
	if err != nil {
		return err
	}
	apiLimitter := api.NewLimitter(cfg.Api.RateLimit, cfg.Api.Burst, limitterCache)
	cfg.Api.SubscribeForUpdates(apiLimitter)

	a := api.NewApi(logger, engine, apiLimitter, events, cfg.Api.MaxBatchSize, cfg.Api.MaxBodySize)
	a.AttachMetrics(m)
	cfg.Api.SubscribeForUpdates(a)

	externalMux := http.NewServeMux()
	a.AttachToHandler(externalMux)

	var innerJournal inner.Journal
	if j != nil {
		innerJournal = j
	}
	internalMux := http.NewServeMux()
	inner.NewAPI(enabled, innerJournal).AttachToHandler(internalMux)
	internalMux.Handle("/metrics", m.Handler())
	metrics.AttachProfiler(internalMux)

	servers := []*http.Server{
		newServer(cfg.ExternalHttp, externalMux),
		newServer(cfg.InternalHttp, internalMux),
	}
	// event streams never go idle, end them before waiting for connections
	if closer, ok := events.(interface{ Close() }); ok {
		servers[0].RegisterOnShutdown(closer.Close)
	}
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.WithField("addr", srv.Addr).Info("http server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		for _, srv := range servers {
			if err := srv.Shutdown(sctx); err != nil {
				logger.WithError(err).Warn("http server shutdown")
			}
		}
		return nil
	})

	logger.With(log.F{
		"signer":  cfg.Wallet.Signer,
		"journal": cfg.Journal.Backend,
		"chainId": cfg.Wallet.ChainID,
	}).Info("walletprovider started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("walletprovider stopped")
	return nil
}

func newServer(cfg *config.HTTPConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func initNodes(ctx context.Context, l log.Logger, m *metrics.Metrics, cfg *config.Config) (provider.Handler, error) {
	fb := fallback.NewFallback(l)
	fb.AttachMetrics(m)

	nm := node.NewManager(l, fb)
	if cfg.Node.RPCURL != "" {
		if err := nm.AddRPCClient(ctx, cfg.Node.RPCURL); err != nil {
			return nil, err
		}
	}
	for _, u := range cfg.Node.WsURLs {
		nm.AddWsClient(ctx, u, cfg.Node.WsRetry)
	}
	if cfg.Node.HTTPURL != "" {
		nm.AddHTTPClient(cfg.Node.HTTPURL)
	}
	if !fb.IsSet() {
		return nil, errors.New("no node endpoint configured")
	}

	h := node.NewHandler(l, fb, cfg.Node.Timeout)
	h.AttachMetrics(m)
	cfg.Node.SubscribeForUpdates(h)

	if !cfg.Cache.Enabled {
		return h, nil
	}

	ca, err := cache.NewCache(l, h, cfg.Cache.Size, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("fail to create cache: %w", err)
	}
	ca.AttachMetrics(m)
	cfg.Cache.SubscribeForUpdates(ca)
	return ca, nil
}

func initSigner(ctx context.Context, l log.Logger, c *cli.Context, cfg *config.WalletConfig) (wallet.Signer, error) {
	switch cfg.Signer {
	case config.SignerHD:
		s, err := hd.New(l, hd.Config{
			Mnemonic:     c.String(flagMnemonic.Name),
			Passphrase:   c.String(flagPassphrase.Name),
			BasePath:     cfg.BasePath,
			NumAddresses: cfg.NumAddresses,
			ChainID:      cfg.ChainID,
		})
		if err != nil {
			return nil, fmt.Errorf("fail to create hd signer: %w", err)
		}
		return s, nil

	case config.SignerRemote:
		s, err := remote.Dial(ctx, l, remote.Config{
			URL:     cfg.RemoteSignerURL,
			Timeout: cfg.SignerTimeout,
			ChainID: cfg.ChainID,
		})
		if err != nil {
			return nil, err
		}
		if v, err := s.Version(ctx); err != nil {
			l.WithError(err).Warn("remote signer did not report its version")
		} else {
			l.WithField("version", v).Info("remote signer connected")
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown signer %q", cfg.Signer)
}

func initJournal(ctx context.Context, g *errgroup.Group, l log.Logger, m *metrics.Metrics, cfg *config.JournalConfig) (*journal.Journal, func(), error) {
	var (
		storage journal.TTLStorage
		closer  = func() {}
	)

	switch cfg.Backend {
	case config.JournalNone, "":
		return nil, closer, nil

	case config.JournalBadger:
		badgerDs, err := trBadger.Open(cfg.Dir, l)
		if err != nil {
			return nil, closer, fmt.Errorf("failed to initialize datastore: %w", err)
		}
		if err := journal.InitBadgerMetrics(m); err != nil {
			l.WithError(err).Warn("failed to initialize datastore metrics")
		}
		storage = badgerDs
		closer = func() { badgerDs.Close() }

	case config.JournalRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		if err := m.RegisterRedis("redis", "journal", client); err != nil {
			l.WithError(err).Warn("failed to register redis metrics")
		}
		storage = &dsRedis.RedisDatastore{Read: client, Write: client}
		closer = func() { client.Close() }

	case config.JournalPostgres:
		if _, err := trPostgres.Migrate(cfg.PostgresURL, 0); err != nil {
			return nil, closer, fmt.Errorf("failed to migrate journal schema: %w", err)
		}
		db, err := trPostgres.Open(cfg.PostgresURL, 10, 10, 5*time.Minute)
		if err != nil {
			return nil, closer, err
		}
		if err := m.RegisterDB(db, "journal"); err != nil {
			l.WithError(err).Warn("failed to register database metrics")
		}
		pg := trPostgres.NewDatastore(db)
		g.Go(func() error {
			sweepJournal(ctx, l, pg)
			return nil
		})
		storage = pg
		closer = func() { db.Close() }

	default:
		return nil, closer, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}

	j := journal.NewJournal(l, storage, cfg.TTL)
	j.AttachMetrics(m)
	return j, closer, nil
}

func sweepJournal(ctx context.Context, l log.Logger, pg *trPostgres.Datastore) {
	ticker := time.NewTicker(journalSweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pg.RemoveExpired(ctx)
			if err != nil {
				l.WithError(err).Warn("failed to remove expired journal entries")
				continue
			}
			l.WithField("removed", n).Debug("journal swept")
		}
	}
}

func initNotify(ctx context.Context, g *errgroup.Group, l log.Logger, m *metrics.Metrics, cfg *config.NotifyConfig) (wallet.Observer, http.Handler, func()) {
	local := notify.Multi{notify.NewLogger(l)}

	var (
		events http.Handler
		sse    *notify.SSE
	)
	if cfg.SSE {
		sse = notify.NewSSE(l)
		local = append(local, sse)
		events = sse
	}

	out := notify.Multi{local}
	if cfg.RedisURI != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		if err := m.RegisterRedis("redis", "stream", client); err != nil {
			l.WithError(err).Warn("failed to register redis metrics")
		}

		st := notify.NewStream(l, &redisStream.Pubsub{Redis: client, Logger: l}, cfg.PublishTimeout)
		st.AttachMetrics(m)
		g.Go(func() error {
			if err := st.Run(ctx, local); err != nil && !errors.Is(err, context.Canceled) {
				l.WithError(err).Warn("notification stream stopped")
			}
			return nil
		})
		out = append(out, st)
	}

	async := notify.NewAsync(l, "wallet", out, cfg.QueueSize)
	async.AttachMetrics(m)

	return async, events, func() {
		async.Close()
		if sse != nil {
			sse.Close()
		}
	}
}

func waitForSignal(cancel context.CancelFunc, osSig chan os.Signal) {
	for range osSig {
		cancel()
		return
	}
}

func reloadConfigSignal(osSig chan os.Signal, cfg *config.ConfigManager, l log.Logger) {
	for range osSig {
		if err := cfg.Reload(); err != nil {
			l.WithError(err).Error("failed reloading config file")
			continue
		}
		l.Info("config reloaded")
	}
}
