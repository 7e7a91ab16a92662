package main

import (
	"github.com/urfave/cli/v2"

	"github.com/blocknative/walletprovider/cmd/walletprovider/config"
)

func env(name string) []string {
	return []string{"WALLETPROVIDER_" + name}
}

var (
	flagConfig = &cli.StringFlag{
		Name:    "config",
		Usage:   "path to the ini configuration file, reloaded on SIGHUP",
		EnvVars: env("CONFIG"),
	}
	flagLogLevel = &cli.StringFlag{
		Name:    "loglvl",
		Usage:   "logging level: trace, debug, info, warn, error or fatal",
		Value:   "info",
		EnvVars: env("LOG_LEVEL"),
	}
	flagLogFormat = &cli.StringFlag{
		Name:    "logfmt",
		Usage:   "format logs as text, json or none",
		Value:   "text",
		EnvVars: env("LOG_FORMAT"),
	}
	flagAddr = &cli.StringFlag{
		Name:    "addr",
		Usage:   "JSON-RPC server listen address",
		Value:   "0.0.0.0:8545",
		EnvVars: env("ADDR"),
	}
	flagInternalAddr = &cli.StringFlag{
		Name:    "internal-addr",
		Usage:   "operator server listen address (status, metrics, profiling)",
		Value:   "0.0.0.0:19545",
		EnvVars: env("INTERNAL_ADDR"),
	}
	flagNodeRPC = &cli.StringFlag{
		Name:    "node-rpc",
		Usage:   "node endpoint dialed with the go-ethereum rpc client (http, ws or ipc)",
		EnvVars: env("NODE_RPC"),
	}
	flagNodeWs = &cli.StringSliceFlag{
		Name:    "node-ws",
		Usage:   "node websocket endpoints served round robin",
		EnvVars: env("NODE_WS"),
	}
	flagNodeHTTP = &cli.StringFlag{
		Name:    "node-http",
		Usage:   "node http endpoint used as the last fallback",
		EnvVars: env("NODE_HTTP"),
	}
	flagSigner = &cli.StringFlag{
		Name:    "signer",
		Usage:   "signing authority: hd or remote",
		Value:   config.SignerHD,
		EnvVars: env("SIGNER"),
	}
	flagMnemonic = &cli.StringFlag{
		Name:    "mnemonic",
		Usage:   "BIP-39 mnemonic of the hd signer",
		EnvVars: env("MNEMONIC"),
	}
	flagPassphrase = &cli.StringFlag{
		Name:    "passphrase",
		Usage:   "optional BIP-39 passphrase of the hd signer",
		EnvVars: env("PASSPHRASE"),
	}
	flagRemoteSigner = &cli.StringFlag{
		Name:    "remote-signer-url",
		Usage:   "endpoint of an external signer speaking the account_* API",
		EnvVars: env("REMOTE_SIGNER_URL"),
	}
	flagChainID = &cli.Uint64Flag{
		Name:    "chain-id",
		Usage:   "chain id used for transactions that do not carry one",
		Value:   config.DefaultWalletConfig.ChainID,
		EnvVars: env("CHAIN_ID"),
	}
	flagDisableMethod = &cli.StringSliceFlag{
		Name:    "disable-method",
		Usage:   "wallet method to refuse with METHOD_NOT_SUPPORTED",
		EnvVars: env("DISABLE_METHOD"),
	}
	flagJournal = &cli.StringFlag{
		Name:    "journal",
		Usage:   "journal backend: none, badger, redis or postgres",
		Value:   config.JournalNone,
		EnvVars: env("JOURNAL"),
	}
	flagDatadir = &cli.StringFlag{
		Name:    "datadir",
		Usage:   "directory of the badger journal",
		Value:   config.DefaultJournalConfig.Dir,
		EnvVars: env("DATADIR"),
	}
	flagJournalRedis = &cli.StringFlag{
		Name:    "journal-redis-uri",
		Usage:   "redis address of the redis journal",
		EnvVars: env("JOURNAL_REDIS_URI"),
	}
	flagJournalPostgres = &cli.StringFlag{
		Name:    "journal-postgres-url",
		Usage:   "database url of the postgres journal",
		EnvVars: env("JOURNAL_POSTGRES_URL"),
	}
	flagNotifyRedis = &cli.StringFlag{
		Name:    "notify-redis-uri",
		Usage:   "redis address used to share notifications between instances",
		EnvVars: env("NOTIFY_REDIS_URI"),
	}
)

var flags = []cli.Flag{
	flagConfig,
	flagLogLevel,
	flagLogFormat,
	flagAddr,
	flagInternalAddr,
	flagNodeRPC,
	flagNodeWs,
	flagNodeHTTP,
	flagSigner,
	flagMnemonic,
	flagPassphrase,
	flagRemoteSigner,
	flagChainID,
	flagDisableMethod,
	flagJournal,
	flagDatadir,
	flagJournalRedis,
	flagJournalPostgres,
	flagNotifyRedis,
}

// applyFlags overrides the configuration with every flag set explicitly on
// the command line or through the environment.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet(flagAddr.Name) {
		cfg.ExternalHttp.Address = c.String(flagAddr.Name)
	}
	if c.IsSet(flagInternalAddr.Name) {
		cfg.InternalHttp.Address = c.String(flagInternalAddr.Name)
	}
	if c.IsSet(flagNodeRPC.Name) {
		cfg.Node.RPCURL = c.String(flagNodeRPC.Name)
	}
	if c.IsSet(flagNodeWs.Name) {
		cfg.Node.WsURLs = c.StringSlice(flagNodeWs.Name)
	}
	if c.IsSet(flagNodeHTTP.Name) {
		cfg.Node.HTTPURL = c.String(flagNodeHTTP.Name)
	}
	if c.IsSet(flagSigner.Name) {
		cfg.Wallet.Signer = c.String(flagSigner.Name)
	}
	if c.IsSet(flagRemoteSigner.Name) {
		cfg.Wallet.RemoteSignerURL = c.String(flagRemoteSigner.Name)
	}
	if c.IsSet(flagChainID.Name) {
		cfg.Wallet.ChainID = c.Uint64(flagChainID.Name)
	}
	if c.IsSet(flagDisableMethod.Name) {
		cfg.Wallet.DisabledMethods = c.StringSlice(flagDisableMethod.Name)
	}
	if c.IsSet(flagJournal.Name) {
		cfg.Journal.Backend = c.String(flagJournal.Name)
	}
	if c.IsSet(flagDatadir.Name) {
		cfg.Journal.Dir = c.String(flagDatadir.Name)
	}
	if c.IsSet(flagJournalRedis.Name) {
		cfg.Journal.RedisURI = c.String(flagJournalRedis.Name)
	}
	if c.IsSet(flagJournalPostgres.Name) {
		cfg.Journal.PostgresURL = c.String(flagJournalPostgres.Name)
	}
	if c.IsSet(flagNotifyRedis.Name) {
		cfg.Notify.RedisURI = c.String(flagNotifyRedis.Name)
	}
}
