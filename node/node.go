// Package node connects the handler chain to Ethereum nodes.
package node

import (
	"context"
	"fmt"

	"github.com/lthibault/log"

	"github.com/blocknative/walletprovider/node/client/fallback"
	"github.com/blocknative/walletprovider/node/client/transport/gethhttp"
	"github.com/blocknative/walletprovider/node/client/transport/gethrpc"
	"github.com/blocknative/walletprovider/node/client/transport/gethws"
)

type Manager struct {
	fb *fallback.Fallback
	l  log.Logger

	ws *gethws.ReConn
}

func NewManager(l log.Logger, fb *fallback.Fallback) (m *Manager) {
	return &Manager{
		l:  l.WithField("module", "nodeManager"),
		fb: fb,
	}
}

func (m *Manager) AddRPCClient(ctx context.Context, address string) error {
	cli := gethrpc.NewClient(address)
	if err := cli.Dial(ctx); err != nil {
		return fmt.Errorf("fail to initialize rpc connection (%s): %w", address, err)
	}
	m.fb.AddClient(cli)
	return nil
}

// AddWsClient keeps a websocket connection to address until ctx is done. All
// websocket connections are served by a single round robin client.
func (m *Manager) AddWsClient(ctx context.Context, address string, retry bool) {
	if m.ws == nil {
		m.ws = gethws.NewReConn(m.l)
		m.fb.AddClient(gethws.NewClient(m.ws, "ws", retry, m.l))
	}
	go m.ws.KeepConnection(ctx, address)
}

func (m *Manager) AddHTTPClient(address string) {
	m.fb.AddClient(gethhttp.NewClient(address, m.l))
}
