package gethws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lthibault/log"

	"github.com/blocknative/walletprovider/node/client"
	"github.com/blocknative/walletprovider/structs"
)

type Connectionner interface {
	Get() (*Conn, uint32, error)
	TryOtherThan(uint32) (*Conn, error)
}

type Client struct {
	nodeConn           Connectionner
	id                 string
	tryOtherConnection bool
	l                  log.Logger
}

func NewClient(nodeConn Connectionner, id string, try bool, l log.Logger) *Client {
	return &Client{
		nodeConn:           nodeConn,
		id:                 id,
		tryOtherConnection: try,
		l:                  l.WithField("module", "gethws"),
	}
}

func (c *Client) Kind() string {
	return "ws"
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Call(ctx context.Context, req structs.Request) (resp structs.Response, err error) {
	if ctx.Err() != nil {
		return resp, ctx.Err()
	}

	conn, n, err := c.nodeConn.Get()
	if err != nil {
		return resp, client.ErrNotFound
	}

	params := req.Params
	if params == nil {
		params = []any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return resp, err
	}

	resp, err = c.trySend(ctx, conn, req.Method, raw)
	if c.tryOtherConnection && errors.Is(err, client.ErrConnectionFailure) {
		tConn, iErr := c.nodeConn.TryOtherThan(n)
		if iErr != nil {
			return resp, err
		}
		resp, err = c.trySend(ctx, tConn, req.Method, raw)
	}
	if err != nil {
		return resp, err
	}

	// ids on the socket are connection scoped
	resp.ID = req.ID
	return resp, nil
}

func (c *Client) trySend(ctx context.Context, conn *Conn, method string, params []byte) (resp structs.Response, err error) {
	if ctx.Err() != nil {
		return resp, ctx.Err()
	}

	resp, err = conn.RequestRPC(ctx, method, params)
	if err != nil {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		return resp, client.ErrConnectionFailure
	}
	return resp, nil
}
