package gethrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/blocknative/walletprovider/node/client"
	"github.com/blocknative/walletprovider/structs"
)

type Client struct {
	address string
	client  *rpc.Client
}

func NewClient(address string) *Client {
	return &Client{address: address}
}

func (c *Client) Dial(ctx context.Context) (err error) {
	c.client, err = rpc.DialContext(ctx, c.address)
	return err
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) Kind() string {
	return "rpc"
}

func (c *Client) ID() string {
	return c.address
}

func (c *Client) Call(ctx context.Context, req structs.Request) (resp structs.Response, err error) {
	if c.client == nil {
		return resp, client.ErrNotFound
	}

	var result json.RawMessage
	if err = c.client.CallContext(ctx, &result, req.Method, req.Params...); err != nil {
		if rerr := asRPCError(err); rerr != nil {
			return structs.NewErrorResponse(req.ID, rerr), nil
		}
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		return resp, fmt.Errorf("%w: %s", client.ErrConnectionFailure, err.Error())
	}

	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return structs.Response{ID: req.ID, VersionTag: structs.Version, Result: result}, nil
}

// asRPCError extracts the error object a node answered with. It returns nil
// for transport level failures.
func asRPCError(err error) *structs.RPCError {
	var coded rpc.Error
	if !errors.As(err, &coded) {
		return nil
	}

	rerr := &structs.RPCError{Code: coded.ErrorCode(), Message: err.Error()}

	var derr rpc.DataError
	if errors.As(err, &derr) && derr.ErrorData() != nil {
		if b, merr := json.Marshal(derr.ErrorData()); merr == nil {
			rerr.Data = b
		}
	}
	return rerr
}
