package gethhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lthibault/log"

	"github.com/blocknative/walletprovider/node/client"
	"github.com/blocknative/walletprovider/structs"
)

const maxErrorBody = 1 << 10

type Client struct {
	address string
	client  *http.Client
	l       log.Logger
}

func NewClient(address string, l log.Logger) *Client {
	return &Client{
		address: address,
		client:  &http.Client{},
		l:       l.WithField("module", "gethhttp"),
	}
}

func (c *Client) Kind() string {
	return "http"
}

func (c *Client) ID() string {
	return c.address
}

func (c *Client) Call(ctx context.Context, rpcReq structs.Request) (resp structs.Response, err error) {
	buff := bytes.NewBuffer(nil)
	if err := json.NewEncoder(buff).Encode(rpcReq); err != nil {
		return resp, fmt.Errorf("fail to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address, buff)
	if err != nil {
		return resp, fmt.Errorf("invalid request for %s: %w", c.address, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		return resp, fmt.Errorf("%w: %s", client.ErrConnectionFailure, err.Error())
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusNotFound:
		return resp, client.ErrNotFound
	case httpResp.StatusCode >= http.StatusInternalServerError:
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		c.l.With(log.F{
			"status": httpResp.StatusCode,
			"body":   string(body),
		}).Debug("node responded with server error")
		return resp, fmt.Errorf("%w: status %d", client.ErrConnectionFailure, httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("could not unmarshal response from %s: %w", c.address, err)
	}

	if resp.Error == nil && len(resp.Result) == 0 {
		resp.Result = json.RawMessage("null")
	}
	return resp, nil
}
