//go:generate mockgen -destination=./mocks/mocks.go -package=mocks github.com/blocknative/walletprovider/node/client Client

package client

import (
	"context"

	"github.com/blocknative/walletprovider/structs"
)

// Client forwards JSON-RPC requests to an Ethereum node. A JSON-RPC error
// reported by the node is part of the response, the error return is reserved
// for transport failures.
type Client interface {
	Call(ctx context.Context, req structs.Request) (structs.Response, error)
	Kind() string
	ID() string
}
