package wallet

import (
	"context"

	"github.com/lthibault/log"

	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/structs"
)

// Completer fills the transaction fields a caller left out by asking the rest
// of the chain. Sub-requests run one after another in a fixed order and the
// first failure aborts completion.
type Completer struct {
	d provider.Dispatcher
	l log.Logger
}

func NewCompleter(l log.Logger, d provider.Dispatcher) *Completer {
	return &Completer{
		d: d,
		l: l.WithField("module", "completer"),
	}
}

// Complete returns partial with every missing field filled. Supplied fields
// are never overwritten.
func (c *Completer) Complete(ctx context.Context, partial structs.TxParams) (structs.TxParams, error) {
	tx := partial

	if tx.Type == "" {
		tx.Type = structs.TxTypeDynamicFee
	}

	if tx.GasLimit == "" {
		tx.GasLimit = partial.Gas
	}

	if tx.GasPrice == "" {
		price, err := c.call(ctx, "eth_gasPrice")
		if err != nil {
			return partial, err
		}
		tx.GasPrice = price
	}

	if tx.Nonce == "" {
		nonce, err := c.call(ctx, "eth_getTransactionCount", partial.From, "pending")
		if err != nil {
			return partial, err
		}
		tx.Nonce = nonce
	}

	if tx.Gas == "" {
		gas, err := c.call(ctx, "eth_estimateGas", estimateArgs(tx))
		if err != nil {
			return partial, err
		}
		tx.Gas = gas
	}

	if tx.GasLimit == "" {
		tx.GasLimit = tx.Gas
	}

	c.l.With(tx).Debug("transaction completed")
	return tx, nil
}

func (c *Completer) call(ctx context.Context, method string, params ...any) (string, error) {
	if params == nil {
		params = []any{}
	}
	resp, err := c.d.Dispatch(ctx, structs.Request{Method: method, Params: params})
	if err != nil {
		return "", err
	}
	return resp.ResultString()
}

// estimateArgs drops the fields nodes reject in eth_estimateGas. gasPrice is
// left out when fee market caps were supplied since nodes refuse both.
func estimateArgs(tx structs.TxParams) structs.TxParams {
	args := tx
	args.GasLimit = ""
	if args.MaxFeePerGas != "" || args.MaxPriorityFeePerGas != "" {
		args.GasPrice = ""
	}
	return args
}
