//go:generate mockgen -destination=./mocks/mocks.go -package=mocks github.com/blocknative/walletprovider/wallet Signer,Observer,Journal

package wallet

import (
	"context"
	"encoding/json"

	"github.com/blocknative/walletprovider/structs"
)

// Signer is the external signing authority, a hardware device bridge or a
// key hierarchy held elsewhere.
type Signer interface {
	Accounts(ctx context.Context) ([]string, error)
	SignTransaction(ctx context.Context, tx structs.TxParams) (raw string, err error)
	SignPersonalMessage(ctx context.Context, data, address string) (signature string, err error)
	SignTypedData(ctx context.Context, address string, typedData json.RawMessage) (signature string, err error)
}

// Observer receives a notification right before a transaction is signed.
// Implementations must return quickly and never block.
type Observer interface {
	TransactionReady(ctx context.Context, ev structs.TransactionReady)
}

// Journal keeps a record of every transaction this wallet signed.
type Journal interface {
	Record(ctx context.Context, tx structs.SignedTx) error
}
