package structs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TxTypeDynamicFee is the EIP-1559 fee market transaction type.
const TxTypeDynamicFee = "0x02"

var ErrInvalidChainID = errors.New("invalid chain id")

// TxParams carries transaction parameters as they travel through the wallet
// middleware. Every quantity is a hex string and an empty string means the
// field was not supplied.
type TxParams struct {
	From                 string          `json:"from"`
	To                   string          `json:"to,omitempty"`
	Value                string          `json:"value,omitempty"`
	Data                 string          `json:"data,omitempty"`
	Input                string          `json:"input,omitempty"`
	Nonce                string          `json:"nonce,omitempty"`
	Gas                  string          `json:"gas,omitempty"`
	GasLimit             string          `json:"gasLimit,omitempty"`
	GasPrice             string          `json:"gasPrice,omitempty"`
	MaxFeePerGas         string          `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string          `json:"maxPriorityFeePerGas,omitempty"`
	Type                 string          `json:"type,omitempty"`
	AccessList           json.RawMessage `json:"accessList,omitempty"`
	ChainID              ChainID         `json:"chainId,omitempty"`
}

func (tx TxParams) Loggable() map[string]any {
	return map[string]any{
		"from":  tx.From,
		"to":    tx.To,
		"nonce": tx.Nonce,
		"type":  tx.Type,
	}
}

// Payload returns the call data regardless of which of the two field names
// the caller used.
func (tx TxParams) Payload() string {
	if tx.Data != "" {
		return tx.Data
	}
	return tx.Input
}

// GasCap returns the gas limit the transaction will be signed with. An
// explicit gasLimit wins over gas.
func (tx TxParams) GasCap() string {
	if tx.GasLimit != "" {
		return tx.GasLimit
	}
	return tx.Gas
}

// ChainID is a chain identifier that decodes from either a JSON number or a
// hex quantity string and always encodes as a hex quantity, the form nodes
// accept in transaction objects.
type ChainID uint64

func (c *ChainID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*c = 0
			return nil
		}
		v, err := hexutil.DecodeUint64(s)
		if err != nil {
			// some clients send decimal strings
			d, derr := strconv.ParseUint(s, 10, 64)
			if derr != nil {
				return fmt.Errorf("%w: %s", ErrInvalidChainID, s)
			}
			v = d
		}
		*c = ChainID(v)
		return nil
	}

	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidChainID, string(b))
	}
	*c = ChainID(v)
	return nil
}

func (c ChainID) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.EncodeUint64(uint64(c)))
}

// SignedTx is the envelope returned by eth_signTransaction.
type SignedTx struct {
	Raw string   `json:"raw"`
	Tx  TxParams `json:"tx"`
}

// TransactionReady is published right before a transaction is handed to the
// signer so that a confirmation UI can show what is about to be signed.
type TransactionReady struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	MaxFee  string  `json:"maxFee"`
	Value   string  `json:"value"`
	ChainID ChainID `json:"chainId"`
}
