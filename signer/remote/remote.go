// Package remote talks to an external signer speaking clef's account_* API.
// Keys never leave the signer process.
package remote

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lthibault/log"
	"github.com/pkg/errors"

	"github.com/blocknative/walletprovider/structs"
)

const contentTypeText = "text/plain"

var ErrNotConnected = errors.New("remote signer not connected")

type Config struct {
	URL     string
	Timeout time.Duration
	// ChainID signs transactions that do not carry one.
	ChainID uint64
}

type Signer struct {
	cfg    Config
	client *rpc.Client
	l      log.Logger
}

func Dial(ctx context.Context, l log.Logger, cfg Config) (*Signer, error) {
	client, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial remote signer %s", cfg.URL)
	}
	return NewSigner(l, client, cfg), nil
}

func NewSigner(l log.Logger, client *rpc.Client, cfg Config) *Signer {
	return &Signer{
		cfg:    cfg,
		client: client,
		l:      l.With(log.F{"module": "signer", "type": "remote", "url": cfg.URL}),
	}
}

func (s *Signer) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *Signer) call(ctx context.Context, result any, method string, args ...any) error {
	if s.client == nil {
		return ErrNotConnected
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	err := s.client.CallContext(ctx, result, method, args...)
	if err == nil {
		return nil
	}

	// errors reported by the signer keep their code and message
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return err
	}
	s.l.WithError(err).With(log.F{"method": method}).Warn("remote signer unreachable")
	return errors.Wrap(err, method)
}

func (s *Signer) Accounts(ctx context.Context) ([]string, error) {
	var addrs []common.Address
	if err := s.call(ctx, &addrs, "account_list"); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, strings.ToLower(a.Hex()))
	}
	return out, nil
}

// txArgs mirrors the transaction object the external signer expects. Every
// quantity is re-encoded without leading zeros.
type txArgs struct {
	From                 string          `json:"from"`
	To                   *string         `json:"to,omitempty"`
	Gas                  string          `json:"gas"`
	GasPrice             *string         `json:"gasPrice,omitempty"`
	MaxFeePerGas         *string         `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *string         `json:"maxPriorityFeePerGas,omitempty"`
	Value                string          `json:"value"`
	Nonce                string          `json:"nonce"`
	Data                 *string         `json:"data,omitempty"`
	AccessList           json.RawMessage `json:"accessList,omitempty"`
	ChainID              string          `json:"chainId"`
}

type signTxResult struct {
	Raw hexutil.Bytes   `json:"raw"`
	Tx  json.RawMessage `json:"tx"`
}

func (s *Signer) SignTransaction(ctx context.Context, tx structs.TxParams) (string, error) {
	args, err := s.toArgs(tx)
	if err != nil {
		return "", err
	}

	var res signTxResult
	if err := s.call(ctx, &res, "account_signTransaction", args); err != nil {
		return "", err
	}
	if len(res.Raw) == 0 {
		return "", errors.New("remote signer returned an empty transaction")
	}
	return res.Raw.String(), nil
}

func (s *Signer) toArgs(tx structs.TxParams) (txArgs, error) {
	var (
		args = txArgs{From: common.HexToAddress(tx.From).Hex()}
		err  error
	)

	if tx.To != "" {
		to := common.HexToAddress(tx.To).Hex()
		args.To = &to
	}
	if args.Gas, err = quantity(tx.GasCap(), "gas"); err != nil {
		return args, err
	}
	if args.Value, err = quantity(tx.Value, "value"); err != nil {
		return args, err
	}
	if args.Nonce, err = quantity(tx.Nonce, "nonce"); err != nil {
		return args, err
	}

	// clef rejects transactions that carry both fee models and signs a
	// legacy transaction when no fee cap is set
	feeCap, tipCap := tx.MaxFeePerGas, tx.MaxPriorityFeePerGas
	if feeCap == "" && isDynamicFee(tx.Type) {
		feeCap = tx.GasPrice
	}
	if feeCap != "" {
		if tipCap == "" {
			tipCap = feeCap
		}
		if args.MaxFeePerGas, err = optionalQuantity(feeCap, "maxFeePerGas"); err != nil {
			return args, err
		}
		if args.MaxPriorityFeePerGas, err = optionalQuantity(tipCap, "maxPriorityFeePerGas"); err != nil {
			return args, err
		}
	} else if args.GasPrice, err = optionalQuantity(tx.GasPrice, "gasPrice"); err != nil {
		return args, err
	}

	if data := tx.Payload(); data != "" {
		args.Data = &data
	}
	args.AccessList = tx.AccessList

	chainID := uint64(tx.ChainID)
	if chainID == 0 {
		chainID = s.cfg.ChainID
	}
	args.ChainID = hexutil.EncodeUint64(chainID)

	return args, nil
}

func isDynamicFee(txType string) bool {
	if txType == "" {
		return false
	}
	v, err := structs.ParseQuantity(txType)
	return err == nil && v.IsUint64() && v.Uint64() == types.DynamicFeeTxType
}

func quantity(s, field string) (string, error) {
	if s == "" {
		return "0x0", nil
	}
	v, err := structs.ParseQuantity(s)
	if err != nil {
		return "", errors.Wrapf(err, "invalid %s", field)
	}
	return hexutil.EncodeBig(v), nil
}

func optionalQuantity(s, field string) (*string, error) {
	if s == "" {
		return nil, nil
	}
	q, err := quantity(s, field)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *Signer) SignPersonalMessage(ctx context.Context, data, address string) (string, error) {
	var sig hexutil.Bytes
	err := s.call(ctx, &sig, "account_signData",
		contentTypeText,
		common.HexToAddress(address).Hex(),
		messageHex(data))
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

// messageHex returns data hex encoded. Data that already is hex is kept.
func messageHex(data string) string {
	if _, err := hexutil.Decode(data); err == nil {
		return data
	}
	return hexutil.Encode([]byte(data))
}

func (s *Signer) SignTypedData(ctx context.Context, address string, typedData json.RawMessage) (string, error) {
	var sig hexutil.Bytes
	err := s.call(ctx, &sig, "account_signTypedData",
		common.HexToAddress(address).Hex(),
		typedData)
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

// Version asks the signer for its API version. It doubles as a health check.
func (s *Signer) Version(ctx context.Context) (string, error) {
	var v string
	if err := s.call(ctx, &v, "account_version"); err != nil {
		return "", err
	}
	return v, nil
}
